package events

import (
	"github.com/rickchristie/loopguard"
)

// Registry manages event subscribers and dispatches events to them.
//
// Subscribers can implement any combination of subscriber interfaces
// (loopguard.LoopDetectedSubscriber, loopguard.ResetSubscriber); they only receive
// events for the interfaces they implement.
//
//	registry := events.NewRegistry()
//	registry.Subscribe(loggers.NewLogrus(logrus.StandardLogger()))
//
//	g := guard.New(loopguard.DefaultConfig(), guard.WithEvents(registry))
//
// # Thread Safety
//
// Registry is NOT thread-safe. Register all subscribers before handing the registry
// to a consumer.
type Registry struct {
	subscribers []any
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		subscribers: make([]any, 0),
	}
}

// Subscribe adds a subscriber to the registry.
// Subscribers are called in the order they are registered.
func (r *Registry) Subscribe(subscriber any) *Registry {
	r.subscribers = append(r.subscribers, subscriber)
	return r
}

// Dispatch sends an event to all matching subscribers.
// A nil registry is valid and dispatches nothing.
func (r *Registry) Dispatch(event loopguard.Event) {
	if r == nil {
		return
	}
	switch e := event.(type) {
	case *loopguard.LoopDetectedEvent:
		for _, s := range r.subscribers {
			if sub, ok := s.(loopguard.LoopDetectedSubscriber); ok {
				sub.OnLoopDetected(e)
			}
		}
	case *loopguard.ResetEvent:
		for _, s := range r.subscribers {
			if sub, ok := s.(loopguard.ResetSubscriber); ok {
				sub.OnReset(e)
			}
		}
	}
}

// Len returns the number of registered subscribers.
func (r *Registry) Len() int {
	return len(r.subscribers)
}

// Clear removes all registered subscribers.
func (r *Registry) Clear() {
	r.subscribers = make([]any, 0)
}
