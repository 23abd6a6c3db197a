package loopguard

// Subscriber interfaces define type-safe event subscriptions.
//
// Implement any combination of these interfaces on a single struct to receive
// multiple event types. The events.Registry detects which interfaces a subscriber
// implements and calls the matching methods.
//
// # Example
//
//	type AlertSubscriber struct {
//	    alerts chan<- string
//	}
//
//	func (s *AlertSubscriber) OnLoopDetected(event *loopguard.LoopDetectedEvent) {
//	    s.alerts <- fmt.Sprintf("%s loop in turn %s", event.Detection.Kind, event.TurnID)
//	}
//
//	registry := events.NewRegistry()
//	registry.Subscribe(&AlertSubscriber{alerts: ch})

// LoopDetectedSubscriber receives LoopDetectedEvent events.
type LoopDetectedSubscriber interface {
	OnLoopDetected(event *LoopDetectedEvent)
}

// ResetSubscriber receives ResetEvent events.
type ResetSubscriber interface {
	OnReset(event *ResetEvent)
}
