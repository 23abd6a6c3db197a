package loopguard

// -----------------------------------------------------------------------------
// Notification Events
// -----------------------------------------------------------------------------
//
// Detectors themselves never notify anyone; they return decisions. The consumers that
// act on those decisions (guard.Guard in stream mode, history.Watcher in history mode)
// publish the events below through an events.Registry.

// Event is a marker interface for all notification events.
type Event interface {
	event()
}

// Event sources.
const (
	SourceStream  = "stream"
	SourceHistory = "history"
)

// LoopDetectedEvent is published when a consumer acts on a detection.
type LoopDetectedEvent struct {
	// Source is SourceStream or SourceHistory.
	Source string

	// Name is the consumer name given at construction (may be empty).
	Name string

	// TurnID identifies the turn, regenerated on every reset.
	TurnID string

	// Detection holds what was detected.
	Detection Detection
}

func (*LoopDetectedEvent) event() {}

// ResetEvent is published when a consumer resets its detection state.
type ResetEvent struct {
	Source string
	Name   string

	// PreviousTurnID is the turn that ended.
	PreviousTurnID string

	// TurnID is the turn that starts.
	TurnID string
}

func (*ResetEvent) event() {}

var (
	_ Event = (*LoopDetectedEvent)(nil)
	_ Event = (*ResetEvent)(nil)
)
