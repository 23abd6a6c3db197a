package history

import (
	"github.com/google/uuid"
	"github.com/rickchristie/loopguard"
	"github.com/rickchristie/loopguard/events"
	"github.com/rickchristie/loopguard/repetition"
)

// CancelReason is passed to the cancel callback when repetitive tool calls are found.
const CancelReason = "Detected repetitive tool calls. Stopping to prevent an infinite loop."

// CancelFunc stops the conversation before the next turn is issued.
type CancelFunc func(reason string)

// KeyFunc extracts the identity fields of a logged tool invocation.
type KeyFunc func(call loopguard.ToolInvocation) []string

// DefaultKeyFunc identifies a logged call by name, description and canonical result.
func DefaultKeyFunc(call loopguard.ToolInvocation) []string {
	return repetition.ResultFields(call.Name, call.Description, call.Result)
}

// Watcher detects repetitive tool calls in an append-only conversation history.
//
// The host calls Sync with the full history every time it changes. Only growth is
// analyzed, and only the newest entry: when it is a loopguard.ToolGroupEntry, each of
// its calls is counted. When a call reaches ToolCallThreshold the cancel callback is
// invoked once with [CancelReason]; it is not invoked again until Reset, although
// counting continues.
//
// Reset is driven by the host's turn lifecycle (see OnTurnState), never by history
// growth.
//
// Watcher is not safe for concurrent use.
type Watcher struct {
	threshold int
	detector  *repetition.ToolCallDetector
	keyFunc   KeyFunc
	cancel    CancelFunc
	events    *events.Registry
	name      string

	seen   int
	fired  bool
	turnID string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithEvents publishes LoopDetectedEvent and ResetEvent to the registry.
func WithEvents(registry *events.Registry) Option {
	return func(w *Watcher) { w.events = registry }
}

// WithName sets the name reported in published events.
func WithName(name string) Option {
	return func(w *Watcher) { w.name = name }
}

// WithKeyFunc replaces the identity of logged calls. A nil fn keeps the default.
func WithKeyFunc(fn KeyFunc) Option {
	return func(w *Watcher) {
		if fn != nil {
			w.keyFunc = fn
		}
	}
}

// NewWatcher creates a Watcher using cfg.ToolCallThreshold. cancel may be nil, in which
// case detections are only reported through Sync's return value and events.
func NewWatcher(cfg loopguard.Config, cancel CancelFunc, opts ...Option) *Watcher {
	cfg = cfg.WithDefaults()
	w := &Watcher{
		threshold: cfg.ToolCallThreshold,
		detector:  repetition.NewToolCallDetector(),
		keyFunc:   DefaultKeyFunc,
		cancel:    cancel,
		turnID:    uuid.NewString(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Sync analyzes the history after a change.
//
// When the history did not grow, nothing happens. A shorter history (e.g. the host
// switched conversations) only rebases the length used to detect growth.
//
// Returns the detection that fired the cancel callback during this call, if any.
func (w *Watcher) Sync(entries []loopguard.Entry) loopguard.Detection {
	n := len(entries)
	if n <= w.seen {
		w.seen = n
		return loopguard.Detection{}
	}
	w.seen = n

	var group loopguard.ToolGroupEntry
	switch e := entries[n-1].(type) {
	case loopguard.ToolGroupEntry:
		group = e
	case *loopguard.ToolGroupEntry:
		if e == nil {
			return loopguard.Detection{}
		}
		group = *e
	default:
		return loopguard.Detection{}
	}

	var fired loopguard.Detection
	for _, call := range group.Calls {
		count := w.detector.Observe(w.keyFunc(call)...)
		if count < w.threshold || w.fired {
			continue
		}
		w.fired = true
		fired = loopguard.Detection{
			Detected: true,
			Kind:     loopguard.DetectionToolCall,
			ToolName: call.Name,
			Count:    count,
		}
		w.events.Dispatch(&loopguard.LoopDetectedEvent{
			Source:    loopguard.SourceHistory,
			Name:      w.name,
			TurnID:    w.turnID,
			Detection: fired,
		})
		if w.cancel != nil {
			w.cancel(CancelReason)
		}
	}
	return fired
}

// Reset clears the counts and re-arms the cancel callback. The history length seen so
// far is kept: a reset marks a turn boundary, not a new history.
func (w *Watcher) Reset() {
	w.detector.Reset()
	w.fired = false

	previous := w.turnID
	w.turnID = uuid.NewString()
	w.events.Dispatch(&loopguard.ResetEvent{
		Source:         loopguard.SourceHistory,
		Name:           w.name,
		PreviousTurnID: previous,
		TurnID:         w.turnID,
	})
}

// OnTurnState resets the watcher when the turn becomes idle.
func (w *Watcher) OnTurnState(state loopguard.TurnState) {
	if state == loopguard.TurnIdle {
		w.Reset()
	}
}

// Fired reports whether the cancel callback has been invoked since the last Reset.
func (w *Watcher) Fired() bool {
	return w.fired
}

// TurnID returns the identifier of the current turn.
func (w *Watcher) TurnID() string {
	return w.turnID
}

var _ loopguard.TurnObserver = (*Watcher)(nil)
