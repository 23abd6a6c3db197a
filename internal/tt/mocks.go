package tt

import (
	"sync"

	"github.com/rickchristie/loopguard"
)

// Recorder records every notification it receives. Safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	loops  []*loopguard.LoopDetectedEvent
	resets []*loopguard.ResetEvent
}

// OnLoopDetected implements loopguard.LoopDetectedSubscriber.
func (r *Recorder) OnLoopDetected(event *loopguard.LoopDetectedEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loops = append(r.loops, event)
}

// OnReset implements loopguard.ResetSubscriber.
func (r *Recorder) OnReset(event *loopguard.ResetEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resets = append(r.resets, event)
}

// Loops returns the recorded loop notifications.
func (r *Recorder) Loops() []*loopguard.LoopDetectedEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*loopguard.LoopDetectedEvent(nil), r.loops...)
}

// Resets returns the recorded reset notifications.
func (r *Recorder) Resets() []*loopguard.ResetEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*loopguard.ResetEvent(nil), r.resets...)
}

// CancelRecorder records cancel callback invocations.
type CancelRecorder struct {
	Reasons []string
}

// Cancel is a history.CancelFunc.
func (c *CancelRecorder) Cancel(reason string) {
	c.Reasons = append(c.Reasons, reason)
}

var (
	_ loopguard.LoopDetectedSubscriber = (*Recorder)(nil)
	_ loopguard.ResetSubscriber        = (*Recorder)(nil)
)
