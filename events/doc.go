// Package events provides the subscriber registry for loopguard notifications.
//
// Detectors return decisions and never call out. The consumers acting on those
// decisions (guard.Guard and history.Watcher) publish notification events through a
// Registry, which forwards them to every subscriber implementing the matching
// interface:
//   - loopguard.LoopDetectedSubscriber receives *loopguard.LoopDetectedEvent
//   - loopguard.ResetSubscriber receives *loopguard.ResetEvent
//
// The loggers package provides ready-made subscribers.
package events
