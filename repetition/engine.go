package repetition

import (
	"github.com/rickchristie/loopguard"
)

// Engine dispatches generation events to the tool call and content detectors and
// reports, per event, whether a loop was detected.
//
// # Usage
//
//	engine := repetition.New(loopguard.DefaultConfig())
//	for ev := range events {
//	    if engine.Update(ev) {
//	        cancelGeneration()
//	        break
//	    }
//	}
//	engine.Reset() // when the turn ends
//
// # Event Handling
//
//   - loopguard.ToolCallRequest: counted by identity (name + canonical arguments);
//     reports once the count reaches ToolCallThreshold.
//   - loopguard.ContentDelta: analyzed by the content detector.
//   - Anything else, including nil: ignored, state untouched, reports false.
//
// # Failure Semantics
//
// Update never panics and has no error return. Unexpected input degrades to "no loop
// detected".
//
// Engine is not safe for concurrent use. Each consumer owns its own Engine.
type Engine struct {
	cfg     loopguard.Config
	tools   *ToolCallDetector
	content *ContentDetector
}

// New creates an Engine. Out-of-range config fields fall back to defaults.
func New(cfg loopguard.Config) *Engine {
	cfg = cfg.WithDefaults()
	return &Engine{
		cfg:     cfg,
		tools:   NewToolCallDetector(),
		content: NewContentDetector(cfg),
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() loopguard.Config {
	return e.cfg
}

// Update observes one event and reports whether it crossed a threshold.
func (e *Engine) Update(event loopguard.GenerationEvent) bool {
	return e.Observe(event).Detected
}

// Observe is like Update but returns details about the detection.
func (e *Engine) Observe(event loopguard.GenerationEvent) (detection loopguard.Detection) {
	defer func() {
		if r := recover(); r != nil {
			detection = loopguard.Detection{}
		}
	}()

	switch ev := event.(type) {
	case loopguard.ToolCallRequest:
		return e.observeToolCall(ev)
	case *loopguard.ToolCallRequest:
		if ev != nil {
			return e.observeToolCall(*ev)
		}
	case loopguard.ContentDelta:
		return e.observeContent(ev.Text)
	case *loopguard.ContentDelta:
		if ev != nil {
			return e.observeContent(ev.Text)
		}
	}
	return loopguard.Detection{}
}

func (e *Engine) observeToolCall(req loopguard.ToolCallRequest) loopguard.Detection {
	count := e.tools.ObserveCall(req.Name, req.Args, req.RawArgs)
	if count < e.cfg.ToolCallThreshold {
		return loopguard.Detection{}
	}
	return loopguard.Detection{
		Detected: true,
		Kind:     loopguard.DetectionToolCall,
		ToolName: req.Name,
		Count:    count,
	}
}

func (e *Engine) observeContent(text string) loopguard.Detection {
	detected, sentence, count := e.content.observe(text)
	if !detected {
		return loopguard.Detection{}
	}
	return loopguard.Detection{
		Detected: true,
		Kind:     loopguard.DetectionContent,
		Sentence: sentence,
		Count:    count,
	}
}

// Reset clears the tool call counters, the content window and the sentence cache.
// It is idempotent; a reset Engine behaves exactly like a new one.
func (e *Engine) Reset() {
	e.tools.Reset()
	e.content.Reset()
}

// OnTurnState resets the engine when the turn becomes idle.
func (e *Engine) OnTurnState(state loopguard.TurnState) {
	if state == loopguard.TurnIdle {
		e.Reset()
	}
}

// ToolCalls returns the tool call detector, for inspection.
func (e *Engine) ToolCalls() *ToolCallDetector {
	return e.tools
}

// Content returns the content detector, for inspection.
func (e *Engine) Content() *ContentDetector {
	return e.content
}

var _ loopguard.TurnObserver = (*Engine)(nil)
