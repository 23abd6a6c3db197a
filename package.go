// Package loopguard detects LLM agents stuck in repetition loops.
//
// Two patterns are detected while a response is generated:
//   - the same tool called again and again with identical arguments
//   - the same sentence emitted again and again in the response text
//
// This package holds the shared types: generation events, conversation history entries,
// detections, notifications and configuration. The detectors live in subpackages.
//
// # Quick Start: Stopping a Looping Generation
//
//	package main
//
//	import (
//	    "context"
//	    "errors"
//
//	    "github.com/rickchristie/loopguard"
//	    "github.com/rickchristie/loopguard/events"
//	    "github.com/rickchristie/loopguard/guard"
//	    "github.com/rickchristie/loopguard/loggers"
//	    "github.com/tmc/langchaingo/llms"
//	)
//
//	func respond(ctx context.Context, llm llms.Model, messages []llms.MessageContent) error {
//	    // 1. Log detections through logrus
//	    registry := events.NewRegistry().Subscribe(loggers.NewLogrus(nil))
//
//	    // 2. Create a guard with the default thresholds
//	    g := guard.New(loopguard.DefaultConfig(), guard.WithEvents(registry))
//	    defer g.Close()
//
//	    // 3. Stream through the guard; a loop aborts the call
//	    resp, err := llm.GenerateContent(ctx, messages, g.CallOption())
//	    if errors.Is(err, guard.ErrLoopDetected) {
//	        return err
//	    }
//
//	    // 4. Tool calls arrive with the final response
//	    return g.FeedResponse(resp)
//	}
//
// # Packages
//
//   - repetition: the detectors (ToolCallDetector, ContentDetector) and the Engine that
//     routes generation events to them. Start here when driving detection manually.
//   - guard: wraps an Engine for live streams (LangChainGo streaming functions, chunk
//     channels) and turns detections into errors.
//   - history: the Watcher, which detects repeated tool calls in an append-only
//     conversation history and cancels the conversation.
//   - events: the subscriber registry for notifications.
//   - loggers: logrus and YAML subscribers.
//
// # Configuration
//
// [DefaultConfig] returns the default thresholds. Configs can be loaded from YAML with
// [LoadConfig]; loaded configs are validated against a JSON schema.
//
//	cfg, err := loopguard.LoadConfig("loopguard.yaml")
//
// # Turn Lifecycle
//
// Detection state accumulates for one turn. Detectors never infer turn boundaries
// themselves: the host forwards lifecycle changes through [TurnObserver], and state is
// cleared when the turn becomes [TurnIdle].
//
//	engine.OnTurnState(loopguard.TurnIdle)
//
// # Failure Semantics
//
// Detection never fails and never panics on malformed input. Arguments that cannot be
// serialized get a fixed placeholder identity, events the detectors do not understand
// are ignored, and anything unexpected is reported as "no loop".
package loopguard
