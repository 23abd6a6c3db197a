// Package tt provides test helpers shared by loopguard's packages.
package tt

import (
	"github.com/rickchristie/loopguard"
)

// -----------------------------------------------------------------------------
// Event Builders
// -----------------------------------------------------------------------------

// ToolCall builds a streamed tool call with decoded arguments.
func ToolCall(name string, args map[string]any) loopguard.ToolCallRequest {
	return loopguard.ToolCallRequest{Name: name, Args: args}
}

// RawToolCall builds a streamed tool call whose arguments are JSON text.
func RawToolCall(name, raw string) loopguard.ToolCallRequest {
	return loopguard.ToolCallRequest{Name: name, RawArgs: raw}
}

// Content builds a content delta.
func Content(text string) loopguard.ContentDelta {
	return loopguard.ContentDelta{Text: text}
}

// Repeat returns n copies of event.
func Repeat(event loopguard.GenerationEvent, n int) []loopguard.GenerationEvent {
	out := make([]loopguard.GenerationEvent, n)
	for i := range out {
		out[i] = event
	}
	return out
}

// Concat joins event slices.
func Concat(parts ...[]loopguard.GenerationEvent) []loopguard.GenerationEvent {
	var out []loopguard.GenerationEvent
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// -----------------------------------------------------------------------------
// Feeding
// -----------------------------------------------------------------------------

// Updater is anything that reports a per-event loop decision.
type Updater interface {
	Update(event loopguard.GenerationEvent) bool
}

// Feed passes every event to u and returns the decisions in order.
func Feed(u Updater, events []loopguard.GenerationEvent) []bool {
	out := make([]bool, len(events))
	for i, ev := range events {
		out[i] = u.Update(ev)
	}
	return out
}

// FalseThenTrue returns n-1 false values followed by one true.
func FalseThenTrue(n int) []bool {
	out := make([]bool, n)
	out[n-1] = true
	return out
}

// Group builds a tool group entry with one invocation per name, each with a nil result.
func Group(names ...string) loopguard.ToolGroupEntry {
	calls := make([]loopguard.ToolInvocation, len(names))
	for i, n := range names {
		calls[i] = loopguard.ToolInvocation{Name: n}
	}
	return loopguard.ToolGroupEntry{Calls: calls}
}
