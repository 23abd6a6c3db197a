package loopguard

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// -----------------------------------------------------------------------------
// Generation Events
// -----------------------------------------------------------------------------

// GenerationEvent is a sealed interface for everything a generation pipeline emits.
//
// Only [ToolCallRequest] and [ContentDelta] carry meaning for repetition detection.
// The remaining variants exist so that a pipeline can forward its whole stream without
// filtering; detectors treat them as no-ops.
type GenerationEvent interface {
	generationEvent()
}

// ToolCallRequest is emitted when the model asks to invoke a tool.
type ToolCallRequest struct {
	// ID is the provider's tool call identifier. It is not part of the call's identity.
	ID string

	// Name is the tool name.
	Name string

	// Args contains the decoded arguments. Key order is irrelevant for detection.
	Args map[string]any

	// RawArgs is the undecoded argument text. It is only used when Args is nil,
	// e.g. when the provider sent arguments that are not a JSON object.
	RawArgs string
}

func (ToolCallRequest) generationEvent() {}

// ContentDelta is a fragment of streamed assistant text.
type ContentDelta struct {
	Text string
}

func (ContentDelta) generationEvent() {}

// ReasoningDelta is a fragment of streamed reasoning/thinking text.
type ReasoningDelta struct {
	Text string
}

func (ReasoningDelta) generationEvent() {}

// StreamError reports an error surfaced by the stream.
type StreamError struct {
	Err error
}

func (StreamError) generationEvent() {}

// UsageUpdate reports token usage mid-stream or at the end of a generation.
type UsageUpdate struct {
	InputTokens  int
	OutputTokens int
}

func (UsageUpdate) generationEvent() {}

var (
	_ GenerationEvent = ToolCallRequest{}
	_ GenerationEvent = ContentDelta{}
	_ GenerationEvent = ReasoningDelta{}
	_ GenerationEvent = StreamError{}
	_ GenerationEvent = UsageUpdate{}
)

// -----------------------------------------------------------------------------
// LangChainGo Adapters
// -----------------------------------------------------------------------------

// ToolCallFromLangChain converts a LangChainGo tool call into a ToolCallRequest.
//
// Arguments are decoded with [DecodeArgs]. When decoding fails (empty string, array,
// malformed JSON), Args stays nil and the raw text is kept in RawArgs so the call
// still gets a stable identity.
func ToolCallFromLangChain(tc llms.ToolCall) ToolCallRequest {
	req := ToolCallRequest{ID: tc.ID}
	if tc.FunctionCall == nil {
		return req
	}
	req.Name = tc.FunctionCall.Name

	if args, ok := DecodeArgs(tc.FunctionCall.Arguments); ok {
		req.Args = args
	} else {
		req.RawArgs = tc.FunctionCall.Arguments
	}
	return req
}

// DecodeArgs decodes tool call arguments that form exactly one JSON object.
//
// Numbers are kept as json.Number with their original text, so 9007199254740993 and
// 9007199254740992 stay distinct instead of rounding to the same float64.
func DecodeArgs(text string) (map[string]any, bool) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var args map[string]any
	if err := dec.Decode(&args); err != nil || args == nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return args, true
}

// StreamChunk is a single chunk delivered by a streaming model call.
// A chunk may carry several kinds of payload at once.
type StreamChunk struct {
	// Content is a fragment of the response text.
	Content string

	// ReasoningContent is a fragment of reasoning text, if the model supports it.
	ReasoningContent string

	// ToolCalls contains tool calls completed in this chunk.
	ToolCalls []llms.ToolCall

	// Err is set when the stream failed.
	Err error
}

// Events splits the chunk into generation events.
//
// Order: reasoning, content, tool calls, error. Empty fields produce no event.
func (c StreamChunk) Events() []GenerationEvent {
	var out []GenerationEvent
	if c.ReasoningContent != "" {
		out = append(out, ReasoningDelta{Text: c.ReasoningContent})
	}
	if c.Content != "" {
		out = append(out, ContentDelta{Text: c.Content})
	}
	for _, tc := range c.ToolCalls {
		out = append(out, ToolCallFromLangChain(tc))
	}
	if c.Err != nil {
		out = append(out, StreamError{Err: c.Err})
	}
	return out
}
