package loopguard

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tmc/langchaingo/llms"
)

func TestToolCallFromLangChain(t *testing.T) {
	tests := []struct {
		name     string
		input    llms.ToolCall
		expected ToolCallRequest
	}{
		{
			name: "object arguments decoded",
			input: llms.ToolCall{
				ID:           "call_1",
				FunctionCall: &llms.FunctionCall{Name: "search", Arguments: `{"q":"x","n":2}`},
			},
			expected: ToolCallRequest{
				ID:   "call_1",
				Name: "search",
				Args: map[string]any{"q": "x", "n": json.Number("2")},
			},
		},
		{
			name: "large integers keep their digits",
			input: llms.ToolCall{
				FunctionCall: &llms.FunctionCall{Name: "get_order", Arguments: `{"id":9007199254740993}`},
			},
			expected: ToolCallRequest{
				Name: "get_order",
				Args: map[string]any{"id": json.Number("9007199254740993")},
			},
		},
		{
			name: "trailing data kept raw",
			input: llms.ToolCall{
				FunctionCall: &llms.FunctionCall{Name: "search", Arguments: `{"q":"x"} {"q":"y"}`},
			},
			expected: ToolCallRequest{Name: "search", RawArgs: `{"q":"x"} {"q":"y"}`},
		},
		{
			name: "malformed arguments kept raw",
			input: llms.ToolCall{
				ID:           "call_2",
				FunctionCall: &llms.FunctionCall{Name: "search", Arguments: `{"q":`},
			},
			expected: ToolCallRequest{ID: "call_2", Name: "search", RawArgs: `{"q":`},
		},
		{
			name: "array arguments kept raw",
			input: llms.ToolCall{
				FunctionCall: &llms.FunctionCall{Name: "batch", Arguments: `[1,2]`},
			},
			expected: ToolCallRequest{Name: "batch", RawArgs: `[1,2]`},
		},
		{
			name: "null arguments kept raw",
			input: llms.ToolCall{
				FunctionCall: &llms.FunctionCall{Name: "ping", Arguments: `null`},
			},
			expected: ToolCallRequest{Name: "ping", RawArgs: `null`},
		},
		{
			name:     "missing function call",
			input:    llms.ToolCall{ID: "call_3"},
			expected: ToolCallRequest{ID: "call_3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToolCallFromLangChain(tt.input))
		})
	}
}

func TestDecodeArgs(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected map[string]any
		ok       bool
	}{
		{
			name:     "object",
			input:    ` {"city": "Paris", "days": 3} `,
			expected: map[string]any{"city": "Paris", "days": json.Number("3")},
			ok:       true,
		},
		{
			name:     "nested numbers",
			input:    `{"ids":[9007199254740992, 1.50]}`,
			expected: map[string]any{"ids": []any{json.Number("9007199254740992"), json.Number("1.50")}},
			ok:       true,
		},
		{name: "empty", input: ``},
		{name: "null", input: `null`},
		{name: "array", input: `[1]`},
		{name: "malformed", input: `{"q":`},
		{name: "two objects", input: `{}{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, ok := DecodeArgs(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, args)
		})
	}
}

func TestStreamChunk_Events(t *testing.T) {
	streamErr := errors.New("boom")

	tests := []struct {
		name     string
		input    StreamChunk
		expected []GenerationEvent
	}{
		{
			name:     "empty chunk",
			input:    StreamChunk{},
			expected: nil,
		},
		{
			name:     "content only",
			input:    StreamChunk{Content: "Hi."},
			expected: []GenerationEvent{ContentDelta{Text: "Hi."}},
		},
		{
			name: "everything, in order",
			input: StreamChunk{
				Content:          "Calling.",
				ReasoningContent: "Need data.",
				ToolCalls: []llms.ToolCall{{
					ID:           "c1",
					FunctionCall: &llms.FunctionCall{Name: "fetch", Arguments: `{}`},
				}},
				Err: streamErr,
			},
			expected: []GenerationEvent{
				ReasoningDelta{Text: "Need data."},
				ContentDelta{Text: "Calling."},
				ToolCallRequest{ID: "c1", Name: "fetch", Args: map[string]any{}},
				StreamError{Err: streamErr},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.input.Events())
		})
	}
}
