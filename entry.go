package loopguard

import (
	"github.com/tmc/langchaingo/llms"
)

// Entry is a sealed interface for one item of an append-only conversation history.
type Entry interface {
	entry()
}

// MessageEntry is a plain conversation message.
type MessageEntry struct {
	Role llms.ChatMessageType
	Text string
}

func (MessageEntry) entry() {}

// ToolGroupEntry groups the tool calls issued by one assistant turn together with
// their results.
type ToolGroupEntry struct {
	Calls []ToolInvocation
}

func (ToolGroupEntry) entry() {}

// ToolInvocation is a logged tool call.
type ToolInvocation struct {
	// ID is the tool call identifier. It is not part of the invocation's identity.
	ID string `yaml:"id,omitempty" json:"id,omitempty"`

	// Name is the tool name.
	Name string `yaml:"name" json:"name"`

	// Description is the tool description shown to the model.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// Result is the tool result as logged. Any JSON-representable value.
	Result any `yaml:"result,omitempty" json:"result,omitempty"`
}

var (
	_ Entry = MessageEntry{}
	_ Entry = ToolGroupEntry{}
)

// EntriesFromMessages converts LangChainGo message history into entries.
//
// An AI message containing tool call parts becomes a ToolGroupEntry. Tool responses
// in the messages that follow it are attached to the matching calls by tool call ID,
// so the group is a single entry regardless of how many response messages the
// provider produced. Tool descriptions are looked up by name in tools.
//
// All other messages become a MessageEntry with their text parts concatenated.
// Messages without text (e.g. image-only) are skipped.
func EntriesFromMessages(messages []llms.MessageContent, tools []llms.Tool) []Entry {
	descriptions := make(map[string]string, len(tools))
	for _, t := range tools {
		if t.Function != nil {
			descriptions[t.Function.Name] = t.Function.Description
		}
	}

	var (
		entries []Entry
		group   *ToolGroupEntry
		byID    map[string]int
	)
	flush := func() {
		if group != nil {
			entries = append(entries, *group)
			group = nil
			byID = nil
		}
	}

	for _, msg := range messages {
		if msg.Role == llms.ChatMessageTypeTool {
			if group == nil {
				continue
			}
			for _, part := range msg.Parts {
				resp, ok := part.(llms.ToolCallResponse)
				if !ok {
					continue
				}
				if idx, found := byID[resp.ToolCallID]; found {
					group.Calls[idx].Result = resp.Content
				}
			}
			continue
		}

		flush()

		var (
			text  string
			calls []ToolInvocation
		)
		for _, part := range msg.Parts {
			switch p := part.(type) {
			case llms.TextContent:
				text += p.Text
			case llms.ToolCall:
				if p.FunctionCall == nil {
					continue
				}
				calls = append(calls, ToolInvocation{
					ID:          p.ID,
					Name:        p.FunctionCall.Name,
					Description: descriptions[p.FunctionCall.Name],
				})
			}
		}

		if len(calls) > 0 {
			group = &ToolGroupEntry{Calls: calls}
			byID = make(map[string]int, len(calls))
			for i, c := range calls {
				byID[c.ID] = i
			}
			continue
		}
		if text != "" {
			entries = append(entries, MessageEntry{Role: msg.Role, Text: text})
		}
	}
	flush()

	return entries
}
