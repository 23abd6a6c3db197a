package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rickchristie/loopguard"
	"github.com/rickchristie/loopguard/events"
	"github.com/rickchristie/loopguard/guard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := rootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// ─── replay ─────────────────────────────────────────────────────────────────

func TestParseReplayLine(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected loopguard.GenerationEvent
		reset    bool
		wantErr  bool
	}{
		{
			name:     "tool call with object args",
			input:    `{"type":"tool_call","id":"c1","name":"search","args":{"q":"x"}}`,
			expected: loopguard.ToolCallRequest{ID: "c1", Name: "search", Args: map[string]any{"q": "x"}},
		},
		{
			name:     "tool call with large integer args",
			input:    `{"type":"tool_call","name":"get_order","args":{"id":9007199254740993}}`,
			expected: loopguard.ToolCallRequest{Name: "get_order", Args: map[string]any{"id": json.Number("9007199254740993")}},
		},
		{
			name:     "tool call with string arguments",
			input:    `{"type":"tool_call","name":"search","arguments":"{\"q\":\"x\"}"}`,
			expected: loopguard.ToolCallRequest{Name: "search", RawArgs: `{"q":"x"}`},
		},
		{
			name:     "tool call with non-object args",
			input:    `{"type":"tool_call","name":"batch","args":[1, 2]}`,
			expected: loopguard.ToolCallRequest{Name: "batch", RawArgs: `[1, 2]`},
		},
		{
			name:     "content",
			input:    `{"type":"content","text":"Hi."}`,
			expected: loopguard.ContentDelta{Text: "Hi."},
		},
		{
			name:     "reasoning",
			input:    `{"type":"reasoning","text":"Hmm."}`,
			expected: loopguard.ReasoningDelta{Text: "Hmm."},
		},
		{
			name:  "reset",
			input: `{"type":"reset"}`,
			reset: true,
		},
		{
			name:     "unknown type is inert",
			input:    `{"type":"usage","input_tokens":3}`,
			expected: nil,
		},
		{
			name:    "invalid json",
			input:   `{"type":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, err := parseReplayLine(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.reset, line.reset)
			assert.Equal(t, tt.expected, line.event)
		})
	}
}

func TestReplayCommand(t *testing.T) {
	call := `{"type":"tool_call","name":"testTool","args":{"param":"value"}}`
	path := writeFile(t, "events.jsonl", strings.Join([]string{
		call, call, call, call, call,
		``,
		`{"type":"reset"}`,
		call,
	}, "\n"))

	out, _, err := execute(t, "replay", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 8)
	for _, l := range lines[:4] {
		assert.Contains(t, l, "ok")
	}
	assert.Contains(t, lines[4], "LOOP tool testTool x5")
	assert.Contains(t, lines[5], "reset")
	assert.Contains(t, lines[6], "ok")
	assert.Contains(t, lines[7], "8 events, 1 loops")
}

func TestReplayCommand_StopAndConfig(t *testing.T) {
	cfgPath := writeFile(t, "loopguard.yaml", "content_threshold: 2\n")
	path := writeFile(t, "events.jsonl", strings.Join([]string{
		`{"type":"content","text":"Again."}`,
		`{"type":"content","text":"Again."}`,
		`{"type":"content","text":"Again."}`,
	}, "\n"))

	out, logs, err := execute(t, "--config", cfgPath, "--log-format", "json", "replay", "--stop", path)
	require.NoError(t, err)
	assert.Contains(t, out, `LOOP sentence "Again." x2`)
	assert.Contains(t, out, "2 events, 1 loops")
	assert.Contains(t, logs, `"msg":"repetition loop detected"`)
}

func TestReplayCommand_Errors(t *testing.T) {
	bad := writeFile(t, "bad.jsonl", "{\"type\":\"content\"}\nnot json\n")

	_, _, err := execute(t, "replay", bad)
	assert.ErrorContains(t, err, "line 2")

	_, _, err = execute(t, "replay", filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)

	_, _, err = execute(t, "--log-format", "xml", "replay", bad)
	assert.ErrorContains(t, err, "--log-format")

	_, _, err = execute(t, "--log-level", "loud", "replay", bad)
	assert.ErrorContains(t, err, "--log-level")

	badCfg := writeFile(t, "cfg.yaml", "window_max: 0\n")
	_, _, err = execute(t, "--config", badCfg, "replay", bad)
	var cfgErr *loopguard.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

// ─── history ────────────────────────────────────────────────────────────────

const historyFile = `
- kind: message
  role: human
  text: What's the weather in Paris?
- kind: tool_group
  calls:
    - name: get_weather
      description: Current weather
      result: {temp: 21}
- kind: message
  text: Let me double check.
- kind: tool_group
  calls:
    - name: get_weather
      description: Current weather
      result: {temp: 21}
- kind: tool_group
  calls:
    - name: get_weather
      description: Current weather
      result: {temp: 21}
- kind: idle
- kind: tool_group
  calls:
    - name: get_weather
      description: Current weather
      result: {temp: 21}
`

func TestParseHistory(t *testing.T) {
	steps, err := parseHistory([]byte(historyFile))
	require.NoError(t, err)
	require.Len(t, steps, 7)

	assert.Equal(t, loopguard.MessageEntry{Role: "human", Text: "What's the weather in Paris?"}, steps[0].entry)
	assert.Equal(t, loopguard.MessageEntry{Role: "ai", Text: "Let me double check."}, steps[2].entry)
	group, ok := steps[1].entry.(loopguard.ToolGroupEntry)
	require.True(t, ok)
	require.Len(t, group.Calls, 1)
	assert.Equal(t, "get_weather", group.Calls[0].Name)
	assert.Equal(t, map[string]any{"temp": 21}, group.Calls[0].Result)
	assert.Nil(t, steps[5].entry)

	_, err = parseHistory([]byte("- kind: nope\n"))
	assert.ErrorContains(t, err, "unknown kind")

	_, err = parseHistory([]byte("kind: message\n"))
	assert.Error(t, err)
}

func TestHistoryCommand(t *testing.T) {
	path := writeFile(t, "history.yaml", historyFile)
	cfgPath := writeFile(t, "loopguard.yaml", "tool_call_threshold: 3\n")

	out, logs, err := execute(t, "--config", cfgPath, "--log-level", "debug", "history", "--trace", path)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(out, "CANCEL: "+"Detected repetitive tool calls."))
	assert.Contains(t, out, "idle, watcher reset")
	assert.Contains(t, out, "6 entries, 1 cancellations")
	assert.Contains(t, logs, "repetition loop detected")
	assert.Contains(t, logs, "repetition state reset")
	assert.Contains(t, logs, ">>> [LoopDetected]")
}

// ─── repl ───────────────────────────────────────────────────────────────────

func TestHandleREPLLine(t *testing.T) {
	cfg := loopguard.DefaultConfig()
	cfg.ToolCallThreshold = 2
	g := guard.New(cfg, guard.WithEvents(events.NewRegistry()))
	defer g.Close()

	var out bytes.Buffer
	send := func(line string) (bool, string) {
		out.Reset()
		quit := handleREPLLine(g, line, &out)
		return quit, out.String()
	}

	quit, text := send("Let me look.")
	assert.False(t, quit)
	assert.Contains(t, text, "ok")

	_, text = send(`/tool search {"q": "x"}`)
	assert.Contains(t, text, "ok")
	_, text = send(`/tool search {"q":"x"}`)
	assert.Contains(t, text, `loop detected: tool "search" called 2 times`)

	_, text = send("/status")
	assert.Contains(t, text, "tripped")
	assert.Contains(t, text, "1 distinct")

	_, text = send("More text.")
	assert.Contains(t, text, "loop detected", "guard stays tripped")

	turn := g.TurnID()
	_, text = send("/reset")
	assert.Contains(t, text, "new turn")
	assert.NotEqual(t, turn, g.TurnID())
	assert.NoError(t, g.Tripped())

	_, text = send("/tool")
	assert.Contains(t, text, "usage")
	_, text = send("/bogus")
	assert.Contains(t, text, "unknown command")
	_, text = send("   ")
	assert.Empty(t, text)

	quit, _ = send("/quit")
	assert.True(t, quit)
}
