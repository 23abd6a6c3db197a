package loggers

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/rickchristie/loopguard"
	"github.com/rickchristie/loopguard/events"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestLogrus_OnLoopDetected(t *testing.T) {
	type expected struct {
		fields logrus.Fields
	}

	tests := []struct {
		name     string
		input    *loopguard.LoopDetectedEvent
		expected expected
	}{
		{
			name: "tool call",
			input: &loopguard.LoopDetectedEvent{
				Source: loopguard.SourceStream,
				Name:   "planner",
				TurnID: "turn-1",
				Detection: loopguard.Detection{
					Detected: true,
					Kind:     loopguard.DetectionToolCall,
					ToolName: "search",
					Count:    5,
				},
			},
			expected: expected{fields: logrus.Fields{
				"source":  "stream",
				"name":    "planner",
				"turn_id": "turn-1",
				"kind":    "tool_call",
				"tool":    "search",
				"count":   5,
			}},
		},
		{
			name: "content without name",
			input: &loopguard.LoopDetectedEvent{
				Source: loopguard.SourceHistory,
				TurnID: "turn-2",
				Detection: loopguard.Detection{
					Detected: true,
					Kind:     loopguard.DetectionContent,
					Sentence: "Again.",
					Count:    10,
				},
			},
			expected: expected{fields: logrus.Fields{
				"source":   "history",
				"turn_id":  "turn-2",
				"kind":     "content",
				"sentence": "Again.",
				"count":    10,
			}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, hook := logtest.NewNullLogger()
			NewLogrus(logger).OnLoopDetected(tt.input)

			entry := hook.LastEntry()
			require.NotNil(t, entry)
			assert.Equal(t, logrus.WarnLevel, entry.Level)
			assert.Equal(t, "repetition loop detected", entry.Message)
			assert.Equal(t, tt.expected.fields, entry.Data)
		})
	}
}

func TestLogrus_OnReset(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	registry := events.NewRegistry().Subscribe(NewLogrus(logger))
	registry.Dispatch(&loopguard.ResetEvent{
		Source:         loopguard.SourceStream,
		Name:           "planner",
		PreviousTurnID: "a",
		TurnID:         "b",
	})

	require.Len(t, hook.Entries, 1)
	entry := hook.Entries[0]
	assert.Equal(t, logrus.DebugLevel, entry.Level)
	assert.Equal(t, "b", entry.Data["turn_id"])
	assert.Equal(t, "a", entry.Data["previous_turn_id"])
}

func TestLogrus_ResetHiddenAtInfo(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.InfoLevel)

	NewLogrus(logger).OnReset(&loopguard.ResetEvent{TurnID: "b"})
	assert.Empty(t, hook.Entries)
}

func TestNewLogrus_NilUsesStandardLogger(t *testing.T) {
	assert.Equal(t, logrus.StandardLogger(), NewLogrus(nil).logger)
}

func TestYAMLWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewYAMLWriter(&buf)
	w.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, time.UTC) }

	long := strings.Repeat("Very long sentence ", 20) + "."
	w.OnLoopDetected(&loopguard.LoopDetectedEvent{
		Source: loopguard.SourceStream,
		Name:   "planner",
		TurnID: "turn-1",
		Detection: loopguard.Detection{
			Detected: true,
			Kind:     loopguard.DetectionContent,
			Sentence: long,
			Count:    10,
		},
	})
	w.OnReset(&loopguard.ResetEvent{Source: loopguard.SourceStream, PreviousTurnID: "turn-1", TurnID: "turn-2"})

	blocks := strings.Split(buf.String(), "\n>>> ")
	require.Len(t, blocks, 3)
	assert.Empty(t, blocks[0])

	header, body, _ := strings.Cut(blocks[1], "\n")
	assert.Equal(t, "[LoopDetected]: 2026-01-02 03:04:05.006", header)

	var loop struct {
		Source    string              `yaml:"source"`
		TurnID    string              `yaml:"turn_id"`
		Detection loopguard.Detection `yaml:"detection"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(body), &loop))
	assert.Equal(t, "stream", loop.Source)
	assert.Equal(t, "turn-1", loop.TurnID)
	assert.Equal(t, long, loop.Detection.Sentence, "sentence is not truncated")
	assert.Equal(t, loopguard.DetectionContent, loop.Detection.Kind)

	header, body, _ = strings.Cut(blocks[2], "\n")
	assert.Equal(t, "[Reset]: 2026-01-02 03:04:05.006", header)
	var reset map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(body), &reset))
	assert.Equal(t, "turn-1", reset["previous_turn_id"])
	assert.Equal(t, "turn-2", reset["turn_id"])
}
