package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rickchristie/loopguard"
	"github.com/rickchristie/loopguard/events"
	"github.com/rickchristie/loopguard/history"
	"github.com/rickchristie/loopguard/loggers"
	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms"
	"gopkg.in/yaml.v3"
)

func historyCmd(opts *globalOptions) *cobra.Command {
	var trace bool

	cmd := &cobra.Command{
		Use:   "history <history.yaml>",
		Short: "Replay a conversation history one entry at a time",
		Long: `The file is a YAML (or JSON) list of entries:

  - kind: message
    role: human
    text: Book me a flight.
  - kind: tool_group
    calls:
      - name: search_flights
        description: Search available flights
        result: {flights: []}
  - kind: idle

The watcher sees the history grow by one entry per step. "idle" is not an entry:
it ends the turn and resets the watcher.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read history: %w", err)
			}
			steps, err := parseHistory(data)
			if err != nil {
				return err
			}

			registry := events.NewRegistry().Subscribe(loggers.NewLogrus(opts.logger))
			if trace {
				registry.Subscribe(loggers.NewYAMLWriter(cmd.ErrOrStderr()))
			}
			return replayHistory(steps, cmd.OutOrStdout(), opts.config, registry)
		},
	}

	cmd.Flags().BoolVar(&trace, "trace", false, "write every notification as YAML to stderr")
	return cmd
}

// historyRecord is the file representation of one history step.
type historyRecord struct {
	Kind  string                     `yaml:"kind"`
	Role  string                     `yaml:"role"`
	Text  string                     `yaml:"text"`
	Calls []loopguard.ToolInvocation `yaml:"calls"`
}

// historyStep is either an entry or a turn boundary (entry == nil).
type historyStep struct {
	entry loopguard.Entry
}

func parseHistory(data []byte) ([]historyStep, error) {
	var records []historyRecord
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}

	steps := make([]historyStep, 0, len(records))
	for i, r := range records {
		switch r.Kind {
		case "message":
			role := llms.ChatMessageType(r.Role)
			if role == "" {
				role = llms.ChatMessageTypeAI
			}
			steps = append(steps, historyStep{entry: loopguard.MessageEntry{Role: role, Text: r.Text}})
		case "tool_group":
			steps = append(steps, historyStep{entry: loopguard.ToolGroupEntry{Calls: r.Calls}})
		case "idle":
			steps = append(steps, historyStep{})
		default:
			return nil, fmt.Errorf("entry %d: unknown kind %q (want message, tool_group or idle)", i+1, r.Kind)
		}
	}
	return steps, nil
}

func replayHistory(
	steps []historyStep,
	out io.Writer,
	cfg loopguard.Config,
	registry *events.Registry,
) error {
	var cancelled []string
	watcher := history.NewWatcher(cfg, func(reason string) {
		cancelled = append(cancelled, reason)
	}, history.WithEvents(registry), history.WithName("history"))

	var entries []loopguard.Entry
	for _, step := range steps {
		if step.entry == nil {
			watcher.OnTurnState(loopguard.TurnIdle)
			fmt.Fprintf(out, "%s---- idle, watcher reset%s\n", colorDim, colorReset)
			continue
		}

		entries = append(entries, step.entry)
		detection := watcher.Sync(entries)
		fmt.Fprintf(out, "%4d %s\n", len(entries), describeEntry(step.entry))
		if detection.Detected {
			fmt.Fprintf(out, "%s     CANCEL: %s (%s)%s\n",
				colorRed, cancelled[len(cancelled)-1], describe(detection), colorReset)
		}
	}

	fmt.Fprintf(out, "%s%d entries, %d cancellations%s\n",
		colorYellow, len(entries), len(cancelled), colorReset)
	return nil
}

func describeEntry(e loopguard.Entry) string {
	switch e := e.(type) {
	case loopguard.MessageEntry:
		return fmt.Sprintf("%s%s:%s %s", colorCyan, e.Role, colorReset, truncate(e.Text, 50))
	case loopguard.ToolGroupEntry:
		names := ""
		for i, c := range e.Calls {
			if i > 0 {
				names += ", "
			}
			names += c.Name
		}
		return fmt.Sprintf("%stools:%s %s", colorCyan, colorReset, names)
	default:
		return fmt.Sprintf("%T", e)
	}
}
