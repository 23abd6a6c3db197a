package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rickchristie/loopguard"
	"github.com/rickchristie/loopguard/repetition"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

func replayCmd(opts *globalOptions) *cobra.Command {
	var stop bool

	cmd := &cobra.Command{
		Use:   "replay <events.jsonl>",
		Short: "Replay streamed generation events and print one decision per event",
		Long: `Each line of the file is one JSON event:

  {"type":"tool_call","name":"search","args":{"q":"x"}}
  {"type":"tool_call","name":"search","arguments":"{\"q\":\"x\"}"}
  {"type":"content","text":"Let me check."}
  {"type":"reasoning","text":"..."}
  {"type":"reset"}

Unknown types are passed to the engine as inert events. Use "-" to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, closeFn, err := openInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer closeFn()
			return replay(in, cmd.OutOrStdout(), repetition.New(opts.config), opts.logger, stop)
		},
	}

	cmd.Flags().BoolVar(&stop, "stop", false, "stop at the first detected loop")
	return cmd
}

// replayLine is one parsed line of a replay file.
type replayLine struct {
	label string
	event loopguard.GenerationEvent
	reset bool
}

func replay(in io.Reader, out io.Writer, engine *repetition.Engine, logger *logrus.Logger, stop bool) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNo := 0
	loops := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		line, err := parseReplayLine(text)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}

		if line.reset {
			engine.Reset()
			fmt.Fprintf(out, "%s%4d reset%s\n", colorDim, lineNo, colorReset)
			continue
		}

		detection := engine.Observe(line.event)
		if !detection.Detected {
			fmt.Fprintf(out, "%4d %-40s %sok%s\n", lineNo, line.label, colorGreen, colorReset)
			continue
		}

		loops++
		fmt.Fprintf(out, "%4d %-40s %sLOOP %s%s\n", lineNo, line.label, colorRed, describe(detection), colorReset)
		logger.WithFields(logrus.Fields{
			"line":  lineNo,
			"kind":  string(detection.Kind),
			"count": detection.Count,
		}).Warn("repetition loop detected")
		if stop {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read events: %w", err)
	}

	fmt.Fprintf(out, "%s%d events, %d loops%s\n", colorYellow, lineNo, loops, colorReset)
	return nil
}

func parseReplayLine(text string) (replayLine, error) {
	if !gjson.Valid(text) {
		return replayLine{}, fmt.Errorf("invalid JSON: %s", truncate(text, 60))
	}
	r := gjson.Parse(text)
	typ := r.Get("type").String()

	switch typ {
	case "reset", "idle":
		return replayLine{reset: true}, nil

	case "tool_call":
		req := loopguard.ToolCallRequest{
			ID:   r.Get("id").String(),
			Name: r.Get("name").String(),
		}
		if args := r.Get("args"); args.IsObject() {
			req.Args, _ = loopguard.DecodeArgs(args.Raw)
		} else if args.Exists() {
			req.RawArgs = args.Raw
		} else if raw := r.Get("arguments"); raw.Exists() {
			req.RawArgs = raw.String()
		}
		return replayLine{label: "tool_call " + req.Name, event: req}, nil

	case "content":
		t := r.Get("text").String()
		return replayLine{label: "content " + quote(t), event: loopguard.ContentDelta{Text: t}}, nil

	case "reasoning":
		t := r.Get("text").String()
		return replayLine{label: "reasoning " + quote(t), event: loopguard.ReasoningDelta{Text: t}}, nil

	default:
		return replayLine{label: "ignored " + typ}, nil
	}
}

func describe(d loopguard.Detection) string {
	switch d.Kind {
	case loopguard.DetectionToolCall:
		return fmt.Sprintf("tool %s x%d", d.ToolName, d.Count)
	case loopguard.DetectionContent:
		return fmt.Sprintf("sentence %s x%d", quote(d.Sentence), d.Count)
	default:
		return string(d.Kind)
	}
}

func quote(s string) string {
	return fmt.Sprintf("%q", truncate(s, 24))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}
