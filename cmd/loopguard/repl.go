package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rickchristie/loopguard"
	"github.com/rickchristie/loopguard/events"
	"github.com/rickchristie/loopguard/guard"
	"github.com/rickchristie/loopguard/loggers"
	"github.com/spf13/cobra"
)

const replHelp = `Type text to stream it as content. Commands:
  /tool NAME [JSON]   stream a tool call with JSON arguments
  /reset              start a new turn
  /status             show tracked state
  /quit               exit`

func replCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Stream content and tool calls interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry := events.NewRegistry().Subscribe(loggers.NewLogrus(opts.logger))
			g := guard.New(opts.config, guard.WithEvents(registry), guard.WithName("repl"))
			defer g.Close()
			return runREPL(g, cmd.OutOrStdout())
		},
	}
}

func runREPL(g *guard.Guard, out io.Writer) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt: colorCyan + "> " + colorReset,
		Stdout: out,
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(out, replHelp)
	fmt.Fprintln(out)

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Fprintf(out, "%sGoodbye!%s\n", colorGreen, colorReset)
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}
		if quit := handleREPLLine(g, line, out); quit {
			fmt.Fprintf(out, "%sGoodbye!%s\n", colorGreen, colorReset)
			return nil
		}
	}
}

// handleREPLLine processes one input line and reports whether the user asked to quit.
func handleREPLLine(g *guard.Guard, line string, out io.Writer) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}

	if !strings.HasPrefix(trimmed, "/") {
		report(g.Feed(loopguard.ContentDelta{Text: line}), out)
		return false
	}

	cmd, rest, _ := strings.Cut(trimmed, " ")
	switch cmd {
	case "/quit", "/exit":
		return true
	case "/reset":
		g.Reset()
		fmt.Fprintf(out, "%snew turn %s%s\n", colorDim, g.TurnID(), colorReset)
	case "/status":
		engine := g.Engine()
		fmt.Fprintf(out, "turn:        %s\n", g.TurnID())
		fmt.Fprintf(out, "tool calls:  %d distinct\n", engine.ToolCalls().Len())
		fmt.Fprintf(out, "buffer:      %d/%d runes\n", engine.Content().Len(), engine.Config().WindowMax)
		fmt.Fprintf(out, "sentences:   %d\n", len(engine.Content().Sentences()))
		if err := g.Tripped(); err != nil {
			fmt.Fprintf(out, "%stripped:     %v%s\n", colorRed, err, colorReset)
		}
	case "/tool":
		name, args, _ := strings.Cut(strings.TrimSpace(rest), " ")
		if name == "" {
			fmt.Fprintf(out, "%susage: /tool NAME [JSON]%s\n", colorYellow, colorReset)
			return false
		}
		req := loopguard.ToolCallRequest{Name: name, RawArgs: strings.TrimSpace(args)}
		report(g.Feed(req), out)
	case "/help":
		fmt.Fprintln(out, replHelp)
	default:
		fmt.Fprintf(out, "%sunknown command %s (try /help)%s\n", colorYellow, cmd, colorReset)
	}
	return false
}

func report(err error, out io.Writer) {
	if err == nil {
		fmt.Fprintf(out, "%sok%s\n", colorGreen, colorReset)
		return
	}
	fmt.Fprintf(out, "%s%v%s\n", colorRed, err, colorReset)
	fmt.Fprintf(out, "%s(generation stopped; /reset to start a new turn)%s\n", colorDim, colorReset)
}
