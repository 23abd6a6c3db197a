// Command loopguard replays recorded agent output through the repetition detectors.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rickchristie/loopguard"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorDim    = "\033[2m"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%sError: %v%s\n", colorRed, err, colorReset)
		os.Exit(1)
	}
}

// globalOptions holds flags shared by all subcommands.
type globalOptions struct {
	configPath string
	logLevel   string
	logFormat  string

	config loopguard.Config
	logger *logrus.Logger
}

func rootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "loopguard",
		Short: "Detect repetitive tool calls and sentences in agent output",
		Long: `loopguard feeds recorded agent output through the repetition detectors.

  replay   streamed events (JSONL), one decision per event
  history  a conversation history, replayed one entry at a time
  repl     type content and tool calls interactively`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "log format (text, json)")

	root.AddCommand(replayCmd(opts))
	root.AddCommand(historyCmd(opts))
	root.AddCommand(replCmd(opts))
	return root
}

// setup loads the config and configures the logger.
func (o *globalOptions) setup(logOut io.Writer) error {
	level, err := logrus.ParseLevel(o.logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}

	logger := logrus.New()
	logger.SetOutput(logOut)
	logger.SetLevel(level)
	switch o.logFormat {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("invalid --log-format %q (want text or json)", o.logFormat)
	}
	o.logger = logger

	o.config = loopguard.DefaultConfig()
	if o.configPath != "" {
		cfg, err := loopguard.LoadConfig(o.configPath)
		if err != nil {
			return err
		}
		o.config = cfg
	}
	logger.WithFields(logrus.Fields{
		"tool_call_threshold": o.config.ToolCallThreshold,
		"content_threshold":   o.config.ContentThreshold,
		"window_max":          o.config.WindowMax,
		"reextract_delta":     o.config.ReextractDelta,
	}).Debug("config loaded")
	return nil
}
