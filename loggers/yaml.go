package loggers

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rickchristie/loopguard"
	"gopkg.in/yaml.v3"
)

// YAMLWriter writes every notification as a timestamped YAML block. Nothing is
// truncated; repeated sentences are logged in full.
type YAMLWriter struct {
	out io.Writer
	now func() time.Time
}

// NewYAMLWriter creates a YAMLWriter writing to w. A nil w writes to stdout.
func NewYAMLWriter(w io.Writer) *YAMLWriter {
	if w == nil {
		w = os.Stdout
	}
	return &YAMLWriter{out: w, now: time.Now}
}

func (y *YAMLWriter) header(name string) {
	fmt.Fprintf(y.out, "\n>>> [%s]: %s\n", name, y.now().Format("2006-01-02 15:04:05.000"))
}

func (y *YAMLWriter) write(v any) {
	data, err := yaml.Marshal(v)
	if err != nil {
		fmt.Fprintf(y.out, "(failed to marshal: %v)\n", err)
		return
	}
	fmt.Fprint(y.out, string(data))
}

// OnLoopDetected implements loopguard.LoopDetectedSubscriber.
func (y *YAMLWriter) OnLoopDetected(event *loopguard.LoopDetectedEvent) {
	y.header("LoopDetected")
	y.write(map[string]any{
		"source":    event.Source,
		"name":      event.Name,
		"turn_id":   event.TurnID,
		"detection": event.Detection,
	})
}

// OnReset implements loopguard.ResetSubscriber.
func (y *YAMLWriter) OnReset(event *loopguard.ResetEvent) {
	y.header("Reset")
	y.write(map[string]any{
		"source":           event.Source,
		"name":             event.Name,
		"previous_turn_id": event.PreviousTurnID,
		"turn_id":          event.TurnID,
	})
}

var (
	_ loopguard.LoopDetectedSubscriber = (*YAMLWriter)(nil)
	_ loopguard.ResetSubscriber        = (*YAMLWriter)(nil)
)
