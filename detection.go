package loopguard

// DetectionKind identifies which detector reported a loop.
type DetectionKind string

const (
	// DetectionNone means no loop was detected.
	DetectionNone DetectionKind = ""

	// DetectionToolCall means the same tool call (name and canonical arguments, or name,
	// description and result in history mode) reached the tool call threshold.
	DetectionToolCall DetectionKind = "tool_call"

	// DetectionContent means the most recently completed sentence reached the content
	// threshold within the window.
	DetectionContent DetectionKind = "content"
)

// Detection describes the outcome of observing one event.
type Detection struct {
	// Detected reports whether a threshold was crossed by this event.
	Detected bool `yaml:"detected" json:"detected"`

	// Kind is the detector that reported. DetectionNone when Detected is false.
	Kind DetectionKind `yaml:"kind,omitempty" json:"kind,omitempty"`

	// ToolName is set for tool call detections.
	ToolName string `yaml:"tool_name,omitempty" json:"tool_name,omitempty"`

	// Sentence is the repeated sentence for content detections, trimmed.
	Sentence string `yaml:"sentence,omitempty" json:"sentence,omitempty"`

	// Count is the occurrence count that crossed the threshold.
	Count int `yaml:"count,omitempty" json:"count,omitempty"`
}

// TurnState is the lifecycle state of a conversation turn as seen by the host.
//
// Detectors do not infer turn boundaries. Hosts forward state changes and detectors
// reset when the turn becomes idle.
type TurnState string

const (
	// TurnIdle means no generation or tool is running. Detection state is reset on
	// entering it.
	TurnIdle TurnState = "idle"

	// TurnGenerating means the model is streaming a response.
	TurnGenerating TurnState = "generating"

	// TurnToolRunning means the host is executing tool calls between generations.
	TurnToolRunning TurnState = "tool_running"
)

// TurnObserver is implemented by components that react to turn lifecycle changes.
type TurnObserver interface {
	OnTurnState(state TurnState)
}
