package loopguard

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// Default thresholds and window sizes. See [DefaultConfig].
const (
	DefaultToolCallThreshold = 5
	DefaultContentThreshold  = 10
	DefaultWindowMax         = 1000
	DefaultReextractDelta    = 100
)

// Config holds the thresholds used by the repetition detectors.
//
// # Fields
//
//   - ToolCallThreshold: identical tool calls (same name and arguments) needed to report
//     a loop. The N-th identical call is the one that reports.
//   - ContentThreshold: occurrences of the most recently completed sentence within the
//     window needed to report a loop.
//   - WindowMax: characters of trailing streamed text kept for sentence analysis.
//   - ReextractDelta: characters the window must grow by before the sentence cache is
//     rebuilt from scratch. 0 rebuilds on every analysis.
//
// Zero values are not meaningful; start from [DefaultConfig] and override.
type Config struct {
	ToolCallThreshold int `yaml:"tool_call_threshold" json:"tool_call_threshold"`
	ContentThreshold  int `yaml:"content_threshold" json:"content_threshold"`
	WindowMax         int `yaml:"window_max" json:"window_max"`
	ReextractDelta    int `yaml:"reextract_delta" json:"reextract_delta"`
}

// DefaultConfig returns the default detection thresholds:
//   - 5 identical tool calls
//   - 10 repeats of the same sentence
//   - 1000 character window
//   - full sentence re-extraction after 100 characters of growth
//
// Override individual fields as needed:
//
//	cfg := loopguard.DefaultConfig()
//	cfg.ToolCallThreshold = 3
//	engine := repetition.New(cfg)
func DefaultConfig() Config {
	return Config{
		ToolCallThreshold: DefaultToolCallThreshold,
		ContentThreshold:  DefaultContentThreshold,
		WindowMax:         DefaultWindowMax,
		ReextractDelta:    DefaultReextractDelta,
	}
}

// WithDefaults returns a copy of c where every out-of-range field is replaced by its
// default. Constructors call this so that building a detector never fails.
func (c Config) WithDefaults() Config {
	if c.ToolCallThreshold < 1 {
		c.ToolCallThreshold = DefaultToolCallThreshold
	}
	if c.ContentThreshold < 1 {
		c.ContentThreshold = DefaultContentThreshold
	}
	if c.WindowMax < 1 {
		c.WindowMax = DefaultWindowMax
	}
	if c.ReextractDelta < 0 {
		c.ReextractDelta = DefaultReextractDelta
	}
	return c
}

// configSchema constrains Config as loaded from files.
var configSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"tool_call_threshold": map[string]any{"type": "integer", "minimum": 1},
		"content_threshold":   map[string]any{"type": "integer", "minimum": 1},
		"window_max":          map[string]any{"type": "integer", "minimum": 1},
		"reextract_delta":     map[string]any{"type": "integer", "minimum": 0},
	},
	"required": []string{
		"tool_call_threshold",
		"content_threshold",
		"window_max",
		"reextract_delta",
	},
	"additionalProperties": false,
}

var compiledConfigSchema = mustCompileSchema(configSchema)

// ConfigError wraps a schema validation failure of a Config.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid loopguard config: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Validate checks c against the config schema.
// Returns a *ConfigError describing the first violations, or nil.
func (c Config) Validate() error {
	data, err := json.Marshal(c)
	if err != nil {
		return &ConfigError{Err: err}
	}
	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(string(data)))
	if err != nil {
		return &ConfigError{Err: err}
	}
	if err := compiledConfigSchema.Validate(inst); err != nil {
		return &ConfigError{Err: err}
	}
	return nil
}

// ParseConfig decodes YAML into a Config. Fields missing from data keep their defaults;
// unknown fields are rejected. The result is validated before it is returned.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return ParseConfig(data)
}

func mustCompileSchema(raw map[string]any) *jsonschema.Schema {
	schemaJSON, err := json.Marshal(raw)
	if err != nil {
		panic(fmt.Errorf("failed to marshal schema: %w", err))
	}
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(schemaJSON)))
	if err != nil {
		panic(fmt.Errorf("failed to parse schema: %w", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("config.json", doc); err != nil {
		panic(fmt.Errorf("failed to add schema resource: %w", err))
	}
	compiled, err := c.Compile("config.json")
	if err != nil {
		panic(fmt.Errorf("failed to compile schema: %w", err))
	}
	return compiled
}
