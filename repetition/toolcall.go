package repetition

// ToolCallDetector counts exact repeats of tool call identities.
//
// It is policy-free: Observe returns the new count and the caller compares it against
// its threshold. The same detector serves both deployment modes; only the identity
// fields differ ([CallFields] for streamed calls, [ResultFields] for logged ones).
//
// The counter map grows with the number of distinct identities seen since the last
// Reset. Hosts bound it by resetting once per turn.
type ToolCallDetector struct {
	counts map[Key]int
}

// NewToolCallDetector creates an empty ToolCallDetector.
func NewToolCallDetector() *ToolCallDetector {
	return &ToolCallDetector{counts: make(map[Key]int)}
}

// Observe records one occurrence of the identity made of fields and returns the
// number of times it has been seen since the last Reset.
func (d *ToolCallDetector) Observe(fields ...string) int {
	key := Fingerprint(fields...)
	d.counts[key]++
	return d.counts[key]
}

// ObserveCall records a streamed tool call identified by name and arguments.
func (d *ToolCallDetector) ObserveCall(name string, args map[string]any, raw string) int {
	return d.Observe(CallFields(name, args, raw)...)
}

// ObserveResult records a logged tool invocation identified by name, description
// and result.
func (d *ToolCallDetector) ObserveResult(name, description string, result any) int {
	return d.Observe(ResultFields(name, description, result)...)
}

// Count returns how many times the identity made of fields has been observed,
// without recording an occurrence.
func (d *ToolCallDetector) Count(fields ...string) int {
	return d.counts[Fingerprint(fields...)]
}

// Len returns the number of distinct identities observed since the last Reset.
func (d *ToolCallDetector) Len() int {
	return len(d.counts)
}

// Reset forgets all observed identities.
func (d *ToolCallDetector) Reset() {
	clear(d.counts)
}
