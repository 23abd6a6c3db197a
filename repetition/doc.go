// Package repetition implements the repetition detectors and the engine that drives them.
//
// # Overview
//
// Agents streaming text and tool calls can get stuck: calling the same tool with the
// same arguments, or writing the same sentence over and over. This package detects
// both with exact, normalized-string equality.
//
//   - [ToolCallDetector] counts identical tool calls. Identity is a SHA-256 fingerprint
//     of the tool name and its canonical arguments (see [Canonical]), so argument key
//     order does not matter.
//   - [ContentDetector] keeps a bounded window of streamed text and counts how often
//     the most recently completed sentence occurs in it.
//   - [Engine] routes loopguard.GenerationEvent values to the right detector and
//     applies the thresholds from loopguard.Config.
//
// # Quick Start
//
//	engine := repetition.New(loopguard.DefaultConfig())
//
//	engine.Update(loopguard.ContentDelta{Text: "Let me check."})       // false
//	engine.Update(loopguard.ToolCallRequest{Name: "search", Args: a})  // false
//	// ... the 5th identical search call:
//	engine.Update(loopguard.ToolCallRequest{Name: "search", Args: a})  // true
//
// # Thresholds
//
// With the defaults, the 5th identical tool call and the 10th occurrence of the same
// sentence report a loop. A content fragment only triggers analysis when it contains
// terminal punctuation, and at least two sentences must exist in the window.
//
// # History Mode
//
// The same [ToolCallDetector] backs history.Watcher, which identifies logged calls by
// name, description and result ([ResultFields]) instead of by arguments.
//
// # Resource Use
//
// Everything is in-memory computation with no goroutines and no I/O. The content
// window and sentence cache are bounded by WindowMax. The tool call map grows with the
// number of distinct calls per turn; call Reset when a turn ends.
package repetition
