package repetition

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// Unserializable is the canonical form of any value that cannot be encoded as JSON.
const Unserializable = "<unserializable>"

// fieldSeparator joins identity fields before hashing. Canonical JSON never contains
// it unescaped.
const fieldSeparator = "\x1f"

// Key is the fingerprint of a tool call's identity fields.
type Key [sha256.Size]byte

// String returns the hex encoding of the key.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// Fingerprint hashes identity fields into a Key.
// Fields are joined with an ASCII unit separator, so ("ab", "c") and ("a", "bc")
// produce different keys.
func Fingerprint(fields ...string) Key {
	return sha256.Sum256([]byte(strings.Join(fields, fieldSeparator)))
}

// Canonical returns a deterministic JSON encoding of v.
//
// Maps are encoded with sorted keys at every depth, so two maps with the same content
// always canonicalize identically regardless of insertion order. json.RawMessage values
// are canonicalized with [CanonicalRaw].
//
// Canonical never panics and never fails: values that cannot be encoded (functions,
// channels, NaN, a MarshalJSON that errors or panics) become [Unserializable].
func Canonical(v any) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = Unserializable
		}
	}()

	if raw, ok := v.(json.RawMessage); ok {
		return CanonicalRaw(string(raw))
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return Unserializable
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// CanonicalRaw canonicalizes JSON text: object keys are sorted at every depth and
// insignificant whitespace is removed. Text that is not valid JSON is returned
// unchanged, which still gives it a stable identity.
func CanonicalRaw(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || !gjson.Valid(trimmed) {
		return raw
	}
	opts := *pretty.DefaultOptions
	opts.SortKeys = true
	return string(pretty.Ugly(pretty.PrettyOptions([]byte(trimmed), &opts)))
}

// CallFields returns the identity fields of a streamed tool call: its name and
// canonical arguments. Decoded args take precedence over raw; a call with neither
// is identified as having an empty argument object.
func CallFields(name string, args map[string]any, raw string) []string {
	switch {
	case args != nil:
		return []string{name, Canonical(args)}
	case strings.TrimSpace(raw) != "":
		return []string{name, CanonicalRaw(raw)}
	default:
		return []string{name, "{}"}
	}
}

// ResultFields returns the identity fields of a logged tool invocation: its name,
// description and canonical result.
func ResultFields(name, description string, result any) []string {
	return []string{name, description, Canonical(result)}
}
