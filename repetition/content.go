package repetition

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rickchristie/loopguard"
)

// sentencePattern matches one sentence: a run of non-terminal characters followed by
// exactly one terminal character.
var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]`)

const terminals = ".!?"

// ExtractSentences splits text into sentences. Each sentence keeps its terminal
// punctuation and surrounding whitespace. Text after the last terminal is an
// incomplete sentence and is not returned, and runs of terminals only contribute their
// first character to the preceding sentence.
func ExtractSentences(text string) []string {
	return sentencePattern.FindAllString(text, -1)
}

// sentenceCache is a derived view of the content buffer.
//
// Invariant: while valid, sentences equals ExtractSentences(buffer[:end]) and the
// buffer has only grown by appending since the view was built. Everything after end
// contains no complete sentence as of the last build, so extracting from end onward
// and appending to sentences reproduces a full extraction exactly.
type sentenceCache struct {
	valid     bool
	version   uint64
	sentences []string

	// end is the byte offset just past the last cached sentence.
	end int

	// basisLen is the buffer length, in characters, at the last full extraction.
	basisLen int
}

// ContentDetector detects a sentence repeated verbatim within a bounded window of
// streamed text.
//
// # Window
//
// The detector keeps the trailing WindowMax characters (runes) of everything observed
// since the last Reset. When an append overflows the window, the oldest characters are
// dropped so that exactly WindowMax remain, and the sentence cache is invalidated.
//
// # Sentence Cache
//
// Splitting the whole window into sentences on every fragment is wasteful, so the
// split is cached. The cache is rebuilt from scratch when it is invalid or empty, or
// when the window has grown by at least ReextractDelta characters since the last
// rebuild. In between, only the text after the last cached sentence is scanned. Either
// way the sentence list is identical to [ExtractSentences] on the current window; the
// cache only changes how much work is done.
//
// # Known Limitation
//
// A sentence whose length approaches WindowMax can be partially evicted before it
// repeats enough times. Such repetitions go undetected; the detector reports false.
//
// ContentDetector is not safe for concurrent use.
type ContentDetector struct {
	threshold      int
	windowMax      int
	reextractDelta int

	buffer string
	runes  int
	cache  sentenceCache
}

// NewContentDetector creates a ContentDetector using the content threshold, window size
// and re-extraction delta of cfg. Out-of-range fields fall back to defaults.
func NewContentDetector(cfg loopguard.Config) *ContentDetector {
	cfg = cfg.WithDefaults()
	return &ContentDetector{
		threshold:      cfg.ContentThreshold,
		windowMax:      cfg.WindowMax,
		reextractDelta: cfg.ReextractDelta,
	}
}

// Observe appends fragment to the window and reports whether the most recently
// completed sentence now occurs at least ContentThreshold times.
//
// A fragment without terminal punctuation never reports: no sentence was completed
// by it, so there is nothing new to compare.
func (d *ContentDetector) Observe(fragment string) bool {
	detected, _, _ := d.observe(fragment)
	return detected
}

// observe is Observe returning the compared sentence and its count as well.
func (d *ContentDetector) observe(fragment string) (bool, string, int) {
	d.append(fragment)

	if !strings.ContainsAny(fragment, terminals) {
		return false, "", 0
	}

	sentences := d.sentences()
	if len(sentences) < 2 {
		return false, "", 0
	}

	last := strings.TrimSpace(sentences[len(sentences)-1])
	if last == "" {
		return false, "", 0
	}

	count := 0
	for _, s := range sentences {
		if strings.TrimSpace(s) != last {
			continue
		}
		count++
		if count >= d.threshold {
			return true, last, count
		}
	}
	return false, last, count
}

// append adds fragment to the window, truncating from the front on overflow.
func (d *ContentDetector) append(fragment string) {
	if fragment == "" {
		return
	}
	d.buffer += fragment
	d.runes += utf8.RuneCountInString(fragment)

	if d.runes <= d.windowMax {
		return
	}
	drop := d.runes - d.windowMax
	d.buffer = strings.Clone(d.buffer[byteOffset(d.buffer, drop):])
	d.runes = d.windowMax
	d.invalidate()
}

// sentences returns the sentence list of the current window.
func (d *ContentDetector) sentences() []string {
	if !d.cache.valid ||
		len(d.cache.sentences) == 0 ||
		d.runes-d.cache.basisLen >= d.reextractDelta {
		d.rebuild()
		return d.cache.sentences
	}

	tail := ExtractSentences(d.buffer[d.cache.end:])
	if len(tail) == 0 {
		return d.cache.sentences
	}
	out := make([]string, 0, len(d.cache.sentences)+len(tail))
	out = append(out, d.cache.sentences...)
	return append(out, tail...)
}

// rebuild extracts all sentences from the window and stores them in the cache.
func (d *ContentDetector) rebuild() {
	locs := sentencePattern.FindAllStringIndex(d.buffer, -1)
	sentences := make([]string, len(locs))
	end := 0
	for i, loc := range locs {
		sentences[i] = d.buffer[loc[0]:loc[1]]
		end = loc[1]
	}
	d.cache = sentenceCache{
		valid:     true,
		version:   d.cache.version + 1,
		sentences: sentences,
		end:       end,
		basisLen:  d.runes,
	}
}

// invalidate clears the cache and its growth tracker.
func (d *ContentDetector) invalidate() {
	d.cache = sentenceCache{version: d.cache.version + 1}
}

// Reset empties the window and the cache.
func (d *ContentDetector) Reset() {
	d.buffer = ""
	d.runes = 0
	d.invalidate()
}

// Buffer returns the current window.
func (d *ContentDetector) Buffer() string {
	return d.buffer
}

// Len returns the window length in characters.
func (d *ContentDetector) Len() int {
	return d.runes
}

// Sentences returns the sentence list of the current window, as used for comparison.
// It may rebuild the cache but never changes the detection outcome of later calls.
func (d *ContentDetector) Sentences() []string {
	return append([]string(nil), d.sentences()...)
}

// CacheVersion returns a counter incremented on every cache invalidation and every
// full rebuild. Tests use it to observe when a rebuild happened.
func (d *ContentDetector) CacheVersion() uint64 {
	return d.cache.version
}

// byteOffset returns the byte index of the n-th rune of s (0-indexed).
func byteOffset(s string, n int) int {
	i := 0
	for offset := range s {
		if i == n {
			return offset
		}
		i++
	}
	return len(s)
}
