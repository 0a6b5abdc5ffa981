// Package subtitle parses SRT and WebVTT subtitle text into ordered cue lists.
//
// Parsing never fails: malformed blocks and unparsable timestamps are dropped
// per cue, and empty or garbage input yields an empty list.
package subtitle

import (
	"fmt"
	"regexp"
	"sort"
)

// Cue is one timed subtitle entry. Start < End always holds for parsed cues.
type Cue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	// Text is the display text with markup tags removed.
	Text string `json:"text"`
	// RawText keeps the original markup for styled rendering.
	RawText string `json:"rawText"`
}

func (c Cue) String() string {
	return fmt.Sprintf("%.3f --> %.3f %q", c.Start, c.End, c.Text)
}

// Contains reports whether t falls inside [Start, End).
func (c Cue) Contains(t float64) bool {
	return t >= c.Start && t < c.End
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string {
	return tagPattern.ReplaceAllString(s, "")
}

// newCue builds a cue from parsed bounds and raw text lines.
// The second result is false when the cue violates start < end.
func newCue(start, end float64, raw string) (Cue, bool) {
	if start >= end {
		return Cue{}, false
	}
	return Cue{
		Start:   start,
		End:     end,
		Text:    stripTags(raw),
		RawText: raw,
	}, true
}

// sortCues orders cues by start time, keeping source order on ties.
func sortCues(cues []Cue) {
	sort.SliceStable(cues, func(i, j int) bool {
		return cues[i].Start < cues[j].Start
	})
}
