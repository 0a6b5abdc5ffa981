package subtitle

import "sort"

// Timeline is an immutable cue index for position lookups.
type Timeline struct {
	cues []Cue
	// maxEnd[i] is the largest End among cues[:i+1]; it bounds the backwards scan in At.
	maxEnd []float64
}

// NewTimeline copies and indexes cues. Input order does not matter.
func NewTimeline(cues []Cue) *Timeline {
	sorted := make([]Cue, len(cues))
	copy(sorted, cues)
	sortCues(sorted)

	maxEnd := make([]float64, len(sorted))
	for i, c := range sorted {
		maxEnd[i] = c.End
		if i > 0 && maxEnd[i-1] > c.End {
			maxEnd[i] = maxEnd[i-1]
		}
	}

	return &Timeline{cues: sorted, maxEnd: maxEnd}
}

// Len returns the number of indexed cues.
func (t *Timeline) Len() int {
	if t == nil {
		return 0
	}
	return len(t.cues)
}

// Cues returns the indexed cues in start order.
func (t *Timeline) Cues() []Cue {
	if t == nil {
		return nil
	}
	out := make([]Cue, len(t.cues))
	copy(out, t.cues)
	return out
}

// At returns every cue active at position, in start order.
// Cues may overlap, so more than one can be active.
func (t *Timeline) At(position float64) []Cue {
	if t.Len() == 0 {
		return nil
	}

	// first cue starting after position
	n := sort.Search(len(t.cues), func(i int) bool {
		return t.cues[i].Start > position
	})

	var active []Cue
	for i := n - 1; i >= 0 && t.maxEnd[i] > position; i-- {
		if t.cues[i].Contains(position) {
			active = append(active, t.cues[i])
		}
	}

	// restore start order
	for l, r := 0, len(active)-1; l < r; l, r = l+1, r-1 {
		active[l], active[r] = active[r], active[l]
	}
	return active
}
