package subtitle

import "strings"

// srtScanLines is how many leading lines of a block may hold the timing line.
const srtScanLines = 3

func parseSrt(content string) Result {
	res := Result{Cues: make([]Cue, 0)}

	for _, lines := range blocks(content) {
		if len(lines) < 2 {
			res.Dropped++
			continue
		}

		cue, ok := srtBlock(lines)
		if !ok {
			res.Dropped++
			continue
		}
		res.Cues = append(res.Cues, cue)
	}

	return res
}

// srtBlock finds the timing line among the first lines of a block
// (a numeric index line before it is skipped) and builds the cue.
func srtBlock(lines []string) (Cue, bool) {
	limit := min(srtScanLines, len(lines))
	for i := 0; i < limit; i++ {
		start, end, ok := timing(srtTimingLine, lines[i])
		if !ok {
			continue
		}
		return newCue(start, end, strings.Join(lines[i+1:], "\n"))
	}
	return Cue{}, false
}
