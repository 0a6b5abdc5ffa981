package subtitle

import "strings"

func parseVtt(content string) Result {
	res := Result{Cues: make([]Cue, 0)}

	body := content
	if i := headerEnd(content); i >= 0 {
		body = content[i:]
	}

	for _, lines := range blocks(body) {
		start, end, ok := timing(vttTimingLine, lines[0])
		if !ok {
			res.Dropped++
			continue
		}

		cue, ok := newCue(start, end, strings.Join(lines[1:], "\n"))
		if !ok {
			res.Dropped++
			continue
		}
		res.Cues = append(res.Cues, cue)
	}

	return res
}

// headerEnd returns the offset just past the WEBVTT marker line, or -1 when
// no marker precedes the first cue timing line.
func headerEnd(content string) int {
	offset := 0
	for _, line := range strings.SplitAfter(content, "\n") {
		offset += len(line)
		switch {
		case strings.HasPrefix(strings.TrimSpace(line), "WEBVTT"):
			return offset
		case vttTimingLine.MatchString(strings.TrimRight(line, "\n")):
			return -1
		}
	}
	return -1
}
