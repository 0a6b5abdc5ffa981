package subtitle

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/kinoplay/kinoplay/util"
)

var (
	// timestampPattern accepts H:MM:SS,mmm and H:MM:SS.mmm; hours are optional for WebVTT.
	timestampPattern = regexp.MustCompile(`^(?:(?P<h>\d+):)?(?P<m>\d{2}):(?P<s>\d{2})[,.](?P<ms>\d{1,3})$`)

	srtTimingLine = regexp.MustCompile(`^\s*(\d+:\d{2}:\d{2}[,.]\d{1,3})\s*-->\s*(\d+:\d{2}:\d{2}[,.]\d{1,3})\s*$`)
	vttTimingLine = regexp.MustCompile(`^\s*((?:\d+:)?\d{2}:\d{2}\.\d{3})\s+-->\s+((?:\d+:)?\d{2}:\d{2}\.\d{3})(?:\s+.*)?$`)

	vttSniff = regexp.MustCompile(`\d{2}:\d{2}:\d{2}\.\d{3}\s*-->\s*\d{2}:\d{2}:\d{2}\.\d{3}`)
	srtSniff = regexp.MustCompile(`\d{1,2}:\d{2}:\d{2}[,.]\d{3}\s*-->\s*\d{1,2}:\d{2}:\d{2}[,.]\d{3}`)
)

// ParseTimestamp converts HH:MM:SS[,.]mmm into seconds.
// Malformed input yields 0.
func ParseTimestamp(value string) float64 {
	seconds, _ := parseTimestamp(value)
	return seconds
}

func parseTimestamp(value string) (float64, bool) {
	groups := util.ReGroups(timestampPattern, strings.TrimSpace(value))
	if len(groups) == 0 {
		return 0, false
	}

	var hours int
	if h := groups["h"]; h != "" {
		hours, _ = strconv.Atoi(h)
	}
	minutes, errM := strconv.Atoi(groups["m"])
	seconds, errS := strconv.Atoi(groups["s"])
	millis, errMS := strconv.Atoi(groups["ms"])
	if errM != nil || errS != nil || errMS != nil || minutes >= 60 || seconds >= 60 {
		return 0, false
	}

	return float64(hours*3600+minutes*60+seconds) + float64(millis)/1000, true
}

// timing extracts start and end from a cue timing line. ok is false when
// the line is not a timing line or either timestamp is malformed.
func timing(pattern *regexp.Regexp, line string) (start, end float64, ok bool) {
	m := pattern.FindStringSubmatch(line)
	if m == nil {
		return 0, 0, false
	}
	start, okStart := parseTimestamp(m[1])
	end, okEnd := parseTimestamp(m[2])
	if !okStart || !okEnd {
		return 0, 0, false
	}
	return start, end, true
}
