package subtitle

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// Format is a subtitle text grammar.
type Format string

const (
	SRT Format = "srt"
	VTT Format = "vtt"
)

// sniffWindow is how much of the content DetectFormat inspects.
const sniffWindow = 100

const bom = "\ufeff"

var blankLine = regexp.MustCompile(`\n[ \t]*\n`)

// Result is a parse outcome with bookkeeping about dropped blocks.
type Result struct {
	Format  Format
	Cues    []Cue
	Dropped int
}

// Parse converts raw subtitle text into cues ordered by start time.
// hint is an optional filename or URL used to pick the grammar.
func Parse(content string, hint string) []Cue {
	return Decode(content, hint).Cues
}

// Decode is Parse with the detected format and the number of dropped blocks.
func Decode(content string, hint string) Result {
	content = normalize(content)
	format := DetectFormat(content, hint)

	var res Result
	switch format {
	case VTT:
		res = parseVtt(content)
	default:
		res = parseSrt(content)
	}
	res.Format = format
	sortCues(res.Cues)
	return res
}

// DetectFormat picks the grammar for content. A recognized hint extension is
// trusted; otherwise the first 100 characters are sniffed. The default is SRT.
func DetectFormat(content string, hint string) Format {
	if f, ok := formatFromHint(hint); ok {
		return f
	}

	head := strings.TrimPrefix(content, bom)
	if len(head) > sniffWindow {
		head = head[:sniffWindow]
	}

	switch {
	case strings.Contains(head, "WEBVTT"), vttSniff.MatchString(head):
		return VTT
	case srtSniff.MatchString(head):
		return SRT
	default:
		return SRT
	}
}

func formatFromHint(hint string) (Format, bool) {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return "", false
	}

	p := hint
	if u, err := url.Parse(hint); err == nil && u.Path != "" {
		p = u.Path
	} else if i := strings.IndexAny(hint, "?#"); i >= 0 {
		p = hint[:i]
	}

	switch strings.ToLower(path.Ext(p)) {
	case ".srt":
		return SRT, true
	case ".vtt", ".webvtt":
		return VTT, true
	default:
		return "", false
	}
}

// normalize strips a byte-order mark and converts line endings to \n.
func normalize(content string) string {
	content = strings.TrimPrefix(content, bom)
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}

// blocks splits normalized content on blank lines, dropping empty blocks.
func blocks(content string) [][]string {
	var out [][]string
	for _, raw := range blankLine.Split(content, -1) {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		lines := strings.Split(strings.Trim(raw, "\n"), "\n")
		for i, l := range lines {
			lines[i] = strings.TrimRight(l, " \t")
		}
		out = append(out, lines)
	}
	return out
}
