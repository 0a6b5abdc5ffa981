// Package codecerr decides whether an engine error means "this engine cannot
// decode the stream" (switch to the fallback engine) or is a fatal failure.
//
// Engine error payloads have no fixed shape, so every function here accepts
// any value and never fails.
package codecerr

import (
	"fmt"
	"regexp"
	"strings"
)

// Unknown is the normalized message of a payload that carries no text.
const Unknown = "unknown error"

// fallbackPatterns are matched against the lowercased message.
var fallbackPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)exceeds_capabilities`),
	regexp.MustCompile(`(?i)capabilit(?:y|ies)\s*exceeded`),
	regexp.MustCompile(`(?i)decoder\s*exception`),
	regexp.MustCompile(`(?i)codec.*error`),
	regexp.MustCompile(`(?i)unsupported.*codec`),
	regexp.MustCompile(`(?i)mediacodec.*exception`),
	regexp.MustCompile(`(?i)dolby.?vision`),
	regexp.MustCompile(`(?i)\bdv(?:he|h1)\b`),
	regexp.MustCompile(`(?i)hevc.*error`),
	regexp.MustCompile(`(?i)no suitable decoder`),
	regexp.MustCompile(`(?i)decoder.*init.*fail`),
	regexp.MustCompile(`(?i)format[._]no[._]decoder`),
	regexp.MustCompile(`(?i)decoding_failed`),
	regexp.MustCompile(`(?i)(?:exo)?playbackexception`),
}

// Report is a classified error payload.
type Report struct {
	Raw        any    `json:"-"`
	Normalized string `json:"message"`
	Fallback   bool   `json:"fallback"`
}

// Classify normalizes raw and evaluates the fallback verdict.
func Classify(raw any) Report {
	msg := Normalize(raw)
	return Report{
		Raw:        raw,
		Normalized: msg,
		Fallback:   matches(msg),
	}
}

// IsFallbackTrigger reports whether raw describes a codec or decoder failure
// that another engine may be able to handle.
func IsFallbackTrigger(raw any) bool {
	return matches(Normalize(raw))
}

func matches(msg string) bool {
	for _, p := range fallbackPatterns {
		if p.MatchString(msg) {
			return true
		}
	}
	return false
}

// Normalize extracts a lowercased message from raw. The first applicable
// rule wins:
//
//   - a string is used as is
//   - an error yields Error()
//   - a map with a string "error" field yields that field
//   - a map whose "error" is a map with a string "errorString" yields that
//   - a map with a string "message" field yields that field
//
// Anything else normalizes to Unknown.
func Normalize(raw any) string {
	msg, ok := extract(raw)
	if !ok || strings.TrimSpace(msg) == "" {
		return Unknown
	}
	return strings.ToLower(msg)
}

func extract(raw any) (msg string, ok bool) {
	defer func() {
		// a nil pointer behind an error interface panics in Error()
		if recover() != nil {
			msg, ok = "", false
		}
	}()

	switch v := raw.(type) {
	case nil:
		return "", false
	case string:
		return v, true
	case []byte:
		return string(v), true
	case error:
		return v.Error(), true
	case fmt.Stringer:
		return v.String(), true
	case map[string]string:
		if s, found := v["error"]; found {
			return s, true
		}
		s, found := v["message"]
		return s, found
	case map[string]any:
		return fromMap(v)
	default:
		return "", false
	}
}

func fromMap(m map[string]any) (string, bool) {
	switch e := m["error"].(type) {
	case string:
		return e, true
	case map[string]any:
		if s, ok := e["errorString"].(string); ok {
			return s, true
		}
	case map[string]string:
		if s, ok := e["errorString"]; ok {
			return s, true
		}
	}

	if s, ok := m["message"].(string); ok {
		return s, true
	}
	return "", false
}
