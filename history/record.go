package history

import (
	"fmt"
	"time"
)

// Record is the last known playback position of one stream.
type Record struct {
	Key      string  `json:"key"`
	Title    string  `json:"title,omitempty"`
	URL      string  `json:"url,omitempty"`
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
	// Engine is the engine that was playing when the record was saved.
	Engine           string    `json:"engine"`
	AudioLanguage    string    `json:"audio_language,omitempty"`
	SubtitleLanguage string    `json:"subtitle_language,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Progress returns the watched fraction in percent, or 0 when the duration is unknown.
func (r *Record) Progress() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return r.Position / r.Duration * 100
}

// Finished reports whether the position is within margin seconds of the end.
func (r *Record) Finished(margin float64) bool {
	return r.Duration > 0 && r.Position >= r.Duration-margin
}

func (r *Record) String() string {
	name := r.Title
	if name == "" {
		name = r.Key
	}
	return fmt.Sprintf("%s : %s / %s (%s)", name, clock(r.Position), clock(r.Duration), r.Engine)
}

// clock formats seconds as H:MM:SS.
func clock(seconds float64) string {
	s := int(seconds)
	return fmt.Sprintf("%d:%02d:%02d", s/3600, s/60%60, s%60)
}
