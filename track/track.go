// Package track normalizes the engines' native track lists into one shape
// and maps a selection from one engine's list onto another's.
package track

import "fmt"

// Kind separates the audio and subtitle id spaces.
type Kind int

const (
	Audio Kind = iota
	Subtitle
)

func (k Kind) String() string {
	if k == Subtitle {
		return "subtitle"
	}
	return "audio"
}

// Track is a selectable audio or subtitle stream. ID is only meaningful
// to the engine instance that reported it.
type Track struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language,omitempty"`
}

func (t Track) String() string {
	if t.Language == "" || t.Language == t.Name {
		return t.Name
	}
	return fmt.Sprintf("%s (%s)", t.Name, t.Language)
}

// Set holds both track lists of one engine instance, in source order.
type Set struct {
	Audio     []Track `json:"audioTracks"`
	Subtitles []Track `json:"subtitleTracks"`
}

// Of returns the list for kind.
func (s Set) Of(kind Kind) []Track {
	if kind == Subtitle {
		return s.Subtitles
	}
	return s.Audio
}

// Lookup finds the track with id in the list for kind.
func (s Set) Lookup(kind Kind, id int) (Track, bool) {
	for _, t := range s.Of(kind) {
		if t.ID == id {
			return t, true
		}
	}
	return Track{}, false
}

// Empty reports whether neither list has tracks.
func (s Set) Empty() bool {
	return len(s.Audio) == 0 && len(s.Subtitles) == 0
}
