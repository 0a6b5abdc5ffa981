package track

import (
	"fmt"
	"strings"

	"github.com/kinoplay/kinoplay/engine"
	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// Normalize converts the native track shape reported by an engine of the
// given kind into a Set. kind selects the expected shape; any other value
// yields an empty Set.
func Normalize(raw any, kind engine.Kind) Set {
	switch kind {
	case engine.Primary:
		switch v := raw.(type) {
		case PrimaryTracks:
			return Set{Audio: fromPrimary(v.Audio), Subtitles: fromPrimary(v.Text)}
		case *PrimaryTracks:
			if v != nil {
				return Normalize(*v, kind)
			}
		}
	case engine.Fallback:
		switch v := raw.(type) {
		case FallbackTracks:
			return Set{Audio: fromFallback(v.Audio), Subtitles: fromFallback(v.Text)}
		case *FallbackTracks:
			if v != nil {
				return Normalize(*v, kind)
			}
		}
	}

	return Set{Audio: []Track{}, Subtitles: []Track{}}
}

func placeholder(index int) string {
	return fmt.Sprintf("Track %d", index+1)
}

func fromPrimary(entries []PrimaryEntry) []Track {
	return lo.Map(entries, func(e PrimaryEntry, i int) Track {
		lang := strings.TrimSpace(e.Language.OrEmpty())
		name := strings.TrimSpace(e.Title.OrEmpty())
		if name == "" {
			name = lang
		}
		if name == "" {
			name = placeholder(i)
		}
		return Track{ID: i, Name: name, Language: lang}
	})
}

func fromFallback(entries []FallbackEntry) []Track {
	tracks := make([]Track, 0, len(entries))
	seen := make(map[int]bool, len(entries))

	for i, e := range entries {
		id := i
		if e.ID != nil {
			if v, err := cast.ToIntE(e.ID); err == nil {
				id = v
			}
		}
		if seen[id] {
			continue
		}
		seen[id] = true

		lang := strings.TrimSpace(cast.ToString(e.Language))
		name := strings.TrimSpace(cast.ToString(e.Name))
		if name == "" {
			name = lang
		}
		if name == "" {
			name = placeholder(i)
		}

		tracks = append(tracks, Track{ID: id, Name: name, Language: lang})
	}

	return tracks
}
