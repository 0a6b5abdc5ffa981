package track

import "github.com/samber/mo"

// PrimaryEntry is one track as the primary engine reports it. Titles and
// languages are optional; ids are implied by position.
type PrimaryEntry struct {
	Title    mo.Option[string]
	Language mo.Option[string]
}

// PrimaryTracks is the primary engine's native track shape.
type PrimaryTracks struct {
	Audio []PrimaryEntry
	Text  []PrimaryEntry
}

// FallbackEntry is one already-labeled track from the fallback engine.
// Field types vary with the transport: ids arrive as numbers or strings.
type FallbackEntry struct {
	ID       any
	Name     any
	Language any
}

// FallbackTracks is the fallback engine's native track shape.
type FallbackTracks struct {
	Audio []FallbackEntry
	Text  []FallbackEntry
}
