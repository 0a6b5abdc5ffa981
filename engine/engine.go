// Package engine defines the contract shared by the playback engines.
//
// An Adapter only translates between this surface and its engine's native
// commands and events. Clamping, fallback decisions and track id resolution
// belong to the playback controller, which keeps both adapters swappable.
package engine

import (
	"context"
	"errors"
	"maps"

	"github.com/kinoplay/kinoplay/constant"
)

// ErrNotLoaded is returned by adapter commands issued before Load.
var ErrNotLoaded = errors.New("engine: nothing loaded")

// Kind selects one of the two engines.
type Kind int

const (
	// Primary is the hardware-accelerated engine.
	Primary Kind = iota
	// Fallback is the software-decoding engine.
	Fallback
)

func (k Kind) String() string {
	switch k {
	case Primary:
		return constant.EnginePrimary
	case Fallback:
		return constant.EngineFallback
	default:
		return "unknown"
	}
}

// Descriptor identifies a playable stream.
type Descriptor struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers,omitempty"`
	Title   string            `json:"title,omitempty"`
}

// Clone returns a copy that shares no maps with d.
func (d Descriptor) Clone() Descriptor {
	c := d
	if d.Headers != nil {
		c.Headers = maps.Clone(d.Headers)
	}
	return c
}

// LoadInfo is reported once the engine has opened the stream.
type LoadInfo struct {
	Duration float64
	Width    int
	Height   int
}

// Progress is a periodic position report.
type Progress struct {
	CurrentTime float64
	Duration    float64
}

// Listener receives an adapter's notifications in emission order.
//
// Errors and track lists are passed in the engine's native shape:
// OnError gets the raw payload, OnTracks a track.PrimaryTracks or
// track.FallbackTracks value.
type Listener interface {
	OnLoad(info LoadInfo)
	OnProgress(p Progress)
	OnEnd()
	OnError(raw any)
	OnTracks(raw any)
}

// Adapter is one playback engine.
//
// Commands are fire-and-forget: a nil error means the command was handed
// to the engine, not that it took effect.
type Adapter interface {
	Kind() Kind
	// Subscribe sets the listener. It must be called before Load.
	Subscribe(l Listener)
	// Load opens d and starts playback at start seconds.
	Load(ctx context.Context, d Descriptor, start float64) error
	Play() error
	Pause() error
	Seek(seconds float64) error
	SetAudioTrack(id int) error
	// SetSubtitleTrack selects a subtitle track; a negative id disables subtitles.
	SetSubtitleTrack(id int) error
	// Close stops the engine and the goroutines feeding its listener.
	Close() error
}

// Factory instantiates the adapter for kind.
type Factory func(kind Kind) (Adapter, error)
