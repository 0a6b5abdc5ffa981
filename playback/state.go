package playback

import (
	"github.com/kinoplay/kinoplay/engine"
	"github.com/samber/mo"
)

// Phase is the controller's state machine position.
type Phase int

const (
	// Idle is the phase before Open.
	Idle Phase = iota
	Loading
	Ready
	Seeking
	Switching
	Ended
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Seeking:
		return "seeking"
	case Switching:
		return "switching"
	case Ended:
		return "ended"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// playing reports whether transport commands make sense in p.
func (p Phase) playing() bool {
	return p == Ready || p == Seeking
}

// State is a snapshot of the playback session.
type State struct {
	Position float64
	Duration float64
	Paused   bool
	Engine   engine.Kind
	// AudioTrack and SubtitleTrack hold ids valid for the active engine.
	AudioTrack    mo.Option[int]
	SubtitleTrack mo.Option[int]
	Phase         Phase
}
