package playback

import (
	"github.com/kinoplay/kinoplay/engine"
	"github.com/kinoplay/kinoplay/track"
)

// LoadEvent is delivered once the active engine has opened the stream.
type LoadEvent struct {
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
}

// ProgressEvent is a trusted position report.
type ProgressEvent struct {
	CurrentTime float64 `json:"currentTime"`
	Duration    float64 `json:"duration"`
}

// ErrorEvent carries the normalized message of a fatal error.
type ErrorEvent struct {
	Message string `json:"message"`
}

// TracksEvent lists the active engine's tracks.
type TracksEvent struct {
	AudioTracks    []track.Track `json:"audioTracks"`
	SubtitleTracks []track.Track `json:"subtitleTracks"`
}

// EngineEvent names the engine that became active.
type EngineEvent struct {
	Engine string `json:"engine"`
}

// Listener receives the controller's notifications, in order, outside of
// the controller's lock. Callbacks may call back into the controller,
// except for Close.
type Listener interface {
	OnLoad(LoadEvent)
	OnProgress(ProgressEvent)
	OnEnd()
	OnError(ErrorEvent)
	OnTracksChanged(TracksEvent)
	OnEngineChanged(engine.Kind)
}

// ListenerFuncs adapts optional functions to a Listener.
type ListenerFuncs struct {
	Load          func(LoadEvent)
	Progress      func(ProgressEvent)
	End           func()
	Error         func(ErrorEvent)
	TracksChanged func(TracksEvent)
	EngineChanged func(engine.Kind)
}

func (f ListenerFuncs) OnLoad(e LoadEvent) {
	if f.Load != nil {
		f.Load(e)
	}
}

func (f ListenerFuncs) OnProgress(e ProgressEvent) {
	if f.Progress != nil {
		f.Progress(e)
	}
}

func (f ListenerFuncs) OnEnd() {
	if f.End != nil {
		f.End()
	}
}

func (f ListenerFuncs) OnError(e ErrorEvent) {
	if f.Error != nil {
		f.Error(e)
	}
}

func (f ListenerFuncs) OnTracksChanged(e TracksEvent) {
	if f.TracksChanged != nil {
		f.TracksChanged(e)
	}
}

func (f ListenerFuncs) OnEngineChanged(k engine.Kind) {
	if f.EngineChanged != nil {
		f.EngineChanged(k)
	}
}
