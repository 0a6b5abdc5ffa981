package vlc

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/kinoplay/kinoplay/engine"
	"github.com/kinoplay/kinoplay/track"
	"github.com/samber/lo"
	"github.com/spf13/cast"
)

const (
	// VLC needs a few seconds to bring its HTTP interface up.
	startupFailures = 10
	runningFailures = 3
	// polls reporting "stopped" before the stream opened
	startupStops = 5
)

// status is the subset of /requests/status.json the adapter reads.
type status struct {
	State    string  `json:"state"`
	Time     float64 `json:"time"`
	Length   float64 `json:"length"`
	Position float64 `json:"position"`

	Information struct {
		Category map[string]map[string]any `json:"category"`
	} `json:"information"`
}

type pollState struct {
	loaded   bool
	failures int
	stops    int
	tracks   string
}

// poll requests status.json on every tick and translates it into listener
// notifications. It returns when ctx is cancelled, the process exits or
// playback is over.
func (a *Adapter) poll(ctx context.Context, exited <-chan struct{}, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(a.opts.PollInterval)
	defer ticker.Stop()

	var st pollState
	for {
		select {
		case <-ctx.Done():
			return
		case <-exited:
			// --play-and-exit: leaving after the stream opened is the end of it
			if st.loaded {
				if ctx.Err() == nil {
					a.emit(func(l engine.Listener) { l.OnEnd() })
				}
				return
			}
			a.fail(ctx, "fallback engine exited unexpectedly")
			return
		case <-ticker.C:
			s, err := a.status(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				st.failures++
				limit := lo.Ternary(st.loaded, runningFailures, startupFailures)
				if st.failures >= limit {
					a.fail(ctx, fmt.Sprintf("fallback engine unreachable: %v", err))
					return
				}
				continue
			}
			st.failures = 0

			if !a.apply(&st, s) {
				return
			}
		}
	}
}

// apply emits the notifications s implies and reports whether polling
// should continue.
func (a *Adapter) apply(st *pollState, s status) bool {
	switch s.State {
	case "playing", "paused":
		if !st.loaded {
			if s.Length <= 0 {
				return true
			}
			st.loaded = true
			w, h := resolution(s)
			info := engine.LoadInfo{Duration: s.Length, Width: w, Height: h}
			a.emit(func(l engine.Listener) { l.OnLoad(info) })
		}

		tracks := labeledTracks(s)
		if sig := fmt.Sprint(tracks); sig != st.tracks {
			st.tracks = sig
			a.emit(func(l engine.Listener) { l.OnTracks(tracks) })
		}

		// time is whole seconds; position is the finer fraction of length
		pos := s.Time
		if s.Length > 0 && s.Position > 0 {
			pos = s.Position * s.Length
		}
		p := engine.Progress{CurrentTime: pos, Duration: s.Length}
		a.emit(func(l engine.Listener) { l.OnProgress(p) })
		return true

	case "stopped":
		if st.loaded {
			a.emit(func(l engine.Listener) { l.OnEnd() })
			return false
		}
		st.stops++
		if st.stops >= startupStops {
			a.emit(func(l engine.Listener) {
				l.OnError(map[string]any{"message": "fallback engine could not open the stream"})
			})
			return false
		}
		return true

	default:
		return true
	}
}

func (a *Adapter) status(ctx context.Context) (status, error) {
	a.mu.Lock()
	base := a.base
	a.mu.Unlock()

	resp, err := a.get(ctx, base+"/requests/status.json")
	if err != nil {
		return status{}, err
	}
	defer resp.Body.Close()

	var s status
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return status{}, fmt.Errorf("decode status: %w", err)
	}
	return s, nil
}

// fail reports a raw error unless the adapter is shutting down.
func (a *Adapter) fail(ctx context.Context, msg string) {
	if ctx.Err() != nil {
		return
	}
	a.logger.Warn(msg)
	a.emit(func(l engine.Listener) { l.OnError(map[string]any{"message": msg}) })
}

func (a *Adapter) emit(fn func(engine.Listener)) {
	a.mu.Lock()
	l := a.listener
	a.mu.Unlock()

	if l != nil {
		fn(l)
	}
}

// streams returns the "Stream N" categories ordered by N.
func streams(s status) []string {
	names := lo.Filter(lo.Keys(s.Information.Category), func(k string, _ int) bool {
		return strings.HasPrefix(k, "Stream ")
	})
	slices.SortFunc(names, func(a, b string) int {
		return streamID(a) - streamID(b)
	})
	return names
}

func streamID(name string) int {
	return cast.ToInt(strings.TrimPrefix(name, "Stream "))
}

// labeledTracks converts the stream categories into the fallback track shape.
// The elementary stream id in the category name is the id VLC's
// audio_track and subtitle_track commands expect.
func labeledTracks(s status) track.FallbackTracks {
	tracks := track.FallbackTracks{Audio: []track.FallbackEntry{}, Text: []track.FallbackEntry{}}

	for _, name := range streams(s) {
		info := s.Information.Category[name]

		lang := cast.ToString(info["Language"])
		label := cast.ToString(info["Description"])
		if label == "" {
			label = lang
		}

		entry := track.FallbackEntry{
			ID:       strings.TrimPrefix(name, "Stream "),
			Name:     label,
			Language: lang,
		}

		switch info["Type"] {
		case "Audio":
			tracks.Audio = append(tracks.Audio, entry)
		case "Subtitle":
			tracks.Text = append(tracks.Text, entry)
		}
	}

	return tracks
}

// resolution reads the first video stream's dimensions.
func resolution(s status) (width, height int) {
	for _, name := range streams(s) {
		info := s.Information.Category[name]
		if info["Type"] != "Video" {
			continue
		}
		for _, k := range []string{"Video_resolution", "Display_resolution"} {
			if v, ok := info[k].(string); ok {
				if _, err := fmt.Sscanf(v, "%dx%d", &width, &height); err == nil {
					return width, height
				}
			}
		}
	}
	return 0, 0
}
