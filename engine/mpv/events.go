package mpv

import (
	"slices"
	"strings"

	"github.com/kinoplay/kinoplay/engine"
	"github.com/kinoplay/kinoplay/track"
	"github.com/samber/mo"
	"github.com/spf13/cast"
)

// playbackState is the event loop's view of the loaded file.
type playbackState struct {
	fileLoaded    bool
	loaded        bool
	decoderFailed bool
	duration      float64
	width         int
	height        int
}

// loop translates mpv events into listener notifications until conn closes.
func (a *Adapter) loop(conn Conn, done chan struct{}) {
	defer close(done)

	var st playbackState
	for ev := range conn.Events() {
		a.handle(&st, ev)
	}

	a.mu.Lock()
	closed := a.closed
	a.mu.Unlock()

	if !closed {
		a.logger.Warn("mpv connection lost")
		a.emit(func(l engine.Listener) {
			l.OnError(map[string]any{"message": "primary engine exited unexpectedly"})
		})
	}
}

func (a *Adapter) handle(st *playbackState, ev Event) {
	switch ev.Name() {
	case "property-change":
		name, _ := ev["name"].(string)
		a.property(st, name, ev["data"])

	case "file-loaded":
		st.fileLoaded = true

	case "playback-restart":
		// the first restart after file-loaded means the stream is decoding;
		// later ones follow seeks
		if st.fileLoaded && !st.loaded {
			st.loaded = true
			info := engine.LoadInfo{Duration: st.duration, Width: st.width, Height: st.height}
			a.emit(func(l engine.Listener) { l.OnLoad(info) })
		}

	case "end-file":
		switch reason, _ := ev["reason"].(string); reason {
		case "eof":
			a.emit(func(l engine.Listener) { l.OnEnd() })
		case "error":
			msg, _ := ev["file_error"].(string)
			if msg == "" {
				msg = "unknown error"
			}
			msg = fileError(msg)
			a.emit(func(l engine.Listener) { l.OnError(map[string]any{"error": msg}) })
		default:
			a.logger.Debugf("end-file: %s", reason)
		}

	case "log-message":
		if st.decoderFailed {
			return
		}
		prefix, _ := ev["prefix"].(string)
		level, _ := ev["level"].(string)
		text, _ := ev["text"].(string)
		msg, ok := decoderFailure(prefix, level, text)
		if !ok {
			return
		}
		st.decoderFailed = true
		a.emit(func(l engine.Listener) { l.OnError(map[string]any{"error": msg}) })
	}
}

// decoderPrefixes are the mpv log modules that report decoder setup and
// decoding failures.
var decoderPrefixes = []string{"vd", "ad", "ffmpeg", "ffmpeg/video", "ffmpeg/audio", "lavc"}

// decoderFailure translates an mpv error log line into the canonical
// decoder error payload. Other log lines are not errors of the stream.
func decoderFailure(prefix, level, text string) (string, bool) {
	if level != "error" && level != "fatal" {
		return "", false
	}
	if !slices.Contains(decoderPrefixes, strings.ToLower(prefix)) {
		return "", false
	}

	text = strings.TrimSpace(text)
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "failed to initialize a decoder"),
		strings.Contains(lower, "could not open codec"),
		strings.Contains(lower, "could not open decoder"):
		return "decoder initialization failed: " + text, true
	case strings.Contains(lower, "no decoder"),
		strings.Contains(lower, "codec not supported"),
		strings.Contains(lower, "unsupported codec"):
		return "format.no_decoder: " + text, true
	case strings.Contains(lower, "error while decoding"),
		strings.Contains(lower, "decoding error"),
		strings.Contains(lower, "invalid data found when processing input"):
		return "decoding_failed: " + text, true
	default:
		return "", false
	}
}

// fileError maps end-file errors that mean nothing could be decoded to the
// canonical decoder payload and passes the rest through.
func fileError(msg string) string {
	if strings.EqualFold(strings.TrimSpace(msg), "no audio or video data played") {
		return "decoding_failed: " + msg
	}
	return msg
}

func (a *Adapter) property(st *playbackState, name string, data any) {
	switch name {
	case "duration":
		st.duration = cast.ToFloat64(data)
	case "width":
		st.width = cast.ToInt(data)
	case "height":
		st.height = cast.ToInt(data)
	case "time-pos":
		pos, ok := data.(float64)
		if !ok || !st.loaded {
			return
		}
		p := engine.Progress{CurrentTime: pos, Duration: st.duration}
		a.emit(func(l engine.Listener) { l.OnProgress(p) })
	case "track-list":
		entries, ok := data.([]any)
		if !ok {
			return
		}
		tracks, audioIDs, subIDs := splitTrackList(entries)

		a.mu.Lock()
		a.audioIDs, a.subIDs = audioIDs, subIDs
		a.mu.Unlock()

		a.emit(func(l engine.Listener) { l.OnTracks(tracks) })
	}
}

// splitTrackList separates mpv's track-list into audio and subtitle lists
// and records each entry's mpv id by position.
func splitTrackList(entries []any) (tracks track.PrimaryTracks, audioIDs, subIDs []int) {
	tracks = track.PrimaryTracks{Audio: []track.PrimaryEntry{}, Text: []track.PrimaryEntry{}}
	audioIDs, subIDs = []int{}, []int{}

	for _, raw := range entries {
		m, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		id, err := cast.ToIntE(m["id"])
		if err != nil {
			continue
		}

		entry := track.PrimaryEntry{
			Title:    optional(m["title"]),
			Language: optional(m["lang"]),
		}

		switch m["type"] {
		case "audio":
			tracks.Audio = append(tracks.Audio, entry)
			audioIDs = append(audioIDs, id)
		case "sub":
			tracks.Text = append(tracks.Text, entry)
			subIDs = append(subIDs, id)
		}
	}

	return tracks, audioIDs, subIDs
}

func optional(v any) mo.Option[string] {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return mo.None[string]()
	}
	return mo.Some(s)
}

func (a *Adapter) emit(fn func(engine.Listener)) {
	a.mu.Lock()
	l := a.listener
	a.mu.Unlock()

	if l != nil {
		fn(l)
	}
}
