package mpv

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kinoplay/kinoplay/codecerr"
	"github.com/kinoplay/kinoplay/engine"
	"github.com/kinoplay/kinoplay/engine/process"
	"github.com/kinoplay/kinoplay/track"
	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"
)

type fakeConn struct {
	mu        sync.Mutex
	sent      [][]any
	events    chan Event
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{events: make(chan Event, 16)}
}

func (f *fakeConn) Send(command ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, command)
	return nil
}

func (f *fakeConn) Events() <-chan Event { return f.events }

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.events) })
	return nil
}

func (f *fakeConn) last() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

func (f *fakeConn) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

type recorder struct {
	notes chan any
}

type endNote struct{}

type errorNote struct{ raw any }

func newRecorder() *recorder { return &recorder{notes: make(chan any, 16)} }

func (r *recorder) OnLoad(info engine.LoadInfo) { r.notes <- info }
func (r *recorder) OnProgress(p engine.Progress) { r.notes <- p }
func (r *recorder) OnEnd() { r.notes <- endNote{} }
func (r *recorder) OnError(raw any) { r.notes <- errorNote{raw} }
func (r *recorder) OnTracks(raw any) { r.notes <- raw }

func (r *recorder) next() any {
	select {
	case n := <-r.notes:
		return n
	case <-time.After(2 * time.Second):
		return nil
	}
}

func newTestAdapter(conn Conn, args *[]string) *Adapter {
	a := New(Options{SocketDir: os.TempDir()})
	a.connect = func(_ context.Context, got []string, _ string) (Conn, *process.Process, error) {
		if args != nil {
			*args = got
		}
		return conn, nil, nil
	}
	return a
}

var trackList = []any{
	map[string]any{"id": float64(1), "type": "video"},
	map[string]any{"id": float64(1), "type": "audio", "lang": "jpn"},
	map[string]any{"id": float64(2), "type": "audio", "title": "Commentary", "lang": "eng"},
	map[string]any{"id": float64(1), "type": "sub", "title": "Full", "lang": "eng"},
	map[string]any{"id": float64(2), "type": "sub", "title": ""},
}

func TestAdapter(t *testing.T) {
	defer goleak.VerifyNone(t)

	Convey("Given a loaded adapter", t, func() {
		conn := newFakeConn()
		rec := newRecorder()
		var args []string

		a := newTestAdapter(conn, &args)
		a.Subscribe(rec)
		So(a.Kind(), ShouldEqual, engine.Primary)

		err := a.Load(context.Background(), engine.Descriptor{URL: "https://cdn.example/v.mkv", Title: "Ep 1"}, 42.5)
		So(err, ShouldBeNil)
		Reset(func() { _ = a.Close() })

		Convey("The command line carries hwdec, start and target last", func() {
			So(args, ShouldContain, "--hwdec=auto-safe")
			So(args, ShouldContain, "--start=42.500")
			So(args, ShouldContain, "--force-media-title=Ep 1")
			So(args[len(args)-1], ShouldEqual, "https://cdn.example/v.mkv")
		})

		Convey("Every property is observed and error logs are requested", func() {
			So(conn.count(), ShouldEqual, len(observed)+1)
			So(conn.last(), ShouldResemble, []any{"request_log_messages", "error"})
		})

		Convey("Load is reported at the first playback restart after file-loaded", func() {
			conn.events <- Event{"event": "property-change", "name": "duration", "data": 120.0}
			conn.events <- Event{"event": "property-change", "name": "width", "data": 1920.0}
			conn.events <- Event{"event": "property-change", "name": "height", "data": 1080.0}
			conn.events <- Event{"event": "property-change", "name": "time-pos", "data": 1.0}
			conn.events <- Event{"event": "file-loaded"}
			conn.events <- Event{"event": "playback-restart"}
			conn.events <- Event{"event": "property-change", "name": "time-pos", "data": 43.0}
			conn.events <- Event{"event": "playback-restart"}
			conn.events <- Event{"event": "end-file", "reason": "eof"}

			So(rec.next(), ShouldResemble, engine.LoadInfo{Duration: 120, Width: 1920, Height: 1080})
			So(rec.next(), ShouldResemble, engine.Progress{CurrentTime: 43, Duration: 120})
			So(rec.next(), ShouldResemble, endNote{})
		})

		Convey("Decoder failures are reported as raw error payloads", func() {
			conn.events <- Event{"event": "end-file", "reason": "error", "file_error": "unsupported codec"}
			So(rec.next(), ShouldResemble, errorNote{map[string]any{"error": "unsupported codec"}})
		})

		Convey("Decoder errors in the log become one canonical error payload", func() {
			conn.events <- Event{"event": "log-message", "prefix": "cplayer", "level": "error", "text": "Some other failure\n"}
			conn.events <- Event{"event": "log-message", "prefix": "vd", "level": "warn", "text": "Failed to initialize a decoder for codec 'hevc'.\n"}
			conn.events <- Event{"event": "log-message", "prefix": "vd", "level": "error", "text": "Failed to initialize a decoder for codec 'hevc'.\n"}
			conn.events <- Event{"event": "log-message", "prefix": "ad", "level": "error", "text": "Could not open codec.\n"}
			conn.events <- Event{"event": "end-file", "reason": "eof"}

			n, ok := rec.next().(errorNote)
			So(ok, ShouldBeTrue)
			So(n.raw, ShouldResemble, map[string]any{"error": "decoder initialization failed: Failed to initialize a decoder for codec 'hevc'."})
			So(codecerr.IsFallbackTrigger(n.raw), ShouldBeTrue)
			So(rec.next(), ShouldResemble, endNote{})
		})

		Convey("An end-file with nothing decoded is a decoder failure", func() {
			conn.events <- Event{"event": "end-file", "reason": "error", "file_error": "no audio or video data played"}
			n, ok := rec.next().(errorNote)
			So(ok, ShouldBeTrue)
			So(codecerr.IsFallbackTrigger(n.raw), ShouldBeTrue)
		})

		Convey("Other end-file errors pass through unchanged", func() {
			conn.events <- Event{"event": "end-file", "reason": "error", "file_error": "loading failed"}
			n, ok := rec.next().(errorNote)
			So(ok, ShouldBeTrue)
			So(n.raw, ShouldResemble, map[string]any{"error": "loading failed"})
			So(codecerr.IsFallbackTrigger(n.raw), ShouldBeFalse)
		})

		Convey("Given a track list", func() {
			conn.events <- Event{"event": "property-change", "name": "track-list", "data": trackList}
			raw := rec.next()

			Convey("It is split into the primary shape", func() {
				set := track.Normalize(raw, engine.Primary)
				So(set.Audio, ShouldResemble, []track.Track{
					{ID: 0, Name: "jpn", Language: "jpn"},
					{ID: 1, Name: "Commentary", Language: "eng"},
				})
				So(set.Subtitles, ShouldResemble, []track.Track{
					{ID: 0, Name: "Full", Language: "eng"},
					{ID: 1, Name: "Track 2"},
				})
			})

			Convey("Positional ids are translated to mpv ids", func() {
				So(a.SetAudioTrack(1), ShouldBeNil)
				So(conn.last(), ShouldResemble, []any{"set_property", "aid", 2})

				So(a.SetSubtitleTrack(0), ShouldBeNil)
				So(conn.last(), ShouldResemble, []any{"set_property", "sid", 1})

				So(a.SetAudioTrack(5), ShouldNotBeNil)
			})
		})

		Convey("Negative subtitle ids disable subtitles", func() {
			So(a.SetSubtitleTrack(-1), ShouldBeNil)
			So(conn.last(), ShouldResemble, []any{"set_property", "sid", "no"})
		})

		Convey("Transport commands are forwarded", func() {
			So(a.Seek(12.5), ShouldBeNil)
			So(conn.last(), ShouldResemble, []any{"seek", 12.5, "absolute"})
			So(a.Pause(), ShouldBeNil)
			So(conn.last(), ShouldResemble, []any{"set_property", "pause", true})
			So(a.Play(), ShouldBeNil)
			So(conn.last(), ShouldResemble, []any{"set_property", "pause", false})
		})

		Convey("Close quits mpv and rejects further commands", func() {
			So(a.Close(), ShouldBeNil)
			So(conn.last(), ShouldResemble, []any{"quit"})
			So(a.Seek(1), ShouldNotBeNil)
			So(a.Close(), ShouldBeNil)
		})

		Convey("Loading twice fails", func() {
			So(a.Load(context.Background(), engine.Descriptor{URL: "https://cdn.example/v.mkv"}, 0), ShouldNotBeNil)
		})
	})

	Convey("Given a connection that drops unexpectedly", t, func() {
		conn := newFakeConn()
		rec := newRecorder()
		a := newTestAdapter(conn, nil)
		a.Subscribe(rec)
		So(a.Load(context.Background(), engine.Descriptor{URL: "https://cdn.example/v.mkv"}, 0), ShouldBeNil)

		_ = conn.Close()

		Convey("A raw error is reported", func() {
			n, ok := rec.next().(errorNote)
			So(ok, ShouldBeTrue)
			So(n.raw, ShouldResemble, map[string]any{"message": "primary engine exited unexpectedly"})
			So(a.Close(), ShouldBeNil)
		})
	})

	Convey("Commands before Load fail with ErrNotLoaded", t, func() {
		a := New(Options{})
		So(a.Seek(1), ShouldEqual, engine.ErrNotLoaded)
		So(a.SetAudioTrack(0), ShouldEqual, engine.ErrNotLoaded)
		So(a.Close(), ShouldBeNil)
	})

	Convey("Flag-like targets are rejected before launch", t, func() {
		a := newTestAdapter(newFakeConn(), nil)
		So(a.Load(context.Background(), engine.Descriptor{URL: "--script=evil.lua"}, 0), ShouldNotBeNil)
	})
}

func TestBuildArgs(t *testing.T) {
	Convey("Headers are sorted and commas escaped", t, func() {
		args := buildArgs(Options{HWDec: "no"}, "/tmp/s.sock", "file.mkv", engine.Descriptor{
			Headers: map[string]string{"User-Agent": "a,b", "Referer": "r"},
		}, 0)

		So(args, ShouldContain, "--http-header-fields=Referer: r,User-Agent: a%2Cb")
		So(args, ShouldContain, "--input-ipc-server=/tmp/s.sock")
		So(args, ShouldNotContain, "--start=0.000")
	})
}

func TestIPC(t *testing.T) {
	defer goleak.VerifyNone(t)

	Convey("Given an mpv-like IPC server", t, func() {
		dir, err := os.MkdirTemp("", "mpv-ipc")
		So(err, ShouldBeNil)
		Reset(func() { _ = os.RemoveAll(dir) })

		socket := filepath.Join(dir, "ipc.sock")
		ln, err := net.Listen("unix", socket)
		So(err, ShouldBeNil)
		Reset(func() { _ = ln.Close() })

		received := make(chan string, 1)
		go func() {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			defer c.Close()

			buf := make([]byte, 4096)
			n, _ := c.Read(buf)
			received <- string(buf[:n])

			_, _ = c.Write([]byte(`{"request_id":1,"error":"success","data":null}` + "\n"))
			_, _ = c.Write([]byte(`{"event":"property-change","name":"pause","data":true}` + "\n"))
		}()

		conn, err := Dial(context.Background(), socket)
		So(err, ShouldBeNil)

		Convey("Commands are newline-delimited JSON and replies are not events", func() {
			So(conn.Send("get_property", "pause"), ShouldBeNil)
			So(<-received, ShouldEqual, `{"command":["get_property","pause"],"request_id":1}`+"\n")

			ev := <-conn.Events()
			So(ev.Name(), ShouldEqual, "property-change")
			So(ev["data"], ShouldEqual, true)

			_, open := <-conn.Events()
			So(open, ShouldBeFalse)
			So(conn.Close(), ShouldBeNil)
		})
	})
}
