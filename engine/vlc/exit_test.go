//go:build !windows

package vlc

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kinoplay/kinoplay/engine"
	"github.com/kinoplay/kinoplay/engine/process"
	. "github.com/smartystreets/goconvey/convey"
)

// withProcess makes the adapter's starter launch a real shell process next
// to the fake HTTP interface.
func withProcess(a *Adapter, script string) {
	fake := a.start
	a.start = func(ctx context.Context, args []string, port int) (string, *process.Process, error) {
		base, _, err := fake(ctx, args, port)
		if err != nil {
			return "", nil, err
		}
		proc, err := process.Start("sh", "-c", script)
		return base, proc, err
	}
}

func TestProcessExit(t *testing.T) {
	Convey("Given VLC exiting on its own after the stream played", t, func() {
		vlc := &fakeVLC{status: playing()}
		srv := httptest.NewServer(vlc)
		Reset(srv.Close)

		rec := newRecorder()
		a := newTestAdapter(srv, vlc, nil)
		withProcess(a, "sleep 0.3")
		a.Subscribe(rec)

		So(a.Load(context.Background(), engine.Descriptor{URL: "http://127.0.0.1/v"}, 0), ShouldBeNil)
		Reset(func() { _ = a.Close() })

		Convey("The exit is reported as the end of the stream", func() {
			So(rec.next(false), ShouldHaveSameTypeAs, engine.LoadInfo{})

			var last any
			deadline := time.After(3 * time.Second)
		wait:
			for {
				select {
				case n := <-rec.notes:
					switch n.(type) {
					case endNote, errorNote:
						last = n
						break wait
					}
				case <-deadline:
					break wait
				}
			}
			So(last, ShouldResemble, endNote{})
		})
	})

	Convey("Given VLC exiting before the stream opened", t, func() {
		vlc := &fakeVLC{status: map[string]any{"state": "opening"}}
		srv := httptest.NewServer(vlc)
		Reset(srv.Close)

		rec := newRecorder()
		a := newTestAdapter(srv, vlc, nil)
		withProcess(a, "exit 0")
		a.Subscribe(rec)

		So(a.Load(context.Background(), engine.Descriptor{URL: "http://127.0.0.1/v"}, 0), ShouldBeNil)
		Reset(func() { _ = a.Close() })

		Convey("The exit is an error", func() {
			n, ok := rec.next(false).(errorNote)
			So(ok, ShouldBeTrue)
			So(n.raw, ShouldResemble, map[string]any{"message": "fallback engine exited unexpectedly"})
		})
	})
}
