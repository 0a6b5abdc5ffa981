package playback

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/kinoplay/kinoplay/engine"
	"github.com/kinoplay/kinoplay/filesystem"
	"github.com/kinoplay/kinoplay/history"
	"github.com/kinoplay/kinoplay/key"
	"github.com/kinoplay/kinoplay/stream"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/goleak"
)

func init() {
	filesystem.SetMemMapFs()
}

const testHash = "0123456789abcdef0123456789abcdef01234567"

type fakeResolver struct {
	url mo.Option[string]

	mu       sync.Mutex
	resolved []string
	stopped  []string
	seeks    []float64
}

func (r *fakeResolver) ResolveStream(_ context.Context, infoHash string, _ int) mo.Option[string] {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved = append(r.resolved, infoHash)
	return r.url
}

func (r *fakeResolver) StopTorrent(_ context.Context, infoHash string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = append(r.stopped, infoHash)
}

func (r *fakeResolver) HandleSeek(_ context.Context, _ string, _ int, position float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seeks = append(r.seeks, position)
}

func (r *fakeResolver) snapshot() (resolved, stopped []string, seeks []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.resolved...), append([]string{}, r.stopped...), append([]float64{}, r.seeks...)
}

func TestSourceKey(t *testing.T) {
	Convey("Source.Key", t, func() {
		So(Source{URL: "https://cdn.example/ep1.mkv"}.Key(), ShouldEqual, "https://cdn.example/ep1.mkv")
		So(Source{InfoHash: "magnet:?xt=urn:btih:" + testHash, FileIndex: 2}.Key(), ShouldEqual, testHash+":2")
		So(Source{InfoHash: "Not A Hash"}.Key(), ShouldEqual, "not a hash:0")
	})
}

func TestSession(t *testing.T) {
	defer goleak.VerifyNone(t)

	Convey("Given a stream server and a clean history", t, func() {
		viper.Set(key.PlayerResume, true)
		viper.Set(key.PlayerHistoryInterval, 0)
		viper.Set(key.PlayerCompletionMargin, 30)
		Reset(func() {
			_ = history.Remove(testHash + ":1")
			viper.Set(key.PlayerResume, false)
		})

		factory := newFakeFactory()
		resolver := &fakeResolver{url: mo.Some("http://127.0.0.1:8090/stream/" + testHash + "?index=1")}
		src := Source{InfoHash: testHash, FileIndex: 1, Title: "Episode 1"}

		Convey("A torrent source is resolved and opened on the primary engine", func() {
			s, err := Start(context.Background(), factory.New, resolver, src)
			So(err, ShouldBeNil)
			So(s.ID, ShouldNotBeEmpty)

			call, err := factory.get(engine.Primary).awaitLoad()
			So(err, ShouldBeNil)
			So(call.descriptor.URL, ShouldEqual, "http://127.0.0.1:8090/stream/"+testHash+"?index=1")
			So(call.descriptor.Title, ShouldEqual, "Episode 1")
			So(call.start, ShouldEqual, 0)

			Convey("Seeks are hinted to the stream server", func() {
				factory.get(engine.Primary).events().OnLoad(engine.LoadInfo{Duration: 1440})
				So(s.Controller().SeekToTime(300), ShouldBeNil)
				So(eventually(func() bool {
					_, _, seeks := resolver.snapshot()
					return len(seeks) == 1 && seeks[0] == 300
				}), ShouldBeTrue)
				So(s.Close(), ShouldBeNil)
			})

			Convey("Close records the position and stops the torrent", func() {
				a := factory.get(engine.Primary)
				a.events().OnLoad(engine.LoadInfo{Duration: 1440})
				a.events().OnProgress(engine.Progress{CurrentTime: 700, Duration: 1440})

				So(s.Close(), ShouldBeNil)
				So(a.awaitClose(), ShouldBeTrue)

				_, stopped, _ := resolver.snapshot()
				So(stopped, ShouldResemble, []string{testHash})

				saved, err := history.Get()
				So(err, ShouldBeNil)
				So(saved[testHash+":1"].Position, ShouldEqual, 700)
				So(saved[testHash+":1"].Engine, ShouldEqual, "primary")

				So(s.Close(), ShouldBeNil)
			})
		})

		Convey("A saved position is resumed", func() {
			So(history.Save(history.Record{Key: testHash + ":1", Position: 600, Duration: 1440}), ShouldBeNil)

			s, err := Start(context.Background(), factory.New, resolver, src)
			So(err, ShouldBeNil)
			defer s.Close()

			call, err := factory.get(engine.Primary).awaitLoad()
			So(err, ShouldBeNil)
			So(call.start, ShouldEqual, 600)
		})

		Convey("An unresolvable source fails without creating an engine", func() {
			resolver.url = mo.None[string]()
			_, err := Start(context.Background(), factory.New, resolver, src)
			So(errors.Is(err, ErrUnresolved), ShouldBeTrue)
			So(factory.get(engine.Primary), ShouldBeNil)
		})

		Convey("An invalid info hash is rejected before resolving", func() {
			_, err := Start(context.Background(), factory.New, resolver, Source{InfoHash: "nope"})
			So(errors.Is(err, stream.ErrInvalidInfoHash), ShouldBeTrue)
			resolved, _, _ := resolver.snapshot()
			So(resolved, ShouldBeEmpty)
		})

		Convey("A failing primary engine releases the torrent", func() {
			factory.errs[engine.Primary] = errors.New("mpv not installed")
			_, err := Start(context.Background(), factory.New, resolver, src)
			So(err, ShouldNotBeNil)
			_, stopped, _ := resolver.snapshot()
			So(stopped, ShouldResemble, []string{testHash})
		})
	})

	Convey("Given a direct URL with external subtitles", t, func() {
		So(afero.WriteFile(filesystem.Fs(), "/subs/ep1.srt", []byte("1\n00:00:01,000 --> 00:00:04,000\nHello world\n"), 0o644), ShouldBeNil)

		factory := newFakeFactory()
		src := Source{
			URL:       "https://cdn.example/ep1.mkv",
			Subtitles: []string{"/subs/ep1.srt", "/subs/missing.vtt"},
		}

		s, err := Start(context.Background(), factory.New, nil, src)
		So(err, ShouldBeNil)
		defer s.Close()

		a := factory.get(engine.Primary)
		_, err = a.awaitLoad()
		So(err, ShouldBeNil)
		a.events().OnLoad(engine.LoadInfo{Duration: 60})
		a.events().OnProgress(engine.Progress{CurrentTime: 2, Duration: 60})

		Convey("Readable subtitle files are loaded and missing ones skipped", func() {
			cues := s.Controller().ActiveCues()
			So(cues, ShouldHaveLength, 1)
			So(cues[0].Text, ShouldEqual, "Hello world")
		})
	})
}
