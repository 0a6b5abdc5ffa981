package stream

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

const hash = "c9e15763f722f23e98a29decdfae341b98d53056"

func TestInfoHash(t *testing.T) {
	Convey("InfoHash", t, func() {
		Convey("Lowercases hex hashes", func() {
			h, err := InfoHash("C9E15763F722F23E98A29DECDFAE341B98D53056")
			So(err, ShouldBeNil)
			So(h, ShouldEqual, hash)
		})

		Convey("Decodes base32 hashes", func() {
			h, err := InfoHash("ZHQVOY7XELZD5GFCTXWN7LRUDOMNKMCW")
			So(err, ShouldBeNil)
			So(h, ShouldEqual, hash)
		})

		Convey("Extracts the hash from magnet links", func() {
			h, err := InfoHash("magnet:?xt=urn:btih:" + hash + "&dn=Big+Buck+Bunny&tr=udp%3A%2F%2Ftracker")
			So(err, ShouldBeNil)
			So(h, ShouldEqual, hash)
		})

		Convey("Rejects everything else", func() {
			for _, in := range []string{"", "abc", "magnet:?dn=x", "magnet:?xt=urn:btih:zz", hash + "0"} {
				_, err := InfoHash(in)
				So(errors.Is(err, ErrInvalidInfoHash), ShouldBeTrue)
			}
		})
	})
}

// server is a scripted torrent-stream server.
type server struct {
	mu       sync.Mutex
	resolves atomic.Int32
	deleted  []string
	seeks    []seekRequest
	release  chan struct{}
}

func (s *server) recorded() ([]string, []seekRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleted, s.seeks
}

func (s *server) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /stream/{hash}", func(w http.ResponseWriter, r *http.Request) {
		s.resolves.Add(1)
		if s.release != nil {
			<-s.release
		}
		if r.PathValue("hash") != hash {
			http.Error(w, "unknown torrent", http.StatusNotFound)
			return
		}
		idx := r.URL.Query().Get("index")
		if idx == "" {
			idx = "main"
		}
		_ = json.NewEncoder(w).Encode(resolveResponse{URL: "/files/" + idx})
	})
	mux.HandleFunc("DELETE /torrents/{hash}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.deleted = append(s.deleted, r.PathValue("hash"))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /torrents/{hash}/seek", func(w http.ResponseWriter, r *http.Request) {
		var req seekRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		s.mu.Lock()
		defer s.mu.Unlock()
		s.seeks = append(s.seeks, req)
	})
	return mux
}

func TestHTTPResolver(t *testing.T) {
	Convey("Given a torrent-stream server", t, func() {
		s := &server{}
		srv := httptest.NewServer(s.handler())
		Reset(srv.Close)

		r := NewHTTPResolver(srv.URL+"/", WithClient(srv.Client()), WithSeekHintRate(0))
		ctx := context.Background()

		Convey("ResolveStream returns an absolute url", func() {
			So(r.ResolveStream(ctx, hash, 2).MustGet(), ShouldEqual, srv.URL+"/files/2")
			So(r.ResolveStream(ctx, hash, -1).MustGet(), ShouldEqual, srv.URL+"/files/main")
		})

		Convey("Failures resolve to nothing", func() {
			So(r.ResolveStream(ctx, "0000000000000000000000000000000000000000", 0).IsPresent(), ShouldBeFalse)
			So(r.ResolveStream(ctx, "not a hash", 0).IsPresent(), ShouldBeFalse)
		})

		Convey("Concurrent resolves of one file share a request", func() {
			s.release = make(chan struct{})

			var wg sync.WaitGroup
			results := make([]string, 4)
			for i := range results {
				wg.Add(1)
				go func() {
					defer wg.Done()
					results[i] = r.ResolveStream(ctx, hash, 1).OrEmpty()
				}()
			}

			// let every caller join the flight before the server answers
			time.Sleep(100 * time.Millisecond)
			close(s.release)
			wg.Wait()

			So(s.resolves.Load(), ShouldEqual, 1)
			for _, u := range results {
				So(u, ShouldEqual, srv.URL+"/files/1")
			}
		})

		Convey("StopTorrent deletes the transfer", func() {
			r.StopTorrent(ctx, "magnet:?xt=urn:btih:"+hash)
			deleted, _ := s.recorded()
			So(deleted, ShouldResemble, []string{hash})
		})

		Convey("HandleSeek posts the position", func() {
			r.HandleSeek(ctx, hash, 3, 61.5)
			_, seeks := s.recorded()
			So(seeks, ShouldResemble, []seekRequest{{FileIndex: 3, Position: 61.5}})
		})

		Convey("Best-effort calls tolerate a dead server", func() {
			dead := NewHTTPResolver("http://127.0.0.1:1", WithSeekHintRate(0))
			So(func() {
				dead.StopTorrent(ctx, hash)
				dead.HandleSeek(ctx, hash, 0, 1)
			}, ShouldNotPanic)
			So(dead.ResolveStream(ctx, hash, 0).IsPresent(), ShouldBeFalse)
		})
	})

	Convey("Given a rate limit of one hint per minute", t, func() {
		s := &server{}
		srv := httptest.NewServer(s.handler())
		Reset(srv.Close)

		r := NewHTTPResolver(srv.URL, WithClient(srv.Client()), WithSeekHintRate(1.0/60))

		Convey("Hints over the limit are dropped", func() {
			for i := 0; i < 5; i++ {
				r.HandleSeek(context.Background(), hash, 0, float64(i))
			}
			_, seeks := s.recorded()
			So(seeks, ShouldHaveLength, 1)
		})
	})
}
