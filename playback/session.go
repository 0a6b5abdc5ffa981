package playback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kinoplay/kinoplay/engine"
	"github.com/kinoplay/kinoplay/filesystem"
	"github.com/kinoplay/kinoplay/history"
	"github.com/kinoplay/kinoplay/key"
	"github.com/kinoplay/kinoplay/log"
	"github.com/kinoplay/kinoplay/stream"
	"github.com/kinoplay/kinoplay/subtitle"
	"github.com/kinoplay/kinoplay/track"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// ErrUnresolved is returned when the stream server has no URL for a source.
var ErrUnresolved = errors.New("playback: stream could not be resolved")

// stopTimeout bounds the best-effort StopTorrent call on Close.
const stopTimeout = 5 * time.Second

// Source is something to play: a direct URL, or a torrent file resolved
// through the stream server.
type Source struct {
	// URL is played as is when set. Otherwise InfoHash is resolved.
	URL string
	// InfoHash is a hex or base32 info hash, or a magnet link.
	InfoHash  string
	FileIndex int
	Title     string
	Headers   map[string]string
	// Subtitles are external subtitle files, as local paths or http(s) URLs.
	Subtitles []string
}

// Key identifies the source in the resume history.
func (s Source) Key() string {
	if s.URL != "" {
		return s.URL
	}
	hash, err := stream.InfoHash(s.InfoHash)
	if err != nil {
		hash = strings.ToLower(strings.TrimSpace(s.InfoHash))
	}
	return fmt.Sprintf("%s:%d", hash, s.FileIndex)
}

// Session plays one Source: it resolves the stream, resumes from history,
// drives a Controller and records the position while playing.
type Session struct {
	ID         string
	source     Source
	hash       string
	resolver   stream.Resolver
	controller *Controller
	logger     *logrus.Entry

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Start resolves src and opens it. resolver may be nil for URL sources.
// opts are applied to the session's Controller after the configured ones.
func Start(ctx context.Context, factory engine.Factory, resolver stream.Resolver, src Source, opts ...Option) (*Session, error) {
	s := &Session{
		ID:       uuid.NewString(),
		source:   src,
		resolver: resolver,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	s.logger = log.WithFields(logrus.Fields{"session": s.ID, "source": src.Key()})

	url, err := s.resolve(ctx)
	if err != nil {
		return nil, err
	}

	s.controller = New(factory, append(s.options(), opts...)...)
	s.loadSubtitles(ctx)

	start := s.resumePosition()
	d := engine.Descriptor{URL: url, Headers: src.Headers, Title: src.Title}
	if err := s.controller.Open(ctx, d, start); err != nil {
		_ = s.controller.Close()
		s.stopTorrent()
		return nil, err
	}

	go s.record(time.Duration(viper.GetInt(key.PlayerHistoryInterval)) * time.Second)
	return s, nil
}

func (s *Session) resolve(ctx context.Context) (string, error) {
	if s.source.URL != "" {
		return s.source.URL, nil
	}

	hash, err := stream.InfoHash(s.source.InfoHash)
	if err != nil {
		return "", err
	}
	if s.resolver == nil {
		return "", fmt.Errorf("%w: no stream server configured", ErrUnresolved)
	}

	url, ok := s.resolver.ResolveStream(ctx, hash, s.source.FileIndex).Get()
	if !ok {
		return "", ErrUnresolved
	}

	s.hash = hash
	s.logger.Infof("resolved %s", url)
	return url, nil
}

func (s *Session) options() []Option {
	opts := []Option{WithLogger(s.logger)}

	if ms := viper.GetInt(key.PlayerSettleWindowMs); ms > 0 {
		opts = append(opts, WithSettleWindow(time.Duration(ms)*time.Millisecond))
	}

	if s.hash != "" {
		hash, index, resolver := s.hash, s.source.FileIndex, s.resolver
		opts = append(opts, WithSeekHinter(SeekHinterFunc(func(ctx context.Context, position float64) {
			resolver.HandleSeek(ctx, hash, index, position)
		})))
	}

	return opts
}

func (s *Session) resumePosition() float64 {
	if !viper.GetBool(key.PlayerResume) {
		return 0
	}

	r, ok := history.Resume(s.source.Key()).Get()
	if !ok {
		return 0
	}
	s.logger.Infof("resuming at %.1fs", r.Position)
	return r.Position
}

// loadSubtitles merges every readable external subtitle file. Unreadable
// ones are skipped.
func (s *Session) loadSubtitles(ctx context.Context) {
	if len(s.source.Subtitles) == 0 {
		return
	}

	var cues []subtitle.Cue
	for _, src := range s.source.Subtitles {
		var (
			loaded []subtitle.Cue
			err    error
		)
		if isRemote(src) {
			loaded, err = subtitle.Fetch(ctx, nil, src)
		} else {
			loaded, err = subtitle.Load(filesystem.Fs(), src)
		}
		if err != nil {
			s.logger.Warnf("skipping subtitles: %v", err)
			continue
		}
		cues = append(cues, loaded...)
	}

	s.controller.SetCues(cues)
	s.controller.SetSubtitleOffset(float64(viper.GetInt(key.SubtitlesOffset)) / 1000)
}

func isRemote(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Controller returns the session's controller.
func (s *Session) Controller() *Controller {
	return s.controller
}

func (s *Session) record(interval time.Duration) {
	defer close(s.done)

	if interval <= 0 {
		<-s.stop
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.save()
		}
	}
}

// save writes the current position to the history. Nothing is written
// before the stream has loaded.
func (s *Session) save() {
	st := s.controller.State()
	if st.Duration <= 0 && st.Position <= 0 {
		return
	}

	tracks := s.controller.Tracks()
	language := func(kind track.Kind, id int, ok bool) string {
		if !ok {
			return ""
		}
		t, found := tracks.Lookup(kind, id)
		return lo.Ternary(found, t.Language, "")
	}
	audio, hasAudio := st.AudioTrack.Get()
	sub, hasSub := st.SubtitleTrack.Get()

	err := history.Save(history.Record{
		Key:              s.source.Key(),
		Title:            s.source.Title,
		URL:              s.source.URL,
		Position:         st.Position,
		Duration:         st.Duration,
		Engine:           st.Engine.String(),
		AudioLanguage:    language(track.Audio, audio, hasAudio),
		SubtitleLanguage: language(track.Subtitle, sub, hasSub),
	})
	if err != nil {
		s.logger.Warnf("saving history: %v", err)
	}
}

// Close saves the position, stops playback and releases the torrent.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done

		s.save()
		s.closeErr = s.controller.Close()
		s.stopTorrent()
	})
	return s.closeErr
}

func (s *Session) stopTorrent() {
	if s.hash == "" || s.resolver == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	s.resolver.StopTorrent(ctx, s.hash)
}
