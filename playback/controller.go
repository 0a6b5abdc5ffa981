// Package playback drives a playback session across two engines: it owns
// the active engine, the seek settle guard and the one-way switch from the
// primary to the fallback engine when the primary cannot decode a stream.
package playback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/kinoplay/kinoplay/engine"
	"github.com/kinoplay/kinoplay/log"
	"github.com/kinoplay/kinoplay/subtitle"
	"github.com/kinoplay/kinoplay/track"
	"github.com/kinoplay/kinoplay/util"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
)

const (
	// EndEpsilon keeps seeks away from the end of the stream, where a seek
	// would race the engine's end-of-stream detection.
	EndEpsilon = 0.3
	// DefaultSettleWindow is how long progress reports are ignored after a seek.
	DefaultSettleWindow = 500 * time.Millisecond
)

var (
	ErrClosed      = errors.New("playback: controller closed")
	ErrNotOpen     = errors.New("playback: no stream open")
	ErrAlreadyOpen = errors.New("playback: stream already open")
)

// SeekHinter is told about every accepted seek, off the control path.
type SeekHinter interface {
	HandleSeek(ctx context.Context, position float64)
}

// SeekHinterFunc adapts a function to a SeekHinter.
type SeekHinterFunc func(ctx context.Context, position float64)

func (f SeekHinterFunc) HandleSeek(ctx context.Context, position float64) {
	f(ctx, position)
}

// Option configures a Controller.
type Option func(*Controller)

func WithListener(l Listener) Option {
	return func(c *Controller) { c.listener = l }
}

func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

func WithSeekHinter(h SeekHinter) Option {
	return func(c *Controller) { c.hinter = h }
}

func WithSettleWindow(d time.Duration) Option {
	return func(c *Controller) { c.settle = d }
}

func WithLogger(l *logrus.Entry) Option {
	return func(c *Controller) { c.logger = l }
}

// Controller is the single owner of the active engine.
//
// All state is guarded by one mutex. Engine commands and listener
// notifications are queued while it is held and run after it is released,
// in order, by whichever goroutine is dispatching.
type Controller struct {
	factory  engine.Factory
	listener Listener
	clock    Clock
	hinter   SeekHinter
	settle   time.Duration
	logger   *logrus.Entry
	guard    *Guard

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu          sync.Mutex
	state       State
	descriptor  engine.Descriptor
	adapter     engine.Adapter
	epoch       uint64
	opened      bool
	closed      bool
	tracks      track.Set
	remap       *selection
	subDisabled bool
	timeline    *subtitle.Timeline
	subOffset   float64

	dispatching bool
	pending     []func()
}

// selection remembers the chosen tracks across an engine switch.
type selection struct {
	audio    mo.Option[track.Track]
	subtitle mo.Option[track.Track]
}

// New creates a controller that instantiates engines through factory.
func New(factory engine.Factory, opts ...Option) *Controller {
	c := &Controller{
		factory:  factory,
		listener: ListenerFuncs{},
		clock:    realClock{},
		settle:   DefaultSettleWindow,
		logger:   log.Component("playback"),
		tracks:   emptyTracks(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.guard = NewGuard(c.clock, c.settle, c.settled)
	return c
}

func emptyTracks() track.Set {
	return track.Set{Audio: []track.Track{}, Subtitles: []track.Track{}}
}

// Open starts playing d on the primary engine from start seconds.
func (c *Controller) Open(ctx context.Context, d engine.Descriptor, start float64) error {
	c.mu.Lock()
	switch {
	case c.closed:
		c.mu.Unlock()
		return ErrClosed
	case c.opened:
		c.mu.Unlock()
		return ErrAlreadyOpen
	}

	a, err := c.factory(engine.Primary)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("create primary engine: %w", err)
	}

	c.opened = true
	c.descriptor = d.Clone()
	c.state = State{
		Position: math.Max(start, 0),
		Engine:   engine.Primary,
		Phase:    Loading,
	}

	c.install(ctx, a)
	c.notify(func(l Listener) { l.OnEngineChanged(engine.Primary) })
	c.unlock()
	return nil
}

// install makes a the active adapter under a new epoch and loads the
// descriptor at the current position.
func (c *Controller) install(ctx context.Context, a engine.Adapter) {
	c.epoch++
	epoch := c.epoch
	c.adapter = a
	a.Subscribe(&binding{c: c, epoch: epoch})

	d := c.descriptor.Clone()
	start := c.state.Position
	c.logger.WithFields(logrus.Fields{"engine": a.Kind(), "epoch": epoch}).Infof("loading at %.3fs", start)

	c.spawn(func() {
		if err := a.Load(mergeCancel(ctx, c.ctx), d, start); err != nil {
			c.onError(epoch, err)
		}
	})
}

// mergeCancel returns a context carrying ctx's values that is also
// cancelled when the controller closes.
func mergeCancel(ctx, lifetime context.Context) context.Context {
	if ctx == nil {
		return lifetime
	}
	merged, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(lifetime, cancel)
	context.AfterFunc(merged, func() { stop() })
	return merged
}

// SeekToTime moves playback to seconds, clamped into
// [0, duration-EndEpsilon]. Before the duration is known only the lower
// bound applies.
func (c *Controller) SeekToTime(seconds float64) error {
	c.mu.Lock()
	if err := c.usable(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.seekLocked(seconds)
	c.unlock()
	return nil
}

// Skip seeks by delta seconds relative to the current position.
func (c *Controller) Skip(delta float64) error {
	c.mu.Lock()
	if err := c.usable(); err != nil {
		c.mu.Unlock()
		return err
	}
	c.seekLocked(c.state.Position + delta)
	c.unlock()
	return nil
}

func (c *Controller) seekLocked(seconds float64) {
	if math.IsNaN(seconds) {
		c.logger.Debug("ignoring seek to NaN")
		return
	}
	if !c.state.Phase.playing() {
		c.logger.Debugf("ignoring seek while %s", c.state.Phase)
		return
	}

	target := c.clamp(seconds)
	c.state.Position = target
	c.state.Phase = Seeking
	c.guard.Start()

	a := c.adapter
	c.pending = append(c.pending, func() {
		if err := a.Seek(target); err != nil {
			c.logger.Warnf("seek: %v", err)
		}
	})

	if h := c.hinter; h != nil {
		c.spawn(func() { h.HandleSeek(c.ctx, target) })
	}

	ev := ProgressEvent{CurrentTime: target, Duration: c.state.Duration}
	c.notify(func(l Listener) { l.OnProgress(ev) })
}

func (c *Controller) clamp(seconds float64) float64 {
	if c.state.Duration <= 0 {
		return math.Max(seconds, 0)
	}
	return util.Clamp(seconds, 0, c.state.Duration-EndEpsilon)
}

// settled runs when the guard window elapses.
func (c *Controller) settled() {
	c.mu.Lock()
	if c.closed || c.guard.Active() || c.state.Phase != Seeking {
		c.mu.Unlock()
		return
	}
	c.state.Phase = Ready
	c.unlock()
}

// Play resumes playback.
func (c *Controller) Play() error {
	return c.setPaused(func(bool) bool { return false })
}

// Pause suspends playback.
func (c *Controller) Pause() error {
	return c.setPaused(func(bool) bool { return true })
}

// TogglePause inverts the paused state.
func (c *Controller) TogglePause() error {
	return c.setPaused(func(paused bool) bool { return !paused })
}

// setPaused derives the new paused state from the current one under the
// same lock hold that applies it.
func (c *Controller) setPaused(next func(paused bool) bool) error {
	c.mu.Lock()
	if err := c.usable(); err != nil {
		c.mu.Unlock()
		return err
	}
	if !c.state.Phase.playing() {
		c.mu.Unlock()
		return nil
	}

	paused := next(c.state.Paused)
	c.state.Paused = paused
	a := c.adapter
	c.pending = append(c.pending, func() {
		var err error
		if paused {
			err = a.Pause()
		} else {
			err = a.Play()
		}
		if err != nil {
			c.logger.Warnf("pause=%t: %v", paused, err)
		}
	})
	c.unlock()
	return nil
}

// SetAudioTrack selects an audio track of the active engine. Unknown ids
// are ignored.
func (c *Controller) SetAudioTrack(id int) error {
	c.mu.Lock()
	if err := c.usable(); err != nil {
		c.mu.Unlock()
		return err
	}

	if _, ok := c.tracks.Lookup(track.Audio, id); !ok {
		c.logger.Warnf("no audio track %d", id)
		c.mu.Unlock()
		return nil
	}

	c.state.AudioTrack = mo.Some(id)
	c.command(func(a engine.Adapter) error { return a.SetAudioTrack(id) })
	c.unlock()
	return nil
}

// SetSubtitleTrack selects a subtitle track of the active engine; a
// negative id disables subtitles. Unknown ids are ignored.
func (c *Controller) SetSubtitleTrack(id int) error {
	c.mu.Lock()
	if err := c.usable(); err != nil {
		c.mu.Unlock()
		return err
	}

	if id < 0 {
		c.state.SubtitleTrack = mo.None[int]()
		c.subDisabled = true
		c.command(func(a engine.Adapter) error { return a.SetSubtitleTrack(-1) })
		c.unlock()
		return nil
	}

	if _, ok := c.tracks.Lookup(track.Subtitle, id); !ok {
		c.logger.Warnf("no subtitle track %d", id)
		c.mu.Unlock()
		return nil
	}

	c.state.SubtitleTrack = mo.Some(id)
	c.subDisabled = false
	c.command(func(a engine.Adapter) error { return a.SetSubtitleTrack(id) })
	c.unlock()
	return nil
}

func (c *Controller) command(fn func(engine.Adapter) error) {
	a := c.adapter
	if a == nil {
		return
	}
	c.pending = append(c.pending, func() {
		if err := fn(a); err != nil {
			c.logger.Warnf("track selection: %v", err)
		}
	})
}

// State returns a snapshot of the session.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Tracks returns the active engine's tracks.
func (c *Controller) Tracks() track.Set {
	c.mu.Lock()
	defer c.mu.Unlock()
	return track.Set{
		Audio:     append([]track.Track{}, c.tracks.Audio...),
		Subtitles: append([]track.Track{}, c.tracks.Subtitles...),
	}
}

// LoadSubtitles parses subtitle text, hint being its file name or URL, and
// installs the cues. It returns the number of cues.
func (c *Controller) LoadSubtitles(content, hint string) int {
	cues := subtitle.Parse(content, hint)
	c.SetCues(cues)
	return len(cues)
}

// SetCues installs already parsed cues.
func (c *Controller) SetCues(cues []subtitle.Cue) {
	tl := subtitle.NewTimeline(cues)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeline = tl
}

// SetSubtitleOffset delays cues by seconds; negative values show them earlier.
func (c *Controller) SetSubtitleOffset(seconds float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subOffset = seconds
}

// ActiveCues returns the cues to display at the current position.
func (c *Controller) ActiveCues() []subtitle.Cue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeline.At(c.state.Position - c.subOffset)
}

// Close tears down the active engine and waits for background work. It
// must not be called from a Listener callback.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.epoch++
	a := c.adapter
	c.adapter = nil
	c.guard.Cancel()
	c.cancel()
	c.unlock()

	var err error
	if a != nil {
		err = a.Close()
	}
	c.wg.Wait()
	return err
}

// usable reports why commands cannot be issued, if they cannot.
func (c *Controller) usable() error {
	switch {
	case c.closed:
		return ErrClosed
	case !c.opened:
		return ErrNotOpen
	default:
		return nil
	}
}

// spawn runs fn on its own goroutine once the lock is released.
// Close waits for it.
func (c *Controller) spawn(fn func()) {
	c.wg.Add(1)
	c.pending = append(c.pending, func() {
		go func() {
			defer c.wg.Done()
			fn()
		}()
	})
}

// notify queues a listener notification.
func (c *Controller) notify(fn func(Listener)) {
	l := c.listener
	c.pending = append(c.pending, func() { fn(l) })
}

// unlock releases the lock and runs queued work in order. If another
// goroutine, or an outer frame of this one, is already dispatching, the
// work is left for it.
func (c *Controller) unlock() {
	if c.dispatching {
		c.mu.Unlock()
		return
	}
	c.dispatching = true

	for len(c.pending) > 0 {
		work := c.pending
		c.pending = nil
		c.mu.Unlock()

		for _, fn := range work {
			fn()
		}

		c.mu.Lock()
	}

	c.dispatching = false
	c.mu.Unlock()
}
