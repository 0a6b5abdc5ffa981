package playback

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/kinoplay/kinoplay/engine"
)

type manualTimer struct {
	f       func()
	stopped bool
	fired   bool
}

type manualClock struct {
	mu     sync.Mutex
	timers []*manualTimer
}

func (c *manualClock) AfterFunc(_ time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{f: f}
	c.timers = append(c.timers, t)
	return &clockTimer{clock: c, t: t}
}

type clockTimer struct {
	clock *manualClock
	t     *manualTimer
}

func (ct *clockTimer) Stop() bool {
	ct.clock.mu.Lock()
	defer ct.clock.mu.Unlock()
	was := !ct.t.stopped && !ct.t.fired
	ct.t.stopped = true
	return was
}

// Fire runs every pending timer.
func (c *manualClock) Fire() {
	c.mu.Lock()
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	c.timers = nil
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

func (c *manualClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

type loadCall struct {
	descriptor engine.Descriptor
	start      float64
}

type fakeAdapter struct {
	kind    engine.Kind
	loadErr error
	loads   chan loadCall
	closed  chan struct{}

	mu        sync.Mutex
	listener  engine.Listener
	calls     []string
	closeOnce sync.Once
}

func newFakeAdapter(kind engine.Kind) *fakeAdapter {
	return &fakeAdapter{
		kind:   kind,
		loads:  make(chan loadCall, 4),
		closed: make(chan struct{}),
	}
}

func (f *fakeAdapter) Kind() engine.Kind { return f.kind }

func (f *fakeAdapter) Subscribe(l engine.Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = l
}

func (f *fakeAdapter) Load(_ context.Context, d engine.Descriptor, start float64) error {
	f.loads <- loadCall{descriptor: d, start: start}
	return f.loadErr
}

func (f *fakeAdapter) record(format string, args ...any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
	return nil
}

func (f *fakeAdapter) Play() error { return f.record("play") }
func (f *fakeAdapter) Pause() error { return f.record("pause") }
func (f *fakeAdapter) Seek(seconds float64) error { return f.record("seek %.3f", seconds) }
func (f *fakeAdapter) SetAudioTrack(id int) error { return f.record("audio %d", id) }
func (f *fakeAdapter) SetSubtitleTrack(id int) error { return f.record("subtitle %d", id) }

func (f *fakeAdapter) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeAdapter) events() engine.Listener {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listener
}

func (f *fakeAdapter) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.calls...)
}

// awaitLoad waits for the controller's background Load call.
func (f *fakeAdapter) awaitLoad() (loadCall, error) {
	select {
	case call := <-f.loads:
		return call, nil
	case <-time.After(2 * time.Second):
		return loadCall{}, errors.New("no load")
	}
}

func (f *fakeAdapter) awaitClose() bool {
	select {
	case <-f.closed:
		return true
	case <-time.After(2 * time.Second):
		return false
	}
}

type fakeFactory struct {
	mu       sync.Mutex
	adapters map[engine.Kind]*fakeAdapter
	errs     map[engine.Kind]error
	loadErrs map[engine.Kind]error
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		adapters: map[engine.Kind]*fakeAdapter{},
		errs:     map[engine.Kind]error{},
		loadErrs: map[engine.Kind]error{},
	}
}

func (f *fakeFactory) New(kind engine.Kind) (engine.Adapter, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[kind]; err != nil {
		return nil, err
	}
	a := newFakeAdapter(kind)
	a.loadErr = f.loadErrs[kind]
	f.adapters[kind] = a
	return a, nil
}

func (f *fakeFactory) get(kind engine.Kind) *fakeAdapter {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.adapters[kind]
}

type eventLog struct {
	mu     sync.Mutex
	events []string
	errors []string
}

func (e *eventLog) add(format string, args ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, fmt.Sprintf(format, args...))
}

func (e *eventLog) all() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string{}, e.events...)
}

func (e *eventLog) listener() ListenerFuncs {
	return ListenerFuncs{
		Load:     func(ev LoadEvent) { e.add("load %.1f", ev.Duration) },
		Progress: func(ev ProgressEvent) { e.add("progress %.3f", ev.CurrentTime) },
		End:      func() { e.add("end") },
		Error: func(ev ErrorEvent) {
			e.add("error %s", ev.Message)
		},
		TracksChanged: func(ev TracksEvent) {
			e.add("tracks %d/%d", len(ev.AudioTracks), len(ev.SubtitleTracks))
		},
		EngineChanged: func(k engine.Kind) { e.add("engine %s", k) },
	}
}

func nan() float64 {
	return math.NaN()
}
