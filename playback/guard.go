package playback

import (
	"sync"
	"time"
)

// Timer is a pending Clock callback.
type Timer interface {
	Stop() bool
}

// Clock schedules the settle guard's timer.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Guard marks a window after a seek during which position reports from
// the engine are not trusted. There is no seek acknowledgment to wait for,
// so the window is time based.
type Guard struct {
	clock   Clock
	window  time.Duration
	onClear func()

	mu     sync.Mutex
	timer  Timer
	gen    uint64
	active bool
}

// NewGuard creates an inactive guard. onClear runs, without the guard's
// lock held, whenever a window elapses without being cancelled or restarted.
func NewGuard(clock Clock, window time.Duration, onClear func()) *Guard {
	if clock == nil {
		clock = realClock{}
	}
	return &Guard{clock: clock, window: window, onClear: onClear}
}

// Start opens a new window, cancelling the previous one.
func (g *Guard) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopLocked()
	g.gen++
	g.active = true

	gen := g.gen
	g.timer = g.clock.AfterFunc(g.window, func() { g.expire(gen) })
}

// Cancel closes the window without running onClear.
func (g *Guard) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.stopLocked()
	g.gen++
	g.active = false
}

// Active reports whether a window is open.
func (g *Guard) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

func (g *Guard) stopLocked() {
	if g.timer != nil {
		g.timer.Stop()
		g.timer = nil
	}
}

func (g *Guard) expire(gen uint64) {
	g.mu.Lock()
	if gen != g.gen || !g.active {
		g.mu.Unlock()
		return
	}
	g.active = false
	g.timer = nil
	g.mu.Unlock()

	if g.onClear != nil {
		g.onClear()
	}
}
