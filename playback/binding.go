package playback

import (
	"github.com/kinoplay/kinoplay/codecerr"
	"github.com/kinoplay/kinoplay/engine"
	"github.com/kinoplay/kinoplay/metrics"
	"github.com/kinoplay/kinoplay/track"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// binding routes one adapter instance's notifications into the controller,
// tagged with the epoch it was installed under.
type binding struct {
	c     *Controller
	epoch uint64
}

func (b *binding) OnLoad(info engine.LoadInfo) { b.c.onLoad(b.epoch, info) }
func (b *binding) OnProgress(p engine.Progress) { b.c.onProgress(b.epoch, p) }
func (b *binding) OnEnd() { b.c.onEnd(b.epoch) }
func (b *binding) OnError(raw any) { b.c.onError(b.epoch, raw) }
func (b *binding) OnTracks(raw any) { b.c.onTracks(b.epoch, raw) }

// enter locks the controller and reports whether epoch is still current.
// On false the lock has been released.
func (c *Controller) enter(epoch uint64, what string) bool {
	c.mu.Lock()
	if c.closed || epoch != c.epoch {
		c.logger.WithField("epoch", epoch).Tracef("dropping stale %s", what)
		c.mu.Unlock()
		return false
	}
	return true
}

func (c *Controller) onLoad(epoch uint64, info engine.LoadInfo) {
	if !c.enter(epoch, "load") {
		return
	}

	if c.state.Phase != Loading {
		c.mu.Unlock()
		return
	}

	if info.Duration > 0 {
		c.state.Duration = info.Duration
	}
	c.state.Phase = Ready
	c.state.Paused = false

	ev := LoadEvent{Duration: c.state.Duration, Width: info.Width, Height: info.Height}
	c.notify(func(l Listener) { l.OnLoad(ev) })
	c.unlock()
}

func (c *Controller) onProgress(epoch uint64, p engine.Progress) {
	if !c.enter(epoch, "progress") {
		return
	}

	if p.Duration > 0 {
		c.state.Duration = p.Duration
	}

	// the engine may still report the position from before the seek
	if !c.state.Phase.playing() || c.guard.Active() {
		c.mu.Unlock()
		return
	}

	c.state.Position = p.CurrentTime
	ev := ProgressEvent{CurrentTime: p.CurrentTime, Duration: c.state.Duration}
	c.notify(func(l Listener) { l.OnProgress(ev) })
	c.unlock()
}

func (c *Controller) onEnd(epoch uint64) {
	if !c.enter(epoch, "end") {
		return
	}

	if !c.state.Phase.playing() {
		c.mu.Unlock()
		return
	}

	c.guard.Cancel()
	c.state.Phase = Ended
	if c.state.Duration > 0 {
		c.state.Position = c.state.Duration
	}
	c.notify(func(l Listener) { l.OnEnd() })
	c.unlock()
}

func (c *Controller) onError(epoch uint64, raw any) {
	if !c.enter(epoch, "error") {
		return
	}

	switch c.state.Phase {
	case Loading, Ready, Seeking:
	default:
		c.logger.Debugf("ignoring error while %s: %v", c.state.Phase, codecerr.Normalize(raw))
		c.mu.Unlock()
		return
	}

	report := codecerr.Classify(raw)
	if c.state.Engine == engine.Primary && report.Fallback {
		c.switchToFallback(report)
	} else {
		c.fail(report.Normalized)
	}
	c.unlock()
}

// switchToFallback replaces the primary adapter with the fallback one at
// the last known position. There is no way back to the primary engine.
func (c *Controller) switchToFallback(report codecerr.Report) {
	c.logger.WithField("cause", report.Normalized).Warn("primary engine cannot decode the stream, switching to fallback")
	metrics.RecordPlaybackError(engine.Primary.String(), metrics.VerdictFallback)

	c.state.Phase = Switching
	c.guard.Cancel()
	c.remap = c.currentSelection()

	old := c.adapter
	c.adapter = nil
	c.spawn(func() { _ = old.Close() })

	fb, err := c.factory(engine.Fallback)
	if err != nil {
		c.state.Engine = engine.Fallback
		c.fail(codecerr.Normalize(err))
		return
	}

	metrics.RecordEngineSwitch()
	c.state.Engine = engine.Fallback
	c.state.Phase = Loading
	c.state.AudioTrack = mo.None[int]()
	c.state.SubtitleTrack = mo.None[int]()
	c.tracks = emptyTracks()

	c.install(nil, fb)
	c.notify(func(l Listener) { l.OnEngineChanged(engine.Fallback) })
}

// fail enters Failed and reports msg. The failed adapter is closed.
func (c *Controller) fail(msg string) {
	c.logger.WithField("engine", c.state.Engine).Errorf("playback failed: %s", msg)
	metrics.RecordPlaybackError(c.state.Engine.String(), metrics.VerdictFatal)

	c.guard.Cancel()
	c.state.Phase = Failed

	// nothing from the failed engine is delivered after this
	c.epoch++
	if a := c.adapter; a != nil {
		c.adapter = nil
		c.spawn(func() { _ = a.Close() })
	}

	ev := ErrorEvent{Message: msg}
	c.notify(func(l Listener) { l.OnError(ev) })
}

func (c *Controller) currentSelection() *selection {
	lookup := func(kind track.Kind, id mo.Option[int]) mo.Option[track.Track] {
		v, ok := id.Get()
		if !ok {
			return mo.None[track.Track]()
		}
		t, ok := c.tracks.Lookup(kind, v)
		return lo.Ternary(ok, mo.Some(t), mo.None[track.Track]())
	}

	return &selection{
		audio:    lookup(track.Audio, c.state.AudioTrack),
		subtitle: lookup(track.Subtitle, c.state.SubtitleTrack),
	}
}

func (c *Controller) onTracks(epoch uint64, raw any) {
	if !c.enter(epoch, "tracks") {
		return
	}

	set := track.Normalize(raw, c.state.Engine)
	c.tracks = set

	// selections made on this engine must still exist
	if id, ok := c.state.AudioTrack.Get(); ok {
		if _, found := set.Lookup(track.Audio, id); !found {
			c.state.AudioTrack = mo.None[int]()
		}
	}
	if id, ok := c.state.SubtitleTrack.Get(); ok {
		if _, found := set.Lookup(track.Subtitle, id); !found {
			c.state.SubtitleTrack = mo.None[int]()
		}
	}

	if sel := c.remap; sel != nil && !set.Empty() {
		c.remap = nil
		c.applySelection(sel, set)
	}

	ev := TracksEvent{
		AudioTracks:    append([]track.Track{}, set.Audio...),
		SubtitleTracks: append([]track.Track{}, set.Subtitles...),
	}
	c.notify(func(l Listener) { l.OnTracksChanged(ev) })
	c.unlock()
}

// applySelection carries the pre-switch track choice over to the new
// engine's tracks by language or name. Unmatched choices stay unset.
func (c *Controller) applySelection(sel *selection, set track.Set) {
	if prev, ok := sel.audio.Get(); ok {
		if t, found := track.Remap(prev, set.Audio).Get(); found {
			c.logger.Debugf("audio track %q remapped to %q", prev, t)
			c.state.AudioTrack = mo.Some(t.ID)
			c.command(func(a engine.Adapter) error { return a.SetAudioTrack(t.ID) })
		}
	}

	if c.subDisabled {
		c.command(func(a engine.Adapter) error { return a.SetSubtitleTrack(-1) })
		return
	}
	if prev, ok := sel.subtitle.Get(); ok {
		if t, found := track.Remap(prev, set.Subtitles).Get(); found {
			c.logger.Debugf("subtitle track %q remapped to %q", prev, t)
			c.state.SubtitleTrack = mo.Some(t.ID)
			c.command(func(a engine.Adapter) error { return a.SetSubtitleTrack(t.ID) })
		}
	}
}
