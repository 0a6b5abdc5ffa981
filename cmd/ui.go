package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/AlecAivazis/survey/v2"
	"github.com/kinoplay/kinoplay/color"
	"github.com/kinoplay/kinoplay/engine"
	"github.com/kinoplay/kinoplay/icon"
	"github.com/kinoplay/kinoplay/log"
	"github.com/kinoplay/kinoplay/playback"
	"github.com/kinoplay/kinoplay/style"
	"github.com/kinoplay/kinoplay/track"
	"github.com/kinoplay/kinoplay/util"
	"github.com/muesli/reflow/truncate"
	"github.com/samber/lo"
	"golang.org/x/term"
)

// playerUI prints playback notifications and a one-line status. The
// status line is only drawn on a terminal.
type playerUI struct {
	out         io.Writer
	interactive bool
	pick        bool

	done   chan error
	tracks chan playback.TracksEvent

	mu         sync.Mutex
	controller *playback.Controller
	engine     engine.Kind
	erase      func()
	prompting  bool
	picked     bool
}

func newPlayerUI(out io.Writer, pick bool) *playerUI {
	interactive := false
	if f, ok := out.(*os.File); ok {
		interactive = term.IsTerminal(int(f.Fd()))
	}

	return &playerUI{
		out:         out,
		interactive: interactive,
		pick:        pick && interactive,
		done:        make(chan error, 1),
		tracks:      make(chan playback.TracksEvent, 1),
	}
}

func (u *playerUI) listener() playback.Listener {
	return playback.ListenerFuncs{
		Load: func(ev playback.LoadEvent) {
			info := formatClock(ev.Duration)
			if ev.Width > 0 && ev.Height > 0 {
				info += fmt.Sprintf(", %dx%d", ev.Width, ev.Height)
			}
			u.message(icon.Play, fmt.Sprintf("playing on the %s engine (%s)", u.currentEngine(), info))
		},
		Progress:      u.progress,
		End:           func() { u.finish(nil) },
		Error:         func(ev playback.ErrorEvent) { u.finish(errors.New(ev.Message)) },
		TracksChanged: u.tracksChanged,
		EngineChanged: u.engineChanged,
	}
}

// run blocks until playback ends, fails or ctx is cancelled. Track
// prompts run here, off the notification path.
func (u *playerUI) run(ctx context.Context, c *playback.Controller) error {
	u.mu.Lock()
	u.controller = c
	u.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-u.done:
			return err
		case ev := <-u.tracks:
			u.pickTracks(c, ev)
		}
	}
}

func (u *playerUI) finish(err error) {
	select {
	case u.done <- err:
	default:
	}
}

func (u *playerUI) currentEngine() engine.Kind {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.engine
}

func (u *playerUI) engineChanged(kind engine.Kind) {
	u.mu.Lock()
	previous := u.engine
	u.engine = kind
	u.mu.Unlock()

	if kind == engine.Fallback && previous == engine.Primary {
		u.message(icon.Switch, "the primary engine cannot decode this stream, continuing on the fallback engine")
	}
}

func (u *playerUI) tracksChanged(ev playback.TracksEvent) {
	log.Debugf("tracks: %d audio, %d subtitle", len(ev.AudioTracks), len(ev.SubtitleTracks))
	if !u.pick {
		return
	}

	u.mu.Lock()
	if u.picked || (len(ev.AudioTracks) < 2 && len(ev.SubtitleTracks) == 0) {
		u.mu.Unlock()
		return
	}
	u.picked = true
	u.mu.Unlock()

	select {
	case u.tracks <- ev:
	default:
	}
}

func (u *playerUI) progress(ev playback.ProgressEvent) {
	if !u.interactive {
		return
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.prompting {
		return
	}

	line := fmt.Sprintf("%s %s / %s %s",
		icon.Get(icon.Play),
		formatClock(ev.CurrentTime),
		formatClock(ev.Duration),
		style.Faint("["+u.engine.String()+"]"),
	)

	if c := u.controller; c != nil {
		if cues := c.ActiveCues(); len(cues) > 0 {
			text := strings.Join(strings.Fields(cues[len(cues)-1].Text), " ")
			line += " " + style.Fg(color.Yellow)(text)
		}
	}

	if width, _, err := util.TerminalSize(); err == nil && width > 1 {
		line = truncate.StringWithTail(line, uint(width-1), "…")
	}

	u.eraseLocked()
	u.erase = util.PrintErasable(line)
}

func (u *playerUI) message(i icon.Icon, text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.eraseLocked()
	_, _ = fmt.Fprintf(u.out, "%s %s\n", icon.Get(i), text)
}

func (u *playerUI) clear() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.eraseLocked()
}

func (u *playerUI) eraseLocked() {
	if u.erase != nil {
		u.erase()
		u.erase = nil
	}
}

func (u *playerUI) setPrompting(v bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.prompting = v
	u.eraseLocked()
}

func (u *playerUI) pickTracks(c *playback.Controller, ev playback.TracksEvent) {
	u.setPrompting(true)
	defer u.setPrompting(false)

	names := func(tracks []track.Track) []string {
		return lo.Map(tracks, func(t track.Track, _ int) string { return t.String() })
	}

	if len(ev.AudioTracks) > 1 {
		var choice int
		prompt := &survey.Select{Message: "Audio track", Options: names(ev.AudioTracks)}
		if err := survey.AskOne(prompt, &choice); err != nil {
			log.Warnf("audio track prompt: %v", err)
			return
		}
		if err := c.SetAudioTrack(ev.AudioTracks[choice].ID); err == nil {
			u.message(icon.Audio, ev.AudioTracks[choice].String())
		}
	}

	if len(ev.SubtitleTracks) > 0 {
		var choice int
		prompt := &survey.Select{
			Message: "Subtitles",
			Options: append([]string{"None"}, names(ev.SubtitleTracks)...),
		}
		if err := survey.AskOne(prompt, &choice); err != nil {
			log.Warnf("subtitle track prompt: %v", err)
			return
		}
		if choice == 0 {
			_ = c.SetSubtitleTrack(-1)
		} else if err := c.SetSubtitleTrack(ev.SubtitleTracks[choice-1].ID); err == nil {
			u.message(icon.Subtitle, ev.SubtitleTracks[choice-1].String())
		}
	}
}

// formatClock renders seconds as H:MM:SS, or M:SS under an hour.
func formatClock(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	s := int(seconds)
	if s < 3600 {
		return fmt.Sprintf("%d:%02d", s/60, s%60)
	}
	return fmt.Sprintf("%d:%02d:%02d", s/3600, s/60%60, s%60)
}
