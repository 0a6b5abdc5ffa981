// Package mpv implements the primary, hardware-accelerated engine on top of
// mpv's JSON-IPC protocol.
package mpv

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kinoplay/kinoplay/constant"
	"github.com/kinoplay/kinoplay/engine"
	"github.com/kinoplay/kinoplay/engine/process"
	"github.com/kinoplay/kinoplay/log"
	"github.com/kinoplay/kinoplay/track"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

const (
	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
	quitGrace         = 3 * time.Second
)

var errClosed = errors.New("mpv: adapter closed")

// observed are the properties mpv pushes to us on change.
var observed = []string{"time-pos", "duration", "pause", "track-list", "width", "height"}

// Options configure the mpv process.
type Options struct {
	// Binary is the mpv executable.
	Binary string
	// HWDec is passed as --hwdec.
	HWDec string
	// SocketDir holds the IPC socket.
	SocketDir string
	// Args are appended before the target.
	Args []string
}

// connector starts mpv for target and returns a connection to it.
// The process is nil when the connection is not backed by one.
type connector func(ctx context.Context, args []string, socket string) (Conn, *process.Process, error)

// Adapter drives one mpv instance.
type Adapter struct {
	opts    Options
	connect connector
	logger  *logrus.Entry

	mu       sync.Mutex
	listener engine.Listener
	conn     Conn
	proc     *process.Process
	socket   string
	done     chan struct{}
	loading  bool
	closed   bool

	// positional index to mpv track id, per kind
	audioIDs []int
	subIDs   []int
}

// New creates an adapter. Nothing is started until Load.
func New(opts Options) *Adapter {
	if opts.Binary == "" {
		opts.Binary = constant.DefaultPrimaryBinary
	}
	if opts.HWDec == "" {
		opts.HWDec = "auto-safe"
	}
	return &Adapter{
		opts:    opts,
		connect: launch(opts.Binary),
		logger:  log.Component("mpv"),
	}
}

func (a *Adapter) Kind() engine.Kind {
	return engine.Primary
}

func (a *Adapter) Subscribe(l engine.Listener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listener = l
}

// Load starts mpv on d at start seconds.
func (a *Adapter) Load(ctx context.Context, d engine.Descriptor, start float64) error {
	a.mu.Lock()
	switch {
	case a.closed:
		a.mu.Unlock()
		return errClosed
	case a.loading || a.conn != nil:
		a.mu.Unlock()
		return errors.New("mpv: already loaded")
	}
	a.loading = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.loading = false
		a.mu.Unlock()
	}()

	target, err := engine.SanitizeTarget(d.URL)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}

	socket := filepath.Join(a.opts.SocketDir, socketName(uuid.NewString()[:8]))
	args := buildArgs(a.opts, socket, target, d.Clone(), start)

	conn, proc, err := a.connect(ctx, args, socket)
	if err != nil {
		return err
	}

	for i, name := range observed {
		if err := conn.Send("observe_property", i+1, name); err != nil {
			_ = conn.Close()
			proc.Stop(0)
			return fmt.Errorf("observe %s: %w", name, err)
		}
	}

	// decoder failures only show up in the log
	if err := conn.Send("request_log_messages", "error"); err != nil {
		_ = conn.Close()
		proc.Stop(0)
		return fmt.Errorf("request log messages: %w", err)
	}

	done := make(chan struct{})

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		_ = conn.Send("quit")
		_ = conn.Close()
		proc.Stop(quitGrace)
		return errClosed
	}
	a.conn, a.proc, a.socket, a.done = conn, proc, socket, done
	a.mu.Unlock()

	go a.loop(conn, done)

	a.logger.WithField("target", target).Infof("mpv started at %.3fs", start)
	return nil
}

func (a *Adapter) Play() error {
	return a.send("set_property", "pause", false)
}

func (a *Adapter) Pause() error {
	return a.send("set_property", "pause", true)
}

func (a *Adapter) Seek(seconds float64) error {
	return a.send("seek", seconds, "absolute")
}

func (a *Adapter) SetAudioTrack(id int) error {
	native, err := a.nativeID(track.Audio, id)
	if err != nil {
		return err
	}
	return a.send("set_property", "aid", native)
}

func (a *Adapter) SetSubtitleTrack(id int) error {
	if id < 0 {
		return a.send("set_property", "sid", "no")
	}
	native, err := a.nativeID(track.Subtitle, id)
	if err != nil {
		return err
	}
	return a.send("set_property", "sid", native)
}

// Close quits mpv and waits for the event loop to finish.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	conn, proc, socket, done := a.conn, a.proc, a.socket, a.done
	a.mu.Unlock()

	if conn == nil {
		return nil
	}

	_ = conn.Send("quit")
	_ = conn.Close()
	<-done
	proc.Stop(quitGrace)

	if socket != "" {
		_ = os.Remove(socket)
	}
	return nil
}

func (a *Adapter) send(command ...any) error {
	a.mu.Lock()
	conn, closed := a.conn, a.closed
	a.mu.Unlock()

	switch {
	case closed:
		return errClosed
	case conn == nil:
		return engine.ErrNotLoaded
	}
	return conn.Send(command...)
}

// nativeID translates a positional track id into mpv's own track id.
func (a *Adapter) nativeID(kind track.Kind, id int) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.conn == nil {
		return 0, engine.ErrNotLoaded
	}

	table := a.audioIDs
	if kind == track.Subtitle {
		table = a.subIDs
	}
	if id < 0 || id >= len(table) {
		return 0, fmt.Errorf("mpv: no %s track %d", kind, id)
	}
	return table[id], nil
}

// buildArgs assembles the mpv command line. The target always comes last.
func buildArgs(opts Options, socket, target string, d engine.Descriptor, start float64) []string {
	args := []string{
		"--no-terminal",
		"--really-quiet",
		fmt.Sprintf("--input-ipc-server=%s", socket),
		fmt.Sprintf("--hwdec=%s", opts.HWDec),
		"--force-window=yes",
		"--idle=yes",
	}

	if title := engine.SanitizeTitle(d.Title); title != "" {
		args = append(args, fmt.Sprintf("--force-media-title=%s", title))
	}

	if start > 0 {
		args = append(args, fmt.Sprintf("--start=%.3f", start))
	}

	if len(d.Headers) > 0 {
		keys := lo.Keys(d.Headers)
		slices.Sort(keys)
		fields := lo.Map(keys, func(k string, _ int) string {
			// commas separate fields in the option value
			return fmt.Sprintf("%s: %s", k, strings.ReplaceAll(d.Headers[k], ",", "%2C"))
		})
		args = append(args, fmt.Sprintf("--http-header-fields=%s", strings.Join(fields, ",")))
	}

	args = append(args, opts.Args...)
	return append(args, target)
}

// launch starts the mpv binary and connects once its IPC socket accepts.
func launch(binary string) connector {
	return func(ctx context.Context, args []string, socket string) (Conn, *process.Process, error) {
		proc, err := process.Start(binary, args...)
		if err != nil {
			return nil, nil, err
		}

		if err := waitForSocket(ctx, proc, socket); err != nil {
			if proc.Running() {
				log.Warnf("killing mpv: socket never became ready")
			}
			proc.Stop(0)
			return nil, nil, fmt.Errorf("mpv socket not ready: %w", err)
		}

		conn, err := Dial(ctx, socket)
		if err != nil {
			proc.Stop(0)
			return nil, nil, err
		}
		return conn, proc, nil
	}
}

// waitForSocket polls until the mpv IPC socket is accepting connections.
func waitForSocket(ctx context.Context, proc *process.Process, socket string) error {
	for i := 0; i < socketWaitRetries; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-proc.Exited():
			return errors.New("mpv exited before socket was ready")
		case <-time.After(socketWaitDelay):
		}

		conn, err := net.Dial("unix", socket)
		if err == nil {
			_ = conn.Close()
			return nil
		}
	}
	return fmt.Errorf("socket %s not ready after %d attempts", socket, socketWaitRetries)
}
