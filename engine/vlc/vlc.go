// Package vlc implements the software-decoding fallback engine on top of
// VLC's HTTP control interface.
package vlc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kinoplay/kinoplay/constant"
	"github.com/kinoplay/kinoplay/engine"
	"github.com/kinoplay/kinoplay/engine/process"
	"github.com/kinoplay/kinoplay/log"
	"github.com/kinoplay/kinoplay/network"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

const (
	defaultPollInterval = time.Second
	commandTimeout      = 2 * time.Second
	quitGrace           = 3 * time.Second
)

var errClosed = errors.New("vlc: adapter closed")

// Client sends requests to the HTTP interface. *http.Client satisfies it.
type Client interface {
	Do(req *http.Request) (*http.Response, error)
}

// Options configure the VLC process.
type Options struct {
	// Binary is the vlc executable.
	Binary string
	// PollInterval is how often status.json is requested.
	PollInterval time.Duration
	// Args are appended before the target.
	Args []string
}

// starter launches VLC with args and returns the base URL of its HTTP
// interface. The process is nil when the interface is not backed by one.
type starter func(ctx context.Context, args []string, port int) (string, *process.Process, error)

// Adapter drives one VLC instance.
type Adapter struct {
	opts   Options
	client Client
	start  starter
	logger *logrus.Entry

	mu       sync.Mutex
	listener engine.Listener
	base     string
	password string
	proc     *process.Process
	cancel   context.CancelFunc
	done     chan struct{}
	loading  bool
	closed   bool
}

// New creates an adapter. Nothing is started until Load.
func New(opts Options) *Adapter {
	if opts.Binary == "" {
		opts.Binary = constant.DefaultFallbackBinary
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	return &Adapter{
		opts:   opts,
		client: network.Client,
		start:  launch(opts.Binary),
		logger: log.Component("vlc"),
	}
}

func (a *Adapter) Kind() engine.Kind {
	return engine.Fallback
}

func (a *Adapter) Subscribe(l engine.Listener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listener = l
}

// Load starts VLC on d at start seconds and begins polling its status.
func (a *Adapter) Load(ctx context.Context, d engine.Descriptor, start float64) error {
	a.mu.Lock()
	switch {
	case a.closed:
		a.mu.Unlock()
		return errClosed
	case a.loading || a.base != "":
		a.mu.Unlock()
		return errors.New("vlc: already loaded")
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

	port, err := freePort()
	if err != nil {
		return fmt.Errorf("reserve http port: %w", err)
	}

	password := uuid.NewString()
	args := buildArgs(a.opts, port, password, target, d.Clone(), start)

	base, proc, err := a.start(ctx, args, port)
	if err != nil {
		return err
	}

	pollCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		cancel()
		proc.Stop(0)
		return errClosed
	}
	a.base, a.password, a.proc, a.cancel, a.done = base, password, proc, cancel, done
	a.mu.Unlock()

	var exited <-chan struct{}
	if proc != nil {
		exited = proc.Exited()
	}
	go a.poll(pollCtx, exited, done)

	a.logger.WithField("target", target).Infof("vlc started at %.3fs", start)
	return nil
}

func (a *Adapter) Play() error {
	return a.command("pl_play", "")
}

func (a *Adapter) Pause() error {
	return a.command("pl_forcepause", "")
}

func (a *Adapter) Seek(seconds float64) error {
	// the interface takes whole seconds or a percentage; whole seconds it is
	return a.command("seek", strconv.Itoa(int(seconds)))
}

func (a *Adapter) SetAudioTrack(id int) error {
	return a.command("audio_track", strconv.Itoa(id))
}

func (a *Adapter) SetSubtitleTrack(id int) error {
	if id < 0 {
		id = -1
	}
	return a.command("subtitle_track", strconv.Itoa(id))
}

// Close stops polling and quits VLC.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	base, proc, cancel, done := a.base, a.proc, a.cancel, a.done
	a.mu.Unlock()

	if base == "" {
		return nil
	}

	cancel()
	<-done

	if proc != nil {
		ctx, stop := context.WithTimeout(context.Background(), commandTimeout)
		_ = a.request(ctx, base, "pl_stop", "")
		stop()
		// the http interface has no quit command
		proc.Stop(quitGrace)
	}
	return nil
}

func (a *Adapter) command(name, val string) error {
	a.mu.Lock()
	base, closed := a.base, a.closed
	a.mu.Unlock()

	switch {
	case closed:
		return errClosed
	case base == "":
		return engine.ErrNotLoaded
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return a.request(ctx, base, name, val)
}

func (a *Adapter) request(ctx context.Context, base, name, val string) error {
	q := url.Values{"command": {name}}
	if val != "" {
		q.Set("val", val)
	}

	resp, err := a.get(ctx, base+"/requests/status.json?"+q.Encode())
	if err != nil {
		return fmt.Errorf("vlc %s: %w", name, err)
	}
	_ = resp.Body.Close()
	return nil
}

func (a *Adapter) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := network.NewRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	req.SetBasicAuth("", a.password)
	a.mu.Unlock()

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return resp, nil
}

// buildArgs assembles the VLC command line. The target always comes last.
func buildArgs(opts Options, port int, password, target string, d engine.Descriptor, start float64) []string {
	args := []string{
		"--intf=http",
		"--http-host=127.0.0.1",
		fmt.Sprintf("--http-port=%d", port),
		fmt.Sprintf("--http-password=%s", password),
		"--avcodec-hw=none",
		"--no-video-title-show",
		"--play-and-exit",
	}

	if title := engine.SanitizeTitle(d.Title); title != "" {
		args = append(args, fmt.Sprintf("--meta-title=%s", title))
	}

	if start > 0 {
		args = append(args, fmt.Sprintf("--start-time=%.3f", start))
	}

	// VLC only exposes these two request headers as options
	keys := lo.Keys(d.Headers)
	slices.Sort(keys)
	for _, k := range keys {
		v := d.Headers[k]
		switch strings.ToLower(k) {
		case "referer":
			args = append(args, fmt.Sprintf("--http-referrer=%s", v))
		case "user-agent":
			args = append(args, fmt.Sprintf("--http-user-agent=%s", v))
		default:
			log.Debugf("vlc: header %s is not supported", k)
		}
	}

	args = append(args, opts.Args...)
	return append(args, target)
}

func launch(binary string) starter {
	return func(_ context.Context, args []string, port int) (string, *process.Process, error) {
		proc, err := process.Start(binary, args...)
		if err != nil {
			return "", nil, err
		}
		return fmt.Sprintf("http://127.0.0.1:%d", port), proc, nil
	}
}

// freePort asks the kernel for an unused loopback port.
func freePort() (int, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port, nil
}
