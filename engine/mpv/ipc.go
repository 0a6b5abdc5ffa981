package mpv

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kinoplay/kinoplay/log"
)

// Event is one JSON message mpv pushed to its IPC clients.
type Event map[string]any

// Name returns the event type, or "" for command replies.
func (e Event) Name() string {
	name, _ := e["event"].(string)
	return name
}

// Conn is a JSON-IPC client connection.
//
// Send writes one command and returns without waiting for mpv's reply.
// Events yields pushed events in arrival order and is closed when the
// connection ends.
type Conn interface {
	Send(command ...any) error
	Events() <-chan Event
	Close() error
}

// ipcCommand is the JSON structure sent to mpv's IPC socket.
type ipcCommand struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

const (
	writeDeadline = time.Second
	eventBuffer   = 64
	// lines can be long: track-list carries every track's metadata
	maxLineSize = 1 << 20
)

type ipcConn struct {
	conn      net.Conn
	writeMu   sync.Mutex
	requestID atomic.Int64
	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to the mpv IPC socket at path and starts reading events.
func Dial(ctx context.Context, path string) (Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "unix", path)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	c := &ipcConn{
		conn:   conn,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *ipcConn) Send(command ...any) error {
	payload, err := json.Marshal(ipcCommand{
		Command:   command,
		RequestID: c.requestID.Add(1),
	})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeDeadline)); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}

	// mpv requires newline-delimited JSON
	if _, err := c.conn.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (c *ipcConn) Events() <-chan Event {
	return c.events
}

func (c *ipcConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

// readLoop splits the stream into JSON lines. Replies to our commands are
// only inspected for errors since every command is fire-and-forget.
func (c *ipcConn) readLoop() {
	defer close(c.events)

	scanner := bufio.NewScanner(c.conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)

	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			continue
		}

		if ev.Name() == "" {
			if msg, _ := ev["error"].(string); msg != "" && msg != "success" {
				log.Debugf("mpv: request %v failed: %s", ev["request_id"], msg)
			}
			continue
		}

		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}

	select {
	case <-c.done:
	default:
		if err := scanner.Err(); err != nil {
			log.Warnf("mpv: ipc read error: %v", err)
		}
	}
}
