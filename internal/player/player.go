// Package player controls audio playback through an mpv subprocess over its
// JSON IPC socket. It is the sole owner of the transport: every play, pause,
// and stop goes through the Controller, and state changes come back as
// events rather than return values.
package player

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// Event describes playback state updates emitted by mpv.
type Event struct {
	// Ready fires when a loaded file is buffered enough to play.
	Ready bool
	// Ended fires when the track ends naturally (eof), not on stop.
	Ended bool
	// Paused carries pause-property changes.
	Paused *bool
	// Err reports IPC failures; the controller is unusable afterwards.
	Err error
}

// Options configures the Controller.
type Options struct {
	MPVPath string
	IPCPath string
	Logger  *slog.Logger
	// DisableProcess skips spawning mpv; used by tests that run their own
	// fake IPC endpoint.
	DisableProcess bool
	Dial           func(ctx context.Context, network, addr string) (net.Conn, error)
}

// Controller manages the mpv process and IPC connection.
type Controller struct {
	opts   Options
	cmd    *exec.Cmd
	conn   net.Conn
	mu     sync.Mutex
	events chan Event
}

// New creates a controller. Call Start before any transport method.
func New(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.MPVPath == "" {
		opts.MPVPath = "mpv"
	}
	if opts.IPCPath == "" {
		opts.IPCPath = defaultIPCPath()
	}
	return &Controller{
		opts:   opts,
		events: make(chan Event, 32),
	}
}

func defaultIPCPath() string {
	if runtime.GOOS == "windows" {
		return `\\.\pipe\yearjam-mpv`
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("yearjam-mpv-%d.sock", os.Getpid()))
}

// Events returns the playback event stream.
func (c *Controller) Events() <-chan Event {
	return c.events
}

// Start launches mpv (unless disabled) and connects to the IPC socket.
func (c *Controller) Start(ctx context.Context) error {
	if !c.opts.DisableProcess {
		args := []string{
			"--idle=yes",
			"--no-video",
			"--no-terminal",
			"--force-window=no",
			"--input-ipc-server=" + c.opts.IPCPath,
		}
		c.cmd = exec.CommandContext(ctx, c.opts.MPVPath, args...)
		if err := c.cmd.Start(); err != nil {
			return fmt.Errorf("start mpv: %w", err)
		}
	}

	if err := c.connect(ctx); err != nil {
		return err
	}
	if err := c.command("observe_property", 1, "pause"); err != nil {
		return fmt.Errorf("observe pause: %w", err)
	}
	go c.readLoop()
	return nil
}

// connect retries the IPC dial while mpv creates its socket.
func (c *Controller) connect(ctx context.Context) error {
	dial := c.opts.Dial
	if dial == nil {
		dial = (&net.Dialer{Timeout: 5 * time.Second}).DialContext
	}

	var lastErr error
	delay := 50 * time.Millisecond
	for i := 0; i < 10; i++ {
		conn, err := dial(ctx, "unix", c.opts.IPCPath)
		if err == nil {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
			return nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay < 500*time.Millisecond {
			delay *= 2
		}
	}
	return fmt.Errorf("connect to mpv ipc: %w", lastErr)
}

// Load replaces the current track and starts playback.
func (c *Controller) Load(url string) error {
	if err := c.command("loadfile", url, "replace"); err != nil {
		return err
	}
	return c.setPause(false)
}

// Pause pauses playback.
func (c *Controller) Pause() error { return c.setPause(true) }

// Resume resumes playback.
func (c *Controller) Resume() error { return c.setPause(false) }

// Stop stops playback and drops the current track.
func (c *Controller) Stop() error { return c.command("stop") }

func (c *Controller) setPause(v bool) error {
	return c.command("set_property", "pause", v)
}

// Close shuts mpv down.
func (c *Controller) Close() error {
	_ = c.command("quit")
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn != nil {
		conn.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		_ = c.cmd.Wait()
	}
	return nil
}

// command sends one IPC command line.
func (c *Controller) command(args ...any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return fmt.Errorf("not connected")
	}
	payload, err := json.Marshal(map[string]any{"command": args})
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}
	if _, err := c.conn.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	return nil
}

// ipcMessage is the subset of mpv's IPC output the controller cares about.
type ipcMessage struct {
	Event  string          `json:"event"`
	Name   string          `json:"name"`
	Data   json.RawMessage `json:"data"`
	Reason string          `json:"reason"`
}

func (c *Controller) readLoop() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var msg ipcMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			c.opts.Logger.Debug("unparseable ipc line", slog.Any("err", err))
			continue
		}
		c.dispatch(msg)
	}
	if err := scanner.Err(); err != nil {
		c.emit(Event{Err: fmt.Errorf("ipc read: %w", err)})
	}
}

func (c *Controller) dispatch(msg ipcMessage) {
	switch msg.Event {
	case "file-loaded":
		c.emit(Event{Ready: true})
	case "end-file":
		if msg.Reason == "eof" {
			c.emit(Event{Ended: true})
		}
	case "property-change":
		if msg.Name == "pause" && len(msg.Data) > 0 {
			var paused bool
			if json.Unmarshal(msg.Data, &paused) == nil {
				c.emit(Event{Paused: &paused})
			}
		}
	}
}

// emit never blocks; a slow consumer loses old events rather than stalling
// the read loop.
func (c *Controller) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.opts.Logger.Debug("event dropped", slog.Any("event", ev))
	}
}
