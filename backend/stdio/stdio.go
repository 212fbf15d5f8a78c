// Package stdio runs an agent CLI as a subprocess and adapts its JSONL
// output to backend events. Each submit call is one CLI invocation in
// stream mode; abort signals the process group and lets the CLI emit its
// aborted acknowledgement.
package stdio

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/lambdaflows/devteam/backend"
)

const (
	// maxLineSize bounds one JSONL line; large tool outputs can get long.
	maxLineSize = 10 * 1024 * 1024

	// stopGrace is the SIGTERM-to-SIGKILL window on Close.
	stopGrace = 500 * time.Millisecond

	eventBufSize = 64
)

// nopHandler is a slog.Handler that discards all output.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }

var nopLogger = slog.New(nopHandler{})

// Config describes how to invoke one agent CLI.
type Config struct {
	// Name is the agent type this CLI serves.
	Name string

	// Path is the CLI executable; resolved via PATH when not absolute.
	Path string

	// BaseArgs precede the per-call flags.
	BaseArgs []string

	// Env is appended to the inherited environment.
	Env map[string]string

	// Logger receives subprocess diagnostics.
	Logger *slog.Logger
}

// Client is a backend.Client over a JSONL agent CLI.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	live   map[*cliStream]struct{}
	closed bool
}

// NewClient creates a client for one CLI configuration.
func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = nopLogger
	}
	return &Client{
		cfg:    cfg,
		logger: logger,
		live:   make(map[*cliStream]struct{}),
	}
}

func (c *Client) Name() string { return c.cfg.Name }

// buildArgs assembles the CLI invocation for one call.
func (c *Client) buildArgs(prompt string, opts backend.SubmitOptions) ([]string, error) {
	args := append([]string(nil), c.cfg.BaseArgs...)
	args = append(args, "--output-format", "stream-json")
	if opts.ContinuationID != "" {
		args = append(args, "--resume", opts.ContinuationID)
	}
	if opts.PermissionMode != "" {
		args = append(args, "--permission-mode", opts.PermissionMode)
	}
	if opts.Model != "" {
		args = append(args, "--model", opts.Model)
	}
	if len(opts.ToolServers) > 0 {
		cfg, err := json.Marshal(opts.ToolServers)
		if err != nil {
			return nil, fmt.Errorf("marshal tool servers: %w", err)
		}
		args = append(args, "--tool-servers", string(cfg))
	}
	args = append(args, "-p", prompt)
	return args, nil
}

func (c *Client) Submit(ctx context.Context, prompt string, opts backend.SubmitOptions) (backend.Stream, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.New("stdio: client closed")
	}
	c.mu.Unlock()

	args, err := c.buildArgs(prompt, opts)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(c.cfg.Path, args...)
	cmd.Env = os.Environ()
	for k, v := range c.cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	if opts.WorkDir != "" {
		cmd.Dir = opts.WorkDir
	}
	setProcAttr(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("agent CLI %q not found: %w", c.cfg.Path, err)
		}
		return nil, fmt.Errorf("start agent CLI: %w", err)
	}

	s := &cliStream{
		client: c,
		cmd:    cmd,
		events: make(chan backend.Event, eventBufSize),
		logger: c.logger,
	}
	c.mu.Lock()
	c.live[s] = struct{}{}
	c.mu.Unlock()

	go s.readLoop(stdout)
	return s, nil
}

// Ping checks that the CLI executable is reachable.
func (c *Client) Ping(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("stdio: client closed")
	}
	c.mu.Unlock()
	_, err := exec.LookPath(c.cfg.Path)
	return err
}

// Close stops all live subprocesses.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	live := make([]*cliStream, 0, len(c.live))
	for s := range c.live {
		live = append(live, s)
	}
	c.mu.Unlock()

	for _, s := range live {
		_ = s.Close()
	}
	return nil
}

func (c *Client) forget(s *cliStream) {
	c.mu.Lock()
	delete(c.live, s)
	c.mu.Unlock()
}

// cliStream adapts one CLI invocation's stdout to a backend event channel.
type cliStream struct {
	client *Client
	cmd    *exec.Cmd
	events chan backend.Event
	logger *slog.Logger

	closeOnce sync.Once
}

func (s *cliStream) readLoop(stdout io.Reader) {
	defer func() {
		_ = s.cmd.Wait()
		s.client.forget(s)
		close(s.events)
	}()

	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		ev, err := decodeLine(line)
		if err != nil {
			s.logger.Warn("bad CLI line", "error", err)
			continue
		}
		if ev == nil {
			continue
		}
		s.events <- ev
		if ev.BackendEventKind() == backend.KindEnd {
			return
		}
	}
	if err := sc.Err(); err != nil {
		s.logger.Warn("CLI stdout read failed", "error", err)
	}
}

func (s *cliStream) Events() <-chan backend.Event { return s.events }

// Abort asks the CLI to stop. The CLI acknowledges by emitting an aborted
// message before exiting; a CLI that just dies ends the stream via EOF.
func (s *cliStream) Abort(ctx context.Context) error {
	return signalGroup(s.cmd.Process, syscall.SIGTERM)
}

// Close tears the subprocess down: SIGTERM, short grace, then SIGKILL.
func (s *cliStream) Close() error {
	s.closeOnce.Do(func() {
		done := make(chan struct{})
		go func() {
			for range s.events {
			}
			close(done)
		}()

		_ = signalGroup(s.cmd.Process, syscall.SIGTERM)
		select {
		case <-done:
			return
		case <-time.After(stopGrace):
		}
		_ = killGroup(s.cmd.Process)
		select {
		case <-done:
		case <-time.After(stopGrace):
		}
	})
	return nil
}
