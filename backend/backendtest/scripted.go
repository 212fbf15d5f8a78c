// Package backendtest provides a scripted in-memory backend.Client for tests
// and demos. Each Submit call plays back a queued script of events; Abort
// interrupts playback and emits a single AbortedEvent, mirroring how real
// vendor CLIs acknowledge an interrupt.
package backendtest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lambdaflows/devteam/backend"
)

// ErrNoScript is returned by Submit when no script is queued.
var ErrNoScript = errors.New("backendtest: no script queued")

// Step is one scripted event, optionally preceded by a delay.
type Step struct {
	Delay time.Duration
	Event backend.Event
}

// Script is the event sequence for one Submit call.
type Script []Step

// Events builds a Script with no delays.
func Events(evs ...backend.Event) Script {
	steps := make(Script, len(evs))
	for i, ev := range evs {
		steps[i] = Step{Event: ev}
	}
	return steps
}

// Client is a scripted backend.Client.
type Client struct {
	name string

	mu      sync.Mutex
	scripts []Script
	submits []Submission
	pingErr error
	closed  bool
}

// Submission records the arguments of one Submit call.
type Submission struct {
	Prompt string
	Opts   backend.SubmitOptions
}

// NewClient creates a scripted client with the given vendor name.
func NewClient(name string) *Client {
	return &Client{name: name}
}

// Enqueue queues a script for the next Submit call.
func (c *Client) Enqueue(s Script) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts = append(c.scripts, s)
}

// Submissions returns the recorded Submit calls in order.
func (c *Client) Submissions() []Submission {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Submission, len(c.submits))
	copy(out, c.submits)
	return out
}

// SetPingErr makes subsequent Ping calls fail.
func (c *Client) SetPingErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pingErr = err
}

func (c *Client) Name() string { return c.name }

func (c *Client) Submit(ctx context.Context, prompt string, opts backend.SubmitOptions) (backend.Stream, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.New("backendtest: client closed")
	}
	if len(c.scripts) == 0 {
		c.mu.Unlock()
		return nil, ErrNoScript
	}
	script := c.scripts[0]
	c.scripts = c.scripts[1:]
	c.submits = append(c.submits, Submission{Prompt: prompt, Opts: opts})
	c.mu.Unlock()

	s := &stream{
		events:  make(chan backend.Event, 64),
		aborted: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.play(script)
	return s, nil
}

func (c *Client) Ping(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("backendtest: client closed")
	}
	return c.pingErr
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// stream plays back one script.
type stream struct {
	events    chan backend.Event
	aborted   chan struct{}
	done      chan struct{}
	abortOnce sync.Once
	closeOnce sync.Once
}

func (s *stream) play(script Script) {
	defer close(s.events)
	for _, step := range script {
		if step.Delay > 0 {
			select {
			case <-time.After(step.Delay):
			case <-s.aborted:
				s.events <- backend.AbortedEvent{}
				return
			case <-s.done:
				return
			}
		}
		select {
		case <-s.aborted:
			s.events <- backend.AbortedEvent{}
			return
		case <-s.done:
			return
		default:
		}
		s.events <- step.Event
	}

	// Script exhausted without an end event: hold the stream open until
	// abort or close, like a hung vendor call.
	select {
	case <-s.aborted:
		s.events <- backend.AbortedEvent{}
	case <-s.done:
	}
}

func (s *stream) Events() <-chan backend.Event { return s.events }

func (s *stream) Abort(ctx context.Context) error {
	s.abortOnce.Do(func() { close(s.aborted) })
	return nil
}

func (s *stream) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}
