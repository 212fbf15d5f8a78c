// Package notify delivers host-facing update events. Delivery is
// fire-and-forget: a notifier must never block the caller, and a failed
// delivery is the notifier's problem, not the session's.
package notify

import (
	"context"
	"log/slog"
	"time"
)

// nopHandler is a slog.Handler that discards all output.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }

var nopLogger = slog.New(nopHandler{})

// Event types emitted by the core.
const (
	TypeSessionUpdated = "session_updated"
	TypeTaskUpdated    = "task_updated"
	TypeMessage        = "message"
	TypeAuthRequired   = "auth_required"
)

// Event is one host notification.
type Event struct {
	Type      string         `json:"type"`
	SessionID string         `json:"sessionId,omitempty"`
	TaskID    string         `json:"taskId,omitempty"`
	AgentType string         `json:"agentType,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Time      time.Time      `json:"time"`
}

// Notifier receives events. Implementations must return promptly and never
// panic into the caller.
type Notifier interface {
	Notify(ev Event)
}

// Func adapts a function to Notifier.
type Func func(Event)

func (f Func) Notify(ev Event) { f(ev) }

// Nop discards all events.
type Nop struct{}

func (Nop) Notify(Event) {}

// LogNotifier writes events to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) Notify(ev Event) {
	if n.Logger == nil {
		return
	}
	n.Logger.Info("notify",
		"type", ev.Type,
		"session", ev.SessionID,
		"task", ev.TaskID,
	)
}

// Multi fans an event out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ev Event) {
	for _, n := range m {
		n.Notify(ev)
	}
}
