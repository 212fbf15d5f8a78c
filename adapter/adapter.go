// Package adapter defines the uniform operation surface over agent backends.
//
// One Adapter wraps one vendor SDK. Adding a new backend means registering a
// new implementation, not patching the core at runtime. Adapters keep their
// state in a private per-instance cache; session state proper is owned by
// the session manager.
package adapter

import (
	"context"
	"time"

	"github.com/lambdaflows/devteam/backend"
	"github.com/lambdaflows/devteam/stream"
)

// Capabilities is the fixed capability record of one agent type.
type Capabilities struct {
	Read     bool
	Write    bool
	Execute  bool
	Fetch    bool
	MCP      bool
	Planning bool

	// Extensions carries vendor-specific capability flags.
	Extensions map[string]bool
}

// Descriptor identifies one agent type. Immutable once registered.
type Descriptor struct {
	// Type is the agent type name (e.g. "claude", "codex").
	Type string

	// Capabilities is the agent's fixed capability set.
	Capabilities Capabilities

	// DefaultPermissionMode is the agent's documented default, stored on
	// sessions created without an explicit mode.
	DefaultPermissionMode string
}

// Status classifies one execution.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusError   Status = "error"
)

// Result is the outcome of one execute call.
type Result struct {
	// Content is the final assistant message.
	Content string

	// Messages holds every assistant message of the turn, in order.
	Messages []string

	// ToolCalls lists tool invocations made during the turn.
	ToolCalls []backend.ToolCall

	// FilesModified lists files the vendor reported as touched.
	FilesModified []string

	// Status is success for a completed turn, partial for a stopped one.
	Status Status

	// Usage is the turn's token usage.
	Usage stream.TokenUsage

	// Stopped is true when the turn ended via cooperative cancellation.
	Stopped bool

	// ContinuationID is the vendor continuation id captured during the
	// turn, empty if the vendor revealed none.
	ContinuationID string

	// DurationMs is the execution time in milliseconds.
	DurationMs int64
}

// ExecuteOptions configures one execute call.
type ExecuteOptions struct {
	// PermissionMode in unified or native spelling; the adapter translates
	// it to the vendor-native mode. Empty resolves to the agent default.
	PermissionMode string

	// ContinuationID resumes a specific vendor conversation, overriding
	// the adapter's cached continuation for the session.
	ContinuationID string

	// Fresh forces a new vendor conversation, ignoring any cached
	// continuation (fork semantics).
	Fresh bool

	// Model selects the vendor model.
	Model string

	// WorkDir is the working directory for file operations.
	WorkDir string

	// ToolServers is the resolved tool-server set for this call.
	ToolServers []backend.ToolServerConfig

	// Sink receives normalized streaming events for this call.
	Sink stream.Sink

	// IdleTimeout overrides the adapter's idle threshold for this call.
	IdleTimeout time.Duration
}

// Adapter is the uniform contract over one agent backend.
type Adapter interface {
	// GetCapabilities returns the fixed capability record. Pure.
	GetCapabilities() Capabilities

	// Descriptor returns the immutable agent descriptor.
	Descriptor() Descriptor

	// Initialize validates credentials via the injected auth provider.
	// Fails with *auth.AuthError on invalid credentials. Idempotent after
	// the first success.
	Initialize(ctx context.Context) error

	// Execute runs one prompt turn for a session. On failure the adapter
	// marks its private session entry failed and returns an
	// *ExecutionError wrapping the cause.
	Execute(ctx context.Context, sessionID, prompt string, opts ExecuteOptions) (*Result, error)

	// TerminateSession ends a session's in-flight work, if any. Calling it
	// on an unknown or already-terminated session is a no-op, not an error.
	TerminateSession(sessionID string) error

	// HealthCheck reports backend reachability. Best effort, never panics.
	HealthCheck(ctx context.Context) bool

	// Cleanup terminates all running sessions, then releases adapter
	// resources.
	Cleanup(ctx context.Context) error
}
