// Package backend defines the boundary between devteam and vendor agent SDKs.
//
// Each vendor SDK is wrapped behind the Client interface: an async,
// cancellable submit that yields a stream of typed events plus an abort
// mechanism. The core never assumes a literal event shape. Instead, SDK
// event types opt into narrow carrier interfaces (Continuation, Content,
// Message, Usage, End, Err) that expose the fields the stream processor
// needs. Events that carry none of these are skipped at near-zero cost.
package backend

import "context"

// Kind identifies the common event category of a vendor event.
type Kind int

const (
	// KindUnknown is the zero value. Unknown events are ignored by the
	// stream processor but still reset its idle clock.
	KindUnknown Kind = iota
	// KindSessionInfo carries the vendor's own continuation id.
	KindSessionInfo
	// KindContentDelta carries a partial text chunk.
	KindContentDelta
	// KindMessageDone marks one assistant message as fully assembled.
	KindMessageDone
	// KindResult carries terminal token usage for the turn.
	KindResult
	// KindEnd terminates the stream with a reason.
	KindEnd
	// KindAborted acknowledges a requested abort.
	KindAborted
	// KindError carries a vendor-side failure.
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindSessionInfo:
		return "session_info"
	case KindContentDelta:
		return "content_delta"
	case KindMessageDone:
		return "message_done"
	case KindResult:
		return "result"
	case KindEnd:
		return "end"
	case KindAborted:
		return "aborted"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is the minimal interface a vendor event must implement.
type Event interface {
	BackendEventKind() Kind
}

// Continuation exposes the vendor's own continuation (session) id.
type Continuation interface {
	Event
	ContinuationID() string
}

// Content exposes a partial text chunk.
type Content interface {
	Event
	ContentDelta() string
}

// Message exposes the full text of one assembled assistant message.
// An empty string means the consumer should use its own accumulation.
type Message interface {
	Event
	MessageText() string
}

// Usage exposes terminal token usage for the turn.
type Usage interface {
	Event
	UsageTokens() (input, output, cacheRead int)
	UsageCostUSD() float64
}

// End exposes the stream termination reason.
type End interface {
	Event
	EndReason() string
}

// Err exposes a vendor-side failure.
type Err interface {
	Event
	Err() error
}

// ToolCall records one tool invocation the vendor made during the turn.
type ToolCall struct {
	Name  string
	Input map[string]any
}

// ToolCalls optionally exposes the turn's tool invocations, typically on
// the vendor's result event.
type ToolCalls interface {
	Event
	ToolCallsMade() []ToolCall
}

// Files optionally exposes the files the turn modified.
type Files interface {
	Event
	FilesTouched() []string
}

// ToolServerConfig is the resolved tool-server configuration handed to a
// vendor call. Produced by the MCP scoping resolver.
type ToolServerConfig struct {
	Name      string
	Transport string
	Endpoint  string
	Command   string
	Env       map[string]string
	Headers   map[string]string
}

// SubmitOptions configures one vendor submit call.
type SubmitOptions struct {
	// ContinuationID resumes a prior vendor conversation. Empty starts fresh.
	ContinuationID string

	// PermissionMode is the vendor-native permission mode string.
	PermissionMode string

	// Model selects the vendor model, if the vendor supports selection.
	Model string

	// WorkDir is the working directory for file operations.
	WorkDir string

	// ToolServers is the tool-server set visible during this call.
	ToolServers []ToolServerConfig
}

// Stream is one in-flight vendor call.
type Stream interface {
	// Events returns the raw event channel. The channel closes when the
	// vendor call finishes or is torn down.
	Events() <-chan Event

	// Abort asks the vendor to stop the call. The vendor acknowledges by
	// emitting a KindAborted event before the channel closes. Abort is
	// cooperative: it requests, it does not kill.
	Abort(ctx context.Context) error

	// Close releases the stream's resources. Idempotent.
	Close() error
}

// Client wraps one vendor SDK.
type Client interface {
	// Name returns the vendor name (e.g. "claude", "codex").
	Name() string

	// Submit starts one prompt call and returns its event stream.
	Submit(ctx context.Context, prompt string, opts SubmitOptions) (Stream, error)

	// Ping reports reachability of the vendor backend.
	Ping(ctx context.Context) error

	// Close releases all client resources.
	Close() error
}
