// Package stream normalizes raw vendor event streams into a deterministic
// sequence of lifecycle events.
//
// The processor is a streaming fold: it consumes one prompt call's raw
// events in emission order and emits normalized events to a sink. It never
// reorders vendor events, with one exception: the first event revealing the
// vendor's continuation id becomes a SessionCapturedEvent that always
// precedes any dependent chunk or complete event.
package stream

import "github.com/lambdaflows/devteam/backend"

// Kind identifies the type of a normalized event.
type Kind int

const (
	KindStart Kind = iota
	KindChunk
	KindComplete
	KindResult
	KindSessionCaptured
	KindStopped
	KindError
	KindEnd
)

func (k Kind) String() string {
	switch k {
	case KindStart:
		return "start"
	case KindChunk:
		return "chunk"
	case KindComplete:
		return "complete"
	case KindResult:
		return "result"
	case KindSessionCaptured:
		return "session_id_captured"
	case KindStopped:
		return "stopped"
	case KindError:
		return "error"
	case KindEnd:
		return "end"
	default:
		return "unknown"
	}
}

// Event is the normalized event interface.
type Event interface {
	StreamEventKind() Kind
}

// StartEvent opens the normalized sequence for one prompt call.
type StartEvent struct{}

func (e StartEvent) StreamEventKind() Kind { return KindStart }

// ChunkEvent carries partial text of the current assistant message.
type ChunkEvent struct {
	Text string
	// MessageIndex is the zero-based index of the assistant message this
	// chunk belongs to within the turn.
	MessageIndex int
}

func (e ChunkEvent) StreamEventKind() Kind { return KindChunk }

// CompleteEvent carries one fully assembled assistant message. Multiple
// assistant messages in a turn produce multiple CompleteEvents.
type CompleteEvent struct {
	Text         string
	MessageIndex int
}

func (e CompleteEvent) StreamEventKind() Kind { return KindComplete }

// TokenUsage tracks token consumption for the terminal response.
type TokenUsage struct {
	InputTokens     int
	OutputTokens    int
	CacheReadTokens int
	CostUSD         float64
}

// ResultEvent attaches token usage to the terminal response. It always
// precedes EndEvent when the vendor reports usage.
type ResultEvent struct {
	Usage TokenUsage
}

func (e ResultEvent) StreamEventKind() Kind { return KindResult }

// SessionCapturedEvent reveals the vendor continuation id for this session.
// Emitted at most once per call, never forwarded as content.
type SessionCapturedEvent struct {
	ContinuationID string
}

func (e SessionCapturedEvent) StreamEventKind() Kind { return KindSessionCaptured }

// StoppedEvent records a cooperative cancellation. It is a successful
// terminal outcome, never an error.
type StoppedEvent struct {
	Reason string
}

func (e StoppedEvent) StreamEventKind() Kind { return KindStopped }

// ErrorEvent carries a vendor failure wrapped with turn progress.
type ErrorEvent struct {
	Err error
}

func (e ErrorEvent) StreamEventKind() Kind { return KindError }

// EndEvent terminates the normalized sequence.
type EndEvent struct {
	Reason string
}

func (e EndEvent) StreamEventKind() Kind { return KindEnd }

// Sink receives normalized events in emission order. A nil sink discards
// events; Outcome still accumulates.
type Sink func(Event)

// Outcome summarizes one processed prompt call.
type Outcome struct {
	// ContinuationID is the captured vendor continuation id, if any.
	ContinuationID string

	// Messages holds one entry per assembled assistant message.
	Messages []string

	// Usage is the terminal token usage, zero if the vendor reported none.
	Usage TokenUsage

	// ToolCalls lists tool invocations the vendor reported for the turn.
	ToolCalls []backend.ToolCall

	// FilesModified lists files the vendor reported as touched.
	FilesModified []string

	// Stopped is true when the call ended via cooperative cancellation.
	Stopped bool

	// EndReason is the vendor-reported end reason ("end_turn", "eof", ...).
	EndReason string
}

// FinalText returns the last assembled assistant message, if any.
func (o *Outcome) FinalText() string {
	if len(o.Messages) == 0 {
		return ""
	}
	return o.Messages[len(o.Messages)-1]
}
