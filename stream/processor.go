package stream

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/lambdaflows/devteam/backend"
)

// DefaultIdleTimeout is the maximum tolerated silence from a vendor stream
// before the processor treats it as hung.
const DefaultIdleTimeout = 300 * time.Second

// abortGraceTimeout bounds the wait for the vendor's abort acknowledgement.
// A vendor that never acknowledges still yields a clean stopped outcome.
const abortGraceTimeout = 5 * time.Second

// nopHandler is a slog.Handler that discards all output.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }

var nopLogger = slog.New(nopHandler{})

// Processor folds one prompt call's raw vendor events into normalized
// lifecycle events. It is single-use: create one per call.
type Processor struct {
	events      <-chan backend.Event
	abort       func(context.Context) error
	sink        Sink
	logger      *slog.Logger
	idleTimeout time.Duration

	// fold state
	outcome   Outcome
	buf       strings.Builder
	msgIndex  int
	captured  bool
	stopped   bool
	sawResult bool
}

// Option configures a Processor.
type Option func(*Processor)

// WithSink sets the normalized event sink.
func WithSink(sink Sink) Option {
	return func(p *Processor) { p.sink = sink }
}

// WithIdleTimeout overrides the idle-timeout threshold.
func WithIdleTimeout(d time.Duration) Option {
	return func(p *Processor) { p.idleTimeout = d }
}

// WithAbort sets the vendor abort hook invoked on cancellation.
func WithAbort(abort func(context.Context) error) Option {
	return func(p *Processor) { p.abort = abort }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a processor over one raw event channel.
func New(events <-chan backend.Event, opts ...Option) *Processor {
	p := &Processor{
		events:      events,
		idleTimeout: DefaultIdleTimeout,
		logger:      nopLogger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run consumes the raw stream to completion and returns the outcome.
//
// Terminal conditions:
//   - a vendor end event, or the channel closing: normal completion;
//   - ctx cancellation, or a vendor aborted event: clean stopped outcome
//     (exactly one StoppedEvent, nil error);
//   - silence longer than the idle threshold: IdleTimeoutError;
//   - a vendor error event: TurnError wrapping the cause.
func (p *Processor) Run(ctx context.Context) (*Outcome, error) {
	p.emit(StartEvent{})

	idle := time.NewTimer(p.idleTimeout)
	defer idle.Stop()
	lastActivity := time.Now()

	for {
		select {
		case <-ctx.Done():
			return p.finishStopped(ctx.Err().Error())

		case <-idle.C:
			err := &IdleTimeoutError{
				IdleSeconds:       time.Since(lastActivity).Seconds(),
				MessagesProcessed: len(p.outcome.Messages),
			}
			p.logger.Warn("vendor stream stalled",
				"idleSeconds", err.IdleSeconds,
				"messages", err.MessagesProcessed,
			)
			p.emit(ErrorEvent{Err: err})
			return nil, err

		case ev, ok := <-p.events:
			if !ok {
				// Stream closed without a dedicated end event.
				p.flushPending()
				p.outcome.EndReason = "eof"
				p.emit(EndEvent{Reason: "eof"})
				return &p.outcome, nil
			}

			// Any event resets the idle clock.
			lastActivity = time.Now()
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(p.idleTimeout)

			done, err := p.handle(ev)
			if err != nil {
				return nil, err
			}
			if done {
				return &p.outcome, nil
			}
		}
	}
}

// handle processes one raw event. It returns done=true when the stream
// reached a terminal event.
func (p *Processor) handle(ev backend.Event) (bool, error) {
	// Continuation capture happens before any dependent content from the
	// same event, and at most once per call.
	if c, ok := ev.(backend.Continuation); ok && !p.captured {
		if id := c.ContinuationID(); id != "" {
			p.captured = true
			p.outcome.ContinuationID = id
			p.emit(SessionCapturedEvent{ContinuationID: id})
		}
	}

	switch ev.BackendEventKind() {
	case backend.KindContentDelta:
		c, ok := ev.(backend.Content)
		if !ok {
			return false, nil
		}
		delta := c.ContentDelta()
		if delta == "" {
			return false, nil
		}
		p.buf.WriteString(delta)
		p.emit(ChunkEvent{Text: delta, MessageIndex: p.msgIndex})

	case backend.KindMessageDone:
		text := p.buf.String()
		if m, ok := ev.(backend.Message); ok && m.MessageText() != "" {
			text = m.MessageText()
		}
		p.completeMessage(text)

	case backend.KindResult:
		u, ok := ev.(backend.Usage)
		if !ok || p.sawResult {
			return false, nil
		}
		in, out, cache := u.UsageTokens()
		p.outcome.Usage = TokenUsage{
			InputTokens:     in,
			OutputTokens:    out,
			CacheReadTokens: cache,
			CostUSD:         u.UsageCostUSD(),
		}
		if tc, ok := ev.(backend.ToolCalls); ok {
			p.outcome.ToolCalls = tc.ToolCallsMade()
		}
		if f, ok := ev.(backend.Files); ok {
			p.outcome.FilesModified = f.FilesTouched()
		}
		p.sawResult = true
		p.emit(ResultEvent{Usage: p.outcome.Usage})

	case backend.KindEnd:
		reason := "end"
		if e, ok := ev.(backend.End); ok && e.EndReason() != "" {
			reason = e.EndReason()
		}
		p.flushPending()
		p.outcome.EndReason = reason
		p.emit(EndEvent{Reason: reason})
		return true, nil

	case backend.KindAborted:
		// Vendor-initiated stop without a prior cancellation request.
		p.flushPending()
		p.emitStopped("vendor aborted")
		p.outcome.Stopped = true
		return true, nil

	case backend.KindError:
		e, ok := ev.(backend.Err)
		if !ok {
			return false, nil
		}
		err := &TurnError{Cause: e.Err(), MessagesProcessed: len(p.outcome.Messages)}
		p.emit(ErrorEvent{Err: err})
		return false, err
	}

	return false, nil
}

// completeMessage closes the current assistant message buffer. Messages are
// never merged: each one produces its own CompleteEvent.
func (p *Processor) completeMessage(text string) {
	p.emit(CompleteEvent{Text: text, MessageIndex: p.msgIndex})
	p.outcome.Messages = append(p.outcome.Messages, text)
	p.msgIndex++
	p.buf.Reset()
}

// flushPending completes a message whose deltas arrived without a dedicated
// message-done event before the stream ended.
func (p *Processor) flushPending() {
	if p.buf.Len() > 0 {
		p.completeMessage(p.buf.String())
	}
}

// finishStopped performs cooperative cancellation: ask the vendor to abort,
// wait briefly for its acknowledgement, and fold everything into exactly one
// StoppedEvent. Stopped is a successful outcome, never an error.
func (p *Processor) finishStopped(reason string) (*Outcome, error) {
	if p.abort != nil {
		abortCtx, cancel := context.WithTimeout(context.Background(), abortGraceTimeout)
		defer cancel()
		if err := p.abort(abortCtx); err != nil {
			p.logger.Warn("vendor abort request failed", "error", err)
		}
	}

	// Drain until the vendor acknowledges or the grace period elapses.
	// Raw events seen while draining are discarded: the turn is over.
	grace := time.NewTimer(abortGraceTimeout)
	defer grace.Stop()
drain:
	for {
		select {
		case ev, ok := <-p.events:
			if !ok {
				break drain
			}
			if ev.BackendEventKind() == backend.KindAborted {
				break drain
			}
		case <-grace.C:
			break drain
		}
	}

	p.flushPending()
	p.emitStopped(reason)
	p.outcome.Stopped = true
	return &p.outcome, nil
}

// emitStopped emits the StoppedEvent at most once.
func (p *Processor) emitStopped(reason string) {
	if p.stopped {
		return
	}
	p.stopped = true
	p.emit(StoppedEvent{Reason: reason})
}

func (p *Processor) emit(ev Event) {
	if p.sink != nil {
		p.sink(ev)
	}
}
