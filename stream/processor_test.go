package stream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lambdaflows/devteam/backend"
)

// feed pushes events into a channel and closes it.
func feed(evs ...backend.Event) <-chan backend.Event {
	ch := make(chan backend.Event, len(evs))
	for _, ev := range evs {
		ch <- ev
	}
	close(ch)
	return ch
}

// collectSink records every normalized event.
type collectSink struct {
	events []Event
}

func (s *collectSink) sink(ev Event) {
	s.events = append(s.events, ev)
}

func (s *collectSink) kinds() []Kind {
	out := make([]Kind, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.StreamEventKind()
	}
	return out
}

func TestProcessorBasicTurn(t *testing.T) {
	events := feed(
		backend.SessionInfoEvent{ID: "vc-123"},
		backend.ContentDeltaEvent{Delta: "hello "},
		backend.ContentDeltaEvent{Delta: "world"},
		backend.MessageDoneEvent{},
		backend.ResultEvent{InputTokens: 10, OutputTokens: 5, CacheReadTokens: 2, CostUSD: 0.01},
		backend.EndEvent{Reason: "end_turn"},
	)

	var sink collectSink
	p := New(events, WithSink(sink.sink))
	outcome, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "vc-123", outcome.ContinuationID)
	assert.Equal(t, []string{"hello world"}, outcome.Messages)
	assert.Equal(t, 10, outcome.Usage.InputTokens)
	assert.Equal(t, "end_turn", outcome.EndReason)
	assert.False(t, outcome.Stopped)

	assert.Equal(t, []Kind{
		KindStart, KindSessionCaptured, KindChunk, KindChunk,
		KindComplete, KindResult, KindEnd,
	}, sink.kinds())
}

func TestProcessorTwoMessagesStaySeparate(t *testing.T) {
	events := feed(
		backend.SessionInfoEvent{ID: "vc-1"},
		backend.ContentDeltaEvent{Delta: "calling a tool"},
		backend.MessageDoneEvent{},
		backend.ContentDeltaEvent{Delta: "final answer"},
		backend.MessageDoneEvent{},
		backend.ResultEvent{OutputTokens: 3},
		backend.EndEvent{Reason: "end_turn"},
	)

	var sink collectSink
	p := New(events, WithSink(sink.sink))
	outcome, err := p.Run(context.Background())
	require.NoError(t, err)

	// Two assistant messages before the result yield two distinct
	// complete events, never one merged buffer.
	require.Equal(t, []string{"calling a tool", "final answer"}, outcome.Messages)

	var completes []CompleteEvent
	for _, ev := range sink.events {
		if c, ok := ev.(CompleteEvent); ok {
			completes = append(completes, c)
		}
	}
	require.Len(t, completes, 2)
	assert.Equal(t, 0, completes[0].MessageIndex)
	assert.Equal(t, 1, completes[1].MessageIndex)
}

func TestProcessorSessionCapturePrecedesContent(t *testing.T) {
	// Continuation id arrives on an event that also carries content.
	events := feed(
		richInitEvent{id: "vc-9", delta: "hi"},
		backend.MessageDoneEvent{},
		backend.EndEvent{Reason: "end_turn"},
	)

	var sink collectSink
	p := New(events, WithSink(sink.sink))
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	capturedAt, chunkAt := -1, -1
	for i, ev := range sink.events {
		switch ev.(type) {
		case SessionCapturedEvent:
			capturedAt = i
		case ChunkEvent:
			if chunkAt == -1 {
				chunkAt = i
			}
		}
	}
	require.GreaterOrEqual(t, capturedAt, 0)
	require.GreaterOrEqual(t, chunkAt, 0)
	assert.Less(t, capturedAt, chunkAt, "capture must precede dependent chunks")
}

// richInitEvent mimics a vendor init event that carries both the
// continuation id and a first content delta.
type richInitEvent struct {
	id    string
	delta string
}

func (e richInitEvent) BackendEventKind() backend.Kind { return backend.KindContentDelta }
func (e richInitEvent) ContinuationID() string         { return e.id }
func (e richInitEvent) ContentDelta() string           { return e.delta }

func TestProcessorCapturesContinuationOnce(t *testing.T) {
	events := feed(
		backend.SessionInfoEvent{ID: "vc-first"},
		backend.SessionInfoEvent{ID: "vc-second"},
		backend.EndEvent{Reason: "end_turn"},
	)

	var sink collectSink
	p := New(events, WithSink(sink.sink))
	outcome, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "vc-first", outcome.ContinuationID)

	captures := 0
	for _, ev := range sink.events {
		if _, ok := ev.(SessionCapturedEvent); ok {
			captures++
		}
	}
	assert.Equal(t, 1, captures)
}

func TestProcessorCancellationYieldsSingleStopped(t *testing.T) {
	// An open channel that never delivers an end; cancellation aborts it.
	raw := make(chan backend.Event, 8)
	raw <- backend.SessionInfoEvent{ID: "vc-1"}
	raw <- backend.ContentDeltaEvent{Delta: "partial"}

	aborted := false
	abort := func(ctx context.Context) error {
		aborted = true
		raw <- backend.AbortedEvent{}
		close(raw)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	var sink collectSink
	p := New(raw, WithSink(sink.sink), WithAbort(abort))

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	outcome, err := p.Run(ctx)
	require.NoError(t, err, "cancellation is a successful outcome, not an error")
	assert.True(t, aborted)
	assert.True(t, outcome.Stopped)
	assert.Equal(t, "partial", outcome.FinalText(), "buffered text survives the stop")

	stops := 0
	for _, ev := range sink.events {
		if _, ok := ev.(StoppedEvent); ok {
			stops++
		}
	}
	assert.Equal(t, 1, stops, "exactly one stopped event")
}

func TestProcessorVendorAbortSignal(t *testing.T) {
	// Raw sequence ending in an abort signal: one stopped event, no error.
	events := feed(
		backend.ContentDeltaEvent{Delta: "part"},
		backend.AbortedEvent{},
	)

	var sink collectSink
	p := New(events, WithSink(sink.sink))
	outcome, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, outcome.Stopped)

	stops := 0
	for _, ev := range sink.events {
		if _, ok := ev.(StoppedEvent); ok {
			stops++
		}
	}
	assert.Equal(t, 1, stops)
}

func TestProcessorIdleTimeout(t *testing.T) {
	raw := make(chan backend.Event) // never delivers

	p := New(raw, WithIdleTimeout(30*time.Millisecond))
	_, err := p.Run(context.Background())

	var idleErr *IdleTimeoutError
	require.ErrorAs(t, err, &idleErr)
	assert.GreaterOrEqual(t, idleErr.IdleSeconds, 0.03)
	assert.Equal(t, 0, idleErr.MessagesProcessed)
}

func TestProcessorEventResetsIdleClock(t *testing.T) {
	raw := make(chan backend.Event)
	go func() {
		// Three events spaced under the threshold, then a clean end.
		// Total elapsed time exceeds the threshold, proving resets work.
		for i := 0; i < 3; i++ {
			time.Sleep(25 * time.Millisecond)
			raw <- backend.ContentDeltaEvent{Delta: "x"}
		}
		time.Sleep(25 * time.Millisecond)
		raw <- backend.MessageDoneEvent{}
		raw <- backend.EndEvent{Reason: "end_turn"}
		close(raw)
	}()

	p := New(raw, WithIdleTimeout(60*time.Millisecond))
	outcome, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"xxx"}, outcome.Messages)
}

func TestProcessorVendorError(t *testing.T) {
	cause := errors.New("upstream exploded")
	events := feed(
		backend.ContentDeltaEvent{Delta: "a"},
		backend.MessageDoneEvent{},
		backend.ErrorEvent{Cause: cause},
	)

	p := New(events)
	_, err := p.Run(context.Background())

	var turnErr *TurnError
	require.ErrorAs(t, err, &turnErr)
	assert.Equal(t, 1, turnErr.MessagesProcessed)
	assert.ErrorIs(t, err, cause)
}

func TestProcessorEOFFlushesPendingMessage(t *testing.T) {
	// Channel closes mid-message: the partial buffer still becomes a
	// complete message and the sequence ends with reason "eof".
	events := feed(
		backend.ContentDeltaEvent{Delta: "unfinished"},
	)

	var sink collectSink
	p := New(events, WithSink(sink.sink))
	outcome, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"unfinished"}, outcome.Messages)
	assert.Equal(t, "eof", outcome.EndReason)

	last := sink.events[len(sink.events)-1]
	assert.Equal(t, KindEnd, last.StreamEventKind())
}

func TestProcessorResultPrecedesEnd(t *testing.T) {
	events := feed(
		backend.MessageDoneEvent{Text: "done"},
		backend.ResultEvent{OutputTokens: 7},
		backend.EndEvent{Reason: "end_turn"},
	)

	var sink collectSink
	p := New(events, WithSink(sink.sink))
	_, err := p.Run(context.Background())
	require.NoError(t, err)

	resultAt, endAt := -1, -1
	for i, ev := range sink.events {
		switch ev.StreamEventKind() {
		case KindResult:
			resultAt = i
		case KindEnd:
			endAt = i
		}
	}
	require.GreaterOrEqual(t, resultAt, 0)
	assert.Less(t, resultAt, endAt)
}

func TestProcessorEndStopsIterationImmediately(t *testing.T) {
	// Events after the end event are never processed.
	events := feed(
		backend.MessageDoneEvent{Text: "first"},
		backend.EndEvent{Reason: "end_turn"},
		backend.ContentDeltaEvent{Delta: "late"},
		backend.MessageDoneEvent{},
	)

	p := New(events)
	outcome, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"first"}, outcome.Messages)
}
