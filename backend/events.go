package backend

// Canonical event implementations. Vendor wrappers that already decode into
// Go structs can emit these directly instead of defining their own types.

// SessionInfoEvent reveals the vendor continuation id.
type SessionInfoEvent struct {
	ID string
}

func (e SessionInfoEvent) BackendEventKind() Kind { return KindSessionInfo }
func (e SessionInfoEvent) ContinuationID() string { return e.ID }

// ContentDeltaEvent carries a partial text chunk.
type ContentDeltaEvent struct {
	Delta string
}

func (e ContentDeltaEvent) BackendEventKind() Kind { return KindContentDelta }
func (e ContentDeltaEvent) ContentDelta() string   { return e.Delta }

// MessageDoneEvent marks one assistant message as complete. Text may be
// empty when the vendor only streams deltas.
type MessageDoneEvent struct {
	Text string
}

func (e MessageDoneEvent) BackendEventKind() Kind { return KindMessageDone }
func (e MessageDoneEvent) MessageText() string    { return e.Text }

// ResultEvent carries terminal token usage plus optional turn metadata.
type ResultEvent struct {
	InputTokens     int
	OutputTokens    int
	CacheReadTokens int
	CostUSD         float64
	ToolCalls       []ToolCall
	Files           []string
}

func (e ResultEvent) BackendEventKind() Kind { return KindResult }
func (e ResultEvent) UsageTokens() (int, int, int) {
	return e.InputTokens, e.OutputTokens, e.CacheReadTokens
}
func (e ResultEvent) UsageCostUSD() float64     { return e.CostUSD }
func (e ResultEvent) ToolCallsMade() []ToolCall { return e.ToolCalls }
func (e ResultEvent) FilesTouched() []string    { return e.Files }

// EndEvent terminates the stream.
type EndEvent struct {
	Reason string
}

func (e EndEvent) BackendEventKind() Kind { return KindEnd }
func (e EndEvent) EndReason() string      { return e.Reason }

// AbortedEvent acknowledges a requested abort.
type AbortedEvent struct{}

func (e AbortedEvent) BackendEventKind() Kind { return KindAborted }

// ErrorEvent carries a vendor-side failure.
type ErrorEvent struct {
	Cause error
}

func (e ErrorEvent) BackendEventKind() Kind { return KindError }
func (e ErrorEvent) Err() error             { return e.Cause }
