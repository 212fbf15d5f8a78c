package stream

import "fmt"

// IdleTimeoutError reports that no vendor event arrived within the
// configured threshold. It is a soft signal: the caller decides whether to
// retry, clean up, or surface it.
type IdleTimeoutError struct {
	// IdleSeconds is how long the stream was silent.
	IdleSeconds float64

	// MessagesProcessed counts assistant messages assembled before the stall.
	MessagesProcessed int
}

func (e *IdleTimeoutError) Error() string {
	return fmt.Sprintf("no vendor activity for %.0fs (%d messages processed)",
		e.IdleSeconds, e.MessagesProcessed)
}

// TurnError wraps a vendor failure with turn progress context.
type TurnError struct {
	Cause             error
	MessagesProcessed int
}

func (e *TurnError) Error() string {
	return fmt.Sprintf("turn failed after %d messages: %v", e.MessagesProcessed, e.Cause)
}

func (e *TurnError) Unwrap() error {
	return e.Cause
}
