package adapter

import (
	"errors"
	"fmt"
)

// ErrNotInitialized means Execute was called before Initialize succeeded.
var ErrNotInitialized = errors.New("adapter: not initialized")

// ExecutionError wraps a failure of one execute call with its context.
type ExecutionError struct {
	AgentType string
	SessionID string
	Cause     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s execute failed for session %s: %v", e.AgentType, e.SessionID, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return e.Cause }
