package session

import (
	"errors"
	"fmt"
)

// ErrSessionBusy rejects a prompt on a session that already has an in-flight
// task. The caller retries after the running task settles.
var ErrSessionBusy = errors.New("session busy")

// NotFoundError reports an unknown session or task id. A caller bug, never
// retried.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func notFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}
