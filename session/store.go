package session

import "context"

// Filter narrows session queries. Zero-value fields do not filter.
type Filter struct {
	WorktreeID string
	Status     Status
	ParentID   string
}

// Matches reports whether a session satisfies the filter.
func (f Filter) Matches(s *Session) bool {
	if f.WorktreeID != "" && s.WorktreeID != f.WorktreeID {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.ParentID != "" && s.ParentID != f.ParentID {
		return false
	}
	return true
}

// TaskFilter narrows task queries.
type TaskFilter struct {
	SessionID string
	Status    TaskStatus
}

// Matches reports whether a task satisfies the filter.
func (f TaskFilter) Matches(t *Task) bool {
	if f.SessionID != "" && t.SessionID != f.SessionID {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	return true
}

// Store persists sessions and tasks. Saves are idempotent upserts; loads
// return (nil, nil) on absence, never an error. Query results preserve
// insertion order.
type Store interface {
	SaveSession(ctx context.Context, s *Session) error
	LoadSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
	QuerySessions(ctx context.Context, f Filter) ([]*Session, error)

	SaveTask(ctx context.Context, t *Task) error
	LoadTask(ctx context.Context, id string) (*Task, error)
	QueryTasks(ctx context.Context, f TaskFilter) ([]*Task, error)
}
