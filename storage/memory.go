// Package storage provides session.Store implementations: an in-memory
// store for tests and single-process use, and a JSON file store for
// persistence across restarts.
package storage

import (
	"context"
	"sync"

	"github.com/lambdaflows/devteam/session"
)

// MemoryStore keeps sessions and tasks in process memory, preserving
// insertion order for queries.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*session.Session
	tasks    map[string]*session.Task
	sessIDs  []string
	taskIDs  []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*session.Session),
		tasks:    make(map[string]*session.Task),
	}
}

func (s *MemoryStore) SaveSession(ctx context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; !ok {
		s.sessIDs = append(s.sessIDs, sess.ID)
	}
	cp := *sess
	s.sessions[sess.ID] = &cp
	return nil
}

func (s *MemoryStore) LoadSession(ctx context.Context, id string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (s *MemoryStore) DeleteSession(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return nil
	}
	delete(s.sessions, id)
	for i, sid := range s.sessIDs {
		if sid == id {
			s.sessIDs = append(s.sessIDs[:i], s.sessIDs[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) QuerySessions(ctx context.Context, f session.Filter) ([]*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*session.Session
	for _, id := range s.sessIDs {
		sess := s.sessions[id]
		if f.Matches(sess) {
			cp := *sess
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) SaveTask(ctx context.Context, t *session.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; !ok {
		s.taskIDs = append(s.taskIDs, t.ID)
	}
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

func (s *MemoryStore) LoadTask(ctx context.Context, id string) (*session.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (s *MemoryStore) QueryTasks(ctx context.Context, f session.TaskFilter) ([]*session.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*session.Task
	for _, id := range s.taskIDs {
		t := s.tasks[id]
		if f.Matches(t) {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}
