package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lambdaflows/devteam/session"
)

// FileStore persists each session and task as one JSON file under a root
// directory. Writes go through a temp file and rename, so a crashed write
// never leaves a truncated entity behind. Query order follows creation
// time, which matches insertion order across restarts.
type FileStore struct {
	root string
	mu   sync.Mutex
}

// NewFileStore creates the store directories under root.
func NewFileStore(root string) (*FileStore, error) {
	for _, dir := range []string{sessionsDir(root), tasksDir(root)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	return &FileStore{root: root}, nil
}

func sessionsDir(root string) string { return filepath.Join(root, "sessions") }
func tasksDir(root string) string    { return filepath.Join(root, "tasks") }

func entityPath(dir, id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid entity id %q", id)
	}
	return filepath.Join(dir, id+".json"), nil
}

func writeEntity(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readEntity(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

func (s *FileStore) SaveSession(ctx context.Context, sess *session.Session) error {
	path, err := entityPath(sessionsDir(s.root), sess.ID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeEntity(path, sess)
}

func (s *FileStore) LoadSession(ctx context.Context, id string) (*session.Session, error) {
	path, err := entityPath(sessionsDir(s.root), id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var sess session.Session
	ok, err := readEntity(path, &sess)
	if err != nil || !ok {
		return nil, err
	}
	return &sess, nil
}

func (s *FileStore) DeleteSession(ctx context.Context, id string) error {
	path, err := entityPath(sessionsDir(s.root), id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *FileStore) QuerySessions(ctx context.Context, f session.Filter) ([]*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(sessionsDir(s.root))
	if err != nil {
		return nil, err
	}
	var out []*session.Session
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		var sess session.Session
		ok, err := readEntity(filepath.Join(sessionsDir(s.root), e.Name()), &sess)
		if err != nil {
			return nil, err
		}
		if ok && f.Matches(&sess) {
			out = append(out, &sess)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *FileStore) SaveTask(ctx context.Context, t *session.Task) error {
	path, err := entityPath(tasksDir(s.root), t.ID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return writeEntity(path, t)
}

func (s *FileStore) LoadTask(ctx context.Context, id string) (*session.Task, error) {
	path, err := entityPath(tasksDir(s.root), id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var t session.Task
	ok, err := readEntity(path, &t)
	if err != nil || !ok {
		return nil, err
	}
	return &t, nil
}

func (s *FileStore) QueryTasks(ctx context.Context, f session.TaskFilter) ([]*session.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := os.ReadDir(tasksDir(s.root))
	if err != nil {
		return nil, err
	}
	var out []*session.Task
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		var t session.Task
		ok, err := readEntity(filepath.Join(tasksDir(s.root), e.Name()), &t)
		if err != nil {
			return nil, err
		}
		if ok && f.Matches(&t) {
			out = append(out, &t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.Before(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
