package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// repoFile is the on-disk YAML layout of a tool-server repository.
type repoFile struct {
	Servers     []ToolServerDescriptor `yaml:"servers"`
	Assignments map[string][]string    `yaml:"assignments,omitempty"`
}

// FileRepository reads tool-server descriptors from a YAML file and reloads
// it when the file changes on disk.
type FileRepository struct {
	path   string
	logger *slog.Logger

	mu       sync.RWMutex
	delegate *MemoryRepository

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewFileRepository loads the given YAML file. Call Watch to enable live
// reload and Close to release the watcher.
func NewFileRepository(path string, logger *slog.Logger) (*FileRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &FileRepository{path: path, logger: logger}
	if err := r.reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// reload reads and parses the file, swapping in a fresh delegate.
func (r *FileRepository) reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read tool server config: %w", err)
	}

	var f repoFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse tool server config: %w", err)
	}

	delegate := NewMemoryRepository()
	for _, d := range f.Servers {
		delegate.Add(d)
	}
	for sessionID, serverIDs := range f.Assignments {
		for _, id := range serverIDs {
			delegate.Assign(sessionID, id)
		}
	}

	r.mu.Lock()
	r.delegate = delegate
	r.mu.Unlock()
	return nil
}

// Watch starts watching the config file for changes. Edits that fail to
// parse are logged and the previous configuration stays live.
func (r *FileRepository) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: editors replace files via rename, which drops
	// a watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		watcher.Close()
		return err
	}

	r.watcher = watcher
	r.done = make(chan struct{})
	r.wg.Add(1)
	go r.watchLoop()
	return nil
}

func (r *FileRepository) watchLoop() {
	defer r.wg.Done()
	base := filepath.Base(r.path)
	for {
		select {
		case <-r.done:
			return
		case ev, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
				continue
			}
			if err := r.reload(); err != nil {
				r.logger.Warn("tool server config reload failed", "path", r.path, "error", err)
				continue
			}
			r.logger.Info("tool server config reloaded", "path", r.path)
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("tool server config watch error", "error", err)
		}
	}
}

// Close stops the watcher, if started.
func (r *FileRepository) Close() error {
	if r.watcher == nil {
		return nil
	}
	close(r.done)
	err := r.watcher.Close()
	r.wg.Wait()
	r.watcher = nil
	return err
}

func (r *FileRepository) FindAll(ctx context.Context, filter FindFilter) ([]ToolServerDescriptor, error) {
	r.mu.RLock()
	delegate := r.delegate
	r.mu.RUnlock()
	return delegate.FindAll(ctx, filter)
}

func (r *FileRepository) ListServers(ctx context.Context, sessionID string, enabledOnly bool) ([]ToolServerDescriptor, error) {
	r.mu.RLock()
	delegate := r.delegate
	r.mu.RUnlock()
	return delegate.ListServers(ctx, sessionID, enabledOnly)
}
