package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lambdaflows/devteam/adapter"
	"github.com/lambdaflows/devteam/backend"
	"github.com/lambdaflows/devteam/mcp"
	"github.com/lambdaflows/devteam/notify"
	"github.com/lambdaflows/devteam/stream"
)

// nopHandler is a slog.Handler that discards all output.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }

var nopLogger = slog.New(nopHandler{})

// AdapterSource resolves an agent type to its adapter. *adapter.Registry
// satisfies it.
type AdapterSource interface {
	Lookup(agentType string) (adapter.Adapter, error)
}

// ToolServerResolver computes the per-session tool-server set.
// *mcp.Resolver satisfies it.
type ToolServerResolver interface {
	Resolve(ctx context.Context, sessionID string, tctx mcp.TemplateContext) ([]mcp.ResolvedServer, error)
}

// PromptMode selects how a prompt relates to the target session.
type PromptMode string

const (
	// PromptContinue resumes the session's vendor conversation.
	PromptContinue PromptMode = "continue"

	// PromptFork creates a sibling session with a fresh vendor
	// conversation and runs the prompt there.
	PromptFork PromptMode = "fork"

	// PromptSubsession creates a child session and runs the prompt there.
	PromptSubsession PromptMode = "subsession"
)

// Config describes a session to create. Zero-value fields inherit defaults.
type Config struct {
	ID             string
	Name           string
	AgentType      string
	PermissionMode string
	Model          string
	WorkDir        string
	WorktreeID     string
	ParentID       string
	SpawnReason    string
}

// PromptRequest is one prompt call against a session.
type PromptRequest struct {
	Prompt string

	// Mode defaults to PromptContinue.
	Mode PromptMode

	// AgentType and PermissionMode override the session's values for a
	// fork or subsession target.
	AgentType      string
	PermissionMode string

	// TemplateContext resolves tool-server config templates for this call.
	TemplateContext mcp.TemplateContext

	// Sink receives normalized streaming events.
	Sink stream.Sink

	// Wait blocks until an in-flight task settles instead of rejecting
	// with ErrSessionBusy.
	Wait bool

	// IdleTimeout overrides the idle threshold for this call.
	IdleTimeout time.Duration
}

// sessionLocks is the per-session concurrency state. run rejects concurrent
// prompts; approval serializes mid-stream permission callbacks; cancel stops
// the in-flight stream.
type sessionLocks struct {
	run        sync.Mutex
	approval   sync.Mutex
	mu         sync.Mutex
	cancel     context.CancelFunc
	terminated bool
}

// Manager owns session and task state.
type Manager struct {
	store    Store
	adapters AdapterSource
	resolver ToolServerResolver
	notifier notify.Notifier
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*sessionLocks
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithResolver sets the tool-server resolver. Without one, prompts run with
// no tool servers.
func WithResolver(r ToolServerResolver) ManagerOption {
	return func(m *Manager) { m.resolver = r }
}

// WithNotifier sets the host notification sink.
func WithNotifier(n notify.Notifier) ManagerOption {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a session manager over a store and an adapter source.
func NewManager(store Store, adapters AdapterSource, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:    store,
		adapters: adapters,
		notifier: notify.Nop{},
		logger:   nopLogger,
		locks:    make(map[string]*sessionLocks),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) locksFor(id string) *sessionLocks {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[id]
	if !ok {
		l = &sessionLocks{}
		m.locks[id] = l
	}
	return l
}

// CreateSession allocates and persists a new session in idle state. An
// unspecified permission mode resolves to the agent's documented default.
func (m *Manager) CreateSession(ctx context.Context, cfg Config) (*Session, error) {
	ad, err := m.adapters.Lookup(cfg.AgentType)
	if err != nil {
		return nil, err
	}

	mode := cfg.PermissionMode
	if mode == "" {
		mode = ad.Descriptor().DefaultPermissionMode
	}
	id := cfg.ID
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now().UTC()
	s := &Session{
		ID:             id,
		Name:           cfg.Name,
		AgentType:      cfg.AgentType,
		PermissionMode: mode,
		Model:          cfg.Model,
		WorkDir:        cfg.WorkDir,
		WorktreeID:     cfg.WorktreeID,
		ParentID:       cfg.ParentID,
		SpawnReason:    cfg.SpawnReason,
		Status:         StatusIdle,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if cfg.ParentID != "" {
		parent, err := m.store.LoadSession(ctx, cfg.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, notFound("session", cfg.ParentID)
		}
		parent.ChildIDs = append(parent.ChildIDs, s.ID)
		parent.UpdatedAt = now
		if err := m.store.SaveSession(ctx, parent); err != nil {
			return nil, err
		}
	}

	if err := m.store.SaveSession(ctx, s); err != nil {
		return nil, err
	}
	m.logger.Info("session created",
		"session", s.ID, "agent", s.AgentType, "parent", s.ParentID)
	m.notifier.Notify(notify.Event{
		Type:      notify.TypeSessionUpdated,
		SessionID: s.ID,
		AgentType: s.AgentType,
		Time:      now,
	})
	return s, nil
}

// SpawnSession creates a child pre-populated from the parent. Overrides in
// cfg win over inherited values; the child is recorded in the parent's
// child index and starts idle.
func (m *Manager) SpawnSession(ctx context.Context, parentID string, cfg Config) (*Session, error) {
	parent, err := m.store.LoadSession(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, notFound("session", parentID)
	}

	child := cfg
	child.ParentID = parentID
	if child.AgentType == "" {
		child.AgentType = parent.AgentType
	}
	if child.PermissionMode == "" {
		child.PermissionMode = parent.PermissionMode
	}
	if child.Model == "" {
		child.Model = parent.Model
	}
	if child.WorkDir == "" {
		child.WorkDir = parent.WorkDir
	}
	if child.WorktreeID == "" {
		child.WorktreeID = parent.WorktreeID
	}
	if child.SpawnReason == "" {
		child.SpawnReason = "spawn"
	}
	return m.CreateSession(ctx, child)
}

// GetSession loads one session.
func (m *Manager) GetSession(ctx context.Context, id string) (*Session, error) {
	s, err := m.store.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, notFound("session", id)
	}
	return s, nil
}

// GetTask loads one task.
func (m *Manager) GetTask(ctx context.Context, id string) (*Task, error) {
	t, err := m.store.LoadTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, notFound("task", id)
	}
	return t, nil
}

// ListSessions returns sessions matching the filter in insertion order.
func (m *Manager) ListSessions(ctx context.Context, f Filter) ([]*Session, error) {
	return m.store.QuerySessions(ctx, f)
}

// ListTasks returns tasks matching the filter in insertion order.
func (m *Manager) ListTasks(ctx context.Context, f TaskFilter) ([]*Task, error) {
	return m.store.QueryTasks(ctx, f)
}

// PromptSession runs one prompt turn. Continue targets the session itself;
// fork and subsession first spawn the target session. A session with an
// in-flight task rejects the call with ErrSessionBusy.
func (m *Manager) PromptSession(ctx context.Context, id string, req PromptRequest) (*Task, error) {
	origin, err := m.store.LoadSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if origin == nil {
		return nil, notFound("session", id)
	}

	mode := req.Mode
	if mode == "" {
		mode = PromptContinue
	}

	target := origin
	fresh := false
	switch mode {
	case PromptContinue:
	case PromptFork:
		target, err = m.SpawnSession(ctx, id, Config{
			AgentType:      req.AgentType,
			PermissionMode: req.PermissionMode,
			SpawnReason:    "fork",
		})
		if err != nil {
			return nil, err
		}
		// A fork is a sibling of the origin, not its child.
		if err := m.reparent(ctx, target, origin.ParentID); err != nil {
			return nil, err
		}
		fresh = true
	case PromptSubsession:
		target, err = m.SpawnSession(ctx, id, Config{
			AgentType:      req.AgentType,
			PermissionMode: req.PermissionMode,
			SpawnReason:    "subsession",
		})
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown prompt mode %q", mode)
	}

	return m.runTurn(ctx, target, req, fresh)
}

// reparent moves a freshly spawned session from under its origin to the
// origin's own parent, so forks land as siblings.
func (m *Manager) reparent(ctx context.Context, s *Session, newParentID string) error {
	oldParent, err := m.store.LoadSession(ctx, s.ParentID)
	if err != nil {
		return err
	}
	if oldParent != nil {
		kept := oldParent.ChildIDs[:0]
		for _, cid := range oldParent.ChildIDs {
			if cid != s.ID {
				kept = append(kept, cid)
			}
		}
		oldParent.ChildIDs = kept
		if err := m.store.SaveSession(ctx, oldParent); err != nil {
			return err
		}
	}

	s.ParentID = newParentID
	if newParentID != "" {
		newParent, err := m.store.LoadSession(ctx, newParentID)
		if err != nil {
			return err
		}
		if newParent == nil {
			return notFound("session", newParentID)
		}
		newParent.ChildIDs = append(newParent.ChildIDs, s.ID)
		if err := m.store.SaveSession(ctx, newParent); err != nil {
			return err
		}
	}
	return m.store.SaveSession(ctx, s)
}

func (m *Manager) runTurn(ctx context.Context, target *Session, req PromptRequest, fresh bool) (*Task, error) {
	locks := m.locksFor(target.ID)
	if req.Wait {
		locks.run.Lock()
	} else if !locks.run.TryLock() {
		return nil, ErrSessionBusy
	}
	defer locks.run.Unlock()

	// Re-load under the lock: a turn we waited on may have updated the
	// continuation id.
	if reloaded, err := m.store.LoadSession(ctx, target.ID); err != nil {
		return nil, err
	} else if reloaded != nil {
		target = reloaded
	}

	ad, err := m.adapters.Lookup(target.AgentType)
	if err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	locks.mu.Lock()
	locks.cancel = cancel
	locks.mu.Unlock()
	defer func() {
		locks.mu.Lock()
		locks.cancel = nil
		locks.mu.Unlock()
	}()

	now := time.Now().UTC()
	task := &Task{
		ID:        uuid.NewString(),
		SessionID: target.ID,
		Prompt:    req.Prompt,
		Status:    TaskRunning,
		StartedAt: now,
	}
	target.Status = StatusRunning
	target.UpdatedAt = now
	target.TaskIDs = append(target.TaskIDs, task.ID)
	if err := m.store.SaveTask(ctx, task); err != nil {
		return nil, err
	}
	if err := m.store.SaveSession(ctx, target); err != nil {
		return nil, err
	}
	m.notifyTask(target, task)

	var servers []backend.ToolServerConfig
	if m.resolver != nil {
		resolved, err := m.resolver.Resolve(execCtx, target.ID, req.TemplateContext)
		if err != nil {
			return m.failTurn(ctx, target, task, err)
		}
		for i := range resolved {
			servers = append(servers, resolved[i].Config())
		}
	}

	permMode := req.PermissionMode
	if permMode == "" {
		permMode = target.PermissionMode
	}
	continuation := ""
	if !fresh {
		continuation = target.ContinuationID
	}

	res, err := ad.Execute(execCtx, target.ID, req.Prompt, adapter.ExecuteOptions{
		PermissionMode: permMode,
		ContinuationID: continuation,
		Fresh:          fresh,
		Model:          target.Model,
		WorkDir:        target.WorkDir,
		ToolServers:    servers,
		Sink:           req.Sink,
		IdleTimeout:    req.IdleTimeout,
	})
	if err != nil {
		return m.failTurn(ctx, target, task, err)
	}

	done := time.Now().UTC()
	task.Content = res.Content
	task.Messages = res.Messages
	task.Usage = res.Usage
	task.DurationMs = res.DurationMs
	task.CompletedAt = done
	if res.Stopped {
		task.Status = TaskStopped
	} else {
		task.Status = TaskCompleted
	}

	target.Status = StatusIdle
	locks.mu.Lock()
	if locks.terminated {
		target.Status = StatusCompleted
	}
	locks.mu.Unlock()
	if res.ContinuationID != "" {
		target.ContinuationID = res.ContinuationID
	}
	target.UpdatedAt = done

	if err := m.store.SaveTask(ctx, task); err != nil {
		return nil, err
	}
	if err := m.store.SaveSession(ctx, target); err != nil {
		return nil, err
	}
	m.notifyTask(target, task)
	return task, nil
}

// failTurn records a failed execution: the task and session both end up
// failed with the cause captured on the task.
func (m *Manager) failTurn(ctx context.Context, target *Session, task *Task, cause error) (*Task, error) {
	now := time.Now().UTC()
	task.Status = TaskFailed
	task.Error = cause.Error()
	task.CompletedAt = now
	target.Status = StatusFailed
	target.UpdatedAt = now

	if err := m.store.SaveTask(ctx, task); err != nil {
		m.logger.Error("failed to persist failed task", "task", task.ID, "error", err)
	}
	if err := m.store.SaveSession(ctx, target); err != nil {
		m.logger.Error("failed to persist failed session", "session", target.ID, "error", err)
	}
	m.logger.Warn("turn failed",
		"session", target.ID, "task", task.ID, "error", cause)
	m.notifyTask(target, task)
	return nil, cause
}

func (m *Manager) notifyTask(s *Session, t *Task) {
	now := time.Now().UTC()
	m.notifier.Notify(notify.Event{
		Type:      notify.TypeTaskUpdated,
		SessionID: s.ID,
		TaskID:    t.ID,
		AgentType: s.AgentType,
		Payload:   map[string]any{"status": string(t.Status)},
		Time:      now,
	})
	m.notifier.Notify(notify.Event{
		Type:      notify.TypeSessionUpdated,
		SessionID: s.ID,
		AgentType: s.AgentType,
		Payload:   map[string]any{"status": string(s.Status)},
		Time:      now,
	})
}

// WithApprovalLock serializes mid-stream permission callbacks for one
// session, so concurrent tool calls within a turn cannot produce duplicate
// approval prompts.
func (m *Manager) WithApprovalLock(sessionID string, fn func() error) error {
	l := m.locksFor(sessionID)
	l.approval.Lock()
	defer l.approval.Unlock()
	return fn()
}

// Cancel stops the session's in-flight stream, if any. The turn settles as
// a stopped task, not a failure.
func (m *Manager) Cancel(sessionID string) {
	l := m.locksFor(sessionID)
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// TerminateSession ends a session. Idempotent: terminating a completed
// session is a no-op. An in-flight stream is cancelled first.
func (m *Manager) TerminateSession(ctx context.Context, id string) error {
	s, err := m.store.LoadSession(ctx, id)
	if err != nil {
		return err
	}
	if s == nil {
		return notFound("session", id)
	}
	if s.Status == StatusCompleted {
		return nil
	}

	l := m.locksFor(id)
	l.mu.Lock()
	l.terminated = true
	cancel := l.cancel
	l.mu.Unlock()
	if cancel != nil {
		cancel()
	}

	if ad, err := m.adapters.Lookup(s.AgentType); err == nil {
		if err := ad.TerminateSession(id); err != nil {
			m.logger.Warn("adapter terminate failed", "session", id, "error", err)
		}
	}

	s.Status = StatusCompleted
	s.UpdatedAt = time.Now().UTC()
	if err := m.store.SaveSession(ctx, s); err != nil {
		return err
	}
	m.notifier.Notify(notify.Event{
		Type:      notify.TypeSessionUpdated,
		SessionID: s.ID,
		AgentType: s.AgentType,
		Payload:   map[string]any{"status": string(s.Status)},
		Time:      s.UpdatedAt,
	})
	return nil
}
