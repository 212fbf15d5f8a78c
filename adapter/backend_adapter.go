package adapter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/lambdaflows/devteam/auth"
	"github.com/lambdaflows/devteam/backend"
	"github.com/lambdaflows/devteam/permission"
	"github.com/lambdaflows/devteam/stream"
)

// defaultContinuationCacheSize bounds the per-adapter continuation cache.
const defaultContinuationCacheSize = 1024

// nopHandler is a slog.Handler that discards all output.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }

var nopLogger = slog.New(nopHandler{})

type sessionState string

const (
	stateRunning    sessionState = "running"
	stateIdle       sessionState = "idle"
	stateFailed     sessionState = "failed"
	stateTerminated sessionState = "terminated"
)

// privateSession is the adapter's own record of a session. It exists so the
// adapter can cancel in-flight work without reaching into the session
// manager, which owns the public lifecycle state.
type privateSession struct {
	state  sessionState
	cancel context.CancelFunc
}

// BackendAdapter implements Adapter over a backend.Client. It owns the
// permission-mode translation, credential validation, continuation caching
// and stream normalization for one agent type.
type BackendAdapter struct {
	desc       Descriptor
	client     backend.Client
	creds      auth.Provider
	translator *permission.Translator
	logger     *slog.Logger

	continuations *lru.Cache[string, string]

	mu          sync.Mutex
	sessions    map[string]*privateSession
	initialized bool
}

// BackendOption configures a BackendAdapter.
type BackendOption func(*BackendAdapter)

// WithTranslator sets the permission-mode translator. Without one, modes
// pass through untranslated.
func WithTranslator(t *permission.Translator) BackendOption {
	return func(a *BackendAdapter) { a.translator = t }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) BackendOption {
	return func(a *BackendAdapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewBackendAdapter creates an adapter for one backend client.
func NewBackendAdapter(desc Descriptor, client backend.Client, creds auth.Provider, opts ...BackendOption) *BackendAdapter {
	cache, _ := lru.New[string, string](defaultContinuationCacheSize)
	a := &BackendAdapter{
		desc:          desc,
		client:        client,
		creds:         creds,
		logger:        nopLogger,
		continuations: cache,
		sessions:      make(map[string]*privateSession),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *BackendAdapter) GetCapabilities() Capabilities { return a.desc.Capabilities }

func (a *BackendAdapter) Descriptor() Descriptor { return a.desc }

// Initialize validates credentials. A stale or invalid credential set gets
// one refresh attempt; a second failure surfaces as *auth.AuthError.
func (a *BackendAdapter) Initialize(ctx context.Context) error {
	a.mu.Lock()
	if a.initialized {
		a.mu.Unlock()
		return nil
	}
	a.mu.Unlock()

	c, err := a.creds.GetCredentials(ctx)
	if err != nil || c.Expired(time.Now()) || !a.creds.ValidateCredentials(ctx, c) {
		a.logger.Info("credentials stale, refreshing", "agent", a.desc.Type)
		c, err = a.creds.RefreshCredentials(ctx)
		if err != nil {
			return &auth.AuthError{Cause: err, AgentType: a.desc.Type, Reason: "refresh failed"}
		}
		if !a.creds.ValidateCredentials(ctx, c) {
			return &auth.AuthError{AgentType: a.desc.Type, Reason: "credentials invalid after refresh"}
		}
	}

	a.mu.Lock()
	a.initialized = true
	a.mu.Unlock()
	a.logger.Info("adapter initialized", "agent", a.desc.Type)
	return nil
}

// resolveContinuation picks the vendor conversation to resume: an explicit
// id wins, Fresh forgets the cache, otherwise the cached id for the session.
func (a *BackendAdapter) resolveContinuation(sessionID string, opts ExecuteOptions) string {
	if opts.ContinuationID != "" {
		return opts.ContinuationID
	}
	if opts.Fresh {
		a.continuations.Remove(sessionID)
		return ""
	}
	if id, ok := a.continuations.Get(sessionID); ok {
		return id
	}
	return ""
}

// Execute runs one prompt turn. A stopped turn is a partial result, not an
// error; vendor failures and hangs surface as *ExecutionError.
func (a *BackendAdapter) Execute(ctx context.Context, sessionID, prompt string, opts ExecuteOptions) (*Result, error) {
	a.mu.Lock()
	if !a.initialized {
		a.mu.Unlock()
		return nil, ErrNotInitialized
	}
	a.mu.Unlock()

	mode := opts.PermissionMode
	if mode == "" {
		mode = a.desc.DefaultPermissionMode
	}
	if a.translator != nil {
		mode = a.translator.Translate(mode)
	}

	submit := backend.SubmitOptions{
		ContinuationID: a.resolveContinuation(sessionID, opts),
		PermissionMode: mode,
		Model:          opts.Model,
		WorkDir:        opts.WorkDir,
		ToolServers:    opts.ToolServers,
	}

	start := time.Now()
	st, err := a.client.Submit(ctx, prompt, submit)
	if err != nil {
		a.markSession(sessionID, stateFailed, nil)
		return nil, &ExecutionError{AgentType: a.desc.Type, SessionID: sessionID, Cause: err}
	}
	defer st.Close()

	execCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.markSession(sessionID, stateRunning, cancel)

	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = stream.DefaultIdleTimeout
	}
	proc := stream.New(st.Events(),
		stream.WithSink(opts.Sink),
		stream.WithIdleTimeout(idle),
		stream.WithAbort(st.Abort),
		stream.WithLogger(a.logger),
	)

	outcome, err := proc.Run(execCtx)
	if err != nil {
		a.markSession(sessionID, stateFailed, nil)
		return nil, &ExecutionError{AgentType: a.desc.Type, SessionID: sessionID, Cause: err}
	}
	a.markSession(sessionID, stateIdle, nil)

	if outcome.ContinuationID != "" {
		a.continuations.Add(sessionID, outcome.ContinuationID)
	}

	status := StatusSuccess
	if outcome.Stopped {
		status = StatusPartial
	}
	return &Result{
		Content:        outcome.FinalText(),
		Messages:       outcome.Messages,
		ToolCalls:      outcome.ToolCalls,
		FilesModified:  outcome.FilesModified,
		Status:         status,
		Usage:          outcome.Usage,
		Stopped:        outcome.Stopped,
		ContinuationID: outcome.ContinuationID,
		DurationMs:     time.Since(start).Milliseconds(),
	}, nil
}

func (a *BackendAdapter) markSession(id string, state sessionState, cancel context.CancelFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.sessions[id]
	if !ok {
		s = &privateSession{}
		a.sessions[id] = s
	}
	if s.state == stateTerminated && state != stateRunning {
		return
	}
	s.state = state
	s.cancel = cancel
}

// TerminateSession cancels a session's in-flight work. Unknown and already
// terminated sessions are a no-op.
func (a *BackendAdapter) TerminateSession(sessionID string) error {
	a.mu.Lock()
	s, ok := a.sessions[sessionID]
	if !ok || s.state == stateTerminated {
		a.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.state = stateTerminated
	s.cancel = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	a.continuations.Remove(sessionID)
	a.logger.Info("session terminated", "agent", a.desc.Type, "session", sessionID)
	return nil
}

// HealthCheck pings the backend. A panicking client reads as unhealthy.
func (a *BackendAdapter) HealthCheck(ctx context.Context) (healthy bool) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Warn("health check panicked", "agent", a.desc.Type, "panic", r)
			healthy = false
		}
	}()
	return a.client.Ping(ctx) == nil
}

// Cleanup terminates every known session and closes the backend client.
func (a *BackendAdapter) Cleanup(ctx context.Context) error {
	a.mu.Lock()
	ids := make([]string, 0, len(a.sessions))
	for id := range a.sessions {
		ids = append(ids, id)
	}
	a.mu.Unlock()

	for _, id := range ids {
		_ = a.TerminateSession(id)
	}
	return a.client.Close()
}
