// Package orchestrator is the composition root: it wires the adapter
// registry, session manager, tool-server resolver and notification sink
// behind one façade. Hosts construct one Orchestrator and register their
// agent adapters at startup.
package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/lambdaflows/devteam/adapter"
	"github.com/lambdaflows/devteam/auth"
	"github.com/lambdaflows/devteam/notify"
	"github.com/lambdaflows/devteam/session"
	"github.com/lambdaflows/devteam/storage"
)

// nopHandler is a slog.Handler that discards all output.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (h nopHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h nopHandler) WithGroup(string) slog.Handler           { return h }

var nopLogger = slog.New(nopHandler{})

// Orchestrator fronts the whole agent stack.
type Orchestrator struct {
	registry *adapter.Registry
	manager  *session.Manager
	store    session.Store
	resolver session.ToolServerResolver
	notifier notify.Notifier
	logger   *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStore sets the session store. Defaults to an in-memory store.
func WithStore(s session.Store) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.store = s
		}
	}
}

// WithResolver sets the tool-server resolver.
func WithResolver(r session.ToolServerResolver) Option {
	return func(o *Orchestrator) { o.resolver = r }
}

// WithNotifier sets the host notification sink.
func WithNotifier(n notify.Notifier) Option {
	return func(o *Orchestrator) {
		if n != nil {
			o.notifier = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates an orchestrator. Register adapters before prompting.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: adapter.NewRegistry(),
		store:    storage.NewMemoryStore(),
		notifier: notify.Nop{},
		logger:   nopLogger,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.manager = session.NewManager(o.store, o.registry,
		session.WithResolver(o.resolver),
		session.WithNotifier(o.notifier),
		session.WithLogger(o.logger),
	)
	return o
}

// RegisterAgent initializes an adapter and adds it to the registry. An
// authentication failure is reported to the host notification channel and
// returned; the adapter is not registered.
func (o *Orchestrator) RegisterAgent(ctx context.Context, a adapter.Adapter) error {
	if err := a.Initialize(ctx); err != nil {
		var authErr *auth.AuthError
		if errors.As(err, &authErr) {
			o.notifier.Notify(notify.Event{
				Type:      notify.TypeAuthRequired,
				AgentType: authErr.AgentType,
				Payload:   map[string]any{"reason": authErr.Reason},
			})
		}
		return err
	}
	o.registry.Register(a)
	o.logger.Info("agent registered", "agent", a.Descriptor().Type)
	return nil
}

// AgentTypes returns the registered agent type names.
func (o *Orchestrator) AgentTypes() []string { return o.registry.Types() }

// CreateSession creates an idle session for a registered agent type.
func (o *Orchestrator) CreateSession(ctx context.Context, cfg session.Config) (*session.Session, error) {
	return o.manager.CreateSession(ctx, cfg)
}

// Prompt runs one prompt turn against a session.
func (o *Orchestrator) Prompt(ctx context.Context, sessionID string, req session.PromptRequest) (*session.Task, error) {
	return o.manager.PromptSession(ctx, sessionID, req)
}

// Cancel stops a session's in-flight stream, if any.
func (o *Orchestrator) Cancel(sessionID string) { o.manager.Cancel(sessionID) }

// Terminate ends a session. Idempotent.
func (o *Orchestrator) Terminate(ctx context.Context, sessionID string) error {
	return o.manager.TerminateSession(ctx, sessionID)
}

// GetSession loads one session.
func (o *Orchestrator) GetSession(ctx context.Context, id string) (*session.Session, error) {
	return o.manager.GetSession(ctx, id)
}

// Genealogy resolves a session's family live.
func (o *Orchestrator) Genealogy(ctx context.Context, sessionID string) (*session.Genealogy, error) {
	return o.manager.GetGenealogy(ctx, sessionID)
}

// ListSessions returns sessions matching the filter in insertion order.
func (o *Orchestrator) ListSessions(ctx context.Context, f session.Filter) ([]*session.Session, error) {
	return o.manager.ListSessions(ctx, f)
}

// ListTasks returns tasks matching the filter in insertion order.
func (o *Orchestrator) ListTasks(ctx context.Context, f session.TaskFilter) ([]*session.Task, error) {
	return o.manager.ListTasks(ctx, f)
}

// HealthCheck probes every registered adapter concurrently and reports
// reachability per agent type.
func (o *Orchestrator) HealthCheck(ctx context.Context) map[string]bool {
	var mu sync.Mutex
	out := make(map[string]bool)

	g, ctx := errgroup.WithContext(ctx)
	for _, agentType := range o.registry.Types() {
		g.Go(func() error {
			a, err := o.registry.Lookup(agentType)
			if err != nil {
				return nil
			}
			healthy := a.HealthCheck(ctx)
			mu.Lock()
			out[agentType] = healthy
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Cleanup shuts every registered adapter down concurrently. The first
// cleanup error is returned; the rest still run.
func (o *Orchestrator) Cleanup(ctx context.Context) error {
	var g errgroup.Group
	for _, agentType := range o.registry.Types() {
		g.Go(func() error {
			a, err := o.registry.Lookup(agentType)
			if err != nil {
				return nil
			}
			return a.Cleanup(ctx)
		})
	}
	return g.Wait()
}
