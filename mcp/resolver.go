package mcp

import (
	"context"
	"log/slog"
)

// Resolver computes the ordered tool-server set visible to a session.
//
// Resolution is never cached: the template context carries per-user secrets
// that may change between prompt calls, so every call re-reads the
// repository and re-expands every template.
type Resolver struct {
	repo   Repository
	logger *slog.Logger
}

// NewResolver creates a resolver over a repository.
func NewResolver(repo Repository, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{repo: repo, logger: logger}
}

// Resolve returns the tool-server set for a session: all enabled global
// servers plus the session's assigned servers, deduplicated by id with
// global winning collisions. Servers whose required fields fail template
// resolution are dropped with a warning; the session is unaffected.
func (r *Resolver) Resolve(ctx context.Context, sessionID string, tctx TemplateContext) ([]ResolvedServer, error) {
	globals, err := r.repo.FindAll(ctx, FindFilter{Scope: ScopeGlobal, EnabledOnly: true})
	if err != nil {
		return nil, err
	}
	assigned, err := r.repo.ListServers(ctx, sessionID, true)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(globals)+len(assigned))
	out := make([]ResolvedServer, 0, len(globals)+len(assigned))

	add := func(d ToolServerDescriptor) {
		if seen[d.ID] {
			return
		}
		seen[d.ID] = true

		rs, err := resolve(d, tctx)
		if err != nil {
			// Required field unresolved: drop the server, keep the session.
			r.logger.Warn("tool server dropped",
				"sessionID", sessionID,
				"serverID", d.ID,
				"error", err,
			)
			return
		}
		for _, w := range rs.Warnings {
			r.logger.Warn("tool server kept with unresolved optional field",
				"sessionID", sessionID,
				"serverID", d.ID,
				"warning", w,
			)
		}
		out = append(out, *rs)
	}

	// Globals first: on id collision the global descriptor wins because it
	// claims the id before the session-scoped one is considered.
	for _, d := range globals {
		add(d)
	}
	for _, d := range assigned {
		add(d)
	}

	return out, nil
}
