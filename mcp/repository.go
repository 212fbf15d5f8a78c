package mcp

import (
	"context"
	"sync"
)

// FindFilter narrows FindAll results.
type FindFilter struct {
	// Scope filters by scope when non-empty.
	Scope Scope

	// EnabledOnly keeps only enabled servers.
	EnabledOnly bool
}

// Repository is the tool-server store consulted by the resolver.
type Repository interface {
	// FindAll returns descriptors matching the filter, in insertion order.
	FindAll(ctx context.Context, filter FindFilter) ([]ToolServerDescriptor, error)

	// ListServers returns the servers explicitly assigned to a session,
	// in assignment order.
	ListServers(ctx context.Context, sessionID string, enabledOnly bool) ([]ToolServerDescriptor, error)
}

// MemoryRepository is an in-memory Repository.
type MemoryRepository struct {
	mu          sync.RWMutex
	servers     []ToolServerDescriptor
	assignments map[string][]string // session id -> server ids
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{assignments: make(map[string][]string)}
}

// Add registers a descriptor. An existing descriptor with the same id is
// replaced in place, preserving order.
func (r *MemoryRepository) Add(d ToolServerDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.servers {
		if existing.ID == d.ID {
			r.servers[i] = d
			return
		}
	}
	r.servers = append(r.servers, d)
}

// Assign makes a session-scope server visible to a session.
func (r *MemoryRepository) Assign(sessionID, serverID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.assignments[sessionID] {
		if id == serverID {
			return
		}
	}
	r.assignments[sessionID] = append(r.assignments[sessionID], serverID)
}

func (r *MemoryRepository) FindAll(ctx context.Context, filter FindFilter) ([]ToolServerDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []ToolServerDescriptor
	for _, d := range r.servers {
		if filter.Scope != "" && d.Scope != filter.Scope {
			continue
		}
		if filter.EnabledOnly && !d.Enabled {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *MemoryRepository) ListServers(ctx context.Context, sessionID string, enabledOnly bool) ([]ToolServerDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	byID := make(map[string]ToolServerDescriptor, len(r.servers))
	for _, d := range r.servers {
		byID[d.ID] = d
	}
	var out []ToolServerDescriptor
	for _, id := range r.assignments[sessionID] {
		d, ok := byID[id]
		if !ok {
			continue
		}
		if enabledOnly && !d.Enabled {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}
