package adapter

import (
	"fmt"
	"sync"
)

// Registry holds the registered adapters by agent type. Registration is
// explicit and happens at startup; there is no runtime plugin loading.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds an adapter under its descriptor's agent type, replacing any
// previous registration.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Descriptor().Type] = a
}

// Lookup returns the adapter for an agent type.
func (r *Registry) Lookup(agentType string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[agentType]
	if !ok {
		return nil, fmt.Errorf("unknown agent type %q", agentType)
	}
	return a, nil
}

// Types returns the registered agent type names.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.adapters))
	for t := range r.adapters {
		types = append(types, t)
	}
	return types
}
