package permission

import "sync"

// Registry holds one translator per agent type.
type Registry struct {
	mu sync.RWMutex
	m  map[string]*Translator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{m: make(map[string]*Translator)}
}

// Register adds or replaces the translator for its agent type.
func (r *Registry) Register(t *Translator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[t.AgentType()] = t
}

// Lookup returns the translator for an agent type.
func (r *Registry) Lookup(agentType string) (*Translator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.m[agentType]
	return t, ok
}

// Translate resolves a mode for an agent type. An unregistered agent type
// falls back to the unified default spelling, keeping translation total at
// the registry level as well.
func (r *Registry) Translate(agentType, mode string) string {
	if t, ok := r.Lookup(agentType); ok {
		return t.Translate(mode)
	}
	return string(ModeDefault)
}
