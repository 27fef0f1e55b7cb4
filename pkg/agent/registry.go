package agent

import "sort"

// Registry maps agent names to agents. It is built once at bootstrap and
// read-only afterwards, so lookups need no locking.
type Registry struct {
	agents map[string]Agent
}

// NewRegistry builds a registry from the given agents, keyed by Name().
func NewRegistry(agents ...Agent) *Registry {
	m := make(map[string]Agent, len(agents))
	for _, a := range agents {
		m[a.Name()] = a
	}
	return &Registry{agents: m}
}

// Get returns the agent registered under name.
func (r *Registry) Get(name string) (Agent, bool) {
	a, ok := r.agents[name]
	return a, ok
}

// Names returns all registered agent names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.agents))
	for name := range r.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
