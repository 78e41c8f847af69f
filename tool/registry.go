package tool

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is a concurrency-safe tool catalog. Agents draw their callable
// tool sets from a shared registry through filtered views, so one catalog
// can back many agents with different capabilities.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a registry seeded with the given tools. Seeding
// panics on duplicate names; use Register for error handling.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}

	for _, t := range tools {
		if err := r.Register(t); err != nil {
			panic(err)
		}
	}

	return r
}

// Register adds a tool to the catalog. Registering a name twice is an error;
// use Replace to swap an implementation.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("register: nil tool")
	}
	if t.Name() == "" {
		return fmt.Errorf("register: tool has no name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[t.Name()]; exists {
		return fmt.Errorf("register: tool %q already registered", t.Name())
	}
	r.tools[t.Name()] = t

	return nil
}

// Replace installs the tool, overwriting any previous registration of the
// same name.
func (r *Registry) Replace(t Tool) {
	if t == nil || t.Name() == "" {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.tools[t.Name()] = t
}

// Deregister removes the named tool. Unknown names are a no-op.
func (r *Registry) Deregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tools, name)
}

// Get returns the named tool and whether it was registered.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tools[name]

	return t, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// All returns the registered tools ordered by name.
func (r *Registry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]Tool, 0, len(names))
	for _, name := range names {
		out = append(out, r.tools[name])
	}

	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.tools)
}

// View returns a filtered name-to-tool map limited to the given names,
// silently skipping names that are not registered. No names means the full
// catalog. The returned map is a detached copy safe to hand to a scheduler.
func (r *Registry) View(names ...string) map[string]Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	view := make(map[string]Tool)
	if len(names) == 0 {
		for name, t := range r.tools {
			view[name] = t
		}
		return view
	}

	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			view[name] = t
		}
	}

	return view
}
