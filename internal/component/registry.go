package component

import (
	"fmt"
	"sync"
)

// Registry manages all available components
type Registry struct {
	mu         sync.RWMutex
	components map[string]Component
}

// NewRegistry creates a new component registry
func NewRegistry() *Registry {
	return &Registry{
		components: make(map[string]Component),
	}
}

// Register adds a component to the registry
// Returns an error if a component with the same ID already exists
func (r *Registry) Register(component Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := component.ID()
	if _, exists := r.components[id]; exists {
		return fmt.Errorf("component %q is already registered", id)
	}

	r.components[id] = component
	return nil
}

// Get retrieves a component by ID
// Returns nil if the component is not found
func (r *Registry) Get(id string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.components[id]
}

// Has checks if a component is registered
func (r *Registry) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.components[id]
	return exists
}

// List returns all registered component IDs
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.components))
	for id := range r.components {
		ids = append(ids, id)
	}
	return ids
}

// GetAll returns all registered components
func (r *Registry) GetAll() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	components := make([]Component, 0, len(r.components))
	for _, component := range r.components {
		components = append(components, component)
	}
	return components
}
