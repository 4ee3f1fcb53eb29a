package component

import (
	"fmt"
)

// ResolveActivationOrder orders the selected components so every
// dependency activates before its dependents. The input order is
// preserved between components with no constraint, so the same
// selection always produces the same plan.
//
// Dependencies are never pulled in implicitly: a selected component
// whose dependency is missing from the selection is an error.
func ResolveActivationOrder(registry *Registry, selected []string) ([]string, error) {
	requested := make(map[string]bool, len(selected))
	for _, id := range selected {
		if registry.Get(id) == nil {
			return nil, ErrComponentNotFound(id)
		}
		requested[id] = true
	}

	order := make([]string, 0, len(selected))
	visited := make(map[string]bool)
	visiting := make(map[string]bool) // For cycle detection

	var visit func(string) error
	visit = func(id string) error {
		if visiting[id] {
			return fmt.Errorf("circular dependency detected involving component %q", id)
		}
		if visited[id] {
			return nil
		}

		visiting[id] = true

		for _, dep := range registry.Get(id).Dependencies() {
			if !requested[dep] {
				return fmt.Errorf("component %q requires %q, which is not part of the deployment", id, dep)
			}
			if err := visit(dep); err != nil {
				return err
			}
		}

		visiting[id] = false
		visited[id] = true
		order = append(order, id)

		return nil
	}

	// Visit in input order so unconstrained components keep it.
	for _, id := range selected {
		if err := visit(id); err != nil {
			return nil, err
		}
	}

	return order, nil
}

// ValidateSelection checks that every selected component is registered
// and that all its dependencies are part of the selection.
func ValidateSelection(registry *Registry, selected []string) error {
	_, err := ResolveActivationOrder(registry, selected)
	return err
}
