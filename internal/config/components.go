package config

import (
	"fmt"
	"strings"
)

// Component identifiers for the deployable stack. These are the only
// values accepted in a deployment record or on the command line.
const (
	ComponentOrchestrator     = "orchestrator"
	ComponentAccessGateway    = "accessGateway"
	ComponentFederatedGateway = "federatedGateway"
	ComponentNMS              = "networkManagementSystem"
)

// componentOrder is the canonical ordering used for menus, summaries,
// and the deployment plan. Dependency resolution preserves this order
// among components with no ordering constraint between them.
var componentOrder = []string{
	ComponentOrchestrator,
	ComponentAccessGateway,
	ComponentFederatedGateway,
	ComponentNMS,
}

// componentAliases maps accepted short names to canonical identifiers.
var componentAliases = map[string]string{
	"orc8r": ComponentOrchestrator,
	"agw":   ComponentAccessGateway,
	"fgw":   ComponentFederatedGateway,
	"nms":   ComponentNMS,
}

// Components returns all known component identifiers in canonical order.
func Components() []string {
	out := make([]string, len(componentOrder))
	copy(out, componentOrder)
	return out
}

// CanonicalComponent resolves a component name or alias to its canonical
// identifier. Matching is case-insensitive. Returns false for unknown names.
func CanonicalComponent(name string) (string, bool) {
	trimmed := strings.TrimSpace(name)
	for _, id := range componentOrder {
		if strings.EqualFold(trimmed, id) {
			return id, true
		}
	}
	if id, ok := componentAliases[strings.ToLower(trimmed)]; ok {
		return id, true
	}
	return "", false
}

// ComponentDisplayName returns the human-readable name used in menus
// and summaries.
func ComponentDisplayName(id string) string {
	switch id {
	case ComponentOrchestrator:
		return "Orchestrator (orc8r)"
	case ComponentAccessGateway:
		return "Access Gateway (AGW)"
	case ComponentFederatedGateway:
		return "Federated Gateway (FGW)"
	case ComponentNMS:
		return "Network Management System (NMS)"
	default:
		return id
	}
}

// ParseComponents parses a comma-separated component list into canonical
// identifiers. Duplicates collapse, aliases resolve, and the result is
// returned in canonical order. An unknown name fails the whole parse.
func ParseComponents(list string) ([]string, error) {
	selected := make(map[string]bool)
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, ok := CanonicalComponent(part)
		if !ok {
			return nil, &ValidationError{
				Field:  "components",
				Reason: fmt.Sprintf("unknown component %q (valid: %s)", part, strings.Join(Components(), ", ")),
			}
		}
		selected[id] = true
	}
	if len(selected) == 0 {
		return nil, &ValidationError{Field: "components", Reason: "at least one component must be selected"}
	}
	return canonicalSubset(selected), nil
}

// canonicalSubset returns the members of the set in canonical order.
func canonicalSubset(set map[string]bool) []string {
	var out []string
	for _, id := range componentOrder {
		if set[id] {
			out = append(out, id)
		}
	}
	return out
}
