// Package prereq checks for the host tools a deployment needs and can
// install missing ones on supported platforms.
package prereq

import "os/exec"

// Tool is a required host binary.
type Tool struct {
	// Name is the binary probed on PATH.
	Name string
	// Description explains why the tool is needed.
	Description string
}

// DefaultTools lists everything a full deployment relies on.
var DefaultTools = []Tool{
	{Name: "docker", Description: "Docker is required for container deployment"},
	{Name: "docker-compose", Description: "Docker Compose is required for multi-container deployment"},
	{Name: "kubectl", Description: "Kubernetes CLI is required for orchestrator deployment"},
	{Name: "helm", Description: "Helm is required for Kubernetes deployments"},
	{Name: "git", Description: "Git is required for cloning repositories"},
}

// Status is the probe result for one tool.
type Status struct {
	Tool    Tool
	Present bool
	// Path is where the binary was found, empty when missing.
	Path string
}

// Set holds the probe results for a tool list.
type Set struct {
	Statuses []Status
}

// Check probes each tool on PATH.
func Check(tools []Tool) *Set {
	set := &Set{Statuses: make([]Status, 0, len(tools))}
	for _, tool := range tools {
		path, err := exec.LookPath(tool.Name)
		set.Statuses = append(set.Statuses, Status{
			Tool:    tool,
			Present: err == nil,
			Path:    path,
		})
	}
	return set
}

// Missing returns the tools that were not found.
func (s *Set) Missing() []Tool {
	var missing []Tool
	for _, st := range s.Statuses {
		if !st.Present {
			missing = append(missing, st.Tool)
		}
	}
	return missing
}

// AllPresent reports whether every probed tool was found.
func (s *Set) AllPresent() bool {
	return len(s.Missing()) == 0
}
