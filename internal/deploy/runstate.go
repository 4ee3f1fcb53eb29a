package deploy

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// State is the lifecycle state of one component within a run.
type State string

const (
	// StatePending means the component has not been attempted. When the
	// run ended with the component still pending, the detail names the
	// dependency that kept it from starting.
	StatePending State = "pending"

	// StateDeploying means the component's adapter is in flight.
	StateDeploying State = "deploying"

	// StateSucceeded means activation completed.
	StateSucceeded State = "succeeded"

	// StateFailed means activation failed after any permitted retry.
	StateFailed State = "failed"

	// StateInterrupted means the run was canceled while this component
	// was in flight; its state on the host is unknown.
	StateInterrupted State = "interrupted"
)

// Outcome is the per-component result of a deployment run.
type Outcome struct {
	ComponentID string    `yaml:"component"`
	State       State     `yaml:"state"`
	Detail      string    `yaml:"detail,omitempty"`
	StartedAt   time.Time `yaml:"startedAt,omitempty"`
	FinishedAt  time.Time `yaml:"finishedAt,omitempty"`
}

// RunState is the checkpoint written after every outcome transition. It
// survives the process so `lattice --status` can report the last run.
type RunState struct {
	Domain    string    `yaml:"domain"`
	StartedAt time.Time `yaml:"startedAt"`
	UpdatedAt time.Time `yaml:"updatedAt"`
	Outcomes  []Outcome `yaml:"outcomes"`
}

// Succeeded reports whether every component in the run succeeded.
func (s *RunState) Succeeded() bool {
	if len(s.Outcomes) == 0 {
		return false
	}
	for _, o := range s.Outcomes {
		if o.State != StateSucceeded {
			return false
		}
	}
	return true
}

// Outcome returns the outcome recorded for the given component.
func (s *RunState) Outcome(componentID string) (*Outcome, bool) {
	for i := range s.Outcomes {
		if s.Outcomes[i].ComponentID == componentID {
			return &s.Outcomes[i], true
		}
	}
	return nil, false
}

// LoadRunState reads a checkpoint. A missing file means no run has
// happened yet and returns nil without an error.
func LoadRunState(path string) (*RunState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read run state: %w", err)
	}

	var state RunState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to parse run state: %w", err)
	}
	return &state, nil
}

// SaveRunState writes a checkpoint, creating the parent directory when
// needed.
func SaveRunState(path string, state *RunState) error {
	out, err := yaml.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal run state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("failed to write run state: %w", err)
	}
	return nil
}
