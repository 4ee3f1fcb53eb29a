package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/catalystcommunity/lattice/internal/artifact"
	"github.com/catalystcommunity/lattice/internal/component"
	"github.com/catalystcommunity/lattice/internal/config"
)

// Sequencer activates the selected components in dependency order, one
// at a time, checkpointing the run state after every transition.
type Sequencer struct {
	registry    *component.Registry
	artifactDir string
	statePath   string
	logger      *slog.Logger
}

// SequencerOptions configures a Sequencer.
type SequencerOptions struct {
	// Registry holds the component adapters.
	Registry *component.Registry
	// ArtifactDir is the base directory for rendered artifacts.
	ArtifactDir string
	// StatePath is where run-state checkpoints are written.
	StatePath string
	// Logger receives run progress; nil uses the default logger.
	Logger *slog.Logger
}

// NewSequencer creates a sequencer.
func NewSequencer(opts SequencerOptions) *Sequencer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequencer{
		registry:    opts.Registry,
		artifactDir: opts.ArtifactDir,
		statePath:   opts.StatePath,
		logger:      logger,
	}
}

// Run deploys every selected component of the record. Components whose
// dependencies did not succeed stay pending; a canceled context stops
// the run without starting new components. The returned state always
// covers every selected component.
func (s *Sequencer) Run(ctx context.Context, rec *config.Record) (*RunState, error) {
	order, err := component.ResolveActivationOrder(s.registry, rec.SelectedComponents)
	if err != nil {
		return nil, err
	}

	state := &RunState{
		Domain:    rec.Domain,
		StartedAt: time.Now(),
		Outcomes:  make([]Outcome, 0, len(order)),
	}
	for _, id := range order {
		state.Outcomes = append(state.Outcomes, Outcome{ComponentID: id, State: StatePending})
	}
	s.checkpoint(state)

	for i := range state.Outcomes {
		outcome := &state.Outcomes[i]

		if ctx.Err() != nil {
			// Interrupted between components: nothing new starts.
			break
		}

		if dep, blocked := s.blockedOn(state, outcome.ComponentID); blocked {
			outcome.Detail = fmt.Sprintf("dependency %s did not succeed", dep)
			fmt.Printf("\n⚠ Skipping %s: dependency %s did not succeed\n",
				config.ComponentDisplayName(outcome.ComponentID), config.ComponentDisplayName(dep))
			s.logger.Warn("skipping component",
				"component", outcome.ComponentID, "blocked_on", dep)
			s.checkpoint(state)
			continue
		}

		s.activate(ctx, rec, state, outcome)
		s.checkpoint(state)

		if outcome.State == StateInterrupted {
			break
		}
	}

	return state, nil
}

// blockedOn returns the first dependency of the component that has not
// succeeded in this run.
func (s *Sequencer) blockedOn(state *RunState, componentID string) (string, bool) {
	comp := s.registry.Get(componentID)
	if comp == nil {
		return "", false
	}
	for _, dep := range comp.Dependencies() {
		outcome, ok := state.Outcome(dep)
		if !ok || outcome.State != StateSucceeded {
			return dep, true
		}
	}
	return "", false
}

// activate drives one component from pending to a terminal state.
func (s *Sequencer) activate(ctx context.Context, rec *config.Record, state *RunState, outcome *Outcome) {
	id := outcome.ComponentID
	comp := s.registry.Get(id)
	if comp == nil {
		outcome.State = StateFailed
		outcome.Detail = component.ErrComponentNotFound(id).Error()
		return
	}

	outcome.State = StateDeploying
	outcome.StartedAt = time.Now()
	fmt.Printf("\nDeploying %s...\n", config.ComponentDisplayName(id))
	s.logger.Info("deploying component", "component", id)
	s.checkpoint(state)

	artifactPath, err := artifact.Write(rec, id, s.artifactDir)
	if err != nil {
		outcome.State = StateFailed
		outcome.Detail = err.Error()
		outcome.FinishedAt = time.Now()
		fmt.Printf("✗ %s failed: %v\n", config.ComponentDisplayName(id), err)
		s.logger.Error("artifact generation failed", "component", id, "error", err)
		return
	}

	err = comp.Activate(ctx, rec, artifactPath)
	if err != nil && isRetryable(err) && ctx.Err() == nil {
		fmt.Printf("⚠ Retrying %s after transient failure: %v\n", config.ComponentDisplayName(id), err)
		s.logger.Warn("retrying component", "component", id, "error", err)
		err = comp.Activate(ctx, rec, artifactPath)
	}

	outcome.FinishedAt = time.Now()
	switch {
	case ctx.Err() != nil:
		// Canceled while this component was in flight. Even a nil
		// activation error is untrustworthy here: the adapter may have
		// stopped partway through.
		outcome.State = StateInterrupted
		if err != nil {
			outcome.Detail = err.Error()
		} else {
			outcome.Detail = "interrupted during activation"
		}
		fmt.Printf("⚠ %s interrupted\n", config.ComponentDisplayName(id))
		s.logger.Warn("component interrupted", "component", id)
	case err != nil:
		outcome.State = StateFailed
		outcome.Detail = err.Error()
		fmt.Printf("✗ %s failed: %v\n", config.ComponentDisplayName(id), err)
		s.logger.Error("component failed", "component", id, "error", err)
	default:
		outcome.State = StateSucceeded
		fmt.Printf("✓ %s deployed\n", config.ComponentDisplayName(id))
		s.logger.Info("component deployed", "component", id,
			"elapsed", outcome.FinishedAt.Sub(outcome.StartedAt).Round(time.Millisecond))
	}
}

// checkpoint persists the run state. Failures are logged and do not
// interrupt the run.
func (s *Sequencer) checkpoint(state *RunState) {
	state.UpdatedAt = time.Now()
	if err := SaveRunState(s.statePath, state); err != nil {
		s.logger.Warn("failed to checkpoint run state", "path", s.statePath, "error", err)
	}
}

// isRetryable reports whether the error is a transient adapter failure
// that earns a single retry. Readiness timeouts are never retried.
func isRetryable(err error) bool {
	var adapterErr *component.AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr.Retryable
	}
	return false
}
