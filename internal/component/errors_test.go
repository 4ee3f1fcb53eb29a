package component

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapterError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &AdapterError{
		Component: "orchestrator",
		Op:        "add helm repository",
		Retryable: true,
		Err:       cause,
	}

	assert.Contains(t, err.Error(), "orchestrator")
	assert.Contains(t, err.Error(), "add helm repository")
	assert.ErrorIs(t, err, cause)

	// Matchable through wrapping.
	wrapped := fmt.Errorf("activation failed: %w", err)
	var aerr *AdapterError
	require.ErrorAs(t, wrapped, &aerr)
	assert.True(t, aerr.Retryable)
}

func TestReadinessTimeoutError(t *testing.T) {
	err := &ReadinessTimeoutError{
		Component: "orchestrator",
		Target:    "postgresql pods",
		Timeout:   5 * time.Minute,
	}
	assert.Equal(t, "orchestrator: postgresql pods not ready after 5m0s", err.Error())
}
