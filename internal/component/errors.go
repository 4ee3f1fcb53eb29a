package component

import (
	"fmt"
	"time"
)

// AdapterError is a failure from a component adapter. Retryable marks
// transient conditions (network hiccups while registering a chart
// repository, for example) that the deployer may attempt once more.
type AdapterError struct {
	Component string
	Op        string
	Retryable bool
	Err       error
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Component, e.Op, e.Err)
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// ReadinessTimeoutError indicates a component deployed but its
// workloads did not become ready in time. It is never retryable; the
// deployment marks the component failed and the summary names the
// target that never came up.
type ReadinessTimeoutError struct {
	Component string
	Target    string
	Timeout   time.Duration
}

func (e *ReadinessTimeoutError) Error() string {
	return fmt.Sprintf("%s: %s not ready after %s", e.Component, e.Target, e.Timeout)
}
