package metrics

import "time"

// SandboxMetrics provides observability for file system operations served
// by pkg/sandbox.
//
// This interface is optional - if not provided, a no-op implementation is
// used with zero overhead.
type SandboxMetrics interface {
	// RecordOperation records a completed file system operation.
	//
	// Parameters:
	//   - origin: Origin name
	//   - operation: Operation name (e.g., "move", "remove", "open_access_handle")
	//   - duration: Time from admission request to completion
	//   - err: Error if the operation failed, nil if successful
	RecordOperation(origin, operation string, duration time.Duration, err error)

	// RecordThrottled records a request refused by admission throttling.
	RecordThrottled(origin string)
}

// NewNoopSandboxMetrics returns a SandboxMetrics that discards everything.
func NewNoopSandboxMetrics() SandboxMetrics {
	return noopSandboxMetrics{}
}

// noopSandboxMetrics is a no-op implementation of SandboxMetrics with zero overhead.
type noopSandboxMetrics struct{}

func (noopSandboxMetrics) RecordOperation(origin, operation string, duration time.Duration, err error) {
}
func (noopSandboxMetrics) RecordThrottled(origin string) {}
