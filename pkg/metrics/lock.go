package metrics

import "time"

// LockMetrics provides observability for lock manager decisions.
//
// One instance is shared by every origin; the origin name is passed as a
// label. This interface is optional - if not provided to a lock manager, a
// no-op implementation is used with zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	m := prometheus.NewLockMetrics()
//	mgr := lock.NewManager(store, lock.Config{Origin: "default"}, m)
//
//	// Without metrics (no-op)
//	mgr := lock.NewManager(store, lock.Config{Origin: "default"}, nil)
type LockMetrics interface {
	// RecordGrant records an admitted operation.
	//
	// Parameters:
	//   - origin: Origin name
	//   - operation: Operation kind (e.g., "writable_stream", "move")
	//   - mode: Lock mode acquired on the target (e.g., "exclusive")
	RecordGrant(origin, operation, mode string)

	// RecordDenial records a refused operation.
	//
	// Parameters:
	//   - origin: Origin name
	//   - operation: Operation kind
	//   - reason: "conflict", "ancestor", "descendant", "destination",
	//     "not_found", "invalid" or "error"
	RecordDenial(origin, operation, reason string)

	// RecordRelease records the end of an admitted operation.
	//
	// Parameters:
	//   - origin: Origin name
	//   - operation: Operation kind
	//   - outcome: "settled" or "aborted"
	//   - held: Time between admission and release
	RecordRelease(origin, operation, outcome string, held time.Duration)

	// SetActiveOperations updates the number of operations holding locks.
	SetActiveOperations(origin string, count int)

	// SetLockedEntries updates the number of entries with a lock record.
	SetLockedEntries(origin string, count int)
}

// NewNoopLockMetrics returns a LockMetrics that discards everything.
func NewNoopLockMetrics() LockMetrics {
	return noopLockMetrics{}
}

// noopLockMetrics is a no-op implementation of LockMetrics with zero overhead.
type noopLockMetrics struct{}

func (noopLockMetrics) RecordGrant(origin, operation, mode string)                          {}
func (noopLockMetrics) RecordDenial(origin, operation, reason string)                       {}
func (noopLockMetrics) RecordRelease(origin, operation, outcome string, held time.Duration) {}
func (noopLockMetrics) SetActiveOperations(origin string, count int)                        {}
func (noopLockMetrics) SetLockedEntries(origin string, count int)                           {}
