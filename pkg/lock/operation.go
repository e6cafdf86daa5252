package lock

import (
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle position of an operation.
//
//	Requested ──▶ Admitted ──▶ Active ──▶ Settled
//	    │             │           └─────▶ Aborted
//	    │             └─────────────────▶ Aborted / Settled
//	    └──▶ Denied
type State uint8

const (
	StateRequested State = iota
	StateAdmitted
	StateActive
	StateSettled
	StateAborted
	StateDenied
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateRequested:
		return "requested"
	case StateAdmitted:
		return "admitted"
	case StateActive:
		return "active"
	case StateSettled:
		return "settled"
	case StateAborted:
		return "aborted"
	case StateDenied:
		return "denied"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateSettled || s == StateAborted || s == StateDenied
}

// Outcome is how an operation ended. Release does not depend on it; only a
// settled move migrates its entry.
type Outcome uint8

const (
	// OutcomeSettled: the operation finished, successfully or with a
	// domain-level failure unrelated to locking.
	OutcomeSettled Outcome = iota

	// OutcomeAborted: the operation was cancelled or failed before completing.
	OutcomeAborted
)

// String returns the outcome name.
func (o Outcome) String() string {
	if o == OutcomeAborted {
		return "aborted"
	}
	return "settled"
}

// hold is one lock an admitted operation owns.
type hold struct {
	id   uuid.UUID
	mode Mode
}

// moveTarget is where a move places its source when it settles.
type moveTarget struct {
	// parent is the destination directory, uuid.Nil if it did not resolve.
	parent uuid.UUID
	path   string

	// replaced is the existing destination entry, uuid.Nil if none.
	replaced uuid.UUID

	// missing is set when nothing existed at path on admission; the path is
	// then reserved for the move.
	missing bool
}

// Operation is one admitted request holding its locks until it ends.
//
// An Operation is created by Manager.Begin and ended exactly once, either by
// Manager.End or by cancellation of the context passed to Begin.
//
// Thread Safety:
// All mutable fields are guarded by the owning Manager's mutex. The accessor
// methods may be called from any goroutine.
type Operation struct {
	id      uuid.UUID
	kind    OperationKind
	path    string
	target  uuid.UUID
	started time.Time
	manager *Manager

	holds []hold
	move  *moveTarget
	state State

	// stop deregisters the cancellation callback.
	stop func() bool
}

// ID returns the operation identifier.
func (op *Operation) ID() uuid.UUID { return op.id }

// Kind returns the operation kind.
func (op *Operation) Kind() OperationKind { return op.kind }

// Path returns the cleaned path the operation targets.
func (op *Operation) Path() string { return op.path }

// Target returns the identity of the target entry.
func (op *Operation) Target() uuid.UUID { return op.target }

// Started returns the admission time.
func (op *Operation) Started() time.Time { return op.started }

// State returns the current lifecycle state.
func (op *Operation) State() State {
	op.manager.mu.Lock()
	defer op.manager.mu.Unlock()
	return op.state
}

// Activate marks the operation as doing its real work (Admitted → Active).
// Activating an active operation is a no-op.
//
// Returns ErrOperationEnded if the operation already ended, for example
// because its context was cancelled.
func (op *Operation) Activate() error {
	op.manager.mu.Lock()
	defer op.manager.mu.Unlock()

	switch {
	case op.state.Terminal():
		return ErrOperationEnded
	case op.state == StateAdmitted:
		op.state = StateActive
	}
	return nil
}

// End is shorthand for op's Manager.End.
func (op *Operation) End(outcome Outcome) error {
	return op.manager.End(op, outcome)
}

// OperationInfo is a point-in-time snapshot of an admitted operation.
type OperationInfo struct {
	ID      uuid.UUID `json:"id"`
	Kind    string    `json:"kind"`
	Path    string    `json:"path"`
	Mode    string    `json:"mode"`
	State   string    `json:"state"`
	Started time.Time `json:"started"`
}

func (op *Operation) info() OperationInfo {
	return OperationInfo{
		ID:      op.id,
		Kind:    op.kind.String(),
		Path:    op.path,
		Mode:    op.kind.Mode().String(),
		State:   op.state.String(),
		Started: op.started,
	}
}
