package lock

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrOperationEnded is returned when ending or activating an operation
	// that already settled or aborted.
	ErrOperationEnded = errors.New("lock: operation already ended")

	// ErrMoveDirectory is returned when a move targets a directory. Only files
	// can be moved.
	ErrMoveDirectory = errors.New("lock: only files can be moved")

	// ErrNotAFile is returned when a writable stream or access handle is
	// requested on a directory.
	ErrNotAFile = errors.New("lock: entry is not a file")

	// ErrInvalidPath is returned for paths no operation can target, such as
	// removing the origin root or moving to an empty destination.
	ErrInvalidPath = errors.New("lock: invalid path")

	// ErrInvalidOperation is returned for a zero OperationKind.
	ErrInvalidOperation = errors.New("lock: invalid operation kind")
)

// ConflictReason tells where the conflicting lock lives relative to the target.
type ConflictReason string

const (
	// ReasonEntry: the conflicting lock is on the requested entry itself.
	ReasonEntry ConflictReason = "conflict"

	// ReasonAncestor: a containing directory is being removed.
	ReasonAncestor ConflictReason = "ancestor"

	// ReasonDescendant: an entry inside the directory to remove is locked.
	ReasonDescendant ConflictReason = "descendant"

	// ReasonDestination: the path is the destination of a move in progress.
	ReasonDestination ConflictReason = "destination"
)

// ConflictError reports that a requested lock is incompatible with one
// already held. The manager never retries; the caller decides.
type ConflictError struct {
	// Path is the path the operation was requested on.
	Path string

	// Operation is the requested operation kind.
	Operation OperationKind

	// Requested is the mode the operation needed on ConflictPath.
	Requested Mode

	// ConflictPath is the entry holding the conflicting lock. It differs from
	// Path for hierarchical conflicts and move destinations.
	ConflictPath string

	// Held is the mode currently held on ConflictPath.
	Held Mode

	// HeldOperation names the operation holding the lock
	// (e.g. "access_handle(readwrite)").
	HeldOperation string

	// Reason is where the conflict was found.
	Reason ConflictReason
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	switch e.Reason {
	case ReasonAncestor:
		return fmt.Sprintf("lock conflict: cannot %s %s: ancestor %s is being removed",
			e.Operation.Op(), e.Path, e.ConflictPath)
	case ReasonDestination:
		return fmt.Sprintf("lock conflict: cannot %s %s: %s is the destination of %s",
			e.Operation.Op(), e.Path, e.ConflictPath, e.HeldOperation)
	default:
		return fmt.Sprintf("lock conflict: cannot %s %s: %s is held %s by %s",
			e.Operation.Op(), e.Path, e.ConflictPath, e.Held, e.HeldOperation)
	}
}

// IsConflict reports whether err is (or wraps) a *ConflictError.
func IsConflict(err error) bool {
	var conflict *ConflictError
	return errors.As(err, &conflict)
}

// EntryNotFoundError reports that the target path does not resolve to an
// entry, including paths an entry was moved away from.
type EntryNotFoundError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *EntryNotFoundError) Error() string {
	return "entry not found: " + e.Path
}

// Unwrap returns the underlying storage error.
func (e *EntryNotFoundError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is (or wraps) an *EntryNotFoundError.
func IsNotFound(err error) bool {
	var notFound *EntryNotFoundError
	return errors.As(err, &notFound)
}

// InvalidReleaseError is a contract violation: a release without a matching
// held lock. It indicates a bug in the caller or the manager, never a user
// error.
type InvalidReleaseError struct {
	EntryID uuid.UUID
	Path    string
	Mode    Mode
}

// Error implements the error interface.
func (e *InvalidReleaseError) Error() string {
	return fmt.Sprintf("invalid release of %s lock on %s (%s): no matching holder", e.Mode, e.Path, e.EntryID)
}
