package sandbox

import (
	"github.com/google/uuid"
	"github.com/marmos91/sandboxfs/pkg/lock"
)

// Handle is an open writable stream or access handle. It holds its entry lock
// until Close or Abort is called, or until the context it was opened with is
// cancelled.
type Handle struct {
	fs *FileSystem
	op *lock.Operation
}

// ID returns the id of the underlying lock operation.
func (h *Handle) ID() uuid.UUID { return h.op.ID() }

// Path returns the path the handle was opened on.
func (h *Handle) Path() string { return h.op.Path() }

// EntryID returns the identity of the locked entry.
func (h *Handle) EntryID() uuid.UUID { return h.op.Target() }

// Kind returns the operation kind the handle was opened with.
func (h *Handle) Kind() lock.OperationKind { return h.op.Kind() }

// Mode returns the lock mode the handle holds.
func (h *Handle) Mode() lock.Mode { return h.op.Kind().Mode() }

// Open reports whether the handle still holds its lock.
func (h *Handle) Open() bool {
	return !h.op.State().Terminal()
}

// Close releases the handle's lock. Closing a handle twice returns
// lock.ErrOperationEnded.
func (h *Handle) Close() error {
	return h.fs.locks.End(h.op, lock.OutcomeSettled)
}

// Abort releases the handle's lock, recording the operation as aborted.
func (h *Handle) Abort() error {
	return h.fs.locks.End(h.op, lock.OutcomeAborted)
}
