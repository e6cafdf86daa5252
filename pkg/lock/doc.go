// Package lock is the in-memory lock manager of a sandboxed, origin-scoped
// file system.
//
// Four operation kinds compete for entries: writable streams, synchronous
// access handles (readwrite, read-only, readwrite-unsafe), moves and removes.
// Each operation acquires its locks when it is admitted and releases them
// when it ends. Requests that conflict with a held lock fail immediately
// with a *ConflictError; nothing waits.
//
// # Compatibility
//
//	held \ request     Exclusive  SharedRead  SharedWriteUnsafe
//	none               grant      grant       grant
//	Exclusive          deny       deny        deny
//	SharedRead         deny       grant       grant (deny if strict)
//	SharedWriteUnsafe  deny       grant (deny if strict)  grant
//
// Policy.StrictSharedModes makes the two shared modes exclude each other.
//
// # Hierarchy
//
// Removing a directory takes an exclusive lock that counts as held on every
// entry beneath it. It is refused while anything in the subtree is locked,
// and while it is held every request inside the subtree is refused.
//
// # Lifecycle
//
//	op, err := mgr.Begin(ctx, "/dir/a.test", lock.OpenWritableStream())
//	if err != nil {
//	    return err // *lock.ConflictError, *lock.EntryNotFoundError, ...
//	}
//	_ = op.Activate()
//	// ... do the real work ...
//	return mgr.End(op, lock.OutcomeSettled)
//
// Cancelling the context passed to Begin ends the operation with
// OutcomeAborted. Manager.Run wraps the three steps around a callback.
//
// # Thread Safety
//
// A Manager is safe for concurrent use. Path resolution, checks and state
// changes for one request happen inside a single critical section.
//
// Locks live only in process memory. Nothing is persisted and nothing is
// shared across processes or origins.
package lock
