package lock

import "strings"

// claim is one lock an operation needs: a mode on a row. A claim with
// ModeNone takes nothing and only checks that no ancestor (or the row
// itself) is being removed; moves use it for a destination that does not
// exist yet.
type claim struct {
	row     *row
	mode    Mode
	subtree bool
}

// checkClaim runs the compatibility and hierarchy checks for c.
//
//  1. The row's own record against the requested mode.
//  2. Every ancestor: a directory-remove lock denies.
//  3. For a directory-remove claim, every descendant row: any lock denies.
//
// Returns nil when c can be granted.
func (m *Manager) checkClaim(path string, kind OperationKind, c claim) *ConflictError {
	if c.mode == ModeNone {
		if c.row.record.Subtree() {
			return m.conflict(path, kind, c.mode, c.row, ModeExclusive, ReasonAncestor)
		}
	} else if d := Check(&c.row.record, c.mode, m.policy); !d.Granted {
		return m.conflict(path, kind, c.mode, c.row, d.Conflict, ReasonEntry)
	}

	if ancestor := m.table.subtreeAncestor(c.row); ancestor != nil {
		return m.conflict(path, kind, c.mode, ancestor, ModeExclusive, ReasonAncestor)
	}

	if c.subtree {
		if descendant := m.table.lockedDescendant(c.row); descendant != nil {
			return m.conflict(path, kind, c.mode, descendant, descendant.record.Mode(), ReasonDescendant)
		}
	}
	return nil
}

func (m *Manager) conflict(path string, kind OperationKind, requested Mode, holder *row, held Mode, reason ConflictReason) *ConflictError {
	return &ConflictError{
		Path:          path,
		Operation:     kind,
		Requested:     requested,
		ConflictPath:  holder.path,
		Held:          held,
		HeldOperation: holder.record.heldBy(held),
		Reason:        reason,
	}
}

// subtreeAncestor returns the nearest ancestor of r holding a
// directory-remove lock, or nil. O(depth).
func (t *table) subtreeAncestor(r *row) *row {
	for p := t.rows[r.parent]; p != nil; p = t.rows[p.parent] {
		if p.record.Subtree() {
			return p
		}
	}
	return nil
}

// lockedDescendant returns any row beneath r holding a lock, or nil.
// O(rows in the subtree); only rows of locked entries and their ancestors
// exist, so unlocked parts of the tree cost nothing.
func (t *table) lockedDescendant(r *row) *row {
	for _, child := range r.children {
		if child.record.Held() {
			return child
		}
		if d := t.lockedDescendant(child); d != nil {
			return d
		}
	}
	return nil
}

// reservationConflict checks a request against the destinations reserved by
// moves in progress. The request's own path, its move destination and, for a
// remove, every path beneath it must be free.
func (m *Manager) reservationConflict(path string, kind OperationKind, move *moveTarget) *ConflictError {
	reserved := func(p string) *ConflictError {
		if holder := m.reserved[p]; holder != nil {
			return m.destinationConflict(path, kind, p, holder)
		}
		return nil
	}

	if c := reserved(path); c != nil {
		return c
	}
	if move != nil {
		if c := reserved(move.path); c != nil {
			return c
		}
	}
	if kind.Op() == OpRemove {
		prefix := strings.TrimSuffix(path, "/") + "/"
		for p, holder := range m.reserved {
			if strings.HasPrefix(p, prefix) {
				return m.destinationConflict(path, kind, p, holder)
			}
		}
	}
	return nil
}

func (m *Manager) destinationConflict(path string, kind OperationKind, reserved string, holder *Operation) *ConflictError {
	return &ConflictError{
		Path:          path,
		Operation:     kind,
		Requested:     kind.Mode(),
		ConflictPath:  reserved,
		Held:          ModeExclusive,
		HeldOperation: holder.kind.String(),
		Reason:        ReasonDestination,
	}
}
