package lock

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/marmos91/sandboxfs/internal/logger"
	"github.com/marmos91/sandboxfs/pkg/store/tree"
)

// migrateMoveLocked relocates the row of a settled move's source under the
// destination directory and drops the row of the overwritten destination.
//
// Only files move and a move holds its source exclusively, so the source row
// carries no other holder and has no children rows. Requests on the old path
// fail in the tree lookup; requests on the new path find the same id.
func (m *Manager) migrateMoveLocked(op *Operation) {
	if op.move.replaced != uuid.Nil {
		if r := m.table.get(op.move.replaced); r != nil {
			m.table.detach(r)
		}
	}

	src := m.table.get(op.target)
	if src == nil {
		return
	}

	from := src.path
	old := m.table.unlink(src)
	src.parent = op.move.parent
	src.name = baseName(op.move.path)
	src.path = op.move.path
	if parent := m.table.get(op.move.parent); parent != nil {
		parent.children[src.id] = src
	}
	m.table.prune(old)

	logger.Debug("Migrated entry: origin=%s id=%s %s -> %s", m.origin, src.id, from, src.path)
}

// MigrateEntry re-reads the location of entry id from the tree store and
// re-links its Entry Table row (and, transitively, its subtree) under the
// current parent.
//
// Settled moves migrate automatically. MigrateEntry is for storage layers
// that relocate entries outside a managed operation. Untracked ids are
// ignored.
//
// Returns *EntryNotFoundError if the entry no longer exists; its row is
// detached and any locks on it stay until their operations end.
func (m *Manager) MigrateEntry(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.table.get(id)
	if r == nil {
		return nil
	}

	entry, err := m.store.Get(ctx, id)
	if err != nil {
		if isMissing(err) {
			m.table.detach(r)
			return &EntryNotFoundError{Path: r.path, Err: err}
		}
		return fmt.Errorf("failed to resolve entry %s: %w", id, err)
	}

	chain, err := m.chainLocked(ctx, entry)
	if err != nil {
		return err
	}

	from := r.path
	m.table.prune(m.table.attach(chain))
	logger.Debug("Migrated entry: origin=%s id=%s %s -> %s", m.origin, id, from, entry.Path)
	return nil
}

func baseName(p string) string {
	_, name := tree.ParentPath(p)
	return name
}
