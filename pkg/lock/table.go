package lock

import (
	"github.com/google/uuid"
	"github.com/marmos91/sandboxfs/pkg/store/tree"
)

// row is the Entry Table slot of one entry.
//
// Rows exist only for entries that hold a lock and for their ancestors, so
// that a directory row knows which of its descendants may hold locks. The
// parent is an id looked up in the table, never an owning pointer; the tree
// store owns the real entries.
type row struct {
	id     uuid.UUID
	kind   tree.EntryKind
	parent uuid.UUID
	name   string
	path   string

	children map[uuid.UUID]*row
	record   Record
}

// table is the Entry Table. It is not safe for concurrent use; the Manager
// guards it with its mutex.
type table struct {
	rows map[uuid.UUID]*row

	// locked counts rows whose record is held.
	locked int
}

func newTable() *table {
	return &table{rows: make(map[uuid.UUID]*row)}
}

// get returns the row for id, or nil.
func (t *table) get(id uuid.UUID) *row {
	return t.rows[id]
}

// attach ensures rows exist for chain (root first, target last) and that
// every row is linked under the parent the tree reports now. Stale parent
// links left by moves the table never heard about are repaired here.
//
// Returns the row of the last chain element.
func (t *table) attach(chain []*tree.Entry) *row {
	var (
		parent   *row
		orphaned []*row
		attached *row
	)

	for _, entry := range chain {
		r := t.rows[entry.ID]
		if r == nil {
			r = &row{id: entry.ID, children: make(map[uuid.UUID]*row)}
			t.rows[entry.ID] = r
		}
		r.kind = entry.Kind
		r.name = entry.Name
		if r.path != entry.Path {
			r.path = entry.Path
			t.repathChildren(r)
		}

		parentID := uuid.Nil
		if parent != nil {
			parentID = parent.id
		}
		if r.parent != parentID || (parent != nil && parent.children[r.id] == nil) {
			if old := t.unlink(r); old != nil {
				orphaned = append(orphaned, old)
			}
			r.parent = parentID
			if parent != nil {
				parent.children[r.id] = r
			}
		}

		parent = r
		attached = r
	}

	for _, old := range orphaned {
		t.prune(old)
	}
	return attached
}

// unlink removes r from its parent's children and returns the former parent.
func (t *table) unlink(r *row) *row {
	parent := t.rows[r.parent]
	if parent == nil {
		return nil
	}
	delete(parent.children, r.id)
	return parent
}

// prune deletes r and then its ancestors while they are unlocked and have no
// children rows.
func (t *table) prune(r *row) {
	for r != nil && !r.record.Held() && len(r.children) == 0 {
		if t.rows[r.id] != r {
			return
		}
		delete(t.rows, r.id)
		r = t.unlink(r)
	}
}

// detach unlinks r from its parent and prunes what is left unreferenced.
// Held rows stay in the table as detached roots until released.
func (t *table) detach(r *row) {
	parent := t.unlink(r)
	r.parent = uuid.Nil
	t.prune(r)
	t.prune(parent)
}

// repathChildren recomputes descendant paths after r's path changed.
func (t *table) repathChildren(r *row) {
	for _, child := range r.children {
		child.path = joinPath(r.path, child.name)
		t.repathChildren(child)
	}
}

// acquire adds a holder to r, keeping the locked-row count.
func (t *table) acquire(r *row, mode Mode, kind OperationKind, subtree bool) {
	wasHeld := r.record.Held()
	r.record.acquire(mode, kind, subtree)
	if !wasHeld && r.record.Held() {
		t.locked++
	}
}

// release removes a holder from r. Reports false on a contract violation.
func (t *table) release(r *row, mode Mode) bool {
	wasHeld := r.record.Held()
	if !r.record.release(mode) {
		return false
	}
	if wasHeld && !r.record.Held() {
		t.locked--
	}
	return true
}

// len returns the number of tracked rows.
func (t *table) len() int {
	return len(t.rows)
}

func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
