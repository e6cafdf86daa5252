package lock

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/sandboxfs/internal/logger"
	"github.com/marmos91/sandboxfs/pkg/metrics"
	"github.com/marmos91/sandboxfs/pkg/store/tree"
)

// Manager grants and releases entry locks for one origin.
//
// Every request resolves its path through the tree store, runs the
// compatibility and hierarchy checks and records the new holders inside one
// critical section, so two concurrent requests can never both observe "no
// conflicting lock". Conflicting requests fail immediately; nothing queues.
//
// Thread Safety:
// Safe for concurrent use. A single mutex guards the Entry Table, the set of
// admitted operations and the counters.
type Manager struct {
	mu sync.Mutex

	store   tree.Store
	origin  string
	policy  Policy
	metrics metrics.LockMetrics

	table *table
	ops   map[uuid.UUID]*Operation

	// reserved maps the destination path of every admitted move whose
	// destination did not exist to that move. A reserved path counts as held
	// Exclusive until the move ends.
	reserved map[string]*Operation

	granted uint64
	denied  uint64
	settled uint64
	aborted uint64
}

// NewManager creates a lock manager over store.
//
// Parameters:
//   - store: Tree store used to resolve paths, ancestors and move destinations
//   - config: Origin name and compatibility policy
//   - m: Metrics sink; nil disables metrics
func NewManager(store tree.Store, config Config, m metrics.LockMetrics) *Manager {
	if m == nil {
		m = metrics.NewNoopLockMetrics()
	}
	if config.Origin == "" {
		config.Origin = DefaultConfig().Origin
	}

	return &Manager{
		store:   store,
		origin:  config.Origin,
		policy:  config.policy(),
		metrics: m,
		table:    newTable(),
		ops:      make(map[uuid.UUID]*Operation),
		reserved: make(map[string]*Operation),
	}
}

// Origin returns the origin name.
func (m *Manager) Origin() string {
	return m.origin
}

// Policy returns the compatibility policy in effect.
func (m *Manager) Policy() Policy {
	return m.policy
}

// ============================================================================
// Lifecycle
// ============================================================================

// Begin admits an operation of kind on the entry at p, or refuses it.
//
// On success the returned operation holds its locks (Admitted) until it is
// ended with End or ctx is cancelled, whichever happens first. Cancellation
// ends the operation with OutcomeAborted.
//
// Returns:
//   - *Operation: The admitted operation
//   - error: *ConflictError when a held lock is incompatible,
//     *EntryNotFoundError when p does not resolve, ErrNotAFile,
//     ErrMoveDirectory or ErrInvalidPath for requests no entry state could
//     satisfy, ctx.Err() if ctx is already done
//
// A refused request leaves the Entry Table exactly as it was.
func (m *Manager) Begin(ctx context.Context, p string, kind OperationKind) (*Operation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !kind.valid() {
		return nil, ErrInvalidOperation
	}
	cleaned := tree.CleanPath(p)

	m.mu.Lock()
	defer m.mu.Unlock()

	claims, move, err := m.resolveLocked(ctx, cleaned, kind)
	if err != nil {
		m.denied++
		m.metrics.RecordDenial(m.origin, kind.Op().String(), denialReason(err))
		logger.Debug("Lock request refused: origin=%s op=%s path=%s: %v", m.origin, kind, cleaned, err)
		return nil, err
	}

	var conflict *ConflictError
	for _, c := range claims {
		if conflict = m.checkClaim(cleaned, kind, c); conflict != nil {
			break
		}
	}
	if conflict == nil {
		conflict = m.reservationConflict(cleaned, kind, move)
	}
	if conflict != nil {
		for _, c := range claims {
			m.table.prune(c.row)
		}
		m.denied++
		m.metrics.RecordDenial(m.origin, kind.Op().String(), string(conflict.Reason))
		logger.Debug("Lock denied: origin=%s %v", m.origin, conflict)
		return nil, conflict
	}

	op := &Operation{
		id:      uuid.New(),
		kind:    kind,
		path:    cleaned,
		target:  claims[0].row.id,
		started: time.Now(),
		manager: m,
		move:    move,
		state:   StateRequested,
	}
	for _, c := range claims {
		if c.mode == ModeNone {
			m.table.prune(c.row)
			continue
		}
		m.table.acquire(c.row, c.mode, kind, c.subtree)
		op.holds = append(op.holds, hold{id: c.row.id, mode: c.mode})
	}
	if move != nil && move.missing {
		m.reserved[move.path] = op
	}
	op.state = StateAdmitted
	m.ops[op.id] = op
	m.granted++

	op.stop = context.AfterFunc(ctx, func() {
		if err := m.End(op, OutcomeAborted); err == nil {
			logger.Debug("Operation cancelled: origin=%s op=%s path=%s id=%s", m.origin, kind, cleaned, op.id)
		}
	})

	m.metrics.RecordGrant(m.origin, kind.Op().String(), kind.Mode().String())
	m.publishGaugesLocked()
	logger.Debug("Lock granted: origin=%s op=%s path=%s mode=%s id=%s", m.origin, kind, cleaned, kind.Mode(), op.id)
	return op, nil
}

// End releases every lock op holds. It is the only way (besides
// cancellation) an operation's locks are released.
//
// A settled move also migrates the moved entry in the Entry Table (see
// MigrateEntry) in the same critical section as the release.
//
// Returns ErrOperationEnded if op already ended; the second call changes
// nothing. An *InvalidReleaseError (joined) signals a contract violation.
func (m *Manager) End(op *Operation, outcome Outcome) error {
	if op == nil || op.manager != m {
		return ErrInvalidOperation
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.endLocked(op, outcome)
}

func (m *Manager) endLocked(op *Operation, outcome Outcome) error {
	if op.state.Terminal() {
		return ErrOperationEnded
	}
	if op.stop != nil {
		op.stop()
	}

	var errs []error
	for _, h := range op.holds {
		r := m.table.get(h.id)
		if r == nil || !m.table.release(r, h.mode) {
			p := op.path
			if r != nil {
				p = r.path
			}
			err := &InvalidReleaseError{EntryID: h.id, Path: p, Mode: h.mode}
			logger.Error("Lock contract violation: origin=%s op=%s id=%s: %v", m.origin, op.kind, op.id, err)
			errs = append(errs, err)
		}
	}

	if op.move != nil && m.reserved[op.move.path] == op {
		delete(m.reserved, op.move.path)
	}
	if outcome == OutcomeSettled && op.move != nil {
		m.migrateMoveLocked(op)
	}

	for _, h := range op.holds {
		if r := m.table.get(h.id); r != nil {
			m.table.prune(r)
		}
	}

	held := time.Since(op.started)
	op.holds = nil
	delete(m.ops, op.id)
	if outcome == OutcomeAborted {
		op.state = StateAborted
		m.aborted++
	} else {
		op.state = StateSettled
		m.settled++
	}

	m.metrics.RecordRelease(m.origin, op.kind.Op().String(), outcome.String(), held)
	m.publishGaugesLocked()
	logger.Debug("Lock released: origin=%s op=%s path=%s outcome=%s held=%s id=%s",
		m.origin, op.kind, op.path, outcome, held, op.id)

	return errors.Join(errs...)
}

// Run begins an operation, runs fn while holding its locks and ends it.
//
// The operation settles when fn returns nil and aborts otherwise. If ctx is
// cancelled while fn runs, the locks are released at cancellation time and
// Run returns ctx.Err() once fn returns.
func (m *Manager) Run(ctx context.Context, p string, kind OperationKind, fn func(ctx context.Context, op *Operation) error) error {
	op, err := m.Begin(ctx, p, kind)
	if err != nil {
		return err
	}
	if err := op.Activate(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}

	fnErr := fn(ctx, op)

	outcome := OutcomeSettled
	if fnErr != nil {
		outcome = OutcomeAborted
	}
	endErr := m.End(op, outcome)

	switch {
	case fnErr != nil:
		return fnErr
	case errors.Is(endErr, ErrOperationEnded):
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return endErr
	default:
		return endErr
	}
}

// ============================================================================
// Resolution
// ============================================================================

// resolveLocked turns a request into the claims it needs. Rows attached for
// the request are pruned again if resolution fails.
func (m *Manager) resolveLocked(ctx context.Context, p string, kind OperationKind) (claims []claim, move *moveTarget, err error) {
	var attached []*row
	defer func() {
		if err != nil {
			for _, r := range attached {
				m.table.prune(r)
			}
		}
	}()

	attach := func(entry *tree.Entry) (*row, error) {
		chain, err := m.chainLocked(ctx, entry)
		if err != nil {
			return nil, err
		}
		r := m.table.attach(chain)
		attached = append(attached, r)
		return r, nil
	}

	entry, err := m.lookupLocked(ctx, p)
	if err != nil {
		return nil, nil, err
	}
	target, err := attach(entry)
	if err != nil {
		return nil, nil, err
	}

	switch kind.Op() {
	case OpWritableStream, OpAccessHandle:
		if entry.IsDir() {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotAFile, p)
		}
		return []claim{{row: target, mode: kind.Mode()}}, nil, nil

	case OpRemove:
		if entry.IsRoot() {
			return nil, nil, fmt.Errorf("%w: cannot remove the origin root", ErrInvalidPath)
		}
		return []claim{{row: target, mode: ModeExclusive, subtree: entry.IsDir()}}, nil, nil
	}

	// OpMove
	if entry.IsDir() {
		return nil, nil, fmt.Errorf("%w: %s", ErrMoveDirectory, p)
	}
	if strings.TrimSpace(kind.Destination()) == "" {
		return nil, nil, fmt.Errorf("%w: empty move destination", ErrInvalidPath)
	}
	dstPath := tree.CleanPath(kind.Destination())
	if dstPath == "/" {
		return nil, nil, fmt.Errorf("%w: cannot move onto the origin root", ErrInvalidPath)
	}

	claims = []claim{{row: target, mode: ModeExclusive}}
	move = &moveTarget{path: dstPath}

	dst, err := m.store.Lookup(ctx, dstPath)
	switch {
	case err == nil:
		if dst.IsDir() {
			return nil, nil, fmt.Errorf("move destination: %w", tree.NewIsDirectoryError(dstPath))
		}
		move.parent = dst.Parent
		if dst.ID != entry.ID {
			move.replaced = dst.ID
			dstRow, err := attach(dst)
			if err != nil {
				return nil, nil, err
			}
			claims = append(claims, claim{row: dstRow, mode: ModeExclusive})
		}

	case isMissing(err):
		move.missing = true

		// The destination parent must not be under removal either.
		parentPath, _ := tree.ParentPath(dstPath)
		parent, perr := m.store.Lookup(ctx, parentPath)
		if perr == nil && parent.IsDir() {
			move.parent = parent.ID
			parentRow, err := attach(parent)
			if err != nil {
				return nil, nil, err
			}
			claims = append(claims, claim{row: parentRow, mode: ModeNone})
		} else if perr != nil && !isMissing(perr) {
			return nil, nil, fmt.Errorf("failed to resolve %s: %w", parentPath, perr)
		}

	default:
		return nil, nil, fmt.Errorf("failed to resolve %s: %w", dstPath, err)
	}

	return claims, move, nil
}

// lookupLocked resolves p, mapping missing entries to *EntryNotFoundError.
func (m *Manager) lookupLocked(ctx context.Context, p string) (*tree.Entry, error) {
	entry, err := m.store.Lookup(ctx, p)
	if err != nil {
		if isMissing(err) {
			return nil, &EntryNotFoundError{Path: p, Err: err}
		}
		return nil, fmt.Errorf("failed to resolve %s: %w", p, err)
	}
	return entry, nil
}

// chainLocked returns entry and its ancestors, root first. O(depth) Get calls.
func (m *Manager) chainLocked(ctx context.Context, entry *tree.Entry) ([]*tree.Entry, error) {
	chain := []*tree.Entry{entry}
	for current := entry; !current.IsRoot(); {
		parent, err := m.store.Get(ctx, current.Parent)
		if err != nil {
			if isMissing(err) {
				// Removed between the lookup and the walk.
				return nil, &EntryNotFoundError{Path: entry.Path, Err: err}
			}
			return nil, fmt.Errorf("failed to resolve parent of %s: %w", current.Path, err)
		}
		chain = append(chain, parent)
		current = parent
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, nil
}

// denialReason is the metrics label of a request refused during resolution.
func denialReason(err error) string {
	switch {
	case IsNotFound(err):
		return "not_found"
	case errors.Is(err, ErrNotAFile), errors.Is(err, ErrMoveDirectory), errors.Is(err, ErrInvalidPath):
		return "invalid"
	}
	if code, ok := tree.CodeOf(err); ok && code == tree.ErrIsDirectory {
		return "invalid"
	}
	return "error"
}

// isMissing reports whether a tree error means the path does not resolve.
func isMissing(err error) bool {
	code, ok := tree.CodeOf(err)
	return ok && (code == tree.ErrNotFound || code == tree.ErrNotDirectory)
}

// ============================================================================
// Introspection
// ============================================================================

// Stats is a point-in-time snapshot of a manager's state and counters.
type Stats struct {
	Origin string `json:"origin"`

	// ActiveOperations is the number of admitted, not yet ended operations.
	ActiveOperations int `json:"active_operations"`

	// LockedEntries is the number of entries with a held lock record.
	LockedEntries int `json:"locked_entries"`

	// TrackedEntries is the number of Entry Table rows, including unlocked
	// ancestors of locked entries.
	TrackedEntries int `json:"tracked_entries"`

	// ReservedPaths is the number of move destinations reserved before they
	// exist.
	ReservedPaths int `json:"reserved_paths"`

	Granted uint64 `json:"granted"`
	Denied  uint64 `json:"denied"`
	Settled uint64 `json:"settled"`
	Aborted uint64 `json:"aborted"`
}

// Stats returns a snapshot of the manager state.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Stats{
		Origin:           m.origin,
		ActiveOperations: len(m.ops),
		LockedEntries:    m.table.locked,
		TrackedEntries:   m.table.len(),
		ReservedPaths:    len(m.reserved),
		Granted:          m.granted,
		Denied:           m.denied,
		Settled:          m.settled,
		Aborted:          m.aborted,
	}
}

// Operations returns snapshots of the admitted operations, oldest first.
func (m *Manager) Operations() []OperationInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]OperationInfo, 0, len(m.ops))
	for _, op := range m.ops {
		infos = append(infos, op.info())
	}
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].Started.Equal(infos[j].Started) {
			return infos[i].Started.Before(infos[j].Started)
		}
		return infos[i].ID.String() < infos[j].ID.String()
	})
	return infos
}

// LockState returns the record held on the entry at p, or a zero Record if
// the entry is unlocked.
func (m *Manager) LockState(ctx context.Context, p string) (Record, error) {
	entry, err := m.store.Lookup(ctx, tree.CleanPath(p))
	if err != nil {
		if isMissing(err) {
			return Record{}, &EntryNotFoundError{Path: tree.CleanPath(p), Err: err}
		}
		return Record{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if r := m.table.get(entry.ID); r != nil {
		return r.record, nil
	}
	return Record{}, nil
}

func (m *Manager) publishGaugesLocked() {
	m.metrics.SetActiveOperations(m.origin, len(m.ops))
	m.metrics.SetLockedEntries(m.origin, m.table.locked)
}
