package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/marmos91/sandboxfs/pkg/store/tree"
)

// MemoryTreeStore implements tree.Store using in-memory maps.
//
// Suitable for:
//   - Testing and development environments
//   - Ephemeral origins whose contents do not need to survive a restart
//
// Thread Safety:
// All operations are protected by a single read-write mutex (mu). Queries take
// the read lock, structural mutations take the write lock.
//
// Storage Model:
//
//  1. entries: entry id → entry (kind, parent id, name)
//  2. children: directory id → (child name → child id)
//
// Invariants:
//   - Every entry except the root has its parent in entries
//   - Every directory has a (possibly empty) map in children
//   - Parent-child relationships are bidirectional
type MemoryTreeStore struct {
	mu sync.RWMutex

	root     uuid.UUID
	entries  map[uuid.UUID]*tree.Entry
	children map[uuid.UUID]map[string]uuid.UUID

	// maxEntries bounds the number of entries (0 = unlimited).
	maxEntries uint64
}

// MemoryTreeStoreConfig configures a memory tree store.
type MemoryTreeStoreConfig struct {
	// MaxEntries is the maximum number of entries, root included.
	// 0 means unlimited (constrained only by available memory).
	MaxEntries uint64 `mapstructure:"max_entries"`
}

// NewMemoryTreeStore creates an empty tree containing only the root directory.
func NewMemoryTreeStore(config MemoryTreeStoreConfig) *MemoryTreeStore {
	root := &tree.Entry{ID: uuid.New(), Kind: tree.KindDirectory}

	return &MemoryTreeStore{
		root:       root.ID,
		entries:    map[uuid.UUID]*tree.Entry{root.ID: root},
		children:   map[uuid.UUID]map[string]uuid.UUID{root.ID: {}},
		maxEntries: config.MaxEntries,
	}
}

// NewMemoryTreeStoreWithDefaults creates an unbounded memory tree store.
func NewMemoryTreeStoreWithDefaults() *MemoryTreeStore {
	return NewMemoryTreeStore(MemoryTreeStoreConfig{})
}

// Root returns the origin root directory.
func (s *MemoryTreeStore) Root(ctx context.Context) (*tree.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked(s.entries[s.root]), nil
}

// Lookup resolves a path to an entry.
func (s *MemoryTreeStore) Lookup(ctx context.Context, p string) (*tree.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, err := s.resolveLocked(p)
	if err != nil {
		return nil, err
	}
	return s.snapshotLocked(entry), nil
}

// Get returns an entry by identity.
func (s *MemoryTreeStore) Get(ctx context.Context, id uuid.UUID) (*tree.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, tree.NewNotFoundError(id.String())
	}
	return s.snapshotLocked(entry), nil
}

// Children lists the direct children of a directory, sorted by name.
func (s *MemoryTreeStore) Children(ctx context.Context, id uuid.UUID) ([]*tree.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	dir, ok := s.entries[id]
	if !ok {
		return nil, tree.NewNotFoundError(id.String())
	}
	if !dir.IsDir() {
		return nil, tree.NewNotDirectoryError(s.buildFullPath(dir))
	}

	childMap := s.children[id]
	names := make([]string, 0, len(childMap))
	for name := range childMap {
		names = append(names, name)
	}
	sort.Strings(names)

	result := make([]*tree.Entry, 0, len(names))
	for _, name := range names {
		result = append(result, s.snapshotLocked(s.entries[childMap[name]]))
	}
	return result, nil
}

// CreateFile creates an empty file.
func (s *MemoryTreeStore) CreateFile(ctx context.Context, p string) (*tree.Entry, error) {
	return s.create(ctx, p, tree.KindFile)
}

// CreateDirectory creates a directory.
func (s *MemoryTreeStore) CreateDirectory(ctx context.Context, p string) (*tree.Entry, error) {
	return s.create(ctx, p, tree.KindDirectory)
}

func (s *MemoryTreeStore) create(ctx context.Context, p string, kind tree.EntryKind) (*tree.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cleaned := tree.CleanPath(p)
	if cleaned == "/" {
		return nil, tree.NewAlreadyExistsError(cleaned)
	}
	parentPath, name := tree.ParentPath(cleaned)
	if err := tree.ValidateName(name); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	parent, err := s.resolveLocked(parentPath)
	if err != nil {
		return nil, err
	}
	if !parent.IsDir() {
		return nil, tree.NewNotDirectoryError(parentPath)
	}

	if existingID, exists := s.children[parent.ID][name]; exists {
		existing := s.entries[existingID]
		if existing.Kind != kind {
			return nil, tree.NewAlreadyExistsError(cleaned)
		}
		return s.snapshotLocked(existing), nil
	}

	if s.maxEntries > 0 && uint64(len(s.entries)) >= s.maxEntries {
		return nil, tree.NewIOError("entry limit reached", cleaned)
	}

	entry := &tree.Entry{
		ID:     uuid.New(),
		Kind:   kind,
		Parent: parent.ID,
		Name:   name,
	}
	s.entries[entry.ID] = entry
	s.children[parent.ID][name] = entry.ID
	if kind == tree.KindDirectory {
		s.children[entry.ID] = make(map[string]uuid.UUID)
	}

	return s.snapshotLocked(entry), nil
}

// Move relocates the file at src to dst, keeping its identity.
func (s *MemoryTreeStore) Move(ctx context.Context, src, dst string) (*tree.Entry, *tree.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	srcPath := tree.CleanPath(src)
	dstPath := tree.CleanPath(dst)
	dstParentPath, dstName := tree.ParentPath(dstPath)
	if err := tree.ValidateName(dstName); err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.resolveLocked(srcPath)
	if err != nil {
		return nil, nil, err
	}
	if entry.IsDir() {
		return nil, nil, tree.NewIsDirectoryError(srcPath)
	}

	dstParent, err := s.resolveLocked(dstParentPath)
	if err != nil {
		return nil, nil, err
	}
	if !dstParent.IsDir() {
		return nil, nil, tree.NewNotDirectoryError(dstParentPath)
	}

	var replaced *tree.Entry
	if existingID, exists := s.children[dstParent.ID][dstName]; exists {
		if existingID == entry.ID {
			// Moving onto itself is a no-op.
			return s.snapshotLocked(entry), nil, nil
		}
		existing := s.entries[existingID]
		if existing.IsDir() {
			return nil, nil, tree.NewIsDirectoryError(dstPath)
		}
		replaced = s.snapshotLocked(existing)
		delete(s.entries, existingID)
	}

	delete(s.children[entry.Parent], entry.Name)
	entry.Parent = dstParent.ID
	entry.Name = dstName
	s.children[dstParent.ID][dstName] = entry.ID

	return s.snapshotLocked(entry), replaced, nil
}

// Remove deletes the entry at p.
func (s *MemoryTreeStore) Remove(ctx context.Context, p string, recursive bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cleaned := tree.CleanPath(p)
	if cleaned == "/" {
		return tree.NewInvalidArgumentError("cannot remove the root directory", cleaned)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, err := s.resolveLocked(cleaned)
	if err != nil {
		return err
	}

	if entry.IsDir() && len(s.children[entry.ID]) > 0 && !recursive {
		return tree.NewNotEmptyError(cleaned)
	}

	delete(s.children[entry.Parent], entry.Name)
	s.removeSubtreeLocked(entry.ID)
	return nil
}

// removeSubtreeLocked deletes id and every entry beneath it.
// Thread Safety: Must be called with write lock held.
func (s *MemoryTreeStore) removeSubtreeLocked(id uuid.UUID) {
	for _, childID := range s.children[id] {
		s.removeSubtreeLocked(childID)
	}
	delete(s.children, id)
	delete(s.entries, id)
}

// Close is a no-op for the memory store.
func (s *MemoryTreeStore) Close() error {
	return nil
}

// Len returns the number of entries, root included.
func (s *MemoryTreeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// resolveLocked walks path components from the root.
// Thread Safety: Must be called with lock held (read or write).
func (s *MemoryTreeStore) resolveLocked(p string) (*tree.Entry, error) {
	current := s.entries[s.root]
	walked := ""

	for _, component := range tree.SplitPath(p) {
		if !current.IsDir() {
			return nil, tree.NewNotDirectoryError(walked)
		}
		walked += "/" + component

		childID, ok := s.children[current.ID][component]
		if !ok {
			return nil, tree.NewNotFoundError(walked)
		}
		current = s.entries[childID]
	}

	return current, nil
}

// snapshotLocked returns a copy of entry with its current full path.
// Thread Safety: Must be called with lock held (read or write).
func (s *MemoryTreeStore) snapshotLocked(entry *tree.Entry) *tree.Entry {
	c := entry.Clone()
	c.Path = s.buildFullPath(entry)
	return c
}

// buildFullPath constructs the full path by walking up the parent chain.
// Thread Safety: Must be called with lock held (read or write).
func (s *MemoryTreeStore) buildFullPath(entry *tree.Entry) string {
	var components []string
	for current := entry; current != nil && current.Parent != uuid.Nil; current = s.entries[current.Parent] {
		components = append(components, current.Name)
	}
	if len(components) == 0 {
		return "/"
	}

	var builder strings.Builder
	for i := len(components) - 1; i >= 0; i-- {
		builder.WriteByte('/')
		builder.WriteString(components[i])
	}
	return builder.String()
}
