package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/google/uuid"
	"github.com/marmos91/sandboxfs/internal/logger"
	"github.com/marmos91/sandboxfs/pkg/store/tree"
)

// BadgerTreeStore implements tree.Store using BadgerDB for persistence.
//
// Suitable for:
//   - Origins whose directory structure must survive a restart
//   - Large trees that should not live entirely in memory
//
// Lock state is never persisted: only the tree itself is stored. After a restart
// every entry is unlocked.
//
// Thread Safety:
// BadgerDB transactions are safe for concurrent use. Structural mutations are
// additionally serialized by mu so that read-check-write sequences (e.g. "does
// the destination exist?" followed by the move) observe a stable tree.
//
// Storage Model:
// See keys.go for the key namespace layout.
type BadgerTreeStore struct {
	// db is the BadgerDB database handle (thread-safe, uses internal MVCC)
	db *badger.DB

	// mu serializes structural mutations
	mu sync.Mutex

	// root is the root directory id, loaded or created at open time
	root uuid.UUID
}

// BadgerTreeStoreConfig contains configuration for creating a BadgerDB tree store.
type BadgerTreeStoreConfig struct {
	// DBPath is the directory where BadgerDB will store its files.
	// Ignored when InMemory is true.
	DBPath string `mapstructure:"db_path"`

	// InMemory runs BadgerDB without touching disk. Useful for tests.
	InMemory bool `mapstructure:"in_memory"`

	// SyncWrites makes every commit fsync before returning.
	SyncWrites bool `mapstructure:"sync_writes"`
}

// NewBadgerTreeStore opens (or creates) a BadgerDB-backed tree.
//
// On first open the root directory is created and its id recorded; subsequent
// opens reuse it, so entry ids survive restarts.
//
// Returns:
//   - *BadgerTreeStore: The opened store
//   - error: If the database cannot be opened or initialized
func NewBadgerTreeStore(ctx context.Context, config BadgerTreeStoreConfig) (*BadgerTreeStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !config.InMemory && config.DBPath == "" {
		return nil, fmt.Errorf("badger tree store requires db_path")
	}

	opts := badger.DefaultOptions(config.DBPath)
	if config.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.
		WithLoggingLevel(badger.WARNING).
		WithCompression(options.None).
		WithSyncWrites(config.SyncWrites)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	store := &BadgerTreeStore{db: db}
	if err := store.initRoot(); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Debug("Opened badger tree store (path=%q in_memory=%t root=%s)", config.DBPath, config.InMemory, store.root)
	return store, nil
}

// initRoot loads the root id or creates the root directory.
func (s *BadgerTreeStore) initRoot() error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(keyRoot())
		if err == nil {
			return item.Value(func(val []byte) error {
				id, err := decodeID(val)
				if err != nil {
					return err
				}
				s.root = id
				return nil
			})
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("failed to read root: %w", err)
		}

		root := &tree.Entry{ID: uuid.New(), Kind: tree.KindDirectory}
		if err := putEntry(txn, root); err != nil {
			return err
		}
		if err := txn.Set(keyRoot(), root.ID[:]); err != nil {
			return fmt.Errorf("failed to store root: %w", err)
		}
		s.root = root.ID
		return nil
	})
}

// Root returns the origin root directory.
func (s *BadgerTreeStore) Root(ctx context.Context) (*tree.Entry, error) {
	return s.Get(ctx, s.root)
}

// Lookup resolves a path to an entry.
func (s *BadgerTreeStore) Lookup(ctx context.Context, p string) (*tree.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result *tree.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		entry, err := s.resolve(txn, p)
		if err != nil {
			return err
		}
		result, err = s.snapshot(txn, entry)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns an entry by identity.
func (s *BadgerTreeStore) Get(ctx context.Context, id uuid.UUID) (*tree.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result *tree.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		entry, err := getEntry(txn, id)
		if err != nil {
			return err
		}
		result, err = s.snapshot(txn, entry)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Children lists the direct children of a directory, sorted by name.
//
// Badger iterates keys in byte order, so the prefix scan already yields names
// sorted; the explicit sort keeps the contract independent of key encoding.
func (s *BadgerTreeStore) Children(ctx context.Context, id uuid.UUID) ([]*tree.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var result []*tree.Entry
	err := s.db.View(func(txn *badger.Txn) error {
		dir, err := getEntry(txn, id)
		if err != nil {
			return err
		}
		if !dir.IsDir() {
			p, err := s.buildFullPath(txn, dir)
			if err != nil {
				return err
			}
			return tree.NewNotDirectoryError(p)
		}

		dirPath, err := s.buildFullPath(txn, dir)
		if err != nil {
			return err
		}

		ids, err := listChildIDs(txn, id)
		if err != nil {
			return err
		}

		result = make([]*tree.Entry, 0, len(ids))
		for _, childID := range ids {
			child, err := getEntry(txn, childID)
			if err != nil {
				return err
			}
			child.Path = joinPath(dirPath, child.Name)
			result = append(result, child)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// CreateFile creates an empty file.
func (s *BadgerTreeStore) CreateFile(ctx context.Context, p string) (*tree.Entry, error) {
	return s.create(ctx, p, tree.KindFile)
}

// CreateDirectory creates a directory.
func (s *BadgerTreeStore) CreateDirectory(ctx context.Context, p string) (*tree.Entry, error) {
	return s.create(ctx, p, tree.KindDirectory)
}

func (s *BadgerTreeStore) create(ctx context.Context, p string, kind tree.EntryKind) (*tree.Entry, error) {
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

	var result *tree.Entry
	err := s.db.Update(func(txn *badger.Txn) error {
		parent, err := s.resolve(txn, parentPath)
		if err != nil {
			return err
		}
		if !parent.IsDir() {
			return tree.NewNotDirectoryError(parentPath)
		}

		existingID, exists, err := getChildID(txn, parent.ID, name)
		if err != nil {
			return err
		}
		if exists {
			existing, err := getEntry(txn, existingID)
			if err != nil {
				return err
			}
			if existing.Kind != kind {
				return tree.NewAlreadyExistsError(cleaned)
			}
			existing.Path = cleaned
			result = existing
			return nil
		}

		entry := &tree.Entry{
			ID:     uuid.New(),
			Kind:   kind,
			Parent: parent.ID,
			Name:   name,
		}
		if err := putEntry(txn, entry); err != nil {
			return err
		}
		if err := txn.Set(keyChild(parent.ID, name), entry.ID[:]); err != nil {
			return fmt.Errorf("failed to link child: %w", err)
		}
		entry.Path = cleaned
		result = entry
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Move relocates the file at src to dst, keeping its identity.
func (s *BadgerTreeStore) Move(ctx context.Context, src, dst string) (*tree.Entry, *tree.Entry, error) {
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

	var moved, replaced *tree.Entry
	err := s.db.Update(func(txn *badger.Txn) error {
		entry, err := s.resolve(txn, srcPath)
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return tree.NewIsDirectoryError(srcPath)
		}

		dstParent, err := s.resolve(txn, dstParentPath)
		if err != nil {
			return err
		}
		if !dstParent.IsDir() {
			return tree.NewNotDirectoryError(dstParentPath)
		}

		existingID, exists, err := getChildID(txn, dstParent.ID, dstName)
		if err != nil {
			return err
		}
		if exists {
			if existingID == entry.ID {
				entry.Path = srcPath
				moved = entry
				return nil
			}
			existing, err := getEntry(txn, existingID)
			if err != nil {
				return err
			}
			if existing.IsDir() {
				return tree.NewIsDirectoryError(dstPath)
			}
			if err := txn.Delete(keyEntry(existing.ID)); err != nil {
				return fmt.Errorf("failed to delete replaced entry: %w", err)
			}
			existing.Path = dstPath
			replaced = existing
		}

		if err := txn.Delete(keyChild(entry.Parent, entry.Name)); err != nil {
			return fmt.Errorf("failed to unlink source: %w", err)
		}
		entry.Parent = dstParent.ID
		entry.Name = dstName
		if err := putEntry(txn, entry); err != nil {
			return err
		}
		if err := txn.Set(keyChild(dstParent.ID, dstName), entry.ID[:]); err != nil {
			return fmt.Errorf("failed to link destination: %w", err)
		}
		entry.Path = dstPath
		moved = entry
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return moved, replaced, nil
}

// Remove deletes the entry at p.
//
// A recursive remove collects the whole subtree first and deletes it in one
// transaction. Very large subtrees may exceed Badger's transaction limits, in
// which case ErrIOError is returned and nothing is removed.
func (s *BadgerTreeStore) Remove(ctx context.Context, p string, recursive bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cleaned := tree.CleanPath(p)
	if cleaned == "/" {
		return tree.NewInvalidArgumentError("cannot remove the root directory", cleaned)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		entry, err := s.resolve(txn, cleaned)
		if err != nil {
			return err
		}

		if entry.IsDir() && !recursive {
			ids, err := listChildIDs(txn, entry.ID)
			if err != nil {
				return err
			}
			if len(ids) > 0 {
				return tree.NewNotEmptyError(cleaned)
			}
		}

		if err := txn.Delete(keyChild(entry.Parent, entry.Name)); err != nil {
			return fmt.Errorf("failed to unlink entry: %w", err)
		}
		return removeSubtree(txn, entry)
	})
	if errors.Is(err, badger.ErrTxnTooBig) {
		return tree.NewIOError("subtree too large to remove atomically", cleaned)
	}
	return err
}

// Close closes the underlying database.
func (s *BadgerTreeStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Transaction helpers
// ============================================================================

// resolve walks path components from the root inside txn.
func (s *BadgerTreeStore) resolve(txn *badger.Txn, p string) (*tree.Entry, error) {
	current, err := getEntry(txn, s.root)
	if err != nil {
		return nil, err
	}
	walked := ""

	for _, component := range tree.SplitPath(p) {
		if !current.IsDir() {
			return nil, tree.NewNotDirectoryError(walked)
		}
		walked += "/" + component

		childID, ok, err := getChildID(txn, current.ID, component)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, tree.NewNotFoundError(walked)
		}
		current, err = getEntry(txn, childID)
		if err != nil {
			return nil, err
		}
	}

	return current, nil
}

// snapshot fills in the entry's full path.
func (s *BadgerTreeStore) snapshot(txn *badger.Txn, entry *tree.Entry) (*tree.Entry, error) {
	p, err := s.buildFullPath(txn, entry)
	if err != nil {
		return nil, err
	}
	entry.Path = p
	return entry, nil
}

// buildFullPath constructs the full path by walking up the parent chain.
func (s *BadgerTreeStore) buildFullPath(txn *badger.Txn, entry *tree.Entry) (string, error) {
	var components []string
	current := entry
	for current.Parent != uuid.Nil {
		components = append(components, current.Name)
		parent, err := getEntry(txn, current.Parent)
		if err != nil {
			return "", err
		}
		current = parent
	}
	if len(components) == 0 {
		return "/", nil
	}

	var builder strings.Builder
	for i := len(components) - 1; i >= 0; i-- {
		builder.WriteByte('/')
		builder.WriteString(components[i])
	}
	return builder.String(), nil
}

// removeSubtree deletes entry and every entry beneath it.
func removeSubtree(txn *badger.Txn, entry *tree.Entry) error {
	if entry.IsDir() {
		ids, err := listChildIDs(txn, entry.ID)
		if err != nil {
			return err
		}
		for _, childID := range ids {
			child, err := getEntry(txn, childID)
			if err != nil {
				return err
			}
			if err := removeSubtree(txn, child); err != nil {
				return err
			}
			if err := txn.Delete(keyChild(entry.ID, child.Name)); err != nil {
				return fmt.Errorf("failed to unlink child: %w", err)
			}
		}
	}
	if err := txn.Delete(keyEntry(entry.ID)); err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return nil
}

// getEntry loads an entry record by id.
func getEntry(txn *badger.Txn, id uuid.UUID) (*tree.Entry, error) {
	item, err := txn.Get(keyEntry(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, tree.NewNotFoundError(id.String())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	var entry *tree.Entry
	err = item.Value(func(val []byte) error {
		decoded, err := decodeEntry(val)
		if err != nil {
			return err
		}
		entry = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// putEntry stores an entry record.
func putEntry(txn *badger.Txn, entry *tree.Entry) error {
	data, err := encodeEntry(entry)
	if err != nil {
		return err
	}
	if err := txn.Set(keyEntry(entry.ID), data); err != nil {
		return fmt.Errorf("failed to store entry: %w", err)
	}
	return nil
}

// getChildID looks up a child by name.
func getChildID(txn *badger.Txn, parentID uuid.UUID, name string) (uuid.UUID, bool, error) {
	item, err := txn.Get(keyChild(parentID, name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to get child: %w", err)
	}

	var id uuid.UUID
	err = item.Value(func(val []byte) error {
		decoded, err := decodeID(val)
		if err != nil {
			return err
		}
		id = decoded
		return nil
	})
	if err != nil {
		return uuid.Nil, false, err
	}
	return id, true, nil
}

// listChildIDs scans the children index of a directory.
func listChildIDs(txn *badger.Txn, parentID uuid.UUID) ([]uuid.UUID, error) {
	prefix := keyChildPrefix(parentID)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []uuid.UUID
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		err := it.Item().Value(func(val []byte) error {
			id, err := decodeID(val)
			if err != nil {
				return err
			}
			ids = append(ids, id)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// joinPath appends name to a directory path.
func joinPath(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
