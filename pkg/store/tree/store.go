package tree

import (
	"context"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ============================================================================
// Store Interface
// ============================================================================

// Store is the directory tree of one origin's sandboxed file system.
//
// The tree owns entry identity and structure: it answers existence checks,
// resolves paths to entries, enumerates children and performs structural
// mutations (create, move, remove). It does NOT coordinate concurrent access;
// callers that need exclusion (writable streams, access handles, moves, removes)
// go through the lock manager in pkg/lock before and after calling the tree.
//
// Identity:
// Every entry has a UUID assigned at creation. A move keeps the UUID, so an
// entry looked up under its new path is the same entry that lived under the
// old path. A move that replaces an existing destination file discards the
// destination's identity.
//
// Paths:
// Paths are slash-separated and rooted at "/" (the origin root). Callers may pass
// relative or unclean paths; implementations normalize them with CleanPath.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
type Store interface {
	// Root returns the origin root directory.
	Root(ctx context.Context) (*Entry, error)

	// Lookup resolves a path to an entry.
	//
	// Returns:
	//   - *Entry: The entry at path
	//   - error: ErrNotFound if any component is missing, ErrNotDirectory if an
	//     intermediate component is a file
	Lookup(ctx context.Context, p string) (*Entry, error)

	// Get returns an entry by identity.
	//
	// Returns ErrNotFound if the entry no longer exists.
	Get(ctx context.Context, id uuid.UUID) (*Entry, error)

	// Children lists the direct children of a directory, sorted by name.
	//
	// Returns ErrNotDirectory if id is a file.
	Children(ctx context.Context, id uuid.UUID) ([]*Entry, error)

	// CreateFile creates an empty file. The parent directory must exist.
	// Returns the existing entry when a file already exists at p.
	CreateFile(ctx context.Context, p string) (*Entry, error)

	// CreateDirectory creates a directory. The parent directory must exist.
	// Returns the existing entry when a directory already exists at p.
	CreateDirectory(ctx context.Context, p string) (*Entry, error)

	// Move relocates the file at src to dst, keeping its identity.
	//
	// Only files can be moved. An existing file at dst is replaced; an existing
	// directory at dst yields ErrIsDirectory.
	//
	// Returns:
	//   - *Entry: The moved entry at its new location
	//   - *Entry: The replaced destination entry, or nil
	//   - error: ErrNotFound, ErrIsDirectory, ErrNotDirectory, ErrInvalidArgument
	Move(ctx context.Context, src, dst string) (*Entry, *Entry, error)

	// Remove deletes the entry at p.
	//
	// A non-empty directory requires recursive=true, otherwise ErrNotEmpty.
	// The root cannot be removed (ErrInvalidArgument).
	Remove(ctx context.Context, p string, recursive bool) error

	// Close releases resources held by the store.
	Close() error
}

// ============================================================================
// Entry
// ============================================================================

// EntryKind distinguishes files from directories.
type EntryKind uint8

const (
	// KindFile is a regular file.
	KindFile EntryKind = iota + 1

	// KindDirectory is a directory.
	KindDirectory
)

// String returns the lowercase kind name.
func (k EntryKind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDirectory:
		return "directory"
	default:
		return "unknown"
	}
}

// Entry is a file or directory node of the tree.
type Entry struct {
	// ID is the entry identity, stable across moves.
	ID uuid.UUID `json:"id"`

	// Kind is File or Directory.
	Kind EntryKind `json:"kind"`

	// Parent is the containing directory, uuid.Nil for the root.
	Parent uuid.UUID `json:"parent"`

	// Name is the last path component, empty for the root.
	Name string `json:"name"`

	// Path is the full path at the time the entry was returned.
	Path string `json:"-"`
}

// IsDir reports whether the entry is a directory.
func (e *Entry) IsDir() bool {
	return e.Kind == KindDirectory
}

// IsRoot reports whether the entry is the origin root.
func (e *Entry) IsRoot() bool {
	return e.Parent == uuid.Nil
}

// Clone returns a copy of the entry.
func (e *Entry) Clone() *Entry {
	if e == nil {
		return nil
	}
	c := *e
	return &c
}

// ============================================================================
// Path Helpers
// ============================================================================

// CleanPath normalizes p into a rooted, slash-separated path.
//
// Examples:
//
//	CleanPath("foo.test")      // "/foo.test"
//	CleanPath("/dir//a.test/") // "/dir/a.test"
//	CleanPath("")              // "/"
func CleanPath(p string) string {
	return path.Clean("/" + p)
}

// SplitPath returns the non-empty components of a cleaned path.
func SplitPath(p string) []string {
	cleaned := CleanPath(p)
	if cleaned == "/" {
		return nil
	}
	return strings.Split(cleaned[1:], "/")
}

// ParentPath returns the directory and base name of a cleaned path.
func ParentPath(p string) (string, string) {
	cleaned := CleanPath(p)
	return path.Dir(cleaned), path.Base(cleaned)
}

// ValidateName checks that name is usable as a single path component.
func ValidateName(name string) error {
	switch {
	case name == "" || name == "/":
		return NewInvalidArgumentError("name is empty", name)
	case name == "." || name == "..":
		return NewInvalidArgumentError("reserved name", name)
	case strings.ContainsAny(name, "/\x00"):
		return NewInvalidArgumentError("name contains invalid characters", name)
	}
	return nil
}
