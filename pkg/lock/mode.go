package lock

import (
	"fmt"
	"strings"
)

// Mode is the kind of lock an operation holds on one entry.
type Mode uint8

const (
	// ModeNone means no lock. Used in conflict reports and for guard-only checks.
	ModeNone Mode = iota

	// ModeExclusive blocks every other lock on the same entry.
	ModeExclusive

	// ModeSharedRead coexists with other SharedRead holders.
	ModeSharedRead

	// ModeSharedWriteUnsafe coexists with other SharedWriteUnsafe holders.
	ModeSharedWriteUnsafe
)

// String returns the mode name used in logs and metrics labels.
func (m Mode) String() string {
	switch m {
	case ModeNone:
		return "none"
	case ModeExclusive:
		return "exclusive"
	case ModeSharedRead:
		return "shared_read"
	case ModeSharedWriteUnsafe:
		return "shared_write_unsafe"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// AccessMode selects the locking behavior of a synchronous access handle.
type AccessMode uint8

const (
	// AccessReadWrite takes an exclusive lock.
	AccessReadWrite AccessMode = iota

	// AccessReadOnly takes a shared read lock.
	AccessReadOnly

	// AccessReadWriteUnsafe takes a shared write lock; concurrent writers
	// coordinate among themselves.
	AccessReadWriteUnsafe
)

// String returns the access mode in its external spelling.
func (a AccessMode) String() string {
	switch a {
	case AccessReadWrite:
		return "readwrite"
	case AccessReadOnly:
		return "read-only"
	case AccessReadWriteUnsafe:
		return "readwrite-unsafe"
	default:
		return fmt.Sprintf("access(%d)", uint8(a))
	}
}

// ParseAccessMode parses "readwrite", "read-only" or "readwrite-unsafe".
// The empty string defaults to readwrite.
func ParseAccessMode(s string) (AccessMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "readwrite":
		return AccessReadWrite, nil
	case "read-only", "readonly":
		return AccessReadOnly, nil
	case "readwrite-unsafe":
		return AccessReadWriteUnsafe, nil
	default:
		return AccessReadWrite, fmt.Errorf("unknown access mode %q", s)
	}
}
