package lock

// Policy holds the tunable parts of the compatibility table.
type Policy struct {
	// StrictSharedModes makes SharedRead and SharedWriteUnsafe exclude each
	// other. The zero Policy lets both shared modes hold the same entry.
	StrictSharedModes bool
}

// Record is the lock state of one entry.
//
// At most one exclusive holder exists. The two shared modes keep separate
// holder counts. A zero Record means the entry is unlocked.
type Record struct {
	exclusive bool

	// subtree marks an exclusive lock taken by a directory remove; it is
	// treated as held on every entry beneath the directory.
	subtree bool

	// holder is the kind of the exclusive holder, kept for conflict reports.
	holder OperationKind

	sharedRead        int
	sharedWriteUnsafe int
}

// Held reports whether any lock is held.
func (r *Record) Held() bool {
	return r.exclusive || r.sharedRead > 0 || r.sharedWriteUnsafe > 0
}

// Subtree reports whether the record holds a directory-remove lock.
func (r *Record) Subtree() bool {
	return r.exclusive && r.subtree
}

// Mode returns the dominant held mode: Exclusive, then SharedRead, then
// SharedWriteUnsafe, then None.
func (r *Record) Mode() Mode {
	switch {
	case r.exclusive:
		return ModeExclusive
	case r.sharedRead > 0:
		return ModeSharedRead
	case r.sharedWriteUnsafe > 0:
		return ModeSharedWriteUnsafe
	default:
		return ModeNone
	}
}

// Holders returns the number of operations holding the record.
func (r *Record) Holders() int {
	n := r.sharedRead + r.sharedWriteUnsafe
	if r.exclusive {
		n++
	}
	return n
}

// heldBy names the operation kind behind mode m on this record.
func (r *Record) heldBy(m Mode) string {
	switch m {
	case ModeExclusive:
		return r.holder.String()
	case ModeSharedRead:
		return OpenAccessHandle(AccessReadOnly).String()
	case ModeSharedWriteUnsafe:
		return OpenAccessHandle(AccessReadWriteUnsafe).String()
	default:
		return ""
	}
}

// Decision is the outcome of a compatibility check.
type Decision struct {
	Granted bool

	// Conflict is the held mode that caused a denial.
	Conflict Mode
}

// Check decides whether requested can be granted on an entry whose current
// state is held. It never mutates held. A nil held means unlocked.
//
//	held \ request     Exclusive  SharedRead  SharedWriteUnsafe
//	none               grant      grant       grant
//	Exclusive          deny       deny        deny
//	SharedRead         deny       grant       policy
//	SharedWriteUnsafe  deny       policy      grant
func Check(held *Record, requested Mode, policy Policy) Decision {
	if held == nil || !held.Held() {
		return Decision{Granted: true}
	}
	if held.exclusive {
		return Decision{Conflict: ModeExclusive}
	}

	switch requested {
	case ModeExclusive:
		return Decision{Conflict: held.Mode()}
	case ModeSharedRead:
		if held.sharedWriteUnsafe > 0 && policy.StrictSharedModes {
			return Decision{Conflict: ModeSharedWriteUnsafe}
		}
	case ModeSharedWriteUnsafe:
		if held.sharedRead > 0 && policy.StrictSharedModes {
			return Decision{Conflict: ModeSharedRead}
		}
	}
	return Decision{Granted: true}
}

// acquire records a new holder. Callers must have obtained a granting Check
// under the same critical section.
func (r *Record) acquire(mode Mode, kind OperationKind, subtree bool) {
	switch mode {
	case ModeExclusive:
		r.exclusive = true
		r.subtree = subtree
		r.holder = kind
	case ModeSharedRead:
		r.sharedRead++
	case ModeSharedWriteUnsafe:
		r.sharedWriteUnsafe++
	}
}

// release drops one holder of mode. It reports false when no matching
// holder exists.
func (r *Record) release(mode Mode) bool {
	switch mode {
	case ModeExclusive:
		if !r.exclusive {
			return false
		}
		r.exclusive = false
		r.subtree = false
		r.holder = OperationKind{}
	case ModeSharedRead:
		if r.sharedRead == 0 {
			return false
		}
		r.sharedRead--
	case ModeSharedWriteUnsafe:
		if r.sharedWriteUnsafe == 0 {
			return false
		}
		r.sharedWriteUnsafe--
	default:
		return false
	}
	return true
}
