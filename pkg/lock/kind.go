package lock

import "fmt"

// Op identifies one of the four operation kinds.
type Op uint8

const (
	OpWritableStream Op = iota + 1
	OpAccessHandle
	OpMove
	OpRemove
)

// String returns the operation name used in logs and metrics labels.
func (o Op) String() string {
	switch o {
	case OpWritableStream:
		return "writable_stream"
	case OpAccessHandle:
		return "access_handle"
	case OpMove:
		return "move"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// OperationKind describes what an operation does to its target entry.
//
// The set of kinds is closed: values are built only through
// OpenWritableStream, OpenAccessHandle, Move and Remove, and Mode maps each
// kind to the lock it requires on its target.
type OperationKind struct {
	op          Op
	access      AccessMode
	destination string
}

// OpenWritableStream is the kind of an operation writing a file through a stream.
func OpenWritableStream() OperationKind {
	return OperationKind{op: OpWritableStream}
}

// OpenAccessHandle is the kind of an operation holding a synchronous access
// handle in the given mode.
func OpenAccessHandle(mode AccessMode) OperationKind {
	return OperationKind{op: OpAccessHandle, access: mode}
}

// Move is the kind of an operation relocating a file to destination.
func Move(destination string) OperationKind {
	return OperationKind{op: OpMove, destination: destination}
}

// Remove is the kind of an operation deleting an entry (recursively for directories).
func Remove() OperationKind {
	return OperationKind{op: OpRemove}
}

// Op returns the operation kind tag.
func (k OperationKind) Op() Op { return k.op }

// Access returns the access handle mode. Only meaningful for OpAccessHandle.
func (k OperationKind) Access() AccessMode { return k.access }

// Destination returns the move destination. Only meaningful for OpMove.
func (k OperationKind) Destination() string { return k.destination }

// Mode returns the lock this kind requires on its target entry.
//
//	writable stream              → Exclusive
//	access handle readwrite      → Exclusive
//	access handle read-only      → SharedRead
//	access handle readwrite-unsafe → SharedWriteUnsafe
//	move (source and existing destination) → Exclusive
//	remove                       → Exclusive (subtree-wide for directories)
func (k OperationKind) Mode() Mode {
	switch k.op {
	case OpAccessHandle:
		switch k.access {
		case AccessReadOnly:
			return ModeSharedRead
		case AccessReadWriteUnsafe:
			return ModeSharedWriteUnsafe
		default:
			return ModeExclusive
		}
	case OpWritableStream, OpMove, OpRemove:
		return ModeExclusive
	default:
		return ModeNone
	}
}

// String renders the kind for logs and error messages.
func (k OperationKind) String() string {
	switch k.op {
	case OpAccessHandle:
		return fmt.Sprintf("%s(%s)", k.op, k.access)
	case OpMove:
		return fmt.Sprintf("%s(%s)", k.op, k.destination)
	default:
		return k.op.String()
	}
}

func (k OperationKind) valid() bool {
	return k.op >= OpWritableStream && k.op <= OpRemove
}
