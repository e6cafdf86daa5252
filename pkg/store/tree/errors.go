package tree

import "errors"

// StoreError represents a domain error from tree operations.
//
// These are business logic errors (entry not found, directory not empty, etc.)
// as opposed to infrastructure errors (disk failure, database corruption),
// which are reported with Code = ErrIOError.
type StoreError struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the path related to the error (if applicable)
	Path string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a tree error.
type ErrorCode int

const (
	// ErrNotFound indicates the requested entry doesn't exist
	ErrNotFound ErrorCode = iota

	// ErrAlreadyExists indicates an entry of a different kind exists at the path
	ErrAlreadyExists

	// ErrNotDirectory indicates operation expected a directory but got a file
	ErrNotDirectory

	// ErrIsDirectory indicates operation expected a file but got a directory
	ErrIsDirectory

	// ErrNotEmpty indicates a directory is not empty (cannot be removed)
	ErrNotEmpty

	// ErrInvalidArgument indicates invalid parameters were provided
	// Examples: empty name, removing the root, moving onto itself
	ErrInvalidArgument

	// ErrIOError indicates the backing storage failed
	ErrIOError
)

// String returns a short name for the code.
func (c ErrorCode) String() string {
	switch c {
	case ErrNotFound:
		return "not_found"
	case ErrAlreadyExists:
		return "already_exists"
	case ErrNotDirectory:
		return "not_directory"
	case ErrIsDirectory:
		return "is_directory"
	case ErrNotEmpty:
		return "not_empty"
	case ErrInvalidArgument:
		return "invalid_argument"
	case ErrIOError:
		return "io_error"
	default:
		return "unknown"
	}
}

// NewNotFoundError creates an ErrNotFound error for path.
func NewNotFoundError(p string) *StoreError {
	return &StoreError{Code: ErrNotFound, Message: "entry not found", Path: p}
}

// NewNotDirectoryError creates an ErrNotDirectory error for path.
func NewNotDirectoryError(p string) *StoreError {
	return &StoreError{Code: ErrNotDirectory, Message: "not a directory", Path: p}
}

// NewIsDirectoryError creates an ErrIsDirectory error for path.
func NewIsDirectoryError(p string) *StoreError {
	return &StoreError{Code: ErrIsDirectory, Message: "is a directory", Path: p}
}

// NewAlreadyExistsError creates an ErrAlreadyExists error for path.
func NewAlreadyExistsError(p string) *StoreError {
	return &StoreError{Code: ErrAlreadyExists, Message: "entry already exists", Path: p}
}

// NewNotEmptyError creates an ErrNotEmpty error for path.
func NewNotEmptyError(p string) *StoreError {
	return &StoreError{Code: ErrNotEmpty, Message: "directory not empty", Path: p}
}

// NewInvalidArgumentError creates an ErrInvalidArgument error.
func NewInvalidArgumentError(msg, p string) *StoreError {
	return &StoreError{Code: ErrInvalidArgument, Message: msg, Path: p}
}

// NewIOError creates an ErrIOError wrapping a backend failure message.
func NewIOError(msg, p string) *StoreError {
	return &StoreError{Code: ErrIOError, Message: msg, Path: p}
}

// CodeOf returns the ErrorCode of err and whether err is a StoreError.
func CodeOf(err error) (ErrorCode, bool) {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr.Code, true
	}
	return 0, false
}

// IsNotFound reports whether err is an ErrNotFound StoreError.
func IsNotFound(err error) bool {
	code, ok := CodeOf(err)
	return ok && code == ErrNotFound
}
