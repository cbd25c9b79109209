package resource

import "errors"

// Error represents a domain error from resource operations.
//
// These are business logic errors (resource not found, name collision, etc.)
// as opposed to infrastructure errors (disk failure, network error). Outer
// layers translate the Code to transport-specific error codes; the engine
// itself only ever branches on Code.
type Error struct {
	// Code is the error category
	Code ErrorCode

	// Message is a human-readable error description
	Message string

	// Path is the path or path segment related to the error (if applicable)
	Path string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Path != "" {
		return e.Message + ": " + e.Path
	}
	return e.Message
}

// ErrorCode represents the category of a resource error.
type ErrorCode int

const (
	// CodeNotFound indicates the requested path segment or resource doesn't exist
	CodeNotFound ErrorCode = iota

	// CodeAlreadyExists indicates a name collision on create, or a duplicate link
	CodeAlreadyExists

	// CodeForbidden indicates a disallowed operation: root/special-folder
	// mutation, upload into a virtual folder, or an access-control denial
	CodeForbidden

	// CodeNotEmpty indicates a non-recursive delete of a populated folder
	CodeNotEmpty

	// CodeLockBusy indicates an archive job is already in flight for the target
	CodeLockBusy

	// CodeIntegrity indicates a broken account invariant, such as a missing
	// root folder. Not a normal user error: accounts are provisioned with a
	// root folder at setup, so this surfaces as a fatal condition.
	CodeIntegrity

	// CodeInvalidPath indicates a malformed path string
	CodeInvalidPath
)

// ErrNotFound creates a not-found error for a missing path segment.
func ErrNotFound(segment string) *Error {
	return &Error{Code: CodeNotFound, Message: "resource not found", Path: segment}
}

// ErrAlreadyExists creates a name-collision error.
func ErrAlreadyExists(name string) *Error {
	return &Error{Code: CodeAlreadyExists, Message: "resource already exists", Path: name}
}

// ErrForbidden creates a forbidden-action error.
func ErrForbidden(message string) *Error {
	return &Error{Code: CodeForbidden, Message: message}
}

// ErrNotEmpty creates a folder-not-empty error.
func ErrNotEmpty(path string) *Error {
	return &Error{Code: CodeNotEmpty, Message: "folder not empty", Path: path}
}

// ErrLockBusy creates a lock-contention error for an archive job.
func ErrLockBusy(key string) *Error {
	return &Error{Code: CodeLockBusy, Message: "archive already in progress", Path: key}
}

// ErrIntegrity creates an integrity-fault error.
func ErrIntegrity(message string) *Error {
	return &Error{Code: CodeIntegrity, Message: message}
}

// ErrInvalidPath creates a malformed-path error.
func ErrInvalidPath(path string) *Error {
	return &Error{Code: CodeInvalidPath, Message: "invalid path", Path: path}
}

// HasCode reports whether err is a resource error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var re *Error
	return errors.As(err, &re) && re.Code == code
}

// IsNotFound reports whether err is a not-found resource error.
func IsNotFound(err error) bool { return HasCode(err, CodeNotFound) }

// IsAlreadyExists reports whether err is a name-collision resource error.
func IsAlreadyExists(err error) bool { return HasCode(err, CodeAlreadyExists) }

// IsForbidden reports whether err is a forbidden-action resource error.
func IsForbidden(err error) bool { return HasCode(err, CodeForbidden) }

// IsNotEmpty reports whether err is a folder-not-empty resource error.
func IsNotEmpty(err error) bool { return HasCode(err, CodeNotEmpty) }

// IsLockBusy reports whether err is a lock-contention resource error.
func IsLockBusy(err error) bool { return HasCode(err, CodeLockBusy) }
