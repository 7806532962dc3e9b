package repositories

import "errors"

// Error is a RepositoryError raised by repository code itself rather than the backend.
type Error struct {
	Op          string
	Message     string
	NotFound    bool
	Conflict    bool
	Unavailable bool
}

// NewNotFoundError reports a missing entity.
func NewNotFoundError(op, message string) *Error {
	return &Error{Op: op, Message: message, NotFound: true}
}

// NewConflictError reports a write that conflicts with stored state.
func NewConflictError(op, message string) *Error {
	return &Error{Op: op, Message: message, Conflict: true}
}

// NewUnavailableError reports an unreachable backend.
func NewUnavailableError(op, message string) *Error {
	return &Error{Op: op, Message: message, Unavailable: true}
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Message
	}
	return e.Op + ": " + e.Message
}

func (e *Error) IsNotFound() bool    { return e != nil && e.NotFound }
func (e *Error) IsConflict() bool    { return e != nil && e.Conflict }
func (e *Error) IsUnavailable() bool { return e != nil && e.Unavailable }

// IsNotFound reports whether err is a RepositoryError classified as not found.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

// IsConflict reports whether err is a RepositoryError classified as a conflict.
func IsConflict(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

// IsUnavailable reports whether err is a RepositoryError classified as unavailable.
func IsUnavailable(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsUnavailable()
}
