package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConflict means a concurrent writer won the race for the same
	// program; the caller should re-read and retry.
	ErrConflict = errors.New("concurrent modification conflict")

	// ErrNotFound means the target program id does not exist.
	ErrNotFound = errors.New("program not found")

	// ErrUnauthorized means the connection's user may not perform the
	// operation.
	ErrUnauthorized = errors.New("unauthorized")
)

// ValidationError rejects malformed input before it reaches storage.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidTransitionError rejects a status change the lifecycle forbids.
type InvalidTransitionError struct {
	From ProgramStatus
	To   ProgramStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("illegal status transition %s -> %s", e.From, e.To)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsInvalidTransition(err error) bool {
	var te *InvalidTransitionError
	return errors.As(err, &te)
}

// ErrorCode maps a domain error to the wire-level code clients switch on.
func ErrorCode(err error) string {
	switch {
	case IsValidation(err):
		return "VALIDATION"
	case IsInvalidTransition(err):
		return "INVALID_TRANSITION"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	default:
		return "INTERNAL"
	}
}
