// Package cuterr defines the structured error taxonomy shared by every
// engine component: a sentinel Kind plus a correlation id, message,
// and recoverability flag.
package cuterr

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind enumerates the recognised error taxonomy entries. Kind values are
// compared with ==, never by string message, so callers can safely use
// errors.As to recover an *Error and switch on Kind.
type Kind string

const (
	ValidationRejected    Kind = "ValidationRejected"
	ConstraintViolation   Kind = "ConstraintViolation"
	Infeasible            Kind = "Infeasible"
	BudgetExceeded        Kind = "BudgetExceeded"
	Cancelled             Kind = "Cancelled"
	InternalInconsistency Kind = "InternalInconsistency"
	ConfigError           Kind = "ConfigError"
	TooBusy               Kind = "TooBusy"
)

// Error is the single structured error type returned across component
// boundaries. It carries enough context for a caller (or the facade's
// own logging) to reconstruct what happened without parsing Message.
type Error struct {
	ID            string
	CorrelationID string
	Kind          Kind
	Message       string
	Recoverable   bool
	Details       map[string]any
	Timestamp     time.Time
}

func (e *Error) Error() string {
	return fmt.Sprintf("cutstock: %s: %s", e.Kind, e.Message)
}

// Is lets errors.Is(err, cuterr.ValidationRejected) work by treating a bare
// Kind as a sentinel-like target; see Kind.Error below.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && e.Kind == k
}

// Error lets a bare Kind be used directly as an error value in tests,
// e.g. errors.Is(err, cuterr.Infeasible).
func (k Kind) Error() string { return string(k) }

func new_(correlationID string, kind Kind, recoverable bool, format string, args ...any) *Error {
	return &Error{
		ID:            uuid.NewString(),
		CorrelationID: correlationID,
		Kind:          kind,
		Message:       fmt.Sprintf(format, args...),
		Recoverable:   recoverable,
		Details:       map[string]any{},
		Timestamp:     time.Now(),
	}
}

// Validation builds a ValidationRejected error. Not recoverable: the
// caller must fix the input and resubmit.
func Validation(correlationID, format string, args ...any) *Error {
	return new_(correlationID, ValidationRejected, false, format, args...)
}

// Constraint builds a ConstraintViolation error.
func Constraint(correlationID, format string, args ...any) *Error {
	return new_(correlationID, ConstraintViolation, false, format, args...)
}

// Budget builds a BudgetExceeded error.
func Budget(correlationID, format string, args ...any) *Error {
	return new_(correlationID, BudgetExceeded, true, format, args...)
}

// CancelledErr builds a Cancelled error.
func CancelledErr(correlationID string) *Error {
	return new_(correlationID, Cancelled, true, "operation cancelled")
}

// Internal builds an InternalInconsistency error. These are always
// fatal for the specific response and should be logged with a full
// plan dump by the caller.
func Internal(correlationID, format string, args ...any) *Error {
	return new_(correlationID, InternalInconsistency, false, format, args...)
}

// Config builds a ConfigError error.
func Config(correlationID, format string, args ...any) *Error {
	return new_(correlationID, ConfigError, false, format, args...)
}

// TooBusyErr builds a TooBusy error emitted by the facade's backpressure check.
func TooBusyErr(correlationID string) *Error {
	return new_(correlationID, TooBusy, true, "too many in-flight optimizations")
}

// WithDetail attaches a detail key/value and returns the same *Error for chaining.
func (e *Error) WithDetail(key string, value any) *Error {
	e.Details[key] = value
	return e
}
