package grid

import (
	"errors"
	"fmt"
)

var (
	// ErrValidationRejected is the sentinel behind every ValidationError.
	// A rejected operation leaves all state unchanged.
	ErrValidationRejected = errors.New("validation rejected")

	// ErrPrecondition marks a programming error at the call site, such as
	// resizing past the opposite edge or indexing outside an axis.
	ErrPrecondition = errors.New("precondition violated")

	// ErrEmptyAxis is returned when a query runs against an axis with no lines.
	ErrEmptyAxis = fmt.Errorf("%w: axis has no grid lines", ErrPrecondition)
)

// ValidationError describes a rejected grid, object or crack operation.
type ValidationError struct {
	Op     string // operation that was rejected, e.g. "insert", "remove"
	Axis   Axis
	Value  float64
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s=%g rejected: %s", e.Op, e.Axis, e.Value, e.Reason)
}

// Unwrap lets callers test with errors.Is(err, ErrValidationRejected).
func (e *ValidationError) Unwrap() error {
	return ErrValidationRejected
}

// Reject builds a ValidationError.
func Reject(op string, axis Axis, value float64, format string, args ...any) *ValidationError {
	return &ValidationError{Op: op, Axis: axis, Value: value, Reason: fmt.Sprintf(format, args...)}
}
