// Package errors defines the error types used across the bloomcast pipeline.
//
// The package follows Go 1.13+ error conventions: every custom type supports
// errors.Is / errors.As, wrapping is delegated to cockroachdb/errors so stack
// traces survive through %+v, and sentinel errors are provided for the common
// failure classes (empty data, unfitted models, singular systems).
package errors

import (
	"fmt"

	cockroach "github.com/cockroachdb/errors"
)

// Sentinel errors for common failure classes.
var (
	// ErrEmptyData indicates an operation received zero rows or zero columns.
	ErrEmptyData = cockroach.New("empty data")

	// ErrNotFitted indicates a model or transform was used before Fit.
	ErrNotFitted = cockroach.New("not fitted")

	// ErrSingularMatrix indicates a linear system could not be solved.
	ErrSingularMatrix = cockroach.New("singular matrix")

	// ErrNotImplemented indicates a requested capability is not available.
	ErrNotImplemented = cockroach.New("not implemented")
)

// New creates a new error with a stack trace attached.
func New(msg string) error {
	return cockroach.New(msg)
}

// Wrap annotates err with msg, preserving the chain for errors.Is / errors.As.
func Wrap(err error, msg string) error {
	return cockroach.Wrap(err, msg)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return cockroach.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return cockroach.As(err, target)
}

// Recover converts a panic inside a Fit/Transform/Predict call into an error.
// Used as `defer errors.Recover(&err, "StandardScaler.Fit")` so numeric panics
// (index out of range, nil matrix) surface as regular errors with the
// operation name.
func Recover(err *error, op string) {
	if r := recover(); r != nil {
		*err = cockroach.Newf("bloomcast: %s: panic: %v", op, r)
	}
}

// NotFittedError is returned when Predict/Transform is called on an
// estimator that has not been fitted.
type NotFittedError struct {
	ModelName string
	Method    string
}

// NewNotFittedError creates a NotFittedError for the given model and method.
func NewNotFittedError(modelName, method string) *NotFittedError {
	return &NotFittedError{ModelName: modelName, Method: method}
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("bloomcast: %s.%s: model is not fitted; call Fit first", e.ModelName, e.Method)
}

func (e *NotFittedError) Unwrap() error { return ErrNotFitted }

// DimensionError is returned when an input matrix does not match the shape an
// operation requires. Axis is 0 for rows, 1 for columns.
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

// NewDimensionError creates a DimensionError for the given operation.
func NewDimensionError(op string, expected, got, axis int) *DimensionError {
	return &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
}

func (e *DimensionError) Error() string {
	axis := "rows"
	if e.Axis == 1 {
		axis = "columns"
	}
	return fmt.Sprintf("bloomcast: %s: dimension mismatch on %s: expected %d, got %d",
		e.Op, axis, e.Expected, e.Got)
}

// ValueError is returned for invalid argument values.
type ValueError struct {
	Op      string
	Message string
}

// NewValueError creates a ValueError for the given operation.
func NewValueError(op, message string) *ValueError {
	return &ValueError{Op: op, Message: message}
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("bloomcast: %s: %s", e.Op, e.Message)
}

// ValidationError is returned when a field of a configuration or input fails
// validation. Value carries the offending value for logging.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{Field: field, Message: message, Value: value}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("bloomcast: validation failed for %s: %s (value: %v)", e.Field, e.Message, e.Value)
}

// ModelError wraps a lower-level error with the operation that failed.
type ModelError struct {
	Op      string
	Message string
	Err     error
}

// NewModelError creates a ModelError wrapping err.
func NewModelError(op, message string, err error) *ModelError {
	return &ModelError{Op: op, Message: message, Err: err}
}

func (e *ModelError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bloomcast: %s: %s: %v", e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("bloomcast: %s: %s", e.Op, e.Message)
}

func (e *ModelError) Unwrap() error { return e.Err }

// SplitError is returned when a train fraction leaves either partition of a
// chronological split empty.
type SplitError struct {
	Fraction float64
	NSamples int
}

// NewSplitError creates a SplitError for the given fraction and sample count.
func NewSplitError(fraction float64, nSamples int) *SplitError {
	return &SplitError{Fraction: fraction, NSamples: nSamples}
}

func (e *SplitError) Error() string {
	return fmt.Sprintf("bloomcast: temporal split: train fraction %.3f leaves an empty partition for %d rows",
		e.Fraction, e.NSamples)
}

// InsufficientDataError is returned when, after lag-shift row dropping, too few
// rows remain for the requested fold count or class representation.
type InsufficientDataError struct {
	Op     string
	Needed int
	Got    int
}

// NewInsufficientDataError creates an InsufficientDataError for the operation.
func NewInsufficientDataError(op string, needed, got int) *InsufficientDataError {
	return &InsufficientDataError{Op: op, Needed: needed, Got: got}
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("bloomcast: %s: insufficient data: need at least %d rows, got %d", e.Op, e.Needed, e.Got)
}

// TransformFitError is returned when fitting a preprocessing transform fails
// for a specific column: zero variance, non-positive values under a plain log,
// or a degenerate power-transform estimate.
type TransformFitError struct {
	Transform string
	Column    string
	Reason    string
}

// NewTransformFitError creates a TransformFitError naming the transform and column.
func NewTransformFitError(transform, column, reason string) *TransformFitError {
	return &TransformFitError{Transform: transform, Column: column, Reason: reason}
}

func (e *TransformFitError) Error() string {
	return fmt.Sprintf("bloomcast: %s: cannot fit column %q: %s", e.Transform, e.Column, e.Reason)
}

// TrainingDivergedError is returned when iterative model fitting produces a
// non-finite loss instead of silently returning a degenerate model.
type TrainingDivergedError struct {
	Model string
	Epoch int
	Loss  float64
}

// NewTrainingDivergedError creates a TrainingDivergedError for the model.
func NewTrainingDivergedError(model string, epoch int, loss float64) *TrainingDivergedError {
	return &TrainingDivergedError{Model: model, Epoch: epoch, Loss: loss}
}

func (e *TrainingDivergedError) Error() string {
	return fmt.Sprintf("bloomcast: %s: training diverged at epoch %d (loss=%v)", e.Model, e.Epoch, e.Loss)
}
