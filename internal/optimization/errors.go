package optimization

import "fmt"

// BoundsError reports a malformed search domain. It is returned at
// construction time; no run starts with invalid bounds.
type BoundsError struct {
	// Dim is the offending dimension index, or -1 when the bounds
	// sequence as a whole is malformed (e.g. empty).
	Dim  int
	Low  float64
	High float64
	// Message describes the problem when Dim is -1.
	Message string
}

// Error returns the string representation of the error.
func (e *BoundsError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Dim < 0 {
		return fmt.Sprintf("invalid bounds: %s", e.Message)
	}
	return fmt.Sprintf("invalid bounds: dimension %d has low=%v, high=%v (want low < high)", e.Dim, e.Low, e.High)
}

// NewBoundsError creates a BoundsError for a malformed bounds sequence.
func NewBoundsError(message string) *BoundsError {
	return &BoundsError{Dim: -1, Message: message}
}

// NewDimBoundsError creates a BoundsError for a single bad dimension.
func NewDimBoundsError(dim int, low, high float64) *BoundsError {
	return &BoundsError{Dim: dim, Low: low, High: high}
}

// ConfigError reports an invalid optimizer configuration value. It is
// returned before any population is initialized.
type ConfigError struct {
	// Field is the configuration field that failed validation.
	Field string
	// Message describes why the value was rejected.
	Message string
}

// Error returns the string representation of the error.
func (e *ConfigError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Message)
}

// NewConfigError creates a ConfigError for the named field.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// NewConfigErrorf creates a ConfigError with a formatted message.
func NewConfigErrorf(field, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ObjectiveError reports a failed objective-function evaluation. It
// carries the vector that triggered the failure so callers can diagnose
// the objective. An ObjectiveError aborts the run; evaluations are never
// retried, since a black-box objective's failure is assumed non-transient.
type ObjectiveError struct {
	// Vector is the input that caused the failure.
	Vector []float64
	// Err is the underlying error from the objective function, if any.
	Err error
	// Message describes failures with no underlying error, such as a
	// non-finite return value.
	Message string
}

// Error returns the string representation of the error.
func (e *ObjectiveError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("objective evaluation failed at %v: %v", e.Vector, e.Err)
	}
	return fmt.Sprintf("objective evaluation failed at %v: %s", e.Vector, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *ObjectiveError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewObjectiveError wraps an objective-function failure with the input
// vector for diagnosis. The vector is copied.
func NewObjectiveError(vector []float64, err error) *ObjectiveError {
	return &ObjectiveError{
		Vector: append([]float64(nil), vector...),
		Err:    err,
	}
}

// NewObjectiveErrorf creates an ObjectiveError with a formatted message
// and no underlying error.
func NewObjectiveErrorf(vector []float64, format string, args ...interface{}) *ObjectiveError {
	return &ObjectiveError{
		Vector:  append([]float64(nil), vector...),
		Message: fmt.Sprintf(format, args...),
	}
}
