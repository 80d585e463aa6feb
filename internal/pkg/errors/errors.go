// Package errors provides custom error types and error handling utilities.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Error codes.
const (
	// Input errors.
	CodeValidation = "VALIDATION_ERROR"
	CodeNotFound   = "NOT_FOUND"

	// Evaluation errors.
	CodeStructuralMismatch  = "STRUCTURAL_MISMATCH"
	CodeGroundTruthNotFound = "GROUND_TRUTH_NOT_FOUND"
	CodeInvalidGroundTruth  = "INVALID_GROUND_TRUTH"
	CodeInvalidResult       = "INVALID_RESULT"

	// Infrastructure errors.
	CodeInternal    = "INTERNAL_ERROR"
	CodeUnavailable = "SERVICE_UNAVAILABLE"
	CodeTimeout     = "TIMEOUT"
)

// AppError represents an application error with code and details.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Fatal reports whether the error must abort an evaluation run.
// Only an invalid system result is recoverable; it costs the track its score.
func (e *AppError) Fatal() bool {
	return e.Code != CodeInvalidResult
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError.
func Wrap(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Convenience constructors.

// ValidationError creates a validation error.
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// NotFoundError creates a not found error.
func NotFoundError(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// InternalError creates an internal error.
func InternalError(message string, err error) *AppError {
	return Wrap(CodeInternal, message, err)
}

// StructuralMismatchError reports a job whose folds differ from the experiment.
func StructuralMismatchError(jobID, message string) *AppError {
	return New(CodeStructuralMismatch, message).WithDetail("job", jobID)
}

// GroundTruthNotFoundError reports a submitted track with no ground truth.
func GroundTruthNotFoundError(trackID string) *AppError {
	return New(CodeGroundTruthNotFound, fmt.Sprintf("no ground truth for track %s", trackID)).
		WithDetail("track", trackID)
}

// InvalidGroundTruthError reports a ground-truth record that cannot be scored against.
func InvalidGroundTruthError(trackID, message string) *AppError {
	return New(CodeInvalidGroundTruth, message).WithDetail("track", trackID)
}

// InvalidResultError reports a system result that cannot be scored.
func InvalidResultError(trackID, message string) *AppError {
	return New(CodeInvalidResult, message).WithDetail("track", trackID)
}

// ServiceUnavailableError creates a service unavailable error.
func ServiceUnavailableError(service string) *AppError {
	message := "service unavailable"
	if service != "" {
		message = fmt.Sprintf("%s is unavailable", service)
	}
	return New(CodeUnavailable, message)
}

// CodeOf returns the code of the first AppError in err's chain, or "".
func CodeOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsNotFound checks if error is a not found error.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsValidation checks if error is a validation error.
func IsValidation(err error) bool {
	return CodeOf(err) == CodeValidation
}

// IsStructuralMismatch checks if error is a fold-set mismatch.
func IsStructuralMismatch(err error) bool {
	return CodeOf(err) == CodeStructuralMismatch
}

// IsGroundTruthNotFound checks if error is a missing ground-truth lookup.
func IsGroundTruthNotFound(err error) bool {
	return CodeOf(err) == CodeGroundTruthNotFound
}

// IsInvalidGroundTruth checks if error is an unusable ground-truth record.
func IsInvalidGroundTruth(err error) bool {
	return CodeOf(err) == CodeInvalidGroundTruth
}

// IsInvalidResult checks if error is an unusable system result.
func IsInvalidResult(err error) bool {
	return CodeOf(err) == CodeInvalidResult
}

// IsFatal reports whether err aborts an evaluation run.
// Errors that are not AppErrors are always fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Fatal()
	}
	return true
}
