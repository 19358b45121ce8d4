package errors

import (
	stderrors "errors"
	"fmt"
	"reflect"
)

// AppError is the unified error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == ""
}

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// Code returns a sentinel usable with errors.Is to match any error of that code.
//
//	if errors.Is(err, apperrors.Code(apperrors.ErrCodeOutOfScope)) { ... }
func Code(code ErrorCode) *AppError {
	return &AppError{Code: code}
}

// --- Container errors ---

// NotRegistered creates an error for a type with no binding.
func NotRegistered(t reflect.Type) *AppError {
	return &AppError{
		Code:    ErrCodeResolution,
		Message: fmt.Sprintf("no binding registered for %s", typeName(t)),
		Details: map[string]any{"type": typeName(t)},
	}
}

// ResolutionFailed creates an error for a constructor that could not produce an instance.
func ResolutionFailed(t reflect.Type, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeResolution,
		Message: fmt.Sprintf("failed to resolve %s", typeName(t)),
		Details: map[string]any{"type": typeName(t)},
		Cause:   cause,
	}
}

// OutOfScope creates an error for a scenario-scoped type requested with no active scope.
func OutOfScope(t reflect.Type) *AppError {
	return &AppError{
		Code:    ErrCodeOutOfScope,
		Message: fmt.Sprintf("cannot access scenario-scoped %s outside of a scenario", typeName(t)),
		Details: map[string]any{"type": typeName(t)},
	}
}

// ScopeState creates an error for an enter/exit call made in the wrong state.
func ScopeState(message string) *AppError {
	return &AppError{Code: ErrCodeScopeState, Message: message}
}

// Binding creates an error for an invalid binding.
func Binding(message string) *AppError {
	return &AppError{Code: ErrCodeBinding, Message: message}
}

// --- Configuration errors ---

// InvalidConfig creates an error for invalid settings.
func InvalidConfig(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidConfig, Message: message}
}

// --- Application control errors ---

// SessionFailed creates an error for a session that could not be created.
func SessionFailed(cause error) *AppError {
	return &AppError{
		Code:      ErrCodeSessionFailed,
		Message:   "unable to create application session",
		Retryable: true,
		Cause:     cause,
	}
}

// AppControl creates an error for a failed application command.
func AppControl(command string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeAppControl,
		Message: fmt.Sprintf("application command %q failed", command),
		Details: map[string]any{"command": command},
		Cause:   cause,
	}
}

// NoSuchElement creates an error for an element that was not found.
func NoSuchElement(strategy, selector string) *AppError {
	return &AppError{
		Code:    ErrCodeNoSuchElement,
		Message: fmt.Sprintf("no element found by %s %q", strategy, selector),
		Details: map[string]any{"strategy": strategy, "selector": selector},
	}
}

// ConnectionFailed creates an error for a failed connection to a service.
func ConnectionFailed(service string, cause error) *AppError {
	return &AppError{
		Code:      ErrCodeConnectionFailed,
		Message:   fmt.Sprintf("unable to connect to %s", service),
		Retryable: true,
		Details:   map[string]any{"service": service},
		Cause:     cause,
	}
}

// Timeout creates an error for an operation that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code:      ErrCodeTimeout,
		Message:   fmt.Sprintf("%s timed out", operation),
		Retryable: true,
		Details:   map[string]any{"operation": operation},
	}
}

// Process creates an error for a subprocess failure.
func Process(binary string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeProcess,
		Message: fmt.Sprintf("process %s failed", binary),
		Details: map[string]any{"binary": binary},
		Cause:   cause,
	}
}

// Internal creates an error for an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: "unexpected error", Cause: cause}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsRetryable reports whether err, or any AppError it wraps, is retryable.
func IsRetryable(err error) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Retryable
	}
	return false
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
