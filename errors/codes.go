package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Dependency injection errors
const (
	// ErrCodeResolution indicates a type could not be resolved from the container.
	ErrCodeResolution ErrorCode = "RESOLUTION_FAILED"
	// ErrCodeOutOfScope indicates a scenario-scoped type was requested outside a scenario.
	ErrCodeOutOfScope ErrorCode = "OUT_OF_SCOPE"
	// ErrCodeScopeState indicates an enter/exit call that does not match the scope state.
	ErrCodeScopeState ErrorCode = "SCOPE_STATE"
	// ErrCodeBinding indicates an invalid module binding.
	ErrCodeBinding ErrorCode = "BINDING_FAILED"
)

// Configuration errors
const (
	// ErrCodeInvalidConfig indicates the settings are missing or invalid.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Application control errors
const (
	// ErrCodeSessionFailed indicates an Appium session could not be created.
	ErrCodeSessionFailed ErrorCode = "SESSION_FAILED"
	// ErrCodeAppControl indicates a terminate/quit/activate command failed.
	ErrCodeAppControl ErrorCode = "APP_CONTROL_FAILED"
	// ErrCodeNoSuchElement indicates an element lookup found nothing.
	ErrCodeNoSuchElement ErrorCode = "NO_SUCH_ELEMENT"
	// ErrCodeProcess indicates a local service process failed to start or stop.
	ErrCodeProcess ErrorCode = "PROCESS_FAILED"
)

// Connection/availability errors (retryable)
const (
	// ErrCodeConnectionFailed indicates a failed connection to the Appium server.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeServiceUnavailable indicates the server is not ready yet.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// ErrCodeInternal indicates an unexpected internal failure.
const ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

var retryableCodes = map[ErrorCode]bool{
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
	ErrCodeServiceUnavailable: true,
	ErrCodeSessionFailed:      true,
	ErrCodeInternal:           false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
