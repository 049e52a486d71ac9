package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Contract errors raised by the batch core. These are programming errors,
// never network conditions.
const (
	// ErrCodeInvalidArgument indicates malformed construction input.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeInvalidState indicates a call made out of lifecycle order.
	ErrCodeInvalidState ErrorCode = "INVALID_STATE"
	// ErrCodeOutOfRange indicates a reference to a step that does not exist.
	ErrCodeOutOfRange ErrorCode = "OUT_OF_RANGE"
	// ErrCodeNoCallback indicates a final result was requested without a callback.
	ErrCodeNoCallback ErrorCode = "NO_CALLBACK"
)

// Per-operation failures, recorded during execution and surfaced when the
// caller inspects that operation.
const (
	// ErrCodeTransportFailure indicates the transport reported an error for a step.
	ErrCodeTransportFailure ErrorCode = "TRANSPORT_FAILURE"
	// ErrCodeCallbackFailure indicates a final callback failed or panicked.
	ErrCodeCallbackFailure ErrorCode = "CALLBACK_FAILURE"
)

// Connection/Availability errors (retryable)
const (
	// ErrCodeServiceUnavailable indicates the service is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeConnectionFailed indicates a failed connection to a service.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRateLimited indicates the client is rate limited.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

// Resource errors
const (
	// ErrCodeNotFound indicates the requested resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeConflict indicates a conflict with the current state of the resource.
	ErrCodeConflict ErrorCode = "CONFLICT"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	// ErrCodeExternalService indicates an error from an external service.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
	ErrCodeRateLimited:        true,
	ErrCodeExternalService:    true,
	ErrCodeTransportFailure:   true,
	ErrCodeInternal:           false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
// Nothing in this module retries; the flag is informational for callers.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
