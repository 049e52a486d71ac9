package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	apperrors "github.com/kbukum/cloudbatch/errors"
)

// ErrorCode classifies transport errors.
type ErrorCode int

const (
	// ErrCodeTimeout indicates a request or connection timeout.
	ErrCodeTimeout ErrorCode = iota
	// ErrCodeConnection indicates a connection failure (refused, DNS, reset).
	ErrCodeConnection
	// ErrCodeAuth indicates a rejected token (401/403).
	ErrCodeAuth
	// ErrCodeNotFound indicates a missing container or object (404).
	ErrCodeNotFound
	// ErrCodeConflict indicates a state conflict such as a non-empty container (409).
	ErrCodeConflict
	// ErrCodeRateLimit indicates throttling (429 or 498).
	ErrCodeRateLimit
	// ErrCodeValidation indicates a rejected request (other 4xx) or a bad local request.
	ErrCodeValidation
	// ErrCodeServer indicates a server-side error (5xx).
	ErrCodeServer
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeAuth:
		return "auth"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeConflict:
		return "conflict"
	case ErrCodeRateLimit:
		return "rate_limit"
	case ErrCodeValidation:
		return "validation"
	case ErrCodeServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is a classified transport error.
type Error struct {
	// StatusCode is the HTTP status code, 0 for connection-level errors.
	StatusCode int
	Code       ErrorCode
	Message    string
	Retryable  bool
	// Body is the response body when one was read.
	Body []byte
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transport: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("transport: %s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(err error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: err.Error(), Retryable: true, Err: err}
}

// NewConnectionError creates a connection error.
func NewConnectionError(err error) *Error {
	return &Error{Code: ErrCodeConnection, Message: err.Error(), Retryable: true, Err: err}
}

// NewValidationError creates an error for a request that could not be built.
func NewValidationError(msg string) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg}
}

// classifyDoError maps an http.Client.Do failure to a transport error.
func classifyDoError(ctx context.Context, err error) *Error {
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError(err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return NewTimeoutError(err)
	}
	return NewConnectionError(err)
}

// ClassifyStatusCode converts an HTTP status code into a typed error.
// Returns nil for 2xx status codes.
func ClassifyStatusCode(statusCode int, body []byte) *Error {
	e := &Error{StatusCode: statusCode, Message: http.StatusText(statusCode), Body: body}
	if e.Message == "" {
		e.Message = fmt.Sprintf("HTTP %d", statusCode)
	}
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		e.Code = ErrCodeAuth
	case statusCode == http.StatusNotFound:
		e.Code = ErrCodeNotFound
	case statusCode == http.StatusConflict:
		e.Code = ErrCodeConflict
	case statusCode == http.StatusTooManyRequests || statusCode == 498:
		e.Code, e.Retryable = ErrCodeRateLimit, true
	case statusCode >= 400 && statusCode < 500:
		e.Code = ErrCodeValidation
	case statusCode >= 500:
		e.Code, e.Retryable = ErrCodeServer, true
	default:
		e.Code = ErrCodeServer
	}
	return e
}

// ToAppError translates a transport error into the application error model.
// resource names the thing the request addressed, e.g. "object photos/cat.jpg".
func ToAppError(err error, resource string) *apperrors.AppError {
	if err == nil {
		return nil
	}
	var te *Error
	if !errors.As(err, &te) {
		return apperrors.ExternalServiceError("object storage", err)
	}
	switch te.Code {
	case ErrCodeNotFound:
		return apperrors.NotFound(resource, "").WithCause(te)
	case ErrCodeConflict:
		return apperrors.Conflict(fmt.Sprintf("%s: %s", resource, te.Message)).WithCause(te)
	case ErrCodeTimeout:
		return apperrors.New(apperrors.ErrCodeTimeout, te.Message, http.StatusGatewayTimeout).WithCause(te)
	case ErrCodeConnection:
		return apperrors.New(apperrors.ErrCodeConnectionFailed, te.Message, http.StatusBadGateway).WithCause(te)
	case ErrCodeRateLimit:
		return apperrors.New(apperrors.ErrCodeRateLimited, te.Message, http.StatusTooManyRequests).WithCause(te)
	case ErrCodeServer:
		return apperrors.ServiceUnavailable("object storage").WithCause(te)
	default:
		return apperrors.ExternalServiceError("object storage", te)
	}
}

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeNotFound
}

// IsConflict checks if an error is a conflict error.
func IsConflict(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeConflict
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeTimeout
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}
