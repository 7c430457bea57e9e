// Package apperror defines the error taxonomy shared by services, middleware and handlers.
// Every error that should reach a client carries an HTTP status and a machine-readable code;
// anything else is reported as an internal failure.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Kind classifies an error for status mapping.
type Kind int

// Error kinds.
const (
	KindInternal Kind = iota
	KindAuthentication
	KindAuthorization
	KindValidation
	KindNotFound
	KindConflict
	KindRateLimit
	KindUnavailable
)

// Machine-readable codes.
const (
	CodeAuthMissing        = "AUTH_MISSING"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeTwoFactorRequired  = "TWO_FACTOR_REQUIRED"
	CodeRefreshInvalid     = "REFRESH_INVALID"
	CodeRoleForbidden      = "ROLE_FORBIDDEN"
	CodePermissionDenied   = "PERMISSION_DENIED"
	CodeCSRFMissing        = "CSRF_MISSING"
	CodeCSRFInvalid        = "CSRF_INVALID"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeInvalidArgument    = "INVALID_ARGUMENT"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeRateLimited        = "RATE_LIMITED"
	CodeLoginBlocked       = "LOGIN_BLOCKED"
	CodeStoreTimeout       = "STORE_TIMEOUT"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
)

// Error is a classified application error.
type Error struct {
	Kind       Kind
	Code       string
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by code so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// Status maps the error kind onto an HTTP status code.
func (e *Error) Status() int {
	switch e.Kind {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorization:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimit:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	clone := *e
	clone.Err = cause
	return &clone
}

// WithMessage returns a copy of e with a different client-facing message.
func (e *Error) WithMessage(message string) *Error {
	clone := *e
	clone.Message = message
	return &clone
}

// WithRetryAfter returns a copy of e carrying a retry hint.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	clone := *e
	clone.RetryAfter = d
	return &clone
}

// New constructs a classified error.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Authentication builds a 401 error.
func Authentication(code, message string) *Error {
	return New(KindAuthentication, code, message)
}

// Authorization builds a 403 error.
func Authorization(code, message string) *Error {
	return New(KindAuthorization, code, message)
}

// Validation builds a 400 error.
func Validation(message string) *Error {
	return New(KindValidation, CodeValidationFailed, message)
}

// InvalidArgument builds a 400 error for a rejected parameter.
func InvalidArgument(message string) *Error {
	return New(KindValidation, CodeInvalidArgument, message)
}

// NotFound builds a 404 error.
func NotFound(message string) *Error {
	return New(KindNotFound, CodeNotFound, message)
}

// Conflict builds a 409 error.
func Conflict(message string) *Error {
	return New(KindConflict, CodeConflict, message)
}

// RateLimited builds a 429 error with a retry hint.
func RateLimited(code string, retryAfter time.Duration) *Error {
	return &Error{Kind: KindRateLimit, Code: code, Message: "too many requests", RetryAfter: retryAfter}
}

// Internal wraps an unexpected failure. The cause is never shown to clients.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Code: CodeInternal, Message: "internal server error", Err: err}
}

// From extracts an *Error from err, classifying unknown errors as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}
