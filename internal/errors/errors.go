package errors

import (
	"errors"
	"net/http"
)

// Kind classifies a domain error. Clients and tests assert on the kind, not the text.
type Kind string

const (
	KindNotFound    Kind = "NOT_FOUND"
	KindConflict    Kind = "CONFLICT"
	KindValidation  Kind = "VALIDATION_FAILURE"
	KindPersistence Kind = "PERSISTENCE_FAILURE"
	KindAuth        Kind = "AUTH_FAILURE"
	KindForbidden   Kind = "FORBIDDEN"
	KindInternal    Kind = "INTERNAL_ERROR"
)

// Error is a domain error carrying its kind and, optionally, the cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound builds a NOT_FOUND error.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Conflict builds a CONFLICT error.
func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Message: message}
}

// Validation builds a VALIDATION_FAILURE error.
func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// Auth builds an AUTH_FAILURE error.
func Auth(message string) *Error {
	return &Error{Kind: KindAuth, Message: message}
}

// Persistence wraps a store fault that caused a rollback.
func Persistence(message string, err error) *Error {
	return &Error{Kind: KindPersistence, Message: message, Err: err}
}

var (
	ErrCarNotFound        = NotFound("car does not exist")
	ErrCategoryNotFound   = NotFound("category does not exist")
	ErrRentalNotFound     = NotFound("rental does not exist")
	ErrUserNotFound       = NotFound("user not found")
	ErrUserDeleted        = Validation("User is deleted")
	ErrUserAlreadyDeleted = Validation("User is already deleted")

	ErrCarUnavailable = Conflict("Car is not available for the selected period")
	ErrEmailTaken     = Conflict("email already registered")
	ErrPlateTaken     = Conflict("plate number already registered")

	ErrInvalidStatusTransition = Validation("invalid rental status transition")
	ErrInvalidDateRange        = Validation("end date must not be before start date")

	ErrInvalidCredentials  = Auth("invalid email or password")
	ErrInvalidRefreshToken = Auth("invalid or expired refresh token")
	ErrForbidden           = &Error{Kind: KindForbidden, Message: "insufficient access level"}
)

// KindOf reports the kind of err, or KindInternal when err is not a domain error.
func KindOf(err error) Kind {
	var domainErr *Error
	if errors.As(err, &domainErr) {
		return domainErr.Kind
	}
	return KindInternal
}

// IsDomain reports whether err is (or wraps) a domain *Error.
func IsDomain(err error) bool {
	var domainErr *Error
	return errors.As(err, &domainErr)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
// Business failures share 400; the kind travels in Code.
func MapErrorToHTTP(err error) *HTTPError {
	var domainErr *Error
	if !errors.As(err, &domainErr) {
		return NewHTTPError(http.StatusBadRequest, err.Error(), string(KindInternal))
	}
	if domainErr.Kind == KindForbidden {
		return NewHTTPError(http.StatusForbidden, domainErr.Error(), string(domainErr.Kind))
	}
	return NewHTTPError(http.StatusBadRequest, domainErr.Error(), string(domainErr.Kind))
}
