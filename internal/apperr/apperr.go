// Package apperr defines the error kinds surfaced by the access and
// lifecycle layers.  Each kind maps to exactly one HTTP status so that
// handlers translate errors in a single place.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for callers.
type Kind string

const (
	Unauthenticated        Kind = "unauthenticated"
	Forbidden              Kind = "forbidden"
	NotFound               Kind = "not_found"
	ValidationFailed       Kind = "validation_failed"
	InvalidTransition      Kind = "invalid_transition"
	ReferenceCollision     Kind = "reference_collision"
	ConcurrentModification Kind = "concurrent_modification"
	StoreUnavailable       Kind = "store_unavailable"
)

// Error carries a Kind, a human readable message and an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrForbidden)
// holds for every forbidden error regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrUnauthenticated        = &Error{Kind: Unauthenticated}
	ErrForbidden              = &Error{Kind: Forbidden}
	ErrNotFound               = &Error{Kind: NotFound}
	ErrValidationFailed       = &Error{Kind: ValidationFailed}
	ErrInvalidTransition      = &Error{Kind: InvalidTransition}
	ErrReferenceCollision     = &Error{Kind: ReferenceCollision}
	ErrConcurrentModification = &Error{Kind: ConcurrentModification}
	ErrStoreUnavailable       = &Error{Kind: StoreUnavailable}
)

// New returns an error of kind k.
func New(k Kind, msg string) *Error {
	return &Error{Kind: k, Message: msg}
}

// Wrap returns an error of kind k that keeps cause reachable via errors.Unwrap.
func Wrap(k Kind, msg string, cause error) *Error {
	return &Error{Kind: k, Message: msg, Err: cause}
}

// KindOf extracts the kind from err.  Errors that carry no kind are
// treated as StoreUnavailable.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return StoreUnavailable
}

// MessageOf returns the message of the outermost *Error in err, falling
// back to err.Error().
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	if KindOf(err) == StoreUnavailable {
		return "internal error"
	}
	return err.Error()
}

// HTTPStatus maps a kind to the response status code.
func HTTPStatus(k Kind) int {
	switch k {
	case Unauthenticated:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case ValidationFailed:
		return http.StatusBadRequest
	case InvalidTransition, ConcurrentModification:
		return http.StatusConflict
	case ReferenceCollision:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
