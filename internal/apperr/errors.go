package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Kind classifies a failure for propagation: which error event a connection
// sees, which status an HTTP caller gets, and whether a store call is retried.
type Kind int

const (
	KindUnexpected Kind = iota
	KindAuthentication
	KindAuthorization
	KindNotFound
	KindConflict
	KindInvalid
	KindTransientStore
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalid:
		return "invalid"
	case KindTransientStore:
		return "transient_store"
	default:
		return "unexpected"
	}
}

// Error is the typed error returned by every coordinator.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Unauthenticated(msg string) *Error { return New(KindAuthentication, msg) }
func Forbidden(msg string) *Error       { return New(KindAuthorization, msg) }
func NotFound(msg string) *Error        { return New(KindNotFound, msg) }
func Conflict(msg string) *Error        { return New(KindConflict, msg) }
func Invalid(msg string) *Error         { return New(KindInvalid, msg) }

// Transient marks a store error as safe to retry.
func Transient(err error) *Error {
	return Wrap(KindTransientStore, err, "store temporarily unavailable")
}

// Unexpected wraps anything that does not fit another kind.
func Unexpected(err error, msg string) *Error {
	return Wrap(KindUnexpected, err, msg)
}

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// PublicMessage is the text safe to show to the connection that caused err.
// Unexpected failures never leak their cause.
func PublicMessage(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindUnexpected {
		return e.Message
	}
	return "internal server error"
}

// HTTPStatus maps err to the status code the HTTP surface responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindAuthentication:
		return fiber.StatusUnauthorized
	case KindAuthorization:
		return fiber.StatusForbidden
	case KindNotFound:
		return fiber.StatusNotFound
	case KindConflict:
		return fiber.StatusConflict
	case KindInvalid:
		return fiber.StatusBadRequest
	case KindTransientStore:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
