package apperr

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Sentinel kinds. Services wrap one of these so callers can branch with
// errors.Is without depending on the service that produced the error.
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrUnauthorized = errors.New("unauthorized")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.kind.Error() + ": " + e.msg }

func (e *kindError) Unwrap() error { return e.kind }

func newKind(kind error, format string, args ...interface{}) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) error {
	return newKind(ErrValidation, format, args...)
}

func NotFound(format string, args ...interface{}) error {
	return newKind(ErrNotFound, format, args...)
}

func InvalidState(format string, args ...interface{}) error {
	return newKind(ErrInvalidState, format, args...)
}

func Unauthorized(format string, args ...interface{}) error {
	return newKind(ErrUnauthorized, format, args...)
}

// HTTPStatus maps an error chain to the status code the HTTP layer answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the text safe to show to a client. Internal
// failures collapse to a generic message.
func PublicMessage(err error) string {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.msg
	}
	return "Internal server error"
}
