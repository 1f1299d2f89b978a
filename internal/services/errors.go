package services

import (
	"errors"
	"fmt"

	"github.com/desertthunder/monthlify/internal/shared"
)

// ErrorKind is the class of a failed backend call.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindUnauthorized
	KindApplication
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUnauthorized:
		return "unauthorized"
	case KindApplication:
		return "application"
	default:
		return "transport"
	}
}

// ApplicationError is a non-2xx backend response carrying an error payload.
type ApplicationError struct {
	Status  int
	Message string
}

func (e *ApplicationError) Error() string {
	return e.Message
}

func (e *ApplicationError) Unwrap() error {
	return shared.ErrApplication
}

// TransportError is a network failure, an unreadable body or a non-2xx response without an error payload.
type TransportError struct {
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("backend returned status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("backend unreachable: %v", e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{shared.ErrTransport, e.Err}
}

// Classify maps an error from a [Backend] to its kind.
//
// Local sentinels from an in-process backend map onto the same classes as their HTTP equivalents.
// Errors that are not one of the three classes count as transport failures.
func Classify(err error) ErrorKind {
	var appErr *ApplicationError
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, shared.ErrUnauthorized),
		errors.Is(err, shared.ErrNotAuthenticated),
		errors.Is(err, shared.ErrTokenExpired):
		return KindUnauthorized
	case errors.As(err, &appErr),
		errors.Is(err, shared.ErrInvalidSource),
		errors.Is(err, shared.ErrInvalidURL),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrPlaylistNotFound):
		return KindApplication
	default:
		return KindTransport
	}
}
