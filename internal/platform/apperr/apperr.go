// Package apperr classifies domain errors so the HTTP layer can map them to
// status codes without knowing each domain's sentinel values.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	Internal Kind = iota
	NotFound
	SlotTaken
	SlotInPast
	DoctorUnavailable
	AlreadyCancelled
	AlreadyCompleted
	Conflict
	Forbidden
	Unauthorized
	Busy
	Validation
)

var kindNames = map[Kind]string{
	Internal:          "internal",
	NotFound:          "not_found",
	SlotTaken:         "slot_taken",
	SlotInPast:        "slot_in_past",
	DoctorUnavailable: "doctor_unavailable",
	AlreadyCancelled:  "already_cancelled",
	AlreadyCompleted:  "already_completed",
	Conflict:          "conflict",
	Forbidden:         "forbidden",
	Unauthorized:      "unauthorized",
	Busy:              "busy",
	Validation:        "validation",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "unknown"
}

// HTTPStatus maps a kind to the response status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case NotFound:
		return http.StatusNotFound
	case SlotTaken, DoctorUnavailable, AlreadyCancelled, AlreadyCompleted, Conflict:
		return http.StatusConflict
	case SlotInPast:
		return http.StatusUnprocessableEntity
	case Forbidden:
		return http.StatusForbidden
	case Unauthorized:
		return http.StatusUnauthorized
	case Busy:
		return http.StatusServiceUnavailable
	case Validation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified error. Msg is safe to show to clients.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// New returns a classified error, typically stored in a package-level sentinel.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap classifies err under kind with a client-facing message.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Invalid is shorthand for a Validation error.
func Invalid(msg string) *Error {
	return &Error{Kind: Validation, Msg: msg}
}

// KindOf returns the kind of the first *Error in err's chain, or Internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// Message returns the client-facing message of the first *Error in err's chain.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Msg
	}
	return "internal server error"
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
