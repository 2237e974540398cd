// Package apperrors defines the error taxonomy shared by the engines and the
// HTTP layer. Business failures are raised as *Error close to where they are
// detected and translated into the JSON envelope at the boundary.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

type Type string

const (
	TypeValidation     Type = "ValidationError"
	TypeAuthentication Type = "AuthenticationError"
	TypeAuthorization  Type = "AuthorizationError"
	TypeNotFound       Type = "ResourceNotFoundError"
	TypeConflict       Type = "ConflictError"
	TypeDatabase       Type = "DatabaseError"
)

type Error struct {
	Type    Type
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...any) *Error {
	return &Error{Type: TypeValidation, Message: fmt.Sprintf(format, args...), Status: http.StatusBadRequest}
}

func Authentication(message string) *Error {
	return &Error{Type: TypeAuthentication, Message: message, Status: http.StatusUnauthorized}
}

func Authorization(message string) *Error {
	return &Error{Type: TypeAuthorization, Message: message, Status: http.StatusForbidden}
}

func NotFound(message string) *Error {
	return &Error{Type: TypeNotFound, Message: message, Status: http.StatusNotFound}
}

func Conflict(message string) *Error {
	return &Error{Type: TypeConflict, Message: message, Status: http.StatusConflict}
}

// Database wraps a persistence failure. The cause is kept for logging and is
// only exposed to clients in development mode.
func Database(message string, err error) *Error {
	return &Error{Type: TypeDatabase, Message: message, Status: http.StatusInternalServerError, Err: err}
}

// From returns the *Error in err's chain, or a generic DatabaseError wrapping
// err when there is none.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Database("Internal server error", err)
}

func Is(err error, t Type) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Type == t
}

// Body is the JSON error envelope.
type Body struct {
	Error BodyError `json:"error"`
}

type BodyError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Type    Type   `json:"type"`
}

// Envelope renders err for a client. With debug false, server errors carry
// only their generic message.
func Envelope(err error, debug bool) (int, Body) {
	appErr := From(err)
	msg := appErr.Message
	if debug && appErr.Err != nil {
		msg = fmt.Sprintf("%s: %v", appErr.Message, appErr.Err)
	}
	return appErr.Status, Body{Error: BodyError{Message: msg, Code: appErr.Status, Type: appErr.Type}}
}
