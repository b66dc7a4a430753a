package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// NotFoundError marks a lookup that found nothing.
type NotFoundError struct{ message string }

func NewNotFoundError(msg string) error { return &NotFoundError{message: msg} }
func (err NotFoundError) Error() string { return err.message }

// ConflictError marks an operation rejected because of existing state
// (duplicate NISN, already-linked student, existing admin).
type ConflictError struct{ message string }

func NewConflictError(msg string) error { return &ConflictError{message: msg} }
func (err ConflictError) Error() string { return err.message }

// AuthorizationError marks a failed role check.
type AuthorizationError struct{ message string }

func NewAuthorizationError(msg string) error { return &AuthorizationError{message: msg} }
func (err AuthorizationError) Error() string { return err.message }

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

func IsConflict(err error) bool {
	_, ok := errors.Cause(err).(*ConflictError)
	return ok
}

func IsAuthorization(err error) bool {
	_, ok := errors.Cause(err).(*AuthorizationError)
	return ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
