package domain

import (
	"errors"
	"net/http"
)

// HTTPError is implemented by errors that know their HTTP status.
type HTTPError interface {
	error
	StatusCode() int
}

// Sentinel errors, matched with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

type (
	// NotFoundError indicates a resource was not found, or was not in the
	// deletion state the operation expected.
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input. Issues maps field names to
	// problems when the failure came from struct validation.
	ValidationError struct {
		Message string
		Issues  map[string]string
	}

	// ForbiddenError indicates the caller lacks ownership, membership or role.
	ForbiddenError struct {
		Message string
	}

	// ConflictError indicates a unique value is already taken.
	ConflictError struct {
		Message string
	}

	// GoneError indicates a resource that existed but can no longer be used,
	// such as an expired or exhausted invite.
	GoneError struct {
		Message string
	}

	// StaleError is returned when an optimistic-lock check fails. Latest is
	// the current stored row.
	StaleError struct {
		Message string
		Latest  any
	}
)

func (e *NotFoundError) Error() string   { return e.Message }
func (e *ValidationError) Error() string { return e.Message }
func (e *ForbiddenError) Error() string  { return e.Message }
func (e *ConflictError) Error() string   { return e.Message }
func (e *StaleError) Error() string      { return e.Message }
func (e *GoneError) Error() string       { return e.Message }

func (e *NotFoundError) StatusCode() int   { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }
func (e *ForbiddenError) StatusCode() int  { return http.StatusForbidden }
func (e *ConflictError) StatusCode() int   { return http.StatusConflict }
func (e *StaleError) StatusCode() int      { return http.StatusConflict }
func (e *GoneError) StatusCode() int       { return http.StatusGone }

func (e *NotFoundError) Is(target error) bool   { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
func (e *ForbiddenError) Is(target error) bool  { return target == ErrForbidden }
func (e *ConflictError) Is(target error) bool   { return target == ErrConflict }
func (e *StaleError) Is(target error) bool      { return target == ErrConflict }
func (e *GoneError) Is(target error) bool       { return target == ErrNotFound }

// ErrDuplicateBoardItem is returned when an item is already on a board.
var ErrDuplicateBoardItem = &ValidationError{Message: "Item already exists in board"}

// NotFound builds a NotFoundError with the given message.
func NotFound(message string) error {
	return &NotFoundError{Message: message}
}

// Invalid builds a ValidationError with the given message.
func Invalid(message string) error {
	return &ValidationError{Message: message}
}

// Forbidden builds a ForbiddenError with the given message.
func Forbidden(message string) error {
	return &ForbiddenError{Message: message}
}

// Gone builds a GoneError with the given message.
func Gone(message string) error {
	return &GoneError{Message: message}
}

// Conflict builds a ConflictError with the given message.
func Conflict(message string) error {
	return &ConflictError{Message: message}
}
