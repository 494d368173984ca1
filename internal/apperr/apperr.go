package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error kinds shared by the engines and the outer surfaces (HTTP, CLI).
// Package-level sentinels elsewhere wrap one of these so callers can
// classify with errors.Is without knowing every package.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrPersistence = errors.New("persistence error")
	ErrConflict    = errors.New("conflict")
)

// Validation reports missing or malformed input. It never reaches storage.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// NotFound reports a referenced entity that does not exist.
func NotFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

// Persistence wraps a storage failure. A nil err returns nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// Conflict reports a write rejected because of existing state.
func Conflict(msg string) error {
	return fmt.Errorf("%w: %s", ErrConflict, msg)
}

// HTTPStatus maps an error kind to a response status.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the human-readable message shown to callers.
// Persistence details stay in the logs.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound), errors.Is(err, ErrConflict):
		return err.Error()
	case errors.Is(err, ErrPersistence):
		return "storage unavailable, try again later"
	default:
		return "internal error"
	}
}
