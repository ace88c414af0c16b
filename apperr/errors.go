// Package apperr holds the error types shared by services and handlers.
// Handlers translate them to HTTP status codes with Status.
package apperr

import (
	"errors"
	"net/http"
)

// ValidationError is a client input problem. Field names the offending
// form field for upload errors; Code carries a machine readable reason.
type ValidationError struct {
	Message string
	Field   string
	Code    string
}

func (e *ValidationError) Error() string { return e.Message }

// DuplicateError is returned when an owner already has a listing with the
// same title.
type DuplicateError struct {
	Message    string
	ExistingID string
}

func (e *DuplicateError) Error() string { return e.Message }

// ConfigError means the requester's own record is missing something the
// operation depends on, e.g. a district for district-scoped queries.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func Validation(msg string) error { return &ValidationError{Message: msg} }

func FieldValidation(msg, field, code string) error {
	return &ValidationError{Message: msg, Field: field, Code: code}
}

func Auth(msg string) error { return &AuthError{Message: msg} }

func NotFound(msg string) error { return &NotFoundError{Message: msg} }

// Status maps err to the HTTP status the API answers with.
func Status(err error) int {
	var (
		ve *ValidationError
		de *DuplicateError
		ce *ConfigError
		ae *AuthError
		ne *NotFoundError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &ve), errors.As(err, &de), errors.As(err, &ce):
		return http.StatusBadRequest
	case errors.As(err, &ae):
		return http.StatusUnauthorized
	case errors.As(err, &ne):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
