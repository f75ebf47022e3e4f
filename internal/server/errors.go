// Package server provides the HTTP API of the SmartBot analysis engine.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Rauan228/HackNU2/internal/smartbot"
)

// ErrEmailAlreadyExists indicates email is already registered
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrForbidden indicates the caller does not own the requested resource.
type ErrForbidden struct {
	Resource string
}

func (e *ErrForbidden) Error() string {
	return fmt.Sprintf("access denied to %s", e.Resource)
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		emailTaken  *ErrEmailAlreadyExists
		badCreds    *ErrInvalidCredentials
		forbidden   *ErrForbidden
		validation  *ErrValidation
		notFound    *smartbot.NotFoundError
		noSession   *smartbot.SessionNotFoundError
		missingData *smartbot.MissingDataError
		closed      *smartbot.SessionClosedError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &badCreds):
		return http.StatusUnauthorized
	case errors.As(err, &forbidden):
		return http.StatusForbidden
	case errors.As(err, &notFound), errors.As(err, &noSession):
		return http.StatusNotFound
	case errors.As(err, &emailTaken), errors.As(err, &closed), errors.Is(err, smartbot.ErrConcurrentReply):
		return http.StatusConflict
	case errors.As(err, &missingData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// errorCode is the machine-readable code sent next to the message.
func errorCode(err error) string {
	var (
		missingData *smartbot.MissingDataError
		closed      *smartbot.SessionClosedError
	)
	switch {
	case errors.As(err, &missingData):
		return "missing_data"
	case errors.As(err, &closed):
		return "session_closed"
	case errors.Is(err, smartbot.ErrConcurrentReply):
		return "concurrent_reply"
	}
	switch HTTPStatus(err) {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	}
	return "internal_error"
}
