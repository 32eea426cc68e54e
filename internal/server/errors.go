package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/company-directory/internal/pipeline"
	"github.com/jonathan/company-directory/internal/store"
)

// ErrAuthNotConfigured is returned by the token endpoint when no admin
// password hash is configured.
var ErrAuthNotConfigured = errors.New("admin authentication is not configured")

// ErrInvalidCredentials indicates a wrong admin password
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid password"
}

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ErrNotFound indicates a missing resource
type ErrNotFound struct {
	Resource string
	Key      string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.Key)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var validation *ErrValidation
	var credentials *ErrInvalidCredentials
	var notFound *ErrNotFound

	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &credentials):
		return http.StatusUnauthorized
	case errors.As(err, &notFound), errors.Is(err, store.ErrNoBackup):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, ErrAuthNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode returns a stable machine-readable code for an error.
func ErrorCode(err error) string {
	var validation *ErrValidation
	var credentials *ErrInvalidCredentials
	var notFound *ErrNotFound

	switch {
	case errors.As(err, &validation):
		return "validation_error"
	case errors.As(err, &credentials):
		return "invalid_credentials"
	case errors.Is(err, store.ErrNoBackup):
		return "no_backup"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.Is(err, pipeline.ErrRunInProgress):
		return "run_in_progress"
	case errors.Is(err, ErrAuthNotConfigured):
		return "auth_not_configured"
	case errors.Is(err, store.ErrCorrupt):
		return "data_corruption"
	default:
		return "internal_error"
	}
}
