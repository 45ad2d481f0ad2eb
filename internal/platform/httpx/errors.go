// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/frescapp/backoffice/internal/shared"
)

// StatusFor maps a domain error to its HTTP status and problem title.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest, "Validation Failed"
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, shared.ErrDuplicateCloseAttempt), errors.Is(err, shared.ErrAlreadyExists):
		return http.StatusConflict, "Duplicate"
	case errors.Is(err, shared.ErrCloseInProgress):
		return http.StatusConflict, "In Progress"
	case errors.Is(err, shared.ErrCostDataMissing):
		return http.StatusUnprocessableEntity, "Cost Data Missing"
	case errors.Is(err, shared.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "Storage Unavailable"
	case errors.Is(err, shared.ErrExternalCollaborator):
		return http.StatusBadGateway, "Upstream Failure"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	status, title := StatusFor(err)
	detail := err.Error()
	if status == http.StatusServiceUnavailable || status == http.StatusInternalServerError {
		detail = ""
	}
	Problem(w, status, title, detail)
}
