// Package httputil writes JSON responses and maps domain error codes to HTTP statuses.
package httputil

import (
	"encoding/json"
	"net/http"

	dErrors "siwarga/pkg/domain-errors"
)

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeNotFound:           http.StatusNotFound,
	dErrors.CodeForbidden:          http.StatusForbidden,
	dErrors.CodeUnauthorized:       http.StatusUnauthorized,
	dErrors.CodeInvalidTransition:  http.StatusConflict,
	dErrors.CodeValidation:         http.StatusBadRequest,
	dErrors.CodeConflict:           http.StatusConflict,
	dErrors.CodeBadRequest:         http.StatusBadRequest,
	dErrors.CodeInvalidInput:       http.StatusBadRequest,
	dErrors.CodeInvariantViolation: http.StatusInternalServerError,
	dErrors.CodeTimeout:            http.StatusGatewayTimeout,
	dErrors.CodeInternal:           http.StatusInternalServerError,
}

// StatusFor returns the HTTP status for a domain error.
func StatusFor(err error) int {
	if status, ok := statusByCode[dErrors.CodeOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteJSON encodes body as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError writes {"error": code, "error_description": message}. Server-side
// failures omit the description so internals never leak to clients.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	body := map[string]string{"error": string(dErrors.CodeOf(err))}
	if status < http.StatusInternalServerError {
		body["error_description"] = dErrors.Message(err)
	}
	WriteJSON(w, status, body)
}
