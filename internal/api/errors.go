package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/edugate-core/internal/auth"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Message string         `json:"message"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

// Error codes not produced by the auth pipeline.
const (
	CodeBadRequest      = "BAD_REQUEST"
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL_ERROR"
	CodeForbiddenOrigin = "ORIGIN_NOT_ALLOWED"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, CodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, CodeNotFound, message)
}

// writeInternalError writes a 500 error response. message must not carry internal detail.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, CodeInternal, message)
}

// writeRejection maps a pipeline denial to 401 or 403. Errors that are not
// rejections become 500.
func writeRejection(w http.ResponseWriter, err error) {
	rej, ok := auth.AsRejection(err)
	if !ok {
		writeInternalError(w, "internal server error")
		return
	}

	status := http.StatusForbidden
	if errors.Is(rej, auth.ErrUnauthenticated) {
		status = http.StatusUnauthorized
	}
	writeJSON(w, status, ErrorResponse{
		Message: rej.Message(),
		Code:    rej.Code(),
		Details: rej.Details(),
	})
}
