package apperror

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

var (
	// ErrConfiguration means a required credential or setting is missing
	ErrConfiguration = errors.New("configuration error")
	// ErrUpstreamAPI means Slack (or another upstream) failed or answered not-ok
	ErrUpstreamAPI = errors.New("upstream api error")
	// ErrNotFound means an unknown team or installation
	ErrNotFound = errors.New("not found")
	// ErrValidation means a required parameter was missing or malformed
	ErrValidation = errors.New("validation error")
	// ErrPersistence means the store failed
	ErrPersistence = errors.New("persistence error")
)

// ErrorResponse is the JSON body written for API failures
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// StatusCode maps an error to the HTTP status it is surfaced as
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUpstreamAPI):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes an ErrorResponse with the status derived from err
func WriteJSON(w http.ResponseWriter, err error, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusCode(err))
	if encErr := json.NewEncoder(w).Encode(ErrorResponse{Error: code, Message: message}); encErr != nil {
		slog.Error("Failed to encode error response", "error", encErr)
	}
}
