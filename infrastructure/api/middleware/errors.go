package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/facegate/facegate/domain/embedding"
	"github.com/facegate/facegate/internal/validate"
)

// JSONAPIError represents a JSON:API error object.
type JSONAPIError struct {
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
	ID     string `json:"id,omitempty"`
}

// JSONAPIErrorResponse wraps JSON:API error objects.
type JSONAPIErrorResponse struct {
	Errors []JSONAPIError `json:"errors"`
}

// WriteError writes a JSON:API formatted error response, mapping domain
// errors to HTTP status codes.
func WriteError(w http.ResponseWriter, r *http.Request, err error, logger *slog.Logger) {
	status := http.StatusInternalServerError
	title := "Internal Server Error"

	switch {
	case errors.Is(err, embedding.ErrFaceNotFound):
		status = http.StatusBadRequest
		title = "No Face Detected"
	case errors.Is(err, validate.ErrValidation):
		status = http.StatusBadRequest
		title = "Validation Error"
	case errors.Is(err, embedding.ErrDuplicateUser):
		status = http.StatusConflict
		title = "Conflict"
	case errors.Is(err, embedding.ErrUserNotFound):
		status = http.StatusNotFound
		title = "Not Found"
	case errors.Is(err, embedding.ErrStoreUnavailable),
		errors.Is(err, embedding.ErrExtractorUnavailable):
		status = http.StatusServiceUnavailable
		title = "Service Unavailable"
	}

	correlationID := GetCorrelationID(r.Context())

	if logger != nil {
		logger.Error("request error",
			"correlation_id", correlationID,
			"status", status,
			"error", err.Error(),
			"path", r.URL.Path,
		)
	}

	resp := JSONAPIErrorResponse{
		Errors: []JSONAPIError{
			{
				Status: strconv.Itoa(status),
				Title:  title,
				Detail: err.Error(),
				ID:     correlationID,
			},
		},
	}

	w.Header().Set("Content-Type", "application/vnd.api+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteJSON writes a JSON response.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
