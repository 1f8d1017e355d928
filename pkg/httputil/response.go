package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/utafrali/videohub/pkg/errors"
	"github.com/utafrali/videohub/pkg/logger"
	"github.com/utafrali/videohub/pkg/validator"
)

// Response is the success envelope returned by every endpoint.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorResponse is the failure envelope. Data is always null.
type ErrorResponse struct {
	StatusCode int      `json:"statusCode"`
	Data       any      `json:"data"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
	RequestID  string   `json:"requestId,omitempty"`
}

// NewResponse builds an envelope whose success flag follows the status code.
func NewResponse(status int, data any, message string) Response {
	if message == "" {
		message = "Success"
	}
	return Response{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	}
}

// WriteJSON writes v as JSON with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// Write writes a success envelope.
func Write(w http.ResponseWriter, status int, data any, message string) {
	WriteJSON(w, status, NewResponse(status, data, message))
}

// WriteError renders err as a failure envelope. AppErrors keep their status and
// message; anything else becomes a generic 500 and is logged with the
// request-scoped logger when available.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}

	resp := ErrorResponse{
		StatusCode: http.StatusInternalServerError,
		Message:    "an internal error occurred",
		Errors:     []string{},
		RequestID:  logger.CorrelationIDFromContext(r.Context()),
	}

	var appErr *apperrors.AppError
	switch {
	case errors.As(err, &appErr):
		resp.StatusCode = appErr.Status
		resp.Message = appErr.Message
		if len(appErr.Details) > 0 {
			resp.Errors = appErr.Details
		}
	default:
		resp.StatusCode = apperrors.HTTPStatus(err)
		if resp.StatusCode != http.StatusInternalServerError {
			resp.Message = http.StatusText(resp.StatusCode)
		}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, resp.StatusCode, resp)
}

// WriteValidationError renders a 400 envelope. Field-level failures from the
// validator package are listed in errors.
func WriteValidationError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{
		StatusCode: http.StatusBadRequest,
		Message:    err.Error(),
		Errors:     []string{},
	}

	var valErr *validator.ValidationError
	if errors.As(err, &valErr) {
		resp.Message = "request validation failed"
		resp.Errors = valErr.Messages()
	}

	WriteJSON(w, http.StatusBadRequest, resp)
}
