package helpers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"eventregistration/internal/domain"
)

// Error codes for API error responses. Use these with WriteJSONError.
const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodeForbidden          = "forbidden"
	ErrCodeNotFound           = "not_found"
	ErrCodeEventNotFound      = "event_not_found"
	ErrCodeAlreadyCancelled   = "already_cancelled"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeInternalError      = "internal_error"
)

// APIError is the error object in the error response envelope.
// swagger:model APIError
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIResponse is the envelope for error responses: Data is nil and Error is set.
// swagger:model APIResponse
type APIResponse struct {
	Data  any       `json:"data"`
	Error *APIError `json:"error"`
}

// WriteJSON sets Content-Type to application/json, writes statusCode, and encodes v as is.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteJSONError sets Content-Type to application/json, writes statusCode, and
// encodes an APIResponse with data nil and the given error code and message.
func WriteJSONError(w http.ResponseWriter, statusCode int, code, message string) {
	WriteJSON(w, statusCode, APIResponse{
		Data:  nil,
		Error: &APIError{Code: code, Message: message},
	})
}

// errorMapping is the status and code for each domain.ErrorKind.
var errorMapping = map[domain.ErrorKind]struct {
	status int
	code   string
}{
	domain.KindValidation:         {http.StatusBadRequest, ErrCodeBadRequest},
	domain.KindEventNotFound:      {http.StatusBadRequest, ErrCodeEventNotFound},
	domain.KindServiceUnavailable: {http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
	domain.KindUnauthorized:       {http.StatusForbidden, ErrCodeForbidden},
	domain.KindAlreadyCancelled:   {http.StatusBadRequest, ErrCodeAlreadyCancelled},
	domain.KindNotFound:           {http.StatusNotFound, ErrCodeNotFound},
}

// StatusForKind returns the HTTP status and error code for a domain error kind.
func StatusForKind(kind domain.ErrorKind) (int, string) {
	if m, ok := errorMapping[kind]; ok {
		return m.status, m.code
	}
	return http.StatusInternalServerError, ErrCodeInternalError
}

// WriteServiceError maps err to a status by its kind. Domain failures carry their
// reason to the client; anything else is logged and answered with a generic message.
func WriteServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := domain.KindOf(err)
	status, code := StatusForKind(kind)
	if kind == domain.KindInternal {
		logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "method", r.Method, "err", err)
		WriteJSONError(w, status, code, "an unexpected error occurred")
		return
	}
	if kind == domain.KindServiceUnavailable {
		logger.WarnContext(r.Context(), "dependency unavailable", "path", r.URL.Path, "method", r.Method, "err", err)
	}
	WriteJSONError(w, status, code, reason(err))
}

func reason(err error) string {
	var de *domain.Error
	if errors.As(err, &de) && de.Reason != "" {
		return de.Reason
	}
	return err.Error()
}
