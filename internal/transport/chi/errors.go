package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kailas-cloud/claimsearch/internal/domain"
)

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes.
const (
	ErrorCodeBadRequest         ErrorCode = "bad_request"
	ErrorCodeInvalidQuery       ErrorCode = "invalid_query"
	ErrorCodeInvalidFilter      ErrorCode = "invalid_filter"
	ErrorCodeUnknownField       ErrorCode = "unknown_field"
	ErrorCodeDatasetUnavailable ErrorCode = "dataset_unavailable"
	ErrorCodeUnauthorized       ErrorCode = "unauthorized"
	ErrorCodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		// ErrUnknownField is checked before ErrInvalidFilter because filter
		// construction wraps both.
		sentinelHandler(domain.ErrUnknownField, http.StatusBadRequest, ErrorCodeUnknownField),
		sentinelHandler(domain.ErrInvalidFilter, http.StatusBadRequest, ErrorCodeInvalidFilter),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, ErrorCodeInvalidQuery),
		sentinelHandler(domain.ErrUnsupportedFormat, http.StatusBadRequest, ErrorCodeBadRequest),
		sentinelHandler(domain.ErrDatasetUnavailable, http.StatusServiceUnavailable, ErrorCodeDatasetUnavailable),
	}
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// safeDomainMessage returns a client-safe message for err. Validation errors
// carry user input only and are returned whole; anything else is reduced to
// its sentinel.
func safeDomainMessage(err error) string {
	for _, s := range []error{domain.ErrUnknownField, domain.ErrInvalidFilter, domain.ErrInvalidQuery} {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	for _, s := range []error{domain.ErrDatasetUnavailable, domain.ErrUnsupportedFormat} {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
