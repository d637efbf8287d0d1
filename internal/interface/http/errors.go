package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/integration-hub/student-hub/internal/domain/quota"
	"github.com/integration-hub/student-hub/internal/domain/shared"
	"github.com/integration-hub/student-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE TYPES
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse represents a standard JSON response.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      interface{}   `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

const headerQuotaRemaining = "X-Quota-Remaining"

// ══════════════════════════════════════════════════════════════════════════════
// WRITERS
// ══════════════════════════════════════════════════════════════════════════════

// writeJSON writes a success envelope.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	response := JSONResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
		Meta: &ResponseMeta{
			Timestamp: time.Now().UTC(),
			Version:   "v1",
		},
		RequestID: getRequestID(r.Context()),
	}

	_ = json.NewEncoder(w).Encode(response)
}

// writeJSONError writes an error envelope.
func writeJSONError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	response := JSONResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		RequestID: getRequestID(r.Context()),
	}

	_ = json.NewEncoder(w).Encode(response)
}

// writeFlatError writes the {"error": code} body used by the coach endpoints.
func writeFlatError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}

// setQuotaHeader publishes the remaining free messages; -1 means unlimited.
func setQuotaHeader(w http.ResponseWriter, s quota.Status) {
	w.Header().Set(headerQuotaRemaining, strconv.Itoa(s.WireRemaining()))
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// statusFor maps an error kind to an HTTP status.
func statusFor(err error) int {
	switch {
	case shared.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, shared.ErrQuotaReached),
		errors.Is(err, shared.ErrLocked),
		errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrConflict),
		errors.Is(err, shared.ErrAlreadyExists),
		errors.Is(err, shared.ErrStateTransition),
		errors.Is(err, shared.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, shared.ErrExpired):
		return http.StatusGone
	case shared.IsNotFound(err):
		return http.StatusNotFound
	case shared.IsExternalService(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeDomainError maps err to a status and an error envelope. Upstream and
// unexpected failures are logged with their detail; the client only sees the
// generic message.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		log.Debug("request cancelled by client", logger.Err(err))
		return
	}

	status := statusFor(err)
	switch status {
	case http.StatusBadGateway:
		log.Error("upstream failure", logger.Err(err), logger.String("path", r.URL.Path))
		writeJSONError(w, r, status, shared.CodeOf(err, "upstream_error"),
			shared.MessageOf(err, "An upstream service is temporarily unavailable"))
	case http.StatusInternalServerError:
		log.Error("request failed", logger.Err(err), logger.String("path", r.URL.Path))
		writeJSONError(w, r, status, "internal_error", "An unexpected error occurred")
	default:
		writeJSONError(w, r, status, shared.CodeOf(err, codeForStatus(status)), shared.MessageOf(err, err.Error()))
	}
}

// codeForStatus is the fallback code for errors that are not DomainErrors.
func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_input"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusGone:
		return "expired"
	case http.StatusTooManyRequests:
		return "rate_limit_exceeded"
	default:
		return "internal_error"
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST DECODING
// ══════════════════════════════════════════════════════════════════════════════

// errBadBody marks a malformed JSON body.
var errBadBody = shared.NewDomainError("http", "Decode", shared.ErrInvalidInput, "invalid_input", "request body is not valid JSON")

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errBadBody.Wrap(fmt.Errorf("decode body: %w", err))
	}
	return nil
}
