package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/your-org/todostack/internal/domain"
	"github.com/your-org/todostack/internal/middleware"
)

const maxBodyBytes = 1 << 20

type successEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// deleted is the payload of successful deletions
type deleted struct {
	Deleted bool `json:"deleted"`
}

// responder writes the {success, data|error} envelope
type responder struct {
	logger *zap.Logger
}

// respondJSON sends a success envelope
func (h responder) respondJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	h.write(w, r, status, successEnvelope{Success: true, Data: data})
}

// respondError sends an error envelope
func (h responder) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.write(w, r, status, errorEnvelope{Success: false, Error: message})
}

// respondErr maps err to a status code. Only messages of domain errors are
// exposed; everything else becomes a generic 500.
func (h responder) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		h.respondError(w, r, status, "Internal server error")
		return
	}
	h.respondError(w, r, status, domain.Message(err, http.StatusText(status)))
}

func (h responder) write(w http.ResponseWriter, r *http.Request, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		h.logger.Error("failed to encode response",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Error(err),
		)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrConflict):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return domain.NewError(domain.ErrValidation, "Invalid request body")
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return domain.NewError(domain.ErrValidation, "Invalid JSON body")
	}
	return nil
}

// required returns the "Missing required field" error for the first
// absent or blank field
func required(fields ...field) error {
	for _, f := range fields {
		if f.value == nil || strings.TrimSpace(*f.value) == "" {
			return domain.NewError(domain.ErrValidation, "Missing required field: %s", f.name)
		}
	}
	return nil
}

type field struct {
	name  string
	value *string
}
