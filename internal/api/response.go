package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/gyaneshwarpardhi/verdict/internal/condition"
	"github.com/gyaneshwarpardhi/verdict/internal/engine"
	"github.com/gyaneshwarpardhi/verdict/internal/rule"
	"github.com/gyaneshwarpardhi/verdict/internal/store"
)

// ErrorCode is a machine-readable error classification.
type ErrorCode string

const (
	CodeBadRequest        ErrorCode = "BAD_REQUEST"
	CodeInvalidJSON       ErrorCode = "INVALID_JSON"
	CodeValidation        ErrorCode = "VALIDATION_ERROR"
	CodeInvalidExpression ErrorCode = "INVALID_EXPRESSION"
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeRateLimited       ErrorCode = "RATE_LIMITED"
	CodeRequestTooLarge   ErrorCode = "REQUEST_TOO_LARGE"
	CodeUnavailable       ErrorCode = "UNAVAILABLE"
	CodeInternal          ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse is the standard error envelope.
type ErrorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Code      ErrorCode         `json:"code"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code ErrorCode, msg string) {
	writeErrorFields(w, r, status, code, msg, nil)
}

func writeErrorFields(w http.ResponseWriter, r *http.Request, status int, code ErrorCode, msg string, fields map[string]string) {
	writeJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   msg,
		Code:      code,
		Fields:    fields,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// writeDomainError maps errors from the service and engine layers onto
// HTTP statuses.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var se *condition.SyntaxError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, r, http.StatusNotFound, CodeNotFound, err.Error())
	case errors.As(err, &se):
		writeErrorFields(w, r, http.StatusBadRequest, CodeInvalidExpression, err.Error(), syntaxFields(se))
	case errors.Is(err, rule.ErrInvalidRule):
		writeError(w, r, http.StatusBadRequest, CodeValidation, err.Error())
	case errors.Is(err, engine.ErrNoRules), errors.Is(err, engine.ErrInvalidRuleID):
		writeError(w, r, http.StatusBadRequest, CodeBadRequest, err.Error())
	case errors.Is(err, engine.ErrQueueFull), errors.Is(err, engine.ErrShutdown):
		writeError(w, r, http.StatusServiceUnavailable, CodeUnavailable, err.Error())
	case errors.As(err, &tooLarge):
		writeError(w, r, http.StatusRequestEntityTooLarge, CodeRequestTooLarge, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, CodeInternal, err.Error())
	}
}

func syntaxFields(se *condition.SyntaxError) map[string]string {
	f := map[string]string{"position": strconv.Itoa(se.Pos)}
	if se.Context != "" {
		f["context"] = se.Context
	}
	return f
}
