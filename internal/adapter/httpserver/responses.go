// Package httpserver contains HTTP handlers and middleware.
//
// It exposes the REST surface of the matching service: profile management,
// match recommendations, the mentorship request lifecycle and feedback
// intake. HTTP concerns stay here; business rules live in the usecases.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fairyhunter13/mentor-match/internal/domain"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, _ *http.Request, err error, details interface{}) {
	code := http.StatusInternalServerError
	codeStr := "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrEmptyText):
		code = http.StatusBadRequest
		codeStr = "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
		codeStr = "NOT_FOUND"
	case errors.Is(err, domain.ErrDuplicateRequest):
		code = http.StatusConflict
		codeStr = "DUPLICATE_REQUEST"
	case errors.Is(err, domain.ErrCapacityExceeded):
		code = http.StatusConflict
		codeStr = "CAPACITY_EXCEEDED"
	case errors.Is(err, domain.ErrInvalidTransition):
		code = http.StatusConflict
		codeStr = "INVALID_TRANSITION"
	case errors.Is(err, domain.ErrConflict):
		code = http.StatusConflict
		codeStr = "CONFLICT"
	case errors.Is(err, domain.ErrEmbedding):
		code = http.StatusServiceUnavailable
		codeStr = "EMBEDDING_FAILED"
	case errors.Is(err, domain.ErrIndexUnavailable):
		code = http.StatusServiceUnavailable
		codeStr = "INDEX_UNAVAILABLE"
	}
	writeJSON(w, code, errorEnvelope{Error: apiError{Code: codeStr, Message: err.Error(), Details: details}})
}
