package web

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"budget-engine/internal/core"

	"github.com/go-chi/chi/v5/middleware"
)

type errorResponse struct {
	Error       string        `json:"error"`
	Code        string        `json:"code"`
	RequestID   string        `json:"request_id,omitempty"`
	OrderNumber string        `json:"order_number,omitempty"`
	Project     *core.Project `json:"project,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	writeErrorResponse(w, r, errorResponse{Error: message, Code: code}, status)
}

func writeErrorResponse(w http.ResponseWriter, r *http.Request, resp errorResponse, status int) {
	resp.RequestID = middleware.GetReqID(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeServiceError maps a service error onto an HTTP status and error code.
// Promotion failures carry what the caller needs to recover: the allocated order
// number for a failed create, the orphan project for a failed link.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		linkErr    *core.LinkError
		createErr  *core.ProjectCreateError
		seqErr     *core.SequenceError
		validErr   *core.ValidationError
		transErr   *core.InvalidTransitionError
		blockedErr *core.ActionBlockedError
	)
	resp := errorResponse{Error: err.Error()}
	status := http.StatusInternalServerError

	switch {
	case errors.As(err, &linkErr):
		resp.Code, resp.Project = "LINK_FAILED", linkErr.Project
	case errors.As(err, &createErr):
		resp.Code, resp.OrderNumber = "PROJECT_CREATE_FAILED", createErr.OrderNumber
	case errors.As(err, &seqErr):
		resp.Code, status = "SEQUENCE_UNAVAILABLE", http.StatusServiceUnavailable
	case errors.As(err, &validErr):
		resp.Code, status = "VALIDATION_ERROR", http.StatusBadRequest
	case errors.As(err, &transErr):
		resp.Code, status = "INVALID_TRANSITION", http.StatusConflict
	case errors.As(err, &blockedErr):
		resp.Code, status = "ACTION_BLOCKED", http.StatusConflict
	case errors.Is(err, core.ErrNotApproved):
		resp.Code, status = "NOT_APPROVED", http.StatusConflict
	case errors.Is(err, core.ErrAlreadyLinked):
		resp.Code, status = "ALREADY_LINKED", http.StatusConflict
	case errors.Is(err, core.ErrNotFound):
		resp.Code, status = "NOT_FOUND", http.StatusNotFound
	default:
		resp.Code = "INTERNAL_ERROR"
	}
	if status >= http.StatusInternalServerError {
		log.Printf("[%s] %s %s: %v", middleware.GetReqID(r.Context()), r.Method, r.URL.Path, err)
	}
	writeErrorResponse(w, r, resp, status)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeCreated writes a JSON response with status 201.
func writeCreated(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(v)
}
