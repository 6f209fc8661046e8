package web

import (
	"net/http"

	"budget-engine/internal/app"
	"budget-engine/internal/core"

	"github.com/go-chi/chi/v5"
)

// apiStatusPermissions handles GET /api/permissions/{status}.
func (h *Handler) apiStatusPermissions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.StatusPermissions(core.RevisionStatus(chi.URLParam(r, "status"))))
}

// apiCreateBudget handles POST /api/budgets.
func (h *Handler) apiCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req app.CreateBudgetRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.WorkName == "" {
		writeError(w, r, "work_name is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.CreateBudget(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, result)
}

// apiGetBudget handles GET /api/budgets/{id}.
func (h *Handler) apiGetBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetBudget(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCreateRevision handles POST /api/budgets/{id}/revisions. Body: { from_revision_id? }
func (h *Handler) apiCreateRevision(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var body struct {
		FromRevisionID *int `json:"from_revision_id"`
	}
	if r.ContentLength != 0 && !decodeJSON(w, r, &body) {
		return
	}
	result, err := h.svc.CreateRevision(r.Context(), id, body.FromRevisionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, result)
}

// apiGetRevision handles GET /api/revisions/{id}.
func (h *Handler) apiGetRevision(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetRevision(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiRevisionPermissions handles GET /api/revisions/{id}/permissions.
func (h *Handler) apiRevisionPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.RevisionPermissions(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiTransitionRevision handles POST /api/revisions/{id}/transition. Body: { status }
func (h *Handler) apiTransitionRevision(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	target, err := core.ParseRevisionStatus(body.Status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	result, err := h.svc.TransitionRevision(r.Context(), id, target)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiPerformAction handles POST /api/revisions/{id}/actions/{action}.
func (h *Handler) apiPerformAction(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	action := core.Action(chi.URLParam(r, "action"))
	result, err := h.svc.PerformAction(r.Context(), id, action)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiGetMarkup handles GET /api/revisions/{id}/markup.
func (h *Handler) apiGetMarkup(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetMarkup(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiUpsertMarkup handles PUT /api/revisions/{id}/markup. Body: { markup_pct, allow_per_wbs }
func (h *Handler) apiUpsertMarkup(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in core.MarkupInput
	if !decodeJSON(w, r, &in) {
		return
	}
	result, err := h.svc.UpsertMarkup(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiComputeSummary handles POST /api/revisions/{id}/summary. Body: { as_of?, lines }
func (h *Handler) apiComputeSummary(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req app.SummaryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.RevisionID = id
	result, err := h.svc.ComputeSummary(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiPromote handles POST /api/revisions/{id}/promote. Body: { as_of?, lines? }
func (h *Handler) apiPromote(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req app.PromoteRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	req.RevisionID = id
	result, err := h.svc.Promote(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, result)
}

// apiRetryLink handles POST /api/revisions/{id}/relink. Body: { project_id }
func (h *Handler) apiRetryLink(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var body struct {
		ProjectID int `json:"project_id"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.ProjectID <= 0 {
		writeError(w, r, "project_id is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.RetryLink(r.Context(), id, body.ProjectID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
