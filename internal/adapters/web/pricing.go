package web

import (
	"net/http"
	"time"

	"budget-engine/internal/app"
	"budget-engine/internal/core"
)

// apiResolvePrice handles POST /api/prices/resolve.
// Body: { item_type, item_id, company_id?, region_id?, manufacturer_id?, as_of? }
// A miss returns 200 with found=false.
func (h *Handler) apiResolvePrice(w http.ResponseWriter, r *http.Request) {
	var req app.ResolvePriceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	result, err := h.svc.ResolvePrice(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiListPricebooks handles GET /api/pricebooks?type=MATERIAL|LABOR.
func (h *Handler) apiListPricebooks(w http.ResponseWriter, r *http.Request) {
	var typePtr *core.ItemType
	if s := r.URL.Query().Get("type"); s != "" {
		t, err := core.ParseItemType(s)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		typePtr = &t
	}
	books, err := h.svc.ListPricebooks(r.Context(), typePtr)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if books == nil {
		books = []core.Pricebook{}
	}
	writeJSON(w, books)
}

// apiCreatePricebook handles POST /api/pricebooks.
func (h *Handler) apiCreatePricebook(w http.ResponseWriter, r *http.Request) {
	var in core.PricebookInput
	if !decodeJSON(w, r, &in) {
		return
	}
	pb, err := h.svc.CreatePricebook(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, pb)
}

// apiImportPricebooks handles POST /api/pricebooks/import with a PricebookImport document.
func (h *Handler) apiImportPricebooks(w http.ResponseWriter, r *http.Request) {
	var doc app.PricebookImport
	if !decodeJSON(w, r, &doc) {
		return
	}
	result, err := h.svc.ImportPricebooks(r.Context(), doc)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, result)
}

// apiAddPriceEntry handles POST /api/pricebooks/{id}/entries.
func (h *Handler) apiAddPriceEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var in core.PriceEntryInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.PricebookID = id
	entry, err := h.svc.AddPriceEntry(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeCreated(w, entry)
}

// apiSetPricebookActive handles PUT /api/pricebooks/{id}/active. Body: { active }
func (h *Handler) apiSetPricebookActive(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var body struct {
		Active *bool `json:"active"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Active == nil {
		writeError(w, r, "active is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	if err := h.svc.SetPricebookActive(r.Context(), id, *body.Active); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiSetPricebookValidity handles PUT /api/pricebooks/{id}/validity. Body: { valid_from, valid_to }
// An omitted or null bound leaves that side of the window open.
func (h *Handler) apiSetPricebookValidity(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var body struct {
		ValidFrom *time.Time `json:"valid_from"`
		ValidTo   *time.Time `json:"valid_to"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := h.svc.SetPricebookValidity(r.Context(), id, body.ValidFrom, body.ValidTo); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
