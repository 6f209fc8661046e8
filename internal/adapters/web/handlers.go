package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"budget-engine/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	router chi.Router
}

// Options configures NewHandler. Metrics may be nil, in which case /metrics is not served.
type Options struct {
	AllowedOrigins string
	MaxBodyBytes   int64
	Metrics        http.Handler
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, opts Options) http.Handler {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	h := &Handler{svc: svc}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(opts.AllowedOrigins))

	r.Get("/api/health", h.health)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequestSize(opts.MaxBodyBytes))

		// ── Pricing ───────────────────────────────────────────────────────────
		r.Post("/api/prices/resolve", h.apiResolvePrice)
		r.Get("/api/pricebooks", h.apiListPricebooks)
		r.Post("/api/pricebooks", h.apiCreatePricebook)
		r.Post("/api/pricebooks/import", h.apiImportPricebooks)
		r.Post("/api/pricebooks/{id}/entries", h.apiAddPriceEntry)
		r.Put("/api/pricebooks/{id}/active", h.apiSetPricebookActive)
		r.Put("/api/pricebooks/{id}/validity", h.apiSetPricebookValidity)

		// ── Lifecycle ─────────────────────────────────────────────────────────
		r.Get("/api/permissions/{status}", h.apiStatusPermissions)
		r.Post("/api/budgets", h.apiCreateBudget)
		r.Get("/api/budgets/{id}", h.apiGetBudget)
		r.Post("/api/budgets/{id}/revisions", h.apiCreateRevision)
		r.Get("/api/revisions/{id}", h.apiGetRevision)
		r.Get("/api/revisions/{id}/permissions", h.apiRevisionPermissions)
		r.Post("/api/revisions/{id}/transition", h.apiTransitionRevision)
		r.Post("/api/revisions/{id}/actions/{action}", h.apiPerformAction)

		// ── Markup and promotion ──────────────────────────────────────────────
		r.Get("/api/revisions/{id}/markup", h.apiGetMarkup)
		r.Put("/api/revisions/{id}/markup", h.apiUpsertMarkup)
		r.Post("/api/revisions/{id}/summary", h.apiComputeSummary)
		r.Post("/api/revisions/{id}/promote", h.apiPromote)
		r.Post("/api/revisions/{id}/relink", h.apiRetryLink)
	})

	h.router = r
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// idParam parses the {id} URL parameter, writing a 400 when it is not a positive integer.
func idParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid id", "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by middleware.RequestSize; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
