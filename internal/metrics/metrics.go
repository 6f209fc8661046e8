package metrics

import (
	"net/http"

	"budget-engine/internal/core"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder implements the core observer interfaces on top of Prometheus counters.
type Recorder struct {
	registry    *prometheus.Registry
	resolutions *prometheus.CounterVec
	transitions *prometheus.CounterVec
	promotions  *prometheus.CounterVec
}

var (
	_ core.ResolutionObserver = (*Recorder)(nil)
	_ core.TransitionObserver = (*Recorder)(nil)
	_ core.PromotionObserver  = (*Recorder)(nil)
)

// New registers the counters on a fresh registry.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "budget_price_resolutions_total",
			Help: "Price resolutions by item type and origin (origin=none for misses).",
		}, []string{"item_type", "origin"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "budget_revision_transitions_total",
			Help: "Committed revision status transitions.",
		}, []string{"from", "to"}),
		promotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "budget_project_promotions_total",
			Help: "Project promotion attempts by outcome.",
		}, []string{"outcome"}),
	}
	r.registry.MustRegister(r.resolutions, r.transitions, r.promotions)
	return r
}

func (r *Recorder) ObserveResolution(item core.ItemRef, origin core.PriceOrigin, found bool) {
	label := "none"
	if found {
		label = origin.String()
	}
	r.resolutions.WithLabelValues(string(item.Type), label).Inc()
}

func (r *Recorder) ObserveTransition(from, to core.RevisionStatus) {
	r.transitions.WithLabelValues(string(from), string(to)).Inc()
}

func (r *Recorder) ObservePromotion(outcome string) {
	r.promotions.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
