package app

import (
	"budget-engine/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Observer receives every outcome the core services report. metrics.Recorder satisfies it.
type Observer interface {
	core.ResolutionObserver
	core.TransitionObserver
	core.PromotionObserver
}

// NewFromPool wires the pgx-backed core services into an ApplicationService.
// obs may be nil.
func NewFromPool(pool *pgxpool.Pool, orderPrefix string, obs Observer) ApplicationService {
	var (
		resObs   core.ResolutionObserver
		transObs core.TransitionObserver
		promObs  core.PromotionObserver
	)
	if obs != nil {
		resObs, transObs, promObs = obs, obs, obs
	}

	catalog := core.NewCatalogStore(pool)
	revisions := core.NewRevisionService(pool, transObs)
	projects := core.NewProjectStore(pool)
	promotion := core.NewPromotionService(core.NewOrderNumberSequence(pool, orderPrefix), projects, revisions, promObs)

	return NewAppService(
		catalog,
		core.NewPriceResolver(catalog, resObs),
		revisions,
		core.NewMarkupService(core.NewMarkupStore(pool)),
		promotion,
		projects,
	)
}
