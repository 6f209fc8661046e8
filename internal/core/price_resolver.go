package core

import (
	"context"
	"fmt"
	"time"
)

// PriceResolver looks up the effective price of an item for a resolution context.
type PriceResolver interface {
	// Resolve returns ok=false when no pricebook applies. A miss is not an error.
	Resolve(ctx context.Context, item ItemRef, rc ResolutionContext) (EffectivePrice, bool, error)
	// ResolveLines resolves every line, leaving UnitPrice nil on misses.
	ResolveLines(ctx context.Context, lines []BudgetLine, rc ResolutionContext) ([]BudgetLine, error)
}

// ResolutionObserver is notified of every resolution outcome. Used for metrics.
type ResolutionObserver interface {
	ObserveResolution(item ItemRef, origin PriceOrigin, found bool)
}

type priceResolver struct {
	catalog  CatalogStore
	observer ResolutionObserver
}

// NewPriceResolver builds a resolver over the catalog. observer may be nil.
func NewPriceResolver(catalog CatalogStore, observer ResolutionObserver) PriceResolver {
	return &priceResolver{catalog: catalog, observer: observer}
}

func (r *priceResolver) Resolve(ctx context.Context, item ItemRef, rc ResolutionContext) (EffectivePrice, bool, error) {
	candidates, err := r.catalog.FetchCandidates(ctx, item)
	if err != nil {
		return EffectivePrice{}, false, fmt.Errorf("failed to fetch price candidates for %s: %w", item, err)
	}
	price, ok := ResolvePrice(candidates, item, rc)
	if r.observer != nil {
		r.observer.ObserveResolution(item, price.Origin, ok)
	}
	return price, ok, nil
}

func (r *priceResolver) ResolveLines(ctx context.Context, lines []BudgetLine, rc ResolutionContext) ([]BudgetLine, error) {
	out := make([]BudgetLine, len(lines))
	for i, line := range lines {
		out[i] = line
		lineCtx := rc
		if line.ManufacturerID != nil {
			lineCtx.ManufacturerID = line.ManufacturerID
		}
		price, ok, err := r.Resolve(ctx, line.Item, lineCtx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		out[i].UnitPrice = nil
		if ok {
			p := price
			out[i].UnitPrice = &p
		}
	}
	return out, nil
}

// scoredCandidate carries the tie-break keys computed for one applicable candidate.
type scoredCandidate struct {
	c         PriceCandidate
	origin    PriceOrigin
	exactMfr  bool
	start     *time.Time // start of the effective (intersected) window
	updatedAt time.Time
}

// ResolvePrice selects the single effective price for item from candidates.
//
// Candidates are filtered by item, pricebook type/active flag, manufacturer and
// validity window, then classified by scope. The most specific class wins; within it
// the order is: exact manufacturer, lowest priority, latest window start, latest
// update, lowest pricebook id, lowest entry id.
func ResolvePrice(candidates []PriceCandidate, item ItemRef, rc ResolutionContext) (EffectivePrice, bool) {
	scored := applicable(candidates, item, rc)
	if len(scored) == 0 {
		return EffectivePrice{}, false
	}
	best := scored[0]
	for _, sc := range scored[1:] {
		if outranks(sc, best) {
			best = sc
		}
	}

	e := best.c.Entry
	return EffectivePrice{
		Item:                  item,
		Price:                 e.Price,
		Currency:              e.Currency,
		PricebookID:           best.c.Pricebook.ID,
		PricebookName:         best.c.Pricebook.Name,
		EntryID:               e.ID,
		Origin:                best.origin,
		MatchedManufacturerID: e.ManufacturerID,
		Source:                e.Source,
	}, true
}

// applicable filters candidates down to those usable for item in rc and computes
// their tie-break keys.
func applicable(candidates []PriceCandidate, item ItemRef, rc ResolutionContext) []scoredCandidate {
	asOf := dateOnly(rc.AsOf)
	var scored []scoredCandidate
	for _, c := range candidates {
		if c.Entry.Item != item || c.Pricebook.Type != item.Type || !c.Pricebook.Active {
			continue
		}
		exact, ok := manufacturerMatch(c.Entry.ManufacturerID, item.Type, rc.ManufacturerID)
		if !ok {
			continue
		}
		start, end := effectiveWindow(c)
		if !windowContains(start, end, asOf) {
			continue
		}
		origin, ok := originOf(c.Pricebook, rc)
		if !ok {
			continue
		}
		scored = append(scored, scoredCandidate{
			c:         c,
			origin:    origin,
			exactMfr:  exact,
			start:     start,
			updatedAt: c.Entry.UpdatedAt,
		})
	}
	return scored
}

// outranks reports whether a is strictly preferred over b.
func outranks(a, b scoredCandidate) bool {
	if a.origin != b.origin {
		return a.origin.MoreSpecificThan(b.origin)
	}
	if a.exactMfr != b.exactMfr {
		return a.exactMfr
	}
	if a.c.Pricebook.Priority != b.c.Pricebook.Priority {
		return a.c.Pricebook.Priority < b.c.Pricebook.Priority
	}
	if c := compareStart(a.start, b.start); c != 0 {
		return c > 0
	}
	if !a.updatedAt.Equal(b.updatedAt) {
		return a.updatedAt.After(b.updatedAt)
	}
	if a.c.Pricebook.ID != b.c.Pricebook.ID {
		return a.c.Pricebook.ID < b.c.Pricebook.ID
	}
	return a.c.Entry.ID < b.c.Entry.ID
}

// originOf classifies a pricebook's scope against the context. ok is false when the
// pricebook is scoped to a different company or region.
func originOf(pb Pricebook, rc ResolutionContext) (PriceOrigin, bool) {
	switch {
	case isCompanyRegion(pb, rc):
		return OriginCompanyRegion, true
	case isCompany(pb, rc):
		return OriginCompany, true
	case isRegion(pb, rc):
		return OriginRegion, true
	case isGlobal(pb):
		return OriginGlobal, true
	}
	return 0, false
}

func isCompanyRegion(pb Pricebook, rc ResolutionContext) bool {
	return pb.CompanyID != nil && pb.RegionID != nil &&
		sameID(pb.CompanyID, rc.CompanyID) && sameID(pb.RegionID, rc.RegionID)
}

func isCompany(pb Pricebook, rc ResolutionContext) bool {
	return pb.CompanyID != nil && pb.RegionID == nil && sameID(pb.CompanyID, rc.CompanyID)
}

func isRegion(pb Pricebook, rc ResolutionContext) bool {
	return pb.CompanyID == nil && pb.RegionID != nil && sameID(pb.RegionID, rc.RegionID)
}

func isGlobal(pb Pricebook) bool {
	return pb.CompanyID == nil && pb.RegionID == nil
}

// sameID is true only when both ids are set and equal.
func sameID(a, b *int) bool {
	return a != nil && b != nil && *a == *b
}

// manufacturerMatch decides whether an entry is eligible for the requested manufacturer.
// Labor entries ignore manufacturers. Without a requested manufacturer every material
// entry is eligible and none counts as exact.
func manufacturerMatch(entryMfr *int, t ItemType, wanted *int) (exact, ok bool) {
	if t != ItemMaterial || wanted == nil {
		return false, true
	}
	if entryMfr == nil {
		return false, true
	}
	if *entryMfr == *wanted {
		return true, true
	}
	return false, false
}

// effectiveWindow intersects the entry window with the pricebook window.
func effectiveWindow(c PriceCandidate) (start, end *time.Time) {
	start = laterOf(c.Pricebook.ValidFrom, c.Entry.ValidFrom)
	end = earlierOf(c.Pricebook.ValidTo, c.Entry.ValidTo)
	return start, end
}

// windowContains is inclusive on both bounds at day granularity.
func windowContains(start, end *time.Time, day time.Time) bool {
	if start != nil && dateOnly(*start).After(day) {
		return false
	}
	if end != nil && dateOnly(*end).Before(day) {
		return false
	}
	return true
}

func laterOf(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	}
	return a
}

func earlierOf(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.Before(*a):
		return b
	}
	return a
}

// compareStart orders window starts; an open start sorts before every set start.
func compareStart(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	da, db := dateOnly(*a), dateOnly(*b)
	switch {
	case da.After(db):
		return 1
	case da.Before(db):
		return -1
	}
	return 0
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
