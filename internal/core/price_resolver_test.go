package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"budget-engine/internal/core"

	"github.com/shopspring/decimal"
)

func ptr[T any](v T) *T { return &v }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

var cement = core.ItemRef{Type: core.ItemMaterial, ID: 42}

// candidate builds an active material pricebook with a single wildcard entry.
func candidate(pbID int, company, region *int, priority int, price string) core.PriceCandidate {
	return core.PriceCandidate{
		Pricebook: core.Pricebook{
			ID: pbID, Name: "pb", Type: core.ItemMaterial,
			CompanyID: company, RegionID: region, Priority: priority, Active: true,
		},
		Entry: core.PriceListEntry{
			ID: pbID * 10, PricebookID: pbID, Item: cement,
			Price: decimal.RequireFromString(price), Currency: "BRL",
		},
	}
}

func TestResolvePrice_CompanyBeatsGlobal(t *testing.T) {
	companyA := ptr(1)
	cands := []core.PriceCandidate{
		candidate(1, nil, nil, 1, "10"),
		candidate(2, companyA, nil, 1, "12"),
	}
	got, ok := core.ResolvePrice(cands, cement, core.ResolutionContext{CompanyID: companyA, AsOf: day("2024-06-01")})
	if !ok {
		t.Fatal("expected a price")
	}
	if !got.Price.Equal(decimal.NewFromInt(12)) {
		t.Errorf("expected 12, got %s", got.Price)
	}
	if got.Origin != core.OriginCompany {
		t.Errorf("expected EMPRESA, got %s", got.Origin)
	}
}

func TestResolvePrice_SpecificityOrder(t *testing.T) {
	company, region := ptr(1), ptr(7)
	all := []core.PriceCandidate{
		candidate(1, nil, nil, 0, "10"),
		candidate(2, nil, region, 9, "11"),
		candidate(3, company, nil, 9, "12"),
		candidate(4, company, region, 9, "13"),
	}
	rc := core.ResolutionContext{CompanyID: company, RegionID: region, AsOf: day("2024-06-01")}

	tests := []struct {
		name   string
		cands  []core.PriceCandidate
		origin core.PriceOrigin
		price  string
	}{
		{"all four", all, core.OriginCompanyRegion, "13"},
		{"no company+region", all[:3], core.OriginCompany, "12"},
		{"region and global", all[:2], core.OriginRegion, "11"},
		{"global only", all[:1], core.OriginGlobal, "10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := core.ResolvePrice(tt.cands, cement, rc)
			if !ok {
				t.Fatal("expected a price")
			}
			if got.Origin != tt.origin {
				t.Errorf("expected origin %s, got %s", tt.origin, got.Origin)
			}
			if !got.Price.Equal(decimal.RequireFromString(tt.price)) {
				t.Errorf("expected %s, got %s", tt.price, got.Price)
			}
		})
	}
}

func TestResolvePrice_ForeignScopesIgnored(t *testing.T) {
	cands := []core.PriceCandidate{
		candidate(1, ptr(2), nil, 0, "50"),
		candidate(2, nil, ptr(8), 0, "60"),
		candidate(3, ptr(1), ptr(8), 0, "70"),
	}
	_, ok := core.ResolvePrice(cands, cement, core.ResolutionContext{CompanyID: ptr(1), RegionID: ptr(7), AsOf: day("2024-06-01")})
	if ok {
		t.Error("pricebooks scoped to other companies or regions must not apply")
	}
}

func TestResolvePrice_ValidityWindow(t *testing.T) {
	c := candidate(1, nil, nil, 0, "10")
	c.Entry.ValidFrom = ptr(day("2024-01-01"))
	c.Entry.ValidTo = ptr(day("2024-05-31"))

	tests := []struct {
		asOf string
		want bool
	}{
		{"2023-12-31", false},
		{"2024-01-01", true},
		{"2024-03-15", true},
		{"2024-05-31", true},
		{"2024-06-01", false},
	}
	for _, tt := range tests {
		t.Run(tt.asOf, func(t *testing.T) {
			_, ok := core.ResolvePrice([]core.PriceCandidate{c}, cement, core.ResolutionContext{AsOf: day(tt.asOf)})
			if ok != tt.want {
				t.Errorf("as of %s: expected found=%v, got %v", tt.asOf, tt.want, ok)
			}
		})
	}
}

func TestResolvePrice_EndBoundaryIgnoresTimeOfDay(t *testing.T) {
	c := candidate(1, nil, nil, 0, "10")
	c.Entry.ValidTo = ptr(day("2024-05-31"))
	asOf := time.Date(2024, 5, 31, 23, 59, 0, 0, time.UTC)
	if _, ok := core.ResolvePrice([]core.PriceCandidate{c}, cement, core.ResolutionContext{AsOf: asOf}); !ok {
		t.Error("end date must be inclusive for the whole day")
	}
}

func TestResolvePrice_PricebookWindowNarrowsEntry(t *testing.T) {
	c := candidate(1, nil, nil, 0, "10")
	c.Pricebook.ValidTo = ptr(day("2024-03-31"))
	c.Entry.ValidTo = ptr(day("2024-12-31"))
	if _, ok := core.ResolvePrice([]core.PriceCandidate{c}, cement, core.ResolutionContext{AsOf: day("2024-06-01")}); ok {
		t.Error("entry must not outlive its pricebook")
	}
}

func TestResolvePrice_ExpiredSpecificFallsBackToGlobal(t *testing.T) {
	company := ptr(1)
	expired := candidate(2, company, nil, 0, "12")
	expired.Entry.ValidTo = ptr(day("2024-05-31"))
	cands := []core.PriceCandidate{candidate(1, nil, nil, 0, "10"), expired}

	got, ok := core.ResolvePrice(cands, cement, core.ResolutionContext{CompanyID: company, AsOf: day("2024-06-01")})
	if !ok || got.Origin != core.OriginGlobal {
		t.Fatalf("expected GLOBAL fallback, got %+v (found=%v)", got, ok)
	}
}

func TestResolvePrice_InactiveAndWrongType(t *testing.T) {
	inactive := candidate(1, nil, nil, 0, "10")
	inactive.Pricebook.Active = false
	labor := candidate(2, nil, nil, 0, "20")
	labor.Pricebook.Type = core.ItemLabor
	other := candidate(3, nil, nil, 0, "30")
	other.Entry.Item = core.ItemRef{Type: core.ItemMaterial, ID: 99}

	_, ok := core.ResolvePrice([]core.PriceCandidate{inactive, labor, other}, cement, core.ResolutionContext{AsOf: day("2024-06-01")})
	if ok {
		t.Error("expected NotFound")
	}
}

func TestResolvePrice_Manufacturer(t *testing.T) {
	wildcard := candidate(1, nil, nil, 0, "10")
	exact := candidate(2, nil, nil, 5, "11")
	exact.Entry.ManufacturerID = ptr(3)
	otherMfr := candidate(3, nil, nil, 0, "9")
	otherMfr.Entry.ManufacturerID = ptr(4)
	cands := []core.PriceCandidate{wildcard, exact, otherMfr}

	t.Run("exact beats wildcard despite priority", func(t *testing.T) {
		got, ok := core.ResolvePrice(cands, cement, core.ResolutionContext{ManufacturerID: ptr(3), AsOf: day("2024-06-01")})
		if !ok || got.PricebookID != 2 {
			t.Fatalf("expected pricebook 2, got %+v", got)
		}
		if got.MatchedManufacturerID == nil || *got.MatchedManufacturerID != 3 {
			t.Errorf("expected matched manufacturer 3, got %v", got.MatchedManufacturerID)
		}
	})

	t.Run("unknown manufacturer falls back to wildcard", func(t *testing.T) {
		got, ok := core.ResolvePrice(cands, cement, core.ResolutionContext{ManufacturerID: ptr(5), AsOf: day("2024-06-01")})
		if !ok || got.PricebookID != 1 {
			t.Fatalf("expected wildcard pricebook 1, got %+v", got)
		}
		if got.MatchedManufacturerID != nil {
			t.Errorf("expected no matched manufacturer, got %v", *got.MatchedManufacturerID)
		}
	})

	t.Run("more specific scope beats exact manufacturer", func(t *testing.T) {
		company := candidate(4, ptr(1), nil, 0, "15")
		got, ok := core.ResolvePrice(append(cands, company), cement,
			core.ResolutionContext{CompanyID: ptr(1), ManufacturerID: ptr(3), AsOf: day("2024-06-01")})
		if !ok || got.PricebookID != 4 {
			t.Fatalf("expected company pricebook 4, got %+v", got)
		}
	})
}

func TestResolvePrice_LaborIgnoresManufacturer(t *testing.T) {
	mason := core.ItemRef{Type: core.ItemLabor, ID: 7}
	c := candidate(1, nil, nil, 0, "80")
	c.Pricebook.Type = core.ItemLabor
	c.Entry.Item = mason
	got, ok := core.ResolvePrice([]core.PriceCandidate{c}, mason, core.ResolutionContext{ManufacturerID: ptr(3), AsOf: day("2024-06-01")})
	if !ok || !got.Price.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("expected labor price 80, got %+v (found=%v)", got, ok)
	}
}

func TestResolvePrice_TieBreaks(t *testing.T) {
	rc := core.ResolutionContext{AsOf: day("2024-06-01")}

	t.Run("lowest priority", func(t *testing.T) {
		a, b := candidate(1, nil, nil, 5, "10"), candidate(2, nil, nil, 2, "11")
		got, _ := core.ResolvePrice([]core.PriceCandidate{a, b}, cement, rc)
		if got.PricebookID != 2 {
			t.Errorf("expected pricebook 2, got %d", got.PricebookID)
		}
	})

	t.Run("latest start", func(t *testing.T) {
		a, b := candidate(1, nil, nil, 1, "10"), candidate(2, nil, nil, 1, "11")
		a.Entry.ValidFrom = ptr(day("2024-03-01"))
		b.Entry.ValidFrom = ptr(day("2024-01-01"))
		got, _ := core.ResolvePrice([]core.PriceCandidate{b, a}, cement, rc)
		if got.PricebookID != 1 {
			t.Errorf("expected pricebook 1, got %d", got.PricebookID)
		}
	})

	t.Run("open start loses to set start", func(t *testing.T) {
		a, b := candidate(1, nil, nil, 1, "10"), candidate(2, nil, nil, 1, "11")
		b.Pricebook.ValidFrom = ptr(day("2020-01-01"))
		got, _ := core.ResolvePrice([]core.PriceCandidate{a, b}, cement, rc)
		if got.PricebookID != 2 {
			t.Errorf("expected pricebook 2, got %d", got.PricebookID)
		}
	})

	t.Run("most recently updated", func(t *testing.T) {
		a, b := candidate(1, nil, nil, 1, "10"), candidate(2, nil, nil, 1, "11")
		a.Entry.UpdatedAt = day("2024-01-01")
		b.Entry.UpdatedAt = day("2024-02-01")
		got, _ := core.ResolvePrice([]core.PriceCandidate{a, b}, cement, rc)
		if got.PricebookID != 2 {
			t.Errorf("expected pricebook 2, got %d", got.PricebookID)
		}
	})

	t.Run("lowest pricebook id", func(t *testing.T) {
		a, b := candidate(9, nil, nil, 1, "10"), candidate(3, nil, nil, 1, "11")
		got, _ := core.ResolvePrice([]core.PriceCandidate{a, b}, cement, rc)
		if got.PricebookID != 3 {
			t.Errorf("expected pricebook 3, got %d", got.PricebookID)
		}
	})
}

func TestResolvePrice_Deterministic(t *testing.T) {
	cands := []core.PriceCandidate{
		candidate(4, nil, nil, 1, "10"),
		candidate(2, nil, nil, 1, "11"),
		candidate(3, nil, nil, 1, "12"),
	}
	rc := core.ResolutionContext{AsOf: day("2024-06-01")}
	first, _ := core.ResolvePrice(cands, cement, rc)
	reversed := []core.PriceCandidate{cands[2], cands[1], cands[0]}
	for i := 0; i < 10; i++ {
		got, _ := core.ResolvePrice(reversed, cement, rc)
		if got.PricebookID != first.PricebookID || !got.Price.Equal(first.Price) {
			t.Fatalf("resolution changed between calls: %+v vs %+v", first, got)
		}
	}
}

func TestResolvePrice_LowerPriorityNumberWins(t *testing.T) {
	company := ptr(1)
	cands := []core.PriceCandidate{
		candidate(1, nil, nil, 0, "10"),
		candidate(2, company, nil, 3, "12"),
		candidate(3, company, nil, 1, "13"),
	}
	rc := core.ResolutionContext{CompanyID: company, AsOf: day("2024-06-01")}
	got, ok := core.ResolvePrice(cands, cement, rc)
	if !ok {
		t.Fatal("expected a price")
	}
	if got.PricebookID != 3 || got.Origin != core.OriginCompany {
		t.Errorf("expected company pricebook 3, got pricebook %d (%s)", got.PricebookID, got.Origin)
	}
}

func TestPriceOrigin_Text(t *testing.T) {
	for _, o := range core.AllOrigins {
		b, _ := o.MarshalText()
		var back core.PriceOrigin
		if err := back.UnmarshalText(b); err != nil || back != o {
			t.Errorf("%s did not survive text encoding: %v", o, err)
		}
	}
	if !core.OriginCompanyRegion.MoreSpecificThan(core.OriginCompany) ||
		!core.OriginCompany.MoreSpecificThan(core.OriginRegion) ||
		!core.OriginRegion.MoreSpecificThan(core.OriginGlobal) {
		t.Error("origin order must be EMPRESA_REGIAO > EMPRESA > REGIAO > GLOBAL")
	}
}

type stubCatalog struct {
	core.CatalogStore
	cands []core.PriceCandidate
	err   error
	calls int
}

func (s *stubCatalog) FetchCandidates(_ context.Context, _ core.ItemRef) ([]core.PriceCandidate, error) {
	s.calls++
	return s.cands, s.err
}

type recordingObserver struct {
	found, missed int
}

func (o *recordingObserver) ObserveResolution(_ core.ItemRef, _ core.PriceOrigin, found bool) {
	if found {
		o.found++
	} else {
		o.missed++
	}
}

func TestPriceResolver_ResolveLines(t *testing.T) {
	catalog := &stubCatalog{cands: []core.PriceCandidate{candidate(1, nil, nil, 0, "10")}}
	obs := &recordingObserver{}
	resolver := core.NewPriceResolver(catalog, obs)

	lines := []core.BudgetLine{
		{Item: cement, Quantity: decimal.NewFromInt(3)},
		{Item: core.ItemRef{Type: core.ItemMaterial, ID: 1000}, Quantity: decimal.NewFromInt(1)},
	}
	out, err := resolver.ResolveLines(context.Background(), lines, core.ResolutionContext{AsOf: day("2024-06-01")})
	if err != nil {
		t.Fatalf("ResolveLines failed: %v", err)
	}
	if out[0].UnitPrice == nil || !out[0].UnitPrice.Price.Equal(decimal.NewFromInt(10)) {
		t.Errorf("line 1: expected unit price 10, got %+v", out[0].UnitPrice)
	}
	if out[1].UnitPrice != nil {
		t.Errorf("line 2: expected no price, got %+v", out[1].UnitPrice)
	}
	if catalog.calls != 2 {
		t.Errorf("expected 2 catalog fetches, got %d", catalog.calls)
	}
	if obs.found != 1 || obs.missed != 1 {
		t.Errorf("expected 1 hit and 1 miss observed, got %d/%d", obs.found, obs.missed)
	}
}

func TestPriceResolver_CatalogErrorIsNotAMiss(t *testing.T) {
	boom := errors.New("connection reset")
	resolver := core.NewPriceResolver(&stubCatalog{err: boom}, nil)
	_, ok, err := resolver.Resolve(context.Background(), cement, core.ResolutionContext{AsOf: day("2024-06-01")})
	if !errors.Is(err, boom) {
		t.Fatalf("expected catalog error, got %v", err)
	}
	if ok {
		t.Error("expected ok=false on error")
	}
}
