package core_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"budget-engine/internal/core"

	"github.com/shopspring/decimal"
)

// memMarkupStore keeps one rule per revision, like the unique index on revision_id.
type memMarkupStore struct {
	rules   map[int]core.MarkupRule
	upserts int
}

func newMemMarkupStore() *memMarkupStore {
	return &memMarkupStore{rules: map[int]core.MarkupRule{}}
}

func (s *memMarkupStore) GetMarkup(_ context.Context, revisionID int) (*core.MarkupRule, error) {
	r, ok := s.rules[revisionID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (s *memMarkupStore) UpsertMarkup(_ context.Context, revisionID int, in core.MarkupInput) (*core.MarkupRule, error) {
	s.upserts++
	r := core.MarkupRule{RevisionID: revisionID, MarkupPct: in.MarkupPct, AllowPerWBS: in.AllowPerWBS, UpdatedAt: time.Now()}
	s.rules[revisionID] = r
	return &r, nil
}

func TestMarkupService_NegativeRejectedBeforeStore(t *testing.T) {
	store := newMemMarkupStore()
	svc := core.NewMarkupService(store)

	_, err := svc.Upsert(context.Background(), 1, core.MarkupInput{MarkupPct: decimal.RequireFromString("-0.1")})
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "markup_pct" {
		t.Errorf("expected field markup_pct, got %q", verr.Field)
	}
	if store.upserts != 0 {
		t.Errorf("store must not be called, got %d upserts", store.upserts)
	}
}

func TestMarkupService_UpsertReplaces(t *testing.T) {
	store := newMemMarkupStore()
	svc := core.NewMarkupService(store)
	ctx := context.Background()

	rule, err := svc.Get(ctx, 7)
	if err != nil || rule != nil {
		t.Fatalf("expected no rule, got %+v (%v)", rule, err)
	}

	if _, err := svc.Upsert(ctx, 7, core.MarkupInput{MarkupPct: decimal.RequireFromString("0.20")}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if _, err := svc.Upsert(ctx, 7, core.MarkupInput{MarkupPct: decimal.RequireFromString("0.35"), AllowPerWBS: true}); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	rule, err = svc.Get(ctx, 7)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !rule.MarkupPct.Equal(decimal.RequireFromString("0.35")) || !rule.AllowPerWBS {
		t.Errorf("expected last write to win, got %+v", rule)
	}
	if len(store.rules) != 1 {
		t.Errorf("expected a single rule, got %d", len(store.rules))
	}
}

func TestMarkupService_ZeroIsValid(t *testing.T) {
	svc := core.NewMarkupService(newMemMarkupStore())
	if _, err := svc.Upsert(context.Background(), 1, core.MarkupInput{MarkupPct: decimal.Zero}); err != nil {
		t.Errorf("zero markup must be accepted: %v", err)
	}
}

type failingMarkupStore struct{ memMarkupStore }

func (failingMarkupStore) UpsertMarkup(context.Context, int, core.MarkupInput) (*core.MarkupRule, error) {
	return nil, errors.New("unique violation")
}

func TestMarkupService_StoreErrorWrapped(t *testing.T) {
	svc := core.NewMarkupService(&failingMarkupStore{})
	_, err := svc.Upsert(context.Background(), 3, core.MarkupInput{MarkupPct: decimal.RequireFromString("0.1")})
	if err == nil {
		t.Fatal("expected error")
	}
	var verr *core.ValidationError
	if errors.As(err, &verr) {
		t.Error("store failures must not look like validation failures")
	}
}
