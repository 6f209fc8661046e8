package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// MarkupRule is the single markup configuration of a revision.
// MarkupPct is a fraction: 0.25 means 25%.
type MarkupRule struct {
	RevisionID  int             `json:"revision_id"`
	MarkupPct   decimal.Decimal `json:"markup_pct"`
	AllowPerWBS bool            `json:"allow_per_wbs"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// MarkupInput is the caller-provided part of a MarkupRule.
type MarkupInput struct {
	MarkupPct   decimal.Decimal `json:"markup_pct"`
	AllowPerWBS bool            `json:"allow_per_wbs"`
}

// Validate rejects negative markups.
func (in MarkupInput) Validate() error {
	if in.MarkupPct.IsNegative() {
		return &ValidationError{Field: "markup_pct", Message: fmt.Sprintf("must be >= 0, got %s", in.MarkupPct)}
	}
	return nil
}

// MarkupStore persists markup rules, one row per revision.
type MarkupStore interface {
	GetMarkup(ctx context.Context, revisionID int) (*MarkupRule, error)
	UpsertMarkup(ctx context.Context, revisionID int, in MarkupInput) (*MarkupRule, error)
}

// MarkupService reads and writes the markup rule of a revision.
// It does not check the revision lock; callers check canEdit first.
type MarkupService interface {
	// Get returns nil, nil when the revision has no markup rule.
	Get(ctx context.Context, revisionID int) (*MarkupRule, error)
	// Upsert replaces the revision's rule. Invalid input never reaches the store.
	Upsert(ctx context.Context, revisionID int, in MarkupInput) (*MarkupRule, error)
}

type markupService struct {
	store MarkupStore
}

func NewMarkupService(store MarkupStore) MarkupService {
	return &markupService{store: store}
}

func (s *markupService) Get(ctx context.Context, revisionID int) (*MarkupRule, error) {
	rule, err := s.store.GetMarkup(ctx, revisionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get markup for revision %d: %w", revisionID, err)
	}
	return rule, nil
}

func (s *markupService) Upsert(ctx context.Context, revisionID int, in MarkupInput) (*MarkupRule, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	rule, err := s.store.UpsertMarkup(ctx, revisionID, in)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert markup for revision %d: %w", revisionID, err)
	}
	return rule, nil
}

type markupStore struct {
	pool *pgxpool.Pool
}

// NewMarkupStore constructs a MarkupStore backed by the markup_rules table.
func NewMarkupStore(pool *pgxpool.Pool) MarkupStore {
	return &markupStore{pool: pool}
}

func (s *markupStore) GetMarkup(ctx context.Context, revisionID int) (*MarkupRule, error) {
	var m MarkupRule
	err := s.pool.QueryRow(ctx, `
		SELECT revision_id, markup_pct, allow_per_wbs, updated_at
		FROM markup_rules
		WHERE revision_id = $1
	`, revisionID).Scan(&m.RevisionID, &m.MarkupPct, &m.AllowPerWBS, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (s *markupStore) UpsertMarkup(ctx context.Context, revisionID int, in MarkupInput) (*MarkupRule, error) {
	var m MarkupRule
	err := s.pool.QueryRow(ctx, `
		INSERT INTO markup_rules (revision_id, markup_pct, allow_per_wbs)
		VALUES ($1, $2, $3)
		ON CONFLICT (revision_id)
		DO UPDATE SET markup_pct = EXCLUDED.markup_pct,
		              allow_per_wbs = EXCLUDED.allow_per_wbs,
		              updated_at = NOW()
		RETURNING revision_id, markup_pct, allow_per_wbs, updated_at
	`, revisionID, in.MarkupPct, in.AllowPerWBS).Scan(&m.RevisionID, &m.MarkupPct, &m.AllowPerWBS, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
