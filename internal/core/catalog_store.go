package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// CatalogStore reads and maintains pricebooks and their entries.
type CatalogStore interface {
	// FetchCandidates returns every entry for item joined with its pricebook, in one call.
	FetchCandidates(ctx context.Context, item ItemRef) ([]PriceCandidate, error)

	CreatePricebook(ctx context.Context, in PricebookInput) (*Pricebook, error)
	GetPricebook(ctx context.Context, id int) (*Pricebook, error)
	ListPricebooks(ctx context.Context, itemType *ItemType) ([]Pricebook, error)
	SetPricebookActive(ctx context.Context, id int, active bool) error
	SetPricebookValidity(ctx context.Context, id int, from, to *time.Time) error
	AddEntry(ctx context.Context, in PriceEntryInput) (*PriceListEntry, error)
}

// PricebookInput is the data needed to create a pricebook.
type PricebookInput struct {
	Name      string     `json:"name" jsonschema:"required" jsonschema_description:"Display name of the pricebook"`
	Type      ItemType   `json:"type" jsonschema:"required,enum=MATERIAL,enum=LABOR"`
	CompanyID *int       `json:"company_id,omitempty" jsonschema_description:"Restricts the pricebook to one company; omit for any company"`
	RegionID  *int       `json:"region_id,omitempty" jsonschema_description:"Restricts the pricebook to one region; omit for any region"`
	ValidFrom *time.Time `json:"valid_from,omitempty"`
	ValidTo   *time.Time `json:"valid_to,omitempty"`
	Priority  int        `json:"priority" jsonschema_description:"Lower wins among pricebooks of equal specificity"`
}

// PriceEntryInput is the data needed to add an entry to a pricebook.
type PriceEntryInput struct {
	PricebookID    int             `json:"pricebook_id"`
	ItemID         int             `json:"item_id" jsonschema:"required"`
	ManufacturerID *int            `json:"manufacturer_id,omitempty" jsonschema_description:"Omit for a wildcard entry matching any manufacturer"`
	Price          decimal.Decimal `json:"price" jsonschema:"required,type=string"`
	Currency       string          `json:"currency" jsonschema:"required"`
	ValidFrom      *time.Time      `json:"valid_from,omitempty"`
	ValidTo        *time.Time      `json:"valid_to,omitempty"`
	Source         string          `json:"source,omitempty"`
}

// Validate checks the pricebook input on its own.
func (in PricebookInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &ValidationError{Field: "name", Message: "must not be empty"}
	}
	if _, err := ParseItemType(string(in.Type)); err != nil {
		return err
	}
	return ValidateWindow(in.ValidFrom, in.ValidTo)
}

// ValidateAgainst checks the entry input against its parent pricebook. An entry window
// may narrow the pricebook window but not extend past it.
func (in PriceEntryInput) ValidateAgainst(pb Pricebook) error {
	if in.Price.IsNegative() {
		return &ValidationError{Field: "price", Message: "must be >= 0"}
	}
	if strings.TrimSpace(in.Currency) == "" {
		return &ValidationError{Field: "currency", Message: "must not be empty"}
	}
	if in.ManufacturerID != nil && pb.Type != ItemMaterial {
		return &ValidationError{Field: "manufacturer_id", Message: "only material entries carry a manufacturer"}
	}
	if err := ValidateWindow(in.ValidFrom, in.ValidTo); err != nil {
		return err
	}
	if pb.ValidFrom != nil && in.ValidFrom != nil && dateOnly(*in.ValidFrom).Before(dateOnly(*pb.ValidFrom)) {
		return &ValidationError{Field: "valid_from", Message: "entry starts before its pricebook"}
	}
	if pb.ValidTo != nil && in.ValidTo != nil && dateOnly(*in.ValidTo).After(dateOnly(*pb.ValidTo)) {
		return &ValidationError{Field: "valid_to", Message: "entry ends after its pricebook"}
	}
	return nil
}

// ValidateWindow rejects a validity window that ends before it starts. Either bound may be open.
func ValidateWindow(from, to *time.Time) error {
	if from != nil && to != nil && dateOnly(*to).Before(dateOnly(*from)) {
		return &ValidationError{Field: "valid_to", Message: "must not be before valid_from"}
	}
	return nil
}

type catalogStore struct {
	pool *pgxpool.Pool
}

// NewCatalogStore constructs a CatalogStore backed by the pricebooks tables.
func NewCatalogStore(pool *pgxpool.Pool) CatalogStore {
	return &catalogStore{pool: pool}
}

const pricebookColumns = `id, name, item_type, company_id, region_id, valid_from, valid_to, priority, active, created_at`

func scanPricebook(row pgx.Row, pb *Pricebook) error {
	return row.Scan(&pb.ID, &pb.Name, &pb.Type, &pb.CompanyID, &pb.RegionID,
		&pb.ValidFrom, &pb.ValidTo, &pb.Priority, &pb.Active, &pb.CreatedAt)
}

func (s *catalogStore) FetchCandidates(ctx context.Context, item ItemRef) ([]PriceCandidate, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.id, e.pricebook_id, e.item_type, e.item_id, e.manufacturer_id, e.price, e.currency,
		       e.valid_from, e.valid_to, e.source, e.updated_at,
		       p.id, p.name, p.item_type, p.company_id, p.region_id, p.valid_from, p.valid_to,
		       p.priority, p.active, p.created_at
		FROM price_list_entries e
		JOIN pricebooks p ON p.id = e.pricebook_id
		WHERE e.item_type = $1 AND e.item_id = $2
		ORDER BY p.id, e.id
	`, string(item.Type), item.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query price candidates: %w", err)
	}
	defer rows.Close()

	var out []PriceCandidate
	for rows.Next() {
		var c PriceCandidate
		e, pb := &c.Entry, &c.Pricebook
		if err := rows.Scan(
			&e.ID, &e.PricebookID, &e.Item.Type, &e.Item.ID, &e.ManufacturerID, &e.Price, &e.Currency,
			&e.ValidFrom, &e.ValidTo, &e.Source, &e.UpdatedAt,
			&pb.ID, &pb.Name, &pb.Type, &pb.CompanyID, &pb.RegionID, &pb.ValidFrom, &pb.ValidTo,
			&pb.Priority, &pb.Active, &pb.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan price candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *catalogStore) CreatePricebook(ctx context.Context, in PricebookInput) (*Pricebook, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var pb Pricebook
	row := s.pool.QueryRow(ctx, `
		INSERT INTO pricebooks (name, item_type, company_id, region_id, valid_from, valid_to, priority, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, true)
		RETURNING `+pricebookColumns,
		in.Name, string(in.Type), in.CompanyID, in.RegionID, in.ValidFrom, in.ValidTo, in.Priority)
	if err := scanPricebook(row, &pb); err != nil {
		return nil, fmt.Errorf("failed to create pricebook: %w", err)
	}
	return &pb, nil
}

func (s *catalogStore) GetPricebook(ctx context.Context, id int) (*Pricebook, error) {
	var pb Pricebook
	row := s.pool.QueryRow(ctx, `SELECT `+pricebookColumns+` FROM pricebooks WHERE id = $1`, id)
	if err := scanPricebook(row, &pb); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("pricebook %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch pricebook %d: %w", id, err)
	}
	return &pb, nil
}

func (s *catalogStore) ListPricebooks(ctx context.Context, itemType *ItemType) ([]Pricebook, error) {
	query := `SELECT ` + pricebookColumns + ` FROM pricebooks`
	var args []any
	if itemType != nil {
		query += ` WHERE item_type = $1`
		args = append(args, string(*itemType))
	}
	query += ` ORDER BY item_type, priority, id`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pricebooks: %w", err)
	}
	defer rows.Close()

	var out []Pricebook
	for rows.Next() {
		var pb Pricebook
		if err := scanPricebook(rows, &pb); err != nil {
			return nil, fmt.Errorf("failed to scan pricebook: %w", err)
		}
		out = append(out, pb)
	}
	return out, rows.Err()
}

func (s *catalogStore) SetPricebookActive(ctx context.Context, id int, active bool) error {
	tag, err := s.pool.Exec(ctx, `UPDATE pricebooks SET active = $1 WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("failed to update pricebook %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pricebook %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *catalogStore) SetPricebookValidity(ctx context.Context, id int, from, to *time.Time) error {
	if err := ValidateWindow(from, to); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `UPDATE pricebooks SET valid_from = $1, valid_to = $2 WHERE id = $3`, from, to, id)
	if err != nil {
		return fmt.Errorf("failed to update pricebook %d validity: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pricebook %d: %w", id, ErrNotFound)
	}
	return nil
}

func (s *catalogStore) AddEntry(ctx context.Context, in PriceEntryInput) (*PriceListEntry, error) {
	pb, err := s.GetPricebook(ctx, in.PricebookID)
	if err != nil {
		return nil, err
	}
	if err := in.ValidateAgainst(*pb); err != nil {
		return nil, err
	}

	var e PriceListEntry
	err = s.pool.QueryRow(ctx, `
		INSERT INTO price_list_entries
			(pricebook_id, item_type, item_id, manufacturer_id, price, currency, valid_from, valid_to, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, pricebook_id, item_type, item_id, manufacturer_id, price, currency,
		          valid_from, valid_to, source, updated_at
	`, pb.ID, string(pb.Type), in.ItemID, in.ManufacturerID, in.Price, strings.ToUpper(in.Currency),
		in.ValidFrom, in.ValidTo, in.Source,
	).Scan(&e.ID, &e.PricebookID, &e.Item.Type, &e.Item.ID, &e.ManufacturerID, &e.Price, &e.Currency,
		&e.ValidFrom, &e.ValidTo, &e.Source, &e.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add price entry to pricebook %d: %w", pb.ID, err)
	}
	return &e, nil
}
