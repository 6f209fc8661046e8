package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProjectStore persists projects created by promotion.
type ProjectStore interface {
	CreateProject(ctx context.Context, in ProjectInput) (*Project, error)
	GetProject(ctx context.Context, id int) (*Project, error)
}

type projectStore struct {
	pool *pgxpool.Pool
}

func NewProjectStore(pool *pgxpool.Pool) ProjectStore {
	return &projectStore{pool: pool}
}

const projectColumns = `id, client_id, name, order_number, status, approved, contract_value,
	address, city, state, zip_code, revision_id, created_at`

func scanProject(row pgx.Row, p *Project) error {
	return row.Scan(&p.ID, &p.ClientID, &p.Name, &p.OrderNumber, &p.Status, &p.Approved, &p.ContractValue,
		&p.Location.Address, &p.Location.City, &p.Location.State, &p.Location.ZipCode,
		&p.RevisionID, &p.CreatedAt)
}

func (s *projectStore) CreateProject(ctx context.Context, in ProjectInput) (*Project, error) {
	var p Project
	row := s.pool.QueryRow(ctx, `
		INSERT INTO projects (client_id, name, order_number, status, approved, contract_value,
		                      address, city, state, zip_code, revision_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING `+projectColumns,
		in.ClientID, in.Name, in.OrderNumber, in.Status, in.Approved, in.ContractValue,
		in.Location.Address, in.Location.City, in.Location.State, in.Location.ZipCode, in.RevisionID)
	if err := scanProject(row, &p); err != nil {
		return nil, fmt.Errorf("failed to insert project: %w", err)
	}
	return &p, nil
}

func (s *projectStore) GetProject(ctx context.Context, id int) (*Project, error) {
	var p Project
	row := s.pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	if err := scanProject(row, &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("project %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch project %d: %w", id, err)
	}
	return &p, nil
}
