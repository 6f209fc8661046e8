package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RevisionLinker sets the write-once project link of a revision.
type RevisionLinker interface {
	// LinkProject is idempotent for the same project id.
	LinkProject(ctx context.Context, revisionID, projectID int) error
}

// RevisionService manages budgets and the lifecycle of their revisions.
type RevisionService interface {
	RevisionLinker

	CreateBudget(ctx context.Context, in Budget) (*Budget, error)
	GetBudget(ctx context.Context, budgetID int) (*Budget, error)

	// CreateRevision opens a new DRAFT revision with the next revision number.
	// When fromRevisionID is set, the new revision copies that revision's markup rule.
	// Branching is allowed from a revision in any status.
	CreateRevision(ctx context.Context, budgetID int, fromRevisionID *int) (*BudgetRevision, error)
	GetRevision(ctx context.Context, revisionID int) (*BudgetRevision, error)
	ListRevisions(ctx context.Context, budgetID int) ([]BudgetRevision, error)

	// TransitionRevision moves a revision to target under a row lock.
	// Returns *InvalidTransitionError for edges the state machine does not have.
	TransitionRevision(ctx context.Context, revisionID int, target RevisionStatus) (*BudgetRevision, error)
}

// TransitionObserver is notified of every committed status change.
type TransitionObserver interface {
	ObserveTransition(from, to RevisionStatus)
}

type revisionService struct {
	pool     *pgxpool.Pool
	observer TransitionObserver
}

// NewRevisionService constructs a RevisionService. observer may be nil.
func NewRevisionService(pool *pgxpool.Pool, observer TransitionObserver) RevisionService {
	return &revisionService{pool: pool, observer: observer}
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const budgetColumns = `id, company_id, client_id, region_id, work_name, address, city, state, zip_code, created_at`

func scanBudget(row pgx.Row, b *Budget) error {
	return row.Scan(&b.ID, &b.CompanyID, &b.ClientID, &b.RegionID, &b.WorkName,
		&b.Location.Address, &b.Location.City, &b.Location.State, &b.Location.ZipCode, &b.CreatedAt)
}

const revisionColumns = `id, budget_id, revision_number, status, projeto_id, created_at, updated_at`

func scanRevision(row pgx.Row, r *BudgetRevision) error {
	return row.Scan(&r.ID, &r.BudgetID, &r.RevisionNumber, &r.Status, &r.ProjectID, &r.CreatedAt, &r.UpdatedAt)
}

func (s *revisionService) CreateBudget(ctx context.Context, in Budget) (*Budget, error) {
	if in.WorkName == "" {
		return nil, &ValidationError{Field: "work_name", Message: "must not be empty"}
	}
	var b Budget
	row := s.pool.QueryRow(ctx, `
		INSERT INTO budgets (company_id, client_id, region_id, work_name, address, city, state, zip_code)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+budgetColumns,
		in.CompanyID, in.ClientID, in.RegionID, in.WorkName,
		in.Location.Address, in.Location.City, in.Location.State, in.Location.ZipCode)
	if err := scanBudget(row, &b); err != nil {
		return nil, fmt.Errorf("failed to create budget: %w", err)
	}
	return &b, nil
}

func (s *revisionService) GetBudget(ctx context.Context, budgetID int) (*Budget, error) {
	var b Budget
	row := s.pool.QueryRow(ctx, `SELECT `+budgetColumns+` FROM budgets WHERE id = $1`, budgetID)
	if err := scanBudget(row, &b); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("budget %d: %w", budgetID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch budget %d: %w", budgetID, err)
	}
	return &b, nil
}

func (s *revisionService) CreateRevision(ctx context.Context, budgetID int, fromRevisionID *int) (*BudgetRevision, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the budget so concurrent branches get distinct numbers.
	var locked int
	err = tx.QueryRow(ctx, `SELECT id FROM budgets WHERE id = $1 FOR UPDATE`, budgetID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("budget %d: %w", budgetID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock budget %d: %w", budgetID, err)
	}

	if fromRevisionID != nil {
		var sourceBudget int
		err = tx.QueryRow(ctx, `SELECT budget_id FROM budget_revisions WHERE id = $1`, *fromRevisionID).Scan(&sourceBudget)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("revision %d: %w", *fromRevisionID, ErrNotFound)
			}
			return nil, fmt.Errorf("failed to read source revision %d: %w", *fromRevisionID, err)
		}
		if sourceBudget != budgetID {
			return nil, &ValidationError{Field: "from_revision_id",
				Message: fmt.Sprintf("revision %d belongs to budget %d, not %d", *fromRevisionID, sourceBudget, budgetID)}
		}
	}

	var rev BudgetRevision
	row := tx.QueryRow(ctx, `
		INSERT INTO budget_revisions (budget_id, revision_number, status)
		SELECT $1, COALESCE(MAX(revision_number), 0) + 1, $2
		FROM budget_revisions
		WHERE budget_id = $1
		RETURNING `+revisionColumns,
		budgetID, string(RevisionDraft))
	if err := scanRevision(row, &rev); err != nil {
		return nil, fmt.Errorf("failed to insert revision for budget %d: %w", budgetID, err)
	}

	if fromRevisionID != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO markup_rules (revision_id, markup_pct, allow_per_wbs)
			SELECT $1, markup_pct, allow_per_wbs FROM markup_rules WHERE revision_id = $2
		`, rev.ID, *fromRevisionID)
		if err != nil {
			return nil, fmt.Errorf("failed to copy markup from revision %d: %w", *fromRevisionID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit revision creation: %w", err)
	}
	return &rev, nil
}

func (s *revisionService) GetRevision(ctx context.Context, revisionID int) (*BudgetRevision, error) {
	return getRevision(ctx, s.pool, revisionID, false)
}

func getRevision(ctx context.Context, q pgxQuerier, revisionID int, forUpdate bool) (*BudgetRevision, error) {
	query := `SELECT ` + revisionColumns + ` FROM budget_revisions WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var rev BudgetRevision
	if err := scanRevision(q.QueryRow(ctx, query, revisionID), &rev); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("revision %d: %w", revisionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch revision %d: %w", revisionID, err)
	}
	return &rev, nil
}

func (s *revisionService) ListRevisions(ctx context.Context, budgetID int) ([]BudgetRevision, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+revisionColumns+`
		FROM budget_revisions
		WHERE budget_id = $1
		ORDER BY revision_number
	`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("failed to query revisions: %w", err)
	}
	defer rows.Close()

	var out []BudgetRevision
	for rows.Next() {
		var rev BudgetRevision
		if err := scanRevision(rows, &rev); err != nil {
			return nil, fmt.Errorf("failed to scan revision: %w", err)
		}
		out = append(out, rev)
	}
	return out, rows.Err()
}

func (s *revisionService) TransitionRevision(ctx context.Context, revisionID int, target RevisionStatus) (*BudgetRevision, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := getRevision(ctx, tx, revisionID, true)
	if err != nil {
		return nil, err
	}
	next, err := Transition(*current, target)
	if err != nil {
		return nil, err
	}

	var rev BudgetRevision
	row := tx.QueryRow(ctx, `
		UPDATE budget_revisions
		SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING `+revisionColumns,
		string(next.Status), revisionID)
	if err := scanRevision(row, &rev); err != nil {
		return nil, fmt.Errorf("failed to update revision %d status: %w", revisionID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit revision transition: %w", err)
	}
	if s.observer != nil {
		s.observer.ObserveTransition(current.Status, rev.Status)
	}
	return &rev, nil
}

func (s *revisionService) LinkProject(ctx context.Context, revisionID, projectID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	rev, err := getRevision(ctx, tx, revisionID, true)
	if err != nil {
		return err
	}
	if rev.Status != RevisionApproved {
		return fmt.Errorf("revision %d: %w", revisionID, ErrNotApproved)
	}
	if rev.ProjectID != nil {
		if *rev.ProjectID == projectID {
			return nil
		}
		return fmt.Errorf("revision %d linked to project %d: %w", revisionID, *rev.ProjectID, ErrAlreadyLinked)
	}

	_, err = tx.Exec(ctx, `
		UPDATE budget_revisions SET projeto_id = $1, updated_at = NOW() WHERE id = $2
	`, projectID, revisionID)
	if err != nil {
		return fmt.Errorf("failed to link revision %d to project %d: %w", revisionID, projectID, err)
	}
	return tx.Commit(ctx)
}
