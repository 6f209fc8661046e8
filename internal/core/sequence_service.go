package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultOrderPrefix is used when no prefix is configured.
const DefaultOrderPrefix = "PRJ"

// OrderNumberGenerator allocates project order numbers. Every successful call consumes
// a number, so it must only be called when a project is about to be created.
type OrderNumberGenerator interface {
	NextOrderNumber(ctx context.Context, companyID int) (string, error)
}

type orderNumberSequence struct {
	pool   *pgxpool.Pool
	prefix string
	now    func() time.Time
}

// NewOrderNumberSequence builds a gapless per-company, per-year order number generator.
func NewOrderNumberSequence(pool *pgxpool.Pool, prefix string) OrderNumberGenerator {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = DefaultOrderPrefix
	}
	return &orderNumberSequence{pool: pool, prefix: prefix, now: time.Now}
}

// NextOrderNumber increments the sequence in its own transaction and formats the number
// as PREFIX-YYYY-NNNNN.
func (s *orderNumberSequence) NextOrderNumber(ctx context.Context, companyID int) (string, error) {
	year := s.now().Year()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Concurrency-safe gapless sequence generation
	var lastNumber int64
	err = tx.QueryRow(ctx, `
		INSERT INTO project_sequences (company_id, year, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (company_id, year)
		DO UPDATE SET last_number = project_sequences.last_number + 1
		RETURNING last_number
	`, companyID, year).Scan(&lastNumber)
	if err != nil {
		return "", fmt.Errorf("failed to generate gapless sequence number: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit sequence allocation: %w", err)
	}
	return FormatOrderNumber(s.prefix, year, lastNumber), nil
}

// FormatOrderNumber renders an allocated sequence value.
func FormatOrderNumber(prefix string, year int, n int64) string {
	return fmt.Sprintf("%s-%d-%05d", prefix, year, n)
}
