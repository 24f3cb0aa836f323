package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rpggio/tranche/internal/domain/vesting"
	"github.com/rpggio/tranche/internal/repository"
)

// GrantRepository implements vesting.GrantRepository for SQLite
type GrantRepository struct {
	db *DB
}

// NewGrantRepository creates a new GrantRepository
func NewGrantRepository(db *DB) *GrantRepository {
	return &GrantRepository{db: db}
}

// Append inserts a grant, creating the beneficiary's account row on
// first use
func (r *GrantRepository) Append(ctx context.Context, g *vesting.Grant) error {
	q := r.db.conn(ctx)

	if _, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO accounts (account) VALUES (?)`, string(g.Beneficiary)); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	query := `
		INSERT INTO grants (
			id, beneficiary, principal, bonus,
			start_unix, duration_seconds, created_unix
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := q.ExecContext(ctx, query,
		g.ID,
		string(g.Beneficiary),
		g.Principal.Dec(),
		g.Bonus.Dec(),
		g.Start.Unix(),
		int64(g.Duration/time.Second),
		g.CreatedAt.Unix(),
	)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to append grant: %w", err)
	}

	return nil
}

// ListByBeneficiary returns a beneficiary's grants in insertion order
func (r *GrantRepository) ListByBeneficiary(ctx context.Context, beneficiary vesting.Account) ([]vesting.Grant, error) {
	query := `
		SELECT id, beneficiary, principal, bonus, start_unix, duration_seconds, created_unix
		FROM grants
		WHERE beneficiary = ?
		ORDER BY seq ASC
	`

	rows, err := r.db.conn(ctx).QueryContext(ctx, query, string(beneficiary))
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	defer rows.Close()

	var grants []vesting.Grant
	for rows.Next() {
		var g vesting.Grant
		var account string
		var start, duration, created int64
		if err := rows.Scan(
			&g.ID,
			&account,
			&g.Principal,
			&g.Bonus,
			&start,
			&duration,
			&created,
		); err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		g.Beneficiary = vesting.Account(account)
		g.Start = time.Unix(start, 0).UTC()
		g.Duration = time.Duration(duration) * time.Second
		g.CreatedAt = time.Unix(created, 0).UTC()
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate grants: %w", err)
	}

	return grants, nil
}
