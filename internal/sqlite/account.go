package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rpggio/tranche/internal/domain/vesting"
	"github.com/rpggio/tranche/internal/repository"
)

// AccountRepository implements vesting.AccountRepository for SQLite
type AccountRepository struct {
	db *DB
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// Claimed returns the cumulative claimed amounts, zero for unknown accounts
func (r *AccountRepository) Claimed(ctx context.Context, account vesting.Account) (vesting.ClaimedTotals, error) {
	var claimed vesting.ClaimedTotals
	err := r.db.conn(ctx).QueryRowContext(ctx,
		`SELECT claimed_principal, claimed_bonus FROM accounts WHERE account = ?`,
		string(account),
	).Scan(&claimed.Principal, &claimed.Bonus)
	if errors.Is(err, sql.ErrNoRows) {
		return vesting.ClaimedTotals{}, nil
	}
	if err != nil {
		return vesting.ClaimedTotals{}, fmt.Errorf("failed to get claimed totals: %w", err)
	}
	return claimed, nil
}

// SetClaimed overwrites the claimed counters of an existing account
func (r *AccountRepository) SetClaimed(ctx context.Context, account vesting.Account, claimed vesting.ClaimedTotals) error {
	result, err := r.db.conn(ctx).ExecContext(ctx, `
		UPDATE accounts
		SET claimed_principal = ?, claimed_bonus = ?, updated_at = CURRENT_TIMESTAMP
		WHERE account = ?`,
		claimed.Principal.Dec(),
		claimed.Bonus.Dec(),
		string(account),
	)
	if err != nil {
		return fmt.Errorf("failed to update claimed totals: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update claimed totals: %w", err)
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
