package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rpggio/tranche/internal/domain/vesting"
)

// StateRepository implements vesting.StateRepository for SQLite
type StateRepository struct {
	db *DB
}

// NewStateRepository creates a new StateRepository
func NewStateRepository(db *DB) *StateRepository {
	return &StateRepository{db: db}
}

// EnsureRoles stores roles on first use and compares them afterwards
func (r *StateRepository) EnsureRoles(ctx context.Context, roles vesting.Roles) error {
	q := r.db.conn(ctx)

	var stored vesting.Roles
	var owner, rescuer, custody string
	err := q.QueryRowContext(ctx,
		`SELECT owner, rescuer, custody FROM ledger_state WHERE id = 1`,
	).Scan(&owner, &rescuer, &custody)
	if errors.Is(err, sql.ErrNoRows) {
		_, err := q.ExecContext(ctx,
			`INSERT INTO ledger_state (id, owner, rescuer, custody) VALUES (1, ?, ?, ?)`,
			string(roles.Owner), string(roles.Rescuer), string(roles.Custody))
		if err != nil {
			return fmt.Errorf("failed to store roles: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to get roles: %w", err)
	}

	stored = vesting.Roles{
		Owner:   vesting.Account(owner),
		Rescuer: vesting.Account(rescuer),
		Custody: vesting.Account(custody),
	}
	if stored != roles {
		return fmt.Errorf("%w: stored owner %s rescuer %s custody %s",
			vesting.ErrRolesMismatch, stored.Owner, stored.Rescuer, stored.Custody)
	}
	return nil
}

// Paused reports the pause flag; a ledger without state is not paused
func (r *StateRepository) Paused(ctx context.Context) (bool, error) {
	var paused bool
	err := r.db.conn(ctx).QueryRowContext(ctx,
		`SELECT paused FROM ledger_state WHERE id = 1`).Scan(&paused)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get pause flag: %w", err)
	}
	return paused, nil
}

// SetPaused updates the pause flag
func (r *StateRepository) SetPaused(ctx context.Context, paused bool) error {
	result, err := r.db.conn(ctx).ExecContext(ctx,
		`UPDATE ledger_state SET paused = ?, updated_at = CURRENT_TIMESTAMP WHERE id = 1`, paused)
	if err != nil {
		return fmt.Errorf("failed to set pause flag: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to set pause flag: %w", err)
	}
	if n == 0 {
		return errors.New("ledger state not initialized")
	}
	return nil
}
