package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/rpggio/tranche/internal/domain/vesting"
	"github.com/rpggio/tranche/internal/repository"
)

// AssetStore implements vesting.AssetStore as a balance table in the
// ledger database
type AssetStore struct {
	db *DB
}

// NewAssetStore creates a new AssetStore
func NewAssetStore(db *DB) *AssetStore {
	return &AssetStore{db: db}
}

// BalanceOf returns the holder's balance, zero for unknown holders
func (s *AssetStore) BalanceOf(ctx context.Context, holder vesting.Account) (uint256.Int, error) {
	return s.balance(ctx, s.db.conn(ctx), holder)
}

func (s *AssetStore) balance(ctx context.Context, q querier, holder vesting.Account) (uint256.Int, error) {
	var amount uint256.Int
	err := q.QueryRowContext(ctx,
		`SELECT amount FROM balances WHERE holder = ?`, string(holder)).Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return uint256.Int{}, nil
	}
	if err != nil {
		return uint256.Int{}, fmt.Errorf("failed to get balance: %w", err)
	}
	return amount, nil
}

func (s *AssetStore) setBalance(ctx context.Context, q querier, holder vesting.Account, amount uint256.Int) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO balances (holder, amount) VALUES (?, ?)
		ON CONFLICT(holder) DO UPDATE SET amount = excluded.amount, updated_at = CURRENT_TIMESTAMP`,
		string(holder), amount.Dec())
	if err != nil {
		return fmt.Errorf("failed to set balance: %w", err)
	}
	return nil
}

// Transfer moves amount from one holder to another
func (s *AssetStore) Transfer(ctx context.Context, from, to vesting.Account, amount uint256.Int) error {
	return s.db.WithinTx(ctx, func(ctx context.Context) error {
		q := s.db.conn(ctx)

		fromBal, err := s.balance(ctx, q, from)
		if err != nil {
			return err
		}
		if fromBal.Lt(&amount) {
			return fmt.Errorf("%w: %s holds %s, needs %s",
				repository.ErrInsufficientBalance, from, fromBal.Dec(), amount.Dec())
		}
		if from == to {
			return nil
		}
		toBal, err := s.balance(ctx, q, to)
		if err != nil {
			return err
		}
		if _, overflow := toBal.AddOverflow(&toBal, &amount); overflow {
			return vesting.ErrAmountOverflow
		}
		fromBal.Sub(&fromBal, &amount)

		if err := s.setBalance(ctx, q, from, fromBal); err != nil {
			return err
		}
		return s.setBalance(ctx, q, to, toBal)
	})
}

// Deposit credits amount to holder, funding the ledger when holder is
// the custody account
func (s *AssetStore) Deposit(ctx context.Context, holder vesting.Account, amount uint256.Int) error {
	return s.db.WithinTx(ctx, func(ctx context.Context) error {
		q := s.db.conn(ctx)
		bal, err := s.balance(ctx, q, holder)
		if err != nil {
			return err
		}
		if _, overflow := bal.AddOverflow(&bal, &amount); overflow {
			return vesting.ErrAmountOverflow
		}
		return s.setBalance(ctx, q, holder, bal)
	})
}
