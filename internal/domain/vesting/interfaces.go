package vesting

import (
	"context"

	"github.com/holiman/uint256"
)

// GrantRepository stores grants in insertion order.
type GrantRepository interface {
	// Append stores g and creates the beneficiary's claim counters if missing.
	Append(ctx context.Context, g *Grant) error
	ListByBeneficiary(ctx context.Context, beneficiary Account) ([]Grant, error)
}

// AccountRepository stores per-account claim counters.
type AccountRepository interface {
	// Claimed returns zero counters for unknown accounts.
	Claimed(ctx context.Context, account Account) (ClaimedTotals, error)
	SetClaimed(ctx context.Context, account Account, claimed ClaimedTotals) error
}

// StateRepository stores the ledger roles and pause flag.
type StateRepository interface {
	// EnsureRoles records roles on first use and returns ErrRolesMismatch
	// when different roles were recorded before.
	EnsureRoles(ctx context.Context, roles Roles) error
	Paused(ctx context.Context) (bool, error)
	SetPaused(ctx context.Context, paused bool) error
}

// AssetStore moves the vested asset between holders.
type AssetStore interface {
	BalanceOf(ctx context.Context, holder Account) (uint256.Int, error)
	Transfer(ctx context.Context, from, to Account, amount uint256.Int) error
	Deposit(ctx context.Context, holder Account, amount uint256.Int) error
}

// Transactor runs fn so that every store write made through ctx commits
// or rolls back together.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventSink persists events as part of the operation that produced them.
type EventSink interface {
	Emit(ctx context.Context, ev Event) error
}

// Observer is told about events after they commit.
type Observer interface {
	Observe(ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }

// Observers fans an event out to each observer in order.
type Observers []Observer

func (o Observers) Observe(ev Event) {
	for _, obs := range o {
		obs.Observe(ev)
	}
}

type inlineTx struct{}

func (inlineTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type discardSink struct{}

func (discardSink) Emit(context.Context, Event) error { return nil }
