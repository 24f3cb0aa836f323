package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/rpggio/tranche/internal/domain/event"
	"github.com/rpggio/tranche/internal/domain/vesting"
	"github.com/rpggio/tranche/internal/repository"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T, db *DB, clock vesting.Clock) *vesting.Service {
	t.Helper()
	svc, err := vesting.NewService(vesting.Config{
		Roles:    vesting.Roles{Owner: "0xa1", Rescuer: "0xb2", Custody: "0xc3"},
		Grants:   NewGrantRepository(db),
		Accounts: NewAccountRepository(db),
		State:    NewStateRepository(db),
		Assets:   NewAssetStore(db),
		Tx:       db,
		Events:   event.NewService(NewEventRepository(db), nil),
		Clock:    clock,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Bootstrap(context.Background()))
	return svc
}

func TestLedger_ClaimSettlesAtomically(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	clock := vesting.NewManualClock(t0)
	svc := newTestLedger(t, db, clock)
	assets := NewAssetStore(db)
	events := NewEventRepository(db)

	_, err := svc.CreateGrant(ctx, "0xa1", vesting.CreateGrantRequest{
		Beneficiary: "0xd4",
		Principal:   *uint256.NewInt(1000),
		Bonus:       *uint256.NewInt(700),
		Start:       t0,
		Duration:    30 * 24 * time.Hour,
	})
	require.NoError(t, err)

	// Custody holds less than the matured amount: the claim must leave no trace.
	require.NoError(t, assets.Deposit(ctx, "0xc3", *uint256.NewInt(1500)))
	clock.Set(t0.Add(31 * 24 * time.Hour))
	_, err = svc.ClaimAll(ctx, "0xa1", "0xd4")
	require.ErrorIs(t, err, repository.ErrInsufficientBalance)

	totals, err := svc.TotalsNow(ctx, "0xd4")
	require.NoError(t, err)
	require.True(t, totals.PrincipalClaimed.IsZero())
	entries, err := events.List(ctx, event.ListOptions{Type: vesting.EventClaimed})
	require.NoError(t, err)
	require.Empty(t, entries)

	require.NoError(t, assets.Deposit(ctx, "0xc3", *uint256.NewInt(200)))
	c, err := svc.ClaimAll(ctx, "0xa1", "0xd4")
	require.NoError(t, err)
	require.Equal(t, uint64(1700), c.Amount.Uint64())

	bal, err := assets.BalanceOf(ctx, "0xd4")
	require.NoError(t, err)
	require.Equal(t, uint64(1700), bal.Uint64())

	_, err = svc.ClaimAll(ctx, "0xa1", "0xd4")
	require.ErrorIs(t, err, vesting.ErrAlreadyClaimedEverything)

	entries, err = events.List(ctx, event.ListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, vesting.EventGrantCreated, entries[0].Type)
	require.Equal(t, vesting.EventClaimed, entries[1].Type)
}

func TestLedger_PauseAndRescue(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	svc := newTestLedger(t, db, vesting.NewManualClock(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))
	assets := NewAssetStore(db)
	require.NoError(t, assets.Deposit(ctx, "0xc3", *uint256.NewInt(5000)))

	_, err := svc.Pause(ctx, "0xa1")
	require.NoError(t, err)

	st, err := svc.State(ctx)
	require.NoError(t, err)
	require.True(t, st.Paused)

	r, err := svc.RescueAll(ctx, "0xb2")
	require.NoError(t, err)
	require.Equal(t, uint64(5000), r.Amount.Uint64())

	bal, err := assets.BalanceOf(ctx, "0xb2")
	require.NoError(t, err)
	require.Equal(t, uint64(5000), bal.Uint64())

	// A restart with different roles is refused.
	other, err := vesting.NewService(vesting.Config{
		Roles:    vesting.Roles{Owner: "0xa1", Rescuer: "0xee", Custody: "0xc3"},
		Grants:   NewGrantRepository(db),
		Accounts: NewAccountRepository(db),
		State:    NewStateRepository(db),
		Assets:   assets,
		Tx:       db,
	})
	require.NoError(t, err)
	require.ErrorIs(t, other.Bootstrap(ctx), vesting.ErrRolesMismatch)
}
