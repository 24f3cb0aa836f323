package vesting_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/rpggio/tranche/internal/domain/vesting"
	"github.com/stretchr/testify/require"
)

const (
	owner   = vesting.Account("0x00000000000000000000000000000000000000a1")
	rescuer = vesting.Account("0x00000000000000000000000000000000000000b2")
	custody = vesting.Account("0x00000000000000000000000000000000000000c3")
	alice   = vesting.Account("0x00000000000000000000000000000000000000d4")
	bob     = vesting.Account("0x00000000000000000000000000000000000000e5")

	day = 24 * time.Hour
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func amt(v uint64) uint256.Int { return *uint256.NewInt(v) }

func tokens(n uint64) uint256.Int { return vesting.TokenUnits(n, vesting.DefaultDecimals) }

type fixture struct {
	svc   *vesting.Service
	store *memStore
	clock *vesting.ManualClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemStore()
	clock := vesting.NewManualClock(t0)
	svc, err := vesting.NewService(vesting.Config{
		Roles:    vesting.Roles{Owner: owner, Rescuer: rescuer, Custody: custody},
		Grants:   store,
		Accounts: store,
		State:    store,
		Assets:   store,
		Tx:       store,
		Events:   store,
		Clock:    clock,
	})
	require.NoError(t, err)
	require.NoError(t, svc.Bootstrap(context.Background()))
	require.NoError(t, store.Deposit(context.Background(), custody, tokens(5_000_000)))
	return &fixture{svc: svc, store: store, clock: clock}
}

func (f *fixture) grant(t *testing.T, beneficiary vesting.Account, principal, bonus uint256.Int, start time.Time, duration time.Duration) *vesting.Grant {
	t.Helper()
	g, err := f.svc.CreateGrant(context.Background(), owner, vesting.CreateGrantRequest{
		Beneficiary: beneficiary,
		Principal:   principal,
		Bonus:       bonus,
		Start:       start,
		Duration:    duration,
	})
	require.NoError(t, err)
	return g
}

func TestNewService_Guards(t *testing.T) {
	store := newMemStore()
	base := vesting.Config{
		Roles:    vesting.Roles{Owner: owner, Rescuer: rescuer, Custody: custody},
		Grants:   store,
		Accounts: store,
		State:    store,
		Assets:   store,
	}

	cfg := base
	cfg.Assets = nil
	_, err := vesting.NewService(cfg)
	require.ErrorIs(t, err, vesting.ErrNoAssetStore)

	cfg = base
	cfg.Roles.Owner = "0x0000000000000000000000000000000000000000"
	_, err = vesting.NewService(cfg)
	require.ErrorIs(t, err, vesting.ErrInvalidRoles)

	cfg = base
	cfg.Roles.Rescuer = owner
	_, err = vesting.NewService(cfg)
	require.ErrorIs(t, err, vesting.ErrInvalidRoles)

	cfg = base
	cfg.Roles.Custody = ""
	_, err = vesting.NewService(cfg)
	require.ErrorIs(t, err, vesting.ErrInvalidRoles)

	svc, err := vesting.NewService(base)
	require.NoError(t, err)
	require.Equal(t, owner, svc.Roles().Owner)
}

func TestBootstrap_RolesMismatch(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	build := func(r vesting.Account) *vesting.Service {
		svc, err := vesting.NewService(vesting.Config{
			Roles:    vesting.Roles{Owner: owner, Rescuer: r, Custody: custody},
			Grants:   store,
			Accounts: store,
			State:    store,
			Assets:   store,
		})
		require.NoError(t, err)
		return svc
	}

	require.NoError(t, build(rescuer).Bootstrap(ctx))
	require.NoError(t, build(rescuer).Bootstrap(ctx))
	require.ErrorIs(t, build(bob).Bootstrap(ctx), vesting.ErrRolesMismatch)
}

func TestCreateGrant_Validation(t *testing.T) {
	maxPrincipal := tokens(vesting.DefaultMaxPrincipalTokens)
	overMax := tokens(vesting.DefaultMaxPrincipalTokens + 1)

	tests := []struct {
		name    string
		caller  vesting.Account
		req     vesting.CreateGrantRequest
		wantErr error
	}{
		{
			name:    "non-owner rejected before validation",
			caller:  alice,
			req:     vesting.CreateGrantRequest{},
			wantErr: vesting.ErrUnauthorized,
		},
		{
			name:    "rescuer cannot create grants",
			caller:  rescuer,
			req:     vesting.CreateGrantRequest{Beneficiary: alice, Principal: amt(1), Start: t0, Duration: 30 * day},
			wantErr: vesting.ErrUnauthorized,
		},
		{
			name:    "null beneficiary checked before principal",
			caller:  owner,
			req:     vesting.CreateGrantRequest{Beneficiary: "0x0000000000000000000000000000000000000000", Start: t0, Duration: day},
			wantErr: vesting.ErrInvalidBeneficiary,
		},
		{
			name:    "zero principal",
			caller:  owner,
			req:     vesting.CreateGrantRequest{Beneficiary: alice, Bonus: amt(5), Start: t0, Duration: 30 * day},
			wantErr: vesting.ErrZeroPrincipal,
		},
		{
			name:    "principal over maximum checked before horizon",
			caller:  owner,
			req:     vesting.CreateGrantRequest{Beneficiary: alice, Principal: overMax, Start: t0, Duration: day},
			wantErr: vesting.ErrPrincipalTooLarge,
		},
		{
			name:   "maximum principal accepted",
			caller: owner,
			req:    vesting.CreateGrantRequest{Beneficiary: alice, Principal: maxPrincipal, Start: t0, Duration: 30 * day},
		},
		{
			name:    "ends in 29 days",
			caller:  owner,
			req:     vesting.CreateGrantRequest{Beneficiary: alice, Principal: amt(1000), Start: t0, Duration: 29 * day},
			wantErr: vesting.ErrHorizonTooSoon,
		},
		{
			name:   "ends in exactly 30 days",
			caller: owner,
			req:    vesting.CreateGrantRequest{Beneficiary: alice, Principal: amt(1000), Start: t0, Duration: 30 * day},
		},
		{
			name:    "started 100 days ago for 120 days",
			caller:  owner,
			req:     vesting.CreateGrantRequest{Beneficiary: alice, Principal: amt(1000), Start: t0.Add(-100 * day), Duration: 120 * day},
			wantErr: vesting.ErrHorizonTooSoon,
		},
		{
			name:   "started 100 days ago for 200 days",
			caller: owner,
			req:    vesting.CreateGrantRequest{Beneficiary: alice, Principal: amt(1000), Start: t0.Add(-100 * day), Duration: 200 * day},
		},
		{
			name:   "starts in 100 days for 1 day",
			caller: owner,
			req:    vesting.CreateGrantRequest{Beneficiary: alice, Principal: amt(1000), Start: t0.Add(100 * day), Duration: day},
		},
		{
			name:    "sub-second duration",
			caller:  owner,
			req:     vesting.CreateGrantRequest{Beneficiary: alice, Principal: amt(1000), Start: t0.Add(100 * day), Duration: 500 * time.Millisecond},
			wantErr: vesting.ErrInvalidDuration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			g, err := f.svc.CreateGrant(context.Background(), tt.caller, tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				require.Nil(t, g)
				require.Empty(t, f.store.eventTypes())
				return
			}
			require.NoError(t, err)
			require.NotEmpty(t, g.ID)
			require.Equal(t, t0, g.CreatedAt)
			require.Equal(t, []vesting.EventType{vesting.EventGrantCreated}, f.store.eventTypes())
		})
	}
}

func TestCreateGrant_TruncatesToSeconds(t *testing.T) {
	f := newFixture(t)
	g := f.grant(t, alice, amt(10), amt(1), t0.Add(1500*time.Millisecond), 30*day+900*time.Millisecond)
	require.Equal(t, t0.Add(time.Second), g.Start)
	require.Equal(t, 30*day, g.Duration)
}

func TestCreateGrant_AmountOverflow(t *testing.T) {
	f := newFixture(t)
	huge := new(uint256.Int).SetAllOne()
	huge.Rsh(huge, 1)

	f.grant(t, alice, amt(1), *huge, t0, 30*day)
	_, err := f.svc.CreateGrant(context.Background(), owner, vesting.CreateGrantRequest{
		Beneficiary: alice,
		Principal:   amt(1),
		Bonus:       *huge,
		Start:       t0,
		Duration:    30 * day,
	})
	require.ErrorIs(t, err, vesting.ErrAmountOverflow)
	require.Equal(t, vesting.KindValidation, vesting.KindOf(err))

	// Other accounts are unaffected.
	f.grant(t, bob, amt(1), *huge, t0, 30*day)
}

func TestTotals_CliffAndRamp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	duration := 60 * day
	f.grant(t, alice, amt(1000), amt(700), t0, duration)

	tests := []struct {
		name             string
		at               time.Time
		principal, bonus uint64
	}{
		{"before start", t0.Add(-day), 0, 0},
		{"at start", t0, 0, 0},
		{"halfway", t0.Add(duration / 2), 0, 350},
		{"one second before end", t0.Add(duration - time.Second), 0, 699},
		{"at end", t0.Add(duration), 1000, 700},
		{"long after end", t0.Add(10 * duration), 1000, 700},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals, err := f.svc.TotalsAt(ctx, alice, tt.at)
			require.NoError(t, err)
			require.Equal(t, uint64(1000), totals.PrincipalTotal.Uint64())
			require.Equal(t, uint64(700), totals.BonusTotal.Uint64())
			require.Equal(t, tt.principal, totals.PrincipalAvailable.Uint64())
			require.Equal(t, tt.bonus, totals.BonusAvailable.Uint64())
			require.True(t, totals.PrincipalClaimed.IsZero())
			require.True(t, totals.BonusClaimed.IsZero())
		})
	}
}

func TestTotals_UnknownAccount(t *testing.T) {
	f := newFixture(t)
	totals, err := f.svc.TotalsNow(context.Background(), bob)
	require.NoError(t, err)
	require.Equal(t, vesting.Totals{}, totals)
}

func TestTotals_MultipleGrants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.grant(t, alice, amt(1000), amt(600), t0, 30*day)
	f.grant(t, alice, amt(500), amt(900), t0.Add(30*day), 90*day)
	f.grant(t, bob, amt(7), amt(7), t0, 30*day)

	totals, err := f.svc.TotalsAt(ctx, alice, t0.Add(60*day))
	require.NoError(t, err)
	require.Equal(t, uint64(1500), totals.PrincipalTotal.Uint64())
	require.Equal(t, uint64(1500), totals.BonusTotal.Uint64())
	require.Equal(t, uint64(1000), totals.PrincipalAvailable.Uint64())
	require.Equal(t, uint64(600+300), totals.BonusAvailable.Uint64())

	grants, err := f.svc.Grants(ctx, alice)
	require.NoError(t, err)
	require.Len(t, grants, 2)
	require.Equal(t, uint64(1000), grants[0].Principal.Uint64())
	require.Equal(t, uint64(500), grants[1].Principal.Uint64())
}

func TestClaimAll_IncrementsByDelta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	duration := 90 * day
	f.grant(t, alice, amt(1000), amt(900), t0, duration)

	f.clock.Set(t0.Add(duration / 3))
	c, err := f.svc.ClaimAll(ctx, owner, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(0), c.Principal.Uint64())
	require.Equal(t, uint64(300), c.Bonus.Uint64())
	require.Equal(t, uint64(300), c.Amount.Uint64())

	f.clock.Set(t0.Add(2 * duration / 3))
	c, err = f.svc.ClaimAll(ctx, owner, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(300), c.Bonus.Uint64())

	totals, err := f.svc.TotalsNow(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(600), totals.BonusClaimed.Uint64())
	require.True(t, totals.Claimable().IsZero())

	bal := f.store.balance(alice)
	require.Equal(t, uint64(600), bal.Uint64())
}

func TestClaimAll_Exhaustion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.grant(t, alice, amt(1000), amt(700), t0, 30*day)

	// Nothing unlocked yet.
	_, err := f.svc.ClaimAll(ctx, owner, alice)
	require.ErrorIs(t, err, vesting.ErrNothingToClaim)

	f.clock.Set(t0.Add(15 * day))
	_, err = f.svc.ClaimAll(ctx, owner, alice)
	require.NoError(t, err)
	_, err = f.svc.ClaimAll(ctx, owner, alice)
	require.ErrorIs(t, err, vesting.ErrNothingToClaim)

	f.clock.Set(t0.Add(40 * day))
	c, err := f.svc.ClaimAll(ctx, owner, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), c.Principal.Uint64())
	require.Equal(t, uint64(350), c.Bonus.Uint64())

	_, err = f.svc.ClaimAll(ctx, owner, alice)
	require.ErrorIs(t, err, vesting.ErrAlreadyClaimedEverything)
	require.Equal(t, vesting.KindSettlement, vesting.KindOf(err))

	bal := f.store.balance(alice)
	require.Equal(t, uint64(1700), bal.Uint64())
}

func TestClaimAll_FullMaturityPaysEverything(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	principal := tokens(1_000_000)
	bonus := tokens(250_000)
	f.grant(t, alice, principal, bonus, t0, 30*day)

	f.clock.Set(t0.Add(31 * day))
	c, err := f.svc.ClaimAll(ctx, owner, alice)
	require.NoError(t, err)

	want := tokens(1_250_000)
	require.True(t, c.Amount.Eq(&want), "got %s", c.Amount.Dec())
	left := f.store.balance(custody)
	wantLeft := tokens(3_750_000)
	require.True(t, left.Eq(&wantLeft), "got %s", left.Dec())
}

func TestClaimAll_NoGrants(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ClaimAll(context.Background(), owner, bob)
	require.ErrorIs(t, err, vesting.ErrNothingToClaim)
}

func TestClaimAll_OwnerOnly(t *testing.T) {
	f := newFixture(t)
	f.grant(t, alice, amt(10), amt(10), t0, 30*day)
	f.clock.Set(t0.Add(31 * day))

	_, err := f.svc.ClaimAll(context.Background(), alice, alice)
	require.ErrorIs(t, err, vesting.ErrUnauthorized)
	require.Equal(t, vesting.KindAuthorization, vesting.KindOf(err))
}

func TestClaimAll_RollsBackOnTransferFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.grant(t, alice, tokens(4_000_000), tokens(2_000_000), t0, 30*day)
	f.clock.Set(t0.Add(31 * day))

	_, err := f.svc.ClaimAll(ctx, owner, alice)
	require.ErrorIs(t, err, errInsufficient)

	totals, err := f.svc.TotalsNow(ctx, alice)
	require.NoError(t, err)
	require.True(t, totals.PrincipalClaimed.IsZero())
	require.True(t, totals.BonusClaimed.IsZero())
	require.Equal(t, []vesting.EventType{vesting.EventGrantCreated}, f.store.eventTypes())
}

func TestClaimAll_RollsBackOnEventFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.grant(t, alice, amt(100), amt(0), t0, 30*day)
	f.clock.Set(t0.Add(31 * day))

	f.store.failEmit = errors.New("disk full")
	_, err := f.svc.ClaimAll(ctx, owner, alice)
	require.ErrorContains(t, err, "disk full")
	require.Equal(t, vesting.KindUnknown, vesting.KindOf(err))

	bal := f.store.balance(alice)
	require.True(t, bal.IsZero())

	f.store.failEmit = nil
	c, err := f.svc.ClaimAll(ctx, owner, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(100), c.Amount.Uint64())
}

func TestPause(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.grant(t, alice, amt(100), amt(50), t0, 30*day)

	_, err := f.svc.Pause(ctx, alice)
	require.ErrorIs(t, err, vesting.ErrUnauthorized)
	_, err = f.svc.Unpause(ctx, owner)
	require.ErrorIs(t, err, vesting.ErrNotPaused)

	ev, err := f.svc.Pause(ctx, owner)
	require.NoError(t, err)
	require.Equal(t, owner, ev.By)
	_, err = f.svc.Pause(ctx, owner)
	require.ErrorIs(t, err, vesting.ErrPaused)

	paused, err := f.svc.Paused(ctx)
	require.NoError(t, err)
	require.True(t, paused)

	// Authorization comes before the pause check.
	_, err = f.svc.CreateGrant(ctx, alice, vesting.CreateGrantRequest{})
	require.ErrorIs(t, err, vesting.ErrUnauthorized)
	// The pause check comes before validation.
	_, err = f.svc.CreateGrant(ctx, owner, vesting.CreateGrantRequest{})
	require.ErrorIs(t, err, vesting.ErrPaused)

	f.clock.Set(t0.Add(31 * day))
	_, err = f.svc.ClaimAll(ctx, owner, alice)
	require.ErrorIs(t, err, vesting.ErrPaused)

	// Reads still work.
	totals, err := f.svc.TotalsNow(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(150), totals.Claimable().Uint64())

	_, err = f.svc.Unpause(ctx, owner)
	require.NoError(t, err)
	c, err := f.svc.ClaimAll(ctx, owner, alice)
	require.NoError(t, err)
	require.Equal(t, uint64(150), c.Amount.Uint64())

	require.Equal(t, []vesting.EventType{
		vesting.EventGrantCreated,
		vesting.EventPaused,
		vesting.EventUnpaused,
		vesting.EventClaimed,
	}, f.store.eventTypes())
}

func TestRescueAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.grant(t, alice, amt(100), amt(50), t0, 30*day)

	_, err := f.svc.RescueAll(ctx, owner)
	require.ErrorIs(t, err, vesting.ErrUnauthorized)

	_, err = f.svc.Pause(ctx, owner)
	require.NoError(t, err)

	ev, err := f.svc.RescueAll(ctx, rescuer)
	require.NoError(t, err)
	want := tokens(5_000_000)
	require.True(t, ev.Amount.Eq(&want))

	got := f.store.balance(rescuer)
	require.True(t, got.Eq(&want))
	left := f.store.balance(custody)
	require.True(t, left.IsZero())

	// Grants and counters are untouched.
	totals, err := f.svc.TotalsAt(ctx, alice, t0.Add(31*day))
	require.NoError(t, err)
	require.Equal(t, uint64(100), totals.PrincipalTotal.Uint64())
	require.True(t, totals.PrincipalClaimed.IsZero())

	// Sweeping an empty custody account succeeds with a zero amount.
	ev, err = f.svc.RescueAll(ctx, rescuer)
	require.NoError(t, err)
	require.True(t, ev.Amount.IsZero())
}

func TestState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	st, err := f.svc.State(ctx)
	require.NoError(t, err)
	require.Equal(t, owner, st.Owner)
	require.Equal(t, rescuer, st.Rescuer)
	require.Equal(t, custody, st.Custody)
	require.False(t, st.Paused)
	want := tokens(5_000_000)
	require.True(t, st.CustodyBalance.Eq(&want))
}

func TestClaimAll_Conservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rng := rand.New(rand.NewPCG(7, 11))

	var principalSum, bonusSum uint256.Int
	var end time.Time
	for range 12 {
		p := amt(1 + rng.Uint64N(1_000_000))
		b := amt(rng.Uint64N(1_000_000))
		start := t0.Add(time.Duration(rng.IntN(60)) * day)
		duration := time.Duration(30+rng.IntN(300))*day + time.Duration(rng.IntN(86400))*time.Second
		g := f.grant(t, alice, p, b, start, duration)
		principalSum.Add(&principalSum, &p)
		bonusSum.Add(&bonusSum, &b)
		if g.End().After(end) {
			end = g.End()
		}
	}

	var paid uint256.Int
	var prev vesting.Totals
	now := t0
	for now.Before(end.Add(day)) {
		now = now.Add(time.Duration(1+rng.IntN(20*86400)) * time.Second)
		f.clock.Set(now)

		totals, err := f.svc.TotalsNow(ctx, alice)
		require.NoError(t, err)
		require.True(t, totals.PrincipalTotal.Eq(&principalSum))
		require.False(t, totals.PrincipalAvailable.Lt(&prev.PrincipalAvailable), "principal went backwards")
		require.False(t, totals.BonusAvailable.Lt(&prev.BonusAvailable), "bonus went backwards")
		prev = totals

		c, err := f.svc.ClaimAll(ctx, owner, alice)
		switch {
		case err == nil:
			paid.Add(&paid, &c.Amount)
		case errors.Is(err, vesting.ErrNothingToClaim), errors.Is(err, vesting.ErrAlreadyClaimedEverything):
		default:
			require.NoError(t, err)
		}

		after, err := f.svc.TotalsNow(ctx, alice)
		require.NoError(t, err)
		require.False(t, after.PrincipalAvailable.Lt(&after.PrincipalClaimed))
		require.False(t, after.BonusAvailable.Lt(&after.BonusClaimed))
	}

	var total uint256.Int
	total.Add(&principalSum, &bonusSum)
	require.True(t, paid.Eq(&total), "paid %s want %s", paid.Dec(), total.Dec())
	bal := f.store.balance(alice)
	require.True(t, bal.Eq(&total))

	_, err := f.svc.ClaimAll(ctx, owner, alice)
	require.ErrorIs(t, err, vesting.ErrAlreadyClaimedEverything)
}

func TestClaimAll_ConcurrentCallersPayOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.grant(t, alice, amt(1000), amt(500), t0, 30*day)
	f.clock.Set(t0.Add(31 * day))

	var wg sync.WaitGroup
	results := make(chan error, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ClaimAll(ctx, owner, alice)
			results <- err
			_, _ = f.svc.TotalsNow(ctx, alice)
		}()
	}
	wg.Wait()
	close(results)

	var ok int
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, vesting.ErrAlreadyClaimedEverything)
	}
	require.Equal(t, 1, ok)
	bal := f.store.balance(alice)
	require.Equal(t, uint64(1500), bal.Uint64())
}
