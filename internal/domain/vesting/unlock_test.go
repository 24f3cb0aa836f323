package vesting_test

import (
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/rpggio/tranche/internal/domain/vesting"
	"github.com/stretchr/testify/require"
)

func TestUnlockedBonus_Floors(t *testing.T) {
	g := vesting.Grant{Principal: amt(10), Bonus: amt(10), Start: t0, Duration: 3 * time.Second}

	for secs, want := range []uint64{0, 3, 6, 10} {
		got := vesting.UnlockedBonus(g, t0.Add(time.Duration(secs)*time.Second))
		require.Equal(t, want, got.Uint64(), "after %ds", secs)
	}

	// Partial seconds do not count.
	got := vesting.UnlockedBonus(g, t0.Add(1999*time.Millisecond))
	require.Equal(t, uint64(3), got.Uint64())
}

func TestUnlockedBonus_WideIntermediate(t *testing.T) {
	bonus := new(uint256.Int).Lsh(uint256.NewInt(1), 255)
	g := vesting.Grant{Principal: amt(1), Bonus: *bonus, Start: t0, Duration: 100 * day}

	got := vesting.UnlockedBonus(g, t0.Add(50*day))
	want := new(uint256.Int).Lsh(uint256.NewInt(1), 254)
	require.True(t, got.Eq(want), "got %s", got.Dec())
}

func TestUnlockedPrincipal_Cliff(t *testing.T) {
	g := vesting.Grant{Principal: amt(1000), Bonus: amt(700), Start: t0, Duration: 30 * day}

	p := vesting.UnlockedPrincipal(g, t0.Add(-time.Hour))
	require.True(t, p.IsZero())
	p = vesting.UnlockedPrincipal(g, t0.Add(30*day-time.Second))
	require.True(t, p.IsZero())
	p = vesting.UnlockedPrincipal(g, t0.Add(30*day))
	require.Equal(t, uint64(1000), p.Uint64())

	// Far-future instants saturate rather than overflow.
	p = vesting.UnlockedPrincipal(g, time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC))
	require.Equal(t, uint64(1000), p.Uint64())
}

func TestUnlocked_Monotonic(t *testing.T) {
	g := vesting.Grant{Principal: amt(999_999), Bonus: amt(123_456_789), Start: t0, Duration: 7*day + 13*time.Second}

	var prevP, prevB uint256.Int
	for at := t0.Add(-day); at.Before(t0.Add(8 * day)); at = at.Add(37 * time.Minute) {
		p, b := vesting.UnlockedPrincipal(g, at), vesting.UnlockedBonus(g, at)
		require.False(t, p.Lt(&prevP))
		require.False(t, b.Lt(&prevB))
		require.False(t, b.Gt(&g.Bonus))
		prevP, prevB = p, b
	}
	require.True(t, prevP.Eq(&g.Principal))
	require.True(t, prevB.Eq(&g.Bonus))
}

func TestTotals_ClaimableSaturates(t *testing.T) {
	totals := vesting.Totals{
		PrincipalAvailable: amt(0),
		PrincipalClaimed:   amt(5),
		BonusAvailable:     amt(9),
		BonusClaimed:       amt(4),
	}
	p := totals.ClaimablePrincipal()
	require.True(t, p.IsZero())
	b := totals.ClaimableBonus()
	require.Equal(t, uint64(5), b.Uint64())
	c := totals.Claimable()
	require.Equal(t, uint64(5), c.Uint64())
}
