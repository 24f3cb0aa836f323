package vesting

import (
	"time"

	"github.com/holiman/uint256"
)

// elapsed returns whole seconds since g.Start, clamped to [0, duration].
func elapsed(g Grant, t time.Time) (secs, total uint64) {
	total = uint64(g.Duration / time.Second)
	if !t.After(g.Start) {
		return 0, total
	}
	// Sub saturates rather than wrapping, so this stays positive.
	secs = uint64(t.Sub(g.Start) / time.Second)
	if secs > total {
		secs = total
	}
	return secs, total
}

// UnlockedPrincipal returns the principal available at t: nothing until
// the full duration has elapsed, everything from then on.
func UnlockedPrincipal(g Grant, t time.Time) uint256.Int {
	secs, total := elapsed(g, t)
	if total == 0 || secs < total {
		return uint256.Int{}
	}
	return g.Principal
}

// UnlockedBonus returns floor(bonus * elapsed / duration) at t.
func UnlockedBonus(g Grant, t time.Time) uint256.Int {
	secs, total := elapsed(g, t)
	var out uint256.Int
	if total == 0 || secs == 0 {
		return out
	}
	if secs == total {
		return g.Bonus
	}
	// The product is carried in 512 bits so the quotient is exact.
	out.MulDivOverflow(&g.Bonus, uint256.NewInt(secs), uint256.NewInt(total))
	return out
}

// Aggregate folds grants into the account totals at t.
func Aggregate(grants []Grant, claimed ClaimedTotals, t time.Time) Totals {
	totals := Totals{
		PrincipalClaimed: claimed.Principal,
		BonusClaimed:     claimed.Bonus,
	}
	for _, g := range grants {
		p, b := UnlockedPrincipal(g, t), UnlockedBonus(g, t)
		totals.PrincipalTotal.Add(&totals.PrincipalTotal, &g.Principal)
		totals.PrincipalAvailable.Add(&totals.PrincipalAvailable, &p)
		totals.BonusTotal.Add(&totals.BonusTotal, &g.Bonus)
		totals.BonusAvailable.Add(&totals.BonusAvailable, &b)
	}
	return totals
}
