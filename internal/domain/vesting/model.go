package vesting

import (
	"strings"
	"time"

	"github.com/holiman/uint256"
)

const (
	// DefaultDecimals is the number of fractional digits of one token.
	DefaultDecimals = 18
	// DefaultMaxPrincipalTokens caps a single grant's principal, in whole tokens.
	DefaultMaxPrincipalTokens = 100_000_000
	// DefaultMinHorizon is how far past creation a grant must at least end.
	DefaultMinHorizon = 30 * 24 * time.Hour
)

// Account identifies a beneficiary, a role holder or a balance holder.
type Account string

// ParseAccount trims s and lowercases hex addresses so that equal
// addresses compare equal.
func ParseAccount(s string) Account {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = strings.ToLower(s)
	}
	return Account(s)
}

// IsNull reports whether a is the null account: empty, or a hex
// address made only of zeros.
func (a Account) IsNull() bool {
	s := strings.TrimSpace(string(a))
	if s == "" {
		return true
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return false
	}
	return strings.Trim(s[2:], "0") == ""
}

func (a Account) String() string { return string(a) }

// Roles are the accounts fixed at ledger construction.
type Roles struct {
	Owner   Account
	Rescuer Account
	// Custody is the account in the asset store that holds unclaimed funds.
	Custody Account
}

// Validate checks that owner and rescuer are set and distinct and that
// the custody account is set.
func (r Roles) Validate() error {
	if r.Owner.IsNull() || r.Rescuer.IsNull() || r.Custody.IsNull() {
		return ErrInvalidRoles
	}
	if r.Owner == r.Rescuer {
		return ErrInvalidRoles
	}
	return nil
}

func (r Roles) normalized() Roles {
	return Roles{
		Owner:   ParseAccount(string(r.Owner)),
		Rescuer: ParseAccount(string(r.Rescuer)),
		Custody: ParseAccount(string(r.Custody)),
	}
}

// Policy holds the grant limits.
type Policy struct {
	MaxPrincipal uint256.Int
	MinHorizon   time.Duration
}

// DefaultPolicy returns the 100M token cap at 18 decimals and a 30 day horizon.
func DefaultPolicy() Policy {
	return Policy{
		MaxPrincipal: TokenUnits(DefaultMaxPrincipalTokens, DefaultDecimals),
		MinHorizon:   DefaultMinHorizon,
	}
}

// Grant is one scheduled award. Grants are never modified after creation.
type Grant struct {
	ID          string
	Beneficiary Account
	// Principal unlocks in full once Duration has elapsed.
	Principal uint256.Int
	// Bonus unlocks linearly over Duration.
	Bonus     uint256.Int
	Start     time.Time
	Duration  time.Duration
	CreatedAt time.Time
}

// End returns the instant the grant is fully unlocked.
func (g Grant) End() time.Time {
	return g.Start.Add(g.Duration)
}

// ClaimedTotals are the cumulative amounts withdrawn by an account.
type ClaimedTotals struct {
	Principal uint256.Int
	Bonus     uint256.Int
}

// Totals is an account's vesting position at a point in time.
type Totals struct {
	PrincipalTotal     uint256.Int
	PrincipalAvailable uint256.Int
	PrincipalClaimed   uint256.Int
	BonusTotal         uint256.Int
	BonusAvailable     uint256.Int
	BonusClaimed       uint256.Int
}

// ClaimablePrincipal is PrincipalAvailable minus PrincipalClaimed, or zero
// when evaluated at a time before the last claim.
func (t Totals) ClaimablePrincipal() uint256.Int {
	return saturatingSub(t.PrincipalAvailable, t.PrincipalClaimed)
}

// ClaimableBonus is BonusAvailable minus BonusClaimed, floored at zero.
func (t Totals) ClaimableBonus() uint256.Int {
	return saturatingSub(t.BonusAvailable, t.BonusClaimed)
}

// Claimable is the amount a claim at this instant would pay.
func (t Totals) Claimable() uint256.Int {
	p, b := t.ClaimablePrincipal(), t.ClaimableBonus()
	var sum uint256.Int
	sum.Add(&p, &b)
	return sum
}

// FullyUnlocked reports whether both tranches are available in full.
func (t Totals) FullyUnlocked() bool {
	return t.PrincipalAvailable.Eq(&t.PrincipalTotal) && t.BonusAvailable.Eq(&t.BonusTotal)
}

func saturatingSub(x, y uint256.Int) uint256.Int {
	var z uint256.Int
	if x.Lt(&y) {
		return z
	}
	z.Sub(&x, &y)
	return z
}

// LedgerState describes the ledger's roles, pause flag and custody holdings.
type LedgerState struct {
	Roles
	Paused         bool
	CustodyBalance uint256.Int
}

// CreateGrantRequest describes a grant to create.
type CreateGrantRequest struct {
	Beneficiary Account
	Principal   uint256.Int
	Bonus       uint256.Int
	Start       time.Time
	Duration    time.Duration
}
