package vesting

import (
	"time"

	"github.com/holiman/uint256"
)

// normalizeRequest drops sub-second precision; ledger time is counted in
// whole seconds.
func normalizeRequest(req CreateGrantRequest) CreateGrantRequest {
	req.Beneficiary = ParseAccount(string(req.Beneficiary))
	req.Start = req.Start.Truncate(time.Second)
	req.Duration = req.Duration.Truncate(time.Second)
	return req
}

// ValidateGrant applies the grant rules at ledger time now. The first
// failing rule decides the error.
func ValidateGrant(req CreateGrantRequest, now time.Time, policy Policy) error {
	if req.Beneficiary.IsNull() {
		return ErrInvalidBeneficiary
	}
	if req.Principal.IsZero() {
		return ErrZeroPrincipal
	}
	if req.Principal.Gt(&policy.MaxPrincipal) {
		return ErrPrincipalTooLarge
	}
	if req.Start.Add(req.Duration).Before(now.Add(policy.MinHorizon)) {
		return ErrHorizonTooSoon
	}
	if req.Duration < time.Second {
		return ErrInvalidDuration
	}
	return nil
}

// checkCapacity fails when adding req to existing would push the
// account's combined principal and bonus past 256 bits.
func checkCapacity(existing []Grant, req CreateGrantRequest) error {
	var sum uint256.Int
	add := func(v *uint256.Int) bool {
		_, overflow := sum.AddOverflow(&sum, v)
		return overflow
	}
	for i := range existing {
		if add(&existing[i].Principal) || add(&existing[i].Bonus) {
			return ErrAmountOverflow
		}
	}
	if add(&req.Principal) || add(&req.Bonus) {
		return ErrAmountOverflow
	}
	return nil
}
