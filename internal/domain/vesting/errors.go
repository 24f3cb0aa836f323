package vesting

import "errors"

var (
	// ErrUnauthorized indicates the caller does not hold the role the operation requires.
	ErrUnauthorized = errors.New("caller is not authorized")
	// ErrPaused indicates the ledger is paused.
	ErrPaused = errors.New("ledger is paused")
	// ErrNotPaused indicates an unpause was requested while the ledger is running.
	ErrNotPaused = errors.New("ledger is not paused")

	// ErrInvalidBeneficiary indicates the beneficiary is the null account.
	ErrInvalidBeneficiary = errors.New("beneficiary is the null account")
	// ErrZeroPrincipal indicates a grant with no principal.
	ErrZeroPrincipal = errors.New("principal must be greater than zero")
	// ErrPrincipalTooLarge indicates the principal exceeds the per-grant maximum.
	ErrPrincipalTooLarge = errors.New("principal exceeds maximum")
	// ErrHorizonTooSoon indicates the grant ends before the minimum future horizon.
	ErrHorizonTooSoon = errors.New("grant ends before the minimum horizon")
	// ErrInvalidDuration indicates a duration shorter than one second.
	ErrInvalidDuration = errors.New("duration must be at least one second")
	// ErrAmountOverflow indicates the account totals would no longer fit in 256 bits.
	ErrAmountOverflow = errors.New("account totals overflow")
	// ErrInvalidAmount indicates an amount string that is not a non-negative integer.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrNothingToClaim indicates no new amount has unlocked since the last claim.
	ErrNothingToClaim = errors.New("nothing to claim")
	// ErrAlreadyClaimedEverything indicates every grant is fully unlocked and claimed.
	ErrAlreadyClaimedEverything = errors.New("already claimed everything")

	// ErrInvalidRoles indicates a null owner or rescuer, or both roles held by one account.
	ErrInvalidRoles = errors.New("invalid ledger roles")
	// ErrRolesMismatch indicates the stored roles differ from the configured ones.
	ErrRolesMismatch = errors.New("configured roles differ from stored roles")
	// ErrNoAssetStore indicates the ledger was built without an asset store.
	ErrNoAssetStore = errors.New("asset store is required")
)

// Kind groups ledger errors by the layer that raised them.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthorization
	KindValidation
	KindSettlement
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindValidation:
		return "validation"
	case KindSettlement:
		return "settlement"
	default:
		return "unknown"
	}
}

// KindOf classifies err. Storage and construction errors are KindUnknown.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrPaused), errors.Is(err, ErrNotPaused):
		return KindAuthorization
	case errors.Is(err, ErrInvalidBeneficiary),
		errors.Is(err, ErrZeroPrincipal),
		errors.Is(err, ErrPrincipalTooLarge),
		errors.Is(err, ErrHorizonTooSoon),
		errors.Is(err, ErrInvalidDuration),
		errors.Is(err, ErrAmountOverflow),
		errors.Is(err, ErrInvalidAmount):
		return KindValidation
	case errors.Is(err, ErrNothingToClaim), errors.Is(err, ErrAlreadyClaimedEverything):
		return KindSettlement
	default:
		return KindUnknown
	}
}
