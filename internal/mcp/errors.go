package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/tranche/internal/domain/vesting"
	"github.com/rpggio/tranche/internal/transport"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	if e.RecoveryHint == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.RecoveryHint)
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

func (e *APIError) DetailsValue() any {
	return e.Details
}

func (e *APIError) RecoveryHintValue() string {
	return e.RecoveryHint
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, vesting.ErrUnauthorized), errors.Is(err, transport.ErrUnauthorized):
		return &APIError{Code: "UNAUTHORIZED", Message: "caller lacks the required role", RecoveryHint: "Check get_ledger_state for owner and rescuer"}
	case errors.Is(err, vesting.ErrPaused):
		return &APIError{Code: "PAUSED", Message: "ledger is paused", RecoveryHint: "Owner must call unpause first"}
	case errors.Is(err, vesting.ErrNotPaused):
		return &APIError{Code: "NOT_PAUSED", Message: "ledger is not paused"}
	case errors.Is(err, vesting.ErrInvalidBeneficiary):
		return &APIError{Code: "INVALID_BENEFICIARY", Message: "beneficiary is the null account", RecoveryHint: "Pass a non-zero account"}
	case errors.Is(err, vesting.ErrZeroPrincipal):
		return &APIError{Code: "ZERO_PRINCIPAL", Message: "principal must be positive"}
	case errors.Is(err, vesting.ErrPrincipalTooLarge):
		return &APIError{Code: "PRINCIPAL_TOO_LARGE", Message: "principal exceeds the per-grant maximum", RecoveryHint: "Split the award into several grants"}
	case errors.Is(err, vesting.ErrHorizonTooSoon):
		return &APIError{Code: "HORIZON_TOO_SOON", Message: "grant ends before the minimum horizon", RecoveryHint: "Extend duration or move start later"}
	case errors.Is(err, vesting.ErrInvalidDuration):
		return &APIError{Code: "INVALID_DURATION", Message: "duration must be at least one second"}
	case errors.Is(err, vesting.ErrAmountOverflow):
		return &APIError{Code: "AMOUNT_OVERFLOW", Message: "account totals would overflow"}
	case errors.Is(err, vesting.ErrInvalidAmount):
		return &APIError{Code: "INVALID_AMOUNT", Message: err.Error(), RecoveryHint: "Amounts are base-10 integers of base units unless units=true"}
	case errors.Is(err, vesting.ErrNothingToClaim):
		return &APIError{Code: "NOTHING_TO_CLAIM", Message: "no unlocked amount to claim", RecoveryHint: "Check get_totals for the next unlock"}
	case errors.Is(err, vesting.ErrAlreadyClaimedEverything):
		return &APIError{Code: "ALREADY_CLAIMED_EVERYTHING", Message: "every grant is fully claimed"}
	case errors.Is(err, errInvalidArgument):
		return &APIError{Code: "INVALID_ARGUMENT", Message: err.Error()}
	default:
		return nil
	}
}

var errInvalidArgument = errors.New("invalid argument")

func invalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errInvalidArgument, fmt.Sprintf(format, args...))
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}
