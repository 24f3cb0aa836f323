package mcp

import (
	"time"

	"github.com/rpggio/tranche/internal/domain/event"
	"github.com/rpggio/tranche/internal/domain/vesting"
)

// Amounts are base-10 strings of base units unless noted otherwise.

type CreateGrantParams struct {
	Beneficiary     string `json:"beneficiary" jsonschema:"account receiving the grant"`
	Principal       string `json:"principal" jsonschema:"principal amount, released in full at the end of the grant"`
	Bonus           string `json:"bonus,omitempty" jsonschema:"bonus amount, released linearly over the grant; defaults to 0"`
	Start           string `json:"start" jsonschema:"vesting start as an RFC3339 timestamp; may be in the past"`
	DurationSeconds int64  `json:"duration_seconds" jsonschema:"vesting duration in seconds"`
	Units           bool   `json:"units,omitempty" jsonschema:"interpret principal and bonus as decimal token units instead of base units"`
}

type AccountParams struct {
	Account string `json:"account" jsonschema:"ledger account"`
}

type GetTotalsParams struct {
	Account string `json:"account" jsonschema:"ledger account"`
	At      string `json:"at,omitempty" jsonschema:"evaluate at this RFC3339 timestamp instead of now"`
}

type ListEventsParams struct {
	Account string `json:"account,omitempty" jsonschema:"only events about this account"`
	Type    string `json:"type,omitempty" jsonschema:"grant_created, claimed, paused, unpaused or rescued"`
	AfterID int64  `json:"after_id,omitempty" jsonschema:"only events with a larger id"`
	Limit   int    `json:"limit,omitempty" jsonschema:"maximum number of events"`
}

type NoParams struct{}

type GrantView struct {
	ID              string `json:"id"`
	Beneficiary     string `json:"beneficiary"`
	Principal       string `json:"principal"`
	Bonus           string `json:"bonus"`
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationSeconds int64  `json:"duration_seconds"`
	CreatedAt       string `json:"created_at"`
}

type GrantsResult struct {
	Account string      `json:"account"`
	Grants  []GrantView `json:"grants"`
}

type TotalsView struct {
	Account            string `json:"account"`
	At                 string `json:"at,omitempty"`
	PrincipalTotal     string `json:"principal_total"`
	PrincipalAvailable string `json:"principal_available"`
	PrincipalClaimed   string `json:"principal_claimed"`
	BonusTotal         string `json:"bonus_total"`
	BonusAvailable     string `json:"bonus_available"`
	BonusClaimed       string `json:"bonus_claimed"`
	Claimable          string `json:"claimable"`
	ClaimableUnits     string `json:"claimable_units"`
	FullyUnlocked      bool   `json:"fully_unlocked"`
}

type ClaimResult struct {
	Account   string `json:"account"`
	Principal string `json:"principal"`
	Bonus     string `json:"bonus"`
	Amount    string `json:"amount"`
	At        string `json:"at"`
}

type PauseResult struct {
	Paused bool   `json:"paused"`
	By     string `json:"by"`
	At     string `json:"at"`
}

type RescueResult struct {
	Rescuer string `json:"rescuer"`
	Amount  string `json:"amount"`
	At      string `json:"at"`
}

type LedgerStateResult struct {
	Owner          string `json:"owner"`
	Rescuer        string `json:"rescuer"`
	Custody        string `json:"custody"`
	Paused         bool   `json:"paused"`
	CustodyBalance string `json:"custody_balance"`
}

type EventView struct {
	ID         int64          `json:"id"`
	Type       string         `json:"type"`
	Account    string         `json:"account"`
	OccurredAt string         `json:"occurred_at"`
	Data       map[string]any `json:"data,omitempty"`
}

type EventsResult struct {
	Events []EventView `json:"events"`
}

func grantView(g vesting.Grant) GrantView {
	return GrantView{
		ID:              g.ID,
		Beneficiary:     g.Beneficiary.String(),
		Principal:       g.Principal.Dec(),
		Bonus:           g.Bonus.Dec(),
		Start:           formatTime(g.Start),
		End:             formatTime(g.End()),
		DurationSeconds: int64(g.Duration / time.Second),
		CreatedAt:       formatTime(g.CreatedAt),
	}
}

func totalsView(account vesting.Account, t vesting.Totals, decimals uint8) TotalsView {
	claimable := t.Claimable()
	return TotalsView{
		Account:            account.String(),
		PrincipalTotal:     t.PrincipalTotal.Dec(),
		PrincipalAvailable: t.PrincipalAvailable.Dec(),
		PrincipalClaimed:   t.PrincipalClaimed.Dec(),
		BonusTotal:         t.BonusTotal.Dec(),
		BonusAvailable:     t.BonusAvailable.Dec(),
		BonusClaimed:       t.BonusClaimed.Dec(),
		Claimable:          claimable.Dec(),
		ClaimableUnits:     vesting.FormatUnits(claimable, decimals),
		FullyUnlocked:      t.FullyUnlocked(),
	}
}

func eventView(e event.Entry) EventView {
	return EventView{
		ID:         e.ID,
		Type:       string(e.Type),
		Account:    e.Account.String(),
		OccurredAt: formatTime(e.OccurredAt),
		Data:       e.Data,
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
