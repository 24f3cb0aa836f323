package event

import (
	"time"

	"github.com/rpggio/tranche/internal/domain/vesting"
)

// Entry is one persisted ledger event.
type Entry struct {
	ID         int64             `json:"id"`
	Type       vesting.EventType `json:"type"`
	Account    vesting.Account   `json:"account"`
	Payload    []byte            `json:"-"`
	OccurredAt time.Time         `json:"occurred_at"`
	// Data is Payload decoded for display; set by Service.List.
	Data map[string]any `json:"data,omitempty"`
}

// ListOptions filters the event log. Entries are returned oldest first.
type ListOptions struct {
	Account vesting.Account
	Type    vesting.EventType
	// AfterID skips entries up to and including this id.
	AfterID int64
	Limit   int
}
