package vesting

import (
	"time"

	"github.com/holiman/uint256"
)

// EventType names a ledger event.
type EventType string

const (
	EventGrantCreated EventType = "grant_created"
	EventClaimed      EventType = "claimed"
	EventPaused       EventType = "paused"
	EventUnpaused     EventType = "unpaused"
	EventRescued      EventType = "rescued"
)

// Event is a state change recorded by the ledger.
type Event interface {
	Type() EventType
	// Subject is the account the event is indexed under.
	Subject() Account
	Time() time.Time
}

// GrantCreated is emitted when a grant is appended.
type GrantCreated struct {
	GrantID     string
	Beneficiary Account
	Principal   uint256.Int
	Bonus       uint256.Int
	Start       time.Time
	Duration    time.Duration
	At          time.Time
}

func (e GrantCreated) Type() EventType  { return EventGrantCreated }
func (e GrantCreated) Subject() Account { return e.Beneficiary }
func (e GrantCreated) Time() time.Time  { return e.At }

// Claimed is emitted when an account's unlocked amounts are paid out.
type Claimed struct {
	Account   Account
	Principal uint256.Int
	Bonus     uint256.Int
	// Amount is Principal plus Bonus, the sum moved to Account.
	Amount uint256.Int
	At     time.Time
}

func (e Claimed) Type() EventType  { return EventClaimed }
func (e Claimed) Subject() Account { return e.Account }
func (e Claimed) Time() time.Time  { return e.At }

// Paused is emitted when the owner halts grant creation and claims.
type Paused struct {
	By Account
	At time.Time
}

func (e Paused) Type() EventType  { return EventPaused }
func (e Paused) Subject() Account { return e.By }
func (e Paused) Time() time.Time  { return e.At }

// Unpaused is emitted when the owner resumes the ledger.
type Unpaused struct {
	By Account
	At time.Time
}

func (e Unpaused) Type() EventType  { return EventUnpaused }
func (e Unpaused) Subject() Account { return e.By }
func (e Unpaused) Time() time.Time  { return e.At }

// Rescued is emitted when the rescuer sweeps the custody balance.
type Rescued struct {
	Rescuer Account
	Amount  uint256.Int
	At      time.Time
}

func (e Rescued) Type() EventType  { return EventRescued }
func (e Rescued) Subject() Account { return e.Rescuer }
func (e Rescued) Time() time.Time  { return e.At }
