package event

import (
	"fmt"
	"reflect"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/holiman/uint256"
	"github.com/rpggio/tranche/internal/domain/vesting"
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	// Core deterministic encoding: identical events give identical bytes.
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("event: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("event: CBOR decoder initialization failed: " + err.Error())
	}
}

// payload is the stored form of every event type. Amounts are decimal
// strings of base units.
type payload struct {
	GrantID         string `cbor:"grant_id,omitempty"`
	Account         string `cbor:"account,omitempty"`
	Principal       string `cbor:"principal,omitempty"`
	Bonus           string `cbor:"bonus,omitempty"`
	Amount          string `cbor:"amount,omitempty"`
	Start           int64  `cbor:"start,omitempty"`
	DurationSeconds int64  `cbor:"duration_seconds,omitempty"`
}

// Encode converts ev into an Entry ready to be appended.
func Encode(ev vesting.Event) (*Entry, error) {
	if ev == nil {
		return nil, ErrInvalidInput
	}
	var p payload
	switch e := ev.(type) {
	case vesting.GrantCreated:
		p = payload{
			GrantID:         e.GrantID,
			Account:         string(e.Beneficiary),
			Principal:       e.Principal.Dec(),
			Bonus:           e.Bonus.Dec(),
			Start:           e.Start.Unix(),
			DurationSeconds: int64(e.Duration / time.Second),
		}
	case vesting.Claimed:
		p = payload{
			Account:   string(e.Account),
			Principal: e.Principal.Dec(),
			Bonus:     e.Bonus.Dec(),
			Amount:    e.Amount.Dec(),
		}
	case vesting.Paused:
		p = payload{Account: string(e.By)}
	case vesting.Unpaused:
		p = payload{Account: string(e.By)}
	case vesting.Rescued:
		p = payload{Account: string(e.Rescuer), Amount: e.Amount.Dec()}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, ev)
	}

	data, err := encMode.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", ev.Type(), err)
	}
	return &Entry{
		Type:       ev.Type(),
		Account:    ev.Subject(),
		Payload:    data,
		OccurredAt: ev.Time(),
	}, nil
}

// Decode rebuilds the ledger event stored in entry.
func Decode(entry Entry) (vesting.Event, error) {
	var p payload
	if err := decMode.Unmarshal(entry.Payload, &p); err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", entry.Type, err)
	}
	amount := func(s string) (uint256.Int, error) {
		if s == "" {
			return uint256.Int{}, nil
		}
		return vesting.ParseAmount(s)
	}
	principal, err := amount(p.Principal)
	if err != nil {
		return nil, err
	}
	bonus, err := amount(p.Bonus)
	if err != nil {
		return nil, err
	}
	total, err := amount(p.Amount)
	if err != nil {
		return nil, err
	}

	account := vesting.Account(p.Account)
	at := entry.OccurredAt
	switch entry.Type {
	case vesting.EventGrantCreated:
		return vesting.GrantCreated{
			GrantID:     p.GrantID,
			Beneficiary: account,
			Principal:   principal,
			Bonus:       bonus,
			Start:       time.Unix(p.Start, 0).UTC(),
			Duration:    time.Duration(p.DurationSeconds) * time.Second,
			At:          at,
		}, nil
	case vesting.EventClaimed:
		return vesting.Claimed{Account: account, Principal: principal, Bonus: bonus, Amount: total, At: at}, nil
	case vesting.EventPaused:
		return vesting.Paused{By: account, At: at}, nil
	case vesting.EventUnpaused:
		return vesting.Unpaused{By: account, At: at}, nil
	case vesting.EventRescued:
		return vesting.Rescued{Rescuer: account, Amount: total, At: at}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, entry.Type)
	}
}

// DecodeData decodes a payload into a generic map for display.
func DecodeData(data []byte) (map[string]any, error) {
	var m map[string]any
	if err := decMode.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return m, nil
}
