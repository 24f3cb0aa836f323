package vesting_test

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/holiman/uint256"
	"github.com/rpggio/tranche/internal/domain/vesting"
)

var errInsufficient = errors.New("insufficient balance")

// memStore backs every ledger port with maps. WithinTx restores a
// snapshot when fn fails, so tests can observe rollback.
type memStore struct {
	mu       sync.RWMutex
	grants   []vesting.Grant
	claimed  map[vesting.Account]vesting.ClaimedTotals
	roles    *vesting.Roles
	paused   bool
	balances map[vesting.Account]uint256.Int
	events   []vesting.Event

	failEmit error
}

func newMemStore() *memStore {
	return &memStore{
		claimed:  map[vesting.Account]vesting.ClaimedTotals{},
		balances: map[vesting.Account]uint256.Int{},
	}
}

type memSnapshot struct {
	grants   []vesting.Grant
	claimed  map[vesting.Account]vesting.ClaimedTotals
	roles    *vesting.Roles
	paused   bool
	balances map[vesting.Account]uint256.Int
	events   []vesting.Event
}

func (m *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.RLock()
	snap := memSnapshot{
		grants:   slices.Clone(m.grants),
		claimed:  maps.Clone(m.claimed),
		roles:    m.roles,
		paused:   m.paused,
		balances: maps.Clone(m.balances),
		events:   slices.Clone(m.events),
	}
	m.mu.RUnlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.grants, m.claimed, m.roles = snap.grants, snap.claimed, snap.roles
		m.paused, m.balances, m.events = snap.paused, snap.balances, snap.events
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) Append(_ context.Context, g *vesting.Grant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grants = append(m.grants, *g)
	if _, ok := m.claimed[g.Beneficiary]; !ok {
		m.claimed[g.Beneficiary] = vesting.ClaimedTotals{}
	}
	return nil
}

func (m *memStore) ListByBeneficiary(_ context.Context, beneficiary vesting.Account) ([]vesting.Grant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []vesting.Grant
	for _, g := range m.grants {
		if g.Beneficiary == beneficiary {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memStore) Claimed(_ context.Context, account vesting.Account) (vesting.ClaimedTotals, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.claimed[account], nil
}

func (m *memStore) SetClaimed(_ context.Context, account vesting.Account, claimed vesting.ClaimedTotals) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.claimed[account] = claimed
	return nil
}

func (m *memStore) EnsureRoles(_ context.Context, roles vesting.Roles) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.roles == nil {
		m.roles = &roles
		return nil
	}
	if *m.roles != roles {
		return vesting.ErrRolesMismatch
	}
	return nil
}

func (m *memStore) Paused(context.Context) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused, nil
}

func (m *memStore) SetPaused(_ context.Context, paused bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = paused
	return nil
}

func (m *memStore) BalanceOf(_ context.Context, holder vesting.Account) (uint256.Int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[holder], nil
}

func (m *memStore) Transfer(_ context.Context, from, to vesting.Account, amount uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	fromBal, toBal := m.balances[from], m.balances[to]
	if fromBal.Lt(&amount) {
		return errInsufficient
	}
	fromBal.Sub(&fromBal, &amount)
	toBal.Add(&toBal, &amount)
	m.balances[from], m.balances[to] = fromBal, toBal
	return nil
}

func (m *memStore) Deposit(_ context.Context, holder vesting.Account, amount uint256.Int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bal := m.balances[holder]
	bal.Add(&bal, &amount)
	m.balances[holder] = bal
	return nil
}

func (m *memStore) Emit(_ context.Context, ev vesting.Event) error {
	if m.failEmit != nil {
		return m.failEmit
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memStore) eventTypes() []vesting.EventType {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var types []vesting.EventType
	for _, ev := range m.events {
		types = append(types, ev.Type())
	}
	return types
}

func (m *memStore) balance(holder vesting.Account) uint256.Int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.balances[holder]
}
