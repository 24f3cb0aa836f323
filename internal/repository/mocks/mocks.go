package mocks

import (
	"context"

	"github.com/holiman/uint256"
	"github.com/rpggio/tranche/internal/domain/event"
	"github.com/rpggio/tranche/internal/domain/vesting"
	"github.com/stretchr/testify/mock"
)

// GrantRepository is a mock for vesting.GrantRepository.
type GrantRepository struct {
	mock.Mock
}

func (m *GrantRepository) Append(ctx context.Context, g *vesting.Grant) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}

func (m *GrantRepository) ListByBeneficiary(ctx context.Context, beneficiary vesting.Account) ([]vesting.Grant, error) {
	args := m.Called(ctx, beneficiary)
	if list, ok := args.Get(0).([]vesting.Grant); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// AccountRepository is a mock for vesting.AccountRepository.
type AccountRepository struct {
	mock.Mock
}

func (m *AccountRepository) Claimed(ctx context.Context, account vesting.Account) (vesting.ClaimedTotals, error) {
	args := m.Called(ctx, account)
	if claimed, ok := args.Get(0).(vesting.ClaimedTotals); ok {
		return claimed, args.Error(1)
	}
	return vesting.ClaimedTotals{}, args.Error(1)
}

func (m *AccountRepository) SetClaimed(ctx context.Context, account vesting.Account, claimed vesting.ClaimedTotals) error {
	args := m.Called(ctx, account, claimed)
	return args.Error(0)
}

// StateRepository is a mock for vesting.StateRepository.
type StateRepository struct {
	mock.Mock
}

func (m *StateRepository) EnsureRoles(ctx context.Context, roles vesting.Roles) error {
	args := m.Called(ctx, roles)
	return args.Error(0)
}

func (m *StateRepository) Paused(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *StateRepository) SetPaused(ctx context.Context, paused bool) error {
	args := m.Called(ctx, paused)
	return args.Error(0)
}

// AssetStore is a mock for vesting.AssetStore.
type AssetStore struct {
	mock.Mock
}

func (m *AssetStore) BalanceOf(ctx context.Context, holder vesting.Account) (uint256.Int, error) {
	args := m.Called(ctx, holder)
	if balance, ok := args.Get(0).(uint256.Int); ok {
		return balance, args.Error(1)
	}
	return uint256.Int{}, args.Error(1)
}

func (m *AssetStore) Transfer(ctx context.Context, from, to vesting.Account, amount uint256.Int) error {
	args := m.Called(ctx, from, to, amount)
	return args.Error(0)
}

func (m *AssetStore) Deposit(ctx context.Context, holder vesting.Account, amount uint256.Int) error {
	args := m.Called(ctx, holder, amount)
	return args.Error(0)
}

// EventRepository is a mock for event.Repository.
type EventRepository struct {
	mock.Mock
}

func (m *EventRepository) Append(ctx context.Context, entry *event.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *EventRepository) List(ctx context.Context, opts event.ListOptions) ([]event.Entry, error) {
	args := m.Called(ctx, opts)
	if list, ok := args.Get(0).([]event.Entry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// EventSink is a mock for vesting.EventSink.
type EventSink struct {
	mock.Mock
}

func (m *EventSink) Emit(ctx context.Context, ev vesting.Event) error {
	args := m.Called(ctx, ev)
	return args.Error(0)
}
