package vesting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config wires a Service.
type Config struct {
	Roles Roles
	// Policy defaults to DefaultPolicy when nil.
	Policy *Policy

	Grants   GrantRepository
	Accounts AccountRepository
	State    StateRepository
	Assets   AssetStore

	// Tx defaults to running operations without a transaction.
	Tx Transactor
	// Events defaults to discarding events.
	Events   EventSink
	Observer Observer
	Clock    Clock
	Logger   *slog.Logger
}

// Service is the vesting ledger. Mutations are serialized and each one
// commits atomically through the Transactor.
type Service struct {
	mu sync.Mutex

	roles  Roles
	policy Policy

	grants   GrantRepository
	accounts AccountRepository
	state    StateRepository
	assets   AssetStore
	tx       Transactor
	events   EventSink
	observer Observer
	clock    Clock
	logger   *slog.Logger
}

// NewService validates cfg and builds a Service.
func NewService(cfg Config) (*Service, error) {
	roles := cfg.Roles.normalized()
	if err := roles.Validate(); err != nil {
		return nil, err
	}
	if cfg.Assets == nil {
		return nil, ErrNoAssetStore
	}
	if cfg.Grants == nil || cfg.Accounts == nil || cfg.State == nil {
		return nil, errors.New("grant, account and state repositories are required")
	}

	policy := DefaultPolicy()
	if cfg.Policy != nil {
		policy = *cfg.Policy
	}

	s := &Service{
		roles:    roles,
		policy:   policy,
		grants:   cfg.Grants,
		accounts: cfg.Accounts,
		state:    cfg.State,
		assets:   cfg.Assets,
		tx:       cfg.Tx,
		events:   cfg.Events,
		observer: cfg.Observer,
		clock:    cfg.Clock,
		logger:   cfg.Logger,
	}
	if s.tx == nil {
		s.tx = inlineTx{}
	}
	if s.events == nil {
		s.events = discardSink{}
	}
	if s.observer == nil {
		s.observer = Observers(nil)
	}
	if s.clock == nil {
		s.clock = SystemClock{}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s, nil
}

// Bootstrap records the configured roles in the state repository, or
// checks them against the ones recorded by an earlier start.
func (s *Service) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.state.EnsureRoles(ctx, s.roles); err != nil {
			return fmt.Errorf("ensuring roles: %w", err)
		}
		return nil
	})
}

// Roles returns the ledger's role holders.
func (s *Service) Roles() Roles { return s.roles }

// Policy returns the grant limits in force.
func (s *Service) Policy() Policy { return s.policy }

func (s *Service) now() time.Time {
	return s.clock.Now().Truncate(time.Second)
}

// CreateGrant appends a grant for req.Beneficiary. Only the owner may
// create grants, and not while the ledger is paused.
func (s *Service) CreateGrant(ctx context.Context, caller Account, req CreateGrantRequest) (*Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(caller); err != nil {
		return nil, err
	}
	req = normalizeRequest(req)
	now := s.now()

	var grant *Grant
	var ev GrantCreated
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.requireNotPaused(ctx); err != nil {
			return err
		}
		if err := ValidateGrant(req, now, s.policy); err != nil {
			return err
		}
		existing, err := s.grants.ListByBeneficiary(ctx, req.Beneficiary)
		if err != nil {
			return fmt.Errorf("listing grants: %w", err)
		}
		if err := checkCapacity(existing, req); err != nil {
			return err
		}

		grant = &Grant{
			ID:          uuid.NewString(),
			Beneficiary: req.Beneficiary,
			Principal:   req.Principal,
			Bonus:       req.Bonus,
			Start:       req.Start,
			Duration:    req.Duration,
			CreatedAt:   now,
		}
		if err := s.grants.Append(ctx, grant); err != nil {
			return fmt.Errorf("appending grant: %w", err)
		}
		ev = GrantCreated{
			GrantID:     grant.ID,
			Beneficiary: grant.Beneficiary,
			Principal:   grant.Principal,
			Bonus:       grant.Bonus,
			Start:       grant.Start,
			Duration:    grant.Duration,
			At:          now,
		}
		return s.emit(ctx, ev)
	})
	if err != nil {
		s.logger.Debug("grant rejected", "beneficiary", req.Beneficiary, "error", err)
		return nil, err
	}

	s.observer.Observe(ev)
	s.logger.Info("grant created",
		"grant_id", grant.ID,
		"beneficiary", grant.Beneficiary,
		"principal", grant.Principal.Dec(),
		"bonus", grant.Bonus.Dec(),
		"end", grant.End())
	return grant, nil
}

// TotalsAt returns account's totals as of t. Unknown accounts have all
// zero totals.
func (s *Service) TotalsAt(ctx context.Context, account Account, t time.Time) (Totals, error) {
	account = ParseAccount(string(account))
	grants, err := s.grants.ListByBeneficiary(ctx, account)
	if err != nil {
		return Totals{}, fmt.Errorf("listing grants: %w", err)
	}
	claimed, err := s.accounts.Claimed(ctx, account)
	if err != nil {
		return Totals{}, fmt.Errorf("reading claimed totals: %w", err)
	}
	return Aggregate(grants, claimed, t.Truncate(time.Second)), nil
}

// TotalsNow returns account's totals at the current ledger time.
func (s *Service) TotalsNow(ctx context.Context, account Account) (Totals, error) {
	return s.TotalsAt(ctx, account, s.now())
}

// Grants returns account's grants in creation order.
func (s *Service) Grants(ctx context.Context, account Account) ([]Grant, error) {
	grants, err := s.grants.ListByBeneficiary(ctx, ParseAccount(string(account)))
	if err != nil {
		return nil, fmt.Errorf("listing grants: %w", err)
	}
	return grants, nil
}

// ClaimAll pays out everything account has unlocked and not yet claimed,
// principal and bonus together. Only the owner may settle claims.
//
// When nothing is claimable it returns ErrAlreadyClaimedEverything if the
// account has grants and all of them are fully unlocked, and
// ErrNothingToClaim otherwise. An account with no grants therefore gets
// ErrNothingToClaim, even though its zero totals are trivially all claimed.
func (s *Service) ClaimAll(ctx context.Context, caller, account Account) (*Claimed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(caller); err != nil {
		return nil, err
	}
	account = ParseAccount(string(account))
	now := s.now()

	var ev Claimed
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.requireNotPaused(ctx); err != nil {
			return err
		}
		grants, err := s.grants.ListByBeneficiary(ctx, account)
		if err != nil {
			return fmt.Errorf("listing grants: %w", err)
		}
		claimed, err := s.accounts.Claimed(ctx, account)
		if err != nil {
			return fmt.Errorf("reading claimed totals: %w", err)
		}

		totals := Aggregate(grants, claimed, now)
		principal, bonus := totals.ClaimablePrincipal(), totals.ClaimableBonus()
		if principal.IsZero() && bonus.IsZero() {
			if len(grants) > 0 && totals.FullyUnlocked() {
				return ErrAlreadyClaimedEverything
			}
			return ErrNothingToClaim
		}

		next := claimed
		next.Principal.Add(&next.Principal, &principal)
		next.Bonus.Add(&next.Bonus, &bonus)
		if err := s.accounts.SetClaimed(ctx, account, next); err != nil {
			return fmt.Errorf("updating claimed totals: %w", err)
		}

		ev = Claimed{Account: account, Principal: principal, Bonus: bonus, At: now}
		ev.Amount.Add(&principal, &bonus)
		if err := s.assets.Transfer(ctx, s.roles.Custody, account, ev.Amount); err != nil {
			return fmt.Errorf("transferring claim: %w", err)
		}
		return s.emit(ctx, ev)
	})
	if err != nil {
		s.logger.Debug("claim rejected", "account", account, "error", err)
		return nil, err
	}

	s.observer.Observe(ev)
	s.logger.Info("claim settled",
		"account", account,
		"principal", ev.Principal.Dec(),
		"bonus", ev.Bonus.Dec(),
		"amount", ev.Amount.Dec())
	return &ev, nil
}

// State returns the roles, pause flag and custody balance.
func (s *Service) State(ctx context.Context) (LedgerState, error) {
	paused, err := s.state.Paused(ctx)
	if err != nil {
		return LedgerState{}, fmt.Errorf("reading pause flag: %w", err)
	}
	balance, err := s.assets.BalanceOf(ctx, s.roles.Custody)
	if err != nil {
		return LedgerState{}, fmt.Errorf("reading custody balance: %w", err)
	}
	return LedgerState{Roles: s.roles, Paused: paused, CustodyBalance: balance}, nil
}

func (s *Service) emit(ctx context.Context, ev Event) error {
	if err := s.events.Emit(ctx, ev); err != nil {
		return fmt.Errorf("recording %s event: %w", ev.Type(), err)
	}
	return nil
}
