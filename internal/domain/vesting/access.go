package vesting

import (
	"context"
	"fmt"
)

func (s *Service) requireOwner(caller Account) error {
	if ParseAccount(string(caller)) != s.roles.Owner {
		return ErrUnauthorized
	}
	return nil
}

func (s *Service) requireRescuer(caller Account) error {
	if ParseAccount(string(caller)) != s.roles.Rescuer {
		return ErrUnauthorized
	}
	return nil
}

func (s *Service) requireNotPaused(ctx context.Context) error {
	paused, err := s.state.Paused(ctx)
	if err != nil {
		return fmt.Errorf("reading pause flag: %w", err)
	}
	if paused {
		return ErrPaused
	}
	return nil
}

// Paused reports whether grant creation and claims are halted.
func (s *Service) Paused(ctx context.Context) (bool, error) {
	paused, err := s.state.Paused(ctx)
	if err != nil {
		return false, fmt.Errorf("reading pause flag: %w", err)
	}
	return paused, nil
}

// Pause halts grant creation and claims. Pausing a paused ledger fails
// with ErrPaused.
func (s *Service) Pause(ctx context.Context, caller Account) (*Paused, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(caller); err != nil {
		return nil, err
	}
	ev := Paused{By: s.roles.Owner, At: s.now()}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.requireNotPaused(ctx); err != nil {
			return err
		}
		if err := s.state.SetPaused(ctx, true); err != nil {
			return fmt.Errorf("setting pause flag: %w", err)
		}
		return s.emit(ctx, ev)
	})
	if err != nil {
		return nil, err
	}

	s.observer.Observe(ev)
	s.logger.Info("ledger paused", "by", ev.By)
	return &ev, nil
}

// Unpause resumes a paused ledger. Unpausing a running ledger fails with
// ErrNotPaused.
func (s *Service) Unpause(ctx context.Context, caller Account) (*Unpaused, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireOwner(caller); err != nil {
		return nil, err
	}
	ev := Unpaused{By: s.roles.Owner, At: s.now()}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		paused, err := s.state.Paused(ctx)
		if err != nil {
			return fmt.Errorf("reading pause flag: %w", err)
		}
		if !paused {
			return ErrNotPaused
		}
		if err := s.state.SetPaused(ctx, false); err != nil {
			return fmt.Errorf("clearing pause flag: %w", err)
		}
		return s.emit(ctx, ev)
	})
	if err != nil {
		return nil, err
	}

	s.observer.Observe(ev)
	s.logger.Info("ledger unpaused", "by", ev.By)
	return &ev, nil
}

// RescueAll moves the whole custody balance to the rescuer. It works
// while paused and leaves grants and claim counters untouched.
func (s *Service) RescueAll(ctx context.Context, caller Account) (*Rescued, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireRescuer(caller); err != nil {
		return nil, err
	}
	ev := Rescued{Rescuer: s.roles.Rescuer, At: s.now()}
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		balance, err := s.assets.BalanceOf(ctx, s.roles.Custody)
		if err != nil {
			return fmt.Errorf("reading custody balance: %w", err)
		}
		ev.Amount = balance
		if !balance.IsZero() {
			if err := s.assets.Transfer(ctx, s.roles.Custody, s.roles.Rescuer, balance); err != nil {
				return fmt.Errorf("transferring custody balance: %w", err)
			}
		}
		return s.emit(ctx, ev)
	})
	if err != nil {
		return nil, err
	}

	s.observer.Observe(ev)
	s.logger.Warn("custody balance rescued", "rescuer", ev.Rescuer, "amount", ev.Amount.Dec())
	return &ev, nil
}
