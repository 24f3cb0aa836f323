package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rpggio/tranche/internal/domain/vesting"
)

// Service records ledger events and serves the event log.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new event service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger}
}

// Emit appends ev to the log. It implements vesting.EventSink and runs
// inside the ledger operation's transaction.
func (s *Service) Emit(ctx context.Context, ev vesting.Event) error {
	entry, err := Encode(ev)
	if err != nil {
		return err
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		return fmt.Errorf("appending event: %w", err)
	}
	s.logger.Debug("event recorded", "id", entry.ID, "type", entry.Type, "account", entry.Account)
	return nil
}

// List returns log entries matching opts with their payloads decoded.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	entries, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	for i := range entries {
		data, err := DecodeData(entries[i].Payload)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", entries[i].ID, err)
		}
		entries[i].Data = data
	}
	return entries, nil
}
