package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rpggio/tranche/internal/domain/event"
	"github.com/rpggio/tranche/internal/domain/vesting"
)

// EventRepository implements event.Repository for SQLite
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new EventRepository
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Append inserts an event entry and sets its id
func (r *EventRepository) Append(ctx context.Context, entry *event.Entry) error {
	query := `
		INSERT INTO events (type, account, payload, occurred_unix)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.db.conn(ctx).ExecContext(ctx, query,
		string(entry.Type),
		string(entry.Account),
		entry.Payload,
		entry.OccurredAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		entry.ID = id
	}

	return nil
}

// List returns events matching the given filters, oldest first
func (r *EventRepository) List(ctx context.Context, opts event.ListOptions) ([]event.Entry, error) {
	query := `
		SELECT id, type, account, payload, occurred_unix
		FROM events
	`

	args := []any{}
	conditions := []string{}

	if opts.Account != "" {
		conditions = append(conditions, "account = ?")
		args = append(args, string(opts.Account))
	}
	if opts.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, string(opts.Type))
	}
	if opts.AfterID > 0 {
		conditions = append(conditions, "id > ?")
		args = append(args, opts.AfterID)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	query += " ORDER BY id ASC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := r.db.conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var entries []event.Entry
	for rows.Next() {
		var entry event.Entry
		var typ, account string
		var occurred int64
		if err := rows.Scan(&entry.ID, &typ, &account, &entry.Payload, &occurred); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		entry.Type = vesting.EventType(typ)
		entry.Account = vesting.Account(account)
		entry.OccurredAt = time.Unix(occurred, 0).UTC()
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}

	return entries, nil
}
