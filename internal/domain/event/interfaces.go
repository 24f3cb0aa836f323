package event

import "context"

// Repository provides persistence operations for the event log.
type Repository interface {
	Append(ctx context.Context, entry *Entry) error
	List(ctx context.Context, opts ListOptions) ([]Entry, error)
}
