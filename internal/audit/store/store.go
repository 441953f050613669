package store

import (
	"context"

	"checkpoint/internal/audit"
)

// EventStore is the append-only audit trail. Events are never updated or
// deleted through this interface.
type EventStore interface {
	Append(ctx context.Context, event audit.Event) error
	ListBySubject(ctx context.Context, subjectID string, limit int) ([]audit.Event, error)
}
