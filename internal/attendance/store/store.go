package store

import (
	"context"

	"checkpoint/internal/attendance"
)

// Key identifies one ledger record.
type Key struct {
	SiteID    string
	SubjectID string
	Date      string
}

// RecordStore persists attendance records. Create must fail with ErrConflict
// when the key exists, and Close must only succeed on a still-open record;
// together these make the ledger's create-or-update race benign without any
// application-level locking.
type RecordStore interface {
	Find(ctx context.Context, key Key) (*attendance.Record, error)
	Create(ctx context.Context, rec *attendance.Record) error
	Close(ctx context.Context, key Key, entry attendance.PunchEntry) (*attendance.Record, error)
}
