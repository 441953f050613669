package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"checkpoint/internal/token"
)

// TokenStore persists presence tokens. Claim is the correctness-critical
// operation: it must atomically flip used from false to true so that two
// concurrent submissions of the same token yield exactly one success.
//
// Error contract (sentinel errors, optionally wrapped):
// - ErrNotFound: no token with that id
// - ErrAlreadyUsed: token was claimed before
// - ErrExpired: token exists, unused, but past expiry
type TokenStore interface {
	Create(ctx context.Context, tok *token.PresenceToken) error
	Claim(ctx context.Context, id uuid.UUID, now time.Time) (*token.PresenceToken, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int, error)
}

// SubjectDirectory resolves subject profiles for issuance. Read-only
// collaborator; the roster is managed externally.
type SubjectDirectory interface {
	FindSubject(ctx context.Context, subjectID string) (*token.Subject, error)
}
