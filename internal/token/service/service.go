package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"checkpoint/internal/token"
	"checkpoint/internal/token/store"
	dErrors "checkpoint/pkg/domain-errors"
	"checkpoint/pkg/platform/sentinel"
	"checkpoint/pkg/requestcontext"
)

// Service is the token issuer. Subject devices call Issue roughly every 45
// seconds so a continuously valid code stays on screen; each token lives for
// ttl (60s by default) and dies on first claim.
type Service struct {
	tokens    store.TokenStore
	directory store.SubjectDirectory
	ttl       time.Duration
}

func NewService(tokens store.TokenStore, directory store.SubjectDirectory, ttl time.Duration) *Service {
	return &Service{tokens: tokens, directory: directory, ttl: ttl}
}

// Issue mints a presence token for the authenticated subject in ctx.
func (s *Service) Issue(ctx context.Context) (*token.PresenceToken, error) {
	subjectID := requestcontext.SubjectID(ctx)
	if subjectID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	sub, err := s.directory.FindSubject(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "subject profile not found")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "resolve subject", err)
	}
	if !sub.Role.Permitted() {
		return nil, dErrors.New(dErrors.CodeForbidden, "role not permitted to punch")
	}

	now := requestcontext.Now(ctx)
	tok := &token.PresenceToken{
		ID:        uuid.New(),
		SubjectID: sub.ID,
		SiteID:    sub.SiteID,
		Role:      sub.Role,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.tokens.Create(ctx, tok); err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "persist token", err)
	}
	return tok, nil
}
