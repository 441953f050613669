package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"checkpoint/internal/token"
	"checkpoint/pkg/platform/sentinel"
)

// InMemoryTokenStore keeps presence tokens in memory for tests/dev. The
// claim's read-and-mark runs under one lock acquisition, which is the
// in-process equivalent of the store-native conditional update.
type InMemoryTokenStore struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*token.PresenceToken
}

func NewInMemoryTokenStore() *InMemoryTokenStore {
	return &InMemoryTokenStore{tokens: make(map[uuid.UUID]*token.PresenceToken)}
}

func (s *InMemoryTokenStore) Create(_ context.Context, tok *token.PresenceToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[tok.ID]; ok {
		return fmt.Errorf("token %s: %w", tok.ID, sentinel.ErrConflict)
	}
	cp := *tok
	s.tokens[tok.ID] = &cp
	return nil
}

func (s *InMemoryTokenStore) Claim(_ context.Context, id uuid.UUID, now time.Time) (*token.PresenceToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tok, ok := s.tokens[id]
	if !ok {
		return nil, fmt.Errorf("token %s: %w", id, sentinel.ErrNotFound)
	}
	if tok.Used {
		return nil, fmt.Errorf("token %s: %w", id, sentinel.ErrAlreadyUsed)
	}
	if tok.Expired(now) {
		return nil, fmt.Errorf("token %s: %w", id, sentinel.ErrExpired)
	}

	tok.Used = true
	cp := *tok
	return &cp, nil
}

func (s *InMemoryTokenStore) DeleteExpired(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, tok := range s.tokens {
		if tok.ExpiresAt.Before(cutoff) {
			delete(s.tokens, id)
			n++
		}
	}
	return n, nil
}
