package store

import (
	"context"
	"fmt"
	"sync"

	"checkpoint/internal/policy"
	"checkpoint/pkg/platform/sentinel"
)

// InMemoryPolicyStore keeps site policies in memory for tests/dev. Seed once
// at startup; reads are lock-protected copies.
type InMemoryPolicyStore struct {
	mu       sync.RWMutex
	policies map[string]policy.SitePolicy
}

func NewInMemoryPolicyStore() *InMemoryPolicyStore {
	return &InMemoryPolicyStore{policies: make(map[string]policy.SitePolicy)}
}

// Seed registers a policy, normalizing defaults.
func (s *InMemoryPolicyStore) Seed(p policy.SitePolicy) {
	p.Normalize()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[p.SiteID] = p
}

func (s *InMemoryPolicyStore) FindBySite(_ context.Context, siteID string) (*policy.SitePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.policies[siteID]; ok {
		return &p, nil
	}
	return nil, fmt.Errorf("site policy %q: %w", siteID, sentinel.ErrNotFound)
}
