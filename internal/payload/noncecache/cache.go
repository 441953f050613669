// Package noncecache tracks recently-seen payload nonces to reject replays.
// Two implementations: a bounded in-process ring (single verifier instance)
// and a Redis set (shared across a verifier fleet). Admit is the only
// operation: it reports whether the nonce was unseen and records it.
package noncecache

import (
	"context"
	"sync"
)

// Cache is a recently-seen nonce set.
type Cache interface {
	// Admit records nonce and returns true if it was not already present.
	// A false return is a replay.
	Admit(ctx context.Context, nonce string) (bool, error)
}

// Ring is a bounded in-process nonce set with FIFO eviction: when full, the
// oldest admitted nonce is forgotten first. Capacity bounds memory; it also
// bounds the replay-protection horizon, which is acceptable because payloads
// older than the freshness window are rejected before the nonce check.
//
// A per-process ring only protects against replay within one verifier
// instance. Fleets must use the Redis cache for a strict fleet-wide
// exactly-once guarantee.
type Ring struct {
	mu       sync.Mutex
	seen     map[string]struct{}
	order    []string
	head     int
	capacity int
}

// NewRing creates a ring with the given capacity (minimum 1).
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 4096
	}
	return &Ring{
		seen:     make(map[string]struct{}, capacity),
		order:    make([]string, capacity),
		capacity: capacity,
	}
}

func (r *Ring) Admit(_ context.Context, nonce string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.seen[nonce]; ok {
		return false, nil
	}

	// Evict the slot we are about to overwrite.
	if evicted := r.order[r.head]; evicted != "" {
		delete(r.seen, evicted)
	}
	r.order[r.head] = nonce
	r.head = (r.head + 1) % r.capacity
	r.seen[nonce] = struct{}{}
	return true, nil
}

// Len returns the number of nonces currently tracked.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}
