package store

import (
	"context"
	"fmt"
	"sync"

	"checkpoint/internal/token"
	"checkpoint/pkg/platform/sentinel"
)

// InMemorySubjectDirectory is a seedable roster lookup for tests/dev. The
// production directory sits behind the same interface.
type InMemorySubjectDirectory struct {
	mu       sync.RWMutex
	subjects map[string]token.Subject
}

func NewInMemorySubjectDirectory() *InMemorySubjectDirectory {
	return &InMemorySubjectDirectory{subjects: make(map[string]token.Subject)}
}

func (d *InMemorySubjectDirectory) Seed(sub token.Subject) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subjects[sub.ID] = sub
}

func (d *InMemorySubjectDirectory) FindSubject(_ context.Context, subjectID string) (*token.Subject, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if sub, ok := d.subjects[subjectID]; ok {
		return &sub, nil
	}
	return nil, fmt.Errorf("subject %q: %w", subjectID, sentinel.ErrNotFound)
}
