package store

import (
	"context"

	"checkpoint/internal/biometric"
)

// ReferenceStore persists subject reference embeddings. Save must refuse to
// overwrite an existing reference; Replace is the privileged reset path.
type ReferenceStore interface {
	Save(ctx context.Context, ref biometric.Reference) error
	Replace(ctx context.Context, ref biometric.Reference) error
	FindBySubject(ctx context.Context, subjectID string) (*biometric.Reference, error)
}
