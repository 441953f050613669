package service

import (
	"context"
	"errors"
	"fmt"

	"checkpoint/internal/biometric"
	dErrors "checkpoint/pkg/domain-errors"
	"checkpoint/pkg/platform/sentinel"
	"checkpoint/pkg/requestcontext"
)

// ReferenceStore is the slice of the store this service needs.
type ReferenceStore interface {
	Save(ctx context.Context, ref biometric.Reference) error
	Replace(ctx context.Context, ref biometric.Reference) error
	FindBySubject(ctx context.Context, subjectID string) (*biometric.Reference, error)
}

// Service owns registration and comparison of reference embeddings.
type Service struct {
	refs      ReferenceStore
	threshold float64
}

// NewService constructs the biometric service. threshold is the maximum
// accepted Euclidean distance between a sample and the stored reference.
func NewService(refs ReferenceStore, threshold float64) *Service {
	return &Service{refs: refs, threshold: threshold}
}

// Register stores a subject's reference embedding. Write-once: a second
// registration for the same subject is a conflict.
func (s *Service) Register(ctx context.Context, subjectID string, embedding []float64) error {
	if err := validateEmbedding(embedding); err != nil {
		return err
	}
	ref := biometric.Reference{
		SubjectID:    subjectID,
		Embedding:    embedding,
		RegisteredAt: requestcontext.Now(ctx),
	}
	if err := s.refs.Save(ctx, ref); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "biometric reference already registered")
		}
		return dErrors.Wrap(dErrors.CodeInternal, "save biometric reference", err)
	}
	return nil
}

// Reset replaces a subject's reference embedding. Callers must have already
// enforced the manager-role requirement.
func (s *Service) Reset(ctx context.Context, subjectID string, embedding []float64) error {
	if err := validateEmbedding(embedding); err != nil {
		return err
	}
	ref := biometric.Reference{
		SubjectID:    subjectID,
		Embedding:    embedding,
		RegisteredAt: requestcontext.Now(ctx),
	}
	if err := s.refs.Replace(ctx, ref); err != nil {
		return dErrors.Wrap(dErrors.CodeInternal, "replace biometric reference", err)
	}
	return nil
}

// Match compares a sample against the subject's stored reference. A missing
// sample is a mismatch: biometric binding is mandatory in this protocol.
// Returns the measured distance for logging.
func (s *Service) Match(ctx context.Context, subjectID string, sample []float64) (float64, error) {
	ref, err := s.refs.FindBySubject(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, dErrors.New(dErrors.CodeFailedPrecondition, "no biometric reference registered")
		}
		return 0, dErrors.Wrap(dErrors.CodeInternal, "load biometric reference", err)
	}

	if len(sample) != biometric.EmbeddingLength {
		return 0, dErrors.New(dErrors.CodeForbidden, "face mismatch")
	}

	distance := biometric.EuclideanDistance(sample, ref.Embedding)
	if distance > s.threshold {
		return distance, dErrors.New(dErrors.CodeForbidden, "face mismatch")
	}
	return distance, nil
}

func validateEmbedding(embedding []float64) error {
	if len(embedding) != biometric.EmbeddingLength {
		return dErrors.New(dErrors.CodeInvalidArgument,
			fmt.Sprintf("embedding must have %d elements, got %d", biometric.EmbeddingLength, len(embedding)))
	}
	return nil
}
