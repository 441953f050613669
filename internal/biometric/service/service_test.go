package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkpoint/internal/biometric"
	"checkpoint/internal/biometric/store"
	dErrors "checkpoint/pkg/domain-errors"
)

func embedding(fill float64) []float64 {
	v := make([]float64, biometric.EmbeddingLength)
	for i := range v {
		v[i] = fill
	}
	return v
}

// sampleAtDistance returns a vector at exactly d Euclidean distance from base,
// offset along the first dimension.
func sampleAtDistance(base []float64, d float64) []float64 {
	out := make([]float64, len(base))
	copy(out, base)
	out[0] += d
	return out
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("first registration succeeds, second conflicts", func(t *testing.T) {
		svc := NewService(store.NewInMemoryReferenceStore(), 0.58)
		require.NoError(t, svc.Register(ctx, "subj-1", embedding(0.5)))

		err := svc.Register(ctx, "subj-1", embedding(0.5))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("wrong embedding length is rejected", func(t *testing.T) {
		svc := NewService(store.NewInMemoryReferenceStore(), 0.58)
		err := svc.Register(ctx, "subj-1", []float64{1, 2, 3})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})

	t.Run("privileged reset replaces the reference", func(t *testing.T) {
		refs := store.NewInMemoryReferenceStore()
		svc := NewService(refs, 0.58)
		require.NoError(t, svc.Register(ctx, "subj-1", embedding(0.5)))
		require.NoError(t, svc.Reset(ctx, "subj-1", embedding(0.9)))

		ref, err := refs.FindBySubject(ctx, "subj-1")
		require.NoError(t, err)
		assert.Equal(t, 0.9, ref.Embedding[0])
	})
}

func TestMatch(t *testing.T) {
	ctx := context.Background()
	ref := embedding(0.5)

	newSvc := func(t *testing.T, threshold float64) *Service {
		t.Helper()
		refs := store.NewInMemoryReferenceStore()
		svc := NewService(refs, threshold)
		require.NoError(t, svc.Register(ctx, "subj-1", ref))
		return svc
	}

	t.Run("distance 0.54 accepted at threshold 0.58", func(t *testing.T) {
		svc := newSvc(t, 0.58)
		distance, err := svc.Match(ctx, "subj-1", sampleAtDistance(ref, 0.54))
		require.NoError(t, err)
		assert.InDelta(t, 0.54, distance, 1e-9)
	})

	t.Run("distance 0.62 rejected at threshold 0.58", func(t *testing.T) {
		svc := newSvc(t, 0.58)
		_, err := svc.Match(ctx, "subj-1", sampleAtDistance(ref, 0.62))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
		assert.Contains(t, err.Error(), "face mismatch")
	})

	t.Run("unregistered subject is a failed precondition", func(t *testing.T) {
		svc := NewService(store.NewInMemoryReferenceStore(), 0.58)
		_, err := svc.Match(ctx, "subj-unknown", ref)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeFailedPrecondition))
	})

	t.Run("short sample is a mismatch, not an internal error", func(t *testing.T) {
		svc := newSvc(t, 0.58)
		_, err := svc.Match(ctx, "subj-1", []float64{0.5})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}
