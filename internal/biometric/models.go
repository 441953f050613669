// Package biometric holds the reference-embedding collaborator: storage of a
// subject's registered feature vector and the distance comparison the
// verifier runs against it. Face detection and capture UX live elsewhere;
// this package only compares vectors.
package biometric

import (
	"math"
	"time"
)

// EmbeddingLength is the fixed length of a reference feature vector.
const EmbeddingLength = 128

// Reference is a subject's registered feature vector. Written once at
// registration; replaceable only through a privileged reset.
type Reference struct {
	SubjectID    string
	Embedding    []float64
	RegisteredAt time.Time
}

// EuclideanDistance computes the L2 distance between two embeddings. Callers
// must have validated lengths; mismatched tails are ignored up to the shorter
// vector, which only happens on corrupted data.
func EuclideanDistance(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
