package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"checkpoint/internal/biometric"
	"checkpoint/pkg/platform/sentinel"
)

// PostgresReferenceStore persists reference embeddings as float8 arrays.
type PostgresReferenceStore struct {
	db *sql.DB
}

func NewPostgresReferenceStore(db *sql.DB) *PostgresReferenceStore {
	return &PostgresReferenceStore{db: db}
}

// Save inserts a new reference, refusing to overwrite an existing one. The
// write-once rule is enforced by the primary key, not application logic.
func (s *PostgresReferenceStore) Save(ctx context.Context, ref biometric.Reference) error {
	query := `
		INSERT INTO biometric_references (subject_id, embedding, registered_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (subject_id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query, ref.SubjectID, pq.Array(ref.Embedding), ref.RegisteredAt)
	if err != nil {
		return fmt.Errorf("save reference: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save reference: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("reference for %q: %w", ref.SubjectID, sentinel.ErrConflict)
	}
	return nil
}

// Replace upserts a reference. Only the privileged reset path calls this.
func (s *PostgresReferenceStore) Replace(ctx context.Context, ref biometric.Reference) error {
	query := `
		INSERT INTO biometric_references (subject_id, embedding, registered_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (subject_id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			registered_at = EXCLUDED.registered_at
	`
	if _, err := s.db.ExecContext(ctx, query, ref.SubjectID, pq.Array(ref.Embedding), ref.RegisteredAt); err != nil {
		return fmt.Errorf("replace reference: %w", err)
	}
	return nil
}

func (s *PostgresReferenceStore) FindBySubject(ctx context.Context, subjectID string) (*biometric.Reference, error) {
	ref := biometric.Reference{SubjectID: subjectID}
	var embedding pq.Float64Array
	err := s.db.QueryRowContext(ctx, `
		SELECT embedding, registered_at
		FROM biometric_references
		WHERE subject_id = $1
	`, subjectID).Scan(&embedding, &ref.RegisteredAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("reference for %q: %w", subjectID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find reference: %w", err)
	}
	ref.Embedding = []float64(embedding)
	return &ref, nil
}
