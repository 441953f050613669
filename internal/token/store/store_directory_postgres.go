package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"checkpoint/internal/token"
	"checkpoint/pkg/platform/sentinel"
)

// PostgresSubjectDirectory reads the externally managed roster.
type PostgresSubjectDirectory struct {
	pool *pgxpool.Pool
}

func NewPostgresSubjectDirectory(pool *pgxpool.Pool) *PostgresSubjectDirectory {
	return &PostgresSubjectDirectory{pool: pool}
}

func (d *PostgresSubjectDirectory) FindSubject(ctx context.Context, subjectID string) (*token.Subject, error) {
	var sub token.Subject
	var role string
	err := d.pool.QueryRow(ctx,
		`select id, site_id, role from subjects where id = $1`,
		subjectID,
	).Scan(&sub.ID, &sub.SiteID, &role)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("subject %q: %w", subjectID, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find subject: %w", err)
	}
	sub.Role = token.Role(role)
	return &sub, nil
}
