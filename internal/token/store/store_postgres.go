package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"checkpoint/internal/token"
	"checkpoint/pkg/platform/sentinel"
)

// PostgresTokenStore persists presence tokens in the presence_tokens table.
type PostgresTokenStore struct {
	pool *pgxpool.Pool
}

func NewPostgresTokenStore(pool *pgxpool.Pool) *PostgresTokenStore {
	return &PostgresTokenStore{pool: pool}
}

func (s *PostgresTokenStore) Create(ctx context.Context, tok *token.PresenceToken) error {
	_, err := s.pool.Exec(ctx, `
		insert into presence_tokens (id, subject_id, site_id, role, issued_at, expires_at, used)
		values ($1, $2, $3, $4, $5, $6, false)
	`, tok.ID, tok.SubjectID, tok.SiteID, string(tok.Role), tok.IssuedAt, tok.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create token: %w", err)
	}
	return nil
}

// Claim flips used from false to true in a single conditional UPDATE. The
// row's used column is the serialization point: under concurrent submissions
// of the same id, postgres lets exactly one UPDATE match.
func (s *PostgresTokenStore) Claim(ctx context.Context, id uuid.UUID, now time.Time) (*token.PresenceToken, error) {
	tok := token.PresenceToken{Used: true}
	var role string
	err := s.pool.QueryRow(ctx, `
		update presence_tokens
		set used = true
		where id = $1
		  and used = false
		  and expires_at >= $2
		returning id, subject_id, site_id, role, issued_at, expires_at
	`, id, now).Scan(&tok.ID, &tok.SubjectID, &tok.SiteID, &role, &tok.IssuedAt, &tok.ExpiresAt)
	if err == nil {
		tok.Role = token.Role(role)
		return &tok, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("claim token: %w", err)
	}

	// The conditional update matched nothing: distinguish why for the error
	// taxonomy. This read is advisory only; the claim itself already failed.
	var used bool
	var expiresAt time.Time
	err = s.pool.QueryRow(ctx, `
		select used, expires_at from presence_tokens where id = $1
	`, id).Scan(&used, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("token %s: %w", id, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("claim token: %w", err)
	}
	if used {
		return nil, fmt.Errorf("token %s: %w", id, sentinel.ErrAlreadyUsed)
	}
	return nil, fmt.Errorf("token %s: %w", id, sentinel.ErrExpired)
}

func (s *PostgresTokenStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		delete from presence_tokens where expires_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired tokens: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
