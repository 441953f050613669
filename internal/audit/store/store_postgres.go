package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"checkpoint/internal/audit"
)

type PostgresEventStore struct {
	pool *pgxpool.Pool
}

func NewPostgresEventStore(pool *pgxpool.Pool) *PostgresEventStore {
	return &PostgresEventStore{pool: pool}
}

func (s *PostgresEventStore) Append(ctx context.Context, event audit.Event) error {
	_, err := s.pool.Exec(ctx, `
		insert into audit_events (ts, subject_id, site_id, agent, action, outcome, reason, request_id)
		values ($1, $2, $3, $4, $5, $6, $7, $8)`,
		event.Timestamp, event.SubjectID, event.SiteID, event.Agent,
		string(event.Action), string(event.Outcome), event.Reason, event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresEventStore) ListBySubject(ctx context.Context, subjectID string, limit int) ([]audit.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		select ts, subject_id, site_id, agent, action, outcome, reason, request_id
		from audit_events
		where subject_id = $1
		order by ts desc
		limit $2`,
		subjectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var e audit.Event
		var action, outcome string
		if err := rows.Scan(&e.Timestamp, &e.SubjectID, &e.SiteID, &e.Agent,
			&action, &outcome, &e.Reason, &e.RequestID); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Action = audit.Action(action)
		e.Outcome = audit.Outcome(outcome)
		events = append(events, e)
	}
	return events, rows.Err()
}
