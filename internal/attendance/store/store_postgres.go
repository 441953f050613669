package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"checkpoint/internal/attendance"
	"checkpoint/pkg/platform/sentinel"
)

// PostgresRecordStore persists attendance records with the punch log as a
// jsonb array. The (site_id, subject_id, date) primary key carries the
// one-record-per-day invariant; Create's ON CONFLICT DO NOTHING and Close's
// punch_out IS NULL guard carry the race tolerance.
type PostgresRecordStore struct {
	pool *pgxpool.Pool
}

func NewPostgresRecordStore(pool *pgxpool.Pool) *PostgresRecordStore {
	return &PostgresRecordStore{pool: pool}
}

func (s *PostgresRecordStore) Find(ctx context.Context, key Key) (*attendance.Record, error) {
	rec := attendance.Record{SiteID: key.SiteID, SubjectID: key.SubjectID, Date: key.Date}
	var logJSON []byte
	err := s.pool.QueryRow(ctx, `
		select punch_in, punch_out, status, log
		from attendance_records
		where site_id = $1 and subject_id = $2 and date = $3
	`, key.SiteID, key.SubjectID, key.Date).Scan(&rec.PunchIn, &rec.PunchOut, &rec.Status, &logJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("attendance record %v: %w", key, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find attendance record: %w", err)
	}
	if err := json.Unmarshal(logJSON, &rec.Log); err != nil {
		return nil, fmt.Errorf("decode punch log: %w", err)
	}
	return &rec, nil
}

func (s *PostgresRecordStore) Create(ctx context.Context, rec *attendance.Record) error {
	logJSON, err := json.Marshal(rec.Log)
	if err != nil {
		return fmt.Errorf("encode punch log: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		insert into attendance_records (site_id, subject_id, date, punch_in, punch_out, status, log)
		values ($1, $2, $3, $4, null, $5, $6)
		on conflict (site_id, subject_id, date) do nothing
	`, rec.SiteID, rec.SubjectID, rec.Date, rec.PunchIn, string(rec.Status), logJSON)
	if err != nil {
		return fmt.Errorf("create attendance record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("attendance record exists: %w", sentinel.ErrConflict)
	}
	return nil
}

func (s *PostgresRecordStore) Close(ctx context.Context, key Key, entry attendance.PunchEntry) (*attendance.Record, error) {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("encode punch entry: %w", err)
	}

	rec := attendance.Record{SiteID: key.SiteID, SubjectID: key.SubjectID, Date: key.Date}
	var logJSON []byte
	err = s.pool.QueryRow(ctx, `
		update attendance_records
		set punch_out = $4,
		    log = log || $5::jsonb
		where site_id = $1 and subject_id = $2 and date = $3
		  and punch_out is null
		returning punch_in, punch_out, status, log
	`, key.SiteID, key.SubjectID, key.Date, entry.Time, string(entryJSON)).
		Scan(&rec.PunchIn, &rec.PunchOut, &rec.Status, &logJSON)
	if err == nil {
		if err := json.Unmarshal(logJSON, &rec.Log); err != nil {
			return nil, fmt.Errorf("decode punch log: %w", err)
		}
		return &rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("close attendance record: %w", err)
	}

	// Nothing matched: either no record or it already closed.
	var punchOut *time.Time
	err = s.pool.QueryRow(ctx, `
		select punch_out from attendance_records
		where site_id = $1 and subject_id = $2 and date = $3
	`, key.SiteID, key.SubjectID, key.Date).Scan(&punchOut)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("attendance record %v: %w", key, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("close attendance record: %w", err)
	}
	return nil, fmt.Errorf("attendance record %v: %w", key, sentinel.ErrAlreadyUsed)
}
