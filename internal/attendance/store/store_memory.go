package store

import (
	"context"
	"fmt"
	"sync"

	"checkpoint/internal/attendance"
	"checkpoint/pkg/platform/sentinel"
)

// InMemoryRecordStore keeps ledger records in memory for tests/dev.
type InMemoryRecordStore struct {
	mu      sync.Mutex
	records map[Key]*attendance.Record
}

func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{records: make(map[Key]*attendance.Record)}
}

func keyOf(rec *attendance.Record) Key {
	return Key{SiteID: rec.SiteID, SubjectID: rec.SubjectID, Date: rec.Date}
}

func (s *InMemoryRecordStore) Find(_ context.Context, key Key) (*attendance.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[key]; ok {
		cp := *rec
		cp.Log = append([]attendance.PunchEntry(nil), rec.Log...)
		return &cp, nil
	}
	return nil, fmt.Errorf("attendance record %v: %w", key, sentinel.ErrNotFound)
}

func (s *InMemoryRecordStore) Create(_ context.Context, rec *attendance.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := keyOf(rec)
	if _, ok := s.records[key]; ok {
		return fmt.Errorf("attendance record %v: %w", key, sentinel.ErrConflict)
	}
	cp := *rec
	cp.Log = append([]attendance.PunchEntry(nil), rec.Log...)
	s.records[key] = &cp
	return nil
}

func (s *InMemoryRecordStore) Close(_ context.Context, key Key, entry attendance.PunchEntry) (*attendance.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		return nil, fmt.Errorf("attendance record %v: %w", key, sentinel.ErrNotFound)
	}
	if !rec.Open() {
		return nil, fmt.Errorf("attendance record %v: %w", key, sentinel.ErrAlreadyUsed)
	}

	out := entry.Time
	rec.PunchOut = &out
	rec.Log = append(rec.Log, entry)

	cp := *rec
	cp.Log = append([]attendance.PunchEntry(nil), rec.Log...)
	return &cp, nil
}
