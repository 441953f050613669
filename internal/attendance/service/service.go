package service

import (
	"context"
	"errors"
	"fmt"

	"checkpoint/internal/attendance"
	"checkpoint/internal/attendance/store"
	"checkpoint/internal/policy"
	dErrors "checkpoint/pkg/domain-errors"
	"checkpoint/pkg/geo"
	"checkpoint/pkg/platform/sentinel"
	"checkpoint/pkg/requestcontext"
)

// Evidence is what the verifier hands the ledger about an accepted scan.
type Evidence struct {
	Location           geo.Point
	VerifiedBy         string
	BiometricConfirmed bool
}

// Result is the ledger's answer to a committed punch.
type Result struct {
	Message   string
	PunchType attendance.PunchType
	Status    attendance.Status
}

// Service applies the ledger state machine. It deliberately runs without
// locks: Create fails on an existing key and Close only matches an open
// record, so whichever of two near-simultaneous first scans lands first
// creates the record and the other falls through to the OUT branch.
type Service struct {
	records store.RecordStore
}

func NewService(records store.RecordStore) *Service {
	return &Service{records: records}
}

// Punch records one accepted scan for subject at the policy's site.
func (s *Service) Punch(ctx context.Context, pol *policy.SitePolicy, subjectID string, ev Evidence) (*Result, error) {
	now := requestcontext.Now(ctx)
	key := store.Key{SiteID: pol.SiteID, SubjectID: subjectID, Date: pol.LocalDate(now)}

	_, err := s.records.Find(ctx, key)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(dErrors.CodeInternal, "read attendance record", err)
		}

		// First scan of the day: open the record.
		status := attendance.Classify(pol, now)
		rec := &attendance.Record{
			SiteID:    key.SiteID,
			SubjectID: key.SubjectID,
			Date:      key.Date,
			PunchIn:   now,
			Status:    status,
			Log: []attendance.PunchEntry{{
				Type:               attendance.PunchIn,
				Time:               now,
				Location:           ev.Location,
				VerifiedBy:         ev.VerifiedBy,
				BiometricConfirmed: ev.BiometricConfirmed,
			}},
		}
		err = s.records.Create(ctx, rec)
		if err == nil {
			return &Result{
				Message:   fmt.Sprintf("Punch-IN (%s)", status),
				PunchType: attendance.PunchIn,
				Status:    status,
			}, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(dErrors.CodeInternal, "create attendance record", err)
		}
		// Lost the create race: another scan opened the day first, so this
		// one becomes the OUT event below.
	}

	closed, err := s.records.Close(ctx, key, attendance.PunchEntry{
		Type:               attendance.PunchOut,
		Time:               now,
		Location:           ev.Location,
		VerifiedBy:         ev.VerifiedBy,
		BiometricConfirmed: ev.BiometricConfirmed,
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "already punched out today")
		}
		return nil, dErrors.Wrap(dErrors.CodeInternal, "close attendance record", err)
	}

	return &Result{
		Message:   "Punch-OUT",
		PunchType: attendance.PunchOut,
		Status:    closed.Status,
	}, nil
}
