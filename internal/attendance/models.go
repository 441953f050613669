// Package attendance owns the per-(site, subject, day) ledger record and its
// two-phase state machine: NONE -> OPEN on the first valid scan of the day,
// OPEN -> CLOSED on the second, terminal at CLOSED.
package attendance

import (
	"time"

	"checkpoint/internal/policy"
	"checkpoint/pkg/geo"
)

// PunchType tags a log entry.
type PunchType string

const (
	PunchIn  PunchType = "IN"
	PunchOut PunchType = "OUT"
)

// Status classifies the day at punch-in time. It is fixed at creation and
// never recomputed when the record closes.
type Status string

const (
	StatusPresent Status = "present"
	StatusLate    Status = "late"
	StatusHalfDay Status = "half_day"
)

// PunchEntry is one element of the append-only log.
type PunchEntry struct {
	Type               PunchType `json:"type"`
	Time               time.Time `json:"time"`
	Location           geo.Point `json:"location"`
	VerifiedBy         string    `json:"verified_by"`
	BiometricConfirmed bool      `json:"biometric_confirmed"`
}

// Record is the ledger entry for one subject at one site on one local date.
// Created on the first valid IN; mutated at most once more, to add the OUT.
type Record struct {
	SiteID    string
	SubjectID string
	Date      string // site-local date, "2006-01-02"

	PunchIn  time.Time
	PunchOut *time.Time
	Status   Status
	Log      []PunchEntry
}

// Open reports whether the record awaits its OUT punch.
func (r *Record) Open() bool {
	return r.PunchOut == nil
}

// Classify derives the day's status from the site schedule at punch-in time.
// Thresholds are checked from largest to smallest so the result is monotonic
// in elapsed time: present, then late, then half_day, never backwards.
func Classify(p *policy.SitePolicy, now time.Time) Status {
	start := p.WorkStart(now)
	switch {
	case now.After(start.Add(time.Duration(p.HalfDayAfterMins) * time.Minute)):
		return StatusHalfDay
	case now.After(start.Add(time.Duration(p.LateAfterMinutes) * time.Minute)):
		return StatusLate
	default:
		return StatusPresent
	}
}
