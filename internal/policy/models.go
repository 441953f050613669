// Package policy models the per-site rules the verifier reads: geofence,
// permitted network, and work schedule. Policies are authored externally;
// this service only reads them.
package policy

import (
	"time"

	"checkpoint/pkg/geo"
)

// Defaults applied by Normalize when a field is unset.
const (
	DefaultRadiusMeters     = 100.0
	DefaultHalfDayAfterMins = 240
)

// SitePolicy is the read-only collaborator input for one site.
type SitePolicy struct {
	SiteID string

	// Geofence. A zero radius means the site defines no geofence and the
	// check passes silently.
	Center       geo.Point
	RadiusMeters float64
	HasGeofence  bool

	// Permitted network identifier (SSID/BSSID). Empty means unconfigured.
	NetworkID string

	// Schedule, in minutes from local midnight.
	WorkStartMinutes int
	WorkEndMinutes   int
	LateAfterMinutes int
	HalfDayAfterMins int

	// IANA timezone for deriving the site-local attendance date.
	Timezone string
}

// Normalize fills defaulted fields in place.
func (p *SitePolicy) Normalize() {
	if p.HasGeofence && p.RadiusMeters <= 0 {
		p.RadiusMeters = DefaultRadiusMeters
	}
	if p.HalfDayAfterMins <= 0 {
		p.HalfDayAfterMins = DefaultHalfDayAfterMins
	}
	if p.Timezone == "" {
		p.Timezone = "UTC"
	}
}

// Location resolves the site timezone, falling back to UTC on a bad name so a
// misconfigured site cannot take down scanning.
func (p *SitePolicy) Location() *time.Location {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// WorkStart anchors the schedule to the local day of now.
func (p *SitePolicy) WorkStart(now time.Time) time.Time {
	local := now.In(p.Location())
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, p.Location())
	return midnight.Add(time.Duration(p.WorkStartMinutes) * time.Minute)
}

// LocalDate renders the site-local calendar date used as the ledger key.
func (p *SitePolicy) LocalDate(now time.Time) string {
	return now.In(p.Location()).Format("2006-01-02")
}
