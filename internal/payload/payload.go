// Package payload implements the self-describing scan payload: a
// client-generated, never-persisted token variant used by device-side
// scanning flows that bypass the central issuer. Its only replay defenses
// are a short freshness window and a recently-seen nonce set, so it is a
// deliberately weaker guarantee tier than the centrally-issued token.
package payload

import (
	"time"
)

// SchemaVersion is the only payload schema this verifier accepts.
const SchemaVersion = 1

// MaxAge is the default freshness window for self-describing payloads.
const MaxAge = 15 * time.Second

// ScanPayload is the client-generated token variant. IssuedAtMillis is the
// device clock at generation time, unix milliseconds.
type ScanPayload struct {
	SubjectID      string  `json:"subject_id"`
	SiteID         string  `json:"site_id"`
	IssuedAtMillis int64   `json:"issued_at"`
	Latitude       float64 `json:"lat"`
	Longitude      float64 `json:"lng"`
	NetworkID      string  `json:"network_id,omitempty"`
	Nonce          string  `json:"nonce"`
	SchemaVersion  int     `json:"v"`
}

// IssuedAt converts the device timestamp to time.Time.
func (p *ScanPayload) IssuedAt() time.Time {
	return time.UnixMilli(p.IssuedAtMillis)
}

// Fresh reports whether the payload is within maxAge of now. Payloads from a
// device clock ahead of the verifier by more than maxAge are treated as stale
// too; a sane clock is part of this tier's trust assumptions.
func (p *ScanPayload) Fresh(now time.Time, maxAge time.Duration) bool {
	age := now.Sub(p.IssuedAt())
	if age < 0 {
		age = -age
	}
	return age <= maxAge
}
