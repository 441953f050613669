// Package token owns the centrally-issued presence token: a short-lived,
// single-use credential binding a subject to a site and role. The issuer
// mints it; the scan verifier consumes it exactly once via an atomic claim.
package token

import (
	"time"

	"github.com/google/uuid"
)

// Role of the subject a token is bound to. Only these roles may punch.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
)

// Permitted reports whether the role may receive presence tokens.
func (r Role) Permitted() bool {
	return r == RoleEmployee || r == RoleManager
}

// PresenceToken is the persisted shape of a centrally-issued token. The ID is
// the opaque value rendered into the scannable code; it is unguessable by
// construction (uuid v4).
type PresenceToken struct {
	ID        uuid.UUID
	SubjectID string
	SiteID    string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
	Used      bool
}

// Expired reports whether the token is past its validity window at now.
func (t *PresenceToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Subject is the roster collaborator's view of a person: just enough to
// authorize issuance. Roster management itself is external.
type Subject struct {
	ID     string
	SiteID string
	Role   Role
}
