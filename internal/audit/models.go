package audit

import "time"

// Outcome classifies how a recorded action ended.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
)

// Action names the operations worth keeping a trail of.
type Action string

const (
	ActionTokenIssued       Action = "token_issued"
	ActionScanVerified      Action = "scan_verified"
	ActionBiometricEnrolled Action = "biometric_enrolled"
	ActionBiometricReset    Action = "biometric_reset"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	SubjectID string    `json:"subject_id"`
	SiteID    string    `json:"site_id,omitempty"`
	Agent     string    `json:"agent,omitempty"`
	Action    Action    `json:"action"`
	Outcome   Outcome   `json:"outcome"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}
