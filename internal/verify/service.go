package verify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"checkpoint/internal/attendance"
	attendanceservice "checkpoint/internal/attendance/service"
	"checkpoint/internal/audit"
	biometricservice "checkpoint/internal/biometric/service"
	"checkpoint/internal/policy"
	policystore "checkpoint/internal/policy/store"
	"checkpoint/internal/verify/metrics"
	dErrors "checkpoint/pkg/domain-errors"
	"checkpoint/pkg/geo"
	"checkpoint/pkg/platform/sentinel"
	"checkpoint/pkg/requestcontext"
)

// Submission is one scan as the agent observed it: a credential plus the
// evidence measured at the point of capture.
type Submission struct {
	Credential      string
	Location        geo.Point
	NetworkID       string
	BiometricSample []float64
}

// Result is returned for an accepted scan.
type Result struct {
	Message   string               `json:"message"`
	PunchType attendance.PunchType `json:"punch_type"`
	SubjectID string               `json:"subject_id"`
	Status    attendance.Status    `json:"status"`
}

// Service runs the verification pipeline: claim the credential, then check
// biometric, geofence and network evidence, then commit to the ledger. The
// claim always runs first so a replayed credential is spent before any other
// work; every later check fails terminally with no partial commit.
type Service struct {
	central    TokenStrategy
	self       TokenStrategy
	policies   policystore.PolicyStore
	biometrics *biometricservice.Service
	ledger     *attendanceservice.Service
	recorder   *audit.Recorder
	metrics    *metrics.Metrics
}

func NewService(
	central TokenStrategy,
	self TokenStrategy,
	policies policystore.PolicyStore,
	biometrics *biometricservice.Service,
	ledger *attendanceservice.Service,
	recorder *audit.Recorder,
	m *metrics.Metrics,
) *Service {
	return &Service{
		central:    central,
		self:       self,
		policies:   policies,
		biometrics: biometrics,
		ledger:     ledger,
		recorder:   recorder,
		metrics:    m,
	}
}

// Verify processes one scan submission end to end.
func (s *Service) Verify(ctx context.Context, sub Submission) (*Result, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveLatency(time.Since(start)) }()

	strategy, err := s.strategyFor(sub.Credential)
	if err != nil {
		s.metrics.ObserveScan("unknown", "rejected")
		return nil, err
	}

	claim, err := strategy.Claim(ctx, sub.Credential)
	if err != nil {
		return nil, s.reject(ctx, strategy, "", "claim", err)
	}

	pol, err := s.policies.FindBySite(ctx, claim.SiteID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			err = dErrors.New(dErrors.CodeFailedPrecondition, "no policy for site")
		} else {
			err = dErrors.Wrap(dErrors.CodeInternal, "load site policy", err)
		}
		return nil, s.reject(ctx, strategy, claim.SubjectID, "policy", err)
	}

	if _, err := s.biometrics.Match(ctx, claim.SubjectID, sub.BiometricSample); err != nil {
		return nil, s.reject(ctx, strategy, claim.SubjectID, "biometric", err)
	}

	location := sub.Location
	if location == (geo.Point{}) && claim.Location != nil {
		location = *claim.Location
	}
	if err := checkGeofence(pol, location); err != nil {
		return nil, s.reject(ctx, strategy, claim.SubjectID, "geofence", err)
	}

	networkID := sub.NetworkID
	if networkID == "" {
		networkID = claim.NetworkID
	}
	if err := checkNetwork(pol, networkID); err != nil {
		return nil, s.reject(ctx, strategy, claim.SubjectID, "network", err)
	}

	punch, err := s.ledger.Punch(ctx, pol, claim.SubjectID, attendanceservice.Evidence{
		Location:           location,
		VerifiedBy:         requestcontext.Agent(ctx),
		BiometricConfirmed: true,
	})
	if err != nil {
		return nil, s.reject(ctx, strategy, claim.SubjectID, "commit", err)
	}

	s.metrics.ObserveScan(strategy.Name(), "accepted")
	if s.recorder != nil {
		s.recorder.Record(ctx, audit.Event{
			SubjectID: claim.SubjectID,
			SiteID:    claim.SiteID,
			Action:    audit.ActionScanVerified,
			Outcome:   audit.OutcomeAccepted,
			Reason:    punch.Message,
		})
	}
	return &Result{
		Message:   punch.Message,
		PunchType: punch.PunchType,
		SubjectID: claim.SubjectID,
		Status:    punch.Status,
	}, nil
}

func (s *Service) reject(ctx context.Context, strategy TokenStrategy, subjectID, check string, err error) error {
	s.metrics.ObserveScan(strategy.Name(), "rejected")
	s.metrics.IncrementRejection(check)
	if s.recorder != nil {
		s.recorder.Record(ctx, audit.Event{
			SubjectID: subjectID,
			Action:    audit.ActionScanVerified,
			Outcome:   audit.OutcomeRejected,
			Reason:    err.Error(),
		})
	}
	return err
}

// checkGeofence enforces the site radius when the policy defines a center.
func checkGeofence(pol *policy.SitePolicy, location geo.Point) error {
	if !pol.HasGeofence {
		return nil
	}
	distance := geo.DistanceMeters(pol.Center, location)
	if distance > pol.RadiusMeters {
		return dErrors.New(dErrors.CodeForbidden,
			fmt.Sprintf("outside radius (%dm)", int(math.Round(distance))))
	}
	return nil
}

// checkNetwork enforces the site network when both sides name one. A
// submission without a network reading skips the check; measuring the
// network is the agent's prerogative, not every device can.
func checkNetwork(pol *policy.SitePolicy, networkID string) error {
	if pol.NetworkID == "" || networkID == "" {
		return nil
	}
	if networkID != pol.NetworkID {
		return dErrors.New(dErrors.CodeForbidden, "network mismatch")
	}
	return nil
}
