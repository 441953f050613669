// Package agent implements the device-side capture loop that feeds the scan
// verifier: sample the scanner on an interval, stop sampling once something
// is in frame, keep at most one verification in flight, and cool down after
// every terminal response before sampling again.
package agent

import (
	"context"
	"log/slog"
	"time"

	"checkpoint/internal/verify"
	"checkpoint/pkg/geo"
)

const (
	defaultInterval = 500 * time.Millisecond
	defaultCooldown = 3 * time.Second
)

// Capture is one frame worth of evidence from the device.
type Capture struct {
	Credential      string
	Location        geo.Point
	NetworkID       string
	BiometricSample []float64
}

// Scanner reads the device sensors. A nil Capture with a nil error means
// nothing was in frame.
type Scanner interface {
	Capture(ctx context.Context) (*Capture, error)
}

// Verifier is the server-side pipeline the agent submits to.
type Verifier interface {
	Verify(ctx context.Context, sub verify.Submission) (*verify.Result, error)
}

// Option configures an Agent.
type Option func(*Agent)

// WithInterval sets the sampling interval.
func WithInterval(d time.Duration) Option {
	return func(a *Agent) { a.interval = d }
}

// WithCooldown sets the pause after a terminal response.
func WithCooldown(d time.Duration) Option {
	return func(a *Agent) { a.cooldown = d }
}

// WithWait sets the wait function for testability.
func WithWait(wait func(ctx context.Context, d time.Duration) error) Option {
	return func(a *Agent) { a.wait = wait }
}

// WithOnResult registers a callback for terminal responses, e.g. a kiosk
// display. Exactly one of result and err is set.
func WithOnResult(fn func(result *verify.Result, err error)) Option {
	return func(a *Agent) { a.onResult = fn }
}

// Agent drives one scanner against one verifier. The loop is synchronous,
// which is what bounds it to a single in-flight verification.
type Agent struct {
	scanner  Scanner
	verifier Verifier
	logger   *slog.Logger
	interval time.Duration
	cooldown time.Duration
	wait     func(ctx context.Context, d time.Duration) error
	onResult func(result *verify.Result, err error)
}

func New(scanner Scanner, verifier Verifier, logger *slog.Logger, opts ...Option) *Agent {
	a := &Agent{
		scanner:  scanner,
		verifier: verifier,
		logger:   logger,
		interval: defaultInterval,
		cooldown: defaultCooldown,
		wait:     sleep,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run samples until ctx is cancelled.
func (a *Agent) Run(ctx context.Context) error {
	for {
		if err := a.wait(ctx, a.interval); err != nil {
			return err
		}

		capture, err := a.scanner.Capture(ctx)
		if err != nil {
			a.logger.WarnContext(ctx, "scanner capture failed", "error", err)
			continue
		}
		if capture == nil {
			continue
		}

		result, err := a.verifier.Verify(ctx, verify.Submission{
			Credential:      capture.Credential,
			Location:        capture.Location,
			NetworkID:       capture.NetworkID,
			BiometricSample: capture.BiometricSample,
		})
		if err != nil {
			a.logger.InfoContext(ctx, "scan rejected", "error", err)
		} else {
			a.logger.InfoContext(ctx, "scan accepted",
				"subject_id", result.SubjectID,
				"punch_type", result.PunchType,
			)
		}
		if a.onResult != nil {
			a.onResult(result, err)
		}

		if err := a.wait(ctx, a.cooldown); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
