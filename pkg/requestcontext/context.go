// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them; services read them. Keeping the
// package free of net/http lets services avoid pulling in transport code, and
// lets tests inject values directly.
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	subjectIDKey   struct{}
	subjectRoleKey struct{}
	agentKey       struct{}
	deviceKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need raw context.WithValue.
var (
	ContextKeySubjectID   = subjectIDKey{}
	ContextKeySubjectRole = subjectRoleKey{}
	ContextKeyAgent       = agentKey{}
	ContextKeyDevice      = deviceKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// SubjectID retrieves the authenticated subject ID from the context.
// Returns "" when the request is unauthenticated.
func SubjectID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeySubjectID).(string); ok {
		return id
	}
	return ""
}

// WithSubjectID injects a subject ID into the context.
func WithSubjectID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeySubjectID, id)
}

// SubjectRole retrieves the authenticated subject's role from the context.
func SubjectRole(ctx context.Context) string {
	if role, ok := ctx.Value(ContextKeySubjectRole).(string); ok {
		return role
	}
	return ""
}

// WithSubjectRole injects a subject role into the context.
func WithSubjectRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, ContextKeySubjectRole, role)
}

// Agent retrieves the verifying-agent identifier (kiosk id or "self") that
// submitted the scan. Recorded verbatim in the attendance punch log.
func Agent(ctx context.Context) string {
	if agent, ok := ctx.Value(ContextKeyAgent).(string); ok {
		return agent
	}
	return ""
}

// WithAgent injects a verifying-agent identifier into the context.
func WithAgent(ctx context.Context, agent string) context.Context {
	return context.WithValue(ctx, ContextKeyAgent, agent)
}

// Device retrieves the parsed device description (platform/browser) set by the
// device middleware. Empty for non-HTTP callers.
func Device(ctx context.Context) string {
	if device, ok := ctx.Value(ContextKeyDevice).(string); ok {
		return device
	}
	return ""
}

// WithDevice injects a device description into the context.
func WithDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, ContextKeyDevice, device)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, id)
}

// Now retrieves the request-scoped time from the context. A single request
// observes one instant: the claim, every evidence check, and the ledger
// mutation all see the same "now". Falls back to time.Now() for non-HTTP
// contexts (workers, CLI).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Used by the request-time
// middleware and by service tests that need deterministic clocks.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
