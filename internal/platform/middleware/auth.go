package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	dErrors "checkpoint/pkg/domain-errors"
	"checkpoint/pkg/platform/httputil"
	"checkpoint/pkg/requestcontext"
)

// JWTValidator validates bearer tokens presented by subject devices.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims are the claims the auth middleware forwards into the request
// context.
type JWTClaims struct {
	SubjectID string
	Role      string
}

// RequireSubject rejects requests without a valid subject bearer token and
// stores the subject identity in the request context.
func RequireSubject(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token"))
				return
			}

			ctx = requestcontext.WithSubjectID(ctx, claims.SubjectID)
			ctx = requestcontext.WithSubjectRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AgentKeyring maps staffed/kiosk scanner agent IDs to bcrypt hashes of their
// shared keys. Subject devices scanning for themselves send no agent headers.
type AgentKeyring map[string]string

// AgentIdentity resolves the verifying agent for a scan submission. Requests
// carrying X-Agent-ID must present a key matching the keyring; requests
// without agent headers are treated as the subject's own device ("self").
func AgentIdentity(keyring AgentKeyring, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			agentID := r.Header.Get("X-Agent-ID")
			if agentID == "" {
				next.ServeHTTP(w, r.WithContext(requestcontext.WithAgent(ctx, "self")))
				return
			}

			hash, ok := keyring[agentID]
			if !ok || bcrypt.CompareHashAndPassword([]byte(hash), []byte(r.Header.Get("X-Agent-Key"))) != nil {
				logger.WarnContext(ctx, "unauthorized scanner agent",
					"agent_id", agentID,
					"request_id", requestcontext.RequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "unknown or mis-keyed scanner agent"))
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithAgent(ctx, agentID)))
		})
	}
}
