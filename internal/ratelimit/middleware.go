package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	dErrors "checkpoint/pkg/domain-errors"
	"checkpoint/pkg/platform/httputil"
	"checkpoint/pkg/requestcontext"
)

// Middleware rejects scan submissions that exceed limit per window for a
// given caller. Keyed by authenticated subject when present, else remote
// host; scope keeps limiters with different windows from sharing buckets.
func Middleware(store Store, scope string, limit int, window time.Duration, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			key := requestcontext.SubjectID(ctx)
			if key == "" {
				host, _, err := net.SplitHostPort(r.RemoteAddr)
				if err != nil {
					host = r.RemoteAddr
				}
				key = host
			}
			key = scope + ":" + key

			res, err := store.Allow(ctx, key, limit, window)
			if err != nil {
				// Limiter failure must not block verification; log and pass.
				logger.ErrorContext(ctx, "rate limiter unavailable", "error", err)
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				logger.WarnContext(ctx, "scan rate limit exceeded",
					"key", key,
					"reset_at", res.ResetAt,
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Retry-After", res.ResetAt.UTC().Format(http.TimeFormat))
				httputil.WriteError(w, dErrors.New(dErrors.CodeTooManyRequests, "too many scan attempts"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
