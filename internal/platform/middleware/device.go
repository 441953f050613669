package middleware

import (
	"net/http"

	"github.com/mssola/useragent"

	"checkpoint/pkg/requestcontext"
)

// Device parses the User-Agent header into a compact "platform/browser"
// description and stores it in the request context. The attendance log and
// audit trail record it alongside the verifying agent.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("User-Agent")
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}
		ua := useragent.New(raw)
		name, version := ua.Browser()
		desc := ua.Platform()
		if name != "" {
			if desc != "" {
				desc += "/"
			}
			desc += name
			if version != "" {
				desc += " " + version
			}
		}
		next.ServeHTTP(w, r.WithContext(requestcontext.WithDevice(r.Context(), desc)))
	})
}
