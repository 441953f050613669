package testutil

import (
	"net/http"

	"checkpoint/pkg/requestcontext"
)

// WithSubject adds an authenticated subject (and optional role) to the request
// context. This simulates what the auth middleware would do for authenticated
// requests.
func WithSubject(req *http.Request, subjectID, role string) *http.Request {
	ctx := requestcontext.WithSubjectID(req.Context(), subjectID)
	if role != "" {
		ctx = requestcontext.WithSubjectRole(ctx, role)
	}
	return req.WithContext(ctx)
}

// WithAgent adds a verifying-agent identifier to the request context, as the
// kiosk auth middleware would.
func WithAgent(req *http.Request, agent string) *http.Request {
	return req.WithContext(requestcontext.WithAgent(req.Context(), agent))
}
