package httptransport

import (
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"checkpoint/internal/platform/middleware"
	"checkpoint/pkg/platform/httputil"
	"checkpoint/pkg/requestcontext"
	"checkpoint/pkg/testutil"
)

type rejectAll struct{}

func (rejectAll) ValidateToken(string) (*middleware.JWTClaims, error) {
	return nil, errors.New("bad token")
}

type echoSubject struct{}

func (echoSubject) Register(r chi.Router) {
	r.Post("/v1/tokens", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{
			"subject_id": requestcontext.SubjectID(r.Context()),
		})
	})
}

type echoAgent struct{}

func (echoAgent) Register(r chi.Router) {
	r.Post("/v1/scans", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{
			"agent": requestcontext.Agent(r.Context()),
		})
	})
}

func newTestRouter() http.Handler {
	return New(Config{
		Logger:       slog.New(slog.DiscardHandler),
		JWTValidator: rejectAll{},
		AgentKeyring: middleware.AgentKeyring{},
		Subject:      []Registrar{echoSubject{}},
		Agent:        []Registrar{echoAgent{}},
	})
}

func TestRouter(t *testing.T) {
	t.Run("healthz is open", func(t *testing.T) {
		rr := testutil.DoRequest(newTestRouter(), testutil.NewRequest(t, http.MethodGet, "/healthz"))
		testutil.AssertStatusOK(t, rr)
	})

	t.Run("metrics is open", func(t *testing.T) {
		rr := testutil.DoRequest(newTestRouter(), testutil.NewRequest(t, http.MethodGet, "/metrics"))
		testutil.AssertStatusOK(t, rr)
	})

	t.Run("subject routes demand a bearer token", func(t *testing.T) {
		rr := testutil.DoRequest(newTestRouter(), testutil.NewRequest(t, http.MethodPost, "/v1/tokens"))
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("agent routes default to the subject's own device", func(t *testing.T) {
		rr := testutil.DoRequest(newTestRouter(), testutil.NewRequest(t, http.MethodPost, "/v1/scans"))
		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "agent", "self")
	})

	t.Run("unknown scanner agent is rejected", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodPost, "/v1/scans")
		req.Header.Set("X-Agent-ID", "kiosk-1")
		req.Header.Set("X-Agent-Key", "wrong")
		rr := testutil.DoRequest(newTestRouter(), req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("every response carries a request id", func(t *testing.T) {
		rr := testutil.DoRequest(newTestRouter(), testutil.NewRequest(t, http.MethodGet, "/healthz"))
		assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	})
}
