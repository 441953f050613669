package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"checkpoint/internal/attendance"
	"checkpoint/internal/verify"
	dErrors "checkpoint/pkg/domain-errors"
	"checkpoint/pkg/testutil"
)

type stubService struct {
	got    verify.Submission
	result *verify.Result
	err    error
}

func (s *stubService) Verify(_ context.Context, sub verify.Submission) (*verify.Result, error) {
	s.got = sub
	return s.result, s.err
}

func newRouter(svc Service) chi.Router {
	r := chi.NewRouter()
	New(svc, slog.New(slog.DiscardHandler)).Register(r)
	return r
}

func TestHandleScan(t *testing.T) {
	t.Run("accepted scan returns the punch result", func(t *testing.T) {
		svc := &stubService{result: &verify.Result{
			Message:   "Punch-IN (present)",
			PunchType: attendance.PunchIn,
			SubjectID: "subj-1",
			Status:    attendance.StatusPresent,
		}}
		req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/scans", map[string]any{
			"credential": "0d9719b8-0f34-4f9e-b3a7-9a1b2c3d4e5f",
			"lat":        12.9716,
			"lng":        77.5946,
			"network_id": "corp-wifi",
		})

		rr := testutil.DoRequest(newRouter(svc), req)

		testutil.AssertStatusOK(t, rr)
		testutil.AssertJSONContains(t, rr, "message", "Punch-IN (present)")
		testutil.AssertJSONContains(t, rr, "punch_type", "IN")
		assert.Equal(t, "0d9719b8-0f34-4f9e-b3a7-9a1b2c3d4e5f", svc.got.Credential)
		assert.Equal(t, 12.9716, svc.got.Location.Lat)
		assert.Equal(t, "corp-wifi", svc.got.NetworkID)
	})

	t.Run("rejection maps the domain code to a status", func(t *testing.T) {
		svc := &stubService{err: dErrors.New(dErrors.CodeForbidden, "face mismatch")}
		req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/scans", map[string]any{
			"credential": "0d9719b8-0f34-4f9e-b3a7-9a1b2c3d4e5f",
		})

		rr := testutil.DoRequest(newRouter(svc), req)

		testutil.AssertDomainError(t, rr, http.StatusForbidden, string(dErrors.CodeForbidden))
		testutil.AssertErrorDescription(t, rr, "face mismatch")
	})

	t.Run("missing credential", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/scans", map[string]any{
			"lat": 12.9716,
		})

		rr := testutil.DoRequest(newRouter(&stubService{}), req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("out-of-range coordinates", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/scans", map[string]any{
			"credential": "tok",
			"lat":        123.0,
			"lng":        77.5946,
		})

		rr := testutil.DoRequest(newRouter(&stubService{}), req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := testutil.NewRequestWithBody(t, http.MethodPost, "/v1/scans", "{not json")

		rr := testutil.DoRequest(newRouter(&stubService{}), req)

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}
