package verify

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkpoint/internal/attendance"
	attendanceservice "checkpoint/internal/attendance/service"
	attendancestore "checkpoint/internal/attendance/store"
	"checkpoint/internal/biometric"
	biometricservice "checkpoint/internal/biometric/service"
	biometricstore "checkpoint/internal/biometric/store"
	"checkpoint/internal/payload"
	"checkpoint/internal/payload/noncecache"
	"checkpoint/internal/policy"
	policystore "checkpoint/internal/policy/store"
	"checkpoint/internal/token"
	tokenstore "checkpoint/internal/token/store"
	dErrors "checkpoint/pkg/domain-errors"
	"checkpoint/pkg/geo"
	"checkpoint/pkg/requestcontext"
)

var (
	hqCenter  = geo.Point{Lat: 12.9716, Lng: 77.5946}
	scanStart = time.Date(2026, 3, 2, 8, 55, 0, 0, time.UTC)
)

type fixture struct {
	svc     *Service
	tokens  *tokenstore.InMemoryTokenStore
	refs    *biometricstore.InMemoryReferenceStore
	records *attendancestore.InMemoryRecordStore
}

func newFixture(t *testing.T, policies ...policy.SitePolicy) *fixture {
	t.Helper()

	if len(policies) == 0 {
		policies = []policy.SitePolicy{{
			SiteID:           "hq",
			Center:           hqCenter,
			RadiusMeters:     100,
			HasGeofence:      true,
			NetworkID:        "corp-wifi",
			WorkStartMinutes: 9 * 60,
			LateAfterMinutes: 15,
			HalfDayAfterMins: 240,
			Timezone:         "UTC",
		}}
	}
	siteStore := policystore.NewInMemoryPolicyStore()
	for _, p := range policies {
		p.Normalize()
		siteStore.Seed(p)
	}

	f := &fixture{
		tokens:  tokenstore.NewInMemoryTokenStore(),
		refs:    biometricstore.NewInMemoryReferenceStore(),
		records: attendancestore.NewInMemoryRecordStore(),
	}
	require.NoError(t, f.refs.Save(context.Background(), biometric.Reference{
		SubjectID: "subj-1",
		Embedding: referenceEmbedding(),
	}))

	f.svc = NewService(
		NewCentrallyIssued(f.tokens),
		NewSelfDescribing(noncecache.NewRing(16), payload.MaxAge),
		siteStore,
		biometricservice.NewService(f.refs, 0.58),
		attendanceservice.NewService(f.records),
		nil,
		nil,
	)
	return f
}

func (f *fixture) issue(t *testing.T, subjectID, siteID string, at time.Time) string {
	t.Helper()
	tok := &token.PresenceToken{
		ID:        uuid.New(),
		SubjectID: subjectID,
		SiteID:    siteID,
		Role:      token.RoleEmployee,
		IssuedAt:  at,
		ExpiresAt: at.Add(60 * time.Second),
	}
	require.NoError(t, f.tokens.Create(context.Background(), tok))
	return tok.ID.String()
}

func at(t time.Time) context.Context {
	return requestcontext.WithTime(context.Background(), t)
}

func referenceEmbedding() []float64 {
	return make([]float64, biometric.EmbeddingLength)
}

// matchingSample is within the 0.58 distance threshold of the reference.
func matchingSample() []float64 {
	s := referenceEmbedding()
	s[0] = 0.5
	return s
}

// strangerSample is past the threshold.
func strangerSample() []float64 {
	s := referenceEmbedding()
	s[0] = 0.7
	return s
}

func onSite(credential string) Submission {
	return Submission{
		Credential:      credential,
		Location:        hqCenter,
		NetworkID:       "corp-wifi",
		BiometricSample: matchingSample(),
	}
}

func TestVerifyCentralToken(t *testing.T) {
	t.Run("first scan punches in, second punches out, third is rejected", func(t *testing.T) {
		f := newFixture(t)

		res, err := f.svc.Verify(at(scanStart), onSite(f.issue(t, "subj-1", "hq", scanStart)))
		require.NoError(t, err)
		assert.Equal(t, attendance.PunchIn, res.PunchType)
		assert.Equal(t, attendance.StatusPresent, res.Status)
		assert.Equal(t, "subj-1", res.SubjectID)
		assert.Equal(t, "Punch-IN (present)", res.Message)

		evening := scanStart.Add(8 * time.Hour)
		res, err = f.svc.Verify(at(evening), onSite(f.issue(t, "subj-1", "hq", evening)))
		require.NoError(t, err)
		assert.Equal(t, attendance.PunchOut, res.PunchType)

		_, err = f.svc.Verify(at(evening.Add(time.Minute)),
			onSite(f.issue(t, "subj-1", "hq", evening.Add(time.Minute))))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	})

	t.Run("token is single-use", func(t *testing.T) {
		f := newFixture(t)
		credential := f.issue(t, "subj-1", "hq", scanStart)

		_, err := f.svc.Verify(at(scanStart), onSite(credential))
		require.NoError(t, err)

		_, err = f.svc.Verify(at(scanStart.Add(time.Second)), onSite(credential))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
		assert.Contains(t, err.Error(), "already used")
	})

	t.Run("token expiry boundary is inclusive", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Verify(at(scanStart.Add(60*time.Second)),
			onSite(f.issue(t, "subj-1", "hq", scanStart)))
		require.NoError(t, err)
	})

	t.Run("token a second past expiry is rejected", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.svc.Verify(at(scanStart.Add(61*time.Second)),
			onSite(f.issue(t, "subj-1", "hq", scanStart)))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
		assert.Contains(t, err.Error(), "token expired")
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Verify(at(scanStart), onSite(uuid.NewString()))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("unknown site has no policy", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Verify(at(scanStart), onSite(f.issue(t, "subj-1", "ghost-site", scanStart)))
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeFailedPrecondition))
	})
}

// TestVerifyConcurrentDuplicates submits the same credential from many
// goroutines: exactly one may commit.
func TestVerifyConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	credential := f.issue(t, "subj-1", "hq", scanStart)

	const racers = 16
	var wg sync.WaitGroup
	outcomes := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Verify(at(scanStart), onSite(credential))
			outcomes <- err
		}()
	}
	wg.Wait()
	close(outcomes)

	var accepted int
	for err := range outcomes {
		if err == nil {
			accepted++
		} else {
			assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
		}
	}
	assert.Equal(t, 1, accepted)

	rec, err := f.records.Find(context.Background(),
		attendancestore.Key{SiteID: "hq", SubjectID: "subj-1", Date: "2026-03-02"})
	require.NoError(t, err)
	assert.Len(t, rec.Log, 1)
}

func TestVerifyBiometric(t *testing.T) {
	t.Run("missing sample is a mismatch", func(t *testing.T) {
		f := newFixture(t)
		sub := onSite(f.issue(t, "subj-1", "hq", scanStart))
		sub.BiometricSample = nil

		_, err := f.svc.Verify(at(scanStart), sub)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	t.Run("stranger sample is rejected", func(t *testing.T) {
		f := newFixture(t)
		sub := onSite(f.issue(t, "subj-1", "hq", scanStart))
		sub.BiometricSample = strangerSample()

		_, err := f.svc.Verify(at(scanStart), sub)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
		assert.Contains(t, err.Error(), "face mismatch")
	})

	t.Run("unenrolled subject is rejected before any geofence work", func(t *testing.T) {
		f := newFixture(t)
		sub := onSite(f.issue(t, "subj-2", "hq", scanStart))

		_, err := f.svc.Verify(at(scanStart), sub)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeFailedPrecondition))
	})

	t.Run("a failed check still spends the token", func(t *testing.T) {
		f := newFixture(t)
		credential := f.issue(t, "subj-1", "hq", scanStart)
		sub := onSite(credential)
		sub.BiometricSample = strangerSample()

		_, err := f.svc.Verify(at(scanStart), sub)
		require.Error(t, err)

		// Retrying with the right face must not revive the credential.
		_, err = f.svc.Verify(at(scanStart.Add(time.Second)), onSite(credential))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already used")
	})
}

func TestVerifyGeofence(t *testing.T) {
	t.Run("inside the radius", func(t *testing.T) {
		f := newFixture(t)
		sub := onSite(f.issue(t, "subj-1", "hq", scanStart))
		sub.Location = geo.Point{Lat: hqCenter.Lat + 0.00089, Lng: hqCenter.Lng} // ~99m

		_, err := f.svc.Verify(at(scanStart), sub)
		require.NoError(t, err)
	})

	t.Run("outside the radius reports the rounded distance", func(t *testing.T) {
		f := newFixture(t)
		sub := onSite(f.issue(t, "subj-1", "hq", scanStart))
		sub.Location = geo.Point{Lat: hqCenter.Lat + 0.0012, Lng: hqCenter.Lng} // ~133m

		_, err := f.svc.Verify(at(scanStart), sub)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
		assert.Contains(t, err.Error(), "outside radius (133m)")
	})

	t.Run("no geofence in the policy skips the check", func(t *testing.T) {
		f := newFixture(t, policy.SitePolicy{
			SiteID:           "remote",
			WorkStartMinutes: 9 * 60,
			LateAfterMinutes: 15,
			Timezone:         "UTC",
		})
		sub := onSite(f.issue(t, "subj-1", "remote", scanStart))
		sub.Location = geo.Point{}
		sub.NetworkID = ""

		_, err := f.svc.Verify(at(scanStart), sub)
		require.NoError(t, err)
	})
}

func TestVerifyNetwork(t *testing.T) {
	t.Run("wrong network", func(t *testing.T) {
		f := newFixture(t)
		sub := onSite(f.issue(t, "subj-1", "hq", scanStart))
		sub.NetworkID = "coffee-shop"

		_, err := f.svc.Verify(at(scanStart), sub)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
		assert.Contains(t, err.Error(), "network mismatch")
	})

	t.Run("submission without a network reading skips the check", func(t *testing.T) {
		f := newFixture(t)
		sub := onSite(f.issue(t, "subj-1", "hq", scanStart))
		sub.NetworkID = ""

		_, err := f.svc.Verify(at(scanStart), sub)
		require.NoError(t, err)
	})
}

func TestVerifySelfDescribing(t *testing.T) {
	encode := func(t *testing.T, p payload.ScanPayload) string {
		t.Helper()
		raw, err := json.Marshal(p)
		require.NoError(t, err)
		return string(raw)
	}
	fresh := func(nonce string) payload.ScanPayload {
		return payload.ScanPayload{
			SubjectID:      "subj-1",
			SiteID:         "hq",
			IssuedAtMillis: scanStart.Add(-5 * time.Second).UnixMilli(),
			Latitude:       hqCenter.Lat,
			Longitude:      hqCenter.Lng,
			NetworkID:      "corp-wifi",
			Nonce:          nonce,
			SchemaVersion:  payload.SchemaVersion,
		}
	}

	t.Run("fresh payload commits using its embedded evidence", func(t *testing.T) {
		f := newFixture(t)
		sub := Submission{Credential: encode(t, fresh("n-1")), BiometricSample: matchingSample()}

		res, err := f.svc.Verify(at(scanStart), sub)
		require.NoError(t, err)
		assert.Equal(t, attendance.PunchIn, res.PunchType)
	})

	t.Run("stale payload", func(t *testing.T) {
		f := newFixture(t)
		p := fresh("n-2")
		p.IssuedAtMillis = scanStart.Add(-16 * time.Second).UnixMilli()
		sub := Submission{Credential: encode(t, p), BiometricSample: matchingSample()}

		_, err := f.svc.Verify(at(scanStart), sub)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
		assert.Contains(t, err.Error(), "payload expired")
	})

	t.Run("nonce replay", func(t *testing.T) {
		f := newFixture(t)
		credential := encode(t, fresh("n-3"))

		_, err := f.svc.Verify(at(scanStart),
			Submission{Credential: credential, BiometricSample: matchingSample()})
		require.NoError(t, err)

		_, err = f.svc.Verify(at(scanStart.Add(time.Second)),
			Submission{Credential: credential, BiometricSample: matchingSample()})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
		assert.Contains(t, err.Error(), "already used")
	})

	t.Run("unsupported schema version", func(t *testing.T) {
		f := newFixture(t)
		p := fresh("n-4")
		p.SchemaVersion = 2

		_, err := f.svc.Verify(at(scanStart),
			Submission{Credential: encode(t, p), BiometricSample: matchingSample()})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
	})
}

func TestVerifyUnrecognizedCredential(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Verify(at(scanStart), onSite("not-a-token"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidArgument))
}
