package verify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"checkpoint/internal/payload"
	"checkpoint/internal/payload/noncecache"
	"checkpoint/internal/token/store"
	dErrors "checkpoint/pkg/domain-errors"
	"checkpoint/pkg/geo"
	"checkpoint/pkg/platform/sentinel"
	"checkpoint/pkg/requestcontext"
)

// Claim is what a credential resolves to once its replay defense has fired.
// Location and NetworkID are only set for credentials that embed them.
type Claim struct {
	SubjectID string
	SiteID    string
	Location  *geo.Point
	NetworkID string
}

// TokenStrategy consumes one credential exactly once. Implementations own
// the replay defense for their credential shape; the verifier never retries
// a claim, so a successful claim that later fails a check stays spent.
type TokenStrategy interface {
	Name() string
	Claim(ctx context.Context, credential string) (*Claim, error)
}

// CentrallyIssued claims server-issued presence tokens by their uuid. The
// atomic used flip in the store is the replay defense.
type CentrallyIssued struct {
	tokens store.TokenStore
}

func NewCentrallyIssued(tokens store.TokenStore) *CentrallyIssued {
	return &CentrallyIssued{tokens: tokens}
}

func (s *CentrallyIssued) Name() string { return "central" }

func (s *CentrallyIssued) Claim(ctx context.Context, credential string) (*Claim, error) {
	id, err := uuid.Parse(credential)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "malformed token")
	}

	tok, err := s.tokens.Claim(ctx, id, requestcontext.Now(ctx))
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "token not found")
		case errors.Is(err, sentinel.ErrAlreadyUsed):
			return nil, dErrors.New(dErrors.CodeForbidden, "token already used")
		case errors.Is(err, sentinel.ErrExpired):
			return nil, dErrors.New(dErrors.CodeInvalidArgument, "token expired")
		default:
			return nil, dErrors.Wrap(dErrors.CodeInternal, "claim token", err)
		}
	}
	return &Claim{SubjectID: tok.SubjectID, SiteID: tok.SiteID}, nil
}

// SelfDescribing claims client-generated scan payloads. A short freshness
// window plus a recently-seen nonce set stand in for server-side issuance.
type SelfDescribing struct {
	nonces noncecache.Cache
	maxAge time.Duration
}

func NewSelfDescribing(nonces noncecache.Cache, maxAge time.Duration) *SelfDescribing {
	if maxAge <= 0 {
		maxAge = payload.MaxAge
	}
	return &SelfDescribing{nonces: nonces, maxAge: maxAge}
}

func (s *SelfDescribing) Name() string { return "self" }

func (s *SelfDescribing) Claim(ctx context.Context, credential string) (*Claim, error) {
	var p payload.ScanPayload
	if err := json.Unmarshal([]byte(credential), &p); err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "malformed scan payload")
	}
	if p.SchemaVersion != payload.SchemaVersion {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "unsupported payload version")
	}
	if p.SubjectID == "" || p.SiteID == "" || p.Nonce == "" {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "incomplete scan payload")
	}
	if !p.Fresh(requestcontext.Now(ctx), s.maxAge) {
		return nil, dErrors.New(dErrors.CodeInvalidArgument, "payload expired")
	}

	admitted, err := s.nonces.Admit(ctx, p.Nonce)
	if err != nil {
		return nil, dErrors.Wrap(dErrors.CodeInternal, "admit nonce", err)
	}
	if !admitted {
		return nil, dErrors.New(dErrors.CodeForbidden, "payload already used")
	}

	claim := &Claim{SubjectID: p.SubjectID, SiteID: p.SiteID, NetworkID: p.NetworkID}
	if p.Latitude != 0 || p.Longitude != 0 {
		claim.Location = &geo.Point{Lat: p.Latitude, Lng: p.Longitude}
	}
	return claim, nil
}

// strategyFor picks the strategy from the credential shape: a uuid is a
// centrally-issued token, a JSON object is a self-describing payload.
func (s *Service) strategyFor(credential string) (TokenStrategy, error) {
	if _, err := uuid.Parse(credential); err == nil {
		return s.central, nil
	}
	if strings.HasPrefix(strings.TrimSpace(credential), "{") {
		return s.self, nil
	}
	return nil, dErrors.New(dErrors.CodeInvalidArgument, "unrecognized credential")
}
