package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"checkpoint/internal/audit"
	"checkpoint/internal/token"
	"checkpoint/pkg/platform/httputil"
	"checkpoint/pkg/requestcontext"
)

// Service defines the interface for token issuance.
type Service interface {
	Issue(ctx context.Context) (*token.PresenceToken, error)
}

// Handler serves the presence token endpoint. The subject identity comes
// from the auth middleware, never from the request body.
type Handler struct {
	logger   *slog.Logger
	tokens   Service
	recorder *audit.Recorder
}

func New(tokens Service, recorder *audit.Recorder, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, tokens: tokens, recorder: recorder}
}

// Register registers the token routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/tokens", h.handleIssue)
}

type issueResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	tok, err := h.tokens.Issue(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "token issuance refused",
			"subject_id", requestcontext.SubjectID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	if h.recorder != nil {
		h.recorder.Record(ctx, audit.Event{
			SubjectID: tok.SubjectID,
			SiteID:    tok.SiteID,
			Action:    audit.ActionTokenIssued,
			Outcome:   audit.OutcomeAccepted,
		})
	}
	httputil.WriteJSON(w, http.StatusCreated, issueResponse{
		Token:     tok.ID.String(),
		ExpiresAt: tok.ExpiresAt,
	})
}
