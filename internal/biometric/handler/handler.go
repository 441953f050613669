package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"checkpoint/internal/audit"
	"checkpoint/internal/token"
	dErrors "checkpoint/pkg/domain-errors"
	"checkpoint/pkg/platform/httputil"
	"checkpoint/pkg/requestcontext"
)

// Service defines the interface for biometric enrollment.
type Service interface {
	Register(ctx context.Context, subjectID string, embedding []float64) error
	Reset(ctx context.Context, subjectID string, embedding []float64) error
}

// Handler serves biometric enrollment. Registration is self-service and
// write-once; replacing a reference is a manager-only reset.
type Handler struct {
	logger   *slog.Logger
	refs     Service
	recorder *audit.Recorder
}

func New(refs Service, recorder *audit.Recorder, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, refs: refs, recorder: recorder}
}

// Register registers the biometric routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/biometrics", h.handleEnroll)
	r.Put("/v1/biometrics/{subjectID}", h.handleReset)
}

type enrollRequest struct {
	Embedding []float64 `json:"embedding"`
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	subjectID := requestcontext.SubjectID(ctx)

	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidArgument, "invalid request body"))
		return
	}

	if err := h.refs.Register(ctx, subjectID, req.Embedding); err != nil {
		h.logger.WarnContext(ctx, "biometric enrollment refused",
			"subject_id", subjectID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	h.record(ctx, subjectID, audit.ActionBiometricEnrolled)
	httputil.WriteJSON(w, http.StatusCreated, map[string]string{"subject_id": subjectID})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if requestcontext.SubjectRole(ctx) != string(token.RoleManager) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "reset requires a manager"))
		return
	}

	subjectID := chi.URLParam(r, "subjectID")
	if !govalidator.StringLength(subjectID, "1", "255") {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidArgument, "subject id is required"))
		return
	}

	var req enrollRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidArgument, "invalid request body"))
		return
	}

	if err := h.refs.Reset(ctx, subjectID, req.Embedding); err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "biometric reference reset",
		"subject_id", subjectID,
		"by", requestcontext.SubjectID(ctx),
	)
	h.record(ctx, subjectID, audit.ActionBiometricReset)
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"subject_id": subjectID})
}

func (h *Handler) record(ctx context.Context, subjectID string, action audit.Action) {
	if h.recorder == nil {
		return
	}
	h.recorder.Record(ctx, audit.Event{
		SubjectID: subjectID,
		Action:    action,
		Outcome:   audit.OutcomeAccepted,
	})
}
