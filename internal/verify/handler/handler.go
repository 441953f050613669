package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"checkpoint/internal/verify"
	dErrors "checkpoint/pkg/domain-errors"
	"checkpoint/pkg/geo"
	"checkpoint/pkg/platform/httputil"
)

// Service defines the interface for scan verification.
type Service interface {
	Verify(ctx context.Context, sub verify.Submission) (*verify.Result, error)
}

// Handler serves the scan submission endpoint used by scanning agents.
type Handler struct {
	logger *slog.Logger
	scans  Service
}

func New(scans Service, logger *slog.Logger) *Handler {
	return &Handler{logger: logger, scans: scans}
}

// Register registers the scan routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/scans", h.handleScan)
}

type scanRequest struct {
	Credential      string    `json:"credential"`
	Latitude        float64   `json:"lat"`
	Longitude       float64   `json:"lng"`
	NetworkID       string    `json:"network_id,omitempty"`
	BiometricSample []float64 `json:"biometric_sample,omitempty"`
}

func (r *scanRequest) validate() error {
	if !govalidator.StringLength(r.Credential, "1", "4096") {
		return dErrors.New(dErrors.CodeInvalidArgument, "credential is required")
	}
	if r.Latitude != 0 || r.Longitude != 0 {
		if !govalidator.InRangeFloat64(r.Latitude, -90, 90) ||
			!govalidator.InRangeFloat64(r.Longitude, -180, 180) {
			return dErrors.New(dErrors.CodeInvalidArgument, "coordinates out of range")
		}
	}
	if !govalidator.StringLength(r.NetworkID, "0", "255") {
		return dErrors.New(dErrors.CodeInvalidArgument, "network_id too long")
	}
	return nil
}

func (h *Handler) handleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidArgument, "invalid request body"))
		return
	}
	if err := req.validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.scans.Verify(ctx, verify.Submission{
		Credential:      req.Credential,
		Location:        geo.Point{Lat: req.Latitude, Lng: req.Longitude},
		NetworkID:       req.NetworkID,
		BiometricSample: req.BiometricSample,
	})
	if err != nil {
		h.logger.InfoContext(ctx, "scan rejected", "error", err.Error())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
