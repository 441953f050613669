// Package httptransport wires the feature handlers into one router with the
// shared middleware chain. Business logic stays in the feature services.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"checkpoint/internal/platform/metrics"
	"checkpoint/internal/platform/middleware"
	"checkpoint/internal/ratelimit"
	"checkpoint/pkg/platform/httputil"
)

// Registrar is implemented by every feature handler.
type Registrar interface {
	Register(r chi.Router)
}

// Config carries the cross-cutting collaborators the router needs.
type Config struct {
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	JWTValidator middleware.JWTValidator
	AgentKeyring middleware.AgentKeyring

	ScanRateStore  ratelimit.Store
	ScanRateLimit  int
	ScanRateWindow time.Duration
	// ScanRateBurst caps submissions inside any single second, under the
	// sustained window above.
	ScanRateBurst int

	// Subject-authenticated endpoints: token issuance, self enrollment.
	Subject []Registrar
	// Agent-authenticated endpoints: scan submission.
	Agent []Registrar
}

// New assembles the full router.
func New(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logger(cfg.Logger))
	r.Use(middleware.Latency(cfg.Metrics))
	r.Use(middleware.Device)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSubject(cfg.JWTValidator, cfg.Logger))
		for _, reg := range cfg.Subject {
			reg.Register(r)
		}
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.AgentIdentity(cfg.AgentKeyring, cfg.Logger))
		if cfg.ScanRateStore != nil {
			r.Use(ratelimit.Middleware(cfg.ScanRateStore, "sustained", cfg.ScanRateLimit, cfg.ScanRateWindow, cfg.Logger))
			if cfg.ScanRateBurst > 0 {
				r.Use(ratelimit.Middleware(cfg.ScanRateStore, "burst", cfg.ScanRateBurst, time.Second, cfg.Logger))
			}
		}
		for _, reg := range cfg.Agent {
			reg.Register(r)
		}
	})

	return r
}
