package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	attendanceservice "checkpoint/internal/attendance/service"
	attendancestore "checkpoint/internal/attendance/store"
	"checkpoint/internal/audit"
	auditstore "checkpoint/internal/audit/store"
	biometrichandler "checkpoint/internal/biometric/handler"
	biometricservice "checkpoint/internal/biometric/service"
	biometricstore "checkpoint/internal/biometric/store"
	"checkpoint/internal/jwtauth"
	"checkpoint/internal/payload/noncecache"
	"checkpoint/internal/platform/config"
	"checkpoint/internal/platform/httpserver"
	"checkpoint/internal/platform/logger"
	"checkpoint/internal/platform/metrics"
	platformredis "checkpoint/internal/platform/redis"
	"checkpoint/internal/policy"
	policystore "checkpoint/internal/policy/store"
	"checkpoint/internal/ratelimit"
	"checkpoint/internal/token"
	tokenhandler "checkpoint/internal/token/handler"
	tokenservice "checkpoint/internal/token/service"
	tokenstore "checkpoint/internal/token/store"
	httptransport "checkpoint/internal/transport/http"
	"checkpoint/internal/verify"
	verifyhandler "checkpoint/internal/verify/handler"
	verifymetrics "checkpoint/internal/verify/metrics"
)

func main() {
	log := logger.New()
	if err := run(log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	cfg := config.FromEnv()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stores fall back to in-memory implementations when no DSN is set, which
	// keeps single-node and dev deployments dependency free.
	memoryDirectory := tokenstore.NewInMemorySubjectDirectory()
	memoryPolicies := policystore.NewInMemoryPolicyStore()
	var (
		tokens     tokenstore.TokenStore           = tokenstore.NewInMemoryTokenStore()
		directory  tokenstore.SubjectDirectory     = memoryDirectory
		policies   policystore.PolicyStore         = memoryPolicies
		references biometricservice.ReferenceStore = biometricstore.NewInMemoryReferenceStore()
		records    attendancestore.RecordStore     = attendancestore.NewInMemoryRecordStore()
		trail      auditstore.EventStore           = auditstore.NewInMemoryEventStore()
	)
	if cfg.PostgresDSN == "" {
		seedDev(cfg, memoryPolicies, memoryDirectory, log)
	}

	if cfg.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer pool.Close()

		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()

		tokens = tokenstore.NewPostgresTokenStore(pool)
		directory = tokenstore.NewPostgresSubjectDirectory(pool)
		policies = policystore.NewPostgresPolicyStore(pool)
		references = biometricstore.NewPostgresReferenceStore(db)
		records = attendancestore.NewPostgresRecordStore(pool)
		trail = auditstore.NewPostgresEventStore(pool)
		log.Info("using postgres stores")
	}

	var nonces noncecache.Cache = noncecache.NewRing(cfg.NonceCacheSize)
	redisClient, err := platformredis.New(cfg.Redis())
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		nonces = noncecache.NewRedisCache(redisClient.Client, 2*cfg.PayloadFreshness)
		log.Info("using redis nonce cache")
	}

	recorder := audit.NewRecorder(log, 256)
	worker := audit.NewWorker(trail, recorder.Inbox(), log)
	if cfg.KafkaBrokers != "" {
		sink, err := audit.NewKafkaSink(ctx, cfg.Brokers(), cfg.AuditTopic)
		if err != nil {
			return err
		}
		defer sink.Close()
		worker = worker.WithSink(sink)
		log.Info("publishing audit events to kafka", "topic", cfg.AuditTopic)
	}

	procMetrics := metrics.New()
	jwtService := jwtauth.NewService(cfg.JWTSigningKey, "checkpoint", "checkpoint")

	issuer := tokenservice.NewService(tokens, directory, cfg.TokenTTL)
	biometrics := biometricservice.NewService(references, cfg.BiometricThreshold)
	ledger := attendanceservice.NewService(records)
	verifier := verify.NewService(
		verify.NewCentrallyIssued(tokens),
		verify.NewSelfDescribing(nonces, cfg.PayloadFreshness),
		policies,
		biometrics,
		ledger,
		recorder,
		verifymetrics.New(),
	)

	router := httptransport.New(httptransport.Config{
		Logger:         log,
		Metrics:        procMetrics,
		JWTValidator:   jwtService,
		AgentKeyring:   cfg.AgentKeyring(),
		ScanRateStore:  ratelimit.NewInMemoryStore(),
		ScanRateLimit:  cfg.ScanRatePerMinute,
		ScanRateWindow: time.Minute,
		ScanRateBurst:  cfg.ScanRateBurst,
		Subject: []httptransport.Registrar{
			tokenhandler.New(issuer, recorder, log),
			biometrichandler.New(biometrics, recorder, log),
		},
		Agent: []httptransport.Registrar{
			verifyhandler.New(verifier, log),
		},
	})

	server := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return worker.Run(ctx)
	})
	group.Go(func() error {
		log.Info("listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

// seedDev populates the in-memory policy store and roster. Without a seed the
// memory fallback would reject every issue and scan, since both collaborators
// are otherwise authored externally.
func seedDev(cfg config.Server, policies *policystore.InMemoryPolicyStore, directory *tokenstore.InMemorySubjectDirectory, log *slog.Logger) {
	if cfg.DevSiteID == "" {
		log.Warn("in-memory stores hold no site policy or roster; " +
			"set CHECKPOINT_DEV_SITE and CHECKPOINT_DEV_SUBJECTS or configure postgres")
		return
	}

	policies.Seed(policy.SitePolicy{SiteID: cfg.DevSiteID})

	subjects := cfg.DevSubjectIDs()
	for _, id := range subjects {
		directory.Seed(token.Subject{ID: id, SiteID: cfg.DevSiteID, Role: token.RoleEmployee})
	}
	log.Info("seeded dev site and roster", "site_id", cfg.DevSiteID, "subjects", len(subjects))
}
