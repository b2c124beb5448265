// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in the internal packages.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"memberflow/internal/audit"
	"memberflow/internal/catalog"
	"memberflow/internal/fieldval"
	"memberflow/internal/geo"
	"memberflow/internal/identity"
	"memberflow/internal/member/handler"
	membermetrics "memberflow/internal/member/metrics"
	"memberflow/internal/member/service"
	memberstore "memberflow/internal/member/store"
	"memberflow/internal/platform/config"
	"memberflow/internal/platform/httpserver"
	"memberflow/internal/platform/logger"
	platformmetrics "memberflow/internal/platform/metrics"
	"memberflow/internal/platform/middleware"
	"memberflow/internal/platform/postgres"
	platformredis "memberflow/internal/platform/redis"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}

	// Stores fall back to in-memory implementations when no database is
	// configured, which keeps local development dependency-free.
	var (
		members      memberstore.Store
		identities   identity.Store
		dropdowns    catalog.DropdownStore
		fieldSchemas catalog.FieldSchemaStore
		auditStore   audit.Store
	)
	if db != nil {
		members = memberstore.NewPostgres(db)
		identities = identity.NewPostgresStore(db)
		dropdowns = catalog.NewPostgresDropdownStore(db)
		fieldSchemas = catalog.NewPostgresFieldSchemaStore(db)
		auditStore = audit.NewPostgresStore(db)
	} else {
		log.Warn("no postgres DSN configured, using in-memory stores")
		members = memberstore.NewInMemory()
		identities = identity.NewInMemory()
		dropdowns = catalog.NewInMemoryDropdownStore()
		fieldSchemas = catalog.NewInMemoryFieldSchemaStore()
		auditStore = audit.NewInMemory()
	}

	var geocoder geo.Geocoder = geo.Noop{}
	if cfg.GeocoderURL != "" {
		geocoder = geo.NewHTTPGeocoder(cfg.GeocoderURL, log)
	}

	auditSink := make(chan audit.Event, cfg.AuditBuffer)
	auditWorker := audit.NewWorker(auditStore, auditSink, log)
	workerCtx, stopWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		if err := auditWorker.Run(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("audit worker stopped", "error", err)
		}
	}()

	workflowMetrics := membermetrics.New()
	httpMetrics := platformmetrics.New()

	svcOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(workflowMetrics),
		service.WithGeocoder(geocoder),
		service.WithAuditSink(auditSink),
	}
	if redisClient != nil {
		svcOpts = append(svcOpts, service.WithProjectionCache(redisClient.Client, cfg.CacheTTL))
	}

	svc := service.New(
		members,
		fieldSchemas,
		fieldval.NewEngine(dropdowns,
			fieldval.WithLogger(log),
			fieldval.WithLookupTimeout(cfg.StoreTimeout),
			fieldval.WithLookupAttempts(cfg.LookupAttempts)),
		identity.NewValidator(identities,
			identity.WithLogger(log),
			identity.WithLookupTimeout(cfg.StoreTimeout),
			identity.WithLookupAttempts(cfg.LookupAttempts)),
		svcOpts...,
	)

	router := chi.NewRouter()
	memberHandler := handler.New(
		svc,
		audit.NewPublisher(auditStore),
		log,
		httpMetrics,
		middleware.NewJWTActorValidator(cfg.JWTSigningKey),
	)
	memberHandler.Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", healthz(db, redisClient))

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting memberflow", "addr", cfg.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}

	stopWorker()
	<-workerDone
	if redisClient != nil {
		redisClient.Close()
	}
	if db != nil {
		db.Close()
	}
}

// healthz reports readiness of the configured backends. In-memory setups are
// always healthy.
func healthz(db *sql.DB, redisClient *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"status": "ok"}
		healthy := true
		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				status["postgres"] = err.Error()
				healthy = false
			}
		}
		if redisClient != nil {
			if err := redisClient.Health(ctx); err != nil {
				status["redis"] = err.Error()
				healthy = false
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if !healthy {
			status["status"] = "degraded"
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(status)
	}
}
