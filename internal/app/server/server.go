package server

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"kpim/internal/domain/aggregation"
	"kpim/internal/domain/auth"
	"kpim/internal/domain/formula"
	"kpim/internal/domain/kpi"
	"kpim/internal/domain/notifications"
	"kpim/internal/domain/orgdir"
	"kpim/internal/domain/review"
	"kpim/internal/platform/config"
	"kpim/internal/platform/db"
	"kpim/internal/platform/jobs"
	"kpim/internal/platform/metrics"
	"kpim/internal/transport/http/api"
	formulahandler "kpim/internal/transport/http/handlers/formula"
	kpihandler "kpim/internal/transport/http/handlers/kpi"
	notificationshandler "kpim/internal/transport/http/handlers/notifications"
	reviewhandler "kpim/internal/transport/http/handlers/review"
	"kpim/internal/transport/http/middleware"
)

func Run() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config invalid: %v", err)
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool, "migrations"); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}
	}
	if cfg.RunSeed {
		if err := db.Seed(ctx, pool); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
	}

	collector := metrics.New()
	perms := db.NewPermissionStore(pool)
	directory := orgdir.NewStore(pool)
	notifySvc := notifications.New(notifications.NewStore(pool), directory)

	formulaSvc := formula.NewService(formula.NewStore(pool))
	aggSvc := aggregation.NewService(aggregation.NewStore(pool))

	jobsSvc := jobs.New(aggSvc, cfg, collector)

	reviewSvc := review.NewService(review.NewStore(pool), notifySvc)
	kpiSvc := kpi.NewService(kpi.NewStore(pool), notifySvc, jobsSvc)

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	if err := jobsSvc.Start(workerCtx, cfg.RecomputeSweepSpec); err != nil {
		log.Fatalf("jobs start failed: %v", err)
	}
	defer jobsSvc.Stop()

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.Environment == "production"))
	router.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
	router.Use(middleware.Auth(cfg.JWTSecret))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
	router.Use(middleware.TransitionRateLimit(cfg.RateLimitPerMinute, time.Minute))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.With(middleware.RequirePermission(auth.PermMetricsRead, perms)).Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, collector.Snapshot(), middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Metrics(collector))

		idem := middleware.NewIdempotencyStore(pool)

		reviewHandler := reviewhandler.NewHandler(reviewSvc, perms, idem, collector)
		reviewHandler.RegisterRoutes(r)

		kpiHandler := kpihandler.NewHandler(kpiSvc, aggSvc, perms)
		kpiHandler.RegisterRoutes(r)

		formulaHandler := formulahandler.NewHandler(formulaSvc, perms)
		formulaHandler.RegisterRoutes(r)

		notificationsHandler := notificationshandler.NewHandler(notifySvc)
		notificationsHandler.RegisterRoutes(r)
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("server listening", "addr", cfg.Addr, "env", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	<-shutdown
	slog.Info("shutting down")

	stopCtx, cancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(stopCtx); err != nil {
		slog.Error("shutdown failed", "err", err)
	}
}
