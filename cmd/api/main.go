package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-onboarding/config"
	"github.com/jwalitptl/clinic-onboarding/internal/app"
	"github.com/jwalitptl/clinic-onboarding/internal/handler/admin"
	"github.com/jwalitptl/clinic-onboarding/internal/handler/application"
	authhandler "github.com/jwalitptl/clinic-onboarding/internal/handler/auth"
	"github.com/jwalitptl/clinic-onboarding/internal/handler/health"
	promhandler "github.com/jwalitptl/clinic-onboarding/internal/handler/prometheus"
	"github.com/jwalitptl/clinic-onboarding/internal/middleware"
	"github.com/jwalitptl/clinic-onboarding/internal/router"
	"github.com/jwalitptl/clinic-onboarding/pkg/messaging"
	"github.com/jwalitptl/clinic-onboarding/pkg/worker"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger := app.NewLogger(cfg.Log)
	m := app.NewMetrics(cfg.Monitoring)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svcs, err := app.NewServices(ctx, cfg, logger, m, true)
	if err != nil {
		logger.Fatal(err, "failed to initialize services")
	}
	defer svcs.Close()

	// Initialize handlers
	handlers := router.Handlers{
		Application: application.NewHandler(svcs.Registration),
		Admin:       admin.NewHandler(svcs.Registration, svcs.Approval),
		Auth:        authhandler.NewHandler(svcs.Auth),
		Health:      health.NewHandler(nil),
	}
	if svcs.DB != nil {
		handlers.Health = health.NewHandler(svcs.DB)
	}
	if cfg.Monitoring.PrometheusEnabled {
		handlers.Metrics = promhandler.New(prometheus.DefaultGatherer)
	}

	routerCfg := router.RouterConfig{
		Mode:           cfg.Server.Mode,
		RequestTimeout: cfg.Server.RequestTimeout,
		CORS: middleware.CORSConfig{
			AllowOrigins: cfg.CORS.AllowedOrigins,
			AllowMethods: cfg.CORS.AllowedMethods,
			AllowHeaders: cfg.CORS.AllowedHeaders,
		},
		MetricsPath: cfg.Monitoring.MetricsPath,
	}
	if cfg.RateLimit.Enabled {
		routerCfg.RateLimit = &middleware.RateLimiterConfig{
			RPS:   cfg.RateLimit.RequestsPerSecond,
			Burst: cfg.RateLimit.Burst,
			TTL:   cfg.RateLimit.TTL,
		}
	}
	r := router.NewRouter(routerCfg, handlers, middleware.NewAuthMiddleware(svcs.Auth), logger, m)

	// The memory store cannot be shared with cmd/worker, so drain its outbox here.
	if cfg.Database.Driver == config.DriverMemory {
		processor, err := worker.NewOutboxProcessor(svcs.Store, messaging.NewLogPublisher(logger), worker.OutboxProcessorConfig{
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: cfg.Outbox.RetryAttempts,
			RetryDelay:    cfg.Outbox.RetryDelay,
		}, logger, m)
		if err != nil {
			logger.Fatal(err, "invalid outbox configuration")
		}
		go processor.Start(ctx)
		go worker.NewOutboxCleanupWorker(svcs.Store.Outbox(), cfg.Outbox.Retention, cfg.Outbox.PollInterval, logger).Start(ctx)
	}

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Server.Port, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err, "failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "server forced to shutdown")
	}

	logger.Info("server exited properly")
}
