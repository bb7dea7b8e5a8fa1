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
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-onboarding/config"
	"github.com/jwalitptl/clinic-onboarding/internal/app"
	"github.com/jwalitptl/clinic-onboarding/pkg/logger"
	"github.com/jwalitptl/clinic-onboarding/pkg/messaging"
	"github.com/jwalitptl/clinic-onboarding/pkg/messaging/redis"
	"github.com/jwalitptl/clinic-onboarding/pkg/worker"
)

func setupHealthCheck(port int, metricsPath string, log *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if metricsPath != "" {
		mux.Handle(metricsPath, promhttp.Handler())
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "health check server failed")
		}
	}()
	return srv
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger := app.NewLogger(cfg.Log).WithFields(map[string]interface{}{"component": "outbox-worker"})

	if cfg.Database.Driver != config.DriverPostgres {
		logger.Fatal(fmt.Errorf("driver %q", cfg.Database.Driver), "the worker needs the postgres store")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := app.NewMetrics(cfg.Monitoring)

	store, _, err := app.OpenStore(ctx, cfg.Database, false)
	if err != nil {
		logger.Fatal(err, "failed to connect to database")
	}
	defer store.Close()

	broker, err := redis.NewRedisBroker(ctx, redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, logger, m)
	if err != nil {
		logger.Fatal(err, "failed to create Redis broker")
	}
	defer broker.Close()

	processor, err := worker.NewOutboxProcessor(
		store,
		messaging.NewChannelPublisher(broker, cfg.Redis.Channel),
		worker.OutboxProcessorConfig{
			BatchSize:     cfg.Outbox.BatchSize,
			PollInterval:  cfg.Outbox.PollInterval,
			RetryAttempts: cfg.Outbox.RetryAttempts,
			RetryDelay:    cfg.Outbox.RetryDelay,
		},
		logger,
		m,
	)
	if err != nil {
		logger.Fatal(err, "invalid outbox configuration")
	}

	health := setupHealthCheck(cfg.Outbox.HealthPort, cfg.Monitoring.MetricsPath, logger)
	defer health.Close()

	go worker.NewOutboxCleanupWorker(store.Outbox(), cfg.Outbox.Retention, time.Hour, logger).Start(ctx)

	processor.Start(ctx)
	logger.Info("worker stopped")
}
