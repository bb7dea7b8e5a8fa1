// Package app wires configuration into the stores and services shared by the
// api, worker and onboardctl binaries.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/jwalitptl/clinic-onboarding/config"
	"github.com/jwalitptl/clinic-onboarding/internal/email"
	"github.com/jwalitptl/clinic-onboarding/internal/repository"
	"github.com/jwalitptl/clinic-onboarding/internal/repository/memory"
	"github.com/jwalitptl/clinic-onboarding/internal/repository/postgres"
	"github.com/jwalitptl/clinic-onboarding/internal/service/approval"
	authsvc "github.com/jwalitptl/clinic-onboarding/internal/service/auth"
	"github.com/jwalitptl/clinic-onboarding/internal/service/notification"
	"github.com/jwalitptl/clinic-onboarding/internal/service/provisioning"
	"github.com/jwalitptl/clinic-onboarding/internal/service/registration"
	"github.com/jwalitptl/clinic-onboarding/pkg/auth"
	"github.com/jwalitptl/clinic-onboarding/pkg/logger"
	"github.com/jwalitptl/clinic-onboarding/pkg/metrics"
	"github.com/jwalitptl/clinic-onboarding/pkg/security"
	"github.com/jwalitptl/clinic-onboarding/pkg/validator"
)

const metricsNamespace = "onboarding"

var ErrTestFixture = errors.New("credentials.test_fixture must not be set outside tests")

func NewLogger(cfg config.LogConfig) *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Console,
	})
}

// NewMetrics registers with the default registry when Prometheus is enabled.
func NewMetrics(cfg config.MonitoringConfig) *metrics.Metrics {
	if !cfg.PrometheusEnabled {
		return nil
	}
	return metrics.NewMetrics(metricsNamespace, prometheus.DefaultRegisterer)
}

// OpenStore returns the configured store. db is nil for the memory driver.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig, migrate bool) (repository.Store, *sqlx.DB, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memory.NewStore(), nil, nil
	case config.DriverPostgres:
		db, err := postgres.NewDB(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if migrate {
			if err := postgres.Migrate(ctx, db); err != nil {
				db.Close()
				return nil, nil, err
			}
		}
		return postgres.NewStore(db), db, nil
	default:
		return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func NewTransport(cfg *config.Config, log *logger.Logger) email.Transport {
	if !cfg.SMTP.Enabled {
		return email.NewLogTransport(log)
	}
	return email.NewSMTPTransport(email.SMTPConfig{
		Host:       cfg.SMTP.Host,
		Port:       cfg.SMTP.Port,
		Username:   cfg.SMTP.Username,
		Password:   cfg.SMTP.Password,
		From:       cfg.SMTP.From,
		SenderName: cfg.Notification.SenderName,
	}, log)
}

type Services struct {
	Store        repository.Store
	DB           *sqlx.DB
	Registration *registration.Service
	Approval     *approval.Service
	Auth         *authsvc.Service
}

// NewServices opens the store and builds every domain service.
func NewServices(ctx context.Context, cfg *config.Config, log *logger.Logger, m *metrics.Metrics, migrate bool) (*Services, error) {
	if cfg.Credentials.TestFixture {
		return nil, ErrTestFixture
	}
	gen, err := security.NewCredentialGenerator(cfg.Credentials)
	if err != nil {
		return nil, err
	}

	store, db, err := OpenStore(ctx, cfg.Database, migrate)
	if err != nil {
		return nil, err
	}

	hasher := security.NewBcryptHasher(bcrypt.DefaultCost)
	prov := provisioning.NewProvisioner(gen, hasher, m)
	dispatcher := notification.NewDispatcher(
		NewTransport(cfg, log),
		store.Notifications(),
		notification.Config{
			LoginURL: cfg.Notification.LoginURL,
			Timeout:  cfg.Notification.Timeout,
		},
		log, m,
	)
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry)

	return &Services{
		Store:        store,
		DB:           db,
		Registration: registration.NewService(store, validator.New(), log, m),
		Approval:     approval.NewService(store, prov, dispatcher, log, m),
		Auth:         authsvc.NewService(store, jwtSvc, hasher, prov, log),
	}, nil
}

func (s *Services) Close() error {
	return s.Store.Close()
}
