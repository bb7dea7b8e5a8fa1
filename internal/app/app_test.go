package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-onboarding/config"
	"github.com/jwalitptl/clinic-onboarding/internal/email"
	"github.com/jwalitptl/clinic-onboarding/pkg/logger"
	"github.com/jwalitptl/clinic-onboarding/pkg/security"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Database:     config.DatabaseConfig{Driver: config.DriverMemory},
		JWT:          config.JWTConfig{Secret: "secret", Issuer: "clinic-onboarding", Expiry: time.Hour},
		Notification: config.NotificationConfig{LoginURL: "https://app.example/login", Timeout: time.Second},
		Credentials:  security.CredentialConfig{Mode: security.ModeRandom},
	}
}

func TestNewServicesMemory(t *testing.T) {
	svcs, err := NewServices(context.Background(), memoryConfig(), logger.NewNop(), nil, false)
	require.NoError(t, err)
	defer svcs.Close()

	assert.Nil(t, svcs.DB)
	account, secret, err := svcs.Auth.CreatePlatformAdmin(context.Background(), "root@platform.example")
	require.NoError(t, err)
	assert.NotEmpty(t, secret)
	assert.Equal(t, "root", account.Username)
}

func TestNewServicesRejectsTestFixture(t *testing.T) {
	cfg := memoryConfig()
	cfg.Credentials = security.CredentialConfig{Mode: security.ModeFixed, TestFixture: true}
	_, err := NewServices(context.Background(), cfg, logger.NewNop(), nil, false)
	assert.ErrorIs(t, err, ErrTestFixture)

	cfg.Credentials.TestFixture = false
	_, err = NewServices(context.Background(), cfg, logger.NewNop(), nil, false)
	assert.ErrorIs(t, err, security.ErrFixedOutsideTest)
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	_, _, err := OpenStore(context.Background(), config.DatabaseConfig{Driver: "sqlite"}, false)
	assert.Error(t, err)
}

func TestNewTransportDefaultsToLog(t *testing.T) {
	tr := NewTransport(memoryConfig(), logger.NewNop())
	_, ok := tr.(*email.LogTransport)
	assert.True(t, ok)
}
