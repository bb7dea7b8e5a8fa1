package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-onboarding/pkg/security"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFileWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  driver: memory
notification:
  login_url: https://clinic.example/login
`)
	t.Setenv("ONBOARDING_JWT_SECRET", "env-secret")
	t.Setenv("ONBOARDING_OUTBOX_BATCH_SIZE", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, 7, cfg.Outbox.BatchSize)
	assert.Equal(t, "https://clinic.example/login", cfg.Notification.LoginURL)
	assert.Equal(t, 12*time.Hour, cfg.JWT.Expiry)
	assert.Equal(t, security.ModeRandom, cfg.Credentials.Mode)
}

func TestLoadSecretsOverlay(t *testing.T) {
	path := writeConfig(t, `
database:
  password: from-file
`)
	t.Setenv("ONBOARDING_JWT_SECRET", "jwt")
	t.Setenv("ONBOARDING_DATABASE_PASSWORD", "from-env")
	t.Setenv("ONBOARDING_SMTP_PASSWORD", "smtp-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Database.Password)
	assert.Equal(t, "smtp-env", cfg.SMTP.Password)
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8080\n")
	t.Setenv("ONBOARDING_JWT_SECRET", "")

	_, err := Load(path)
	assert.ErrorContains(t, err, "jwt secret")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Setenv("ONBOARDING_JWT_SECRET", "jwt")
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:       ServerConfig{Port: 8080},
			Database:     DatabaseConfig{Driver: DriverPostgres},
			JWT:          JWTConfig{Secret: "s", Expiry: time.Hour},
			Notification: NotificationConfig{LoginURL: "https://x", Timeout: time.Second},
			Credentials:  security.CredentialConfig{Mode: security.ModeRandom},
			Outbox:       OutboxConfig{BatchSize: 1},
		}
	}
	require.NoError(t, valid().Validate())

	cases := map[string]func(*Config){
		"driver":      func(c *Config) { c.Database.Driver = "sqlite" },
		"port":        func(c *Config) { c.Server.Port = 0 },
		"login url":   func(c *Config) { c.Notification.LoginURL = "" },
		"credentials": func(c *Config) { c.Credentials.Mode = "hardcoded" },
		"smtp host":   func(c *Config) { c.SMTP.Enabled = true; c.SMTP.Host = "" },
		"batch size":  func(c *Config) { c.Outbox.BatchSize = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", cfg.DSN())

	cfg.URL = "postgres://u:p@db/n"
	assert.Equal(t, "postgres://u:p@db/n", cfg.DSN())
}
