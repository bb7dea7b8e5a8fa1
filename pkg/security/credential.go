package security

import (
	"errors"
	"fmt"
	"math"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// SecretKind selects the alphabet and length of a generated secret.
type SecretKind string

const (
	SecretPermanent SecretKind = "permanent"
	SecretTemporary SecretKind = "temporary"
)

const (
	alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	symbols      = "!@#$%^&*"

	permanentLength = 12
	temporaryLength = 12

	// MinSecretBits is the entropy floor every generated secret must clear.
	MinSecretBits = 60
)

// Generator modes accepted in configuration.
const (
	ModeRandom = "random"
	ModeFixed  = "fixed"
)

// DefaultFixedSecret is what the fixed strategy hands out when no secret is configured.
const DefaultFixedSecret = "PermanentPass123!"

var ErrFixedOutsideTest = errors.New("fixed credential mode requires test_fixture to be enabled")

// CredentialGenerator produces secrets for newly provisioned accounts.
type CredentialGenerator interface {
	Generate(kind SecretKind) (string, error)
}

// CredentialConfig selects the generator strategy. The fixed strategy is only
// reachable when TestFixture is set alongside Mode.
type CredentialConfig struct {
	Mode        string `mapstructure:"mode"`
	TestFixture bool   `mapstructure:"test_fixture"`
	FixedSecret string `mapstructure:"fixed_secret"`
}

// NewCredentialGenerator builds the generator described by cfg.
func NewCredentialGenerator(cfg CredentialConfig) (CredentialGenerator, error) {
	switch cfg.Mode {
	case "", ModeRandom:
		return &randomGenerator{}, nil
	case ModeFixed:
		if !cfg.TestFixture {
			return nil, ErrFixedOutsideTest
		}
		secret := cfg.FixedSecret
		if secret == "" {
			secret = DefaultFixedSecret
		}
		if len(secret) < MinPasswordLen {
			return nil, fmt.Errorf("fixed secret must be at least %d characters", MinPasswordLen)
		}
		return &fixedGenerator{secret: secret}, nil
	default:
		return nil, fmt.Errorf("unknown credential mode %q", cfg.Mode)
	}
}

type randomGenerator struct{}

// Generate draws from crypto/rand through nanoid's unbiased alphabet sampling.
func (g *randomGenerator) Generate(kind SecretKind) (string, error) {
	alphabet, length, err := shape(kind)
	if err != nil {
		return "", err
	}
	secret, err := gonanoid.Generate(alphabet, length)
	if err != nil {
		return "", fmt.Errorf("failed to generate %s secret: %w", kind, err)
	}
	return secret, nil
}

type fixedGenerator struct {
	secret string
}

func (g *fixedGenerator) Generate(kind SecretKind) (string, error) {
	if _, _, err := shape(kind); err != nil {
		return "", err
	}
	return g.secret, nil
}

func shape(kind SecretKind) (alphabet string, length int, err error) {
	switch kind {
	case SecretPermanent:
		return alphanumeric + symbols, permanentLength, nil
	case SecretTemporary:
		return alphanumeric, temporaryLength, nil
	default:
		return "", 0, fmt.Errorf("unknown secret kind %q", kind)
	}
}

// EntropyBits reports the entropy of a secret of the given kind.
func EntropyBits(kind SecretKind) float64 {
	alphabet, length, err := shape(kind)
	if err != nil {
		return 0
	}
	return float64(length) * math.Log2(float64(len(alphabet)))
}
