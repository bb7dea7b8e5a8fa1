package provisioning

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-onboarding/internal/model"
	"github.com/jwalitptl/clinic-onboarding/internal/repository"
	apperrors "github.com/jwalitptl/clinic-onboarding/pkg/errors"
	"github.com/jwalitptl/clinic-onboarding/pkg/metrics"
	"github.com/jwalitptl/clinic-onboarding/pkg/security"
)

const maxUsernameAttempts = 1000

// AccountRequest describes one account to create. A nil ClinicID creates an
// account with no clinic association (platform administrators).
type AccountRequest struct {
	Email        string
	Role         model.AccountRole
	ClinicID     uuid.UUID
	RoleAtClinic string
}

// Provisioner creates accounts inside a caller-owned transaction.
type Provisioner struct {
	generator security.CredentialGenerator
	hasher    security.PasswordHasher
	metrics   *metrics.Metrics
}

func NewProvisioner(generator security.CredentialGenerator, hasher security.PasswordHasher, m *metrics.Metrics) *Provisioner {
	return &Provisioner{
		generator: generator,
		hasher:    hasher,
		metrics:   m,
	}
}

// CreateAccount stores a new account with a permanent secret and returns the
// plaintext secret. It is returned exactly once and never persisted.
func (p *Provisioner) CreateAccount(ctx context.Context, tx repository.Tx, req AccountRequest) (*model.Account, string, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, "", apperrors.Validation("account email is required", nil)
	}
	if !req.Role.Valid() {
		return nil, "", apperrors.Validation(fmt.Sprintf("unknown role %q", req.Role), nil)
	}

	taken, err := tx.Accounts().EmailExists(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if taken {
		return nil, "", apperrors.Conflict(fmt.Sprintf("email %s is already registered", email), nil)
	}

	username, err := DeriveUsername(ctx, tx.Accounts(), email)
	if err != nil {
		return nil, "", err
	}

	secret, hash, err := p.newSecret(security.SecretPermanent)
	if err != nil {
		return nil, "", err
	}

	account := &model.Account{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         req.Role,
		Status:       model.AccountStatusActive,
	}
	if err := tx.Accounts().Create(ctx, account); err != nil {
		return nil, "", err
	}

	if req.ClinicID != uuid.Nil {
		if err := tx.Clinics().AssignAccount(ctx, &model.ClinicAccount{
			ClinicID:     req.ClinicID,
			AccountID:    account.ID,
			RoleAtClinic: req.RoleAtClinic,
		}); err != nil {
			return nil, "", err
		}
	}

	p.metrics.AccountProvisioned(string(req.Role))
	return account, secret, nil
}

// ResetSecret replaces an account's secret with a temporary one that must be
// changed at next login.
func (p *Provisioner) ResetSecret(ctx context.Context, tx repository.Tx, accountID uuid.UUID) (*model.Account, string, error) {
	account, err := tx.Accounts().Get(ctx, accountID)
	if err != nil {
		return nil, "", err
	}

	secret, hash, err := p.newSecret(security.SecretTemporary)
	if err != nil {
		return nil, "", err
	}
	if err := tx.Accounts().UpdatePassword(ctx, account.ID, hash, true); err != nil {
		return nil, "", err
	}
	account.PasswordHash = hash
	account.MustChangePassword = true
	return account, secret, nil
}

func (p *Provisioner) newSecret(kind security.SecretKind) (string, string, error) {
	secret, err := p.generator.Generate(kind)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate secret: %w", err)
	}
	hash, err := p.hasher.Hash(secret)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return secret, hash, nil
}

// DeriveUsername uses the email local part, appending 2, 3, ... until the
// name is free.
func DeriveUsername(ctx context.Context, accounts repository.AccountRepository, email string) (string, error) {
	base := strings.ToLower(strings.TrimSpace(email))
	if at := strings.LastIndex(base, "@"); at >= 0 {
		base = base[:at]
	}
	if base == "" {
		return "", apperrors.Validation("cannot derive a username from "+email, nil)
	}

	candidate := base
	for n := 2; n <= maxUsernameAttempts; n++ {
		exists, err := accounts.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + strconv.Itoa(n)
	}
	return "", apperrors.Conflict("no free username for "+email, nil)
}
