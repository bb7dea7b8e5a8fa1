package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-onboarding/internal/model"
	"github.com/jwalitptl/clinic-onboarding/internal/repository"
	"github.com/jwalitptl/clinic-onboarding/internal/service/provisioning"
	"github.com/jwalitptl/clinic-onboarding/pkg/auth"
	apperrors "github.com/jwalitptl/clinic-onboarding/pkg/errors"
	"github.com/jwalitptl/clinic-onboarding/pkg/logger"
	"github.com/jwalitptl/clinic-onboarding/pkg/security"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type TokenResponse struct {
	AccessToken        string    `json:"access_token"`
	TokenType          string    `json:"token_type"`
	ExpiresAt          time.Time `json:"expires_at"`
	AccountID          uuid.UUID `json:"account_id"`
	Role               string    `json:"role"`
	MustChangePassword bool      `json:"must_change_password"`
}

type Service struct {
	store       repository.Store
	jwtSvc      auth.JWTService
	hasher      security.PasswordHasher
	provisioner *provisioning.Provisioner
	logger      *logger.Logger
}

func NewService(store repository.Store, jwtSvc auth.JWTService, hasher security.PasswordHasher,
	provisioner *provisioning.Provisioner, log *logger.Logger) *Service {
	return &Service{
		store:       store,
		jwtSvc:      jwtSvc,
		hasher:      hasher,
		provisioner: provisioner,
		logger:      log,
	}
}

// Login verifies email and password and issues a bearer token. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperrors.Validation("email and password are required", nil)
	}

	account, err := s.store.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized(ErrInvalidCredentials)
		}
		return nil, err
	}
	if account.Status != model.AccountStatusActive {
		return nil, apperrors.Unauthorized(ErrInvalidCredentials)
	}

	if err := s.hasher.Compare(account.PasswordHash, password); err != nil {
		if !errors.Is(err, security.ErrMismatch) {
			s.logger.Error(err, "password comparison failed", "account_id", account.ID.String())
		}
		return nil, apperrors.Unauthorized(ErrInvalidCredentials)
	}

	token, expiresAt, err := s.jwtSvc.GenerateAccessToken(account.ID, string(account.Role))
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	s.logger.Info("login succeeded", "account_id", account.ID.String(), "role", string(account.Role))
	return &TokenResponse{
		AccessToken:        token,
		TokenType:          "Bearer",
		ExpiresAt:          expiresAt,
		AccountID:          account.ID,
		Role:               string(account.Role),
		MustChangePassword: account.MustChangePassword,
	}, nil
}

// Authenticate validates a bearer token and returns the claims it carries.
func (s *Service) Authenticate(token string) (*auth.Claims, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	return claims, nil
}

// CreatePlatformAdmin bootstraps an administrator with no clinic association.
// The returned secret is shown once.
func (s *Service) CreatePlatformAdmin(ctx context.Context, email string) (*model.Account, string, error) {
	var (
		account *model.Account
		secret  string
	)
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		account, secret, err = s.provisioner.CreateAccount(ctx, tx, provisioning.AccountRequest{
			Email: email,
			Role:  model.AccountRolePlatformAdmin,
		})
		return err
	})
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("platform administrator created", "account_id", account.ID.String())
	return account, secret, nil
}
