package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-onboarding/internal/model"
	"github.com/jwalitptl/clinic-onboarding/internal/repository"
	"github.com/jwalitptl/clinic-onboarding/internal/service/notification"
	"github.com/jwalitptl/clinic-onboarding/internal/service/provisioning"
	"github.com/jwalitptl/clinic-onboarding/internal/service/registration"
	apperrors "github.com/jwalitptl/clinic-onboarding/pkg/errors"
	"github.com/jwalitptl/clinic-onboarding/pkg/logger"
	"github.com/jwalitptl/clinic-onboarding/pkg/metrics"
)

const platformName = "Platform"

// Notifier delivers freshly generated secrets after commit.
type Notifier interface {
	SendCredentials(ctx context.Context, clinicName string, recipients []notification.Recipient, reset bool) ([]notification.Delivery, error)
}

type ApprovalServicer interface {
	Approve(ctx context.Context, applicationID, actorID uuid.UUID) (*Result, error)
	Reject(ctx context.Context, applicationID, actorID uuid.UUID, reason string) (*model.Application, error)
	ResetCredentials(ctx context.Context, accountID, actorID uuid.UUID) (*ResetResult, error)
}

// SkippedDoctor is a doctor entry whose email was already provisioned by the
// same approval.
type SkippedDoctor struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

// Result of a committed approval. NotificationErr is set when one or more
// deliveries failed; the provisioning itself stands.
type Result struct {
	Application     *model.Application      `json:"application"`
	Clinic          *model.Clinic           `json:"clinic"`
	Accounts        []*model.Account        `json:"accounts"`
	SkippedDoctors  []SkippedDoctor         `json:"skipped_doctors,omitempty"`
	Notifications   []notification.Delivery `json:"notifications"`
	NotificationErr error                   `json:"-"`
}

func (r *Result) NotificationsFailed() bool {
	return r.NotificationErr != nil
}

type ResetResult struct {
	Account         *model.Account         `json:"account"`
	Notification    *notification.Delivery `json:"notification,omitempty"`
	NotificationErr error                  `json:"-"`
}

type Service struct {
	store       repository.Store
	provisioner *provisioning.Provisioner
	notifier    Notifier
	logger      *logger.Logger
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewService(store repository.Store, provisioner *provisioning.Provisioner, notifier Notifier, log *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:       store,
		provisioner: provisioner,
		notifier:    notifier,
		logger:      log,
		metrics:     m,
		now:         time.Now,
	}
}

// Approve provisions the clinic, its administrator and its doctors in one
// transaction, then delivers each new secret. Nothing is written when any
// provisioning step fails; a failed delivery never undoes the commit.
func (s *Service) Approve(ctx context.Context, applicationID, actorID uuid.UUID) (*Result, error) {
	start := time.Now()
	log := s.logger.WithFields(map[string]interface{}{
		"application_id": applicationID.String(),
		"actor_id":       actorID.String(),
	})

	var (
		result     *Result
		recipients []notification.Recipient
	)
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		// Reset on every attempt so a rolled back run leaks nothing.
		result, recipients = &Result{}, nil

		app, err := tx.Applications().GetForUpdate(ctx, applicationID)
		if err != nil {
			return err
		}
		if err := registration.Approve(app, actorID, s.now()); err != nil {
			return err
		}

		clinic := &model.Clinic{
			ID:            uuid.New(),
			ApplicationID: app.ID,
			Name:          app.ClinicName,
			Address:       app.ClinicAddress,
			ContactNumber: app.ContactNumber,
			LicenseNumber: app.LicenseNumber,
			Status:        model.ClinicStatusActive,
		}
		if err := tx.Clinics().Create(ctx, clinic); err != nil {
			return err
		}

		admin, secret, err := s.provisioner.CreateAccount(ctx, tx, provisioning.AccountRequest{
			Email:        app.AdminEmail,
			Role:         model.AccountRoleClinicAdmin,
			ClinicID:     clinic.ID,
			RoleAtClinic: model.ClinicRoleAdmin,
		})
		if err != nil {
			return fmt.Errorf("administrator account: %w", err)
		}
		result.Accounts = append(result.Accounts, admin)
		recipients = append(recipients, notification.Recipient{AccountID: admin.ID, Email: admin.Email, Secret: secret})

		provisioned := map[string]bool{admin.Email: true}
		for i, doc := range app.Doctors {
			email := registration.NormalizeEmail(doc.Email)
			if provisioned[email] {
				result.SkippedDoctors = append(result.SkippedDoctors, SkippedDoctor{
					Name:   doc.Name,
					Email:  email,
					Reason: "email already provisioned by this approval",
				})
				continue
			}

			account, secret, err := s.provisioner.CreateAccount(ctx, tx, provisioning.AccountRequest{
				Email:        email,
				Role:         model.AccountRoleDoctor,
				ClinicID:     clinic.ID,
				RoleAtClinic: model.ClinicRoleDoctor,
			})
			if err != nil {
				return fmt.Errorf("doctor account %d: %w", i, err)
			}
			provisioned[email] = true
			result.Accounts = append(result.Accounts, account)
			recipients = append(recipients, notification.Recipient{AccountID: account.ID, Email: account.Email, Secret: secret})
		}

		if err := tx.Applications().Update(ctx, app); err != nil {
			return err
		}

		doctorIDs := make([]uuid.UUID, 0, len(result.Accounts)-1)
		for _, acc := range result.Accounts[1:] {
			doctorIDs = append(doctorIDs, acc.ID)
		}
		evt, err := model.NewOutboxEvent(model.EventApplicationApproved, app.ID, model.ApplicationApprovedPayload{
			ApplicationID:  app.ID,
			ClinicID:       clinic.ID,
			AdminAccountID: admin.ID,
			DoctorAccounts: doctorIDs,
			ApprovedBy:     actorID,
			ApprovedAt:     *app.ProcessedAt,
		})
		if err != nil {
			return fmt.Errorf("failed to build approved event: %w", err)
		}
		if err := tx.Outbox().Create(ctx, evt); err != nil {
			return err
		}

		result.Application = app
		result.Clinic = clinic
		return nil
	})
	s.metrics.ObserveApproval(time.Since(start))
	if err != nil {
		err = classify(err)
		s.metrics.ApprovalFailed(kindOf(err))
		log.Error(err, "approval failed")
		return nil, err
	}

	s.metrics.Decision(string(model.ApplicationStatusApproved))
	log.Info("application approved",
		"clinic_id", result.Clinic.ID.String(),
		"accounts", len(result.Accounts),
		"skipped_doctors", len(result.SkippedDoctors),
	)

	result.Notifications, result.NotificationErr = s.notifier.SendCredentials(ctx, result.Clinic.Name, recipients, false)
	for i := range recipients {
		recipients[i].Secret = ""
	}
	if result.NotificationErr != nil {
		log.Warn("approval committed but some credentials were not delivered", "error", result.NotificationErr.Error())
	}
	return result, nil
}

// Reject records the decision and reason. Nothing is provisioned.
func (s *Service) Reject(ctx context.Context, applicationID, actorID uuid.UUID, reason string) (*model.Application, error) {
	var rejected *model.Application
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		app, err := tx.Applications().GetForUpdate(ctx, applicationID)
		if err != nil {
			return err
		}
		if err := registration.Reject(app, actorID, reason, s.now()); err != nil {
			return err
		}
		if err := tx.Applications().Update(ctx, app); err != nil {
			return err
		}

		evt, err := model.NewOutboxEvent(model.EventApplicationRejected, app.ID, model.ApplicationRejectedPayload{
			ApplicationID: app.ID,
			AdminEmail:    app.AdminEmail,
			Reason:        *app.RejectionReason,
			RejectedBy:    actorID,
			RejectedAt:    *app.ProcessedAt,
		})
		if err != nil {
			return fmt.Errorf("failed to build rejected event: %w", err)
		}
		if err := tx.Outbox().Create(ctx, evt); err != nil {
			return err
		}
		rejected = app
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Decision(string(model.ApplicationStatusRejected))
	s.logger.Info("application rejected",
		"application_id", applicationID.String(),
		"actor_id", actorID.String(),
	)
	return rejected, nil
}

// ResetCredentials issues a temporary secret and delivers it. It is also the
// retry path for an approval whose notification failed, since the original
// secret was never stored.
func (s *Service) ResetCredentials(ctx context.Context, accountID, actorID uuid.UUID) (*ResetResult, error) {
	if actorID == uuid.Nil {
		return nil, apperrors.Validation("actor is required", nil)
	}

	var (
		account    *model.Account
		secret     string
		clinicName = platformName
	)
	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		var err error
		account, secret, err = s.provisioner.ResetSecret(ctx, tx, accountID)
		if err != nil {
			return err
		}

		assocs, err := tx.Clinics().ListForAccount(ctx, account.ID)
		if err != nil {
			return err
		}
		if len(assocs) > 0 {
			clinic, err := tx.Clinics().Get(ctx, assocs[0].ClinicID)
			if err != nil {
				return err
			}
			clinicName = clinic.Name
		}

		evt, err := model.NewOutboxEvent(model.EventCredentialsReset, account.ID, model.CredentialsResetPayload{
			AccountID: account.ID,
			ResetBy:   actorID,
			ResetAt:   s.now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("failed to build reset event: %w", err)
		}
		return tx.Outbox().Create(ctx, evt)
	})
	if err != nil {
		return nil, classify(err)
	}

	s.logger.Info("credentials reset", "account_id", account.ID.String(), "actor_id", actorID.String())

	deliveries, nerr := s.notifier.SendCredentials(ctx, clinicName,
		[]notification.Recipient{{AccountID: account.ID, Email: account.Email, Secret: secret}}, true)
	result := &ResetResult{Account: account, NotificationErr: nerr}
	if len(deliveries) > 0 {
		result.Notification = &deliveries[0]
	}
	return result, nil
}

// classify keeps caller-facing failures as they are and turns anything
// unexpected into a provisioning failure.
func classify(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case apperrors.ErrValidation, apperrors.ErrInvalidState, apperrors.ErrConflict, apperrors.ErrNotFound:
			return err
		}
	}
	return apperrors.Provisioning(err)
}

func kindOf(err error) string {
	switch apperrors.CodeOf(err) {
	case apperrors.ErrValidation:
		return "validation"
	case apperrors.ErrInvalidState:
		return "invalid_state"
	case apperrors.ErrConflict:
		return "conflict"
	case apperrors.ErrNotFound:
		return "not_found"
	default:
		return "provisioning"
	}
}
