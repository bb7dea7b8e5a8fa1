package registration

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-onboarding/internal/model"
	"github.com/jwalitptl/clinic-onboarding/internal/repository"
	apperrors "github.com/jwalitptl/clinic-onboarding/pkg/errors"
	"github.com/jwalitptl/clinic-onboarding/pkg/logger"
	"github.com/jwalitptl/clinic-onboarding/pkg/metrics"
	"github.com/jwalitptl/clinic-onboarding/pkg/validator"
)

const defaultListLimit = 100

type RegistrationServicer interface {
	Submit(ctx context.Context, req *model.SubmitApplicationRequest) (*model.Application, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Application, error)
	List(ctx context.Context, filters *model.ApplicationFilters) ([]*model.Application, error)
}

type Service struct {
	store     repository.Store
	validator validator.Validator
	logger    *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewService(store repository.Store, v validator.Validator, log *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{
		store:     store,
		validator: v,
		logger:    log,
		metrics:   m,
		now:       time.Now,
	}
}

// Submit records a new pending application. The form layer has already
// checked field presence; this enforces the domain rules.
func (s *Service) Submit(ctx context.Context, req *model.SubmitApplicationRequest) (*model.Application, error) {
	if req == nil {
		return nil, apperrors.Validation("application data is required", nil)
	}
	normalized := Normalize(req)
	if err := s.validator.Validate(normalized); err != nil {
		return nil, apperrors.Validation("invalid application", err)
	}

	app := &model.Application{
		ID:              uuid.New(),
		ClinicName:      normalized.ClinicName,
		ClinicAddress:   normalized.ClinicAddress,
		ContactNumber:   normalized.ContactNumber,
		LicenseNumber:   normalized.LicenseNumber,
		LicenseDocument: normalized.LicenseDocument,
		AdminName:       normalized.AdminName,
		AdminEmail:      normalized.AdminEmail,
		AdminPhone:      normalized.AdminPhone,
		Doctors:         model.DoctorList(normalized.Doctors),
		Status:          model.ApplicationStatusPending,
		SubmittedAt:     s.now().UTC(),
	}

	err := s.store.WithTx(ctx, func(tx repository.Tx) error {
		registered, err := tx.Accounts().EmailExists(ctx, app.AdminEmail)
		if err != nil {
			return err
		}
		if registered {
			return apperrors.Validation("administrator email is already registered", nil)
		}

		inFlight, err := tx.Applications().HasPendingForEmail(ctx, app.AdminEmail)
		if err != nil {
			return err
		}
		if inFlight {
			return apperrors.Conflict("an application for this administrator email is already pending", nil)
		}

		if err := tx.Applications().Create(ctx, app); err != nil {
			if apperrors.Is(err, apperrors.ErrConflict) {
				return apperrors.Conflict("an application for this administrator email is already pending", err)
			}
			return err
		}

		evt, err := model.NewOutboxEvent(model.EventApplicationSubmitted, app.ID, model.ApplicationSubmittedPayload{
			ApplicationID: app.ID,
			ClinicName:    app.ClinicName,
			AdminEmail:    app.AdminEmail,
			DoctorCount:   app.DoctorCount(),
			SubmittedAt:   app.SubmittedAt,
		})
		if err != nil {
			return fmt.Errorf("failed to build submitted event: %w", err)
		}
		return tx.Outbox().Create(ctx, evt)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ApplicationSubmitted()
	s.logger.Info("application submitted",
		"application_id", app.ID.String(),
		"clinic", app.ClinicName,
		"doctors", app.DoctorCount(),
	)
	return app, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	return s.store.Applications().Get(ctx, id)
}

// List returns applications oldest first, pending ones by default.
func (s *Service) List(ctx context.Context, filters *model.ApplicationFilters) ([]*model.Application, error) {
	f := model.ApplicationFilters{Status: model.ApplicationStatusPending, Limit: defaultListLimit}
	if filters != nil {
		if filters.Status != "" {
			f.Status = filters.Status
		}
		if filters.Limit > 0 {
			f.Limit = filters.Limit
		}
	}
	switch f.Status {
	case model.ApplicationStatusPending, model.ApplicationStatusApproved, model.ApplicationStatusRejected:
	default:
		return nil, apperrors.Validation(fmt.Sprintf("unknown status %q", f.Status), nil)
	}
	return s.store.Applications().List(ctx, &f)
}

// Normalize trims every field, lower-cases emails and drops doctor rows that
// lack a name or an email. Rows with both present are kept as given so that a
// malformed email still fails validation.
func Normalize(req *model.SubmitApplicationRequest) *model.SubmitApplicationRequest {
	out := &model.SubmitApplicationRequest{
		ClinicName:      strings.TrimSpace(req.ClinicName),
		ClinicAddress:   strings.TrimSpace(req.ClinicAddress),
		ContactNumber:   strings.TrimSpace(req.ContactNumber),
		LicenseNumber:   strings.TrimSpace(req.LicenseNumber),
		LicenseDocument: strings.TrimSpace(req.LicenseDocument),
		AdminName:       strings.TrimSpace(req.AdminName),
		AdminEmail:      NormalizeEmail(req.AdminEmail),
		AdminPhone:      strings.TrimSpace(req.AdminPhone),
		Doctors:         make([]model.DoctorEntry, 0, len(req.Doctors)),
	}
	for _, d := range req.Doctors {
		name := strings.TrimSpace(d.Name)
		email := NormalizeEmail(d.Email)
		if name == "" || email == "" {
			continue
		}
		out.Doctors = append(out.Doctors, model.DoctorEntry{Name: name, Email: email})
	}
	return out
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
