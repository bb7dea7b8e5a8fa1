package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-onboarding/internal/model"
)

const applicationColumns = `
	id, clinic_name, clinic_address, contact_number, license_number, license_document,
	admin_name, admin_email, admin_phone, doctors, status, submitted_at,
	processed_at, processed_by, rejection_reason, updated_at`

type applicationRepository struct {
	BaseRepository
}

func (r *applicationRepository) Create(ctx context.Context, app *model.Application) error {
	if app.ID == uuid.Nil {
		app.ID = uuid.New()
	}
	now := time.Now().UTC()
	if app.SubmittedAt.IsZero() {
		app.SubmittedAt = now
	}
	app.UpdatedAt = now

	query := `
		INSERT INTO applications (` + applicationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err := r.exec(ctx, query,
		app.ID,
		app.ClinicName,
		app.ClinicAddress,
		app.ContactNumber,
		app.LicenseNumber,
		app.LicenseDocument,
		app.AdminName,
		app.AdminEmail,
		app.AdminPhone,
		app.Doctors,
		app.Status,
		app.SubmittedAt,
		app.ProcessedAt,
		app.ProcessedBy,
		app.RejectionReason,
		app.UpdatedAt,
	)
	return translate(err, "application")
}

func (r *applicationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	var app model.Application
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`
	if err := r.get(ctx, &app, query, id); err != nil {
		return nil, translate(err, "application")
	}
	return &app, nil
}

func (r *applicationRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Application, error) {
	var app model.Application
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1 FOR UPDATE`
	if err := r.get(ctx, &app, query, id); err != nil {
		return nil, translate(err, "application")
	}
	return &app, nil
}

func (r *applicationRepository) Update(ctx context.Context, app *model.Application) error {
	app.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE applications
		SET status = $1, processed_at = $2, processed_by = $3, rejection_reason = $4, updated_at = $5
		WHERE id = $6
	`
	return r.execOne(ctx, "application", query,
		app.Status,
		app.ProcessedAt,
		app.ProcessedBy,
		app.RejectionReason,
		app.UpdatedAt,
		app.ID,
	)
}

func (r *applicationRepository) List(ctx context.Context, filters *model.ApplicationFilters) ([]*model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE ($1 = '' OR status = $1) ORDER BY submitted_at ASC, id ASC`
	args := []interface{}{""}
	if filters != nil {
		args[0] = string(filters.Status)
		if filters.Limit > 0 {
			query += ` LIMIT $2`
			args = append(args, filters.Limit)
		}
	}

	apps := []*model.Application{}
	if err := r.selectAll(ctx, &apps, query, args...); err != nil {
		return nil, translate(err, "application")
	}
	return apps, nil
}

func (r *applicationRepository) HasPendingForEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM applications WHERE admin_email = $1 AND status = $2)`
	if err := r.get(ctx, &exists, query, email, model.ApplicationStatusPending); err != nil {
		return false, translate(err, "application")
	}
	return exists, nil
}
