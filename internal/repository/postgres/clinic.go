package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-onboarding/internal/model"
)

type clinicRepository struct {
	BaseRepository
}

func (r *clinicRepository) Create(ctx context.Context, clinic *model.Clinic) error {
	if clinic.ID == uuid.Nil {
		clinic.ID = uuid.New()
	}
	now := time.Now().UTC()
	clinic.CreatedAt = now
	clinic.UpdatedAt = now

	query := `
		INSERT INTO clinics (
			id, application_id, name, address, contact_number, license_number,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.exec(ctx, query,
		clinic.ID,
		clinic.ApplicationID,
		clinic.Name,
		clinic.Address,
		clinic.ContactNumber,
		clinic.LicenseNumber,
		clinic.Status,
		clinic.CreatedAt,
		clinic.UpdatedAt,
	)
	return translate(err, "clinic")
}

func (r *clinicRepository) Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error) {
	var clinic model.Clinic
	query := `
		SELECT id, application_id, name, address, contact_number, license_number, status, created_at, updated_at
		FROM clinics WHERE id = $1
	`
	if err := r.get(ctx, &clinic, query, id); err != nil {
		return nil, translate(err, "clinic")
	}
	return &clinic, nil
}

func (r *clinicRepository) GetByApplication(ctx context.Context, applicationID uuid.UUID) (*model.Clinic, error) {
	var clinic model.Clinic
	query := `
		SELECT id, application_id, name, address, contact_number, license_number, status, created_at, updated_at
		FROM clinics WHERE application_id = $1
	`
	if err := r.get(ctx, &clinic, query, applicationID); err != nil {
		return nil, translate(err, "clinic")
	}
	return &clinic, nil
}

func (r *clinicRepository) AssignAccount(ctx context.Context, assoc *model.ClinicAccount) error {
	if assoc.CreatedAt.IsZero() {
		assoc.CreatedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO clinic_accounts (clinic_id, account_id, role_at_clinic, created_at)
		VALUES ($1, $2, $3, $4)
	`
	_, err := r.exec(ctx, query, assoc.ClinicID, assoc.AccountID, assoc.RoleAtClinic, assoc.CreatedAt)
	return translate(err, "clinic account")
}

func (r *clinicRepository) ListAccounts(ctx context.Context, clinicID uuid.UUID) ([]*model.ClinicAccount, error) {
	assocs := []*model.ClinicAccount{}
	query := `
		SELECT clinic_id, account_id, role_at_clinic, created_at
		FROM clinic_accounts WHERE clinic_id = $1
		ORDER BY created_at ASC
	`
	if err := r.selectAll(ctx, &assocs, query, clinicID); err != nil {
		return nil, translate(err, "clinic account")
	}
	return assocs, nil
}

func (r *clinicRepository) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]*model.ClinicAccount, error) {
	assocs := []*model.ClinicAccount{}
	query := `
		SELECT clinic_id, account_id, role_at_clinic, created_at
		FROM clinic_accounts WHERE account_id = $1
		ORDER BY created_at ASC
	`
	if err := r.selectAll(ctx, &assocs, query, accountID); err != nil {
		return nil, translate(err, "clinic account")
	}
	return assocs, nil
}
