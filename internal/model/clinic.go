package model

import (
	"time"

	"github.com/google/uuid"
)

type ClinicStatus string

const (
	ClinicStatusPending   ClinicStatus = "pending"
	ClinicStatusActive    ClinicStatus = "active"
	ClinicStatusSuspended ClinicStatus = "suspended"
)

// Clinic is created exactly once, when its application is approved.
type Clinic struct {
	ID            uuid.UUID    `db:"id" json:"id"`
	ApplicationID uuid.UUID    `db:"application_id" json:"application_id"`
	Name          string       `db:"name" json:"name"`
	Address       string       `db:"address" json:"address"`
	ContactNumber string       `db:"contact_number" json:"contact_number"`
	LicenseNumber string       `db:"license_number" json:"license_number"`
	Status        ClinicStatus `db:"status" json:"status"`
	CreatedAt     time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at" json:"updated_at"`
}

// Role tags used on clinic associations.
const (
	ClinicRoleAdmin  = "admin"
	ClinicRoleDoctor = "doctor"
)

// ClinicAccount links an account to a clinic.
type ClinicAccount struct {
	ClinicID     uuid.UUID `db:"clinic_id" json:"clinic_id"`
	AccountID    uuid.UUID `db:"account_id" json:"account_id"`
	RoleAtClinic string    `db:"role_at_clinic" json:"role_at_clinic"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
