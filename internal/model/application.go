package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ApplicationStatus string

const (
	ApplicationStatusPending  ApplicationStatus = "pending"
	ApplicationStatusApproved ApplicationStatus = "approved"
	ApplicationStatusRejected ApplicationStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s ApplicationStatus) IsTerminal() bool {
	return s == ApplicationStatusApproved || s == ApplicationStatusRejected
}

// DoctorEntry is one proposed doctor on a registration application.
type DoctorEntry struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// DoctorList is stored as a JSON array and keeps submission order.
type DoctorList []DoctorEntry

func (d DoctorList) Value() (driver.Value, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d)
}

func (d *DoctorList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = DoctorList{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into DoctorList", src)
	}
	return json.Unmarshal(raw, d)
}

// Application is a clinic registration request awaiting review.
type Application struct {
	ID              uuid.UUID         `json:"id" db:"id"`
	ClinicName      string            `json:"clinic_name" db:"clinic_name"`
	ClinicAddress   string            `json:"clinic_address" db:"clinic_address"`
	ContactNumber   string            `json:"contact_number" db:"contact_number"`
	LicenseNumber   string            `json:"license_number" db:"license_number"`
	LicenseDocument string            `json:"license_document" db:"license_document"`
	AdminName       string            `json:"admin_name" db:"admin_name"`
	AdminEmail      string            `json:"admin_email" db:"admin_email"`
	AdminPhone      string            `json:"admin_phone" db:"admin_phone"`
	Doctors         DoctorList        `json:"doctors" db:"doctors"`
	Status          ApplicationStatus `json:"status" db:"status"`
	SubmittedAt     time.Time         `json:"submitted_at" db:"submitted_at"`
	ProcessedAt     *time.Time        `json:"processed_at,omitempty" db:"processed_at"`
	ProcessedBy     *uuid.UUID        `json:"processed_by,omitempty" db:"processed_by"`
	RejectionReason *string           `json:"rejection_reason,omitempty" db:"rejection_reason"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// DoctorCount is the number of doctor entries captured at submission.
func (a *Application) DoctorCount() int {
	return len(a.Doctors)
}

// Clone returns a deep copy; the doctor list is copied too.
func (a *Application) Clone() *Application {
	c := *a
	c.Doctors = append(DoctorList(nil), a.Doctors...)
	if a.ProcessedAt != nil {
		t := *a.ProcessedAt
		c.ProcessedAt = &t
	}
	if a.ProcessedBy != nil {
		id := *a.ProcessedBy
		c.ProcessedBy = &id
	}
	if a.RejectionReason != nil {
		r := *a.RejectionReason
		c.RejectionReason = &r
	}
	return &c
}

// SubmitApplicationRequest carries already form-validated field values.
type SubmitApplicationRequest struct {
	ClinicName      string        `json:"clinic_name" validate:"required"`
	ClinicAddress   string        `json:"clinic_address" validate:"required"`
	ContactNumber   string        `json:"contact_number" validate:"required"`
	LicenseNumber   string        `json:"license_number" validate:"required"`
	LicenseDocument string        `json:"license_document" validate:"required"`
	AdminName       string        `json:"admin_name" validate:"required"`
	AdminEmail      string        `json:"admin_email" validate:"required,email"`
	AdminPhone      string        `json:"admin_phone" validate:"required"`
	Doctors         []DoctorEntry `json:"doctors" validate:"min=1,dive"`
}

type ApplicationFilters struct {
	Status ApplicationStatus
	Limit  int
}

// ApplicationView is what an applicant sees when tracking a submission.
type ApplicationView struct {
	ID              uuid.UUID         `json:"id"`
	ClinicName      string            `json:"clinic_name"`
	Status          ApplicationStatus `json:"status"`
	SubmittedAt     time.Time         `json:"submitted_at"`
	ProcessedAt     *time.Time        `json:"processed_at,omitempty"`
	RejectionReason *string           `json:"rejection_reason,omitempty"`
}

func (a *Application) View() *ApplicationView {
	return &ApplicationView{
		ID:              a.ID,
		ClinicName:      a.ClinicName,
		Status:          a.Status,
		SubmittedAt:     a.SubmittedAt,
		ProcessedAt:     a.ProcessedAt,
		RejectionReason: a.RejectionReason,
	}
}
