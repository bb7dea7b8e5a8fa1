package model

import (
	"time"

	"github.com/google/uuid"
)

type AccountRole string

const (
	AccountRolePlatformAdmin AccountRole = "platform_admin"
	AccountRoleClinicAdmin   AccountRole = "clinic_admin"
	AccountRoleDoctor        AccountRole = "doctor"
)

func (r AccountRole) Valid() bool {
	switch r {
	case AccountRolePlatformAdmin, AccountRoleClinicAdmin, AccountRoleDoctor:
		return true
	}
	return false
}

type AccountStatus string

const (
	AccountStatusActive    AccountStatus = "active"
	AccountStatusInactive  AccountStatus = "inactive"
	AccountStatusSuspended AccountStatus = "suspended"
)

// Account is a login identity. Only the hash of its secret is ever stored.
type Account struct {
	ID                 uuid.UUID     `json:"id" db:"id"`
	Username           string        `json:"username" db:"username"`
	Email              string        `json:"email" db:"email"`
	PasswordHash       string        `json:"-" db:"password_hash"`
	Role               AccountRole   `json:"role" db:"role"`
	Status             AccountStatus `json:"status" db:"status"`
	MustChangePassword bool          `json:"must_change_password" db:"must_change_password"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
}
