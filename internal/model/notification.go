package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

const NotificationKindCredentials = "credentials"

// Notification records a delivery attempt. The body is not stored because it
// carries a plaintext secret.
type Notification struct {
	ID        uuid.UUID          `db:"id" json:"id"`
	AccountID uuid.UUID          `db:"account_id" json:"account_id"`
	Kind      string             `db:"kind" json:"kind"`
	Recipient string             `db:"recipient" json:"recipient"`
	Subject   string             `db:"subject" json:"subject"`
	Status    NotificationStatus `db:"status" json:"status"`
	Attempts  int                `db:"attempts" json:"attempts"`
	LastError *string            `db:"last_error" json:"last_error,omitempty"`
	SentAt    *time.Time         `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt time.Time          `db:"updated_at" json:"updated_at"`
}
