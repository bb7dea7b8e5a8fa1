package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusProcessed OutboxStatus = "processed"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// Domain event types written alongside state changes.
const (
	EventApplicationSubmitted = "application.submitted"
	EventApplicationApproved  = "application.approved"
	EventApplicationRejected  = "application.rejected"
	EventCredentialsReset     = "account.credentials_reset"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	AggregateID  uuid.UUID       `db:"aggregate_id" json:"aggregate_id"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// NewOutboxEvent marshals payload into a pending event.
func NewOutboxEvent(eventType string, aggregateID uuid.UUID, payload interface{}) (*OutboxEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &OutboxEvent{
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     raw,
		Status:      OutboxStatusPending,
	}, nil
}

// ApplicationApprovedPayload never carries secrets.
type ApplicationApprovedPayload struct {
	ApplicationID  uuid.UUID   `json:"application_id"`
	ClinicID       uuid.UUID   `json:"clinic_id"`
	AdminAccountID uuid.UUID   `json:"admin_account_id"`
	DoctorAccounts []uuid.UUID `json:"doctor_account_ids"`
	ApprovedBy     uuid.UUID   `json:"approved_by"`
	ApprovedAt     time.Time   `json:"approved_at"`
}

type ApplicationRejectedPayload struct {
	ApplicationID uuid.UUID `json:"application_id"`
	AdminEmail    string    `json:"admin_email"`
	Reason        string    `json:"reason"`
	RejectedBy    uuid.UUID `json:"rejected_by"`
	RejectedAt    time.Time `json:"rejected_at"`
}

type ApplicationSubmittedPayload struct {
	ApplicationID uuid.UUID `json:"application_id"`
	ClinicName    string    `json:"clinic_name"`
	AdminEmail    string    `json:"admin_email"`
	DoctorCount   int       `json:"doctor_count"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

type CredentialsResetPayload struct {
	AccountID uuid.UUID `json:"account_id"`
	ResetBy   uuid.UUID `json:"reset_by"`
	ResetAt   time.Time `json:"reset_at"`
}
