package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-onboarding/internal/model"
)

// All repository interfaces in one file
type (
	// ApplicationRepository handles registration applications
	ApplicationRepository interface {
		Create(ctx context.Context, app *model.Application) error
		Get(ctx context.Context, id uuid.UUID) (*model.Application, error)
		// GetForUpdate locks the row until the surrounding transaction ends.
		GetForUpdate(ctx context.Context, id uuid.UUID) (*model.Application, error)
		// Update persists status and audit fields only.
		Update(ctx context.Context, app *model.Application) error
		List(ctx context.Context, filters *model.ApplicationFilters) ([]*model.Application, error)
		HasPendingForEmail(ctx context.Context, email string) (bool, error)
	}

	ClinicRepository interface {
		Create(ctx context.Context, clinic *model.Clinic) error
		Get(ctx context.Context, id uuid.UUID) (*model.Clinic, error)
		GetByApplication(ctx context.Context, applicationID uuid.UUID) (*model.Clinic, error)
		AssignAccount(ctx context.Context, assoc *model.ClinicAccount) error
		ListAccounts(ctx context.Context, clinicID uuid.UUID) ([]*model.ClinicAccount, error)
		ListForAccount(ctx context.Context, accountID uuid.UUID) ([]*model.ClinicAccount, error)
	}

	AccountRepository interface {
		Create(ctx context.Context, account *model.Account) error
		Get(ctx context.Context, id uuid.UUID) (*model.Account, error)
		GetByEmail(ctx context.Context, email string) (*model.Account, error)
		EmailExists(ctx context.Context, email string) (bool, error)
		UsernameExists(ctx context.Context, username string) (bool, error)
		UpdatePassword(ctx context.Context, id uuid.UUID, hash string, mustChange bool) error
		Count(ctx context.Context) (int, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// ClaimPending returns due events, skipping rows locked by other workers.
		ClaimPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	NotificationRepository interface {
		Create(ctx context.Context, notification *model.Notification) error
		Update(ctx context.Context, notification *model.Notification) error
		ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*model.Notification, error)
	}

	// Tx exposes the repositories bound to one transaction.
	Tx interface {
		Applications() ApplicationRepository
		Clinics() ClinicRepository
		Accounts() AccountRepository
		Outbox() OutboxRepository
	}

	// Store is the unit of work. WithTx commits when fn returns nil and rolls
	// back everything fn wrote otherwise.
	Store interface {
		Tx
		Notifications() NotificationRepository
		WithTx(ctx context.Context, fn func(tx Tx) error) error
		Close() error
	}
)
