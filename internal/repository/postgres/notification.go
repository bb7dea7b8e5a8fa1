package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-onboarding/internal/model"
)

type notificationRepository struct {
	BaseRepository
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	now := time.Now().UTC()
	n.CreatedAt = now
	n.UpdatedAt = now

	query := `
		INSERT INTO notifications (
			id, account_id, kind, recipient, subject, status,
			attempts, last_error, sent_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.exec(ctx, query,
		n.ID, n.AccountID, n.Kind, n.Recipient, n.Subject, n.Status,
		n.Attempts, n.LastError, n.SentAt, n.CreatedAt, n.UpdatedAt,
	)
	return translate(err, "notification")
}

func (r *notificationRepository) Update(ctx context.Context, n *model.Notification) error {
	n.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE notifications
		SET status = $1, attempts = $2, last_error = $3, sent_at = $4, updated_at = $5
		WHERE id = $6
	`
	return r.execOne(ctx, "notification", query, n.Status, n.Attempts, n.LastError, n.SentAt, n.UpdatedAt, n.ID)
}

func (r *notificationRepository) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*model.Notification, error) {
	out := []*model.Notification{}
	query := `
		SELECT id, account_id, kind, recipient, subject, status, attempts, last_error, sent_at, created_at, updated_at
		FROM notifications WHERE account_id = $1
		ORDER BY created_at ASC
	`
	if err := r.selectAll(ctx, &out, query, accountID); err != nil {
		return nil, translate(err, "notification")
	}
	return out, nil
}
