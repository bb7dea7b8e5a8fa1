package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-onboarding/internal/email"
	"github.com/jwalitptl/clinic-onboarding/internal/model"
	"github.com/jwalitptl/clinic-onboarding/internal/repository"
	apperrors "github.com/jwalitptl/clinic-onboarding/pkg/errors"
	"github.com/jwalitptl/clinic-onboarding/pkg/logger"
	"github.com/jwalitptl/clinic-onboarding/pkg/metrics"
)

const defaultSendTimeout = 10 * time.Second

// Recipient is one account whose new secret must be delivered.
type Recipient struct {
	AccountID uuid.UUID
	Email     string
	Secret    string
}

// Delivery reports the outcome for one recipient. It never carries the secret.
type Delivery struct {
	AccountID uuid.UUID                `json:"account_id"`
	Recipient string                   `json:"recipient"`
	Status    model.NotificationStatus `json:"status"`
	Error     string                   `json:"error,omitempty"`
}

type Config struct {
	LoginURL string
	Timeout  time.Duration
}

type Dispatcher struct {
	transport     email.Transport
	notifications repository.NotificationRepository
	cfg           Config
	logger        *logger.Logger
	metrics       *metrics.Metrics
}

func NewDispatcher(transport email.Transport, notifications repository.NotificationRepository, cfg Config, log *logger.Logger, m *metrics.Metrics) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultSendTimeout
	}
	return &Dispatcher{
		transport:     transport,
		notifications: notifications,
		cfg:           cfg,
		logger:        log,
		metrics:       m,
	}
}

// SendCredentials delivers one message per recipient, in order. Every
// recipient is attempted; the returned error joins one Notification error per
// failed delivery. Cancelling ctx does not abort sends already under way.
func (d *Dispatcher) SendCredentials(ctx context.Context, clinicName string, recipients []Recipient, reset bool) ([]Delivery, error) {
	ctx = context.WithoutCancel(ctx)

	deliveries := make([]Delivery, 0, len(recipients))
	var errs []error
	for _, r := range recipients {
		delivery, err := d.deliver(ctx, clinicName, r, reset)
		deliveries = append(deliveries, delivery)
		if err != nil {
			errs = append(errs, apperrors.Notification(r.Email, err))
		}
	}
	return deliveries, errors.Join(errs...)
}

func (d *Dispatcher) deliver(ctx context.Context, clinicName string, r Recipient, reset bool) (Delivery, error) {
	msg := email.CredentialsMessage{
		ClinicName: clinicName,
		LoginURL:   d.cfg.LoginURL,
		Username:   r.Email,
		Password:   r.Secret,
		Reset:      reset,
	}
	record := &model.Notification{
		AccountID: r.AccountID,
		Kind:      model.NotificationKindCredentials,
		Recipient: r.Email,
		Subject:   msg.Subject(),
		Status:    model.NotificationStatusPending,
	}
	if err := d.notifications.Create(ctx, record); err != nil {
		d.logger.Error(err, "failed to record notification", "account_id", r.AccountID.String())
		record = nil
	}

	err := d.send(ctx, r.Email, msg)

	delivery := Delivery{AccountID: r.AccountID, Recipient: r.Email, Status: model.NotificationStatusSent}
	if err != nil {
		delivery.Status = model.NotificationStatusFailed
		delivery.Error = err.Error()
		d.logger.Error(err, "credentials notification failed", "account_id", r.AccountID.String(), "recipient", r.Email)
	} else {
		d.logger.Info("credentials notification sent", "account_id", r.AccountID.String(), "recipient", r.Email)
	}
	d.metrics.Notification(string(delivery.Status))

	if record != nil {
		d.finish(ctx, record, err)
	}
	return delivery, err
}

func (d *Dispatcher) send(ctx context.Context, to string, msg email.CredentialsMessage) error {
	body, err := msg.Body()
	if err != nil {
		return err
	}
	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()
	return d.transport.Send(sendCtx, to, msg.Subject(), body)
}

func (d *Dispatcher) finish(ctx context.Context, record *model.Notification, sendErr error) {
	record.Attempts++
	if sendErr != nil {
		msg := sendErr.Error()
		record.Status = model.NotificationStatusFailed
		record.LastError = &msg
	} else {
		now := time.Now().UTC()
		record.Status = model.NotificationStatusSent
		record.SentAt = &now
		record.LastError = nil
	}
	if err := d.notifications.Update(ctx, record); err != nil {
		d.logger.Error(err, "failed to update notification", "notification_id", record.ID.String())
	}
}
