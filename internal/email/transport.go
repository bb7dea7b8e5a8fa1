package email

import (
	"context"
	"sync"

	"github.com/jwalitptl/clinic-onboarding/pkg/logger"
)

// Transport delivers one plain-text message. A nil error means the message
// was accepted for delivery.
type Transport interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogTransport records recipient and subject only. It stands in for SMTP
// in local runs; bodies carry secrets and are never logged.
type LogTransport struct {
	logger *logger.Logger

	mu   sync.Mutex
	sent []Sent
}

// Sent is what LogTransport remembers about a message.
type Sent struct {
	To      string
	Subject string
}

func NewLogTransport(log *logger.Logger) *LogTransport {
	return &LogTransport{logger: log}
}

func (t *LogTransport) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	t.sent = append(t.sent, Sent{To: to, Subject: subject})
	t.mu.Unlock()
	t.logger.Info("email delivery skipped, smtp disabled", "to", to, "subject", subject)
	return nil
}

func (t *LogTransport) Sent() []Sent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Sent(nil), t.sent...)
}
