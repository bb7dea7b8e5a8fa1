package email

import (
	"context"
	"fmt"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/clinic-onboarding/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-onboarding/pkg/logger"
)

type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	SenderName string
}

type sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPTransport sends through one dial per message, behind a circuit breaker
// so a dead relay fails fast instead of stalling every approval.
type SMTPTransport struct {
	cfg     SMTPConfig
	dialer  sender
	breaker *circuitbreaker.CircuitBreaker
	logger  *logger.Logger
}

func NewSMTPTransport(cfg SMTPConfig, log *logger.Logger) *SMTPTransport {
	return newSMTPTransport(cfg, gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), log)
}

func newSMTPTransport(cfg SMTPConfig, d sender, log *logger.Logger) *SMTPTransport {
	return &SMTPTransport{
		cfg:    cfg,
		dialer: d,
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:                "smtp",
			MaxRequests:         1,
			Timeout:             30 * time.Second,
			ConsecutiveFailures: 5,
			OnStateChange: func(name, from, to string) {
				log.Warn("circuit breaker state changed", "breaker", name, "from", from, "to", to)
			},
		}),
		logger: log,
	}
}

// Send gives up when ctx ends. gomail has no context support, so an
// abandoned dial finishes in the background and its result is dropped.
func (t *SMTPTransport) Send(ctx context.Context, to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(t.cfg.From, t.cfg.SenderName))
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	return t.breaker.Execute(func() error {
		done := make(chan error, 1)
		go func() { done <- t.dialer.DialAndSend(m) }()

		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("smtp send to %s failed: %w", to, err)
			}
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}
