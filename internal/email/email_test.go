package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"

	"github.com/jwalitptl/clinic-onboarding/pkg/circuitbreaker"
	"github.com/jwalitptl/clinic-onboarding/pkg/logger"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) DialAndSend(msgs ...*gomail.Message) error {
	args := m.Called(len(msgs))
	return args.Error(0)
}

func TestCredentialsMessage(t *testing.T) {
	msg := CredentialsMessage{
		ClinicName: "Riverside Clinic",
		LoginURL:   "https://app.example/login",
		Username:   "a@riverside.example",
		Password:   "s3cr3t!Pass9",
	}
	assert.Equal(t, "Your Riverside Clinic Clinic Credentials", msg.Subject())

	body, err := msg.Body()
	require.NoError(t, err)
	assert.Contains(t, body, "approved")
	assert.Contains(t, body, "Clinic: Riverside Clinic")
	assert.Contains(t, body, "Login URL: https://app.example/login")
	assert.Contains(t, body, "Username: a@riverside.example")
	assert.Contains(t, body, "Password: s3cr3t!Pass9")
	assert.Contains(t, body, "change your password")

	msg.Reset = true
	body, err = msg.Body()
	require.NoError(t, err)
	assert.Contains(t, body, "reset")
}

func TestSMTPTransportSend(t *testing.T) {
	d := new(mockSender)
	d.On("DialAndSend", 1).Return(nil).Once()

	tr := newSMTPTransport(SMTPConfig{From: "no-reply@x.example", SenderName: "Onboarding"}, d, logger.NewNop())
	require.NoError(t, tr.Send(context.Background(), "a@x.example", "hi", "body"))
	d.AssertExpectations(t)
}

func TestSMTPTransportOpensBreaker(t *testing.T) {
	d := new(mockSender)
	d.On("DialAndSend", 1).Return(errors.New("connection refused"))

	tr := newSMTPTransport(SMTPConfig{}, d, logger.NewNop())
	for i := 0; i < 5; i++ {
		assert.Error(t, tr.Send(context.Background(), "a@x.example", "hi", "body"))
	}
	err := tr.Send(context.Background(), "a@x.example", "hi", "body")
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	d.AssertNumberOfCalls(t, "DialAndSend", 5)
}

func TestSMTPTransportHonoursContext(t *testing.T) {
	d := new(mockSender)
	d.On("DialAndSend", 1).After(200 * time.Millisecond).Return(nil)

	tr := newSMTPTransport(SMTPConfig{}, d, logger.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := tr.Send(ctx, "a@x.example", "hi", "body")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLogTransport(t *testing.T) {
	tr := NewLogTransport(logger.NewNop())
	require.NoError(t, tr.Send(context.Background(), "a@x.example", "subject", "secret body"))
	assert.Equal(t, []Sent{{To: "a@x.example", Subject: "subject"}}, tr.Sent())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, tr.Send(ctx, "b@x.example", "subject", "body"))
}
