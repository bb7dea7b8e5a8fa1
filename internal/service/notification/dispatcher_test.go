package notification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-onboarding/internal/model"
	"github.com/jwalitptl/clinic-onboarding/internal/repository/memory"
	apperrors "github.com/jwalitptl/clinic-onboarding/pkg/errors"
	"github.com/jwalitptl/clinic-onboarding/pkg/logger"
)

type mockTransport struct {
	mock.Mock
}

func (m *mockTransport) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

func seedAccounts(t *testing.T, store *memory.Store, emails ...string) []Recipient {
	t.Helper()
	var out []Recipient
	for i, e := range emails {
		acc := &model.Account{Username: strings.Split(e, "@")[0], Email: e, Role: model.AccountRoleDoctor}
		require.NoError(t, store.Accounts().Create(context.Background(), acc))
		out = append(out, Recipient{AccountID: acc.ID, Email: e, Secret: "Secret-" + string(rune('A'+i)) + "12345"})
	}
	return out
}

func TestSendCredentialsInOrder(t *testing.T) {
	store := memory.NewStore()
	recipients := seedAccounts(t, store, "admin@r.example", "a@r.example", "b@r.example")

	tr := new(mockTransport)
	var order []string
	tr.On("Send", mock.Anything, mock.Anything, "Your Riverside Clinic Clinic Credentials", mock.Anything).
		Run(func(args mock.Arguments) { order = append(order, args.String(1)) }).
		Return(nil)

	d := NewDispatcher(tr, store.Notifications(), Config{LoginURL: "https://app/login"}, logger.NewNop(), nil)
	deliveries, err := d.SendCredentials(context.Background(), "Riverside Clinic", recipients, false)
	require.NoError(t, err)

	assert.Equal(t, []string{"admin@r.example", "a@r.example", "b@r.example"}, order)
	require.Len(t, deliveries, 3)
	for _, dl := range deliveries {
		assert.Equal(t, model.NotificationStatusSent, dl.Status)
	}

	records, err := store.Notifications().ListByAccount(context.Background(), recipients[0].AccountID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.NotificationStatusSent, records[0].Status)
	assert.Equal(t, 1, records[0].Attempts)
	assert.NotNil(t, records[0].SentAt)
}

func TestSendCredentialsBodyCarriesSecret(t *testing.T) {
	store := memory.NewStore()
	recipients := seedAccounts(t, store, "a@r.example")

	tr := new(mockTransport)
	tr.On("Send", mock.Anything, "a@r.example", mock.Anything, mock.MatchedBy(func(body string) bool {
		return strings.Contains(body, recipients[0].Secret) && strings.Contains(body, "https://app/login")
	})).Return(nil).Once()

	d := NewDispatcher(tr, store.Notifications(), Config{LoginURL: "https://app/login"}, logger.NewNop(), nil)
	_, err := d.SendCredentials(context.Background(), "Riverside Clinic", recipients, false)
	require.NoError(t, err)
	tr.AssertExpectations(t)
}

func TestSendCredentialsPartialFailure(t *testing.T) {
	store := memory.NewStore()
	recipients := seedAccounts(t, store, "admin@r.example", "a@r.example", "b@r.example")

	tr := new(mockTransport)
	tr.On("Send", mock.Anything, "a@r.example", mock.Anything, mock.Anything).Return(errors.New("mailbox unavailable"))
	tr.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	d := NewDispatcher(tr, store.Notifications(), Config{LoginURL: "https://app/login"}, logger.NewNop(), nil)
	deliveries, err := d.SendCredentials(context.Background(), "Riverside Clinic", recipients, false)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotification))
	assert.Contains(t, err.Error(), "a@r.example")
	tr.AssertNumberOfCalls(t, "Send", 3)

	require.Len(t, deliveries, 3)
	assert.Equal(t, model.NotificationStatusSent, deliveries[0].Status)
	assert.Equal(t, model.NotificationStatusFailed, deliveries[1].Status)
	assert.Equal(t, "mailbox unavailable", deliveries[1].Error)
	assert.Equal(t, model.NotificationStatusSent, deliveries[2].Status)

	records, err := store.Notifications().ListByAccount(context.Background(), recipients[1].AccountID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, model.NotificationStatusFailed, records[0].Status)
	require.NotNil(t, records[0].LastError)
}

func TestSendCredentialsIgnoresCallerCancellation(t *testing.T) {
	store := memory.NewStore()
	recipients := seedAccounts(t, store, "a@r.example")

	tr := new(mockTransport)
	tr.On("Send", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }),
		mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDispatcher(tr, store.Notifications(), Config{LoginURL: "https://app/login"}, logger.NewNop(), nil)
	_, err := d.SendCredentials(ctx, "Riverside Clinic", recipients, false)
	require.NoError(t, err)
	tr.AssertExpectations(t)
}

func TestSendCredentialsWithoutRecord(t *testing.T) {
	store := memory.NewStore()
	tr := new(mockTransport)
	tr.On("Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	d := NewDispatcher(tr, store.Notifications(), Config{LoginURL: "https://app/login"}, logger.NewNop(), nil)
	deliveries, err := d.SendCredentials(context.Background(), "Riverside Clinic",
		[]Recipient{{AccountID: uuid.New(), Email: "ghost@r.example", Secret: "x"}}, false)
	require.NoError(t, err, "bookkeeping failures must not fail delivery")
	assert.Equal(t, model.NotificationStatusSent, deliveries[0].Status)
}
