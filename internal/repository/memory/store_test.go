package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-onboarding/internal/model"
	"github.com/jwalitptl/clinic-onboarding/internal/repository"
	apperrors "github.com/jwalitptl/clinic-onboarding/pkg/errors"
)

func pendingApplication(email string) *model.Application {
	return &model.Application{
		ClinicName: "Riverside Family Clinic",
		AdminEmail: email,
		Doctors:    model.DoctorList{{Name: "Dr Bob", Email: "bob@riverside.test"}},
		Status:     model.ApplicationStatusPending,
	}
}

func TestWithTxCommit(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	var appID uuid.UUID
	err := store.WithTx(ctx, func(tx repository.Tx) error {
		app := pendingApplication("alice@riverside.test")
		if err := tx.Applications().Create(ctx, app); err != nil {
			return err
		}
		appID = app.ID
		return tx.Clinics().Create(ctx, &model.Clinic{ApplicationID: app.ID, Name: app.ClinicName})
	})
	require.NoError(t, err)

	_, err = store.Applications().Get(ctx, appID)
	require.NoError(t, err)
	_, err = store.Clinics().GetByApplication(ctx, appID)
	require.NoError(t, err)
}

func TestWithTxRollback(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	app := pendingApplication("alice@riverside.test")
	require.NoError(t, store.Applications().Create(ctx, app))

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(tx repository.Tx) error {
		locked, err := tx.Applications().GetForUpdate(ctx, app.ID)
		require.NoError(t, err)
		locked.Status = model.ApplicationStatusApproved
		require.NoError(t, tx.Applications().Update(ctx, locked))
		require.NoError(t, tx.Clinics().Create(ctx, &model.Clinic{ApplicationID: app.ID}))
		require.NoError(t, tx.Accounts().Create(ctx, &model.Account{Username: "alice", Email: "alice@riverside.test"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := store.Applications().Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationStatusPending, got.Status)

	_, err = store.Clinics().GetByApplication(ctx, app.ID)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))

	n, err := store.Accounts().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWithTxRollbackOnPanic(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	assert.Panics(t, func() {
		_ = store.WithTx(ctx, func(tx repository.Tx) error {
			require.NoError(t, tx.Accounts().Create(ctx, &model.Account{Username: "p", Email: "p@x.test"}))
			panic("boom")
		})
	})

	n, err := store.Accounts().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReturnedValuesAreCopies(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	app := pendingApplication("alice@riverside.test")
	require.NoError(t, store.Applications().Create(ctx, app))

	got, err := store.Applications().Get(ctx, app.ID)
	require.NoError(t, err)
	got.Doctors[0].Email = "changed@x.test"
	got.Status = model.ApplicationStatusRejected

	again, err := store.Applications().Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob@riverside.test", again.Doctors[0].Email)
	assert.Equal(t, model.ApplicationStatusPending, again.Status)
}

func TestUniqueConstraints(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	require.NoError(t, store.Applications().Create(ctx, pendingApplication("dup@x.test")))
	err := store.Applications().Create(ctx, pendingApplication("dup@x.test"))
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	require.NoError(t, store.Accounts().Create(ctx, &model.Account{Username: "carol", Email: "carol@x.test"}))
	err = store.Accounts().Create(ctx, &model.Account{Username: "carol2", Email: "carol@x.test"})
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
	err = store.Accounts().Create(ctx, &model.Account{Username: "carol", Email: "other@x.test"})
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))

	appID := uuid.New()
	require.NoError(t, store.Clinics().Create(ctx, &model.Clinic{ApplicationID: appID}))
	err = store.Clinics().Create(ctx, &model.Clinic{ApplicationID: appID})
	assert.True(t, apperrors.Is(err, apperrors.ErrConflict))
}

func TestListOrdersOldestFirst(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, email := range []string{"c@x.test", "a@x.test", "b@x.test"} {
		app := pendingApplication(email)
		app.SubmittedAt = base.Add(time.Duration(3-i) * time.Hour)
		require.NoError(t, store.Applications().Create(ctx, app))
	}

	apps, err := store.Applications().List(ctx, &model.ApplicationFilters{Status: model.ApplicationStatusPending})
	require.NoError(t, err)
	require.Len(t, apps, 3)
	assert.Equal(t, "b@x.test", apps[0].AdminEmail)
	assert.Equal(t, "c@x.test", apps[2].AdminEmail)

	apps, err = store.Applications().List(ctx, &model.ApplicationFilters{Status: model.ApplicationStatusApproved})
	require.NoError(t, err)
	assert.Empty(t, apps)

	apps, err = store.Applications().List(ctx, &model.ApplicationFilters{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, apps, 2)
}

func TestConcurrentTransactionsSerialize(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	app := pendingApplication("race@x.test")
	require.NoError(t, store.Applications().Create(ctx, app))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.WithTx(ctx, func(tx repository.Tx) error {
				locked, err := tx.Applications().GetForUpdate(ctx, app.ID)
				if err != nil {
					return err
				}
				if locked.Status != model.ApplicationStatusPending {
					return apperrors.InvalidState("already processed")
				}
				locked.Status = model.ApplicationStatusApproved
				return tx.Applications().Update(ctx, locked)
			})
			if err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestOutboxLifecycle(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	evt, err := model.NewOutboxEvent(model.EventApplicationSubmitted, uuid.New(), map[string]string{"k": "v"})
	require.NoError(t, err)
	require.NoError(t, store.Outbox().Create(ctx, evt))

	events, err := store.Outbox().ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	msg := "broker down"
	later := time.Now().Add(time.Hour)
	require.NoError(t, store.Outbox().UpdateStatus(ctx, evt.ID, model.OutboxStatusPending, &msg, &later))

	events, err = store.Outbox().ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events, "event scheduled for retry later must not be claimed")

	require.NoError(t, store.Outbox().UpdateStatus(ctx, evt.ID, model.OutboxStatusProcessed, nil, nil))
	deleted, err := store.Outbox().DeleteProcessedBefore(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}
