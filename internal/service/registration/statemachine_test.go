package registration

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/clinic-onboarding/internal/model"
	apperrors "github.com/jwalitptl/clinic-onboarding/pkg/errors"
)

func TestApproveTransition(t *testing.T) {
	app := &model.Application{ID: uuid.New(), Status: model.ApplicationStatusPending}
	actor := uuid.New()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, Approve(app, actor, at))
	assert.Equal(t, model.ApplicationStatusApproved, app.Status)
	require.NotNil(t, app.ProcessedAt)
	assert.Equal(t, at, *app.ProcessedAt)
	require.NotNil(t, app.ProcessedBy)
	assert.Equal(t, actor, *app.ProcessedBy)
	assert.Nil(t, app.RejectionReason)

	err := Approve(app, actor, at.Add(time.Minute))
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidState))
	assert.Equal(t, at, *app.ProcessedAt, "failed transition must not restamp")
}

func TestRejectTransition(t *testing.T) {
	tests := []struct {
		name    string
		status  model.ApplicationStatus
		reason  string
		wantErr apperrors.ErrorCode
	}{
		{name: "pending with reason", status: model.ApplicationStatusPending, reason: "Invalid license"},
		{name: "empty reason", status: model.ApplicationStatusPending, reason: "", wantErr: apperrors.ErrValidation},
		{name: "blank reason", status: model.ApplicationStatusPending, reason: "   ", wantErr: apperrors.ErrValidation},
		{name: "already approved", status: model.ApplicationStatusApproved, reason: "late", wantErr: apperrors.ErrInvalidState},
		{name: "already rejected", status: model.ApplicationStatusRejected, reason: "again", wantErr: apperrors.ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &model.Application{ID: uuid.New(), Status: tt.status}
			err := Reject(app, uuid.New(), tt.reason, time.Now())
			if tt.wantErr != 0 {
				assert.True(t, apperrors.Is(err, tt.wantErr), "got %v", err)
				assert.Equal(t, tt.status, app.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, model.ApplicationStatusRejected, app.Status)
			require.NotNil(t, app.RejectionReason)
			assert.Equal(t, tt.reason, *app.RejectionReason)
			assert.NotNil(t, app.ProcessedAt)
		})
	}
}

func TestApproveRejectedApplication(t *testing.T) {
	app := &model.Application{ID: uuid.New(), Status: model.ApplicationStatusRejected}
	err := Approve(app, uuid.New(), time.Now())
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidState))
}

func TestTransitionRequiresActor(t *testing.T) {
	app := &model.Application{ID: uuid.New(), Status: model.ApplicationStatusPending}
	err := Approve(app, uuid.Nil, time.Now())
	assert.True(t, apperrors.Is(err, apperrors.ErrValidation))
	assert.Equal(t, model.ApplicationStatusPending, app.Status)
}
