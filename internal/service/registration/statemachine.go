package registration

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-onboarding/internal/model"
	apperrors "github.com/jwalitptl/clinic-onboarding/pkg/errors"
)

// Approve moves a pending application to approved. A second call on the same
// record fails with InvalidState, which is what keeps approval from
// provisioning twice.
func Approve(app *model.Application, actorID uuid.UUID, at time.Time) error {
	if err := checkTransition(app, actorID); err != nil {
		return err
	}
	app.Status = model.ApplicationStatusApproved
	stamp(app, actorID, at)
	return nil
}

// Reject moves a pending application to rejected and records reason.
func Reject(app *model.Application, actorID uuid.UUID, reason string, at time.Time) error {
	if err := checkTransition(app, actorID); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return apperrors.Validation("rejection reason is required", nil)
	}
	app.Status = model.ApplicationStatusRejected
	app.RejectionReason = &reason
	stamp(app, actorID, at)
	return nil
}

func checkTransition(app *model.Application, actorID uuid.UUID) error {
	if app == nil {
		return apperrors.NotFound("application", nil)
	}
	if app.Status != model.ApplicationStatusPending {
		return apperrors.InvalidState(fmt.Sprintf("application %s is %s, not pending", app.ID, app.Status))
	}
	if actorID == uuid.Nil {
		return apperrors.Validation("actor is required", nil)
	}
	return nil
}

func stamp(app *model.Application, actorID uuid.UUID, at time.Time) {
	at = at.UTC()
	actor := actorID
	app.ProcessedAt = &at
	app.ProcessedBy = &actor
}
