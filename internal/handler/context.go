package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-onboarding/internal/model"
	apperrors "github.com/jwalitptl/clinic-onboarding/pkg/errors"
)

// Context keys set by the auth middleware.
const (
	ContextAccountID = "account_id"
	ContextRole      = "account_role"
)

func SetActor(c *gin.Context, accountID uuid.UUID, role model.AccountRole) {
	c.Set(ContextAccountID, accountID)
	c.Set(ContextRole, role)
}

// ActorID returns the authenticated account id, if any.
func ActorID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextAccountID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func ActorRole(c *gin.Context) model.AccountRole {
	v, _ := c.Get(ContextRole)
	role, _ := v.(model.AccountRole)
	return role
}

// UUIDParam parses a path parameter, reporting a BadRequest on malformed input.
func UUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, apperrors.BadRequest("invalid "+name, err)
	}
	return id, nil
}
