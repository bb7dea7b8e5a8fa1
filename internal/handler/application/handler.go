package application

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-onboarding/internal/handler"
	"github.com/jwalitptl/clinic-onboarding/internal/model"
	"github.com/jwalitptl/clinic-onboarding/internal/service/registration"
	apperrors "github.com/jwalitptl/clinic-onboarding/pkg/errors"
)

// Handler serves the public registration routes.
type Handler struct {
	svc registration.RegistrationServicer
}

func NewHandler(svc registration.RegistrationServicer) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the routes; extra middleware (rate limiting) applies
// to submission only.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, submit ...gin.HandlerFunc) {
	apps := r.Group("/applications")
	{
		apps.POST("", append(submit, h.Submit)...)
		apps.GET("/:id", h.Track)
	}
}

func (h *Handler) Submit(c *gin.Context) {
	var req model.SubmitApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Abort(c, apperrors.BadRequest("invalid request body", err))
		return
	}

	app, err := h.svc.Submit(c.Request.Context(), &req)
	if err != nil {
		handler.Abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(app.View()))
}

// Track lets an applicant follow their submission.
func (h *Handler) Track(c *gin.Context) {
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	app, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		handler.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(app.View()))
}
