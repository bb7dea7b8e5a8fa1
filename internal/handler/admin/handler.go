package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-onboarding/internal/handler"
	"github.com/jwalitptl/clinic-onboarding/internal/model"
	"github.com/jwalitptl/clinic-onboarding/internal/service/approval"
	"github.com/jwalitptl/clinic-onboarding/internal/service/registration"
	apperrors "github.com/jwalitptl/clinic-onboarding/pkg/errors"
)

const notificationFailedMessage = "provisioning committed but some credential notifications failed; use reset-credentials to resend"

// Handler serves the platform administrator routes. The caller must mount it
// behind authentication.
type Handler struct {
	registrations registration.RegistrationServicer
	approvals     approval.ApprovalServicer
}

func NewHandler(registrations registration.RegistrationServicer, approvals approval.ApprovalServicer) *Handler {
	return &Handler{
		registrations: registrations,
		approvals:     approvals,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	apps := r.Group("/applications")
	{
		apps.GET("", h.ListApplications)
		apps.GET("/:id", h.GetApplication)
		apps.POST("/:id/approve", h.Approve)
		apps.POST("/:id/reject", h.Reject)
	}
	r.POST("/accounts/:id/reset-credentials", h.ResetCredentials)
}

func (h *Handler) ListApplications(c *gin.Context) {
	filters := &model.ApplicationFilters{
		Status: model.ApplicationStatus(c.Query("status")),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			handler.Abort(c, apperrors.BadRequest("invalid limit", err))
			return
		}
		filters.Limit = limit
	}

	apps, err := h.registrations.List(c.Request.Context(), filters)
	if err != nil {
		handler.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(apps))
}

func (h *Handler) GetApplication(c *gin.Context) {
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	app, err := h.registrations.Get(c.Request.Context(), id)
	if err != nil {
		handler.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(app))
}

func (h *Handler) Approve(c *gin.Context) {
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}
	actorID, _ := handler.ActorID(c)

	result, err := h.approvals.Approve(c.Request.Context(), id, actorID)
	if err != nil {
		handler.Abort(c, err)
		return
	}

	resp := handler.NewSuccessResponse(result)
	if result.NotificationsFailed() {
		resp.Message = notificationFailedMessage
	}
	c.JSON(http.StatusOK, resp)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Reject(c *gin.Context) {
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}

	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Abort(c, apperrors.BadRequest("invalid request body", err))
		return
	}
	actorID, _ := handler.ActorID(c)

	app, err := h.approvals.Reject(c.Request.Context(), id, actorID, req.Reason)
	if err != nil {
		handler.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(app))
}

func (h *Handler) ResetCredentials(c *gin.Context) {
	id, err := handler.UUIDParam(c, "id")
	if err != nil {
		handler.Abort(c, err)
		return
	}
	actorID, _ := handler.ActorID(c)

	result, err := h.approvals.ResetCredentials(c.Request.Context(), id, actorID)
	if err != nil {
		handler.Abort(c, err)
		return
	}

	resp := handler.NewSuccessResponse(result)
	if result.NotificationErr != nil {
		resp.Message = notificationFailedMessage
	}
	c.JSON(http.StatusOK, resp)
}
