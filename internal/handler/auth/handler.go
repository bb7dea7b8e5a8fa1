package auth

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-onboarding/internal/handler"
	authsvc "github.com/jwalitptl/clinic-onboarding/internal/service/auth"
	apperrors "github.com/jwalitptl/clinic-onboarding/pkg/errors"
)

type LoginService interface {
	Login(ctx context.Context, email, password string) (*authsvc.TokenResponse, error)
}

type Handler struct {
	svc LoginService
}

func NewHandler(svc LoginService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, login ...gin.HandlerFunc) {
	auth := r.Group("/auth")
	{
		auth.POST("/login", append(login, h.Login)...)
	}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Abort(c, apperrors.BadRequest("email and password are required", err))
		return
	}

	tokens, err := h.svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		handler.Abort(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(tokens))
}
