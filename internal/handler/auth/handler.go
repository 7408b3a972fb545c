package auth

import (
	"github.com/gin-gonic/gin"

	"github.com/clinicore/visit-api/internal/model"
	authService "github.com/clinicore/visit-api/internal/service/auth"
	"github.com/clinicore/visit-api/internal/service/participant"
	apperrors "github.com/clinicore/visit-api/pkg/errors"
	"github.com/clinicore/visit-api/pkg/httputil"
)

type Handler struct {
	auth         *authService.Service
	participants *participant.Service
}

func NewHandler(auth *authService.Service, participants *participant.Service) *Handler {
	return &Handler{auth: auth, participants: participants}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	auth.POST("/register", h.Register)
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)
}

func (h *Handler) Register(c *gin.Context) {
	var req model.RegisterParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid request: %v", err))
		return
	}

	p, err := h.participants.Register(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, p)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid request: %v", err))
		return
	}

	tokens, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, tokens)
}

func (h *Handler) Refresh(c *gin.Context) {
	var req model.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.Validation("invalid request: %v", err))
		return
	}

	tokens, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, tokens)
}
