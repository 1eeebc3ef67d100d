package auth

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eventsite/cms/internal/models"
	"github.com/eventsite/cms/pkg/apperr"
	"github.com/eventsite/cms/pkg/response"
)

// LoginRequest is the body for POST /admin/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// UserStore is the part of Repository the handler needs.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	users  UserStore
	jwt    *JWTService
	logger *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(users UserStore, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{users: users, jwt: jwt, logger: logger}
}

// Login handles POST /admin/auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Email and password required")
		return
	}

	user, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, apperr.ErrNoRows) {
			h.logger.Error("login lookup failed", zap.Error(err))
			response.Internal(c, "Server error")
			return
		}
		burnPasswordCheck(req.Password)
		response.Unauthorized(c, "Invalid credentials")
		return
	}
	if !CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "Invalid credentials")
		return
	}

	token, err := h.jwt.Generate(user.ID, string(user.Role))
	if err != nil {
		h.logger.Error("sign token", zap.Error(err))
		response.Internal(c, "Server error")
		return
	}
	h.logger.Info("admin login", zap.String("user_id", user.ID.String()))
	response.OKMessage(c, "Logged in", TokenResponse{Token: token, User: user.ToPublic()})
}
