package http

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shift-devs/twitch-gamepad/internal/core/domain"
	"github.com/shift-devs/twitch-gamepad/internal/core/services"
	apperrors "github.com/shift-devs/twitch-gamepad/pkg/errors"
)

// tokenSubject is the handle API-issued commands run under.
const tokenSubject = "api"

type AuthHandler struct {
	tokens   services.TokenService
	adminKey string
	logger   *zap.SugaredLogger
}

func NewAuthHandler(tokens services.TokenService, adminKey string, logger *zap.SugaredLogger) *AuthHandler {
	return &AuthHandler{
		tokens:   tokens,
		adminKey: adminKey,
		logger:   logger,
	}
}

type tokenRequest struct {
	AdminKey string `json:"admin_key" binding:"required,max=256"`
}

// Token exchanges the configured admin key for a bearer token carrying
// broadcaster privilege.
func (h *AuthHandler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.Error(apperrors.NewInvalidInput("admin_key is required"))
		return
	}

	if subtle.ConstantTimeCompare([]byte(req.AdminKey), []byte(h.adminKey)) != 1 {
		h.logger.Warnw("token request with wrong admin key", "client", c.ClientIP())
		c.Error(apperrors.NewUnauthorized("invalid admin key"))
		return
	}

	token, expires, err := h.tokens.GenerateToken(tokenSubject, domain.PrivilegeBroadcaster)
	if err != nil {
		c.Error(apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to generate token", http.StatusInternalServerError))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": expires.UTC().Format(time.RFC3339),
	})
}
