package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shift-devs/twitch-gamepad/internal/core/services"
	apperrors "github.com/shift-devs/twitch-gamepad/pkg/errors"
)

// Context keys set for authenticated requests.
const (
	ContextSubject   = "subject"
	ContextPrivilege = "privilege"
)

// AuthMiddleware validates the bearer token and stores its claims in the
// request context. The token is also accepted as a query parameter because
// browser websocket clients cannot set headers on the upgrade request.
func AuthMiddleware(tokens services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			abortUnauthorized(c, "authorization required")
			return
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}

		c.Set(ContextSubject, claims.Subject)
		c.Set(ContextPrivilege, claims.Privilege)
		c.Next()
	}
}

func tokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   string(apperrors.ErrCodeUnauthorized),
		"message": message,
	})
}
