package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chatline/internal/auth"
)

const usernameContextKey = "username"

func UsernameFromContext(c *gin.Context) (string, bool) {
	username, ok := c.Get(usernameContextKey)
	if !ok {
		return "", false
	}
	value, ok := username.(string)
	return value, ok && value != ""
}

// BearerToken returns the token from an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func RequireAuth(cfg auth.TokenConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		v := auth.Verify(BearerToken(c), auth.AccessToken, cfg)
		if !v.Valid() {
			LoggerFromContext(c).Debug().Str("reason", string(v.Reason)).Msg("rejected token")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
			c.Abort()
			return
		}

		c.Set(usernameContextKey, v.Claims.Username)
		c.Next()
	}
}
