package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"

	"investgroup/api/utils"
)

const (
	// SessionCookie holds the admin JWT set by the login handler.
	SessionCookie = "jwt_token"

	ctxUserID    = "user_id"
	ctxUserEmail = "user_email"
)

// AdminRequired lets a request through when it carries the configured
// X-API-KEY, or a valid admin JWT in the session cookie or a Bearer header.
// jwtManager may be nil when only the API key is configured.
func AdminRequired(jwtManager *utils.JWTManager, apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key := c.GetHeader("X-API-KEY"); apiKey != "" && key != "" {
			if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) == 1 {
				c.Next()
				return
			}
			zlog.Warn().Str("path", c.Request.URL.Path).Msg("admin auth: wrong api key")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API key"})
			return
		}

		if jwtManager == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No credentials provided"})
			return
		}

		tokenString, err := c.Cookie(SessionCookie)
		if err != nil || tokenString == "" {
			tokenString = utils.BearerToken(c.GetHeader("Authorization"))
		}
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: No token provided"})
			return
		}

		claims, err := jwtManager.Validate(tokenString)
		if err != nil {
			zlog.Debug().Err(err).Msg("admin auth: invalid token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid or expired token"})
			return
		}
		if !claims.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden: admin access required"})
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxUserEmail, claims.Email)
		c.Next()
	}
}
