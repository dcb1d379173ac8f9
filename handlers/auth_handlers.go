// api/handlers/auth_handlers.go
package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"investgroup/api/middleware"
	"investgroup/api/models"
	"investgroup/api/store"
	"investgroup/api/utils"
)

type UserFinder interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type AuthHandlers struct {
	users        UserFinder
	jwt          *utils.JWTManager
	secureCookie bool
}

func NewAuthHandlers(users UserFinder, jwtManager *utils.JWTManager, secureCookie bool) *AuthHandlers {
	return &AuthHandlers{users: users, jwt: jwtManager, secureCookie: secureCookie}
}

// Login checks admin credentials and sets the session cookie.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	user, err := h.users.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			zlog.Info().Str("email", req.Email).Msg("login failed: unknown email")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}
		zlog.Error().Err(err).Msg("login: user lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword(user.HashedPassword, []byte(req.Password)); err != nil {
		zlog.Info().Str("email", req.Email).Msg("login failed: password mismatch")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !user.IsAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}

	tokenString, err := h.jwt.Generate(user)
	if err != nil {
		zlog.Error().Err(err).Int("user_id", user.ID).Msg("failed to generate JWT")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate authentication token"})
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, tokenString, int(h.jwt.TTL().Seconds()), "/", "", h.secureCookie, true)

	zlog.Info().Int("user_id", user.ID).Msg("admin logged in")
	c.JSON(http.StatusOK, gin.H{
		"message":    "Login successful",
		"user_email": user.Email,
	})
}

func (h *AuthHandlers) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, "", -1, "/", "", h.secureCookie, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
