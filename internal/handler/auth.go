package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatline/internal/auth"
	"chatline/internal/middleware"
	"chatline/internal/store"
)

const refreshCookieName = "refresh_token"

type AuthHandler struct {
	Accounts *auth.Service
}

type credentialsBody struct {
	Username string `form:"username" json:"username" binding:"required"`
	Password string `form:"password" json:"password" binding:"required"`
}

type changePasswordBody struct {
	Username    string `json:"username" binding:"required"`
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

func (h *AuthHandler) SignUp(c *gin.Context) {
	var body credentialsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	user, err := h.Accounts.SignUp(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateUser) {
			c.JSON(http.StatusConflict, gin.H{"error": "Username already registered"})
			return
		}
		if errors.Is(err, auth.ErrWeakPassword) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be 8 to 72 bytes long"})
			return
		}
		middleware.LoggerFromContext(c).Error().Err(err).Msg("sign-up failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	middleware.LoggerFromContext(c).Info().Msg("user registered")
	c.JSON(http.StatusOK, gin.H{
		"id":              user.ID,
		"username":        user.Username,
		"hashed_password": user.PasswordHash,
	})
}

// Token accepts form-encoded or JSON credentials.
func (h *AuthHandler) Token(c *gin.Context) {
	var body credentialsBody
	if err := c.ShouldBind(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	pair, err := h.Accounts.Login(c.Request.Context(), body.Username, body.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Incorrect username or password"})
			return
		}
		middleware.LoggerFromContext(c).Error().Err(err).Msg("login failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	maxAge := int(h.Accounts.TokenConfig().RefreshExpiry.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, pair.RefreshToken, maxAge, "/", "", true, true)

	middleware.LoggerFromContext(c).Info().Msg("user authenticated")
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    "bearer",
	})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, _ := c.Cookie(refreshCookieName)

	access, err := h.Accounts.Refresh(refreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": access, "token_type": "bearer"})
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var body changePasswordBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	err := h.Accounts.ChangePassword(c.Request.Context(), body.Username, body.OldPassword, body.NewPassword)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Incorrect username or password"})
			return
		}
		if errors.Is(err, auth.ErrWeakPassword) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be 8 to 72 bytes long"})
			return
		}
		middleware.LoggerFromContext(c).Error().Err(err).Msg("change password failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	middleware.LoggerFromContext(c).Info().Msg("password changed")
	c.JSON(http.StatusOK, gin.H{"success": true})
}
