package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/watchlist-auth/internal/common"
	"github.com/dmitrijs2005/watchlist-auth/internal/logging"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/services"
	"github.com/gin-gonic/gin"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// AuthHandler exposes services.AuthService over HTTP.
type AuthHandler struct {
	auth    *services.AuthService
	cookies CookieConfig
	logger  logging.Logger
}

func NewAuthHandler(a *services.AuthService, cookies CookieConfig, logger logging.Logger) *AuthHandler {
	return &AuthHandler{auth: a, cookies: cookies, logger: logger.With("module", "auth_handler")}
}

func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var form UserForm
	if c.ShouldBindJSON(&form) != nil {
		fail(c, http.StatusBadRequest, "invalid request")
		return
	}

	exists, err := h.auth.UserExists(c.Request.Context(), form.UserID)
	if err != nil {
		h.logger.Error(c.Request.Context(), "verify email", "error", err)
		fail(c, http.StatusInternalServerError, "failed to verify email")
		return
	}

	msg := "User does not exist"
	if exists {
		msg = "User exists"
	}
	c.JSON(http.StatusOK, Response{Status: exists, Message: msg})
}

func (h *AuthHandler) SendOTP(c *gin.Context) {
	var form UserForm
	if c.ShouldBindJSON(&form) != nil {
		fail(c, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.auth.SendOTP(c.Request.Context(), form.UserID); err != nil {
		h.logger.Error(c.Request.Context(), "send otp", "error", err)
		fail(c, http.StatusInternalServerError, "failed to send OTP")
		return
	}
	ok(c, "OTP sent successfully")
}

func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var form OTPForm
	if c.ShouldBindJSON(&form) != nil {
		fail(c, http.StatusBadRequest, "invalid request")
		return
	}

	valid, err := h.auth.VerifyOTP(c.Request.Context(), form.UserID, form.OTP)
	if err != nil {
		h.logger.Error(c.Request.Context(), "verify otp", "error", err)
		fail(c, http.StatusInternalServerError, "failed to verify OTP")
		return
	}
	if !valid {
		fail(c, http.StatusBadRequest, "invalid or expired OTP")
		return
	}
	ok(c, "OTP verified successfully")
}

func (h *AuthHandler) ClearExpiredOTPs(c *gin.Context) {
	h.auth.ClearExpiredOTPs(c.Request.Context())
	ok(c, "expired OTPs cleared")
}

func (h *AuthHandler) Register(c *gin.Context) {
	var form CredentialsForm
	if c.ShouldBindJSON(&form) != nil {
		fail(c, http.StatusBadRequest, "invalid request")
		return
	}

	s, err := h.auth.Register(c.Request.Context(), form.UserID, form.Password)
	if err != nil {
		h.logger.Error(c.Request.Context(), "register", "error", err)
		fail(c, http.StatusInternalServerError, "failed to register")
		return
	}

	h.setSession(c, s)
	ok(c, "User registered successfully!")
}

func (h *AuthHandler) Login(c *gin.Context) {
	var form CredentialsForm
	if c.ShouldBindJSON(&form) != nil {
		fail(c, http.StatusBadRequest, "invalid request")
		return
	}

	s, err := h.auth.Login(c.Request.Context(), form.UserID, form.Password)
	if err != nil {
		h.signInFailed(c, "login", err, "failed to login")
		return
	}

	h.setSession(c, s)
	ok(c, "Login successful")
}

func (h *AuthHandler) ChangePasswordAndLogin(c *gin.Context) {
	var form CredentialsForm
	if c.ShouldBindJSON(&form) != nil {
		fail(c, http.StatusBadRequest, "invalid request")
		return
	}

	s, err := h.auth.ChangePasswordAndLogin(c.Request.Context(), form.UserID, form.Password)
	if err != nil {
		h.signInFailed(c, "change password", err, "failed to change password")
		return
	}

	h.setSession(c, s)
	ok(c, "Password changed successfully")
}

func (h *AuthHandler) CheckAuthentication(c *gin.Context) {
	token, _ := c.Cookie(h.cookies.AccessName)

	subject, err := h.auth.CheckAuthentication(token)
	if err != nil {
		fail(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	c.JSON(http.StatusOK, Response{Status: true, Util: subject})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	token, _ := c.Cookie(h.cookies.RefreshName)

	if err := h.auth.Logout(c.Request.Context(), token); err != nil {
		h.logger.Error(c.Request.Context(), "logout", "error", err)
	}

	h.cookies.clear(c, h.cookies.AccessName)
	h.cookies.clear(c, h.cookies.RefreshName)
	ok(c, "Logged out successfully")
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	token, _ := c.Cookie(h.cookies.RefreshName)

	s, err := h.auth.Refresh(c.Request.Context(), token)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrMissingToken):
		fail(c, http.StatusBadRequest, "refresh token missing")
		return
	case errors.Is(err, common.ErrInvalidRefreshToken):
		fail(c, http.StatusBadRequest, "invalid refresh token")
		return
	case errors.Is(err, common.ErrRefreshTokenExpired):
		fail(c, http.StatusBadRequest, "refresh token expired and deleted")
		return
	case errors.Is(err, common.ErrNoRole):
		h.logger.Error(c.Request.Context(), "refresh token", "error", err)
		fail(c, http.StatusInternalServerError, "user not assigned a role")
		return
	default:
		h.logger.Error(c.Request.Context(), "refresh token", "error", err)
		fail(c, http.StatusInternalServerError, "failed to refresh token")
		return
	}

	h.setSession(c, s)
	ok(c, "Token refreshed")
}

func (h *AuthHandler) signInFailed(c *gin.Context, op string, err error, generic string) {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		fail(c, http.StatusNotFound, "invalid credentials")
	case errors.Is(err, common.ErrNoRole):
		h.logger.Error(c.Request.Context(), op, "error", err)
		fail(c, http.StatusInternalServerError, "user not assigned a role")
	default:
		h.logger.Error(c.Request.Context(), op, "error", err)
		fail(c, http.StatusInternalServerError, generic)
	}
}

func (h *AuthHandler) setSession(c *gin.Context, s *services.Session) {
	h.cookies.set(c, h.cookies.AccessName, s.AccessToken, s.AccessTTL)
	h.cookies.set(c, h.cookies.RefreshName, s.RefreshToken, s.RefreshTTL)
}

// Health reports liveness and, when a store is attached, its reachability.
func Health(db Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db != nil {
			if err := db.PingContext(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
