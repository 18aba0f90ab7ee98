// Package rest is the HTTP surface of the auth service: a gin engine with
// the encrypted envelope on the client-facing routes.
package rest

import (
	"github.com/dmitrijs2005/watchlist-auth/internal/cryptox"
	"github.com/dmitrijs2005/watchlist-auth/internal/logging"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/auth"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/services"
	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// RouterDeps groups what NewRouter wires together.
type RouterDeps struct {
	Prefix   string
	Auth     *services.AuthService
	Tokens   *auth.AccessTokens
	Keys     *cryptox.KeyExchange
	Envelope *cryptox.Envelope
	Cookies  CookieConfig
	DB       Pinger
	Logger   logging.Logger
}

// NewRouter builds the engine. Every auth route except clear-expired-otps
// goes through the envelope.
func NewRouter(d RouterDeps) *gin.Engine {
	binding.Validator = new(DefaultValidator)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestid.New(requestid.WithCustomHeaderStrKey("X-Request-Id")))
	r.Use(RequestLogger(d.Logger))
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	r.GET("/health", Health(d.DB))

	h := NewAuthHandler(d.Auth, d.Cookies, d.Logger)

	api := r.Group(d.Prefix)
	api.GET("/clear-expired-otps", h.ClearExpiredOTPs)

	sealed := api.Group("", Envelope(d.Keys, d.Envelope, d.Logger))
	sealed.POST("/verify-email", h.VerifyEmail)
	sealed.POST("/send-otp", h.SendOTP)
	sealed.POST("/verify-otp", h.VerifyOTP)
	sealed.POST("/register", h.Register)
	sealed.POST("/login", h.Login)
	sealed.POST("/change-password-and-login", h.ChangePasswordAndLogin)
	sealed.GET("/check-authentication", h.CheckAuthentication)
	sealed.POST("/logout", RequireAccess(d.Tokens, d.Cookies.AccessName), h.Logout)
	sealed.POST("/refresh-token", h.RefreshToken)

	return r
}
