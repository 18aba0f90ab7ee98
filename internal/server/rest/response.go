package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Response is the body of every auth route.
type Response struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
	Util    any    `json:"util,omitempty"`
}

func ok(c *gin.Context, message string) {
	c.JSON(http.StatusOK, Response{Status: true, Message: message})
}

func fail(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, Response{Status: false, Message: message})
}

// CookieConfig describes the two session cookies.
type CookieConfig struct {
	AccessName  string
	RefreshName string
	Secure      bool
}

func (cc CookieConfig) set(c *gin.Context, name, value string, maxAge time.Duration) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, value, int(maxAge/time.Second), "/", "", cc.Secure, true)
}

func (cc CookieConfig) clear(c *gin.Context, name string) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(name, "", -1, "/", "", cc.Secure, true)
}
