package rest

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/watchlist-auth/internal/logging"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/auth"
	"github.com/dmitrijs2005/watchlist-auth/internal/server/models"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
)

const (
	subjectKey = "subject"
	roleKey    = "role"
)

// RequestLogger logs one line per request with its id, status and duration.
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rlog := logger.With(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"client_ip", c.ClientIP(),
			"request_id", requestid.Get(c),
		)

		start := time.Now()
		rlog.Debug(c.Request.Context(), "request started")
		c.Next()
		rlog.Info(c.Request.Context(), "request completed", "status", c.Writer.Status(), "duration", time.Since(start))
	}
}

// RequireAccess admits requests carrying a valid access cookie and puts its
// subject and role on the context.
func RequireAccess(tokens *auth.AccessTokens, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cookieName)
		if err != nil || !tokens.Validate(token) {
			fail(c, http.StatusUnauthorized, "unauthorized")
			return
		}

		subject, err := tokens.SubjectOf(token)
		if err != nil {
			fail(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		role, err := tokens.RoleOf(token)
		if err != nil {
			fail(c, http.StatusUnauthorized, "unauthorized")
			return
		}

		c.Set(subjectKey, subject)
		c.Set(roleKey, role)
		c.Next()
	}
}

// SubjectFrom returns the subject set by RequireAccess.
func SubjectFrom(c *gin.Context) string {
	return c.GetString(subjectKey)
}

// RoleFrom returns the role set by RequireAccess.
func RoleFrom(c *gin.Context) models.Role {
	v, _ := c.Get(roleKey)
	role, _ := v.(models.Role)
	return role
}
