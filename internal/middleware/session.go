package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ausspeedruns/backend/internal/apperr"
	"github.com/ausspeedruns/backend/internal/session"
	"github.com/ausspeedruns/backend/pkg/response"
)

// Session resolves the bearer token into a session context. It never aborts:
// requests without a usable token continue as anonymous and the access
// policy decides what they may do.
func Session(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		session.Set(c, m.Resolve(bearer(c.GetHeader("Authorization"))))
		c.Next()
	}
}

// RequireSession rejects anonymous requests.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if session.From(c).Actor() == nil {
			response.Error(c, apperr.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearer(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
