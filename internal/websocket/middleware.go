package websocket

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
)

const (
	// ContextSessionID is the gin context key holding the validated session ID
	ContextSessionID = "ws_session_id"
)

// SessionLookup checks that a session exists and belongs to the visitor
type SessionLookup func(sessionID, visitorID string) error

// SessionMiddleware validates the session_id query parameter before the upgrade
func SessionMiddleware(visitorOf func(*gin.Context) string, lookup SessionLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Query("session_id")
		if sessionID == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "Sessão não informada",
				"code":    "SESSION_REQUIRED",
			})
			return
		}

		if err := lookup(sessionID, visitorOf(c)); err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
				"success": false,
				"error":   "Sessão inválida ou expirada",
				"code":    "SESSION_NOT_FOUND",
			})
			return
		}

		c.Set(ContextSessionID, sessionID)
		c.Next()
	}
}

// sameHost reports whether the Origin header points at the serving host
func sameHost(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == host
}
