package middleware

import (
	"net/http"

	"github.com/cleberrangel/pert-estimator-api/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// VisitorCookie guarda o identificador anônimo do navegador
	VisitorCookie = "visitor_id"
	// ContextVisitorID é a chave do visitante no contexto gin
	ContextVisitorID = "visitor_id"

	visitorMaxAge = 365 * 24 * 60 * 60
)

// Visitor garante que todo navegador tenha um visitor_id estável.
// O ID identifica preferências salvas e o dono de cada sessão.
func Visitor(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		visitorID, err := c.Cookie(VisitorCookie)
		if err != nil || !ValidateID(visitorID) {
			visitorID = uuid.New().String()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(VisitorCookie, visitorID, visitorMaxAge, "/", "", secure, true)
		}

		c.Set(ContextVisitorID, visitorID)
		c.Request = c.Request.WithContext(logger.WithVisitorID(c.Request.Context(), visitorID))

		c.Next()
	}
}

// GetVisitorID retorna o visitante da requisição
func GetVisitorID(c *gin.Context) string {
	return c.GetString(ContextVisitorID)
}
