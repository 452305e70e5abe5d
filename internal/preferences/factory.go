package preferences

import "github.com/gin-gonic/gin"

// Factory cria o store adequado para cada contexto
type Factory struct {
	repo         Repository
	secureCookie bool
}

// NewFactory cria uma factory. repo pode ser nil (somente cookies).
func NewFactory(repo Repository, secureCookie bool) *Factory {
	return &Factory{repo: repo, secureCookie: secureCookie}
}

// ForRequest retorna cookies + banco (quando configurado)
func (f *Factory) ForRequest(c *gin.Context, visitorID string) Store {
	cookies := NewCookieStore(c, f.secureCookie)
	if f.repo == nil || visitorID == "" {
		return cookies
	}
	return Chain{cookies, NewPostgresStore(f.repo, visitorID)}
}

// Background retorna o store usado fora de uma requisição HTTP (WebSocket).
// Sem banco configurado não há onde persistir e retorna nil.
func (f *Factory) Background(visitorID string) Store {
	if f.repo == nil || visitorID == "" {
		return nil
	}
	return NewPostgresStore(f.repo, visitorID)
}
