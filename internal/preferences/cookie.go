package preferences

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CookieStore guarda preferências em cookies com validade de um ano
type CookieStore struct {
	c      *gin.Context
	secure bool
}

// NewCookieStore cria um store ligado à requisição atual
func NewCookieStore(c *gin.Context, secure bool) *CookieStore {
	return &CookieStore{c: c, secure: secure}
}

// Get implementa Store
func (s *CookieStore) Get(_ context.Context, key string) (string, bool, error) {
	value, err := s.c.Cookie(key)
	if err == http.ErrNoCookie {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, value != "", nil
}

// Set implementa Store
func (s *CookieStore) Set(_ context.Context, key, value string) error {
	s.c.SetSameSite(http.SameSiteLaxMode)
	s.c.SetCookie(key, value, int(MaxAge.Seconds()), "/", "", s.secure, false)
	return nil
}
