package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/cleberrangel/pert-estimator-api/internal/logger"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter limita requisições por IP de cliente
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter cria um limitador com perMinute requisições por minuto por cliente
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 600
	}
	burst := perMinute / 10
	if burst < 10 {
		burst = 10
	}
	return &RateLimiter{
		limiters: make(map[string]*clientLimiter),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		idleTTL:  10 * time.Minute,
	}
}

// Allow informa se o cliente pode fazer mais uma requisição agora
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cl, ok := r.limiters[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[key] = cl
	}
	cl.lastSeen = now

	// Limpeza oportunista de clientes inativos
	if len(r.limiters) > 1000 {
		for k, v := range r.limiters {
			if now.Sub(v.lastSeen) > r.idleTTL {
				delete(r.limiters, k)
			}
		}
	}

	return cl.limiter.Allow()
}

// Middleware retorna o middleware gin
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.Allow(c.ClientIP()) {
			logger.FromGin(c).Warn().Str("client_ip", c.ClientIP()).Msg("Limite de requisições excedido")
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "muitas requisições, tente novamente em instantes",
			})
			return
		}
		c.Next()
	}
}
