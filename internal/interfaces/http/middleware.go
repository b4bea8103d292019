package http

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/VitorRandrade/omnibot-hub-api/internal/usecases"
)

type Middleware struct {
	auth         *usecases.AuthUsecase
	rateLimiters map[string]*rate.Limiter
	mu           sync.Mutex
}

func NewMiddleware(auth *usecases.AuthUsecase) *Middleware {
	return &Middleware{
		auth:         auth,
		rateLimiters: make(map[string]*rate.Limiter),
	}
}

// BearerToken extracts a token from the Authorization header, falling back
// to the query string for websocket handshakes where browsers cannot set
// headers.
func BearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

func (m *Middleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			abortError(c, http.StatusUnauthorized, "authorization required", "UNAUTHORIZED")
			return
		}

		claims, err := m.auth.ParseToken(token)
		if err != nil {
			abortError(c, http.StatusUnauthorized, "invalid token", "UNAUTHORIZED")
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)
		c.Set("user_name", claims.Name)
		c.Next()
	}
}

// AdminRequired must follow AuthRequired.
func (m *Middleware) AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("role") != "admin" {
			abortError(c, http.StatusForbidden, "admin access required", "FORBIDDEN")
			return
		}
		c.Next()
	}
}

// RateLimitPerUser limits requests per authenticated user. Must follow
// AuthRequired.
func (m *Middleware) RateLimitPerUser(r rate.Limit, b int) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("user_id")
		if userID == "" {
			abortError(c, http.StatusUnauthorized, "user identity not found for rate limiting", "UNAUTHORIZED")
			return
		}

		m.mu.Lock()
		limiter, exists := m.rateLimiters[userID]
		if !exists {
			limiter = rate.NewLimiter(r, b)
			m.rateLimiters[userID] = limiter
		}
		m.mu.Unlock()

		if !limiter.Allow() {
			abortError(c, http.StatusTooManyRequests, "rate limit exceeded", "RATE_LIMITED")
			return
		}

		c.Next()
	}
}

// CORSMiddleware allows Cross-Origin requests
func (m *Middleware) CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Total-Count, X-Page, X-Per-Page")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// SecurityHeaders adds security headers to prevent common attacks
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("X-XSS-Protection", "1; mode=block")
		c.Writer.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// RequestSizeLimiter limits request body size to prevent DoS
func RequestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
