package middleware

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS restricts cross-origin access to the configured allow-list. Browsers may
// POST to the generation endpoints and GET the evidence lookup; nothing else.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"POST", "GET"},
		AllowHeaders:  []string{"Content-Type"},
		ExposeHeaders: []string{"Retry-After", HeaderRequestID, HeaderTraceID, HeaderRateLimitLimit, HeaderRateLimitRemaining},
		MaxAge:        10 * time.Minute,
	}

	allowed := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch {
		case o == "*":
			cfg.AllowAllOrigins = true
		case strings.HasPrefix(o, "http://") || strings.HasPrefix(o, "https://"):
			allowed = append(allowed, o)
		}
	}
	switch {
	case cfg.AllowAllOrigins:
	case len(allowed) == 0:
		cfg.AllowOriginFunc = func(string) bool { return false }
	default:
		cfg.AllowOrigins = allowed
	}
	return cors.New(cfg)
}
