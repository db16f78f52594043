package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/careplan-backend/internal/http/response"
	"github.com/yungbote/careplan-backend/internal/observability"
	"github.com/yungbote/careplan-backend/internal/platform/apierr"
	"github.com/yungbote/careplan-backend/internal/platform/logger"
	"github.com/yungbote/careplan-backend/internal/ratelimit"
)

const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
)

// RateLimit applies l per client IP. A limiter backend error lets the request through.
func RateLimit(l ratelimit.Limiter, log *logger.Logger, m *observability.Metrics, now func() time.Time) gin.HandlerFunc {
	if l == nil {
		return func(c *gin.Context) { c.Next() }
	}
	if now == nil {
		now = time.Now
	}
	return func(c *gin.Context) {
		d, err := l.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			if log != nil {
				log.Warn("rate limiter unavailable; allowing request", "error", err, "client_ip", c.ClientIP())
			}
			c.Next()
			return
		}

		c.Header(HeaderRateLimitLimit, strconv.Itoa(d.Limit))
		c.Header(HeaderRateLimitRemaining, strconv.Itoa(d.Remaining))
		if !d.Allowed {
			route := c.FullPath()
			if route == "" {
				route = "unmatched"
			}
			m.IncRateLimited(route)
			retry := d.RetryAfter(now())
			if retry < time.Second {
				retry = time.Second
			}
			response.RespondError(c, apierr.Throttled("", retry, nil))
			return
		}
		c.Next()
	}
}
