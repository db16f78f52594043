package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/careplan-backend/internal/http/handlers"
	httpMW "github.com/yungbote/careplan-backend/internal/http/middleware"
	"github.com/yungbote/careplan-backend/internal/http/response"
	"github.com/yungbote/careplan-backend/internal/observability"
	"github.com/yungbote/careplan-backend/internal/platform/logger"
	"github.com/yungbote/careplan-backend/internal/ratelimit"
)

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	ServiceName     string
	AllowedOrigins  []string
	// TrustedProxies may set X-Forwarded-For; nil trusts nobody.
	TrustedProxies  []string
	MaxRequestBytes int64
	Limiter         ratelimit.Limiter
	Now             func() time.Time

	// MetricsEnabled mounts GET /metrics.
	MetricsEnabled bool

	CarePlanHandler *httpH.CarePlanHandler
	ResearchHandler *httpH.ResearchHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	// ClientIP keys the rate limiter, so forwarded headers only count from known proxies.
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		if cfg.Log != nil {
			cfg.Log.Warn("invalid trusted proxies; trusting none", "error", err)
		}
		_ = r.SetTrustedProxies(nil)
	}

	r.Use(httpMW.Recover(cfg.Log))
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.SecurityHeaders())
	r.Use(httpMW.CORS(cfg.AllowedOrigins))
	r.Use(httpMW.Compress())
	r.Use(httpMW.BodyLimit(cfg.MaxRequestBytes))

	r.NoRoute(func(c *gin.Context) {
		response.RespondStatus(c, http.StatusNotFound, "not_found", "Not found")
	})
	r.NoMethod(func(c *gin.Context) {
		response.RespondStatus(c, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.MetricsEnabled && cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	api.Use(httpMW.RateLimit(cfg.Limiter, cfg.Log, cfg.Metrics, cfg.Now))
	{
		if cfg.CarePlanHandler != nil {
			api.POST("/ai/care-plan", cfg.CarePlanHandler.GenerateCarePlan)
			api.POST("/ai/assess-quality", cfg.CarePlanHandler.AssessQuality)
			api.POST("/ai/enhance-research", cfg.CarePlanHandler.EnhanceResearch)
		}
		if cfg.ResearchHandler != nil {
			api.GET("/research", cfg.ResearchHandler.Lookup)
		}
	}

	return r
}
