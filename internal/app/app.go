package app

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/careplan-backend/internal/cache"
	"github.com/yungbote/careplan-backend/internal/config"
	"github.com/yungbote/careplan-backend/internal/gateway"
	httpserver "github.com/yungbote/careplan-backend/internal/http"
	httpH "github.com/yungbote/careplan-backend/internal/http/handlers"
	"github.com/yungbote/careplan-backend/internal/observability"
	"github.com/yungbote/careplan-backend/internal/platform/logger"
	"github.com/yungbote/careplan-backend/internal/research"
	"github.com/yungbote/careplan-backend/internal/validation"
)

const serviceName = "careplan-gateway"

// App owns every process-wide component of the gateway. Nothing is a package
// global: the cache, limiter and engine are built here and passed down.
type App struct {
	Log     *logger.Logger
	Config  *config.Config
	Metrics *observability.Metrics

	server        *httpserver.Server
	redis         *goredis.Client
	otelShutdown  func(context.Context) error
	stopCollector context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return NewWithConfig(ctx, cfg, log)
}

// NewWithConfig wires the gateway from an already loaded config.
func NewWithConfig(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Log: log, Config: cfg}
	a.otelShutdown = observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: serviceName,
		Environment: cfg.Env,
	})

	a.Metrics = observability.New()

	rdb, err := openRedis(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.redis = rdb
	if rdb != nil && cfg.Metrics {
		collectorCtx, cancel := context.WithCancel(context.Background())
		a.stopCollector = cancel
		a.Metrics.StartRedisCollector(collectorCtx, log, rdb)
	}

	store, err := buildCache(cfg, rdb)
	if err != nil {
		a.Close()
		return nil, err
	}
	if mem, ok := store.(*cache.Memory); ok {
		a.Metrics.TrackCacheEntries(mem.Len)
	}
	limiter, err := buildLimiter(cfg, rdb)
	if err != nil {
		a.Close()
		return nil, err
	}
	engine, err := buildEngine(cfg.Engine)
	if err != nil {
		a.Close()
		return nil, err
	}

	gw, err := gateway.New(gateway.Options{
		Engine:       engine,
		Cache:        store,
		Log:          log,
		Metrics:      a.Metrics,
		Endpoints:    cfg.Endpoints,
		Timeout:      cfg.Engine.Timeout.Duration,
		SingleFlight: cfg.Cache.SingleFlight,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	v := validation.New()
	routerCfg := httpserver.RouterConfig{
		Log:             log,
		Metrics:         a.Metrics,
		ServiceName:     serviceName,
		AllowedOrigins:  cfg.HTTP.AllowedOrigins,
		TrustedProxies:  cfg.HTTP.TrustedProxies,
		MaxRequestBytes: cfg.HTTP.MaxRequestBytes,
		Limiter:         limiter,
		MetricsEnabled:  cfg.Metrics,
		CarePlanHandler: httpH.NewCarePlanHandler(gw, v, log),
		HealthHandler:   httpH.NewHealthHandler(healthDeps(rdb)),
	}
	if cfg.Research.Enabled {
		rs, err := research.New(research.Options{
			Config:  cfg.Research,
			Log:     log.With("service", "Research"),
			Metrics: a.Metrics,
			Cache:   store,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		routerCfg.ResearchHandler = httpH.NewResearchHandler(rs, v)
	}

	a.server = httpserver.NewServer(cfg.HTTP, routerCfg)

	log.Info("care plan gateway configured",
		"addr", cfg.HTTP.Addr,
		"engine", cfg.Engine.Type,
		"cache_backend", cfg.Cache.Backend,
		"ratelimit_backend", cfg.RateLimit.Backend,
		"single_flight", cfg.Cache.SingleFlight,
		"research_enabled", cfg.Research.Enabled,
		"metrics_enabled", cfg.Metrics,
	)
	return a, nil
}

func (a *App) Server() *httpserver.Server {
	return a.server
}

// Run serves until ctx is cancelled and then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	a.Log.Info("listening", "addr", a.server.Addr())
	err := a.server.Run(ctx, a.Config.HTTP.ShutdownTimeout.Duration)
	a.Close()
	return err
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.stopCollector != nil {
		a.stopCollector()
		a.stopCollector = nil
	}
	if a.redis != nil {
		_ = a.redis.Close()
		a.redis = nil
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
		a.otelShutdown = nil
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
