package app

import (
	"context"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/careplan-backend/internal/cache"
	"github.com/yungbote/careplan-backend/internal/config"
	httpH "github.com/yungbote/careplan-backend/internal/http/handlers"
	"github.com/yungbote/careplan-backend/internal/llm"
	"github.com/yungbote/careplan-backend/internal/llm/mock"
	"github.com/yungbote/careplan-backend/internal/llm/oaihttp"
	"github.com/yungbote/careplan-backend/internal/llm/openai"
	"github.com/yungbote/careplan-backend/internal/platform/redisx"
	"github.com/yungbote/careplan-backend/internal/ratelimit"
)

const backendRedis = "redis"

func openRedis(ctx context.Context, cfg *config.Config) (*goredis.Client, error) {
	if !strings.EqualFold(cfg.Cache.Backend, backendRedis) && !strings.EqualFold(cfg.RateLimit.Backend, backendRedis) {
		return nil, nil
	}
	rdb, err := redisx.NewClient(ctx, redisx.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}
	return rdb, nil
}

func buildCache(cfg *config.Config, rdb *goredis.Client) (cache.Cache, error) {
	switch strings.ToLower(cfg.Cache.Backend) {
	case "", "memory":
		return cache.NewMemory(cfg.Cache.TTL.Duration, nil), nil
	case backendRedis:
		return cache.NewRedis(rdb, cfg.Cache.TTL.Duration)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

func buildLimiter(cfg *config.Config, rdb *goredis.Client) (ratelimit.Limiter, error) {
	rl := cfg.RateLimit
	switch strings.ToLower(rl.Backend) {
	case "", "memory":
		return ratelimit.NewMemory(rl.Window.Duration, rl.MaxRequests, nil), nil
	case backendRedis:
		return ratelimit.NewRedis(rdb, rl.Window.Duration, rl.MaxRequests, nil)
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", rl.Backend)
	}
}

func buildEngine(cfg config.EngineConfig) (llm.Engine, error) {
	switch strings.ToLower(cfg.Type) {
	case "openai":
		return openai.New(cfg)
	case "oai_http":
		return oaihttp.New(cfg)
	case "mock":
		return mock.New(), nil
	default:
		return nil, fmt.Errorf("unknown engine type %q", cfg.Type)
	}
}

func healthDeps(rdb *goredis.Client) map[string]httpH.Pinger {
	if rdb == nil {
		return nil
	}
	return map[string]httpH.Pinger{
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}
}
