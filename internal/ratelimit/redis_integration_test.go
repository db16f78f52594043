package ratelimit

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/careplan-backend/internal/platform/redisx"
)

func TestRedisIntegration(t *testing.T) {
	if strings.TrimSpace(os.Getenv("REDIS_INTEGRATION")) != "1" {
		t.Skip("set REDIS_INTEGRATION=1 and REDIS_ADDR to run")
	}
	ctx := context.Background()
	rdb, err := redisx.NewClient(ctx, redisx.Options{Addr: os.Getenv("REDIS_ADDR")})
	if err != nil {
		t.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	l, err := NewRedis(rdb, time.Minute, 2, nil)
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	id := uuid.NewString()
	for i := 0; i < 2; i++ {
		if d, err := l.Allow(ctx, id); err != nil || !d.Allowed {
			t.Fatalf("request %d: allowed=%v err=%v", i, d.Allowed, err)
		}
	}
	if d, err := l.Allow(ctx, id); err != nil || d.Allowed {
		t.Fatalf("3rd request: allowed=%v err=%v", d.Allowed, err)
	}
}
