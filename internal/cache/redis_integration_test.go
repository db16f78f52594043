package cache

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

	c, err := NewRedis(rdb, time.Second)
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	key := Fingerprint("test", uuid.NewString())
	if _, ok, err := c.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}
	if err := c.Set(ctx, key, []byte("value")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok, err := c.Get(ctx, key); err != nil || !ok || string(v) != "value" {
		t.Fatalf("expected hit, ok=%v err=%v v=%s", ok, err, v)
	}
	time.Sleep(1200 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, key); ok {
		t.Fatalf("expected expiry")
	}
}
