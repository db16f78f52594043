package ratelimit

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Redis shares counters between gateway replicas. Each window gets its own key,
// expiring when the window closes.
type Redis struct {
	rdb    goredis.UniversalClient
	window time.Duration
	limit  int
	now    Clock
}

func NewRedis(rdb goredis.UniversalClient, window time.Duration, limit int, now Clock) (*Redis, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if now == nil {
		now = time.Now
	}
	return &Redis{rdb: rdb, window: window, limit: limit, now: now}, nil
}

func (r *Redis) Allow(ctx context.Context, identity string) (Decision, error) {
	ws := windowStart(r.now(), r.window)
	key := fmt.Sprintf("ratelimit:%s:%d", identity, ws.Unix())

	var incr *goredis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		incr = p.Incr(ctx, key)
		p.PExpireAt(ctx, key, ws.Add(r.window))
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("redis incr: %w", err)
	}
	return decide(incr.Val(), r.limit, ws, r.window), nil
}
