package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is how long until the current window closes.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if until := d.ResetAt.Sub(now); until > 0 {
		return until
	}
	return 0
}

// Limiter counts requests per identity in fixed clock-aligned windows.
// Counts reset at window boundaries, so up to twice the limit can pass around a boundary.
type Limiter interface {
	Allow(ctx context.Context, identity string) (Decision, error)
}

type Clock func() time.Time

func windowStart(now time.Time, window time.Duration) time.Time {
	return now.Truncate(window)
}

func decide(count int64, limit int, start time.Time, window time.Duration) Decision {
	remaining := int64(limit) - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   count <= int64(limit),
		Limit:     limit,
		Remaining: int(remaining),
		ResetAt:   start.Add(window),
	}
}
