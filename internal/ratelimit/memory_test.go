package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryFixedWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	l := NewMemory(15*time.Minute, 3, func() time.Time { return now })

	for i := 1; i <= 3; i++ {
		d, err := l.Allow(ctx, "10.0.0.1")
		if err != nil || !d.Allowed {
			t.Fatalf("request %d: allowed=%v err=%v", i, d.Allowed, err)
		}
		if d.Remaining != 3-i {
			t.Fatalf("request %d: remaining=%d", i, d.Remaining)
		}
	}
	d, _ := l.Allow(ctx, "10.0.0.1")
	if d.Allowed {
		t.Fatalf("4th request should be rejected")
	}
	if want := now.Add(15 * time.Minute); !d.ResetAt.Equal(want) {
		t.Fatalf("reset_at=%s want=%s", d.ResetAt, want)
	}
	if got := d.RetryAfter(now.Add(5 * time.Minute)); got != 10*time.Minute {
		t.Fatalf("retry_after=%s", got)
	}

	// other identities have their own counter
	if d, _ := l.Allow(ctx, "10.0.0.2"); !d.Allowed {
		t.Fatalf("other identity rejected")
	}

	now = now.Add(15 * time.Minute)
	if d, _ := l.Allow(ctx, "10.0.0.1"); !d.Allowed || d.Remaining != 2 {
		t.Fatalf("new window: allowed=%v remaining=%d", d.Allowed, d.Remaining)
	}
}

func TestMemoryWindowIsClockAligned(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 10, 14, 0, 0, time.UTC)
	l := NewMemory(15*time.Minute, 1, func() time.Time { return now })

	if d, _ := l.Allow(ctx, "a"); !d.Allowed {
		t.Fatalf("first request rejected")
	}
	// one minute later a new window has started, so the boundary allows a burst
	now = now.Add(time.Minute)
	if d, _ := l.Allow(ctx, "a"); !d.Allowed {
		t.Fatalf("request after boundary rejected")
	}
}
