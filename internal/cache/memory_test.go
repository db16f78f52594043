package cache

import (
	"context"
	"strings"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestMemoryTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)}
	c := NewMemory(time.Hour, clock.Now)

	if _, ok, _ := c.Get(ctx, "quality:x"); ok {
		t.Fatalf("expected miss on empty cache")
	}
	if err := c.Set(ctx, "quality:x", []byte(`{"overall":4}`)); err != nil {
		t.Fatalf("set: %v", err)
	}

	clock.Advance(59 * time.Minute)
	v, ok, err := c.Get(ctx, "quality:x")
	if err != nil || !ok || string(v) != `{"overall":4}` {
		t.Fatalf("expected fresh hit, ok=%v err=%v v=%s", ok, err, v)
	}

	clock.Advance(time.Minute)
	if _, ok, _ := c.Get(ctx, "quality:x"); ok {
		t.Fatalf("expected miss at ttl boundary")
	}
	// stale entries linger until overwritten
	if c.Len() != 1 {
		t.Fatalf("len=%d", c.Len())
	}

	if err := c.Set(ctx, "quality:x", []byte(`{"overall":5}`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok, _ := c.Get(ctx, "quality:x"); !ok || string(v) != `{"overall":5}` {
		t.Fatalf("expected overwritten entry, ok=%v v=%s", ok, v)
	}
}

func TestMemorySetCopiesValue(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Hour, nil)
	buf := []byte("plan")
	_ = c.Set(ctx, "k", buf)
	buf[0] = 'X'
	if v, _, _ := c.Get(ctx, "k"); string(v) != "plan" {
		t.Fatalf("cached value aliased caller buffer: %s", v)
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("care-plan", `{"name":"A"}`, "prompt")
	b := Fingerprint("care-plan", `{"name":"A"}`, "prompt")
	if a != b {
		t.Fatalf("fingerprint not deterministic")
	}
	if !strings.HasPrefix(a, "care-plan:") || len(a) != len("care-plan:")+64 {
		t.Fatalf("fingerprint=%q", a)
	}
	if Fingerprint("care-plan", `{"name":"A"}`, "other") == a {
		t.Fatalf("prompt should change the key")
	}
	// part boundaries matter
	if Fingerprint("q", "ab", "c") == Fingerprint("q", "a", "bc") {
		t.Fatalf("fingerprint ignores part boundaries")
	}
}
