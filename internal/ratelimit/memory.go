package ratelimit

import (
	"context"
	"sync"
	"time"
)

type Memory struct {
	mu     sync.Mutex
	window time.Duration
	limit  int
	now    Clock

	start  time.Time
	counts map[string]int64
}

func NewMemory(window time.Duration, limit int, now Clock) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{window: window, limit: limit, now: now, counts: make(map[string]int64)}
}

func (m *Memory) Allow(_ context.Context, identity string) (Decision, error) {
	ws := windowStart(m.now(), m.window)

	m.mu.Lock()
	defer m.mu.Unlock()
	if !ws.Equal(m.start) {
		m.start = ws
		m.counts = make(map[string]int64)
	}
	m.counts[identity]++
	return decide(m.counts[identity], m.limit, ws, m.window), nil
}
