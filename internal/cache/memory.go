package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value    []byte
	storedAt time.Time
}

// Memory is a process-local TTL cache. Expired entries are ignored on read
// but stay in the map until overwritten; there is no sweep and no size cap.
type Memory struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     Clock
	entries map[string]entry
}

func NewMemory(ttl time.Duration, now Clock) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{ttl: ttl, now: now, entries: make(map[string]entry)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if m.now().Sub(e.storedAt) >= m.ttl {
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	m.mu.Lock()
	m.entries[key] = entry{value: v, storedAt: m.now()}
	m.mu.Unlock()
	return nil
}

// Len counts stored entries, stale ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
