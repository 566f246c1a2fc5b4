package reqcache

import (
	"context"
	"sync"
	"time"
)

// Memory is the in-process backend: a mutex-guarded map with lazy
// expiry and a background janitor.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	done    chan struct{}
	once    sync.Once
	now     func() time.Time
}

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

// NewMemory creates a memory backend. janitorInterval <= 0 disables the
// background sweep (expired entries are still rejected on read).
func NewMemory(janitorInterval time.Duration) *Memory {
	m := &Memory{
		entries: make(map[string]memEntry),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	if janitorInterval > 0 {
		go m.janitor(janitorInterval)
	}
	return m
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || m.now().After(e.expiresAt) {
		return nil, ErrMiss
	}
	// Copy: cache-held snapshots stay immutable.
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

// Put implements Store.
func (m *Memory) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	v := make([]byte, len(value))
	copy(v, value)
	m.mu.Lock()
	m.entries[key] = memEntry{value: v, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// Close stops the janitor.
func (m *Memory) Close() {
	m.once.Do(func() { close(m.done) })
}

func (m *Memory) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

func (m *Memory) sweep() {
	now := m.now()
	m.mu.Lock()
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
		}
	}
	m.mu.Unlock()
}
