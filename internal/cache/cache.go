// Package cache memoizes simulation results keyed by their inputs.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/iwvelando/heloc-forecast/pkg/constants"
	"github.com/iwvelando/heloc-forecast/pkg/simulator"
)

// Cache stores serialized simulation results.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Key derives a stable key from everything that determines a simulation's
// output.
func Key(in simulator.Input, config simulator.Config) (string, error) {
	payload, err := json.Marshal(struct {
		Input  simulator.Input  `json:"input"`
		Config simulator.Config `json:"config"`
	}{in, config})
	if err != nil {
		return "", fmt.Errorf("failed to encode cache key: %w", err)
	}
	sum := sha256.Sum256(payload)
	return "heloc:sim:" + hex.EncodeToString(sum[:]), nil
}

type entry struct {
	value   []byte
	expires time.Time
}

// Memory is an in-process Cache with per-entry expiry. Expired entries are
// swept from Set at most once per ttl, and the oldest entry is evicted when
// the cache is full.
type Memory struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	items      map[string]entry
	nextSweep  time.Time
	now        func() time.Time
}

// MemoryOption customizes a Memory cache.
type MemoryOption func(*Memory)

// WithMaxEntries caps the number of stored entries. Values below 1 are ignored.
func WithMaxEntries(n int) MemoryOption {
	return func(m *Memory) {
		if n > 0 {
			m.maxEntries = n
		}
	}
}

// NewMemory returns an empty Memory cache. A zero ttl never expires entries.
func NewMemory(ttl time.Duration, opts ...MemoryOption) *Memory {
	m := &Memory{
		ttl:        ttl,
		maxEntries: constants.DefaultCacheMaxEntries,
		items:      make(map[string]entry),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.items[key]
	if !ok {
		return nil, false, nil
	}
	if e.expired(m.now()) {
		delete(m.items, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	if _, ok := m.items[key]; !ok && len(m.items) >= m.maxEntries {
		m.evictOldest()
	}

	e := entry{value: append([]byte(nil), value...)}
	if m.ttl > 0 {
		e.expires = now.Add(m.ttl)
	}
	m.items[key] = e
	return nil
}

// sweep drops expired entries once the previous sweep is a ttl old.
func (m *Memory) sweep(now time.Time) {
	if m.ttl <= 0 || now.Before(m.nextSweep) {
		return
	}
	for k, e := range m.items {
		if e.expired(now) {
			delete(m.items, k)
		}
	}
	m.nextSweep = now.Add(m.ttl)
}

// evictOldest removes the entry closest to expiry. Without a ttl all expiries
// are zero and an arbitrary entry goes.
func (m *Memory) evictOldest() {
	var (
		oldest string
		first  = true
		at     time.Time
	)
	for k, e := range m.items {
		if first || e.expires.Before(at) {
			oldest, at, first = k, e.expires, false
		}
	}
	if !first {
		delete(m.items, oldest)
	}
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}
