package cache

import (
	"context"
	"time"

	"github.com/bluele/gcache"
)

// Memory is an in-process LRU cache with per-entry expiration.
type Memory[T any] struct {
	store gcache.Cache
}

// NewMemory creates a memory cache holding at most size entries for ttl each.
func NewMemory[T any](size int, ttl time.Duration) *Memory[T] {
	if size <= 0 {
		size = 1000
	}
	b := gcache.New(size).LRU()
	if ttl > 0 {
		b = b.Expiration(ttl)
	}
	return &Memory[T]{store: b.Build()}
}

// Get returns the cached value for key.
func (m *Memory[T]) Get(_ context.Context, key string) (T, bool) {
	var zero T
	v, err := m.store.Get(key)
	if err != nil {
		return zero, false
	}
	value, ok := v.(T)
	if !ok {
		return zero, false
	}
	return value, true
}

// Set stores value under key.
func (m *Memory[T]) Set(_ context.Context, key string, value T) {
	_ = m.store.Set(key, value)
}

// Len returns the number of live entries.
func (m *Memory[T]) Len() int {
	return m.store.Len(true)
}
