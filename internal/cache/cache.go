// Package cache provides the injectable estimate cache used by the safety and
// ETA pipelines.
package cache

import (
	"context"
	"strings"
)

// Cache stores values by key. Implementations are safe for concurrent use.
// A miss and an expired entry look the same to callers.
type Cache[T any] interface {
	Get(ctx context.Context, key string) (T, bool)
	Set(ctx context.Context, key string, value T)
}

// Nop is a cache that never stores anything.
type Nop[T any] struct{}

// Get always misses.
func (Nop[T]) Get(context.Context, string) (T, bool) {
	var zero T
	return zero, false
}

// Set discards the value.
func (Nop[T]) Set(context.Context, string, T) {}

// Key joins normalised key parts with "|".
func Key(parts ...string) string {
	normalised := make([]string, len(parts))
	for i, p := range parts {
		normalised[i] = strings.ToLower(strings.Join(strings.Fields(p), " "))
	}
	return strings.Join(normalised, "|")
}
