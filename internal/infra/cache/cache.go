// Package cache provides an in-memory TTL cache bounded by entry count.
// In production, this could be backed by Redis.
package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// InMemory is a thread-safe LRU cache whose entries expire after a TTL.
type InMemory[T any] struct {
	lru *expirable.LRU[string, T]
}

// New creates a cache holding at most size entries (0 = unbounded), each
// living for ttl.
func New[T any](size int, ttl time.Duration) *InMemory[T] {
	if size < 0 {
		size = 0
	}
	return &InMemory[T]{lru: expirable.NewLRU[string, T](size, nil, ttl)}
}

// Get retrieves a value from the cache. Returns false if not found or expired.
func (c *InMemory[T]) Get(key string) (T, bool) {
	return c.lru.Get(key)
}

// Set stores a value in the cache with the configured TTL, evicting the
// least recently used entry when full.
func (c *InMemory[T]) Set(key string, value T) {
	c.lru.Add(key, value)
}

// Delete removes a value from the cache.
func (c *InMemory[T]) Delete(key string) {
	c.lru.Remove(key)
}

// Len returns the number of live entries.
func (c *InMemory[T]) Len() int {
	return c.lru.Len()
}
