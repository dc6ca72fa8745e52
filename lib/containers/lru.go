// SPDX-License-Identifier: MIT

package containers

import (
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// LRUCache is a least-recently-used(ish) cache. A zero LRUCache is
// usable and has a cache size of 128 items; use NewLRUCache to set a
// different size. It exists for the index selector's compiled-plan
// memoization, where re-scoring every candidate index on each query
// compile would otherwise be wasted work for repeated query shapes.
type LRUCache[K comparable, V any] struct {
	initOnce sync.Once
	size     int
	inner    *lru.ARCCache
}

func NewLRUCache[K comparable, V any](size int) *LRUCache[K, V] {
	c := &LRUCache[K, V]{size: size}
	return c
}

func (c *LRUCache[K, V]) init() {
	c.initOnce.Do(func() {
		size := c.size
		if size <= 0 {
			size = 128
		}
		c.inner, _ = lru.NewARC(size)
	})
}

func (c *LRUCache[K, V]) Add(key K, value V) {
	c.init()
	c.inner.Add(key, value)
}

func (c *LRUCache[K, V]) Get(key K) (value V, ok bool) {
	c.init()
	untyped, ok := c.inner.Get(key)
	if ok {
		value = untyped.(V)
	}
	return value, ok
}

func (c *LRUCache[K, V]) Remove(key K) {
	c.init()
	c.inner.Remove(key)
}

func (c *LRUCache[K, V]) Purge() {
	c.init()
	c.inner.Purge()
}

func (c *LRUCache[K, V]) Len() int {
	c.init()
	return c.inner.Len()
}
