// Package lru provides a generic LRU cache with an eviction callback.
//
//	c := lru.New[string, int](100, func(k string, v int) { release(v) })
//	c.Set("key", 42)
//	value, ok := c.Get("key")
//
// Evicted, replaced and cleared values go through the callback so the
// cache can own values that hold external resources.
//
// # Thread Safety
//
// Cache is safe for concurrent use. It must not be copied after creation.
package lru
