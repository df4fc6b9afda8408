// Package cache provides thread-safe generic caching and the rendered
// preview cache.
package cache

import "sync"

type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		items: make(map[K]V),
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.items[key]
	return val, ok
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]V)
}

func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

var renderedPreviewCache = NewCache[string, []byte]()

// GetRenderedPreview returns previously rendered preview HTML for a
// content hash.
func GetRenderedPreview(contentHash string) ([]byte, bool) {
	return renderedPreviewCache.Get(contentHash)
}

func SetRenderedPreview(contentHash string, html []byte) {
	renderedPreviewCache.Set(contentHash, html)
}

func ClearRenderedPreviewCache() {
	renderedPreviewCache.Clear()
}

func GetRenderedPreviewLen() int {
	return renderedPreviewCache.Len()
}
