package cache

import "sync"

// RecordCache keeps an in-process copy of store records keyed by id.
// It is advisory: callers fall back to the store when it is cold or misses.
// Insertion order is preserved so full listings come back in store order.
type RecordCache[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	order []string
	warm  bool
	// gen moves on every single-record change so a bulk load read before it can be discarded.
	gen uint64
}

// NewRecordCache creates an empty, cold cache.
func NewRecordCache[T any]() *RecordCache[T] {
	return &RecordCache[T]{items: make(map[string]T)}
}

// Get returns the record cached under id.
func (c *RecordCache[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	return item, ok
}

// Put upserts a record. New ids are appended to the listing order.
func (c *RecordCache[T]) Put(id string, item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if _, exists := c.items[id]; !exists {
		c.order = append(c.order, id)
	}
	c.items[id] = item
}

// Delete removes id and reports whether it was present.
func (c *RecordCache[T]) Delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	if _, exists := c.items[id]; !exists {
		return false
	}
	delete(c.items, id)
	for i, key := range c.order {
		if key == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// All returns every cached record in insertion order and whether the cache
// holds a complete copy of the store.
func (c *RecordCache[T]) All() ([]T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.items[id])
	}
	return out, c.warm
}

// Generation returns a token that changes whenever a record is put or deleted.
func (c *RecordCache[T]) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Replace swaps the whole content and marks the cache warm.
func (c *RecordCache[T]) Replace(items []T, key func(T) string) {
	fresh, order := index(items, key)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.install(fresh, order)
}

// ReplaceIfUnchanged installs items like Replace, but only when no record was put
// or deleted since gen was taken. It reports whether the items were installed.
func (c *RecordCache[T]) ReplaceIfUnchanged(items []T, key func(T) string, gen uint64) bool {
	fresh, order := index(items, key)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return false
	}
	c.install(fresh, order)
	return true
}

// install must be called with mu held.
func (c *RecordCache[T]) install(fresh map[string]T, order []string) {
	c.gen++
	c.items = fresh
	c.order = order
	c.warm = true
}

func index[T any](items []T, key func(T) string) (map[string]T, []string) {
	fresh := make(map[string]T, len(items))
	order := make([]string, 0, len(items))
	for _, item := range items {
		id := key(item)
		if _, dup := fresh[id]; !dup {
			order = append(order, id)
		}
		fresh[id] = item
	}
	return fresh, order
}

// Find returns the first record, in insertion order, matching pred.
func (c *RecordCache[T]) Find(pred func(T) bool) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, id := range c.order {
		if item := c.items[id]; pred(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Invalidate drops everything and marks the cache cold.
func (c *RecordCache[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.items = make(map[string]T)
	c.order = nil
	c.warm = false
}

// Warm reports whether the cache holds a complete copy of the store.
func (c *RecordCache[T]) Warm() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.warm
}

// Len returns the number of cached records.
func (c *RecordCache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
