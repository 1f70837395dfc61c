package readmodel

import (
	"sync"
)

// Cache shares one View per Key between consumers. The view is subscribed
// on first Acquire and closed when its last consumer releases it.
type Cache[T any] struct {
	src    Source
	derive Deriver[T]

	mu      sync.Mutex
	entries map[Key]*cacheEntry[T]
}

type cacheEntry[T any] struct {
	view *View[T]
	refs int
}

func NewCache[T any](src Source, derive Deriver[T]) *Cache[T] {
	return &Cache[T]{src: src, derive: derive, entries: map[Key]*cacheEntry[T]{}}
}

// Acquire returns the shared view for key. Callers must not rebind it and
// must call release exactly once when done. Pending keys get a private,
// unsubscribed view.
func (c *Cache[T]) Acquire(key Key) (*View[T], func(), error) {
	if key.Pending() {
		v := NewView(c.src, c.derive)
		v.Bind(key)
		return v, v.Close, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		v := NewView(c.src, c.derive)
		if err := v.Bind(key); err != nil {
			v.Close()
			return nil, nil, err
		}
		e = &cacheEntry[T]{view: v}
		c.entries[key] = e
	}
	e.refs++

	var once sync.Once
	release := func() {
		once.Do(func() { c.release(key, e) })
	}
	return e.view, release, nil
}

func (c *Cache[T]) release(key Key, e *cacheEntry[T]) {
	c.mu.Lock()
	e.refs--
	last := e.refs == 0
	if last && c.entries[key] == e {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if last {
		e.view.Close()
	}
}

// Len reports how many keys currently have a live shared view.
func (c *Cache[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
