package store

import (
	"sync"
)

// Subscription delivers snapshots of one path. Only the latest undelivered
// snapshot is kept: a slow reader skips intermediate values but always ends
// up with the newest one.
type Subscription struct {
	id    uint64
	store *Store
	path  string
	parts []string
	query Query
	ch    chan any

	// guarded by store.mu
	last      any
	delivered bool

	once sync.Once
	stop func() bool // guarded by store.mu
}

// Snapshots is closed after Cancel.
func (s *Subscription) Snapshots() <-chan any {
	return s.ch
}

// Cancel is safe to call more than once and from any goroutine.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.store.unsubscribe(s)
	})
}

// offer must be called with store.mu held, which makes it the only sender.
func (s *Subscription) offer(v any) {
	select {
	case s.ch <- v:
		return
	default:
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- v
}
