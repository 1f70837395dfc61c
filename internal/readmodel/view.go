// Package readmodel keeps UI-ready views in sync with live store snapshots.
//
// A View owns at most one store subscription at a time. Every snapshot is
// decoded and derived in the subscription's goroutine, in arrival order, and
// the result replaces the published value in one step. Rebinding a View to a
// different Key cancels the old subscription and waits for it to stop before
// the new one is opened, and values computed under an older binding are
// discarded.
package readmodel

import (
	"context"
	"errors"
	"sync"

	"github.com/gdg-garage/campus-portal/internal/store"
	"github.com/golang/glog"
)

var (
	ErrClosed  = errors.New("view closed")
	ErrUnbound = errors.New("view is not subscribed")
)

type State int

const (
	Unsubscribed State = iota
	Subscribing
	Live
)

func (s State) String() string {
	switch s {
	case Subscribing:
		return "subscribing"
	case Live:
		return "live"
	default:
		return "unsubscribed"
	}
}

// Source opens live subscriptions; *store.Store implements it.
type Source interface {
	Subscribe(ctx context.Context, path string, q store.Query) (*store.Subscription, error)
}

// Deriver turns one raw snapshot into the published value. It runs
// synchronously for each snapshot; ctx is cancelled when the binding ends.
type Deriver[T any] func(ctx context.Context, key Key, raw any) T

// Update is one published value together with the key it was derived under.
type Update[T any] struct {
	Key   Key
	Value T
}

type View[T any] struct {
	src    Source
	derive Deriver[T]

	// bindMu serialises Bind, Unbind and Close.
	bindMu sync.Mutex

	mu          sync.Mutex
	state       State
	key         Key
	gen         uint64
	cancel      context.CancelFunc
	done        chan struct{}
	current     *T
	ready       chan struct{}
	readyClosed bool
	watchers    map[int]chan Update[T]
	nextWatcher int
	closed      bool
}

func NewView[T any](src Source, derive Deriver[T]) *View[T] {
	return &View[T]{
		src:      src,
		derive:   derive,
		ready:    make(chan struct{}),
		watchers: map[int]chan Update[T]{},
	}
}

func (v *View[T]) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

func (v *View[T]) Key() Key {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.key
}

// Bind points the view at key. Binding the key it already follows is a no-op.
// Any other key first tears the current subscription down; a pending key then
// leaves the view Unsubscribed.
func (v *View[T]) Bind(key Key) error {
	v.bindMu.Lock()
	defer v.bindMu.Unlock()

	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return ErrClosed
	}
	if v.key == key && (v.state != Unsubscribed || key.Pending()) {
		v.mu.Unlock()
		return nil
	}
	v.mu.Unlock()

	v.teardown(key)

	v.mu.Lock()
	if key.Pending() {
		v.mu.Unlock()
		return nil
	}
	v.state = Subscribing
	gen := v.gen
	v.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := v.src.Subscribe(ctx, key.Path, key.Query)
	if err != nil {
		cancel()
		v.mu.Lock()
		v.state = Unsubscribed
		v.mu.Unlock()
		return err
	}

	done := make(chan struct{})
	v.mu.Lock()
	v.cancel = cancel
	v.done = done
	v.mu.Unlock()

	glog.V(1).Infof("view subscribed to %s", key)
	go v.run(ctx, gen, key, sub, done)
	return nil
}

// Unbind tears the subscription down and leaves the view Unsubscribed.
func (v *View[T]) Unbind() {
	v.bindMu.Lock()
	defer v.bindMu.Unlock()
	v.teardown(Key{})
}

// Close unbinds and closes every watcher channel.
func (v *View[T]) Close() {
	v.bindMu.Lock()
	defer v.bindMu.Unlock()
	v.teardown(Key{})

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	v.releaseWaiters()
	for id, ch := range v.watchers {
		delete(v.watchers, id)
		close(ch)
	}
}

// teardown cancels the current subscription, moves the view to next and
// returns once the old goroutine has exited. Bumping gen first means nothing
// from the old binding is published afterwards; unread values of the old
// binding are dropped from every watcher.
func (v *View[T]) teardown(next Key) {
	v.mu.Lock()
	cancel, done := v.cancel, v.done
	v.cancel, v.done = nil, nil
	v.gen++
	v.key = next
	v.state = Unsubscribed
	v.current = nil
	for _, ch := range v.watchers {
		select {
		case <-ch:
		default:
		}
	}
	v.releaseWaiters()
	v.ready = make(chan struct{})
	v.readyClosed = false
	v.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
		glog.V(1).Infof("view unsubscribed")
	}
}

// releaseWaiters must be called with v.mu held.
func (v *View[T]) releaseWaiters() {
	if !v.readyClosed {
		close(v.ready)
		v.readyClosed = true
	}
}

func (v *View[T]) run(ctx context.Context, gen uint64, key Key, sub *store.Subscription, done chan struct{}) {
	defer close(done)
	defer sub.Cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case raw, ok := <-sub.Snapshots():
			if !ok {
				return
			}
			value := v.derive(ctx, key, raw)
			if ctx.Err() != nil {
				return
			}
			v.publish(gen, key, value)
		}
	}
}

func (v *View[T]) publish(gen uint64, key Key, value T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen {
		return
	}
	v.current = &value
	v.state = Live
	v.releaseWaiters()
	for _, ch := range v.watchers {
		offer(ch, Update[T]{Key: key, Value: value})
	}
}

// Current returns the latest published value, if any.
func (v *View[T]) Current() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.current == nil {
		var zero T
		return zero, false
	}
	return *v.current, true
}

// Wait blocks until the view has a published value for its current key.
// It fails with ErrUnbound when the view is not subscribed to anything.
func (v *View[T]) Wait(ctx context.Context) (T, error) {
	var zero T
	for {
		v.mu.Lock()
		if v.current != nil {
			value := *v.current
			v.mu.Unlock()
			return value, nil
		}
		if v.closed {
			v.mu.Unlock()
			return zero, ErrClosed
		}
		if v.state == Unsubscribed {
			v.mu.Unlock()
			return zero, ErrUnbound
		}
		ready := v.ready
		v.mu.Unlock()

		select {
		case <-ready:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Watch returns a channel that always holds the newest value not yet read,
// starting with the current one. Each value carries the key it was derived
// under; a rebind drops values of the old key that were never read. stop
// closes the channel.
func (v *View[T]) Watch() (updates <-chan Update[T], stop func()) {
	v.mu.Lock()
	defer v.mu.Unlock()

	ch := make(chan Update[T], 1)
	if v.closed {
		close(ch)
		return ch, func() {}
	}
	id := v.nextWatcher
	v.nextWatcher++
	v.watchers[id] = ch
	if v.current != nil {
		offer(ch, Update[T]{Key: v.key, Value: *v.current})
	}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			v.mu.Lock()
			defer v.mu.Unlock()
			if _, ok := v.watchers[id]; ok {
				delete(v.watchers, id)
				close(ch)
			}
		})
	}
}

// offer replaces any unread value; callers hold the lock that makes them the
// only sender.
func offer[T any](ch chan T, value T) {
	select {
	case ch <- value:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	ch <- value
}
