// Package store is the realtime document store: a JSON tree addressed by
// slash separated paths, persisted per top-level node through gorm, that
// pushes a fresh snapshot to every overlapping subscription after each write.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/gdg-garage/campus-portal/internal/models"
	"github.com/golang/glog"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

var ErrClosed = errors.New("store closed")

type Store struct {
	db  *gorm.DB
	now func() time.Time

	mu     sync.Mutex
	root   map[string]any
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool
}

// Open loads every persisted node from db.
func Open(ctx context.Context, db *gorm.DB) (*Store, error) {
	var nodes []models.Node
	if err := db.WithContext(ctx).Find(&nodes).Error; err != nil {
		return nil, fmt.Errorf("load nodes: %w", err)
	}

	s := &Store{
		db:   db,
		now:  time.Now,
		root: map[string]any{},
		subs: map[uint64]*Subscription{},
	}
	for _, n := range nodes {
		var v any
		if err := json.Unmarshal([]byte(n.Body), &v); err != nil {
			return nil, fmt.Errorf("decode node %q: %w", n.Root, err)
		}
		if v != nil {
			s.root[n.Root] = v
		}
	}
	glog.Infof("document store loaded %d root nodes", len(nodes))
	return s, nil
}

// Get returns a copy of the value at path, or nil when nothing is stored there.
func (s *Store) Get(ctx context.Context, path string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parts, err := SplitPath(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	return deepCopy(getAt(s.root, parts)), nil
}

// Set replaces the value at path. A nil value removes it.
func (s *Store) Set(ctx context.Context, path string, value any) error {
	parts, err := SplitPath(path)
	if err != nil {
		return err
	}
	v, err := normalize(value, s.now().UnixMilli())
	if err != nil {
		return err
	}
	return s.write(ctx, parts, func(node map[string]any) {
		setAt(node, parts, v)
	})
}

// Update sets each field relative to path in one write. Field names may
// themselves contain slashes; nil values remove the field.
func (s *Store) Update(ctx context.Context, path string, fields map[string]any) error {
	parts, err := SplitPath(path)
	if err != nil {
		return err
	}
	now := s.now().UnixMilli()

	type change struct {
		parts []string
		value any
	}
	changes := make([]change, 0, len(fields))
	for k, raw := range fields {
		rel, err := SplitPath(k)
		if err != nil {
			return err
		}
		v, err := normalize(raw, now)
		if err != nil {
			return err
		}
		full := append(append([]string{}, parts...), rel...)
		changes = append(changes, change{parts: full, value: v})
	}

	return s.write(ctx, parts, func(node map[string]any) {
		for _, c := range changes {
			setAt(node, c.parts, c.value)
		}
	})
}

// Push stores value under a new time-ordered child id of path and returns the id.
func (s *Store) Push(ctx context.Context, path string, value any) (string, error) {
	id := ulid.Make().String()
	if err := s.Set(ctx, Join(path, id), value); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Remove(ctx context.Context, path string) error {
	return s.Set(ctx, path, nil)
}

// write applies mutate to a copy of the affected top-level node, persists it,
// and only then swaps it in and notifies subscribers.
func (s *Store) write(ctx context.Context, parts []string, mutate func(map[string]any)) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	rootKey := parts[0]
	scratch := map[string]any{}
	if cur, ok := s.root[rootKey]; ok {
		scratch[rootKey] = deepCopy(cur)
	}
	mutate(scratch)
	next, ok := scratch[rootKey]

	if err := s.persist(ctx, rootKey, next, ok); err != nil {
		return err
	}

	if ok {
		s.root[rootKey] = next
	} else {
		delete(s.root, rootKey)
	}
	s.notify(parts)
	return nil
}

func (s *Store) persist(ctx context.Context, rootKey string, value any, present bool) error {
	db := s.db.WithContext(ctx)
	if !present {
		if err := db.Delete(&models.Node{}, "root = ?", rootKey).Error; err != nil {
			return fmt.Errorf("delete node %q: %w", rootKey, err)
		}
		return nil
	}
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode node %q: %w", rootKey, err)
	}
	node := models.Node{Root: rootKey, Body: string(body), UpdatedAt: s.now()}
	if err := db.Save(&node).Error; err != nil {
		return fmt.Errorf("save node %q: %w", rootKey, err)
	}
	return nil
}

// notify must be called with s.mu held.
func (s *Store) notify(written []string) {
	for _, sub := range s.subs {
		if !overlaps(sub.parts, written) {
			continue
		}
		s.deliver(sub)
	}
}

// deliver must be called with s.mu held.
func (s *Store) deliver(sub *Subscription) {
	snap := sub.query.apply(deepCopy(getAt(s.root, sub.parts)))
	if sub.delivered && reflect.DeepEqual(sub.last, snap) {
		return
	}
	sub.last = snap
	sub.delivered = true
	sub.offer(deepCopy(snap))
	glog.V(2).Infof("snapshot pushed to subscription %d on %s", sub.id, sub.path)
}

// Subscribe opens a live subscription on path. The current value is
// delivered immediately, then a new snapshot after every write that changes
// it. The subscription ends on Cancel or when ctx is done.
func (s *Store) Subscribe(ctx context.Context, path string, q Query) (*Subscription, error) {
	parts, err := SplitPath(path)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	s.nextID++
	sub := &Subscription{
		id:    s.nextID,
		store: s,
		path:  path,
		parts: parts,
		query: q,
		ch:    make(chan any, 1),
	}
	s.subs[sub.id] = sub
	s.deliver(sub)
	sub.stop = context.AfterFunc(ctx, sub.Cancel)
	return sub, nil
}

func (s *Store) unsubscribe(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.stop != nil {
		sub.stop()
	}
	if _, ok := s.subs[sub.id]; !ok {
		return
	}
	delete(s.subs, sub.id)
	close(sub.ch)
}

// Close ends every subscription. Further calls fail with ErrClosed.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for id, sub := range s.subs {
		delete(s.subs, id)
		close(sub.ch)
	}
}
