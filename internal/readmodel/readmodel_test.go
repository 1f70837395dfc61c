package readmodel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gdg-garage/campus-portal/internal/database"
	"github.com/gdg-garage/campus-portal/internal/models"
	"github.com/gdg-garage/campus-portal/internal/store"
	"github.com/gdg-garage/campus-portal/internal/views"
	"github.com/go-playground/assert/v2"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	s, err := store.Open(context.Background(), db)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func waitCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func recv[T any](t *testing.T, ch <-chan Update[T]) T {
	t.Helper()
	return recvUpdate(t, ch).Value
}

func recvUpdate[T any](t *testing.T, ch <-chan Update[T]) Update[T] {
	t.Helper()
	select {
	case u := <-ch:
		return u
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
	}
	return Update[T]{}
}

func TestViewLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	v := NewView[[]models.Event](s, DeriveEvents)
	defer v.Close()

	assert.Equal(t, v.State(), Unsubscribed)
	if _, err := v.Wait(waitCtx(t)); !errors.Is(err, ErrUnbound) {
		t.Fatalf("expected ErrUnbound before Bind, got %v", err)
	}

	if err := v.Bind(EventsKey()); err != nil {
		t.Fatalf("Bind returned error: %v", err)
	}
	events, err := v.Wait(waitCtx(t))
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	assert.Equal(t, len(events), 0)
	assert.Equal(t, v.State(), Live)

	updates, stop := v.Watch()
	defer stop()
	assert.Equal(t, len(recv(t, updates)), 0)

	s.Set(ctx, "events/ev1", map[string]any{"eventName": "Hack Day"})
	got := recv(t, updates)
	assert.Equal(t, len(got), 1)
	assert.Equal(t, got[0].Name, "Hack Day")

	v.Unbind()
	assert.Equal(t, v.State(), Unsubscribed)
	if _, ok := v.Current(); ok {
		t.Error("expected no current value after Unbind")
	}
}

func TestPendingKeyNeverSubscribes(t *testing.T) {
	s := openTestStore(t)
	v := NewView[[]views.RegisteredEvent](s, DeriveRegisteredEvents)
	defer v.Close()

	if err := v.Bind(RegisteredEventsKey("")); err != nil {
		t.Fatalf("Bind returned error: %v", err)
	}
	assert.Equal(t, v.State(), Unsubscribed)

	// Binding a pending key tears down a live subscription too.
	v.Bind(RegisteredEventsKey("u1"))
	if _, err := v.Wait(waitCtx(t)); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	v.Bind(RosterKey(""))
	assert.Equal(t, v.State(), Unsubscribed)
}

func TestRegisteredEventsView(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	s.Set(ctx, "events/ev1", map[string]any{"eventName": "Hack Day", "venue": "Hall A"})
	s.Set(ctx, "events/ev2", map[string]any{"eventName": "Quiz"})

	v := NewView[[]views.RegisteredEvent](s, DeriveRegisteredEvents)
	defer v.Close()
	v.Bind(RegisteredEventsKey("u1"))

	updates, stop := v.Watch()
	defer stop()
	assert.Equal(t, len(recv(t, updates)), 0)

	s.Push(ctx, store.RegistrationsPath("ev1"), map[string]any{"userId": "u1"})
	got := recv(t, updates)
	assert.Equal(t, len(got), 1)
	assert.Equal(t, got[0].EventID, "ev1")
	assert.Equal(t, got[0].Date, views.NotAvailable)
}

type tagged struct {
	key   Key
	count int
}

// Rebinding while the old binding is still deriving must never publish the
// old binding's value.
func TestRebindDropsStaleSnapshot(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	s.Set(ctx, "events/ev1", map[string]any{"uploaderEmail": "old@gmail.com"})
	s.Set(ctx, "events/ev2", map[string]any{"uploaderEmail": "new@gmail.com"})

	oldKey := ConductedEventsKey("old@gmail.com")
	newKey := ConductedEventsKey("new@gmail.com")

	entered := make(chan struct{})
	gate := make(chan struct{})
	derive := func(ctx context.Context, key Key, raw any) tagged {
		if key == oldKey {
			close(entered)
			select {
			case <-gate:
			case <-ctx.Done():
			}
		}
		return tagged{key: key, count: len(DeriveEvents(ctx, key, raw))}
	}

	v := NewView[tagged](s, derive)
	defer v.Close()
	v.Bind(oldKey)
	<-entered

	if err := v.Bind(newKey); err != nil {
		t.Fatalf("Bind returned error: %v", err)
	}
	close(gate)

	got, err := v.Wait(waitCtx(t))
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	assert.Equal(t, got.key, newKey)
	assert.Equal(t, got.count, 1)
	assert.Equal(t, v.Key(), newKey)

	// Writes matching only the old filter do not reach the view.
	updates, stop := v.Watch()
	defer stop()
	recv(t, updates)
	s.Set(ctx, "events/ev3", map[string]any{"uploaderEmail": "old@gmail.com"})
	s.Set(ctx, "events/ev4", map[string]any{"uploaderEmail": "new@gmail.com"})
	got = recv(t, updates)
	assert.Equal(t, got.key, newKey)
	assert.Equal(t, got.count, 2)
}

// A value published under the old key but not yet read by a watcher is
// dropped by the rebind.
func TestRebindDropsUnreadWatcherValue(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	s.Push(ctx, store.RegistrationsPath("ev1"), map[string]any{"userId": "u1"})
	s.Push(ctx, store.RegistrationsPath("ev2"), map[string]any{"userId": "u2"})
	s.Push(ctx, store.RegistrationsPath("ev2"), map[string]any{"userId": "u3"})

	v := NewView[[]views.RosterEntry](s, RosterDeriver(StoreLookup{Getter: s}))
	defer v.Close()
	updates, stop := v.Watch()
	defer stop()

	v.Bind(RosterKey("ev1"))
	first, err := v.Wait(waitCtx(t))
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	assert.Equal(t, len(first), 1)

	if err := v.Bind(RosterKey("ev2")); err != nil {
		t.Fatalf("Bind returned error: %v", err)
	}
	u := recvUpdate(t, updates)
	assert.Equal(t, u.Key, RosterKey("ev2"))
	assert.Equal(t, len(u.Value), 2)
	assert.Equal(t, u.Value[0].UserID, "u2")
}

func TestRebindSameKeyIsNoop(t *testing.T) {
	s := openTestStore(t)
	calls := 0
	v := NewView[int](s, func(ctx context.Context, key Key, raw any) int {
		calls++
		return calls
	})
	defer v.Close()

	v.Bind(ProjectsKey())
	first, _ := v.Wait(waitCtx(t))
	v.Bind(ProjectsKey())
	again, _ := v.Wait(waitCtx(t))
	assert.Equal(t, first, again)
}

func TestCache(t *testing.T) {
	s := openTestStore(t)
	c := NewCache[ProjectsView](s, DeriveProjects)

	v1, release1, err := c.Acquire(ProjectsKey())
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	v2, release2, _ := c.Acquire(ProjectsKey())
	if v1 != v2 {
		t.Error("expected the same view for the same key")
	}
	assert.Equal(t, c.Len(), 1)

	s.Set(context.Background(), "projects/p1", map[string]any{"name": "Rover", "domain": "Robotics"})
	updates, stop := v1.Watch()
	var got ProjectsView
	for len(got.Projects) == 0 {
		got = recv(t, updates)
	}
	stop()
	assert.Equal(t, got.Domains, []string{"All", "Robotics"})

	release1()
	release1()
	assert.Equal(t, c.Len(), 1)
	release2()
	assert.Equal(t, c.Len(), 0)
	assert.Equal(t, v1.State(), Unsubscribed)

	pending, releasePending, _ := c.Acquire(RosterKey(""))
	assert.Equal(t, pending.State(), Unsubscribed)
	assert.Equal(t, c.Len(), 0)
	releasePending()
}

func TestRosterView(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	s.Set(ctx, "users/u1", map[string]any{"name": "Asha", "registrationNumber": "21BCE1001"})
	s.Set(ctx, "events/ev1", map[string]any{"eventName": "Hack Day"})
	s.Push(ctx, store.RegistrationsPath("ev1"), map[string]any{"userId": "u1", "userEmail": "asha@example.com"})

	v := NewView[[]views.RosterEntry](s, RosterDeriver(StoreLookup{Getter: s}))
	defer v.Close()
	v.Bind(RosterKey("ev1"))

	updates, stop := v.Watch()
	defer stop()
	roster := recv(t, updates)
	assert.Equal(t, len(roster), 1)
	assert.Equal(t, roster[0].UserName, "Asha")
	assert.Equal(t, roster[0].RegistrationNumber, "21BCE1001")

	s.Push(ctx, store.RegistrationsPath("ev1"), map[string]any{"userId": "ghost"})
	roster = recv(t, updates)
	assert.Equal(t, len(roster), 2)
	assert.Equal(t, roster[1].UserName, views.Anonymous)
}

func TestProfileView(t *testing.T) {
	s := openTestStore(t)
	v := NewView[models.User](s, DeriveProfile)
	defer v.Close()
	v.Bind(ProfileKey("u1"))

	updates, stop := v.Watch()
	defer stop()
	assert.Equal(t, recv(t, updates).ID, "u1")

	s.Update(context.Background(), store.UserPath("u1"), map[string]any{"department": "CSE"})
	assert.Equal(t, recv(t, updates).Department, "CSE")
}
