package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gdg-garage/campus-portal/internal/database"
	"github.com/go-playground/assert/v2"
	"gorm.io/gorm"
)

func openTestStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	s, err := Open(context.Background(), db)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(s.Close)
	return s, db
}

func next(t *testing.T, sub *Subscription) any {
	t.Helper()
	select {
	case v, ok := <-sub.Snapshots():
		if !ok {
			t.Fatal("subscription closed unexpectedly")
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return nil
}

func TestSetGetPush(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "users/u1", map[string]any{"name": "Asha", "age": ""}); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	v, err := s.Get(ctx, "users/u1/name")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	assert.Equal(t, v, "Asha")

	// Empty strings are values, not absence.
	v, _ = s.Get(ctx, "users/u1/age")
	assert.Equal(t, v, "")

	id1, err := s.Push(ctx, "events/ev1/registrations", map[string]any{"userId": "u1"})
	if err != nil {
		t.Fatalf("Push returned error: %v", err)
	}
	id2, _ := s.Push(ctx, "events/ev1/registrations", map[string]any{"userId": "u1"})
	assert.NotEqual(t, id1, id2)
	if id2 < id1 {
		t.Errorf("expected push ids to be time ordered, got %s before %s", id2, id1)
	}

	regs, _ := s.Get(ctx, "events/ev1/registrations")
	assert.Equal(t, len(regs.(map[string]any)), 2)

	missing, err := s.Get(ctx, "events/nope")
	if err != nil {
		t.Fatalf("Get on missing path returned error: %v", err)
	}
	assert.Equal(t, missing, nil)
}

func TestGetReturnsCopy(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	s.Set(ctx, "projects/p1", map[string]any{"name": "Rover"})

	v, _ := s.Get(ctx, "projects/p1")
	v.(map[string]any)["name"] = "mutated"

	again, _ := s.Get(ctx, "projects/p1/name")
	assert.Equal(t, again, "Rover")
}

func TestUpdateAndRemove(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	s.Set(ctx, "users/u1", map[string]any{"name": "Asha", "profileImage": "x"})

	err := s.Update(ctx, "users/u1", map[string]any{"department": "CSE", "profileImage": nil})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	v, _ := s.Get(ctx, "users/u1")
	m := v.(map[string]any)
	assert.Equal(t, m["department"], "CSE")
	assert.Equal(t, m["name"], "Asha")
	if _, ok := m["profileImage"]; ok {
		t.Error("expected profileImage to be removed")
	}

	if err := s.Remove(ctx, "users/u1"); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	v, _ = s.Get(ctx, "users")
	assert.Equal(t, v, nil)
}

func TestServerTimestamp(t *testing.T) {
	s, _ := openTestStore(t)
	fixed := time.UnixMilli(1_700_000_000_000)
	s.now = func() time.Time { return fixed }

	s.Set(context.Background(), "events/ev1/registrations/r1", map[string]any{
		"userId":    "u1",
		"timestamp": ServerTimestamp,
	})
	v, _ := s.Get(context.Background(), "events/ev1/registrations/r1/timestamp")
	assert.Equal(t, v, float64(1_700_000_000_000))
}

func TestInvalidPath(t *testing.T) {
	s, _ := openTestStore(t)
	for _, p := range []string{"", "/", "events//registrations", "events/a.b", "events/$x"} {
		if err := s.Set(context.Background(), p, "v"); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("path %q: expected ErrInvalidPath, got %v", p, err)
		}
	}
}

func TestPersistenceReload(t *testing.T) {
	s, db := openTestStore(t)
	ctx := context.Background()
	s.Set(ctx, "events/ev1", map[string]any{"eventName": "Hack Day"})
	s.Set(ctx, "projects/p1", map[string]any{"name": "Rover"})
	s.Remove(ctx, "projects/p1")

	reopened, err := Open(ctx, db)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	v, _ := reopened.Get(ctx, "events/ev1/eventName")
	assert.Equal(t, v, "Hack Day")
	v, _ = reopened.Get(ctx, "projects")
	assert.Equal(t, v, nil)
}

func TestSubscribe(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	sub, err := s.Subscribe(ctx, "events", Query{})
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	defer sub.Cancel()

	// Initial snapshot of an empty node is nil.
	assert.Equal(t, next(t, sub), nil)

	s.Set(ctx, "events/ev1", map[string]any{"eventName": "Hack Day"})
	snap := next(t, sub).(map[string]any)
	assert.Equal(t, len(snap), 1)

	// Writes below the subscribed path are pushed too.
	s.Push(ctx, "events/ev1/registrations", map[string]any{"userId": "u1"})
	snap = next(t, sub).(map[string]any)
	ev := snap["ev1"].(map[string]any)
	assert.Equal(t, len(ev["registrations"].(map[string]any)), 1)

	// Unrelated writes are not.
	s.Set(ctx, "projects/p1", map[string]any{"name": "Rover"})
	select {
	case v := <-sub.Snapshots():
		t.Fatalf("unexpected snapshot %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeQuery(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	s.Set(ctx, "events/ev1", map[string]any{"eventName": "A", "uploaderEmail": "csea@gmail.com"})
	s.Set(ctx, "events/ev2", map[string]any{"eventName": "B", "uploaderEmail": "ieee@gmail.com"})

	sub, err := s.Subscribe(ctx, "events", Query{OrderByChild: "uploaderEmail", EqualTo: "csea@gmail.com"})
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	defer sub.Cancel()

	snap := next(t, sub).(map[string]any)
	assert.Equal(t, len(snap), 1)
	if _, ok := snap["ev1"]; !ok {
		t.Error("expected ev1 in filtered snapshot")
	}

	// A write that does not change the filtered view produces no push.
	s.Set(ctx, "events/ev3", map[string]any{"eventName": "C", "uploaderEmail": "ie@gmail.com"})
	select {
	case v := <-sub.Snapshots():
		t.Fatalf("unexpected snapshot %v", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscriptionLatestWins(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	sub, _ := s.Subscribe(ctx, "counter", Query{})
	defer sub.Cancel()

	for i := 1; i <= 5; i++ {
		s.Set(ctx, "counter/value", i)
	}
	snap := next(t, sub).(map[string]any)
	assert.Equal(t, snap["value"], float64(5))
}

func TestCancel(t *testing.T) {
	s, _ := openTestStore(t)

	t.Run("Explicit", func(t *testing.T) {
		sub, _ := s.Subscribe(context.Background(), "events", Query{})
		<-sub.Snapshots()
		sub.Cancel()
		sub.Cancel()
		if _, ok := <-sub.Snapshots(); ok {
			t.Error("expected closed channel after Cancel")
		}
	})

	t.Run("ContextDone", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		sub, _ := s.Subscribe(ctx, "events", Query{})
		<-sub.Snapshots()
		cancel()
		select {
		case _, ok := <-sub.Snapshots():
			if ok {
				t.Error("expected closed channel after context cancel")
			}
		case <-time.After(2 * time.Second):
			t.Fatal("subscription not closed after context cancel")
		}
	})
}
