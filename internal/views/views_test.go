package views

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gdg-garage/campus-portal/internal/models"
	"github.com/go-playground/assert/v2"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = "w"
	}
	return strings.Join(w, " ")
}

func TestDomains(t *testing.T) {
	projects := []models.Project{
		{ID: "p1", Domain: "AI"},
		{ID: "p2", Domain: "Web"},
		{ID: "p3", Domain: "AI"},
		{ID: "p4", Domain: ""},
		{ID: "p5", Domain: "IoT"},
	}
	first := Domains(projects)
	assert.Equal(t, first, []string{"All", "AI", "Web", "IoT"})

	// Recomputing over the same collection is stable.
	assert.Equal(t, Domains(projects), first)

	assert.Equal(t, Domains(nil), []string{"All"})
}

func TestFilterByDomain(t *testing.T) {
	projects := []models.Project{{ID: "p1", Domain: "AI"}, {ID: "p2", Domain: "Web"}}
	assert.Equal(t, len(FilterByDomain(projects, AllDomains)), 2)
	assert.Equal(t, len(FilterByDomain(projects, "")), 2)
	got := FilterByDomain(projects, "Web")
	assert.Equal(t, len(got), 1)
	assert.Equal(t, got[0].ID, "p2")
	assert.Equal(t, len(FilterByDomain(projects, "Bio")), 0)
}

func TestRegisteredEventsFor(t *testing.T) {
	events := []models.Event{
		{ID: "ev1", Name: "Hack Day", Venue: "Hall A", Registrations: []models.Registration{{ID: "r1", UserID: "u1"}}},
		{ID: "ev2", Name: "Quiz", Registrations: []models.Registration{{ID: "r2", UserID: "u2"}}},
		{ID: "ev3", Name: "Talk"},
		{ID: "ev4", Name: "Dup", Registrations: []models.Registration{{ID: "r3", UserID: "u1"}, {ID: "r4", UserID: "u1"}}},
	}

	got := RegisteredEventsFor(events, "u1")
	assert.Equal(t, len(got), 2)
	assert.Equal(t, got[0].EventID, "ev1")
	assert.Equal(t, got[0].Venue, "Hall A")
	assert.Equal(t, got[0].Association, NotAvailable)
	assert.Equal(t, got[0].Date, NotAvailable)
	// Registering twice still lists the event once.
	assert.Equal(t, got[1].EventID, "ev4")

	assert.Equal(t, len(RegisteredEventsFor(events, "u3")), 0)
	assert.Equal(t, len(RegisteredEventsFor(events, "")), 0)
}

func TestPreview(t *testing.T) {
	t.Run("Long", func(t *testing.T) {
		got, truncated := Preview(words(45))
		assert.Equal(t, truncated, true)
		assert.Equal(t, got, words(30)+Ellipsis)
		assert.Equal(t, len(strings.Fields(strings.TrimSuffix(got, Ellipsis))), 30)
	})
	t.Run("Short", func(t *testing.T) {
		in := words(20)
		got, truncated := Preview(in)
		assert.Equal(t, truncated, false)
		assert.Equal(t, got, in)
	})
	t.Run("ExactlyThirty", func(t *testing.T) {
		in := "  " + words(30) + "\n"
		got, truncated := Preview(in)
		assert.Equal(t, truncated, false)
		assert.Equal(t, got, in)
	})
	t.Run("Empty", func(t *testing.T) {
		got, truncated := Preview("")
		assert.Equal(t, truncated, false)
		assert.Equal(t, got, "")
	})
}

func TestDisplayDate(t *testing.T) {
	assert.Equal(t, DisplayDate("2024-09-15"), "15/09/2024")
	assert.Equal(t, DisplayDate("tomorrow"), "tomorrow")
	assert.Equal(t, DisplayDate(""), "")
}

func TestEventCards(t *testing.T) {
	events := []models.Event{
		{ID: "ev1", Name: "Hack Day", Date: "2024-03-09", Registrations: []models.Registration{{UserID: "u1"}, {UserID: "u1"}}},
		{ID: "ev2", Name: "Quiz"},
	}
	cards := EventCards(events)
	assert.Equal(t, len(cards), 2)
	assert.Equal(t, cards[0].DisplayDate, "09/03/2024")
	assert.Equal(t, cards[0].RegistrationCount, 2)
	assert.Equal(t, cards[1].RegistrationCount, 0)

	ev, ok := FindEvent(events, "ev2")
	assert.Equal(t, ok, true)
	assert.Equal(t, ev.Name, "Quiz")
	_, ok = FindEvent(events, "ev3")
	assert.Equal(t, ok, false)
}

func TestProjectCards(t *testing.T) {
	projects := []models.Project{
		{ID: "p1", Name: "Rover", Description: words(40), Domain: "Robotics", Images: []string{"a", "b"}, Members: []string{"Asha"}},
		{ID: "p2", Name: "Site", Description: words(40), Domain: "Web", Images: []string{}},
	}
	expanded := NewExpandSet("p2")

	cards := ProjectCards(projects, expanded.Expanded)
	assert.Equal(t, cards[0].Expanded, false)
	assert.Equal(t, cards[0].Truncated, true)
	assert.Equal(t, cards[0].CoverImage, "a")
	assert.Equal(t, cards[0].Domain, "")
	assert.Equal(t, cards[1].Expanded, true)
	assert.Equal(t, cards[1].Description, words(40))
	assert.Equal(t, cards[1].Domain, "Web")

	assert.Equal(t, expanded.Toggle("p1"), true)
	assert.Equal(t, expanded.Toggle("p2"), false)
	cards = ProjectCards(projects, expanded.Expanded)
	assert.Equal(t, cards[0].Expanded, true)
	assert.Equal(t, cards[0].Members, []string{"Asha"})
	assert.Equal(t, cards[1].Expanded, false)
}

type fakeLookup struct {
	users map[string]models.User
	fail  map[string]bool
	calls atomic.Int32
}

func (f *fakeLookup) LookupUser(ctx context.Context, uid string) (models.User, bool, error) {
	f.calls.Add(1)
	if f.fail[uid] {
		return models.User{}, false, errors.New("network down")
	}
	u, ok := f.users[uid]
	return u, ok, nil
}

func TestEnrichRoster(t *testing.T) {
	lookup := &fakeLookup{
		users: map[string]models.User{
			"u1": {ID: "u1", Name: "Asha", RegistrationNumber: "21BCE1001"},
			"u2": {ID: "u2", Name: "Bala"},
		},
		fail: map[string]bool{"u4": true},
	}
	regs := []models.Registration{
		{ID: "r1", UserID: "u1", UserEmail: "asha@example.com", Timestamp: 1},
		{ID: "r2", UserID: "u2", Timestamp: 2},
		{ID: "r3", UserID: "u3", Timestamp: 3},
		{ID: "r4", UserID: "u4", Timestamp: 4},
		{ID: "r5", UserID: "", Timestamp: 5},
	}

	roster := EnrichRoster(context.Background(), regs, lookup)
	if len(roster) != 5 {
		t.Fatalf("expected 5 roster entries, got %d", len(roster))
	}

	assert.Equal(t, roster[0].UserName, "Asha")
	assert.Equal(t, roster[0].RegistrationNumber, "21BCE1001")
	assert.Equal(t, roster[0].UserEmail, "asha@example.com")
	assert.Equal(t, roster[1].UserName, "Bala")
	assert.Equal(t, roster[1].RegistrationNumber, NotAvailable)
	assert.Equal(t, roster[2].UserName, Anonymous)
	// A failed lookup degrades only its own entry.
	assert.Equal(t, roster[3].UserName, Anonymous)
	assert.Equal(t, roster[3].RegistrationNumber, NotAvailable)
	assert.Equal(t, roster[4].UserName, Anonymous)

	// Order follows the registrations regardless of lookup completion order.
	for i, e := range roster {
		assert.Equal(t, e.Timestamp, int64(i+1))
	}
	assert.Equal(t, lookup.calls.Load(), int32(4))
}
