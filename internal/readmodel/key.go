package readmodel

import (
	"fmt"

	"github.com/gdg-garage/campus-portal/internal/snapshot"
	"github.com/gdg-garage/campus-portal/internal/store"
)

// Key identifies one logical subscription: the collection path, an optional
// child filter applied by the store, and an optional parameter only the
// deriver uses. A pending key was built from an input that is not known yet
// (no signed-in user, no event selected) and never opens a subscription.
type Key struct {
	Path    string
	Query   store.Query
	Param   string
	pending bool
}

func (k Key) Pending() bool {
	return k.pending
}

func (k Key) String() string {
	s := k.Path
	if !k.Query.IsZero() {
		s += fmt.Sprintf("?%s=%s", k.Query.OrderByChild, k.Query.EqualTo)
	}
	if k.Param != "" {
		s += "#" + k.Param
	}
	if k.pending {
		s += " (pending)"
	}
	return s
}

func EventsKey() Key {
	return Key{Path: store.Events}
}

func ProjectsKey() Key {
	return Key{Path: store.Projects}
}

// RegisteredEventsKey watches every event and keeps those uid registered for.
func RegisteredEventsKey(uid string) Key {
	return Key{Path: store.Events, Param: uid, pending: uid == ""}
}

// ConductedEventsKey watches the events uploaded by email.
func ConductedEventsKey(email string) Key {
	return Key{
		Path:    store.Events,
		Query:   store.Query{OrderByChild: snapshot.FieldUploaderEmail, EqualTo: email},
		pending: email == "",
	}
}

func RosterKey(eventID string) Key {
	return Key{Path: store.RegistrationsPath(eventID), Param: eventID, pending: eventID == ""}
}

func ProfileKey(uid string) Key {
	return Key{Path: store.UserPath(uid), Param: uid, pending: uid == ""}
}
