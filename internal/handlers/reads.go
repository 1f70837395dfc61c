package handlers

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/campus-portal/internal/models"
	"github.com/gdg-garage/campus-portal/internal/readmodel"
	"github.com/gdg-garage/campus-portal/internal/snapshot"
	"github.com/gdg-garage/campus-portal/internal/store"
	"github.com/gdg-garage/campus-portal/internal/views"
	"github.com/golang/glog"
)

// Documents is the store as Reads uses it; *store.Store implements it.
type Documents interface {
	readmodel.Source
	readmodel.Getter
}

// Reads holds the shared read-model caches the HTTP operations read from.
// The public collections stay subscribed for the life of the server.
type Reads struct {
	docs   Documents
	lookup views.UserLookup

	events     *readmodel.Cache[[]models.Event]
	projects   *readmodel.Cache[readmodel.ProjectsView]
	registered *readmodel.Cache[[]views.RegisteredEvent]
	rosters    *readmodel.Cache[[]views.RosterEntry]
	profiles   *readmodel.Cache[models.User]

	pins []func()
}

func NewReads(docs Documents, lookup views.UserLookup) (*Reads, error) {
	r := &Reads{
		docs:       docs,
		lookup:     lookup,
		events:     readmodel.NewCache(docs, readmodel.DeriveEvents),
		projects:   readmodel.NewCache(docs, readmodel.DeriveProjects),
		registered: readmodel.NewCache(docs, readmodel.DeriveRegisteredEvents),
		rosters:    readmodel.NewCache(docs, readmodel.RosterDeriver(lookup)),
		profiles:   readmodel.NewCache(docs, readmodel.DeriveProfile),
	}

	_, releaseEvents, err := r.events.Acquire(readmodel.EventsKey())
	if err != nil {
		return nil, err
	}
	r.pins = append(r.pins, releaseEvents)

	_, releaseProjects, err := r.projects.Acquire(readmodel.ProjectsKey())
	if err != nil {
		r.Close()
		return nil, err
	}
	r.pins = append(r.pins, releaseProjects)
	return r, nil
}

// Close releases the pinned views.
func (r *Reads) Close() {
	for _, release := range r.pins {
		release()
	}
	r.pins = nil
}

// read returns the value of the shared view for key, subscribing it for the
// duration of the call if nobody else holds it.
func read[T any](ctx context.Context, c *readmodel.Cache[T], key readmodel.Key) (T, error) {
	var zero T
	v, release, err := c.Acquire(key)
	if err != nil {
		glog.Errorf("subscribing %s failed: %v", key, err)
		return zero, huma.Error502BadGateway("Failed to read " + key.Path)
	}
	defer release()

	value, err := v.Wait(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, huma.Error503ServiceUnavailable("Read timed out")
		}
		return zero, huma.Error502BadGateway("Failed to read " + key.Path)
	}
	return value, nil
}

func (r *Reads) Events(ctx context.Context) ([]models.Event, error) {
	return read(ctx, r.events, readmodel.EventsKey())
}

func (r *Reads) ConductedEvents(ctx context.Context, email string) ([]models.Event, error) {
	return read(ctx, r.events, readmodel.ConductedEventsKey(email))
}

func (r *Reads) Projects(ctx context.Context) (readmodel.ProjectsView, error) {
	return read(ctx, r.projects, readmodel.ProjectsKey())
}

func (r *Reads) RegisteredEvents(ctx context.Context, uid string) ([]views.RegisteredEvent, error) {
	return read(ctx, r.registered, readmodel.RegisteredEventsKey(uid))
}

func (r *Reads) Roster(ctx context.Context, eventID string) ([]views.RosterEntry, error) {
	return read(ctx, r.rosters, readmodel.RosterKey(eventID))
}

func (r *Reads) Profile(ctx context.Context, uid string) (models.User, error) {
	return read(ctx, r.profiles, readmodel.ProfileKey(uid))
}

// Event returns one event. An event the shared view has not caught up with
// yet is read from the store directly.
func (r *Reads) Event(ctx context.Context, eventID string) (models.Event, error) {
	events, err := r.Events(ctx)
	if err != nil {
		return models.Event{}, err
	}
	if ev, ok := views.FindEvent(events, eventID); ok {
		return ev, nil
	}
	if parts, err := store.SplitPath(eventID); err != nil || len(parts) != 1 {
		return models.Event{}, huma.Error404NotFound("Event not found")
	}
	raw, err := r.docs.Get(ctx, store.EventPath(eventID))
	if err != nil {
		glog.Errorf("reading event %s failed: %v", eventID, err)
		return models.Event{}, huma.Error502BadGateway("Failed to read event")
	}
	if raw == nil {
		return models.Event{}, huma.Error404NotFound("Event not found")
	}
	return snapshot.Event(eventID, raw), nil
}

// OwnedEvent returns the event if email uploaded it.
func (r *Reads) OwnedEvent(ctx context.Context, eventID, email string) (models.Event, error) {
	ev, err := r.Event(ctx, eventID)
	if err != nil {
		return models.Event{}, err
	}
	if ev.UploaderEmail != email {
		return models.Event{}, huma.Error403Forbidden("Only the uploader can see registrations")
	}
	return ev, nil
}
