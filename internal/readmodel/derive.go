package readmodel

import (
	"context"

	"github.com/gdg-garage/campus-portal/internal/models"
	"github.com/gdg-garage/campus-portal/internal/snapshot"
	"github.com/gdg-garage/campus-portal/internal/store"
	"github.com/gdg-garage/campus-portal/internal/views"
)

type ProjectsView struct {
	Projects []models.Project `json:"projects"`
	Domains  []string         `json:"domains"`
}

func DeriveEvents(_ context.Context, _ Key, raw any) []models.Event {
	return snapshot.Events(raw)
}

func DeriveProjects(_ context.Context, _ Key, raw any) ProjectsView {
	projects := snapshot.Projects(raw)
	return ProjectsView{Projects: projects, Domains: views.Domains(projects)}
}

// DeriveRegisteredEvents expects a RegisteredEventsKey.
func DeriveRegisteredEvents(_ context.Context, key Key, raw any) []views.RegisteredEvent {
	return views.RegisteredEventsFor(snapshot.Events(raw), key.Param)
}

// DeriveProfile expects a ProfileKey.
func DeriveProfile(_ context.Context, key Key, raw any) models.User {
	return snapshot.User(key.Param, raw)
}

// RosterDeriver enriches the registrations under a RosterKey with point
// lookups; the roster is published only after every lookup has finished.
func RosterDeriver(lookup views.UserLookup) Deriver[[]views.RosterEntry] {
	return func(ctx context.Context, _ Key, raw any) []views.RosterEntry {
		return views.EnrichRoster(ctx, snapshot.Registrations(raw), lookup)
	}
}

// Getter is a one-shot read; *store.Store implements it.
type Getter interface {
	Get(ctx context.Context, path string) (any, error)
}

// StoreLookup resolves users with one-shot reads of users/{uid}.
type StoreLookup struct {
	Getter Getter
}

func (l StoreLookup) LookupUser(ctx context.Context, uid string) (models.User, bool, error) {
	raw, err := l.Getter.Get(ctx, store.UserPath(uid))
	if err != nil {
		return models.User{}, false, err
	}
	if raw == nil {
		return models.User{}, false, nil
	}
	return snapshot.User(uid, raw), true, nil
}
