package handlers

import (
	"context"

	"github.com/gdg-garage/campus-portal/internal/auth"
	"github.com/gdg-garage/campus-portal/internal/coordinator"
	"github.com/gdg-garage/campus-portal/internal/views"
	"golang.org/x/sync/errgroup"
)

type EventHandler struct {
	coord       *coordinator.Coordinator
	reads       *Reads
	authHandler *auth.AuthHandler
}

func NewEventHandler(coord *coordinator.Coordinator, reads *Reads, authHandler *auth.AuthHandler) *EventHandler {
	return &EventHandler{coord: coord, reads: reads, authHandler: authHandler}
}

type ImageUpload struct {
	Name string `json:"name,omitempty" doc:"Original file name"`
	Data []byte `json:"data" doc:"Base64 encoded file contents"`
}

func (u *ImageUpload) asset() *coordinator.Asset {
	if u == nil || len(u.Data) == 0 {
		return nil
	}
	return &coordinator.Asset{Name: u.Name, Data: u.Data}
}

type ListEventsResponse struct {
	Body struct {
		Events []views.EventCard `json:"events"`
	}
}

type EventRequest struct {
	ID string `path:"id" doc:"Event id"`
}

type EventResponse struct {
	Body views.EventCard
}

type CreateEventRequest struct {
	auth.AuthInput
	Body struct {
		Name        string       `json:"name" doc:"Event name"`
		Association string       `json:"association" doc:"Organising association"`
		Department  string       `json:"department"`
		Venue       string       `json:"venue"`
		Date        string       `json:"date" doc:"YYYY-MM-DD" example:"2024-03-09"`
		Time        string       `json:"time" example:"10:00"`
		Description string       `json:"description"`
		Guideline   string       `json:"guideline,omitempty"`
		Image       *ImageUpload `json:"image,omitempty" doc:"Event poster"`
	}
}

type ResultResponse struct {
	Body coordinator.Result
}

type RegisterRequest struct {
	auth.AuthInput
	ID string `path:"id" doc:"Event id"`
}

type RosterRequest struct {
	auth.AuthInput
	ID string `path:"id" doc:"Event id"`
}

type RosterResponse struct {
	Body struct {
		Event         views.EventCard     `json:"event"`
		Registrations []views.RosterEntry `json:"registrations"`
	}
}

type RegisteredEventsResponse struct {
	Body struct {
		Events []views.RegisteredEvent `json:"events"`
	}
}

type ConductedEvent struct {
	views.EventCard
	Registrations []views.RosterEntry `json:"registrations"`
}

type ConductedEventsResponse struct {
	Body struct {
		Events []ConductedEvent `json:"events"`
	}
}

func (h *EventHandler) HandleListEvents(ctx context.Context, _ *struct{}) (*ListEventsResponse, error) {
	events, err := h.reads.Events(ctx)
	if err != nil {
		return nil, err
	}
	res := &ListEventsResponse{}
	res.Body.Events = views.EventCards(events)
	return res, nil
}

func (h *EventHandler) HandleGetEvent(ctx context.Context, input *EventRequest) (*EventResponse, error) {
	ev, err := h.reads.Event(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &EventResponse{Body: views.NewEventCard(ev)}, nil
}

func (h *EventHandler) HandleCreateEvent(ctx context.Context, input *CreateEventRequest) (*ResultResponse, error) {
	id := identify(ctx, h.authHandler, input.Cookie)
	in := coordinator.EventInput{
		Name:        input.Body.Name,
		Association: input.Body.Association,
		Department:  input.Body.Department,
		Venue:       input.Body.Venue,
		Date:        input.Body.Date,
		Time:        input.Body.Time,
		Description: input.Body.Description,
		Guideline:   input.Body.Guideline,
	}
	res, err := h.coord.CreateEvent(ctx, id, in, input.Body.Image.asset())
	if err != nil {
		return nil, pipelineError(err)
	}
	return &ResultResponse{Body: res}, nil
}

func (h *EventHandler) HandleRegister(ctx context.Context, input *RegisterRequest) (*ResultResponse, error) {
	id := identify(ctx, h.authHandler, input.Cookie)
	res, err := h.coord.Register(ctx, id, input.ID)
	if err != nil {
		return nil, pipelineError(err)
	}
	return &ResultResponse{Body: res}, nil
}

func (h *EventHandler) HandleRoster(ctx context.Context, input *RosterRequest) (*RosterResponse, error) {
	id, err := h.authHandler.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}
	ev, err := h.reads.OwnedEvent(ctx, input.ID, id.Email)
	if err != nil {
		return nil, err
	}
	roster, err := h.reads.Roster(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	res := &RosterResponse{}
	res.Body.Event = views.NewEventCard(ev)
	res.Body.Registrations = roster
	return res, nil
}

func (h *EventHandler) HandleRegisteredEvents(ctx context.Context, input *auth.AuthInput) (*RegisteredEventsResponse, error) {
	id, err := h.authHandler.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}
	events, err := h.reads.RegisteredEvents(ctx, id.UID)
	if err != nil {
		return nil, err
	}
	res := &RegisteredEventsResponse{}
	res.Body.Events = events
	return res, nil
}

// HandleConductedEvents lists the caller's own events, each with its roster.
func (h *EventHandler) HandleConductedEvents(ctx context.Context, input *auth.AuthInput) (*ConductedEventsResponse, error) {
	id, err := h.authHandler.Authorize(ctx, input.Cookie)
	if err != nil {
		return nil, err
	}
	events, err := h.reads.ConductedEvents(ctx, id.Email)
	if err != nil {
		return nil, err
	}

	out := make([]ConductedEvent, len(events))
	g, gctx := errgroup.WithContext(ctx)
	for i, ev := range events {
		out[i].EventCard = views.NewEventCard(ev)
		g.Go(func() error {
			roster, err := h.reads.Roster(gctx, ev.ID)
			if err != nil {
				return err
			}
			out[i].Registrations = roster
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &ConductedEventsResponse{}
	res.Body.Events = out
	return res, nil
}
