package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gdg-garage/campus-portal/internal/auth"
	"github.com/gdg-garage/campus-portal/internal/models"
	"github.com/gdg-garage/campus-portal/internal/readmodel"
	"github.com/gdg-garage/campus-portal/internal/views"
	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

// Views a live client can mount.
const (
	LiveEvents           = "events"
	LiveProjects         = "projects"
	LiveRegisteredEvents = "registered-events"
	LiveConductedEvents  = "conducted-events"
	LiveRoster           = "roster"
	LiveProfile          = "profile"
)

// Client operations.
const (
	OpMount   = "mount"
	OpUnmount = "unmount"
	OpFilter  = "filter"
	OpToggle  = "toggle"
)

type LiveSettings struct {
	WriteTimeout time.Duration
	ReadTimeout  time.Duration
	PingTimeout  time.Duration
	SendBuffer   int
}

func DefaultLiveSettings() LiveSettings {
	return LiveSettings{
		WriteTimeout: 10 * time.Second,
		ReadTimeout:  60 * time.Second,
		PingTimeout:  30 * time.Second,
		SendBuffer:   16,
	}
}

type ClientMessage struct {
	Op        string `json:"op"`
	View      string `json:"view,omitempty"`
	EventID   string `json:"event_id,omitempty"`
	Domain    string `json:"domain,omitempty"`
	ProjectID string `json:"project_id,omitempty"`
}

type ServerMessage struct {
	View  string `json:"view,omitempty"`
	Key   string `json:"key,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// ProjectsPage is what the projects view pushes: the facets, the selected
// facet and the cards with this client's expand state applied.
type ProjectsPage struct {
	Domains  []string            `json:"domains"`
	Domain   string              `json:"domain"`
	Projects []views.ProjectCard `json:"projects"`
}

// LiveHandler serves /live: each connection mounts views and receives a new
// rendering whenever the underlying data changes.
type LiveHandler struct {
	src         readmodel.Source
	lookup      views.UserLookup
	reads       *Reads
	authHandler *auth.AuthHandler
	settings    LiveSettings
	upgrader    websocket.Upgrader
}

func NewLiveHandler(src readmodel.Source, lookup views.UserLookup, reads *Reads, authHandler *auth.AuthHandler, settings LiveSettings) *LiveHandler {
	return &LiveHandler{
		src:         src,
		lookup:      lookup,
		reads:       reads,
		authHandler: authHandler,
		settings:    settings,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Resolved once; the session keeps this identity until it ends.
	id, _ := auth.CurrentIdentity(r.Context())

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Infof("[live]upgrade error = %s", err)
		return
	}
	defer ws.Close()

	handleCtx, handleCancel := context.WithCancel(context.Background())
	defer handleCancel()

	s := newLiveSession(handleCtx, h, id)
	defer func() {
		handleCancel()
		s.close()
	}()

	go func() {
		defer handleCancel()
		for {
			select {
			case <-handleCtx.Done():
				return
			case msg := <-s.send:
				ws.SetWriteDeadline(time.Now().Add(h.settings.WriteTimeout))
				if err := ws.WriteJSON(msg); err != nil {
					glog.Infof("[live]-> error = %s", err)
					return
				}
				glog.V(2).Infof("[live]-> %s", msg.View)
			case <-time.After(h.settings.PingTimeout):
				if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.settings.WriteTimeout)); err != nil {
					return
				}
			}
		}
	}()

	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(h.settings.ReadTimeout))
		return nil
	})
	for {
		ws.SetReadDeadline(time.Now().Add(h.settings.ReadTimeout))
		messageType, message, err := ws.ReadMessage()
		if err != nil {
			glog.V(1).Infof("[live]<- error = %s", err)
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		var msg ClientMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			s.fail("", "malformed message")
			continue
		}
		s.handle(msg)
	}
}

// mount is one view a client has on screen.
type mount interface {
	bind(key readmodel.Key) error
	refresh()
	close()
}

type viewMount[T any] struct {
	view   *readmodel.View[T]
	render func(T) any
	push   func(readmodel.Key, any)
	stop   func()
	done   chan struct{}

	// mu orders pushes against rebinds: once bind returns, nothing derived
	// under the previous key reaches the client.
	mu sync.Mutex
}

func newViewMount[T any](ctx context.Context, src readmodel.Source, derive readmodel.Deriver[T], render func(T) any, push func(readmodel.Key, any)) *viewMount[T] {
	m := &viewMount[T]{
		view:   readmodel.NewView(src, derive),
		render: render,
		push:   push,
		done:   make(chan struct{}),
	}
	updates, stop := m.view.Watch()
	m.stop = stop
	go func() {
		defer close(m.done)
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-updates:
				if !ok {
					return
				}
				m.mu.Lock()
				if u.Key == m.view.Key() {
					m.push(u.Key, m.render(u.Value))
				} else {
					glog.V(2).Infof("[live]dropped stale %s", u.Key)
				}
				m.mu.Unlock()
			}
		}
	}()
	return m
}

func (m *viewMount[T]) bind(key readmodel.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.view.Bind(key)
}

func (m *viewMount[T]) refresh() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.view.Current(); ok {
		m.push(m.view.Key(), m.render(v))
	}
}

func (m *viewMount[T]) close() {
	m.stop()
	m.view.Close()
	<-m.done
}

type liveSession struct {
	ctx context.Context
	h   *LiveHandler
	id  *models.Identity

	send chan ServerMessage

	mu       sync.Mutex
	mounts   map[string]mount
	domain   string
	expanded *views.ExpandSet
}

func newLiveSession(ctx context.Context, h *LiveHandler, id *models.Identity) *liveSession {
	return &liveSession{
		ctx:      ctx,
		h:        h,
		id:       id,
		send:     make(chan ServerMessage, h.settings.SendBuffer),
		mounts:   map[string]mount{},
		domain:   views.AllDomains,
		expanded: views.NewExpandSet(),
	}
}

func (s *liveSession) emit(msg ServerMessage) {
	select {
	case s.send <- msg:
	case <-s.ctx.Done():
	}
}

func (s *liveSession) pusher(view string) func(readmodel.Key, any) {
	return func(key readmodel.Key, data any) {
		s.emit(ServerMessage{View: view, Key: key.String(), Data: data})
	}
}

func (s *liveSession) fail(view, message string) {
	s.emit(ServerMessage{View: view, Error: message})
}

func (s *liveSession) uid() string {
	if s.id == nil {
		return ""
	}
	return s.id.UID
}

func (s *liveSession) email() string {
	if s.id == nil {
		return ""
	}
	return s.id.Email
}

func (s *liveSession) projectsPage(pv readmodel.ProjectsView) any {
	s.mu.Lock()
	domain := s.domain
	s.mu.Unlock()
	return ProjectsPage{
		Domains:  pv.Domains,
		Domain:   domain,
		Projects: views.ProjectCards(views.FilterByDomain(pv.Projects, domain), s.expanded.Expanded),
	}
}

// newMount creates the mount for view, or nil if the view is unknown.
func (s *liveSession) newMount(view string) mount {
	src, push := s.h.src, s.pusher(view)
	switch view {
	case LiveEvents, LiveConductedEvents:
		return newViewMount(s.ctx, src, readmodel.DeriveEvents, func(v []models.Event) any { return views.EventCards(v) }, push)
	case LiveProjects:
		return newViewMount(s.ctx, src, readmodel.DeriveProjects, s.projectsPage, push)
	case LiveRegisteredEvents:
		return newViewMount(s.ctx, src, readmodel.DeriveRegisteredEvents, func(v []views.RegisteredEvent) any { return v }, push)
	case LiveRoster:
		return newViewMount(s.ctx, src, readmodel.RosterDeriver(s.h.lookup), func(v []views.RosterEntry) any { return v }, push)
	case LiveProfile:
		return newViewMount(s.ctx, src, readmodel.DeriveProfile, func(v models.User) any { return v }, push)
	}
	return nil
}

func (s *liveSession) keyFor(msg ClientMessage) (readmodel.Key, error) {
	switch msg.View {
	case LiveEvents:
		return readmodel.EventsKey(), nil
	case LiveProjects:
		return readmodel.ProjectsKey(), nil
	case LiveRegisteredEvents:
		return readmodel.RegisteredEventsKey(s.uid()), nil
	case LiveConductedEvents:
		return readmodel.ConductedEventsKey(s.email()), nil
	case LiveProfile:
		return readmodel.ProfileKey(s.uid()), nil
	case LiveRoster:
		if msg.EventID != "" {
			if s.id == nil {
				return readmodel.Key{}, errForbidden
			}
			if _, err := s.h.reads.OwnedEvent(s.ctx, msg.EventID, s.id.Email); err != nil {
				return readmodel.Key{}, errForbidden
			}
		}
		return readmodel.RosterKey(msg.EventID), nil
	}
	return readmodel.Key{}, errUnknownView
}

type liveError string

func (e liveError) Error() string { return string(e) }

const (
	errUnknownView liveError = "unknown view"
	errForbidden   liveError = "not allowed to view this roster"
)

func (s *liveSession) handle(msg ClientMessage) {
	switch msg.Op {
	case OpMount:
		key, err := s.keyFor(msg)
		if err != nil {
			s.fail(msg.View, err.Error())
			return
		}
		s.mu.Lock()
		m, ok := s.mounts[msg.View]
		if !ok {
			m = s.newMount(msg.View)
			s.mounts[msg.View] = m
		}
		s.mu.Unlock()
		// Mounting a mounted view again rebinds it, e.g. a roster for another event.
		if err := m.bind(key); err != nil {
			glog.Warningf("[live]mount %s failed: %v", key, err)
			s.fail(msg.View, "subscribe failed")
		}

	case OpUnmount:
		s.mu.Lock()
		m, ok := s.mounts[msg.View]
		delete(s.mounts, msg.View)
		s.mu.Unlock()
		if ok {
			m.close()
		}

	case OpFilter:
		s.mu.Lock()
		s.domain = msg.Domain
		if s.domain == "" {
			s.domain = views.AllDomains
		}
		s.mu.Unlock()
		s.refresh(LiveProjects)

	case OpToggle:
		if msg.ProjectID == "" {
			s.fail(LiveProjects, "project_id is required")
			return
		}
		s.expanded.Toggle(msg.ProjectID)
		s.refresh(LiveProjects)

	default:
		s.fail(msg.View, "unknown op")
	}
}

func (s *liveSession) refresh(view string) {
	s.mu.Lock()
	m, ok := s.mounts[view]
	s.mu.Unlock()
	if ok {
		m.refresh()
	}
}

func (s *liveSession) close() {
	s.mu.Lock()
	mounts := s.mounts
	s.mounts = map[string]mount{}
	s.mu.Unlock()
	for _, m := range mounts {
		m.close()
	}
}
