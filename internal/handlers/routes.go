package handlers

import (
	"net/http"
	"net/url"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/gdg-garage/campus-portal/internal/auth"
	"github.com/gdg-garage/campus-portal/internal/config"
	"github.com/gdg-garage/campus-portal/internal/objectstore"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Auth     *auth.AuthHandler
	Events   *EventHandler
	Projects *ProjectHandler
	Profile  *ProfileHandler
	Live     *LiveHandler
	Files    *objectstore.Store
}

func secured(o *huma.Operation) {
	o.Security = []map[string][]string{{"cookieAuth": {}}}
}

func created(o *huma.Operation) {
	o.DefaultStatus = http.StatusCreated
	secured(o)
}

func RegisterRoutes(r *chi.Mux, cfg *config.Config, h Handlers) huma.API {
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if cfg.EnableCORS {
		r.Use(corsMiddleware(cfg.FrontendURL))
	}
	r.Use(h.Auth.AuthMiddleware)

	// Initialize Huma API
	humaConfig := huma.DefaultConfig("Campus Portal API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"cookieAuth": {
			Type: "apiKey",
			In:   "cookie",
			Name: auth.CookieName,
		},
	}
	api := humachi.New(r, humaConfig)

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Handle(objectstore.URLPrefix+"*", http.StripPrefix(objectstore.URLPrefix, h.Files.Handler()))
	r.Handle("/live", h.Live)

	// Auth routes
	r.Get("/auth/discord/login", h.Auth.HandleDiscordLogin)
	r.Get("/auth/discord/callback", h.Auth.HandleDiscordCallback)
	huma.Post(api, "/auth/signup", h.Auth.HandleSignUp)
	huma.Post(api, "/auth/login", h.Auth.HandleLogin)
	huma.Post(api, "/auth/logout", h.Auth.HandleLogout)

	huma.Get(api, "/events", h.Events.HandleListEvents)
	huma.Get(api, "/events/{id}", h.Events.HandleGetEvent)
	huma.Get(api, "/projects", h.Projects.HandleListProjects)

	// Protected routes
	huma.Get(api, "/me", h.Auth.HandleMe, secured)
	huma.Get(api, "/me/registered-events", h.Events.HandleRegisteredEvents, secured)
	huma.Get(api, "/me/conducted-events", h.Events.HandleConductedEvents, secured)
	huma.Get(api, "/profile", h.Profile.HandleGetProfile, secured)
	huma.Put(api, "/profile", h.Profile.HandleUpdateProfile, secured)
	huma.Put(api, "/profile/image", h.Profile.HandleChangeImage, secured)
	huma.Delete(api, "/profile/image", h.Profile.HandleRemoveImage, secured)
	huma.Post(api, "/events", h.Events.HandleCreateEvent, created)
	huma.Post(api, "/events/{id}/register", h.Events.HandleRegister, created)
	huma.Get(api, "/events/{id}/registrations", h.Events.HandleRoster, secured)
	huma.Post(api, "/projects", h.Projects.HandleCreateProject, created)

	return api
}

// corsMiddleware lets the frontend origin call the API with its session cookie.
func corsMiddleware(frontendURL string) func(http.Handler) http.Handler {
	origin := ""
	if u, err := url.Parse(frontendURL); err == nil && u.Scheme != "" {
		origin = u.Scheme + "://" + u.Host
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if origin != "" && r.Header.Get("Origin") == origin {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
				w.Header().Add("Vary", "Origin")
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
