package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"

	"github.com/gdg-garage/campus-portal/internal/auth"
	"github.com/gdg-garage/campus-portal/internal/config"
	"github.com/gdg-garage/campus-portal/internal/coordinator"
	"github.com/gdg-garage/campus-portal/internal/database"
	"github.com/gdg-garage/campus-portal/internal/handlers"
	"github.com/gdg-garage/campus-portal/internal/notifier"
	"github.com/gdg-garage/campus-portal/internal/objectstore"
	"github.com/gdg-garage/campus-portal/internal/readmodel"
	"github.com/gdg-garage/campus-portal/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/golang/glog"
)

func main() {
	flag.Parse()
	defer glog.Flush()

	// Load Configuration
	cfg := config.LoadConfig()

	// Connect to Database
	db := database.Connect(cfg)

	docs, err := store.Open(context.Background(), db)
	if err != nil {
		glog.Fatalf("Failed to open document store: %v", err)
	}
	defer docs.Close()

	objects := objectstore.NewOnDisk(cfg.StoragePath, cfg.PublicURL)

	var n notifier.Notifier
	if discordNotifier, err := notifier.NewDiscordNotifier(cfg); err != nil {
		glog.Warningf("Discord notifier not initialized: %v", err)
	} else {
		n = discordNotifier
	}

	// Initialize Handlers
	authHandler := auth.NewAuthHandler(cfg, db, docs)
	coord := coordinator.New(docs, objects, cfg, n)
	lookup := readmodel.StoreLookup{Getter: docs}

	reads, err := handlers.NewReads(docs, lookup)
	if err != nil {
		glog.Fatalf("Failed to subscribe read models: %v", err)
	}
	defer reads.Close()

	// Initialize Router
	r := chi.NewRouter()

	// Register Routes
	handlers.RegisterRoutes(r, cfg, handlers.Handlers{
		Auth:     authHandler,
		Events:   handlers.NewEventHandler(coord, reads, authHandler),
		Projects: handlers.NewProjectHandler(coord, reads, authHandler),
		Profile:  handlers.NewProfileHandler(coord, reads, authHandler),
		Live:     handlers.NewLiveHandler(docs, lookup, reads, authHandler, handlers.DefaultLiveSettings()),
		Files:    objects,
	})

	// Start Server
	glog.Infof("Starting server on port %s", cfg.Port)
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.Port), r); err != nil {
		glog.Fatalf("Failed to start server: %v", err)
	}
}
