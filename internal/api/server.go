package api

import (
	"log"
	"net/http"

	"event-arena/internal/arena"
	"event-arena/internal/hud"

	"github.com/go-chi/chi/v5"
)

// Server is the HTTP front: websocket endpoint, JSON endpoints and static
// client assets.
type Server struct {
	engine *arena.Engine
	hub    *Hub
	router *chi.Mux
}

// NewServer wires the hub, the HUD dispatcher and the router together.
// Construction starts nothing; Start opens the listener.
func NewServer(engine *arena.Engine, journal JournalStats, staticDir string) *Server {
	hub := NewHub(engine)
	dispatcher := hud.NewDispatcher(engine, hub)
	hub.SetDispatcher(dispatcher)
	hub.AttachBus()

	router := NewRouter(RouterConfig{
		Hub:       hub,
		Handlers:  NewHandlers(engine, journal),
		StaticDir: staticDir,
	})

	return &Server{engine: engine, hub: hub, router: router}
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Router returns the handler for httptest use.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves HTTP on addr. Blocks.
func (s *Server) Start(addr string) error {
	log.Printf("🌐 server listening on %s", addr)
	return http.ListenAndServe(addr, s.router)
}
