package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig contains the dependencies needed to build the HTTP router.
type RouterConfig struct {
	Hub *Hub

	// Handlers serves the read-only JSON endpoints.
	Handlers *Handlers

	// CORSOrigins overrides the allowed origins; nil = localhost defaults.
	CORSOrigins []string

	// StaticDir serves the client assets; empty disables the route.
	StaticDir string

	// DisableLogging drops the request logger (benchmarks, tests).
	DisableLogging bool
}

// NewRouter constructs the HTTP router. The function is pure: no goroutines,
// no listeners, safe for httptest.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	origins := cfg.CORSOrigins
	if origins == nil {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	if cfg.Hub != nil {
		r.Get("/ws", cfg.Hub.HandleWebSocket)
	}

	if cfg.Handlers != nil {
		r.Route("/api", func(r chi.Router) {
			r.Get("/state", cfg.Handlers.handleGetState)
			r.Get("/scoreboard", cfg.Handlers.handleGetScoreboard)
			r.Get("/match", cfg.Handlers.handleGetMatch)
			r.Get("/journal/stats", cfg.Handlers.handleJournalStats)
		})
	}

	if cfg.StaticDir != "" {
		fs := http.FileServer(http.Dir(cfg.StaticDir))
		r.Handle("/*", fs)
	}

	return r
}
