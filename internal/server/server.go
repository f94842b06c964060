package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lazypower/forgeone/internal/engine"
	"github.com/lazypower/forgeone/internal/logging"
	"github.com/lazypower/forgeone/internal/store"
)

// BuildInfo identifies the running binary in the health report.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	GoVersion string `json:"goVersion"`
	Dirty     bool   `json:"dirty,omitempty"`
}

// Options configures a Server.
type Options struct {
	Build BuildInfo
	// JWTSecret verifies HS256 bearer tokens. Every /api route except
	// health rejects requests when it is empty.
	JWTSecret []byte
	Logger    logging.Logger
}

// Server is the forgeone HTTP API server.
type Server struct {
	db      *store.DB
	engine  *engine.Engine
	log     logging.Logger
	secret  []byte
	router  chi.Router
	build   BuildInfo
	started time.Time
}

// New creates a new Server over the given database and engine.
func New(db *store.DB, eng *engine.Engine, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	s := &Server{
		db:      db,
		engine:  eng,
		log:     opts.Logger,
		secret:  opts.JWTSecret,
		build:   opts.Build,
		started: time.Now(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.requireOwner)

			r.Route("/moments", func(r chi.Router) {
				r.Get("/", s.handleListMoments)
				r.Post("/", s.handleCreateMoment)
				r.Get("/today", s.handleTodayMoments)
				r.Get("/timeline", s.handleMomentTimeline)
				r.Get("/{id}", s.handleGetMoment)
				r.Put("/{id}", s.handleUpdateMoment)
				r.Delete("/{id}", s.handleDeleteMoment)
			})

			r.Route("/entries", func(r chi.Router) {
				r.Get("/", s.handleListEntries)
				r.Post("/", s.handleCreateEntry)
				r.Get("/timeline", s.handleEntryTimeline)
				r.Get("/{id}", s.handleGetEntry)
				r.Put("/{id}", s.handleUpdateEntry)
				r.Delete("/{id}", s.handleDeleteEntry)
			})

			r.Get("/search", s.handleSearch)

			r.Route("/threads", func(r chi.Router) {
				r.Get("/", s.handleListThreads)
				r.Post("/", s.handleCreateThread)
				r.Get("/active", s.handleActiveThreads)
				r.Get("/{id}", s.handleGetThread)
				r.Put("/{id}", s.handleUpdateThread)
				r.Delete("/{id}", s.handleDeleteThread)
				r.Post("/{id}/moments", s.handleLinkMoment)
			})

			r.Get("/insights", s.handleInsights)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := s.db.PingContext(r.Context()) == nil
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.build.Version,
		"build":     s.build,
		"uptime":    time.Since(s.started).Seconds(),
		"timestamp": time.Now().UTC(),
		"db":        dbOK,
		"db_path":   s.db.Path,
	})
}
