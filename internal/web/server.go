// Package web serves the planner's JSON API.
package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/junkai/internal/config"
	"github.com/JonMunkholm/junkai/internal/core"
	"github.com/JonMunkholm/junkai/internal/web/middleware"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// Server is the HTTP server for the planner API.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server for service.
func NewServer(service *core.Service, cfg *config.Config) *Server {
	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(s.securityHeaders)
	s.router.Use(requestInfo)

	if s.cfg.Rate.Enabled {
		s.router.Use(middleware.NewRateLimiter(s.cfg.Rate).Handler)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/api/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))

		r.Get("/events", s.handleListEvents)
		r.Post("/events/import", s.handleImport)

		r.Route("/events/{event}", func(r chi.Router) {
			r.Get("/", s.handleGetEvent)
			r.Delete("/", s.handleDeleteEvent)
			r.Post("/rename", s.handleRenameEvent)
			r.Get("/export", s.handleExport)
			r.Get("/summary", s.handleSummary)

			// Items
			r.Post("/items", s.handleAddItem)
			r.Put("/items/{id}", s.handleUpdateItem)
			r.Delete("/items/{id}", s.handleDeleteItem)
			r.Post("/items/{id}/status", s.handleSetStatus)

			// Day columns
			r.Route("/days/{date}", func(r chi.Router) {
				r.Get("/", s.handleDayView)
				r.Post("/move", s.handleMove)
				r.Post("/execute/add", s.handleMoveToExecute)
				r.Post("/execute/remove", s.handleRemoveFromExecute)
				r.Post("/sort/block", s.handleBlockSort)
				r.Post("/sort/number", s.handleNumberSort)
				r.Post("/sort/bulk", s.handleBulkSort)
				r.Post("/mode/toggle", s.handleToggleMode)
			})

			// Sync with the event's spreadsheet
			r.Post("/sync", s.handlePrepareSync)
			r.Get("/sync", s.handlePendingSync)
			r.Delete("/sync", s.handleCancelSync)
			r.Post("/sync/{previewID}/confirm", s.handleConfirmSync)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if s.cfg.Security.EnableCSP {
			w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"events": len(s.service.ListEvents()),
		"dirty":  s.service.Dirty(),
	})
}
