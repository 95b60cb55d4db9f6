package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/talecraft/backend/internal/auth"
	"github.com/talecraft/backend/internal/middleware"
)

// Router holds all handlers and creates the chi router
type Router struct {
	storyHandler  *StoryHandler
	healthHandler *HealthHandler
	jwtManager    *auth.JWTManager
	logger        *zap.Logger
}

// NewRouter creates a new router
func NewRouter(
	storyHandler *StoryHandler,
	healthHandler *HealthHandler,
	jwtManager *auth.JWTManager,
	logger *zap.Logger,
) *Router {
	return &Router{
		storyHandler:  storyHandler,
		healthHandler: healthHandler,
		jwtManager:    jwtManager,
		logger:        logger,
	}
}

// Setup configures and returns the chi router
func (rt *Router) Setup() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RecoveryMiddleware(rt.logger))
	r.Use(middleware.LoggingMiddleware(rt.logger))
	r.Use(middleware.CORSMiddleware())
	r.Use(chimiddleware.Compress(5))

	// Health endpoints (no auth required)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", rt.healthHandler.Health)
		r.Get("/ready", rt.healthHandler.Ready)
		r.Get("/live", rt.healthHandler.Live)
	})

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(rt.jwtManager))

			r.Route("/stories", func(r chi.Router) {
				r.Post("/", rt.storyHandler.CreateStory)
				r.Get("/", rt.storyHandler.ListStories)
				r.Get("/{storyID}", rt.storyHandler.GetStory)
				r.Delete("/{storyID}", rt.storyHandler.DeleteStory)
				r.Post("/{storyID}/archive", rt.storyHandler.ArchiveStory)
			})
		})
	})

	return r
}
