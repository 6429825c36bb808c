package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger) // Custom conditional HTTP logger
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(h.Options.Metrics.Middleware)

	// Long-lived streams stay outside the request timeout
	r.Get("/api/livestate/events", h.Hub.ServeSSE)
	r.Get("/api/livestate/ws", h.Hub.ServeWs)

	if h.Options.Metrics != nil {
		r.Handle("/metrics", h.Options.Metrics.Handler())
	}
	r.Get("/healthz", h.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		// Static files (served from embedded filesystem)
		r.Handle("/static/*", http.StripPrefix("/static/", h.staticServer))

		// Audience pages (public)
		r.Get("/", h.handleIndex)
		r.Get("/live", h.handleLivePage)
		r.Get("/showcase", h.handleShowcasePage)

		// Public API
		r.Get("/api/pitches", h.handleGetPitches)
		r.Get("/api/pitches/{id}", h.handleGetPitch)
		r.Put("/api/pitches/{id}", h.handleUpdatePitch) // admin fields checked inside
		r.Post("/api/pitches/{id}/ratings", h.handleSubmitRating)
		r.Get("/api/categories", h.handleGetCategories)
		r.Get("/api/categories/{id}/winner", h.handleGetCategoryWinner)
		r.Get("/api/livestate", h.handleGetLiveState)
		r.Get("/api/showcase", h.handleGetShowcase)
		r.Get("/api/leaderboard", h.handleGetLeaderboard)

		// Auth routes (public)
		r.Get("/admin/login", h.handleLoginPage)
		r.Post("/admin/login", h.handleLogin)
		r.Post("/admin/logout", h.handleLogout)

		// Admin pages (protected)
		r.Group(func(r chi.Router) {
			r.Use(h.Auth.RequireAuth)
			r.Get("/admin", h.handleAdminLive)
			r.Get("/admin/pitches", h.handleAdminPitches)
			r.Get("/admin/results", h.handleAdminResults)
			r.Get("/admin/settings", h.handleAdminSettings)
		})

		// Admin API (protected)
		r.Group(func(r chi.Router) {
			r.Use(h.Auth.RequireAuthAPI)

			// Pitches
			r.Post("/api/pitches", h.handleCreatePitch)
			r.Delete("/api/pitches/{id}", h.handleDeletePitch)
			r.Post("/api/pitches/reset", h.handleResetRatings)

			// Categories
			r.Post("/api/categories", h.handleCreateCategory)
			r.Delete("/api/categories/{id}", h.handleDeleteCategory)

			// Live state and controls
			r.Post("/api/livestate", h.handleMergeLiveState)
			r.Get("/api/live/sequence", h.handleGetSequence)
			r.Post("/api/live/start", h.handleStartLive)
			r.Post("/api/live/end", h.handleEndLive)
			r.Post("/api/live/next", h.handleNextPitch)
			r.Post("/api/live/previous", h.handlePreviousPitch)
			r.Post("/api/showcase/start", h.handleStartShowcase)
			r.Post("/api/showcase/end", h.handleEndShowcase)

			// Settings
			r.Get("/api/admin/settings", h.handleGetSettings)
			r.Put("/api/admin/settings", h.handleUpdateSettings)
			r.Get("/api/admin/audience-qr", h.handleAudienceQR)
		})
	})

	return r
}
