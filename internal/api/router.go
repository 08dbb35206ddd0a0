package api

import (
	"net/http"

	"github.com/NikolovskiKristijan/ZikDomotica/internal/majordomo"
	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// Health and cached controller state
	r.Get("/health", s.handleHealth)
	r.Get("/state", s.handleState)

	// Command endpoints
	r.Post("/device/power", s.handleDevicePower)
	r.Post("/blind/set", s.handleBlindSet)
	r.Post("/scene/run", s.handleSceneRun)

	// Room/device configuration store
	r.Route("/api", func(r chi.Router) {
		r.Get("/rooms", s.handleListRooms)
		r.Post("/rooms", s.handleCreateRoom)
		r.Get("/devices", s.handleListDevices)
		r.Post("/devices", s.handleCreateDevice)
		r.Get("/home-config", s.handleHomeConfig)
	})

	return r
}

// handleHealth returns the server health status and link counters.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"version":    s.version,
		"controller": s.link.Stats(),
	})
}

// handleState serves the cached state snapshot, in the same envelope the
// controller sends it in. Before the first snapshot arrives there is
// nothing to serve and the endpoint reports 503.
func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	snap, ready := s.link.Snapshot()
	if !ready {
		writeNotReady(w)
		return
	}
	writeJSON(w, http.StatusOK, majordomo.Message{
		Method: majordomo.MethodGetState,
		Data:   snap,
	})
}
