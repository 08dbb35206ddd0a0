// Package api provides the HTTP command surface of the ZikDomotica bridge.
//
// It exposes the cached controller state and the device/blind/scenario
// command endpoints to voice assistants and other HTTP callers, plus the
// room and device configuration store.
//
// The server follows the same lifecycle pattern as the other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/NikolovskiKristijan/ZikDomotica/internal/home"
	"github.com/NikolovskiKristijan/ZikDomotica/internal/infrastructure/config"
	"github.com/NikolovskiKristijan/ZikDomotica/internal/infrastructure/logging"
	"github.com/NikolovskiKristijan/ZikDomotica/internal/majordomo"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// ControllerLink is the slice of the controller client the HTTP layer
// needs: the cached snapshot, command dispatch, and link state for health
// reporting. Tests substitute a fake.
type ControllerLink interface {
	Snapshot() (*majordomo.Snapshot, bool)
	Control(code majordomo.AddressCode, state any) error
	Stats() majordomo.Stats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Link     ControllerLink
	HomeRepo home.Repository
	Version  string
}

// Server is the HTTP server of the bridge.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	logger   *logging.Logger
	link     ControllerLink
	homeRepo home.Repository
	version  string
	server   *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, controller link)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Link == nil {
		return nil, fmt.Errorf("controller link is required")
	}
	// HomeRepo is optional: the command endpoints work without the
	// configuration store, only /api/rooms and friends return 503.

	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger,
		link:     deps.Link,
		homeRepo: deps.HomeRepo,
		version:  deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// The listener runs in a background goroutine; the server is stopped with
// Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(_ context.Context) error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server listening", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}
