// ZikDomotica - HTTP bridge for a majordomo home-automation controller.
//
// The bridge keeps a live websocket link to the controller, caches its
// state snapshot, and exposes a small HTTP surface that resolves spoken
// Italian device names and dispatches on/off and blind commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/NikolovskiKristijan/ZikDomotica/migrations"

	"github.com/NikolovskiKristijan/ZikDomotica/internal/api"
	"github.com/NikolovskiKristijan/ZikDomotica/internal/home"
	"github.com/NikolovskiKristijan/ZikDomotica/internal/infrastructure/config"
	"github.com/NikolovskiKristijan/ZikDomotica/internal/infrastructure/database"
	"github.com/NikolovskiKristijan/ZikDomotica/internal/infrastructure/logging"
	"github.com/NikolovskiKristijan/ZikDomotica/internal/majordomo"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting ZikDomotica bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Room/device configuration store
	homeRepo := home.NewSQLiteRepository(db.DB)

	// Controller link
	link := majordomo.New(majordomo.Config{
		URL:              cfg.Controller.URL,
		ClientID:         cfg.Controller.ClientID,
		RefreshInterval:  cfg.GetRefreshInterval(),
		ReconnectDelay:   cfg.GetReconnectDelay(),
		HandshakeTimeout: cfg.GetHandshakeTimeout(),
	}, log)
	if err := link.Start(ctx); err != nil {
		return fmt.Errorf("starting controller link: %w", err)
	}
	defer func() {
		log.Info("closing controller link")
		if closeErr := link.Close(); closeErr != nil {
			log.Error("error closing controller link", "error", closeErr)
		}
	}()
	log.Info("controller link started",
		"url", cfg.Controller.URL,
		"client_id", cfg.Controller.ClientID,
	)

	// HTTP API server
	server, err := api.New(api.Deps{
		Config:   cfg.API,
		Logger:   log,
		Link:     link,
		HomeRepo: homeRepo,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("ZikDomotica bridge running",
		"api", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	// Block until shutdown signal
	<-ctx.Done()
	log.Info("shutdown signal received")

	return nil
}

// getConfigPath returns the configuration file path.
// Uses the ZIKDOMOTICA_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("ZIKDOMOTICA_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
