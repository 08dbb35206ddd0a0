// Package database provides SQLite connection management for the
// ZikDomotica room/device configuration store.
//
// It wraps database/sql with:
//   - Connection setup (WAL mode, busy timeout, foreign keys)
//   - Embedded SQL migrations applied at startup
//   - Health checks for the /health endpoint
//
// # Usage
//
//	db, err := database.Open(database.Config{
//	    Path:        cfg.Database.Path,
//	    WALMode:     cfg.Database.WALMode,
//	    BusyTimeout: cfg.Database.BusyTimeout,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files live in the top-level migrations/ directory and are
// embedded into the binary by the migrations package.
package database
