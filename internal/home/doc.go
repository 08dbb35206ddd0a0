// Package home stores the commissioned room and device configuration.
//
// This is static installation data: which rooms exist, which devices sit
// in them, and the bus addresses those devices answer on. It is distinct
// from the live state snapshot held by the controller link, which remains
// the authoritative source for runtime state.
//
// The package provides a Repository interface with a SQLite
// implementation. SQLiteRepository is safe for concurrent use.
package home
