// Package resolve maps free-form Italian device and scenario names onto
// entries of a controller state snapshot.
//
// Names arrive from voice assistants and hand-typed requests, so the same
// device may be asked for as "la luce della cucina", "Luce cucina" or
// "luce CUCINA". Normalize reduces all of these to one canonical form, and
// Device layers three matching passes on top of it, from exact equality
// down to token overlap, stopping at the first pass that produces a hit.
//
// Matching is deterministic: candidates are always considered in snapshot
// order, so repeated calls with the same snapshot and query return the
// same device.
package resolve
