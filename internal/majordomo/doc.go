// Package majordomo speaks the websocket protocol of the home-automation
// controller and keeps a live snapshot of device state.
//
// The controller owns ground-truth state for every room, device, and
// scenario. This package provides:
//
//   - The wire message types (get_state / set_state / greeting frames)
//   - The Snapshot model, decoded with room order preserved so that name
//     resolution stays deterministic
//   - The Client: a supervised websocket link that requests a snapshot on
//     connect, refreshes it on a fixed period, and reconnects after a
//     fixed delay whenever the link drops
//
// # Lifecycle
//
//	client := majordomo.New(majordomo.Config{
//	    URL:      cfg.Controller.URL,
//	    ClientID: cfg.Controller.ClientID,
//	}, logger)
//	client.Start(ctx)
//	defer client.Close()
//
//	if snap, ok := client.Snapshot(); ok {
//	    // resolve and command devices against snap
//	}
//
// # Delivery semantics
//
// Sends are fire-and-forget. The controller replies {ok:...} to commands,
// but the client ignores those frames: nothing correlates an
// acknowledgment back to the HTTP request that caused the send, so HTTP
// success means "command was sent", never "controller applied it".
//
// Thread Safety: the Client is safe for concurrent use. Snapshots are
// immutable once stored and replaced wholesale, never merged.
package majordomo
