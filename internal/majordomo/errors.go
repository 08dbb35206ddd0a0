package majordomo

import "errors"

// Domain errors for the majordomo package.
//
// These errors can be checked using errors.Is():
//
//	if errors.Is(err, majordomo.ErrNotConnected) {
//	    // link is down
//	}
var (
	// ErrNotConnected is returned by Send when the controller link is not
	// in the Open state.
	ErrNotConnected = errors.New("majordomo: not connected")

	// ErrAlreadyStarted is returned by Start when the client supervision
	// loop is already running.
	ErrAlreadyStarted = errors.New("majordomo: already started")
)
