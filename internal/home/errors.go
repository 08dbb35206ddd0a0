package home

import "errors"

var (
	// ErrRoomNotFound is returned when a room ID does not exist.
	ErrRoomNotFound = errors.New("room not found")

	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device not found")

	// ErrInvalidRoom is returned when a room fails validation before insert.
	ErrInvalidRoom = errors.New("invalid room")

	// ErrInvalidDevice is returned when a device fails validation before insert.
	ErrInvalidDevice = errors.New("invalid device")
)
