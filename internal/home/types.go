package home

import "time"

// Room is a configured room of the house.
type Room struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Icon      string    `json:"icon,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Device is a configured device, bound to a room. AddressWrite and
// AddressRead carry the bus addresses used to command the device and to
// read its state back; AddressRead may be empty for write-only actuators.
type Device struct {
	ID           int64     `json:"id"`
	RoomID       int64     `json:"room_id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	AddressWrite string    `json:"address_write"`
	AddressRead  string    `json:"address_read,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// RoomConfig is a room with its devices nested, the shape served by the
// home-config endpoint.
type RoomConfig struct {
	Room
	Devices []Device `json:"devices"`
}
