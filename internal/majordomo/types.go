package majordomo

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// BlindPort is the porta value that marks a device as a blind. Blinds carry
// a 0-100 position instead of a boolean state and are addressed by the nome
// field of their code rather than by (nodo, azione, nr).
const BlindPort = "tapparella"

// Kind classifies a device by the shape of its state and address.
type Kind int

const (
	// KindSwitch is a boolean on/off device (digital output).
	KindSwitch Kind = iota

	// KindBlind is a position device with an integer state in [0, 100].
	KindBlind
)

// String returns the kind name for logging.
func (k Kind) String() string {
	if k == KindBlind {
		return "blind"
	}
	return "switch"
}

// AddressCode is the opaque structured key identifying a device or scenario
// to the controller. Switch devices are addressed by (porta, nodo, azione,
// nr); blinds by (porta, nome). The bridge never interprets the fields
// beyond porta: codes are carried back to the controller verbatim.
type AddressCode struct {
	Porta  string `json:"porta"`
	Nodo   string `json:"nodo,omitempty"`
	Azione string `json:"azione,omitempty"`
	Nr     *int   `json:"nr,omitempty"`
	Nome   string `json:"nome,omitempty"`
}

// Kind derives the device kind from the address code.
func (c AddressCode) Kind() Kind {
	if c.Porta == BlindPort {
		return KindBlind
	}
	return KindSwitch
}

// Device is a single controllable entity as reported by the controller.
// Stato is a bool for switches and a number in [0, 100] for blinds.
type Device struct {
	Nome   string      `json:"nome"`
	Codice AddressCode `json:"codice"`
	Stato  any         `json:"stato"`
}

// Kind returns the device kind, derived from its address code.
func (d Device) Kind() Kind {
	return d.Codice.Kind()
}

// Scenario is a named scene known to the controller. Scenarios have no
// runtime state; their code is opaque and echoed back to callers unchanged.
type Scenario struct {
	Nome   string          `json:"nome"`
	Codice json.RawMessage `json:"codice"`
}

// Room is a named room with its ordered device list.
type Room struct {
	Nome        string
	Dispositivi []Device
}

// RoomList holds rooms in the order the controller reported them.
//
// On the wire STANZE is a JSON object, and Go maps would lose its key
// order. Name resolution must be order-stable (first match wins on ties),
// so the document order is preserved through a token-level decode.
type RoomList []Room

// UnmarshalJSON decodes the STANZE object preserving its key order.
func (rl *RoomList) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("reading STANZE: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("STANZE is not an object")
	}

	rooms := RoomList{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("reading room name: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("room name is not a string")
		}

		var devices []Device
		if err := dec.Decode(&devices); err != nil {
			return fmt.Errorf("decoding devices of room %q: %w", name, err)
		}

		rooms = append(rooms, Room{Nome: name, Dispositivi: devices})
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("closing STANZE: %w", err)
	}

	*rl = rooms
	return nil
}

// MarshalJSON re-emits the rooms as a JSON object in their original order.
func (rl RoomList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, room := range rl {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(room.Nome)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		devices := room.Dispositivi
		if devices == nil {
			devices = []Device{}
		}
		val, err := json.Marshal(devices)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Snapshot is a complete point-in-time view of all rooms, devices, and
// scenarios as reported by the controller. A snapshot is immutable once
// received; a newer one replaces it wholesale.
type Snapshot struct {
	Rooms     RoomList   `json:"STANZE"`
	Scenarios []Scenario `json:"SCENARI,omitempty"`
}
