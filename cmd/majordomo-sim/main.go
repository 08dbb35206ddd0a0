// majordomo-sim is a stand-in for the real home-automation controller.
//
// It serves the websocket protocol the bridge speaks: a greeting on
// connect, full state on get_state, and in-memory state mutation on
// set_state. The served state is loaded from a JSON file so a captured
// controller snapshot can be replayed during development.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/NikolovskiKristijan/ZikDomotica/internal/infrastructure/logging"
	"github.com/NikolovskiKristijan/ZikDomotica/internal/majordomo"
)

func main() {
	addr := flag.String("addr", ":8081", "listen address")
	statePath := flag.String("state", "state.json", "path to the JSON state document")
	flag.Parse()

	if err := run(*addr, *statePath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(addr, statePath string) error {
	log := logging.Default()

	data, err := os.ReadFile(statePath)
	if err != nil {
		return fmt.Errorf("reading state file: %w", err)
	}

	var state majordomo.Message
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("parsing state file: %w", err)
	}
	if state.Data == nil {
		// Accept a bare snapshot too, not just the full envelope.
		var snap majordomo.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil || len(snap.Rooms) == 0 {
			return fmt.Errorf("state file %s has no STANZE data", statePath)
		}
		state = majordomo.Message{Method: majordomo.MethodGetState, Data: &snap}
	}

	sim := &simulator{state: state, logger: log}

	http.HandleFunc("/", sim.handleConnection)
	log.Info("simulator listening", "addr", addr, "state", statePath)
	return http.ListenAndServe(addr, nil)
}

// simulator holds the mutable state document shared by all connections.
type simulator struct {
	mu     sync.Mutex
	state  majordomo.Message
	logger *logging.Logger
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

func (s *simulator) handleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.logger.Info("peer connected", "remote", r.RemoteAddr)

	// Greeting, then serve requests until the peer goes away.
	s.send(conn, majordomo.Message{Hello: true, Note: "simulatore pronto"})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.logger.Info("peer disconnected", "remote", r.RemoteAddr)
			return
		}
		s.handleFrame(conn, raw)
	}
}

// handleFrame answers a single request. Unparseable frames are dropped,
// matching the controller's behaviour.
func (s *simulator) handleFrame(conn *websocket.Conn, raw []byte) {
	var req struct {
		Method string                 `json:"method"`
		Data   *majordomo.ControlData `json:"data"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		return
	}

	switch req.Method {
	case majordomo.MethodGetState:
		s.mu.Lock()
		state := s.state
		s.mu.Unlock()
		s.send(conn, state)

	case majordomo.MethodSetState:
		s.applySetState(conn, req.Data)

	default:
		s.send(conn, map[string]any{"ok": false, "error": "unknown method", "got": req.Method})
	}
}

// applySetState mutates the in-memory state document and acknowledges.
func (s *simulator) applySetState(conn *websocket.Conn, data *majordomo.ControlData) {
	if data == nil || data.Codice.Porta == "" {
		s.send(conn, map[string]any{"ok": false, "error": "missing codice"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if data.Codice.Porta == majordomo.BlindPort {
		dev := s.findBlindByName(data.Codice.Nome)
		if dev == nil {
			s.send(conn, map[string]any{"ok": false, "error": "blind not found"})
			return
		}
		dev.Stato = toNumber(data.Stato)
		s.send(conn, map[string]any{"ok": true})
		return
	}

	dev := s.findDeviceByCode(data.Codice)
	if dev == nil {
		s.send(conn, map[string]any{"ok": false, "error": "device not found"})
		return
	}
	dev.Stato = toBool(data.Stato)
	s.send(conn, map[string]any{"ok": true})
}

// findDeviceByCode matches a boolean device on its full address code.
func (s *simulator) findDeviceByCode(code majordomo.AddressCode) *majordomo.Device {
	for ri := range s.state.Data.Rooms {
		devices := s.state.Data.Rooms[ri].Dispositivi
		for di := range devices {
			c := devices[di].Codice
			if c.Porta == code.Porta && c.Nodo == code.Nodo && c.Azione == code.Azione && sameNr(c.Nr, code.Nr) {
				return &devices[di]
			}
		}
	}
	return nil
}

// findBlindByName matches a blind on its normalised codice name.
func (s *simulator) findBlindByName(name string) *majordomo.Device {
	target := normalize(name)
	for ri := range s.state.Data.Rooms {
		devices := s.state.Data.Rooms[ri].Dispositivi
		for di := range devices {
			c := devices[di].Codice
			if c.Porta == majordomo.BlindPort && normalize(c.Nome) == target {
				return &devices[di]
			}
		}
	}
	return nil
}

func (s *simulator) send(conn *websocket.Conn, v any) {
	if err := conn.WriteJSON(v); err != nil {
		s.logger.Warn("write failed", "error", err)
	}
}

// normalize lowercases and collapses whitespace, enough for the exact
// blind-name match the controller does.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func sameNr(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// toNumber coerces a decoded JSON state value to a blind position.
func toNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case bool:
		if n {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// toBool coerces a decoded JSON state value to a switch state.
func toBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	default:
		return false
	}
}
