package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/NikolovskiKristijan/ZikDomotica/internal/majordomo"
	"github.com/NikolovskiKristijan/ZikDomotica/internal/resolve"
)

// Blind positions are clamped to this range before dispatch.
const (
	blindMin = 0
	blindMax = 100
)

// powerRequest is the body of POST /device/power. On accepts any JSON
// value and is coerced to a boolean, so callers sending 1/0 or a string
// flag are not rejected.
type powerRequest struct {
	Name string `json:"name"`
	Room string `json:"room"`
	On   any    `json:"on"`
}

// blindRequest is the body of POST /blind/set. Value is a pointer so a
// missing field is distinguishable from an explicit 0.
type blindRequest struct {
	Name  string   `json:"name"`
	Room  string   `json:"room"`
	Value *float64 `json:"value"`
}

// sceneRequest is the body of POST /scene/run.
type sceneRequest struct {
	Name string `json:"name"`
}

// handleDevicePower switches a boolean device on or off.
//
// The device is resolved against the cached snapshot; blinds are refused
// here and must go through /blind/set. Dispatch is fire-and-forget, so a
// 200 means the command was written to the link, not that the device
// confirmed it.
func (s *Server) handleDevicePower(w http.ResponseWriter, r *http.Request) {
	var req powerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing name")
		return
	}

	snap, ready := s.link.Snapshot()
	if !ready {
		writeNotReady(w)
		return
	}

	match, found := resolve.Device(req.Name, req.Room, snap)
	if !found {
		writeDeviceNotFound(w, req.Name, req.Room)
		return
	}

	// Safety rule: a blind must never receive a boolean power command.
	if match.Device.Kind() == majordomo.KindBlind {
		writeError(w, http.StatusBadRequest, "device is a blind, use /blind/set")
		return
	}

	on := truthy(req.On)
	if err := s.dispatch(w, match.Device.Codice, on); err != nil {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"stanza": match.Stanza,
		"nome":   match.Device.Nome,
		"on":     on,
	})
}

// handleBlindSet moves a blind to a position in [0, 100].
//
// Out-of-range values are clamped rather than rejected; the clamped value
// is echoed back so the caller sees what was actually sent.
func (s *Server) handleBlindSet(w http.ResponseWriter, r *http.Request) {
	var req blindRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing name")
		return
	}
	if req.Value == nil {
		writeError(w, http.StatusBadRequest, "missing/invalid value")
		return
	}

	snap, ready := s.link.Snapshot()
	if !ready {
		writeNotReady(w)
		return
	}

	match, found := resolve.Device(req.Name, req.Room, snap)
	if !found {
		writeDeviceNotFound(w, req.Name, req.Room)
		return
	}

	if match.Device.Kind() != majordomo.KindBlind {
		writeError(w, http.StatusBadRequest, "device is not a blind")
		return
	}

	value := clampBlind(*req.Value)
	if err := s.dispatch(w, match.Device.Codice, value); err != nil {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"stanza": match.Stanza,
		"nome":   match.Device.Nome,
		"value":  value,
	})
}

// handleSceneRun resolves a scenario by exact name.
//
// Scenario execution is not wired on the controller side yet, so the
// endpoint validates the lookup and reports what it would run without
// sending anything.
func (s *Server) handleSceneRun(w http.ResponseWriter, r *http.Request) {
	var req sceneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "missing name")
		return
	}

	snap, ready := s.link.Snapshot()
	if !ready {
		writeNotReady(w)
		return
	}

	scenario, found := resolve.Scenario(req.Name, snap)
	if !found {
		writeError(w, http.StatusNotFound, "scenario not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"note":     "endpoint pronto, manca method PV reale",
		"scenario": scenario.Nome,
		"codice":   scenario.Codice,
	})
}

// dispatch sends a set_state command and maps link failures onto the HTTP
// response. A non-nil return means the response has already been written.
func (s *Server) dispatch(w http.ResponseWriter, code majordomo.AddressCode, state any) error {
	err := s.link.Control(code, state)
	if err == nil {
		return nil
	}
	if errors.Is(err, majordomo.ErrNotConnected) {
		writeError(w, http.StatusInternalServerError, "WebSocket non connesso")
		return err
	}
	s.logger.Error("command dispatch failed", "error", err)
	writeError(w, http.StatusInternalServerError, "command dispatch failed")
	return err
}

// truthy coerces a decoded JSON value to a boolean: false, 0, "", null
// and a missing field are off; everything else is on.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	default:
		return true
	}
}

// clampBlind clips a requested blind position into the valid range.
func clampBlind(v float64) float64 {
	if v < blindMin {
		return blindMin
	}
	if v > blindMax {
		return blindMax
	}
	return v
}
