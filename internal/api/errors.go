package api

import (
	"encoding/json"
	"net/http"
)

// errorResponse is the failure shape shared by every endpoint:
// {"ok": false, "error": "..."} plus optional echo fields on 404.
type errorResponse struct {
	OK       bool          `json:"ok"`
	Error    string        `json:"error"`
	Received *receivedEcho `json:"received,omitempty"`
	Hint     string        `json:"hint,omitempty"`
}

// receivedEcho repeats the caller's name and room on a failed lookup so
// voice-assistant debugging can see what actually arrived.
type receivedEcho struct {
	Name string `json:"name"`
	Room string `json:"room,omitempty"`
}

// notFoundHint is returned alongside every failed device lookup.
const notFoundHint = "Prova un nome più corto o verifica il nome nel /state"

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a {"ok": false, "error": message} response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{OK: false, Error: message})
}

// writeNotReady writes the 503 returned before the first snapshot arrives.
func writeNotReady(w http.ResponseWriter) {
	writeError(w, http.StatusServiceUnavailable, "state not ready")
}

// writeDeviceNotFound writes the 404 lookup failure, echoing the query.
func writeDeviceNotFound(w http.ResponseWriter, name, room string) {
	writeJSON(w, http.StatusNotFound, errorResponse{
		OK:       false,
		Error:    "device not found",
		Received: &receivedEcho{Name: name, Room: room},
		Hint:     notFoundHint,
	})
}
