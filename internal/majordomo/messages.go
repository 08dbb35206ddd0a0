package majordomo

// Wire protocol constants.
const (
	// MethodGetState requests (and tags the response carrying) a full
	// state snapshot.
	MethodGetState = "get_state"

	// MethodSetState issues a device control command.
	MethodSetState = "set_state"

	// TypeAll is the wildcard device type selector sent on every request.
	TypeAll = "*"
)

// Message is the envelope of inbound frames from the controller. Exactly
// one of the optional shapes is populated per frame: a snapshot response
// (Method + Data), the connect greeting (Hello + Note), or a command
// acknowledgment (OK + Error), which this layer ignores.
type Message struct {
	Method string    `json:"method,omitempty"`
	Data   *Snapshot `json:"data,omitempty"`
	Hello  bool      `json:"hello,omitempty"`
	Note   string    `json:"note,omitempty"`
	OK     *bool     `json:"ok,omitempty"`
	Error  string    `json:"error,omitempty"`
}

// StateRequest asks the controller for a full snapshot.
type StateRequest struct {
	Method   string `json:"method"`
	Type     string `json:"type"`
	ClientID string `json:"majordomo"`
}

// NewStateRequest builds a get_state request for the given client identity.
func NewStateRequest(clientID string) StateRequest {
	return StateRequest{
		Method:   MethodGetState,
		Type:     TypeAll,
		ClientID: clientID,
	}
}

// ControlData carries the target address code and the desired state:
// a bool for switches, a position in [0, 100] for blinds.
type ControlData struct {
	Codice AddressCode `json:"codice"`
	Stato  any         `json:"stato"`
}

// ControlMessage issues a set_state command against a device.
type ControlMessage struct {
	Method   string      `json:"method"`
	Type     string      `json:"type"`
	ClientID string      `json:"majordomo"`
	Data     ControlData `json:"data"`
}

// NewControlMessage builds a set_state command for the given device code
// and target state.
func NewControlMessage(clientID string, code AddressCode, state any) ControlMessage {
	return ControlMessage{
		Method:   MethodSetState,
		Type:     TypeAll,
		ClientID: clientID,
		Data: ControlData{
			Codice: code,
			Stato:  state,
		},
	}
}
