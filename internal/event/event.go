package event

import "encoding/json"

// WsEvent is the envelope for every frame on the socket, both directions.
type WsEvent struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// NewWsEvent marshals a payload into an envelope. Payload types are plain
// structs, so marshaling cannot fail in practice; a nil payload is sent as
// an empty object.
func NewWsEvent(name string, payload interface{}) WsEvent {
	raw, err := json.Marshal(payload)
	if err != nil {
		raw = []byte("{}")
	}
	return WsEvent{Event: name, Payload: raw}
}
