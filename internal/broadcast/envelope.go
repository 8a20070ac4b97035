// Package broadcast delivers game events to connected clients, either inside
// one process (Hub), across instances (Redis), or through Pusher.
package broadcast

import (
	"encoding/json"

	"drawphone/internal/game"
)

// Envelope is the wire shape of every message pushed to a client.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Encode wraps ev in an Envelope.
func Encode(ev game.Event) ([]byte, error) {
	return EncodeNamed(string(ev.Kind()), ev)
}

// EncodeNamed wraps an arbitrary payload, such as a snapshot sent on connect.
func EncodeNamed(name string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: name, Data: data})
}
