package websocket

import "encoding/json"

// Message defines the structure for websocket messages.
type Message struct {
	Action  string      `json:"action"`
	Payload interface{} `json:"payload"`
}

// NewMessage encodes an action and its payload.
func NewMessage(action string, payload interface{}) ([]byte, error) {
	return json.Marshal(Message{Action: action, Payload: payload})
}

// NewErrorMessage encodes an error for a single client.
func NewErrorMessage(text string) []byte {
	b, _ := json.Marshal(Message{Action: "error", Payload: map[string]string{"message": text}})
	return b
}
