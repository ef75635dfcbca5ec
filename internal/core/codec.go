package core

import (
	"encoding/json"
	"fmt"
)

// Encode serializes the message for a queue body.
func (m *Message) Encode() (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode message %s: %w", m.ID, err)
	}
	return string(b), nil
}

// DecodeMessage parses a queue body back into a Message.
func DecodeMessage(body string) (*Message, error) {
	var m Message
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		return nil, fmt.Errorf("decode message body: %w", err)
	}
	return &m, nil
}
