// Package commands defines the JSON envelope carried on the command queues
// and the payloads of each command type.
package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"unicode/utf8"

	"github.com/Varun5711/tokenqueue/internal/apperr"
)

const (
	TypeCreateUser  = "CreateUserCommand"
	TypeRevokeToken = "RevokeTokenCommand"
)

// Envelope is the wire shape: {"type": "...", "data": {...}}.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func Encode(cmdType string, payload any) ([]byte, error) {
	if cmdType == "" {
		return nil, apperr.NewValidation("command type is required")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", cmdType, err)
	}
	if !isObject(data) {
		return nil, apperr.NewValidation("command payload must be a JSON object")
	}

	return json.Marshal(Envelope{Type: cmdType, Data: data})
}

// Decode parses a queue message body. Any failure is a MessageFormat error.
func Decode(body []byte) (*Envelope, error) {
	if !utf8.Valid(body) {
		return nil, apperr.NewMessageFormat("message body is not valid UTF-8", nil)
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apperr.NewMessageFormat("message body is not a valid envelope", err)
	}
	if env.Type == "" {
		return nil, apperr.NewMessageFormat("envelope has no type", nil)
	}
	if !isObject(env.Data) {
		return nil, apperr.NewMessageFormat("envelope data must be an object", nil)
	}

	return &env, nil
}

// DecodeData unmarshals the envelope data into dst. Unknown fields are
// ignored so producers can add fields without workers dropping messages.
func DecodeData(env *Envelope, dst any) error {
	if err := json.Unmarshal(env.Data, dst); err != nil {
		return apperr.NewMessageFormat(fmt.Sprintf("invalid %s data", env.Type), err)
	}
	return nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
