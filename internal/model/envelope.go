package model

import (
	"bytes"
	"encoding/json"
)

// Envelope is the backend's uniform response wrapper.
// Data is kept as raw JSON until the route and message say what shape it has.
// Decoding matches property names case-insensitively; encoding uses camelCase.
type Envelope struct {
	StatusCode int             `json:"statusCode"`
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

var jsonNull = json.RawMessage("null")

// DecodeEnvelope parses a backend body into an Envelope.
func DecodeEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// HasData reports whether Data holds anything other than JSON null.
func (e *Envelope) HasData() bool {
	trimmed := bytes.TrimSpace(e.Data)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, jsonNull)
}

// ClearData replaces Data with JSON null.
func (e *Envelope) ClearData() {
	e.Data = jsonNull
}

// MarshalJSON always emits data, as null when unset.
func (e Envelope) MarshalJSON() ([]byte, error) {
	type plain Envelope
	p := plain(e)
	if len(bytes.TrimSpace(p.Data)) == 0 {
		p.Data = jsonNull
	}
	return json.Marshal(p)
}

// NewErrorEnvelope builds the envelope used for gateway-local rejections so callers see
// the same shape the backend uses.
func NewErrorEnvelope(status int, message string) Envelope {
	return Envelope{StatusCode: status, Success: false, Message: message, Data: jsonNull}
}
