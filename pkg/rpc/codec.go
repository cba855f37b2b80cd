// Package rpc defines the wire messages and Connect service bindings of the
// splitledger API. Messages travel as plain JSON.
package rpc

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// codecName replaces connect's protobuf-only JSON codec.
const codecName = "json"

// Codec marshals any Go value with encoding/json.
type Codec struct{}

var _ connect.Codec = Codec{}

func (Codec) Name() string { return codecName }

func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (Codec) Unmarshal(data []byte, msg any) error {
	return json.Unmarshal(data, msg)
}

// WithJSON is the option every handler and client in this package uses.
func WithJSON() connect.Option {
	return connect.WithCodec(Codec{})
}
