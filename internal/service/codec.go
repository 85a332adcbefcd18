package service

import (
	"encoding/json"
)

// JSONCodec marshals RPC messages as plain JSON. It replaces Connect's
// protobuf-JSON codec, which only accepts generated protobuf messages.
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
