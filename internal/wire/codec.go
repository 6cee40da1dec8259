// Package wire defines the messages exchanged between participants and the
// table authority and their binary encoding.
//
// Messages are plain Go structs with JSON tags. On the wire each one travels
// as a protobuf google.protobuf.Struct, so any Nakama client with the
// well-known types can decode it without generated code.
package wire

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Marshal encodes msg, which must marshal to a JSON object.
func Marshal(msg any) ([]byte, error) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal %T: %w", msg, err)
	}
	st := &structpb.Struct{}
	if err := protojson.Unmarshal(raw, st); err != nil {
		return nil, fmt.Errorf("wire: %T is not an object: %w", msg, err)
	}
	return proto.Marshal(st)
}

// Unmarshal decodes data into msg. Empty data decodes as an empty object.
func Unmarshal(data []byte, msg any) error {
	st := &structpb.Struct{}
	if err := proto.Unmarshal(data, st); err != nil {
		return fmt.Errorf("wire: malformed payload: %w", err)
	}
	raw, err := protojson.Marshal(st)
	if err != nil {
		return fmt.Errorf("wire: re-encode payload: %w", err)
	}
	if err := json.Unmarshal(raw, msg); err != nil {
		return fmt.Errorf("wire: decode into %T: %w", msg, err)
	}
	return nil
}

// MustMarshal is Marshal for messages known to encode, such as fixed test
// fixtures.
func MustMarshal(msg any) []byte {
	b, err := Marshal(msg)
	if err != nil {
		panic(err)
	}
	return b
}
