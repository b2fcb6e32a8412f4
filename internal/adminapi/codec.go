package adminapi

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// codecName is negotiated over the wire in the grpc-encoding header;
// registering it under this name makes every adminapi client/server
// pair use JSON instead of protobuf for message bodies, since this
// surface has no .proto source to generate proto messages from.
const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("adminapi: json codec: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string { return codecName }
