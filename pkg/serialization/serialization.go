// Package serialization provides the snapshot codecs used by flow stores:
// JSON for human-inspectable files and MessagePack for compact binary
// payloads, optionally wrapped in zstd compression.
package serialization

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/aretw0/espalier/pkg/domain"
)

// Codec turns flow snapshots into bytes and back.
type Codec interface {
	Marshal(flow *domain.Flow) ([]byte, error)
	Unmarshal(data []byte, flow *domain.Flow) error
	Name() string
}

// JSON is the plain-text codec. Marshal output is indented because file
// stores keep these documents editable by hand.
type JSON struct{}

func (JSON) Marshal(flow *domain.Flow) ([]byte, error) {
	return json.MarshalIndent(flow, "", "  ")
}

func (JSON) Unmarshal(data []byte, flow *domain.Flow) error {
	return json.Unmarshal(data, flow)
}

func (JSON) Name() string { return "json" }

// MsgPack is the compact binary codec used by network-backed stores.
type MsgPack struct{}

func (MsgPack) Marshal(flow *domain.Flow) ([]byte, error) {
	return msgpack.Marshal(flow)
}

func (MsgPack) Unmarshal(data []byte, flow *domain.Flow) error {
	return msgpack.Unmarshal(data, flow)
}

func (MsgPack) Name() string { return "msgpack" }

// Compressed wraps a codec with zstd. Encoders and decoders are built per
// call; flows are small and the stores are not on a hot path.
type Compressed struct {
	Inner Codec
}

func (c Compressed) Marshal(flow *domain.Flow) ([]byte, error) {
	data, err := c.Inner.Marshal(flow)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, fmt.Errorf("serialization: zstd writer: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

func (c Compressed) Unmarshal(data []byte, flow *domain.Flow) error {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return fmt.Errorf("serialization: zstd reader: %w", err)
	}
	defer dec.Close()
	plain, err := dec.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("serialization: decompress: %w", err)
	}
	return c.Inner.Unmarshal(plain, flow)
}

func (c Compressed) Name() string { return c.Inner.Name() + "+zstd" }

// Default is the codec network stores use: msgpack under zstd.
func Default() Codec {
	return Compressed{Inner: MsgPack{}}
}
