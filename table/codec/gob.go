package codec

import (
	"bytes"
	"encoding/gob"

	jerrors "github.com/juju/errors"
	"github.com/zhukovaskychina/xiceberg/table/basic"
	"github.com/zhukovaskychina/xiceberg/table/handle"
)

const CODEC_GOB = "gob"

// GobCodec rides the proxy's hand-written GobEncode and GobDecode, the
// explicit field order there is the wire format.
// 基于 gob 的编解码器
type GobCodec struct{}

// NewGobCodec creates the gob codec
func NewGobCodec() *GobCodec {
	return &GobCodec{}
}

// Name identifies the codec on the wire
func (c *GobCodec) Name() string {
	return CODEC_GOB
}

// Encode serializes a proxy
func (c *GobCodec) Encode(p *handle.Proxy) ([]byte, error) {
	if p == nil {
		return nil, jerrors.Errorf("nil proxy")
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(p); err != nil {
		return nil, jerrors.Annotatef(err, "gob encode handle proxy")
	}
	return buf.Bytes(), nil
}

// Decode restores a proxy, bad input fails with ErrDeserialization
func (c *GobCodec) Decode(data []byte) (*handle.Proxy, error) {
	if len(data) == 0 {
		return nil, jerrors.Annotatef(basic.ErrDeserialization, "empty gob frame")
	}
	p := &handle.Proxy{}
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(p); err != nil {
		return nil, jerrors.Annotatef(basic.ErrDeserialization, "gob frame: %v", err)
	}
	return p, nil
}
