package codec

import (
	"sort"
	"strings"

	"github.com/golang/snappy"
	jerrors "github.com/juju/errors"
	"github.com/pierrec/lz4/v4"
	"github.com/zhukovaskychina/xiceberg/table/basic"
	"github.com/zhukovaskychina/xiceberg/table/handle"
	"github.com/zhukovaskychina/xiceberg/util"
)

const (
	// BINARY_MAGIC spells "XHDB" and opens every binary frame
	BINARY_MAGIC   uint32 = 0x58484442
	BINARY_VERSION byte   = 1
	CODEC_BINARY          = "binary"
)

// 元数据体压缩标志
const (
	COMPRESS_NONE uint8 = iota
	COMPRESS_SNAPPY
	COMPRESS_LZ4
)

const (
	// maxBodySize bounds the decompressed metadata body
	maxBodySize = 256 << 20
	// maxProps bounds the io property count of one frame
	maxProps = 1 << 16
	// checksum trailer length
	checksumSize = 8
)

// CompressionFromName resolves a configured compression name
func CompressionFromName(name string) (uint8, error) {
	switch strings.ToLower(name) {
	case "", "none":
		return COMPRESS_NONE, nil
	case "snappy":
		return COMPRESS_SNAPPY, nil
	case "lz4":
		return COMPRESS_LZ4, nil
	default:
		return COMPRESS_NONE, jerrors.Errorf("unknown compression %q", name)
	}
}

// BinaryCodec writes the proxy as a compact length-encoded frame: magic,
// version, kind, view type, compression flag, identity strings, size
// estimate, io properties, the metadata body and a trailing xxhash64 checksum
// over everything before it. Decode verifies magic, version, checksum and
// every bound before materializing a proxy.
// 紧凑二进制帧编解码器
type BinaryCodec struct {
	compression uint8
}

// NewBinaryCodec creates a binary codec writing the given body compression.
// Decode always honours whatever flag a frame carries.
func NewBinaryCodec(compression uint8) *BinaryCodec {
	if compression > COMPRESS_LZ4 {
		compression = COMPRESS_NONE
	}
	return &BinaryCodec{compression: compression}
}

// Name identifies the codec on the wire
func (c *BinaryCodec) Name() string {
	return CODEC_BINARY
}

// Encode serializes the proxy's explicit field list
func (c *BinaryCodec) Encode(p *handle.Proxy) ([]byte, error) {
	if p == nil {
		return nil, jerrors.Errorf("nil proxy")
	}
	body, flags := c.compressBody(p.MetadataJSON)

	buf := make([]byte, 0, len(body)+len(p.Name)+len(p.Location)+len(p.MetadataLocation)+128)
	buf = util.WriteUB4(buf, BINARY_MAGIC)
	buf = util.WriteByte(buf, BINARY_VERSION)
	buf = util.WriteByte(buf, byte(p.Kind))
	buf = util.WriteByte(buf, byte(p.ViewType))
	buf = util.WriteByte(buf, flags)
	buf = util.WriteWithLength(buf, []byte(p.Name))
	buf = util.WriteWithLength(buf, []byte(p.Location))
	buf = util.WriteWithLength(buf, []byte(p.MetadataLocation))
	buf = util.WriteUB8(buf, uint64(p.SizeEstimate))

	keys := make([]string, 0, len(p.IOProps))
	for k := range p.IOProps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	buf = util.WriteLength(buf, int64(len(keys)))
	for _, k := range keys {
		buf = util.WriteWithLength(buf, []byte(k))
		buf = util.WriteWithLength(buf, []byte(p.IOProps[k]))
	}
	buf = util.WriteWithLength(buf, body)
	buf = util.WriteUB8(buf, util.HashCode(buf))
	return buf, nil
}

// compressBody applies the configured compression, falling back to the raw
// body when compression does not help. The returned flag tells what the
// frame actually carries.
func (c *BinaryCodec) compressBody(raw []byte) ([]byte, uint8) {
	switch c.compression {
	case COMPRESS_SNAPPY:
		return snappy.Encode(nil, raw), COMPRESS_SNAPPY
	case COMPRESS_LZ4:
		block := make([]byte, lz4.CompressBlockBound(len(raw)))
		var compressor lz4.Compressor
		n, err := compressor.CompressBlock(raw, block)
		if err != nil || n == 0 || n >= len(raw) {
			return raw, COMPRESS_NONE
		}
		body := util.WriteUB4(make([]byte, 0, 4+n), uint32(len(raw)))
		body = util.WriteBytes(body, block[:n])
		return body, COMPRESS_LZ4
	default:
		return raw, COMPRESS_NONE
	}
}

// Decode restores a proxy from a binary frame
func (c *BinaryCodec) Decode(data []byte) (*handle.Proxy, error) {
	if len(data) < checksumSize+9 {
		return nil, jerrors.Annotatef(basic.ErrDeserialization, "frame of %d bytes is too short", len(data))
	}
	payload := data[:len(data)-checksumSize]
	trailer := frameReader{data: data, cursor: len(data) - checksumSize}
	expected, err := trailer.readUB8()
	if err != nil {
		return nil, err
	}
	if util.HashCode(payload) != expected {
		return nil, jerrors.Annotatef(basic.ErrDeserialization, "frame checksum mismatch")
	}

	r := frameReader{data: payload}
	magic, err := r.readUB4()
	if err != nil {
		return nil, err
	}
	if magic != BINARY_MAGIC {
		return nil, jerrors.Annotatef(basic.ErrDeserialization, "illegal frame magic 0x%X", magic)
	}
	version, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if version != BINARY_VERSION {
		return nil, jerrors.Annotatef(basic.ErrDeserialization, "unsupported frame version %d", version)
	}
	kind, err := r.readByte()
	if err != nil {
		return nil, err
	}
	viewType, err := r.readByte()
	if err != nil {
		return nil, err
	}
	flags, err := r.readByte()
	if err != nil {
		return nil, err
	}
	name, err := r.readWithLength()
	if err != nil {
		return nil, err
	}
	location, err := r.readWithLength()
	if err != nil {
		return nil, err
	}
	metadataLocation, err := r.readWithLength()
	if err != nil {
		return nil, err
	}
	sizeEstimate, err := r.readUB8()
	if err != nil {
		return nil, err
	}
	propCount, err := r.readLength()
	if err != nil {
		return nil, err
	}
	if propCount > maxProps {
		return nil, jerrors.Annotatef(basic.ErrDeserialization, "frame carries %d io properties", propCount)
	}
	props := make(map[string]string, propCount)
	for i := uint64(0); i < propCount; i++ {
		key, err := r.readWithLength()
		if err != nil {
			return nil, err
		}
		value, err := r.readWithLength()
		if err != nil {
			return nil, err
		}
		props[string(key)] = string(value)
	}
	body, err := r.readWithLength()
	if err != nil {
		return nil, err
	}
	if r.remaining() != 0 {
		return nil, jerrors.Annotatef(basic.ErrDeserialization, "%d trailing bytes after frame body", r.remaining())
	}
	metadataJSON, err := decompressBody(flags, body)
	if err != nil {
		return nil, err
	}

	return &handle.Proxy{
		Kind:             handle.HandleKind(kind),
		Name:             string(name),
		Location:         string(location),
		MetadataLocation: string(metadataLocation),
		ViewType:         handle.MetadataTableType(viewType),
		MetadataJSON:     metadataJSON,
		IOProps:          props,
		SizeEstimate:     int64(sizeEstimate),
	}, nil
}

func decompressBody(flags uint8, body []byte) ([]byte, error) {
	switch flags {
	case COMPRESS_NONE:
		return body, nil
	case COMPRESS_SNAPPY:
		decodedLen, err := snappy.DecodedLen(body)
		if err != nil {
			return nil, jerrors.Annotatef(basic.ErrDeserialization, "snappy body: %v", err)
		}
		if decodedLen > maxBodySize {
			return nil, jerrors.Annotatef(basic.ErrDeserialization, "snappy body expands to %d bytes", decodedLen)
		}
		raw, err := snappy.Decode(nil, body)
		if err != nil {
			return nil, jerrors.Annotatef(basic.ErrDeserialization, "snappy body: %v", err)
		}
		return raw, nil
	case COMPRESS_LZ4:
		if len(body) < 4 {
			return nil, jerrors.Annotatef(basic.ErrDeserialization, "lz4 body misses its length header")
		}
		r := frameReader{data: body}
		origLen, err := r.readUB4()
		if err != nil {
			return nil, err
		}
		if origLen > maxBodySize {
			return nil, jerrors.Annotatef(basic.ErrDeserialization, "lz4 body expands to %d bytes", origLen)
		}
		raw := make([]byte, origLen)
		n, err := lz4.UncompressBlock(body[4:], raw)
		if err != nil || uint32(n) != origLen {
			return nil, jerrors.Annotatef(basic.ErrDeserialization, "lz4 body does not decompress")
		}
		return raw, nil
	default:
		return nil, jerrors.Annotatef(basic.ErrDeserialization, "unknown compression flag %d", flags)
	}
}

// frameReader walks a frame with every read bounds-checked, short input
// fails instead of panicking
type frameReader struct {
	data   []byte
	cursor int
}

func (r *frameReader) remaining() int {
	return len(r.data) - r.cursor
}

func (r *frameReader) readByte() (byte, error) {
	if r.remaining() < 1 {
		return 0, jerrors.Annotatef(basic.ErrDeserialization, "frame truncated at offset %d", r.cursor)
	}
	b := r.data[r.cursor]
	r.cursor++
	return b, nil
}

func (r *frameReader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.remaining() < n {
		return nil, jerrors.Annotatef(basic.ErrDeserialization, "frame truncated at offset %d, need %d bytes", r.cursor, n)
	}
	out := r.data[r.cursor : r.cursor+n]
	r.cursor += n
	return out, nil
}

func (r *frameReader) readUB2() (uint16, error) {
	raw, err := r.readBytes(2)
	if err != nil {
		return 0, err
	}
	return uint16(raw[0]) | uint16(raw[1])<<8, nil
}

func (r *frameReader) readUB3() (uint32, error) {
	raw, err := r.readBytes(3)
	if err != nil {
		return 0, err
	}
	return uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16, nil
}

func (r *frameReader) readUB4() (uint32, error) {
	raw, err := r.readBytes(4)
	if err != nil {
		return 0, err
	}
	return uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16 | uint32(raw[3])<<24, nil
}

func (r *frameReader) readUB8() (uint64, error) {
	raw, err := r.readBytes(8)
	if err != nil {
		return 0, err
	}
	var out uint64
	for i := 0; i < 8; i++ {
		out |= uint64(raw[i]) << (8 * i)
	}
	return out, nil
}

// readLength reads the 251/252/253/254 length encoding, 251 is the null
// marker and reads as zero
func (r *frameReader) readLength() (uint64, error) {
	prefix, err := r.readByte()
	if err != nil {
		return 0, err
	}
	switch {
	case prefix < 251:
		return uint64(prefix), nil
	case prefix == 251:
		return 0, nil
	case prefix == 252:
		v, err := r.readUB2()
		return uint64(v), err
	case prefix == 253:
		v, err := r.readUB3()
		return uint64(v), err
	default:
		return r.readUB8()
	}
}

func (r *frameReader) readWithLength() ([]byte, error) {
	n, err := r.readLength()
	if err != nil {
		return nil, err
	}
	if n > uint64(r.remaining()) {
		return nil, jerrors.Annotatef(basic.ErrDeserialization, "frame truncated at offset %d, need %d bytes", r.cursor, n)
	}
	return r.readBytes(int(n))
}
