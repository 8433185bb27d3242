package shuttle

import (
	"bytes"
	"errors"
	"fmt"

	jerrors "github.com/juju/errors"
	"github.com/zhukovaskychina/xiceberg/util"
)

// 穿梭包类型：句柄投递与工作端确认
const (
	PKG_HANDLE byte = 0x01
	PKG_ACK    byte = 0x02
)

const (
	// SHUTTLE_MAGIC spells "XSHT" and opens every shuttle package
	SHUTTLE_MAGIC   uint32 = 0x58534854
	SHUTTLE_VERSION byte   = 1

	// pkgHeaderSize covers magic, version, package type, sequence and rest length
	pkgHeaderSize = 14

	// DefaultMaxMsgLen bounds one package when the session gives no limit
	DefaultMaxMsgLen = 4 << 20
)

var (
	ErrNotEnoughStream = errors.New("package stream is not enough")
	ErrTooLargePackage = errors.New("package length is exceed the shuttle package's legal maximum length.")
	ErrIllegalMagic    = errors.New("package magic is not right.")
	ErrInvalidPackage  = errors.New("package payload is malformed")
)

type HandlePkgHeader struct {
	Version  byte
	PkgType  byte
	Sequence uint32
}

// HandlePackage carries one codec-encoded table handle from the planner to
// its workers, or a worker's ack travelling the other way. The codec name
// rides inside the package so a worker can pick the right decoder without
// any out-of-band agreement. Ack bodies carry the worker name.
type HandlePackage struct {
	Header HandlePkgHeader
	Codec  string
	Body   []byte
}

func NewHandlePackage(sequence uint32, codecName string, body []byte) *HandlePackage {
	return &HandlePackage{
		Header: HandlePkgHeader{Version: SHUTTLE_VERSION, PkgType: PKG_HANDLE, Sequence: sequence},
		Codec:  codecName,
		Body:   body,
	}
}

func NewAckPackage(sequence uint32, workerName string) *HandlePackage {
	return &HandlePackage{
		Header: HandlePkgHeader{Version: SHUTTLE_VERSION, PkgType: PKG_ACK, Sequence: sequence},
		Body:   []byte(workerName),
	}
}

func (p HandlePackage) String() string {
	return fmt.Sprintf("HandlePackage{type:%d, seq:%d, codec:%q, body:%d bytes}",
		p.Header.PkgType, p.Header.Sequence, p.Codec, len(p.Body))
}

func (p HandlePackage) Marshal() (*bytes.Buffer, error) {
	if p.Header.PkgType != PKG_HANDLE && p.Header.PkgType != PKG_ACK {
		return nil, jerrors.Annotatef(ErrInvalidPackage, "unknown package type %d", p.Header.PkgType)
	}

	rest := make([]byte, 0, util.GetLengthBytes([]byte(p.Codec))+util.GetLengthBytes(p.Body))
	rest = util.WriteWithLength(rest, []byte(p.Codec))
	rest = util.WriteWithLength(rest, p.Body)

	data := make([]byte, 0, pkgHeaderSize+len(rest))
	data = util.WriteUB4(data, SHUTTLE_MAGIC)
	data = util.WriteByte(data, SHUTTLE_VERSION)
	data = util.WriteByte(data, p.Header.PkgType)
	data = util.WriteUB4(data, p.Header.Sequence)
	data = util.WriteUB4(data, uint32(len(rest)))
	data = util.WriteBytes(data, rest)
	return bytes.NewBuffer(data), nil
}

// Unmarshal parses one package off the head of buf and reports how many
// bytes the complete package occupies. A partial package fails with
// ErrNotEnoughStream so the caller can wait for more of the stream; the
// returned length is still meaningful once the header arrived.
func (p *HandlePackage) Unmarshal(buf *bytes.Buffer, maxMsgLen int) (int, error) {
	if buf.Len() < pkgHeaderSize {
		return 0, ErrNotEnoughStream
	}
	data := buf.Bytes()

	cursor, magic := util.ReadUB4(data, 0)
	if magic != SHUTTLE_MAGIC {
		return 0, ErrIllegalMagic
	}
	cursor, version := util.ReadByte(data, cursor)
	if version != SHUTTLE_VERSION {
		return 0, jerrors.Annotatef(ErrInvalidPackage, "unsupported package version %d", version)
	}
	cursor, pkgType := util.ReadByte(data, cursor)
	if pkgType != PKG_HANDLE && pkgType != PKG_ACK {
		return 0, jerrors.Annotatef(ErrInvalidPackage, "unknown package type %d", pkgType)
	}
	cursor, sequence := util.ReadUB4(data, cursor)
	cursor, restLen := util.ReadUB4(data, cursor)

	if maxMsgLen <= 0 {
		maxMsgLen = DefaultMaxMsgLen
	}
	pkgLen := pkgHeaderSize + int(restLen)
	if pkgLen > maxMsgLen {
		return pkgLen, ErrTooLargePackage
	}
	if len(data) < pkgLen {
		return pkgLen, ErrNotEnoughStream
	}

	rest := data[cursor:pkgLen]
	next, codecName, err := readLengthBytes(rest, 0)
	if err != nil {
		return 0, err
	}
	next, body, err := readLengthBytes(rest, next)
	if err != nil {
		return 0, err
	}
	if next != len(rest) {
		return 0, jerrors.Annotatef(ErrInvalidPackage, "%d trailing bytes after package body", len(rest)-next)
	}

	p.Header.Version = version
	p.Header.PkgType = pkgType
	p.Header.Sequence = sequence
	p.Codec = string(codecName)
	// the session layer reuses its read buffer, own the body bytes
	p.Body = append([]byte(nil), body...)
	return pkgLen, nil
}

// readLengthBytes reads one length-encoded byte run without trusting the
// stream, every offset is bounds checked before use
func readLengthBytes(data []byte, cursor int) (int, []byte, error) {
	if cursor < 0 || cursor >= len(data) {
		return cursor, nil, jerrors.Annotatef(ErrInvalidPackage, "package rest truncated at offset %d", cursor)
	}
	prefix := data[cursor]
	cursor++

	var length uint64
	switch prefix {
	case 251:
		return cursor, nil, nil
	case 252:
		if len(data)-cursor < 2 {
			return cursor, nil, jerrors.Annotatef(ErrInvalidPackage, "package rest truncated at offset %d", cursor)
		}
		cursor, length = readLittleUint(data, cursor, 2)
	case 253:
		if len(data)-cursor < 3 {
			return cursor, nil, jerrors.Annotatef(ErrInvalidPackage, "package rest truncated at offset %d", cursor)
		}
		cursor, length = readLittleUint(data, cursor, 3)
	case 254:
		if len(data)-cursor < 8 {
			return cursor, nil, jerrors.Annotatef(ErrInvalidPackage, "package rest truncated at offset %d", cursor)
		}
		cursor, length = readLittleUint(data, cursor, 8)
	default:
		length = uint64(prefix)
	}
	if length > uint64(len(data)-cursor) {
		return cursor, nil, jerrors.Annotatef(ErrInvalidPackage, "declared %d bytes but only %d remain", length, len(data)-cursor)
	}
	return cursor + int(length), data[cursor : cursor+int(length)], nil
}

func readLittleUint(data []byte, cursor, width int) (int, uint64) {
	var out uint64
	for i := 0; i < width; i++ {
		out |= uint64(data[cursor+i]) << (8 * i)
	}
	return cursor + width, out
}
