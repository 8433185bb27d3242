package shuttle

import (
	"bytes"
	"testing"

	jerrors "github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func marshalToBytes(t *testing.T, pkg *HandlePackage) []byte {
	t.Helper()
	buf, err := pkg.Marshal()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestHandlePackageRoundTrip(t *testing.T) {
	origin := NewHandlePackage(7, "binary", []byte("proxy-frame-bytes"))
	data := marshalToBytes(t, origin)

	parsed := &HandlePackage{}
	pkgLen, err := parsed.Unmarshal(bytes.NewBuffer(data), 0)
	require.NoError(t, err)

	assert.Equal(t, len(data), pkgLen)
	assert.Equal(t, SHUTTLE_VERSION, parsed.Header.Version)
	assert.Equal(t, PKG_HANDLE, parsed.Header.PkgType)
	assert.Equal(t, uint32(7), parsed.Header.Sequence)
	assert.Equal(t, "binary", parsed.Codec)
	assert.Equal(t, []byte("proxy-frame-bytes"), parsed.Body)

	t.Run("确认包无编解码器名", func(t *testing.T) {
		ack := NewAckPackage(7, "worker-1")
		ackData := marshalToBytes(t, ack)

		parsedAck := &HandlePackage{}
		ackLen, err := parsedAck.Unmarshal(bytes.NewBuffer(ackData), 0)
		require.NoError(t, err)
		assert.Equal(t, len(ackData), ackLen)
		assert.Equal(t, PKG_ACK, parsedAck.Header.PkgType)
		assert.Equal(t, "", parsedAck.Codec)
		assert.Equal(t, []byte("worker-1"), parsedAck.Body)
	})

	t.Run("解包只消费头一个包", func(t *testing.T) {
		second := NewAckPackage(8, "worker-2")
		stream := append(append([]byte(nil), data...), marshalToBytes(t, second)...)

		first := &HandlePackage{}
		firstLen, err := first.Unmarshal(bytes.NewBuffer(stream), 0)
		require.NoError(t, err)
		assert.Equal(t, len(data), firstLen)
		assert.Equal(t, uint32(7), first.Header.Sequence)

		next := &HandlePackage{}
		nextLen, err := next.Unmarshal(bytes.NewBuffer(stream[firstLen:]), 0)
		require.NoError(t, err)
		assert.Equal(t, len(stream)-firstLen, nextLen)
		assert.Equal(t, uint32(8), next.Header.Sequence)
	})

	t.Run("包体不与会话读缓冲共享", func(t *testing.T) {
		stream := append([]byte(nil), data...)
		parsed := &HandlePackage{}
		_, err := parsed.Unmarshal(bytes.NewBuffer(stream), 0)
		require.NoError(t, err)

		for i := range stream {
			stream[i] = 0xEE
		}
		assert.Equal(t, []byte("proxy-frame-bytes"), parsed.Body)
	})
}

func TestHandlePackageMarshalRejectsUnknownType(t *testing.T) {
	bad := &HandlePackage{Header: HandlePkgHeader{Version: SHUTTLE_VERSION, PkgType: 0x7F}}
	_, err := bad.Marshal()
	require.Error(t, err)
	assert.Equal(t, ErrInvalidPackage, jerrors.Cause(err))
}

func TestHandlePackageUnmarshalErrors(t *testing.T) {
	valid := marshalToBytes(t, NewHandlePackage(3, "gob", []byte("body")))

	clone := func(mutate func(data []byte) []byte) []byte {
		data := append([]byte(nil), valid...)
		if mutate != nil {
			data = mutate(data)
		}
		return data
	}

	t.Run("空流等待更多字节", func(t *testing.T) {
		pkg := &HandlePackage{}
		pkgLen, err := pkg.Unmarshal(bytes.NewBuffer(nil), 0)
		assert.Equal(t, ErrNotEnoughStream, err)
		assert.Equal(t, 0, pkgLen)
	})

	t.Run("包头不完整", func(t *testing.T) {
		pkg := &HandlePackage{}
		pkgLen, err := pkg.Unmarshal(bytes.NewBuffer(valid[:pkgHeaderSize-1]), 0)
		assert.Equal(t, ErrNotEnoughStream, err)
		assert.Equal(t, 0, pkgLen)
	})

	t.Run("包体不完整时返回完整包长", func(t *testing.T) {
		pkg := &HandlePackage{}
		pkgLen, err := pkg.Unmarshal(bytes.NewBuffer(valid[:len(valid)-3]), 0)
		assert.Equal(t, ErrNotEnoughStream, err)
		assert.Equal(t, len(valid), pkgLen)
	})

	t.Run("魔数非法", func(t *testing.T) {
		data := clone(func(data []byte) []byte {
			data[0] = 0xFF
			return data
		})
		pkg := &HandlePackage{}
		_, err := pkg.Unmarshal(bytes.NewBuffer(data), 0)
		assert.Equal(t, ErrIllegalMagic, err)
	})

	t.Run("版本不支持", func(t *testing.T) {
		data := clone(func(data []byte) []byte {
			data[4] = SHUTTLE_VERSION + 1
			return data
		})
		pkg := &HandlePackage{}
		_, err := pkg.Unmarshal(bytes.NewBuffer(data), 0)
		assert.Equal(t, ErrInvalidPackage, jerrors.Cause(err))
	})

	t.Run("包类型未知", func(t *testing.T) {
		data := clone(func(data []byte) []byte {
			data[5] = 0x7F
			return data
		})
		pkg := &HandlePackage{}
		_, err := pkg.Unmarshal(bytes.NewBuffer(data), 0)
		assert.Equal(t, ErrInvalidPackage, jerrors.Cause(err))
	})

	t.Run("超过会话包长上限", func(t *testing.T) {
		pkg := &HandlePackage{}
		pkgLen, err := pkg.Unmarshal(bytes.NewBuffer(valid), pkgHeaderSize+1)
		assert.Equal(t, ErrTooLargePackage, err)
		assert.Equal(t, len(valid), pkgLen)
	})

	t.Run("包体后有多余字节", func(t *testing.T) {
		data := clone(func(data []byte) []byte {
			data = append(data, 0x00)
			data[10]++
			return data
		})
		pkg := &HandlePackage{}
		_, err := pkg.Unmarshal(bytes.NewBuffer(data), 0)
		assert.Equal(t, ErrInvalidPackage, jerrors.Cause(err))
	})

	t.Run("声明长度越过包尾", func(t *testing.T) {
		data := clone(func(data []byte) []byte {
			data[10]--
			return data[:len(data)-1]
		})
		pkg := &HandlePackage{}
		_, err := pkg.Unmarshal(bytes.NewBuffer(data), 0)
		assert.Equal(t, ErrInvalidPackage, jerrors.Cause(err))
	})
}

func TestHandlePkgHandlerChunkedStream(t *testing.T) {
	handler := NewHandlePkgHandler(0)
	origin := NewHandlePackage(11, "binary", bytes.Repeat([]byte{0xAB}, 64))
	data := marshalToBytes(t, origin)

	t.Run("头未到齐", func(t *testing.T) {
		pkg, pkgLen, err := handler.Read(nil, data[:5])
		require.NoError(t, err)
		assert.Nil(t, pkg)
		assert.Equal(t, 0, pkgLen)
	})

	t.Run("仅有包头时报出完整包长", func(t *testing.T) {
		pkg, pkgLen, err := handler.Read(nil, data[:pkgHeaderSize])
		require.NoError(t, err)
		assert.Nil(t, pkg)
		assert.Equal(t, len(data), pkgLen)
	})

	t.Run("完整包", func(t *testing.T) {
		pkg, pkgLen, err := handler.Read(nil, data)
		require.NoError(t, err)
		assert.Equal(t, len(data), pkgLen)
		parsed, ok := pkg.(*HandlePackage)
		require.True(t, ok)
		assert.Equal(t, uint32(11), parsed.Header.Sequence)
	})

	t.Run("坏魔数直接断连", func(t *testing.T) {
		bad := append([]byte(nil), data...)
		bad[0] = 0xFF
		pkg, pkgLen, err := handler.Read(nil, bad)
		require.Error(t, err)
		assert.Equal(t, ErrIllegalMagic, jerrors.Cause(err))
		assert.Nil(t, pkg)
		assert.Equal(t, 0, pkgLen)
	})

	t.Run("写回与读取对称", func(t *testing.T) {
		out, err := handler.Write(nil, origin)
		require.NoError(t, err)
		assert.Equal(t, data, out)
	})

	t.Run("拒绝写入其它类型", func(t *testing.T) {
		_, err := handler.Write(nil, "not-a-package")
		require.Error(t, err)
	})
}
