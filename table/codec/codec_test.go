package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhukovaskychina/xiceberg/table/basic"
	"github.com/zhukovaskychina/xiceberg/table/handle"
	"github.com/zhukovaskychina/xiceberg/util"
)

func TestRegistry(t *testing.T) {
	assert.Equal(t, []string{CODEC_BINARY, CODEC_GOB}, Names())

	binary, err := Get(CODEC_BINARY)
	require.NoError(t, err)
	assert.Equal(t, CODEC_BINARY, binary.Name())

	gobCodec, err := Get(CODEC_GOB)
	require.NoError(t, err)
	assert.Equal(t, CODEC_GOB, gobCodec.Name())

	_, err = Get("thrift")
	assert.Error(t, err)
}

func TestCompressionFromName(t *testing.T) {
	for name, want := range map[string]uint8{
		"":       COMPRESS_NONE,
		"none":   COMPRESS_NONE,
		"snappy": COMPRESS_SNAPPY,
		"Snappy": COMPRESS_SNAPPY,
		"lz4":    COMPRESS_LZ4,
	} {
		got, err := CompressionFromName(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := CompressionFromName("zstd")
	assert.Error(t, err)
}

func sampleProxy() *handle.Proxy {
	return &handle.Proxy{
		Kind:             handle.HANDLE_KIND_TABLE,
		Name:             "events",
		Location:         "mem://wire/db/events",
		MetadataLocation: "mem://wire/db/events/metadata/v3.metadata.json",
		ViewType:         handle.METADATA_TABLE_NONE,
		MetadataJSON:     []byte(`{"format-version":2,"location":"mem://wire/db/events"}`),
		IOProps:          map[string]string{"io.cache.enable": "true", "io.buffer": "4096"},
		SizeEstimate:     512,
	}
}

func assertProxyEqual(t *testing.T, want, got *handle.Proxy) {
	t.Helper()
	assert.Equal(t, want.Kind, got.Kind)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.Location, got.Location)
	assert.Equal(t, want.MetadataLocation, got.MetadataLocation)
	assert.Equal(t, want.ViewType, got.ViewType)
	assert.Equal(t, want.MetadataJSON, got.MetadataJSON)
	assert.Equal(t, want.IOProps, got.IOProps)
	assert.Equal(t, want.SizeEstimate, got.SizeEstimate)
}

func TestBinaryFrameRoundTrip(t *testing.T) {
	for name, compression := range map[string]uint8{
		"无压缩":    COMPRESS_NONE,
		"snappy": COMPRESS_SNAPPY,
		"lz4":    COMPRESS_LZ4,
	} {
		t.Run(name, func(t *testing.T) {
			c := NewBinaryCodec(compression)
			origin := sampleProxy()
			frame, err := c.Encode(origin)
			require.NoError(t, err)

			decoded, err := c.Decode(frame)
			require.NoError(t, err)
			assertProxyEqual(t, origin, decoded)
		})
	}
}

func TestBinaryDecodeHonoursFrameFlag(t *testing.T) {
	// 压缩帧可以由配置不同的实例解码
	frame, err := NewBinaryCodec(COMPRESS_SNAPPY).Encode(sampleProxy())
	require.NoError(t, err)
	decoded, err := NewBinaryCodec(COMPRESS_NONE).Decode(frame)
	require.NoError(t, err)
	assertProxyEqual(t, sampleProxy(), decoded)
}

func TestBinaryDecodeRejectsCorruptFrames(t *testing.T) {
	c := NewBinaryCodec(COMPRESS_NONE)
	frame, err := c.Encode(sampleProxy())
	require.NoError(t, err)

	// reseal recomputes the checksum so the mutation itself is what decode sees
	reseal := func(data []byte) []byte {
		payload := data[:len(data)-checksumSize]
		return util.WriteUB8(append([]byte(nil), payload...), util.HashCode(payload))
	}

	cases := []struct {
		name   string
		mutate func() []byte
	}{
		{"错误的magic", func() []byte {
			bad := append([]byte(nil), frame...)
			bad[0] ^= 0xFF
			return reseal(bad)
		}},
		{"不支持的版本", func() []byte {
			bad := append([]byte(nil), frame...)
			bad[4] = 99
			return reseal(bad)
		}},
		{"未知压缩标志", func() []byte {
			bad := append([]byte(nil), frame...)
			bad[7] = 99
			return reseal(bad)
		}},
		{"校验和不匹配", func() []byte {
			bad := append([]byte(nil), frame...)
			bad[len(bad)-1] ^= 0xFF
			return bad
		}},
		{"载荷被篡改", func() []byte {
			bad := append([]byte(nil), frame...)
			bad[10] ^= 0xFF
			return bad
		}},
		{"截断的帧", func() []byte {
			return append([]byte(nil), frame[:len(frame)/2]...)
		}},
		{"空输入", func() []byte {
			return nil
		}},
		{"只有magic", func() []byte {
			return append([]byte(nil), frame[:4]...)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decoded, err := c.Decode(tc.mutate())
			require.Error(t, err)
			assert.True(t, basic.IsDeserialization(err), "got %v", err)
			assert.Nil(t, decoded)
		})
	}
}

func TestBinaryDecodeRejectsTrailingBytes(t *testing.T) {
	c := NewBinaryCodec(COMPRESS_NONE)
	frame, err := c.Encode(sampleProxy())
	require.NoError(t, err)

	// 在载荷与校验和之间塞入额外字节并重封
	payload := frame[:len(frame)-checksumSize]
	padded := append(append([]byte(nil), payload...), 0xAB, 0xCD)
	padded = util.WriteUB8(padded, util.HashCode(padded))

	_, err = c.Decode(padded)
	require.Error(t, err)
	assert.True(t, basic.IsDeserialization(err))
}

func TestGobFrameRoundTrip(t *testing.T) {
	c := NewGobCodec()
	origin := sampleProxy()
	frame, err := c.Encode(origin)
	require.NoError(t, err)

	decoded, err := c.Decode(frame)
	require.NoError(t, err)
	assertProxyEqual(t, origin, decoded)
}

func TestGobDecodeRejectsGarbage(t *testing.T) {
	c := NewGobCodec()
	for _, bad := range [][]byte{nil, {}, []byte("not a gob stream"), {0x01, 0x02, 0x03}} {
		_, err := c.Decode(bad)
		require.Error(t, err)
		assert.True(t, basic.IsDeserialization(err))
	}

	t.Run("截断的gob流", func(t *testing.T) {
		frame, err := c.Encode(sampleProxy())
		require.NoError(t, err)
		_, err = c.Decode(frame[:len(frame)/2])
		require.Error(t, err)
		assert.True(t, basic.IsDeserialization(err))
	})
}
