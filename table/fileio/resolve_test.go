package fileio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheme(t *testing.T) {
	assert.Equal(t, "mem", Scheme("mem://wh/db/tbl"))
	assert.Equal(t, "file", Scheme("file:///tmp/wh"))
	assert.Equal(t, "", Scheme("/tmp/wh"))
	assert.Equal(t, "", Scheme("relative/path"))
}

func TestResolveBuiltinSchemes(t *testing.T) {
	t.Run("本地路径", func(t *testing.T) {
		io, err := Resolve("/tmp/wh/db/tbl", nil)
		require.NoError(t, err)
		_, ok := io.(*LocalFileIO)
		assert.True(t, ok)
	})

	t.Run("file协议", func(t *testing.T) {
		io, err := Resolve("file:///tmp/wh/db/tbl", nil)
		require.NoError(t, err)
		_, ok := io.(*LocalFileIO)
		assert.True(t, ok)
	})

	t.Run("mem协议", func(t *testing.T) {
		io, err := Resolve("mem://wh/db/tbl", nil)
		require.NoError(t, err)
		_, ok := io.(*MemFileIO)
		assert.True(t, ok)
	})

	t.Run("未注册协议", func(t *testing.T) {
		_, err := Resolve("s3://bucket/db/tbl", nil)
		assert.Error(t, err)
	})
}

func TestResolveReturnsIndependentInstances(t *testing.T) {
	ResetMemStore("resolve")
	first, err := Resolve("mem://resolve/db/tbl", nil)
	require.NoError(t, err)
	second, err := Resolve("mem://resolve/db/tbl", nil)
	require.NoError(t, err)

	require.NoError(t, first.Close())

	// first 关闭后 second 依然可用
	out, err := second.NewOutputFile("mem://resolve/db/tbl/f")
	require.NoError(t, err)
	require.NoError(t, out.Write([]byte("alive")))
}

func TestFactoryFor(t *testing.T) {
	ResetMemStore("factory")
	factory := FactoryFor("mem://factory/db/tbl", map[string]string{"io.buffer": "4096"})

	first, err := factory()
	require.NoError(t, err)
	second, err := factory()
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}
