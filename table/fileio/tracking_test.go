package fileio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhukovaskychina/xiceberg/table/basic"
)

func TestTrackingFileIOCounts(t *testing.T) {
	ResetMemStore("track")
	tracked := NewTrackingFileIO(NewMemFileIO("mem://track/db/tbl"))

	out, err := tracked.NewOutputFile("mem://track/db/tbl/f")
	require.NoError(t, err)
	require.NoError(t, out.Write([]byte("one")))
	require.NoError(t, out.Write([]byte("two")))
	assert.Equal(t, int64(2), tracked.WriteCount())

	in, err := tracked.NewInputFile("mem://track/db/tbl/f")
	require.NoError(t, err)
	_, err = in.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, int64(1), tracked.ReadCount())

	t.Run("失败的操作不计数", func(t *testing.T) {
		missing, err := tracked.NewInputFile("mem://track/db/tbl/absent")
		require.NoError(t, err)
		_, err = missing.ReadAll()
		require.Error(t, err)
		assert.Equal(t, int64(1), tracked.ReadCount())
	})

	t.Run("关闭只计一次", func(t *testing.T) {
		assert.Equal(t, int64(0), tracked.CloseCount())
		require.NoError(t, tracked.Close())
		assert.Equal(t, int64(1), tracked.CloseCount())

		err := tracked.Close()
		assert.True(t, basic.IsIOClosed(err))
		assert.Equal(t, int64(1), tracked.CloseCount())
	})
}

func TestTrackingRegistry(t *testing.T) {
	ResetMemStore("reg")
	registry := NewTrackingRegistry()

	first := registry.Wrap(NewMemFileIO("mem://reg/db/tbl"))
	second := registry.Wrap(NewMemFileIO("mem://reg/db/tbl"))
	assert.Len(t, registry.Instances(), 2)
	assert.Equal(t, int64(0), registry.TotalCloses())

	require.NoError(t, first.Close())
	assert.Equal(t, int64(1), registry.TotalCloses())

	require.NoError(t, second.Close())
	assert.Equal(t, int64(2), registry.TotalCloses())
}
