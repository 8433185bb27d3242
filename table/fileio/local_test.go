package fileio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhukovaskychina/xiceberg/table/basic"
)

func TestLocalFileIOReadWrite(t *testing.T) {
	dir := t.TempDir()
	io := NewLocalFileIO()

	t.Run("写入再读取", func(t *testing.T) {
		path := filepath.Join(dir, "data", "v1.metadata.json")
		out, err := io.NewOutputFile(path)
		require.NoError(t, err)
		require.NoError(t, out.Write([]byte("hello")))

		in, err := io.NewInputFile(path)
		require.NoError(t, err)
		exists, err := in.Exists()
		require.NoError(t, err)
		assert.True(t, exists)

		data, err := in.ReadAll()
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), data)
	})

	t.Run("覆盖写入", func(t *testing.T) {
		path := filepath.Join(dir, "overwrite.txt")
		out, err := io.NewOutputFile(path)
		require.NoError(t, err)
		require.NoError(t, out.Write([]byte("first")))
		require.NoError(t, out.Write([]byte("second")))

		in, err := io.NewInputFile(path)
		require.NoError(t, err)
		data, err := in.ReadAll()
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), data)
	})

	t.Run("file前缀路径", func(t *testing.T) {
		path := filepath.Join(dir, "prefixed.txt")
		out, err := io.NewOutputFile("file://" + path)
		require.NoError(t, err)
		require.NoError(t, out.Write([]byte("via scheme")))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []byte("via scheme"), data)
	})
}

func TestLocalFileIOWriteExclusive(t *testing.T) {
	dir := t.TempDir()
	io := NewLocalFileIO()
	path := filepath.Join(dir, "v2.metadata.json")

	out, err := io.NewOutputFile(path)
	require.NoError(t, err)
	require.NoError(t, out.WriteExclusive([]byte("winner")))

	err = out.WriteExclusive([]byte("loser"))
	require.Error(t, err)
	assert.True(t, basic.IsCommitConflict(err))

	in, err := io.NewInputFile(path)
	require.NoError(t, err)
	data, err := in.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []byte("winner"), data)
}

func TestLocalFileIODelete(t *testing.T) {
	dir := t.TempDir()
	io := NewLocalFileIO()
	path := filepath.Join(dir, "gone.txt")

	out, err := io.NewOutputFile(path)
	require.NoError(t, err)
	require.NoError(t, out.Write([]byte("x")))
	require.NoError(t, io.DeleteFile(path))

	in, err := io.NewInputFile(path)
	require.NoError(t, err)
	exists, err := in.Exists()
	require.NoError(t, err)
	assert.False(t, exists)

	assert.Error(t, io.DeleteFile(path))
}

func TestLocalFileIOClose(t *testing.T) {
	dir := t.TempDir()
	io := NewLocalFileIO()
	path := filepath.Join(dir, "closed.txt")

	out, err := io.NewOutputFile(path)
	require.NoError(t, err)
	require.NoError(t, out.Write([]byte("x")))
	in, err := io.NewInputFile(path)
	require.NoError(t, err)

	require.NoError(t, io.Close())

	t.Run("关闭后再关闭", func(t *testing.T) {
		err := io.Close()
		require.Error(t, err)
		assert.True(t, basic.IsIOClosed(err))
	})

	t.Run("关闭后的句柄操作失败", func(t *testing.T) {
		_, err := io.NewInputFile(path)
		assert.True(t, basic.IsIOClosed(err))
		_, err = io.NewOutputFile(path)
		assert.True(t, basic.IsIOClosed(err))
		assert.True(t, basic.IsIOClosed(io.DeleteFile(path)))

		_, err = in.ReadAll()
		assert.True(t, basic.IsIOClosed(err))
		_, err = in.Exists()
		assert.True(t, basic.IsIOClosed(err))
		assert.True(t, basic.IsIOClosed(out.Write([]byte("y"))))
		assert.True(t, basic.IsIOClosed(out.WriteExclusive([]byte("y"))))
	})

	t.Run("文件内容不受关闭影响", func(t *testing.T) {
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, []byte("x"), data)
	})
}
