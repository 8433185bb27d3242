package ops

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhukovaskychina/xiceberg/table/basic"
	"github.com/zhukovaskychina/xiceberg/table/fileio"
	"github.com/zhukovaskychina/xiceberg/table/metadata"
)

func newTestMetadata(t *testing.T, location string) *metadata.TableMetadata {
	t.Helper()
	schema, err := metadata.NewSchemaBuilder(0).
		AddColumn("id", metadata.LongType(), metadata.Required()).
		AddColumn("data", metadata.StringType()).
		Build()
	require.NoError(t, err)
	meta, err := metadata.NewTableMetadata(schema, nil, nil, location, map[string]string{"k1": "v1"})
	require.NoError(t, err)
	return meta
}

func memOps(t *testing.T, store, location string) *FileSystemOperations {
	t.Helper()
	io, err := fileio.Resolve(location, nil)
	require.NoError(t, err)
	return NewFileSystemOperations(io, location)
}

func TestCommitAndRefresh(t *testing.T) {
	fileio.ResetMemStore("ops-commit")
	location := "mem://ops-commit/db/events"
	ops := memOps(t, "ops-commit", location)
	meta := newTestMetadata(t, location)

	require.NoError(t, ops.Commit(nil, meta))
	assert.True(t, strings.HasSuffix(ops.MetadataLocation(), "v1.metadata.json"))
	assert.True(t, meta.Equal(ops.Current()))

	t.Run("独立操作层可读取已提交元数据", func(t *testing.T) {
		other := memOps(t, "ops-commit", location)
		loaded, err := other.Refresh()
		require.NoError(t, err)
		assert.True(t, meta.Equal(loaded))
	})

	t.Run("第二次提交生成下一个版本", func(t *testing.T) {
		updated, err := metadata.NewMetadataBuilder(ops.Current()).
			SetProperties(map[string]string{"k2": "v2"}).
			Build()
		require.NoError(t, err)
		require.NoError(t, ops.Commit(ops.Current(), updated))
		assert.True(t, strings.HasSuffix(ops.MetadataLocation(), "v2.metadata.json"))
		assert.Equal(t, "v2", ops.Current().Property("k2", ""))
	})
}

func TestCommitStaleBase(t *testing.T) {
	fileio.ResetMemStore("ops-stale")
	location := "mem://ops-stale/db/events"
	first := memOps(t, "ops-stale", location)
	require.NoError(t, first.Commit(nil, newTestMetadata(t, location)))

	second := memOps(t, "ops-stale", location)
	_, err := second.Refresh()
	require.NoError(t, err)
	staleBase := second.Current()

	// first 先行提交
	winner, err := metadata.NewMetadataBuilder(first.Current()).
		SetProperties(map[string]string{"winner": "first"}).
		Build()
	require.NoError(t, err)
	require.NoError(t, first.Commit(first.Current(), winner))

	loser, err := metadata.NewMetadataBuilder(staleBase).
		SetProperties(map[string]string{"winner": "second"}).
		Build()
	require.NoError(t, err)
	err = second.Commit(staleBase, loser)
	require.Error(t, err)
	assert.True(t, basic.IsCommitConflict(err))

	t.Run("刷新后重新提交成功", func(t *testing.T) {
		fresh, err := second.Refresh()
		require.NoError(t, err)
		retried, err := metadata.NewMetadataBuilder(fresh).
			SetProperties(map[string]string{"winner": "second"}).
			Build()
		require.NoError(t, err)
		require.NoError(t, second.Commit(fresh, retried))
	})
}

func TestCommitVersionFileRace(t *testing.T) {
	fileio.ResetMemStore("ops-race")
	location := "mem://ops-race/db/events"
	first := memOps(t, "ops-race", location)
	second := memOps(t, "ops-race", location)

	// 两个操作层都认为表不存在，先写者胜出
	require.NoError(t, first.Commit(nil, newTestMetadata(t, location)))
	err := second.Commit(nil, newTestMetadata(t, location))
	require.Error(t, err)
	assert.True(t, basic.IsCommitConflict(err))
}

func TestRefreshFailures(t *testing.T) {
	fileio.ResetMemStore("ops-refresh")
	location := "mem://ops-refresh/db/events"

	t.Run("无版本提示文件", func(t *testing.T) {
		ops := memOps(t, "ops-refresh", location)
		_, err := ops.Refresh()
		require.Error(t, err)
		assert.True(t, basic.IsTableNotFound(err))
	})

	t.Run("版本提示内容损坏", func(t *testing.T) {
		ops := memOps(t, "ops-refresh", location)
		require.NoError(t, ops.Commit(nil, newTestMetadata(t, location)))

		hint, err := ops.IO().NewOutputFile(location + "/metadata/" + VERSION_HINT_FILE)
		require.NoError(t, err)
		require.NoError(t, hint.Write([]byte("not-a-number")))
		_, err = ops.Refresh()
		assert.Error(t, err)
	})
}

func TestPruneOldVersions(t *testing.T) {
	fileio.ResetMemStore("ops-prune")
	location := "mem://ops-prune/db/events"
	ops := memOps(t, "ops-prune", location)
	ops.SetMetadataKeepCount(2)

	require.NoError(t, ops.Commit(nil, newTestMetadata(t, location)))
	for i := 0; i < 4; i++ {
		updated, err := metadata.NewMetadataBuilder(ops.Current()).
			SetProperties(map[string]string{"round": string(rune('a' + i))}).
			Build()
		require.NoError(t, err)
		require.NoError(t, ops.Commit(ops.Current(), updated))
	}
	assert.True(t, strings.HasSuffix(ops.MetadataLocation(), "v5.metadata.json"))

	checkVersion := func(version string, want bool) {
		in, err := ops.IO().NewInputFile(location + "/metadata/" + version)
		require.NoError(t, err)
		exists, err := in.Exists()
		require.NoError(t, err)
		assert.Equal(t, want, exists, version)
	}
	checkVersion("v1.metadata.json", false)
	checkVersion("v2.metadata.json", false)
	checkVersion("v3.metadata.json", false)
	checkVersion("v4.metadata.json", true)
	checkVersion("v5.metadata.json", true)
}
