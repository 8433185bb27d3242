package handle

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhukovaskychina/xiceberg/table/basic"
	"github.com/zhukovaskychina/xiceberg/table/fileio"
	"github.com/zhukovaskychina/xiceberg/table/metadata"
)

// fakeOps is an in-memory TableOperations for handle tests
type fakeOps struct {
	mu        sync.Mutex
	meta      *metadata.TableMetadata
	io        basic.FileIO
	metaLoc   string
	conflicts int
}

func newFakeOps(meta *metadata.TableMetadata, io basic.FileIO) *fakeOps {
	return &fakeOps{
		meta:    meta,
		io:      io,
		metaLoc: meta.Location + "/metadata/v1.metadata.json",
	}
}

func (o *fakeOps) Current() *metadata.TableMetadata {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.meta
}

func (o *fakeOps) Refresh() (*metadata.TableMetadata, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.meta, nil
}

func (o *fakeOps) Commit(base, updated *metadata.TableMetadata) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.conflicts > 0 {
		o.conflicts--
		return basic.ErrCommitConflict
	}
	if base == nil || !base.Equal(o.meta) {
		return basic.ErrCommitConflict
	}
	o.meta = updated
	return nil
}

func (o *fakeOps) IO() basic.FileIO {
	return o.io
}

func (o *fakeOps) MetadataLocation() string {
	return o.metaLoc
}

// handleTestMetadata builds a partitioned, sorted, snapshot-bearing metadata
func handleTestMetadata(t *testing.T, location string) *metadata.TableMetadata {
	t.Helper()
	schema, err := metadata.NewSchemaBuilder(0).
		AddColumn("id", metadata.LongType(), metadata.Required()).
		AddColumn("data", metadata.StringType()).
		AddColumn("date", metadata.StringType(), metadata.Required()).
		AddColumn("double", metadata.DoubleType()).
		Build()
	require.NoError(t, err)
	spec, err := metadata.NewPartitionSpecBuilder(schema).Identity("date").Build()
	require.NoError(t, err)
	order, err := metadata.NewSortOrderBuilder(schema).Asc("id").Build()
	require.NoError(t, err)
	props := map[string]string{
		"k1":              "v1",
		"io.cache.enable": "true",
	}
	meta, err := metadata.NewTableMetadata(schema, spec, order, location, props)
	require.NoError(t, err)

	snapID := metadata.NewSnapshotID()
	meta, err = metadata.NewMetadataBuilder(meta).
		AddSnapshot(&metadata.Snapshot{
			SnapshotID:   snapID,
			Operation:    metadata.OPERATION_APPEND,
			ManifestList: location + "/metadata/snap-1.avro",
			Summary: map[string]string{
				metadata.SUMMARY_ADDED_RECORDS:    "100",
				metadata.SUMMARY_ADDED_DATA_FILES: "5",
			},
		}).
		SetCurrentSnapshot(snapID).
		Build()
	require.NoError(t, err)
	return meta
}

// trackedStore resets the named store and routes the track:// scheme through
// a fresh counting registry
func trackedStore(t *testing.T, store string) *fileio.TrackingRegistry {
	t.Helper()
	fileio.ResetMemStore(store)
	registry := fileio.NewTrackingRegistry()
	fileio.Register("track", func(location string, props map[string]string) (basic.FileIO, error) {
		mem := fileio.NewMemFileIO("mem://" + strings.TrimPrefix(location, "track://"))
		return registry.Wrap(mem), nil
	})
	return registry
}

func newTestBaseTable(t *testing.T, location string) (*BaseTable, *fakeOps) {
	t.Helper()
	meta := handleTestMetadata(t, location)
	io, err := fileio.Resolve(location, nil)
	require.NoError(t, err)
	ops := newFakeOps(meta, io)
	return NewBaseTable(ops, "events"), ops
}

func TestCopyOfBaseTable(t *testing.T) {
	fileio.ResetMemStore("h-copy")
	base, ops := newTestBaseTable(t, "mem://h-copy/db/events")

	handle, err := CopyOf(base)
	require.NoError(t, err)

	assert.Equal(t, HANDLE_KIND_TABLE, handle.Kind())
	assert.Equal(t, METADATA_TABLE_NONE, handle.ViewType())
	assert.Equal(t, SLOT_STATE_EMPTY, handle.ResourceState())
	assert.Equal(t, "events", handle.Name())
	assert.Equal(t, base.Location(), handle.Location())
	assert.Equal(t, ops.MetadataLocation(), handle.MetadataLocation())

	t.Run("快照与源表逐项一致", func(t *testing.T) {
		assert.True(t, base.Schema().Equal(handle.Schema()))
		assert.True(t, base.Spec().Equal(handle.Spec()))
		assert.Equal(t, base.Properties(), handle.Properties())
		require.NotNil(t, handle.CurrentSnapshot())
		assert.Equal(t, base.CurrentSnapshot().SnapshotID, handle.CurrentSnapshot().SnapshotID)
		assert.Len(t, handle.Snapshots(), len(base.Snapshots()))
	})

	t.Run("快照是深拷贝", func(t *testing.T) {
		assert.True(t, base.Metadata().Equal(handle.Metadata()))
		assert.NotSame(t, base.Metadata(), handle.Metadata())
	})
}

func TestCopyOfSerializableTable(t *testing.T) {
	trackedStore(t, "h-recopy")
	base, _ := newTestBaseTable(t, "track://h-recopy/db/events")

	first, err := CopyOf(base)
	require.NoError(t, err)
	_, err = first.IO()
	require.NoError(t, err)
	require.Equal(t, SLOT_STATE_OPEN, first.ResourceState())

	// 再拷贝得到全新句柄，资源槽从空开始
	second, err := CopyOf(first)
	require.NoError(t, err)
	assert.Equal(t, SLOT_STATE_EMPTY, second.ResourceState())
	assert.True(t, first.Metadata().Equal(second.Metadata()))
	assert.NotSame(t, first.Metadata(), second.Metadata())

	require.NoError(t, second.Close())
	assert.Equal(t, SLOT_STATE_OPEN, first.ResourceState())
}

func TestCopyOfNil(t *testing.T) {
	_, err := CopyOf(nil)
	assert.Error(t, err)
}

func TestHandleIOLifecycle(t *testing.T) {
	registry := trackedStore(t, "h-io")
	base, _ := newTestBaseTable(t, "track://h-io/db/events")

	handle, err := CopyOf(base)
	require.NoError(t, err)

	first, err := handle.IO()
	require.NoError(t, err)
	assert.Equal(t, SLOT_STATE_OPEN, handle.ResourceState())

	second, err := handle.IO()
	require.NoError(t, err)
	assert.Same(t, first, second)

	require.NoError(t, handle.Close())
	assert.Equal(t, SLOT_STATE_CLOSED, handle.ResourceState())
	require.NoError(t, handle.Close())

	_, err = handle.IO()
	require.Error(t, err)
	assert.True(t, basic.IsClosedHandle(err))

	// 句柄自己的资源恰好关闭一次
	instances := registry.Instances()
	require.Len(t, instances, 2)
	assert.Equal(t, int64(0), instances[0].CloseCount())
	assert.Equal(t, int64(1), instances[1].CloseCount())
}

func TestCloseCountScenario(t *testing.T) {
	registry := trackedStore(t, "h-count")
	base, _ := newTestBaseTable(t, "track://h-count/db/events")
	originIO := registry.Instances()[0]

	t.Run("未取资源的拷贝关闭后计数为零", func(t *testing.T) {
		handle, err := CopyOf(base)
		require.NoError(t, err)
		require.NoError(t, handle.Close())

		assert.Equal(t, int64(0), originIO.CloseCount())
		assert.Equal(t, int64(0), registry.TotalCloses())
		// 没有任何新资源被构建
		assert.Len(t, registry.Instances(), 1)
	})

	t.Run("取过资源的拷贝恰好关闭自己的资源一次", func(t *testing.T) {
		handle, err := CopyOf(base)
		require.NoError(t, err)
		_, err = handle.IO()
		require.NoError(t, err)
		require.NoError(t, handle.Close())

		instances := registry.Instances()
		require.Len(t, instances, 2)
		assert.Equal(t, int64(0), originIO.CloseCount())
		assert.Equal(t, int64(1), instances[1].CloseCount())
		assert.Equal(t, int64(1), registry.TotalCloses())
	})
}

func TestSizeEstimate(t *testing.T) {
	fileio.ResetMemStore("h-size")
	base, _ := newTestBaseTable(t, "mem://h-size/db/events")

	handle, err := CopyOf(base)
	require.NoError(t, err)
	raw, err := handle.Metadata().ToJSON()
	require.NoError(t, err)

	estimate := handle.SizeEstimate()
	assert.Greater(t, estimate, int64(len(raw)))
	// 估算在捕获时计算一次，之后保持稳定
	assert.Equal(t, estimate, handle.SizeEstimate())
}
