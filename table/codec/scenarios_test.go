package codec

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhukovaskychina/xiceberg/table/basic"
	"github.com/zhukovaskychina/xiceberg/table/fileio"
	"github.com/zhukovaskychina/xiceberg/table/handle"
	"github.com/zhukovaskychina/xiceberg/table/metadata"
	"github.com/zhukovaskychina/xiceberg/table/ops"
)

// newWarehouseTable commits a partitioned, sorted table onto a fresh mem
// store and returns the live table
func newWarehouseTable(t *testing.T, store, name string) *handle.BaseTable {
	t.Helper()
	fileio.ResetMemStore(store)

	schema, err := metadata.NewSchemaBuilder(0).
		AddColumn("id", metadata.LongType(), metadata.Required()).
		AddColumn("category", metadata.StringType(), metadata.Required()).
		AddColumn("payload", metadata.StringType()).
		Build()
	require.NoError(t, err)
	spec, err := metadata.NewPartitionSpecBuilder(schema).Identity("category").Build()
	require.NoError(t, err)
	order, err := metadata.NewSortOrderBuilder(schema).Asc("id").Build()
	require.NoError(t, err)

	warehouse := ops.NewFileSystemTables()
	location := fmt.Sprintf("mem://%s/db/%s", store, name)
	table, err := warehouse.Create(schema, spec, order,
		map[string]string{"owner": "analytics", "io.cache.enable": "true"}, location)
	require.NoError(t, err)
	return table
}

// Every codec must carry every handle flavor across the wire without loss:
// the base table, each metadata view and a transaction handle with pending
// state.
func TestWireRoundTripAcrossCodecs(t *testing.T) {
	for i, codecName := range Names() {
		codecName := codecName
		store := fmt.Sprintf("wire-matrix-%d", i)
		t.Run(codecName, func(t *testing.T) {
			table := newWarehouseTable(t, store, "events")
			wire, err := Get(codecName)
			require.NoError(t, err)

			roundTrip := func(t *testing.T, src basic.Table) *handle.SerializableTable {
				t.Helper()
				captured, err := handle.CopyOf(src)
				require.NoError(t, err)
				proxy, err := captured.Proxy()
				require.NoError(t, err)
				frame, err := wire.Encode(proxy)
				require.NoError(t, err)
				decoded, err := wire.Decode(frame)
				require.NoError(t, err)
				restored, err := handle.FromProxy(decoded)
				require.NoError(t, err)
				assert.Equal(t, handle.SLOT_STATE_EMPTY, restored.ResourceState())
				return restored
			}

			t.Run("基表句柄", func(t *testing.T) {
				restored := roundTrip(t, table)
				assert.Equal(t, handle.HANDLE_KIND_TABLE, restored.Kind())
				assert.Equal(t, table.Name(), restored.Name())
				assert.Equal(t, table.Location(), restored.Location())
				assert.True(t, table.Metadata().Equal(restored.Metadata()))
				assert.Equal(t, table.Properties()["owner"], restored.Properties()["owner"])
			})

			t.Run("全部元数据视图句柄", func(t *testing.T) {
				for _, viewType := range handle.MetadataTableTypes() {
					view, err := handle.CreateMetadataTable(table.Operations(), table.Name(),
						table.Name()+"."+viewType.String(), viewType)
					require.NoError(t, err, viewType.String())

					restored := roundTrip(t, view)
					assert.Equal(t, handle.HANDLE_KIND_METADATA_VIEW, restored.Kind(), viewType.String())
					assert.Equal(t, viewType, restored.ViewType(), viewType.String())
					assert.Equal(t, view.Name(), restored.Name(), viewType.String())
					assert.True(t, view.Schema().Equal(restored.Schema()), viewType.String())
				}
			})

			t.Run("事务句柄携带未提交状态", func(t *testing.T) {
				txn, err := table.NewTransaction()
				require.NoError(t, err)
				require.NoError(t, txn.UpdateProperties().Set("retention.days", "30").Commit())

				restored := roundTrip(t, txn.Table())
				assert.Equal(t, handle.HANDLE_KIND_TRANSACTION, restored.Kind())
				assert.Equal(t, "30", restored.Properties()["retention.days"])
				// 源表看不到未提交属性
				assert.NotContains(t, table.Properties(), "retention.days")
			})
		})
	}
}

// A restored handle opens its own resource: closing it never touches the
// source table's io, and every copy counts its own close.
func TestRestoredHandleResourceIndependence(t *testing.T) {
	registry := fileio.NewTrackingRegistry()
	fileio.Register("track", func(location string, props map[string]string) (basic.FileIO, error) {
		mem := fileio.NewMemFileIO("mem://" + strings.TrimPrefix(location, "track://"))
		return registry.Wrap(mem), nil
	})
	fileio.ResetMemStore("wire-indep")

	schema, err := metadata.NewSchemaBuilder(0).
		AddColumn("id", metadata.LongType(), metadata.Required()).
		Build()
	require.NoError(t, err)

	warehouse := ops.NewFileSystemTables()
	table, err := warehouse.Create(schema, metadata.UnpartitionedSpec(), metadata.UnsortedOrder(),
		nil, "track://wire-indep/db/events")
	require.NoError(t, err)

	wire, err := Get(CODEC_BINARY)
	require.NoError(t, err)

	ship := func(t *testing.T) *handle.SerializableTable {
		t.Helper()
		captured, err := handle.CopyOf(table)
		require.NoError(t, err)
		proxy, err := captured.Proxy()
		require.NoError(t, err)
		frame, err := wire.Encode(proxy)
		require.NoError(t, err)
		decoded, err := wire.Decode(frame)
		require.NoError(t, err)
		restored, err := handle.FromProxy(decoded)
		require.NoError(t, err)
		return restored
	}

	first := ship(t)
	second := ship(t)

	firstIO, err := first.IO()
	require.NoError(t, err)
	secondIO, err := second.IO()
	require.NoError(t, err)
	assert.NotSame(t, firstIO, secondIO)

	baseline := registry.TotalCloses()
	require.NoError(t, first.Close())
	assert.Equal(t, baseline+1, registry.TotalCloses())
	assert.Equal(t, handle.SLOT_STATE_OPEN, second.ResourceState())

	t.Run("关闭后拒绝重新取用", func(t *testing.T) {
		_, err := first.IO()
		require.Error(t, err)
		assert.True(t, basic.IsClosedHandle(err))
	})

	t.Run("重复关闭幂等", func(t *testing.T) {
		require.NoError(t, first.Close())
		assert.Equal(t, baseline+1, registry.TotalCloses())
	})

	require.NoError(t, second.Close())
	assert.Equal(t, baseline+2, registry.TotalCloses())
}
