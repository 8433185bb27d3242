package main

import (
	"fmt"
	"strings"

	"github.com/zhukovaskychina/xiceberg/table/codec"
	"github.com/zhukovaskychina/xiceberg/table/fileio"
	"github.com/zhukovaskychina/xiceberg/table/handle"
	"github.com/zhukovaskychina/xiceberg/table/metadata"
	"github.com/zhukovaskychina/xiceberg/table/ops"
)

func main() {
	fmt.Println("=== XIceberg 元数据视图句柄演示 ===")
	fmt.Println()

	fileio.ResetMemStore("demo-views")
	defer func() {
		fmt.Println("\n清理演示数据...")
		fileio.ResetMemStore("demo-views")
	}()

	// === 1. 建表并提交一个快照 ===
	fmt.Println(" 第一步: 建表并提交一个 append 快照")
	schema, err := metadata.NewSchemaBuilder(0).
		AddColumn("id", metadata.LongType(), metadata.Required()).
		AddColumn("region", metadata.StringType(), metadata.Required()).
		AddColumn("amount", metadata.DoubleType()).
		Build()
	if err != nil {
		fmt.Println(" 构建 schema 失败:", err)
		return
	}
	spec, err := metadata.NewPartitionSpecBuilder(schema).Identity("region").Build()
	if err != nil {
		fmt.Println(" 构建分区规格失败:", err)
		return
	}

	warehouse := ops.NewFileSystemTables()
	table, err := warehouse.Create(schema, spec, metadata.UnsortedOrder(),
		map[string]string{"owner": "billing"}, "mem://demo-views/db/orders")
	if err != nil {
		fmt.Println(" 建表失败:", err)
		return
	}

	snapID := metadata.NewSnapshotID()
	updated, err := metadata.NewMetadataBuilder(table.Metadata()).
		AddSnapshot(&metadata.Snapshot{
			SnapshotID:   snapID,
			Operation:    metadata.OPERATION_APPEND,
			ManifestList: table.Location() + "/metadata/snap-1.avro",
			Summary: map[string]string{
				metadata.SUMMARY_ADDED_RECORDS:    "1200",
				metadata.SUMMARY_ADDED_DATA_FILES: "6",
			},
		}).
		SetCurrentSnapshot(snapID).
		Build()
	if err != nil {
		fmt.Println(" 构建新元数据失败:", err)
		return
	}
	if err := table.Operations().Commit(table.Metadata(), updated); err != nil {
		fmt.Println(" 提交快照失败:", err)
		return
	}
	if _, err := table.Refresh(); err != nil {
		fmt.Println(" 刷新表失败:", err)
		return
	}
	fmt.Printf(" 表 %s 当前快照 %d\n", table.Name(), table.CurrentSnapshot().SnapshotID)
	fmt.Println()

	// === 2. 遍历全部视图类型 ===
	fmt.Println(" 第二步: 为每种视图类型构造句柄并走线往返")
	wire, err := codec.Get(codec.CODEC_GOB)
	if err != nil {
		fmt.Println(" 获取编解码器失败:", err)
		return
	}

	for _, viewType := range handle.MetadataTableTypes() {
		view, err := handle.CreateMetadataTable(table.Operations(), table.Name(),
			table.Name()+"."+viewType.String(), viewType)
		if err != nil {
			fmt.Printf("   [%s] 构造视图失败: %v\n", viewType, err)
			continue
		}

		captured, err := handle.CopyOf(view)
		if err != nil {
			fmt.Printf("   [%s] 捕获句柄失败: %v\n", viewType, err)
			continue
		}
		proxy, err := captured.Proxy()
		if err != nil {
			fmt.Printf("   [%s] 构造代理失败: %v\n", viewType, err)
			continue
		}
		frame, err := wire.Encode(proxy)
		if err != nil {
			fmt.Printf("   [%s] 编码失败: %v\n", viewType, err)
			continue
		}
		decoded, err := wire.Decode(frame)
		if err != nil {
			fmt.Printf("   [%s] 解码失败: %v\n", viewType, err)
			continue
		}
		restored, err := handle.FromProxy(decoded)
		if err != nil {
			fmt.Printf("   [%s] 还原失败: %v\n", viewType, err)
			continue
		}

		columns := make([]string, 0, len(restored.Schema().Columns))
		for _, col := range restored.Schema().Columns {
			columns = append(columns, col.Name)
		}
		fmt.Printf("   [%s] 视图列: %s\n", restored.ViewType(), strings.Join(columns, ", "))

		// 每个还原句柄独立开关自己的资源
		if _, err := restored.IO(); err != nil {
			fmt.Printf("   [%s] 打开资源失败: %v\n", viewType, err)
			continue
		}
		if err := restored.Close(); err != nil {
			fmt.Printf("   [%s] 关闭资源失败: %v\n", viewType, err)
		}
	}
	fmt.Println()

	// === 3. 视图名解析 ===
	fmt.Println(" 第三步: 视图类型按名字解析")
	for _, name := range []string{"snapshots", "PARTITIONS", "refs"} {
		typ, err := handle.ParseMetadataTableType(name)
		if err != nil {
			fmt.Printf("   %q 解析失败: %v\n", name, err)
			continue
		}
		fmt.Printf("   %q -> %s\n", name, typ)
	}

	fmt.Println()
	fmt.Println("=== 演示完成 ===")
}
