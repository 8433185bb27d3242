package main

import (
	"fmt"
	"strings"

	"github.com/zhukovaskychina/xiceberg/table/basic"
	"github.com/zhukovaskychina/xiceberg/table/codec"
	"github.com/zhukovaskychina/xiceberg/table/fileio"
	"github.com/zhukovaskychina/xiceberg/table/handle"
	"github.com/zhukovaskychina/xiceberg/table/metadata"
	"github.com/zhukovaskychina/xiceberg/table/ops"
)

func main() {
	fmt.Println("=== XIceberg 表句柄跨进程运输演示 ===")
	fmt.Println()

	// 跟踪注册表统计每个 FileIO 实例的关闭次数
	registry := fileio.NewTrackingRegistry()
	fileio.Register("track", func(location string, props map[string]string) (basic.FileIO, error) {
		mem := fileio.NewMemFileIO("mem://" + strings.TrimPrefix(location, "track://"))
		return registry.Wrap(mem), nil
	})
	defer func() {
		fmt.Println("\n清理演示数据...")
		fileio.ResetMemStore("demo-roundtrip")
	}()

	// === 1. 建表 ===
	fmt.Println(" 第一步: 在仓库中创建 events 表")
	schema, err := metadata.NewSchemaBuilder(0).
		AddColumn("id", metadata.LongType(), metadata.Required()).
		AddColumn("category", metadata.StringType(), metadata.Required()).
		AddColumn("payload", metadata.StringType()).
		AddColumn("ts", metadata.TimestampType()).
		Build()
	if err != nil {
		fmt.Println(" 构建 schema 失败:", err)
		return
	}
	spec, err := metadata.NewPartitionSpecBuilder(schema).Identity("category").Build()
	if err != nil {
		fmt.Println(" 构建分区规格失败:", err)
		return
	}
	order, err := metadata.NewSortOrderBuilder(schema).Asc("id").Build()
	if err != nil {
		fmt.Println(" 构建排序失败:", err)
		return
	}

	warehouse := ops.NewFileSystemTables()
	table, err := warehouse.Create(schema, spec, order,
		map[string]string{"owner": "analytics", "io.cache.enable": "true"},
		"track://demo-roundtrip/db/events")
	if err != nil {
		fmt.Println(" 建表失败:", err)
		return
	}
	fmt.Printf(" 表已创建: %s\n", table.Location())
	fmt.Printf(" 当前元数据: %s\n", table.Operations().MetadataLocation())
	fmt.Println()

	// === 2. 捕获句柄 ===
	fmt.Println(" 第二步: 捕获可序列化句柄")
	captured, err := handle.CopyOf(table)
	if err != nil {
		fmt.Println(" 捕获句柄失败:", err)
		return
	}
	fmt.Printf(" 句柄种类=%s 资源槽=%s 估算大小=%d 字节\n",
		captured.Kind(), captured.ResourceState(), captured.SizeEstimate())
	fmt.Println(" 句柄是元数据的独立快照，不携带任何打开的资源")
	fmt.Println()

	// === 3. 全部编解码器走线 ===
	fmt.Println(" 第三步: 经由每种编解码器往返")
	for _, name := range codec.Names() {
		wire, err := codec.Get(name)
		if err != nil {
			fmt.Printf("   [%s] 获取编解码器失败: %v\n", name, err)
			continue
		}
		proxy, err := captured.Proxy()
		if err != nil {
			fmt.Printf("   [%s] 构造代理失败: %v\n", name, err)
			continue
		}
		frame, err := wire.Encode(proxy)
		if err != nil {
			fmt.Printf("   [%s] 编码失败: %v\n", name, err)
			continue
		}
		decoded, err := wire.Decode(frame)
		if err != nil {
			fmt.Printf("   [%s] 解码失败: %v\n", name, err)
			continue
		}
		restored, err := handle.FromProxy(decoded)
		if err != nil {
			fmt.Printf("   [%s] 还原句柄失败: %v\n", name, err)
			continue
		}
		fmt.Printf("   [%s] 帧长 %d 字节, 元数据一致=%v, 资源槽=%s\n",
			name, len(frame), table.Metadata().Equal(restored.Metadata()), restored.ResourceState())
	}
	fmt.Println()

	// === 4. 副本各自开关资源 ===
	fmt.Println(" 第四步: 两个还原副本各自开关资源")
	wire, _ := codec.Get(codec.CODEC_BINARY)
	ship := func() (*handle.SerializableTable, error) {
		proxy, err := captured.Proxy()
		if err != nil {
			return nil, err
		}
		frame, err := wire.Encode(proxy)
		if err != nil {
			return nil, err
		}
		decoded, err := wire.Decode(frame)
		if err != nil {
			return nil, err
		}
		return handle.FromProxy(decoded)
	}

	first, err := ship()
	if err != nil {
		fmt.Println(" 运输第一个副本失败:", err)
		return
	}
	second, err := ship()
	if err != nil {
		fmt.Println(" 运输第二个副本失败:", err)
		return
	}

	if _, err := first.IO(); err != nil {
		fmt.Println(" 副本一打开资源失败:", err)
		return
	}
	if _, err := second.IO(); err != nil {
		fmt.Println(" 副本二打开资源失败:", err)
		return
	}
	fmt.Printf(" 两个副本均已打开: 副本一=%s 副本二=%s\n", first.ResourceState(), second.ResourceState())

	if err := first.Close(); err != nil {
		fmt.Println(" 关闭副本一失败:", err)
		return
	}
	fmt.Printf(" 关闭副本一之后: 副本一=%s 副本二=%s, 累计关闭 %d 次\n",
		first.ResourceState(), second.ResourceState(), registry.TotalCloses())
	fmt.Println()

	// === 5. 失败关闭语义 ===
	fmt.Println(" 第五步: 已关闭句柄拒绝复活")
	if _, err := first.IO(); basic.IsClosedHandle(err) {
		fmt.Println(" 再次取用得到预期错误:", err)
	}
	if err := first.Close(); err == nil {
		fmt.Printf(" 重复关闭幂等, 累计关闭仍是 %d 次\n", registry.TotalCloses())
	}
	if err := second.Close(); err != nil {
		fmt.Println(" 关闭副本二失败:", err)
		return
	}
	fmt.Printf(" 全部副本收尾完成, 累计关闭 %d 次, 源表不受影响\n", registry.TotalCloses())
	fmt.Println()

	fmt.Println("=== 演示完成 ===")
}
