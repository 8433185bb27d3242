package main

import (
	"fmt"

	"github.com/zhukovaskychina/xiceberg/table/basic"
	"github.com/zhukovaskychina/xiceberg/table/codec"
	"github.com/zhukovaskychina/xiceberg/table/fileio"
	"github.com/zhukovaskychina/xiceberg/table/handle"
	"github.com/zhukovaskychina/xiceberg/table/metadata"
	"github.com/zhukovaskychina/xiceberg/table/ops"
)

func main() {
	fmt.Println("=== XIceberg 事务句柄演示 ===")
	fmt.Println()

	fileio.ResetMemStore("demo-txn")
	defer func() {
		fmt.Println("\n清理演示数据...")
		fileio.ResetMemStore("demo-txn")
	}()

	// === 1. 建表 ===
	fmt.Println(" 第一步: 创建带初始属性的表")
	schema, err := metadata.NewSchemaBuilder(0).
		AddColumn("id", metadata.LongType(), metadata.Required()).
		AddColumn("payload", metadata.StringType()).
		Build()
	if err != nil {
		fmt.Println(" 构建 schema 失败:", err)
		return
	}

	warehouse := ops.NewFileSystemTables()
	table, err := warehouse.Create(schema, metadata.UnpartitionedSpec(), metadata.UnsortedOrder(),
		map[string]string{"owner": "etl", "retention.days": "7"}, "mem://demo-txn/db/jobs")
	if err != nil {
		fmt.Println(" 建表失败:", err)
		return
	}
	fmt.Printf(" 表已创建, retention.days=%s\n", table.Properties()["retention.days"])
	fmt.Println()

	// === 2. 开启事务并累积改动 ===
	fmt.Println(" 第二步: 事务中修改属性 (仅对事务可见)")
	txn, err := table.NewTransaction()
	if err != nil {
		fmt.Println(" 开启事务失败:", err)
		return
	}
	if err := txn.UpdateProperties().
		Set("retention.days", "30").
		Set("pipeline", "nightly").
		Remove("owner").
		Commit(); err != nil {
		fmt.Println(" 记录属性更新失败:", err)
		return
	}

	pending := txn.Table()
	fmt.Printf(" 事务视图: retention.days=%s pipeline=%s owner=%q\n",
		pending.Properties()["retention.days"], pending.Properties()["pipeline"], pending.Properties()["owner"])
	fmt.Printf(" 基表仍是: retention.days=%s owner=%s\n",
		table.Properties()["retention.days"], table.Properties()["owner"])
	fmt.Println()

	// === 3. 运输事务句柄 ===
	fmt.Println(" 第三步: 事务句柄连同未提交状态走线")
	captured, err := handle.CopyOf(pending)
	if err != nil {
		fmt.Println(" 捕获事务句柄失败:", err)
		return
	}
	wire, err := codec.Get(codec.CODEC_BINARY)
	if err != nil {
		fmt.Println(" 获取编解码器失败:", err)
		return
	}
	proxy, err := captured.Proxy()
	if err != nil {
		fmt.Println(" 构造代理失败:", err)
		return
	}
	frame, err := wire.Encode(proxy)
	if err != nil {
		fmt.Println(" 编码失败:", err)
		return
	}
	decoded, err := wire.Decode(frame)
	if err != nil {
		fmt.Println(" 解码失败:", err)
		return
	}
	restored, err := handle.FromProxy(decoded)
	if err != nil {
		fmt.Println(" 还原失败:", err)
		return
	}
	fmt.Printf(" 远端句柄种类=%s retention.days=%s (未提交状态已带到)\n",
		restored.Kind(), restored.Properties()["retention.days"])
	fmt.Println()

	// === 4. 提交事务 ===
	fmt.Println(" 第四步: 提交事务后基表可见")
	if err := txn.CommitTransaction(); err != nil {
		fmt.Println(" 提交事务失败:", err)
		return
	}
	reloaded, err := warehouse.Load(table.Location())
	if err != nil {
		fmt.Println(" 重新加载表失败:", err)
		return
	}
	fmt.Printf(" 重新加载: retention.days=%s pipeline=%s owner=%q\n",
		reloaded.Properties()["retention.days"], reloaded.Properties()["pipeline"], reloaded.Properties()["owner"])
	fmt.Println()

	// === 5. 已完结事务拒绝再用 ===
	fmt.Println(" 第五步: 已完结事务拒绝追加改动")
	err = txn.UpdateProperties().Set("late", "true").Commit()
	if basic.IsTxFinished(err) {
		fmt.Println(" 得到预期错误:", err)
	} else if err != nil {
		fmt.Println(" 意外错误:", err)
	}

	fmt.Println()
	fmt.Println("=== 演示完成 ===")
}
