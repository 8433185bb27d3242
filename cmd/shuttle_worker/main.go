package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	gxnet "github.com/AlexStocks/goext/net"
	"github.com/zhukovaskychina/xiceberg/logger"
	"github.com/zhukovaskychina/xiceberg/server/conf"
	"github.com/zhukovaskychina/xiceberg/server/shuttle"
	"github.com/zhukovaskychina/xiceberg/table/handle"
)

// shuttle_worker 连接句柄运输服务端，还原收到的每个表句柄并验证其元数据可读。
// 工作端句柄的资源槽独立于计划端，用完即关。
func main() {
	configPath := flag.String("configPath", "", "指定 xiceberg.ini 配置文件")
	addr := flag.String("addr", "", "运输服务端地址, 默认取配置中的 bind-address:port")
	name := flag.String("name", "", "工作端名称, 默认 主机名-进程号")
	queue := flag.Int("queue", 16, "句柄投递队列长度")
	flag.Parse()

	config := conf.NewCfg().Load(&conf.CommandLineArgs{ConfigPath: *configPath})
	if err := logger.InitLogger(logger.LogConfig{
		ErrorLogPath: config.LogError,
		InfoLogPath:  config.LogInfos,
		LogLevel:     config.LogLevel,
	}); err != nil {
		panic(fmt.Sprintf("init logger failed: %v", err))
	}

	serverAddr := *addr
	if serverAddr == "" {
		serverAddr = gxnet.HostAddress(config.BindAddress, config.Port)
	}
	workerName := *name
	if workerName == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "worker"
		}
		workerName = fmt.Sprintf("%s-%d", host, os.Getpid())
	}

	client := shuttle.NewWorkerClient(config, serverAddr, workerName, *queue)
	client.Start()
	logger.Infof("worker %s connected to shuttle server %s", workerName, serverAddr)

	go func() {
		for h := range client.Handles() {
			inspect(workerName, h)
		}
	}()

	initSignal(client)
}

// inspect 还原后的句柄走一遍懒取资源的完整生命周期
func inspect(workerName string, h *handle.SerializableTable) {
	logger.Infof("worker %s received handle: table=%s kind=%s location=%s slot=%s",
		workerName, h.Name(), h.Kind(), h.Location(), h.ResourceState())
	if h.Kind() == handle.HANDLE_KIND_METADATA_VIEW {
		logger.Infof("  metadata view %s over %d columns", h.ViewType(), len(h.Schema().Columns))
	}

	defer func() {
		if err := h.Close(); err != nil {
			logger.Errorf("close of handle %s failed: %v", h.Name(), err)
		}
	}()

	io, err := h.IO()
	if err != nil {
		logger.Errorf("io acquire for handle %s failed: %v", h.Name(), err)
		return
	}
	in, err := io.NewInputFile(h.MetadataLocation())
	if err != nil {
		logger.Errorf("open of metadata %s failed: %v", h.MetadataLocation(), err)
		return
	}
	exists, err := in.Exists()
	if err != nil {
		logger.Errorf("stat of metadata %s failed: %v", h.MetadataLocation(), err)
		return
	}
	if !exists {
		// mem:// 仓库不跨进程，元数据文件只在计划端可见
		logger.Warnf("metadata %s not reachable from this worker", h.MetadataLocation())
		return
	}
	data, err := in.ReadAll()
	if err != nil {
		logger.Errorf("read of metadata %s failed: %v", h.MetadataLocation(), err)
		return
	}
	logger.Infof("  metadata %s verified, %d bytes, slot=%s", h.MetadataLocation(), len(data), h.ResourceState())
}

func initSignal(client *shuttle.WorkerClient) {
	// signal.Notify的ch信道是阻塞的(signal.Notify不会阻塞发送信号), 需要设置缓冲
	signals := make(chan os.Signal, 1)
	// It is not possible to block SIGKILL or syscall.SIGSTOP
	signal.Notify(signals, os.Interrupt, syscall.SIGHUP, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
	for {
		sig := <-signals
		logger.Infof("get signal %s", sig.String())
		switch sig {
		case syscall.SIGHUP:
		default:
			client.Close()
			logger.Infof("worker exit now...")
			return
		}
	}
}
