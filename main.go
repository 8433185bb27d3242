package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	log "github.com/AlexStocks/log4go"
	"github.com/zhukovaskychina/xiceberg/logger"
	"github.com/zhukovaskychina/xiceberg/server/conf"
	"github.com/zhukovaskychina/xiceberg/server/shuttle"
	"github.com/zhukovaskychina/xiceberg/table/fileio"
	"github.com/zhukovaskychina/xiceberg/table/ops"
)

const help = `
******************************************************************************************

 __  __ ___   ____  _____  ____   _____  ____    ____
 \ \/ /|_ _| / ___|| ____|| __ ) | ____||  _ \  / ___|
  \  /  | | | |    |  _|  |  _ \ |  _|  | |_) || |  _
  /  \  | | | |___ | |___ | |_) || |___ |  _ < | |_| |
 /_/\_\|___| \____||_____||____/ |_____||_| \_\ \____|

******************************************************************************************
*帮助:
*1. -- help
*2. -- configPath   指定 xiceberg.ini 配置文件
*3. -- tables       启动即发布的表位置列表，逗号分隔
******************************************************************************************
`

func main() {
	fmt.Println("Starting XIceberg Handle Shuttle...")

	var (
		configPath string
		tableList  string
	)
	flag.StringVar(&configPath, "configPath", "", "配置文件路径")
	flag.StringVar(&tableList, "tables", "", "启动即发布的表位置，逗号分隔")
	flag.Usage = func() { fmt.Print(help) }
	flag.Parse()

	args := &conf.CommandLineArgs{
		ConfigPath: configPath,
	}

	config := conf.NewCfg().Load(args)
	logger.Debugf("Config loaded: error_log=%s, info_log=%s\n", config.LogError, config.LogInfos)

	logConfig := logger.LogConfig{
		ErrorLogPath: config.LogError,
		InfoLogPath:  config.LogInfos,
		LogLevel:     config.LogLevel,
	}
	if err := logger.InitLogger(logConfig); err != nil {
		logger.Debugf("Failed to initialize logger: %s\n", err.Error())
		panic("Failed to initialize logger: " + err.Error())
	}
	logger.Infof("Logger initialized successfully with level: %s\n", config.LogLevel)

	srv, err := shuttle.NewShuttleServer(config)
	if err != nil {
		logger.Fatalf("shuttle server init failed: %v", err)
	}
	srv.Start()

	warehouse := ops.NewFileSystemTablesWithConf(config)
	republish := func() {
		publishTables(srv, warehouse, config, tableList)
	}
	republish()

	initSignal(srv, config, republish)
}

// tableLocation resolves a bare table name against the warehouse root,
// locations with a scheme or an absolute path pass through untouched
func tableLocation(cfg *conf.Cfg, name string) string {
	if fileio.Scheme(name) != "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(cfg.WarehouseDir, name)
}

func publishTables(srv *shuttle.ShuttleServer, warehouse *ops.FileSystemTables, cfg *conf.Cfg, tableList string) {
	for _, name := range strings.Split(tableList, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		location := tableLocation(cfg, name)
		table, err := warehouse.Load(location)
		if err != nil {
			logger.Errorf("load of table %s failed: %v", location, err)
			continue
		}
		workers, err := srv.Publish(table)
		if err != nil {
			logger.Errorf("publish of table %s failed: %v", location, err)
			continue
		}
		logger.Infof("table %s published to %d workers", location, workers)
	}
}

func initSignal(srv *shuttle.ShuttleServer, cfg *conf.Cfg, republish func()) {
	// signal.Notify的ch信道是阻塞的(signal.Notify不会阻塞发送信号), 需要设置缓冲
	signals := make(chan os.Signal, 1)
	// It is not possible to block SIGKILL or syscall.SIGSTOP
	signal.Notify(signals, os.Interrupt, os.Kill, syscall.SIGHUP, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
	for {
		sig := <-signals
		log.Info("get signal %s", sig.String())
		switch sig {
		case syscall.SIGHUP:
			// 重新发布，工作端拿到每张表的最新句柄
			republish()
		default:
			go time.AfterFunc(cfg.FailFastTimeoutDuration, func() {
				log.Exit("app exit now by force...")
				log.Close()
			})

			// 要么fastFailTimeout时间内执行完毕下面的逻辑然后程序退出，要么执行上面的超时函数程序强行退出
			srv.Stop()
			log.Exit("app exit now...")
			log.Close()
			return
		}
	}
}
