package conf

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/zhukovaskychina/xiceberg/logger"

	"gopkg.in/ini.v1"
)

var ConfigPath string

type CommandLineArgs struct {
	ConfigPath string
}

/*
*
bind-address	= 127.0.0.1
port		= 3439
codec		= binary
compress	= snappy
warehouse	= /var/lib/xiceberg/warehouse
*/
type Cfg struct {
	Raw         *ini.File
	AppName     string
	BindAddress string
	Port        int

	ProfilePort int

	// shuttle
	Codec    string `default:"binary" yaml:"codec" json:"codec,omitempty"`
	Compress string `default:"snappy" yaml:"compress" json:"compress,omitempty"`

	// session
	SessionTimeout         string `default:"60s" yaml:"session_timeout" json:"session_timeout,omitempty"`
	SessionTimeoutDuration time.Duration
	SessionNumber          int `default:"1000" yaml:"session_number" json:"session_number,omitempty"`

	// app
	FailFastTimeout         string `default:"5s" yaml:"fail_fast_timeout" json:"fail_fast_timeout,omitempty"`
	FailFastTimeoutDuration time.Duration

	// logs
	LogError string `default:"/var/log/xiceberg/error.log" yaml:"log_error" json:"log_error,omitempty"`
	LogInfos string `default:"/var/log/xiceberg/xiceberg.log" yaml:"log_infos" json:"log_infos,omitempty"`
	LogLevel string `default:"info" yaml:"log_level" json:"log_level,omitempty"`

	// warehouse
	WarehouseDir       string `default:"warehouse" yaml:"warehouse_dir" json:"warehouse_dir,omitempty"`
	TableDefaultsFile  string `default:"" yaml:"table_defaults_file" json:"table_defaults_file,omitempty"`
	TablePropDefaults  map[string]string
	MetadataKeepCount  int `default:"10" yaml:"metadata_keep_count" json:"metadata_keep_count,omitempty"`
	CommitRetriesLimit int `default:"4" yaml:"commit_retries_limit" json:"commit_retries_limit,omitempty"`

	// session tcp parameters
	ShuttleSessionParam ShuttleSessionParam `required:"true" yaml:"getty_session_param" json:"getty_session_param,omitempty"`
}

type ShuttleSessionParam struct {
	CompressEncoding        bool   `default:"false" yaml:"compress_encoding" json:"compress_encoding,omitempty"`
	TcpNoDelay              bool   `default:"true" yaml:"tcp_no_delay" json:"tcp_no_delay,omitempty"`
	TcpKeepAlive            bool   `default:"true" yaml:"tcp_keep_alive" json:"tcp_keep_alive,omitempty"`
	KeepAlivePeriod         string `default:"180s" yaml:"keep_alive_period" json:"keep_alive_period,omitempty"`
	KeepAlivePeriodDuration time.Duration
	TcpRBufSize             int `default:"262144" yaml:"tcp_r_buf_size" json:"tcp_r_buf_size,omitempty"`
	TcpWBufSize             int `default:"65536" yaml:"tcp_w_buf_size" json:"tcp_w_buf_size,omitempty"`
	PkgRQSize               int
	PkgWQSize               int    `default:"1024" yaml:"pkg_wq_size" json:"pkg_wq_size,omitempty"`
	TcpReadTimeout          string `default:"1s" yaml:"tcp_read_timeout" json:"tcp_read_timeout,omitempty"`
	TcpReadTimeoutDuration  time.Duration
	TcpWriteTimeout         string `default:"5s" yaml:"tcp_write_timeout" json:"tcp_write_timeout,omitempty"`
	TcpWriteTimeoutDuration time.Duration
	WaitTimeout             string `default:"7s" yaml:"wait_timeout" json:"wait_timeout,omitempty"`
	WaitTimeoutDuration     time.Duration
	MaxMsgLen               int    `default:"4194304" yaml:"max_msg_len" json:"max_msg_len,omitempty"`
	SessionName             string `default:"handle-shuttle" yaml:"session_name" json:"session_name,omitempty"`
}

func NewCfg() *Cfg {
	return &Cfg{
		Raw:         ini.Empty(),
		AppName:     "xiceberg",
		BindAddress: "127.0.0.1",
		Port:        3439,
		// shuttle 默认配置
		Codec:    "binary",
		Compress: "snappy",
		// Logs 默认配置
		LogError: "/var/log/xiceberg/error.log",
		LogInfos: "/var/log/xiceberg/xiceberg.log",
		LogLevel: "info",
		// warehouse 默认配置
		WarehouseDir:       "warehouse",
		TablePropDefaults:  make(map[string]string),
		MetadataKeepCount:  10,
		CommitRetriesLimit: 4,

		SessionTimeout:          "60s",
		SessionTimeoutDuration:  60 * time.Second,
		SessionNumber:           1000,
		FailFastTimeout:         "5s",
		FailFastTimeoutDuration: 5 * time.Second,
		ShuttleSessionParam: ShuttleSessionParam{
			CompressEncoding:        false,
			TcpNoDelay:              true,
			TcpKeepAlive:            true,
			KeepAlivePeriod:         "180s",
			KeepAlivePeriodDuration: 180 * time.Second,
			TcpRBufSize:             262144,
			TcpWBufSize:             65536,
			PkgRQSize:               1024,
			PkgWQSize:               1024,
			TcpReadTimeout:          "1s",
			TcpReadTimeoutDuration:  time.Second,
			TcpWriteTimeout:         "5s",
			TcpWriteTimeoutDuration: 5 * time.Second,
			WaitTimeout:             "7s",
			WaitTimeoutDuration:     7 * time.Second,
			MaxMsgLen:               4194304,
			SessionName:             "handle-shuttle",
		},
	}
}

func (cfg *Cfg) Load(args *CommandLineArgs) *Cfg {
	setHomePath(args)
	iniFile, err := cfg.loadConfiguration(args)
	if err != nil {
		logger.Debugf("加载配置文件时有异常: %v\n", err)
		os.Exit(1)
	}
	cfg.Raw = iniFile

	cfg.parseShuttleCfg(cfg.Raw.Section("shuttle"))
	cfg.parseSessionCfg(cfg.Raw.Section("session"))
	cfg.parseWarehouseCfg(cfg.Raw.Section("warehouse"))
	cfg.parseLogsCfg(cfg.Raw.Section("logs"))
	return cfg
}

func setHomePath(args *CommandLineArgs) {
	if args.ConfigPath != "" {
		ConfigPath = args.ConfigPath
		return
	}

	ConfigPath, _ = filepath.Abs(".")
}

func (cfg *Cfg) parseShuttleCfg(section *ini.Section) *Cfg {
	if section == nil {
		return cfg
	}

	bindAddress, err := valueAsString(section, "bind-address", cfg.BindAddress)
	if err == nil && bindAddress != "localhost" {
		if ip := net.ParseIP(bindAddress); ip == nil {
			logger.Errorf("无效的 bind-address: %s", bindAddress)
			os.Exit(1)
		}
	}
	cfg.BindAddress = bindAddress
	cfg.Port = section.Key("port").MustInt(cfg.Port)
	cfg.ProfilePort = section.Key("profile_port").MustInt(cfg.ProfilePort)

	codec, err := valueAsString(section, "codec", cfg.Codec)
	if err == nil {
		cfg.Codec = strings.ToLower(codec)
	}
	compress, err := valueAsString(section, "compress", cfg.Compress)
	if err == nil {
		cfg.Compress = strings.ToLower(compress)
	}

	cfg.SessionNumber = section.Key("max_session_number").MustInt(cfg.SessionNumber)

	sessionTimeout, err := valueAsString(section, "session_timeout", cfg.SessionTimeout)
	if err == nil {
		cfg.SessionTimeout = sessionTimeout
	}
	cfg.SessionTimeoutDuration, err = time.ParseDuration(cfg.SessionTimeout)
	if err != nil {
		panic(fmt.Sprintf("time.ParseDuration(SessionTimeout{%#v}) = error{%v}", cfg.SessionTimeout, err))
	}

	failFastTimeout, err := valueAsString(section, "fail_fast_timeout", cfg.FailFastTimeout)
	if err == nil {
		cfg.FailFastTimeout = failFastTimeout
	}
	cfg.FailFastTimeoutDuration, err = time.ParseDuration(cfg.FailFastTimeout)
	if err != nil {
		panic(fmt.Sprintf("time.ParseDuration(FailFastTimeout{%#v}) = error{%v}", cfg.FailFastTimeout, err))
	}
	return cfg
}

func (cfg *Cfg) parseSessionCfg(section *ini.Section) *Cfg {
	if section == nil {
		return cfg
	}
	param := &cfg.ShuttleSessionParam
	var err error

	param.CompressEncoding = section.Key("compress_encoding").MustBool(param.CompressEncoding)
	param.TcpNoDelay = section.Key("tcp_no_delay").MustBool(param.TcpNoDelay)
	param.TcpKeepAlive = section.Key("tcp_keep_alive").MustBool(param.TcpKeepAlive)

	keepAlivePeriod, _ := valueAsString(section, "keep_alive_period", param.KeepAlivePeriod)
	param.KeepAlivePeriod = keepAlivePeriod
	param.KeepAlivePeriodDuration, err = time.ParseDuration(param.KeepAlivePeriod)
	if err != nil {
		logger.Error(fmt.Sprintf("time.ParseDuration(KeepAlivePeriod{%#v}) = error{%v}", param.KeepAlivePeriod, err))
		os.Exit(1)
	}

	param.TcpRBufSize = section.Key("tcp_r_buf_size").MustInt(param.TcpRBufSize)
	param.TcpWBufSize = section.Key("tcp_w_buf_size").MustInt(param.TcpWBufSize)
	param.PkgRQSize = section.Key("pkg_rq_size").MustInt(param.PkgRQSize)
	param.PkgWQSize = section.Key("pkg_wq_size").MustInt(param.PkgWQSize)

	tcpReadTimeout, _ := valueAsString(section, "tcp_read_timeout", param.TcpReadTimeout)
	param.TcpReadTimeout = tcpReadTimeout
	param.TcpReadTimeoutDuration, err = time.ParseDuration(param.TcpReadTimeout)
	if err != nil {
		panic(fmt.Sprintf("time.ParseDuration(TcpReadTimeout{%#v}) = error{%v}", param.TcpReadTimeout, err))
	}

	tcpWriteTimeout, _ := valueAsString(section, "tcp_write_timeout", param.TcpWriteTimeout)
	param.TcpWriteTimeout = tcpWriteTimeout
	param.TcpWriteTimeoutDuration, err = time.ParseDuration(param.TcpWriteTimeout)
	if err != nil {
		panic(fmt.Sprintf("time.ParseDuration(TcpWriteTimeout{%#v}) = error{%v}", param.TcpWriteTimeout, err))
	}

	waitTimeout, _ := valueAsString(section, "wait_timeout", param.WaitTimeout)
	param.WaitTimeout = waitTimeout
	param.WaitTimeoutDuration, err = time.ParseDuration(param.WaitTimeout)
	if err != nil {
		logger.Error(fmt.Sprintf("(WaitTimeout{%#v}) = error{%v}", param.WaitTimeout, err))
		os.Exit(1)
	}

	param.MaxMsgLen = section.Key("max_msg_len").MustInt(param.MaxMsgLen)
	sessionName, _ := valueAsString(section, "session_name", param.SessionName)
	param.SessionName = sessionName
	return cfg
}

func (cfg *Cfg) parseWarehouseCfg(section *ini.Section) *Cfg {
	if section == nil {
		return cfg
	}

	warehouseDir, err := valueAsString(section, "root", cfg.WarehouseDir)
	if err == nil {
		cfg.WarehouseDir = warehouseDir
	}

	defaultsFile, err := valueAsString(section, "table_defaults_file", cfg.TableDefaultsFile)
	if err == nil {
		cfg.TableDefaultsFile = defaultsFile
	}

	cfg.MetadataKeepCount = section.Key("metadata_keep_count").MustInt(cfg.MetadataKeepCount)
	cfg.CommitRetriesLimit = section.Key("commit_retries_limit").MustInt(cfg.CommitRetriesLimit)

	if cfg.TableDefaultsFile != "" {
		defaults, err := LoadTableDefaults(cfg.TableDefaultsFile)
		if err != nil {
			logger.Warnf("表属性默认值加载失败 %s: %v", cfg.TableDefaultsFile, err)
		} else {
			cfg.TablePropDefaults = defaults
		}
	}
	return cfg
}

// LoadTableDefaults 从 toml 配置中加载建表时的默认表属性
//
// [table-properties]
// "write.format.default" = "parquet"
// "commit.retry.num-retries" = "4"
func LoadTableDefaults(path string) (map[string]string, error) {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return nil, err
	}

	defaults := make(map[string]string)
	props := tree.Get("table-properties")
	if props == nil {
		return defaults, nil
	}
	propTree, ok := props.(*toml.Tree)
	if !ok {
		return defaults, nil
	}
	for _, key := range propTree.Keys() {
		value := propTree.Get(key)
		switch v := value.(type) {
		case string:
			defaults[key] = v
		case int64:
			defaults[key] = fmt.Sprintf("%d", v)
		case bool:
			defaults[key] = fmt.Sprintf("%t", v)
		case float64:
			defaults[key] = fmt.Sprintf("%g", v)
		}
	}
	return defaults, nil
}

func (cfg *Cfg) loadConfiguration(args *CommandLineArgs) (*ini.File, error) {
	// 如果没有指定配置文件路径，使用默认的conf/xiceberg.ini
	configFile := "conf/xiceberg.ini"
	if args.ConfigPath != "" {
		configFile = args.ConfigPath
	}

	// check if config file exists
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		logger.Debugf("配置文件不存在: %s，使用默认配置\n", configFile)
		return ini.Empty(), nil
	}

	parsedFile, err := ini.Load(configFile)
	if err != nil {
		logger.Debugf("解析配置文件失败: %v，使用默认配置\n", err)
		return ini.Empty(), nil
	}

	logger.Debugf("成功加载配置文件: %s\n", configFile)
	return parsedFile, nil
}

func valueAsString(section *ini.Section, keyName string, defaultValue string) (value string, err error) {
	if section == nil {
		return defaultValue, nil
	}
	value = section.Key(keyName).MustString(defaultValue)
	if value == "" {
		value = defaultValue
	}
	return value, nil
}

// GetString 获取配置项的字符串值
func (cfg *Cfg) GetString(key string) string {
	parts := strings.Split(key, ".")
	if len(parts) < 2 {
		return ""
	}

	section := cfg.Raw.Section(parts[0])
	if section == nil {
		return ""
	}

	value, err := valueAsString(section, strings.Join(parts[1:], "."), "")
	if err != nil {
		return ""
	}
	return value
}

// GetInt 获取配置项的整数值
func (cfg *Cfg) GetInt(key string) int {
	parts := strings.Split(key, ".")
	if len(parts) < 2 {
		return 0
	}

	section := cfg.Raw.Section(parts[0])
	if section == nil {
		return 0
	}

	return section.Key(strings.Join(parts[1:], ".")).MustInt(0)
}

func (cfg *Cfg) parseLogsCfg(section *ini.Section) *Cfg {
	if section == nil {
		return cfg
	}

	logError, err := valueAsString(section, "log_error", cfg.LogError)
	if err == nil {
		cfg.LogError = logError
	}

	logInfos, err := valueAsString(section, "log_infos", cfg.LogInfos)
	if err == nil {
		cfg.LogInfos = logInfos
	}

	logLevel, err := valueAsString(section, "log_level", cfg.LogLevel)
	if err == nil {
		cfg.LogLevel = strings.ToLower(logLevel)
		validLevels := []string{"debug", "info", "warn", "error", "fatal", "panic"}
		isValid := false
		for _, level := range validLevels {
			if cfg.LogLevel == level {
				isValid = true
				break
			}
		}
		if !isValid {
			logger.Debugf("警告: 无效的日志级别 '%s', 使用默认级别 'info'\n", logLevel)
			cfg.LogLevel = "info"
		}
	}

	return cfg
}
