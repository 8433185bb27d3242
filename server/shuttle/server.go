package shuttle

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync/atomic"

	getty "github.com/AlexStocks/getty/transport"
	gxlog "github.com/AlexStocks/goext/log"
	gxnet "github.com/AlexStocks/goext/net"
	log "github.com/AlexStocks/log4go"
	gxsync "github.com/dubbogo/gost/sync"
	jerrors "github.com/juju/errors"
	"github.com/zhukovaskychina/xiceberg/server/conf"
	"github.com/zhukovaskychina/xiceberg/table/basic"
	"github.com/zhukovaskychina/xiceberg/table/codec"
	"github.com/zhukovaskychina/xiceberg/table/handle"
)

const (
	pprofPath = "/debug/pprof/"
)

const logBanner = `
******************************************************************************************

 __  __ ___   ____  _____  ____   _____  ____    ____
 \ \/ /|_ _| / ___|| ____|| __ ) | ____||  _ \  / ___|
  \  /  | | | |    |  _|  |  _ \ |  _|  | |_) || |  _
  /  \  | | | |___ | |___ | |_) || |___ |  _ < | |_| |
 /_/\_\|___| \____||_____||____/ |_____||_| \_\ \____|

******************************************************************************************
`

// ShuttleServer accepts worker sessions and ships them resource-free table
// handles. Each Publish captures a fresh copy of the table, encodes it with
// the configured codec and broadcasts the package; workers joining later
// receive the newest package of every published table on open.
type ShuttleServer struct {
	conf       *conf.Cfg
	handler    *ShuttleMessageHandler
	pkgHandler *HandlePkgHandler
	codec      codec.Codec
	serverList []getty.Server
	taskPool   gxsync.GenericTaskPool
	sequence   uint32
}

// NewShuttleServer wires the configured wire codec up front, an unknown
// codec or compression name fails here instead of on the first publish
func NewShuttleServer(cfg *conf.Cfg) (*ShuttleServer, error) {
	wireCodec, err := codecForConf(cfg)
	if err != nil {
		return nil, jerrors.Trace(err)
	}
	return &ShuttleServer{
		conf:       cfg,
		handler:    NewShuttleMessageHandler(cfg),
		pkgHandler: NewHandlePkgHandler(cfg.ShuttleSessionParam.MaxMsgLen),
		codec:      wireCodec,
		taskPool:   gxsync.NewTaskPoolSimple(0),
	}, nil
}

// codecForConf resolves the wire codec from configuration, the binary codec
// additionally honours the configured body compression
func codecForConf(cfg *conf.Cfg) (codec.Codec, error) {
	if cfg.Codec == codec.CODEC_BINARY {
		compression, err := codec.CompressionFromName(cfg.Compress)
		if err != nil {
			return nil, err
		}
		return codec.NewBinaryCodec(compression), nil
	}
	return codec.Get(cfg.Codec)
}

func (srv *ShuttleServer) Start() {
	initProfiling(srv.conf)
	srv.initServer(srv.conf)

	gxlog.CInfo(logBanner)
	gxlog.CInfo("%s starts successfull! its version=%s, its listen ends=%s:%d\n",
		srv.conf.AppName, getty.Version, srv.conf.BindAddress, srv.conf.Port)
	log.Info("%s starts successfull! its version=%s, its listen ends=%s:%d\n",
		srv.conf.AppName, getty.Version, srv.conf.BindAddress, srv.conf.Port)
}

func initProfiling(conf *conf.Cfg) {
	if conf.ProfilePort <= 0 {
		return
	}
	addr := gxnet.HostAddress(conf.BindAddress, conf.ProfilePort)
	log.Info("App Profiling startup on address{%v}", addr+pprofPath)
	go func() {
		log.Info(http.ListenAndServe(addr, nil))
	}()
}

func (srv *ShuttleServer) initServer(conf *conf.Cfg) {
	var (
		addr     string
		portList []string
		server   getty.Server
	)
	portList = append(portList, strconv.Itoa(conf.Port))
	if len(portList) == 0 {
		panic("portList is nil")
	}
	for _, port := range portList {
		addr = gxnet.HostAddress2(conf.BindAddress, port)
		serverOpts := []getty.ServerOption{getty.WithLocalAddress(addr)}
		serverOpts = append(serverOpts, getty.WithServerTaskPool(srv.taskPool))
		server = getty.NewTCPServer(serverOpts...)
		server.RunEventLoop(srv.newSession)
		log.Debug("shuttle server bind addr{%s} ok!", addr)
		srv.serverList = append(srv.serverList, server)
	}
}

func (srv *ShuttleServer) newSession(session getty.Session) error {
	var (
		ok      bool
		tcpConn *net.TCPConn
	)
	param := srv.conf.ShuttleSessionParam
	if param.CompressEncoding {
		session.SetCompressType(getty.CompressZip)
	}
	if tcpConn, ok = session.Conn().(*net.TCPConn); !ok {
		panic(fmt.Sprintf("%s, session.conn{%#v} is not tcp connection\n", session.Stat(), session.Conn()))
	}
	tcpConn.SetNoDelay(param.TcpNoDelay)
	tcpConn.SetKeepAlive(param.TcpKeepAlive)
	if param.TcpKeepAlive {
		tcpConn.SetKeepAlivePeriod(param.KeepAlivePeriodDuration)
	}
	tcpConn.SetReadBuffer(param.TcpRBufSize)
	tcpConn.SetWriteBuffer(param.TcpWBufSize)

	session.SetName(param.SessionName)
	session.SetMaxMsgLen(param.MaxMsgLen)
	session.SetPkgHandler(srv.pkgHandler)
	session.SetEventListener(srv.handler)
	session.SetWQLen(param.PkgWQSize)
	session.SetReadTimeout(param.TcpReadTimeoutDuration)
	session.SetWriteTimeout(param.TcpWriteTimeoutDuration)
	session.SetCronPeriod((int)(srv.conf.SessionTimeoutDuration / 1e6))
	session.SetWaitTime(param.WaitTimeoutDuration)
	log.Debug("shuttle accepts new worker session:%s\n", session.Stat())
	return nil
}

// Publish captures a resource-free copy of the table and ships it to every
// connected worker, returning how many workers were written to. The copy is
// taken before encoding, so later mutations of the source never leak into
// the announcement.
func (srv *ShuttleServer) Publish(t basic.Table) (int, error) {
	captured, err := handle.CopyOf(t)
	if err != nil {
		return 0, jerrors.Trace(err)
	}
	proxy, err := captured.Proxy()
	if err != nil {
		return 0, jerrors.Trace(err)
	}
	body, err := srv.codec.Encode(proxy)
	if err != nil {
		return 0, jerrors.Trace(err)
	}

	pkg := NewHandlePackage(atomic.AddUint32(&srv.sequence, 1), srv.codec.Name(), body)
	srv.handler.setAnnouncement(captured.Location(), pkg)
	delivered := srv.handler.broadcast(pkg)
	log.Info("published handle of table %s (seq %d, codec %s, %d bytes) to %d workers",
		captured.Name(), pkg.Header.Sequence, srv.codec.Name(), len(body), delivered)
	return delivered, nil
}

func (srv *ShuttleServer) WorkerCount() int {
	return srv.handler.WorkerCount()
}

func (srv *ShuttleServer) Stop() {
	for _, server := range srv.serverList {
		server.Close()
	}
	if srv.taskPool != nil {
		srv.taskPool.Close()
	}
}
