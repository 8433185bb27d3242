package shuttle

import (
	"fmt"
	"net"
	"sync"

	getty "github.com/AlexStocks/getty/transport"
	log "github.com/AlexStocks/log4go"
	"github.com/zhukovaskychina/xiceberg/server/conf"
	"github.com/zhukovaskychina/xiceberg/table/codec"
	"github.com/zhukovaskychina/xiceberg/table/handle"
)

// workerListener restores announced handles on the worker side. Every
// handle package is decoded with the codec the package names, turned back
// into a live handle and pushed to the delivery channel; the worker acks
// only what it actually delivered.
type workerListener struct {
	name    string
	handles chan *handle.SerializableTable
	done    chan struct{}
}

func (l *workerListener) OnOpen(session getty.Session) error {
	log.Info("worker %s session opened: %s", l.name, session.Stat())
	return nil
}

func (l *workerListener) OnClose(session getty.Session) {
	log.Info("worker %s session closed: %s", l.name, session.Stat())
}

func (l *workerListener) OnError(session getty.Session, err error) {
	log.Warn("worker %s session{%s} got error %v", l.name, session.Stat(), err)
}

func (l *workerListener) OnCron(session getty.Session) {
	// 心跳沿用确认包，序号 0 不计入投递确认
	if err := session.WritePkg(NewAckPackage(0, l.name), WritePkgTimeout); err != nil {
		log.Warn("worker %s keepalive failed: %v", l.name, err)
	}
}

func (l *workerListener) OnMessage(session getty.Session, pkg interface{}) {
	recPkg, ok := pkg.(*HandlePackage)
	if !ok {
		log.Error("Invalid package type: %T", pkg)
		return
	}
	if recPkg.Header.PkgType != PKG_HANDLE {
		log.Warn("worker %s ignores package %s", l.name, recPkg)
		return
	}

	wireCodec, err := codec.Get(recPkg.Codec)
	if err != nil {
		log.Error("handle package seq %d names unknown codec %q", recPkg.Header.Sequence, recPkg.Codec)
		return
	}
	proxy, err := wireCodec.Decode(recPkg.Body)
	if err != nil {
		log.Error("decode of handle package seq %d failed: %v", recPkg.Header.Sequence, err)
		return
	}
	restored, err := handle.FromProxy(proxy)
	if err != nil {
		log.Error("restore of handle package seq %d failed: %v", recPkg.Header.Sequence, err)
		return
	}

	select {
	case l.handles <- restored:
	case <-l.done:
		return
	}
	if err := session.WritePkg(NewAckPackage(recPkg.Header.Sequence, l.name), WritePkgTimeout); err != nil {
		log.Warn("ack of seq %d failed: %v", recPkg.Header.Sequence, err)
	}
}

// WorkerClient connects a worker to the shuttle server and hands restored
// table handles to whoever drains Handles(). Each restored handle owns its
// own empty resource slot, closing one worker's handle never touches the
// planner's table.
type WorkerClient struct {
	conf       *conf.Cfg
	name       string
	addr       string
	client     getty.Client
	pkgHandler *HandlePkgHandler
	listener   *workerListener
	done       chan struct{}
	once       sync.Once
}

func NewWorkerClient(cfg *conf.Cfg, addr, name string, queueLen int) *WorkerClient {
	if queueLen <= 0 {
		queueLen = 16
	}
	done := make(chan struct{})
	return &WorkerClient{
		conf:       cfg,
		name:       name,
		addr:       addr,
		pkgHandler: NewHandlePkgHandler(cfg.ShuttleSessionParam.MaxMsgLen),
		listener: &workerListener{
			name:    name,
			handles: make(chan *handle.SerializableTable, queueLen),
			done:    done,
		},
		done: done,
	}
}

func (w *WorkerClient) Start() {
	w.client = getty.NewTCPClient(
		getty.WithServerAddress(w.addr),
		getty.WithConnectionNumber(1),
	)
	w.client.RunEventLoop(w.newSession)
	log.Info("worker %s connects to shuttle server %s", w.name, w.addr)
}

func (w *WorkerClient) newSession(session getty.Session) error {
	var (
		ok      bool
		tcpConn *net.TCPConn
	)
	param := w.conf.ShuttleSessionParam
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

	session.SetName(param.SessionName + "-worker")
	session.SetMaxMsgLen(param.MaxMsgLen)
	session.SetPkgHandler(w.pkgHandler)
	session.SetEventListener(w.listener)
	session.SetWQLen(param.PkgWQSize)
	session.SetReadTimeout(param.TcpReadTimeoutDuration)
	session.SetWriteTimeout(param.TcpWriteTimeoutDuration)
	// 心跳周期取会话超时的三分之一
	session.SetCronPeriod((int)(w.conf.SessionTimeoutDuration / 3 / 1e6))
	session.SetWaitTime(param.WaitTimeoutDuration)
	log.Debug("worker %s opens session:%s\n", w.name, session.Stat())
	return nil
}

// Handles delivers restored table handles in arrival order
func (w *WorkerClient) Handles() <-chan *handle.SerializableTable {
	return w.listener.handles
}

func (w *WorkerClient) Close() {
	w.once.Do(func() {
		close(w.done)
		if w.client != nil {
			w.client.Close()
		}
	})
}
