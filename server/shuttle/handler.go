package shuttle

import (
	"errors"
	"sync"
	"time"

	getty "github.com/AlexStocks/getty/transport"
	log "github.com/AlexStocks/log4go"
	"github.com/zhukovaskychina/xiceberg/server/conf"
)

const (
	WritePkgTimeout = 1e8
)

var (
	errTooManyWorkers = errors.New("Too many shuttle workers!")
)

// workerSession is the slice of a getty session the shuttle bookkeeping
// needs, narrow enough that tests can fake it
type workerSession interface {
	Stat() string
	RemoteAddr() string
	GetActive() time.Time
	WritePkg(pkg interface{}, timeout time.Duration) error
	Close()
}

// workerPeer 每个已接入工作端的登记信息
type workerPeer struct {
	name       string
	joinedAt   time.Time
	ackCount   int64
	lastAckSeq uint32
}

// announcement is one published handle package, late joining workers
// receive every announcement on open
type announcement struct {
	location string
	pkg      *HandlePackage
}

// ShuttleMessageHandler keeps the book of connected workers and the current
// announcement of every published table. Re-publishing a table location
// replaces its announcement in place, so a worker joining later only ever
// sees the newest handle per table.
type ShuttleMessageHandler struct {
	rwlock        sync.RWMutex
	cfg           *conf.Cfg
	sessionMap    map[workerSession]*workerPeer
	announcements []*announcement
}

func NewShuttleMessageHandler(cfg *conf.Cfg) *ShuttleMessageHandler {
	var shuttleMessageHandler = new(ShuttleMessageHandler)
	shuttleMessageHandler.sessionMap = make(map[workerSession]*workerPeer)
	shuttleMessageHandler.cfg = cfg
	return shuttleMessageHandler
}

func (h *ShuttleMessageHandler) OnOpen(session getty.Session) error {
	return h.addWorker(session)
}

func (h *ShuttleMessageHandler) addWorker(ss workerSession) error {
	var (
		err error
	)

	h.rwlock.RLock()
	if h.cfg.SessionNumber <= len(h.sessionMap) {
		err = errTooManyWorkers
	}
	h.rwlock.RUnlock()
	if err != nil {
		return err
	}
	log.Info("got worker session:%s", ss.Stat())
	h.rwlock.Lock()
	h.sessionMap[ss] = &workerPeer{name: ss.RemoteAddr(), joinedAt: time.Now()}
	h.rwlock.Unlock()

	// 补发当前公告，晚到的工作端同样拿到每张表的最新句柄
	for _, pkg := range h.currentAnnouncements() {
		if err := ss.WritePkg(pkg, WritePkgTimeout); err != nil {
			log.Warn("catch-up write to worker{%s} failed: %v", ss.Stat(), err)
		}
	}
	return nil
}

func (h *ShuttleMessageHandler) OnClose(session getty.Session) {
	h.removeWorker(session)
}

func (h *ShuttleMessageHandler) OnError(session getty.Session, err error) {
	log.Warn("worker session{%s} got error %v, closing", session.Stat(), err)
	session.Close()
	h.removeWorker(session)
}

func (h *ShuttleMessageHandler) removeWorker(ss workerSession) {
	h.rwlock.Lock()
	delete(h.sessionMap, ss)
	h.rwlock.Unlock()
}

func (h *ShuttleMessageHandler) OnCron(session getty.Session) {
	h.checkIdle(session)
}

func (h *ShuttleMessageHandler) checkIdle(ss workerSession) {
	h.rwlock.RLock()
	peer, ok := h.sessionMap[ss]
	h.rwlock.RUnlock()
	if !ok {
		return
	}
	idle := time.Since(ss.GetActive())
	if h.cfg.SessionTimeoutDuration < idle {
		log.Warn("worker session{%s} idle{%s} beyond timeout, acks{%d}", ss.Stat(), idle.String(), peer.ackCount)
		ss.Close()
	}
}

func (h *ShuttleMessageHandler) OnMessage(session getty.Session, pkg interface{}) {
	recPkg, ok := pkg.(*HandlePackage)
	if !ok {
		log.Error("Invalid package type: %T", pkg)
		return
	}

	switch recPkg.Header.PkgType {
	case PKG_ACK:
		h.recordAck(session, recPkg)
	default:
		// 服务端只接受确认包
		log.Warn("worker session{%s} sent unexpected package %s", session.Stat(), recPkg)
	}
}

func (h *ShuttleMessageHandler) recordAck(ss workerSession, pkg *HandlePackage) {
	keepalive := pkg.Header.Sequence == 0

	h.rwlock.Lock()
	peer, ok := h.sessionMap[ss]
	if ok {
		if name := string(pkg.Body); name != "" {
			peer.name = name
		}
		// 序号 0 是工作端心跳，不计入投递确认
		if !keepalive {
			peer.ackCount++
			peer.lastAckSeq = pkg.Header.Sequence
		}
	}
	h.rwlock.Unlock()
	if !ok {
		log.Error("ack from unknown session: %s", ss.Stat())
		return
	}
	if keepalive {
		log.Debug("worker{%s} keepalive", ss.Stat())
		return
	}
	log.Debug("worker{%s} acked seq %d", ss.Stat(), pkg.Header.Sequence)
}

// setAnnouncement records the newest handle package of one table location
func (h *ShuttleMessageHandler) setAnnouncement(location string, pkg *HandlePackage) {
	h.rwlock.Lock()
	defer h.rwlock.Unlock()
	for _, a := range h.announcements {
		if a.location == location {
			a.pkg = pkg
			return
		}
	}
	h.announcements = append(h.announcements, &announcement{location: location, pkg: pkg})
}

func (h *ShuttleMessageHandler) currentAnnouncements() []*HandlePackage {
	h.rwlock.RLock()
	defer h.rwlock.RUnlock()
	pkgs := make([]*HandlePackage, 0, len(h.announcements))
	for _, a := range h.announcements {
		pkgs = append(pkgs, a.pkg)
	}
	return pkgs
}

// broadcast writes one package to every connected worker and reports how
// many writes went out
func (h *ShuttleMessageHandler) broadcast(pkg *HandlePackage) int {
	h.rwlock.RLock()
	sessions := make([]workerSession, 0, len(h.sessionMap))
	for ss := range h.sessionMap {
		sessions = append(sessions, ss)
	}
	h.rwlock.RUnlock()

	delivered := 0
	for _, ss := range sessions {
		if err := ss.WritePkg(pkg, WritePkgTimeout); err != nil {
			log.Warn("broadcast to worker{%s} failed: %v", ss.Stat(), err)
			continue
		}
		delivered++
	}
	return delivered
}

func (h *ShuttleMessageHandler) WorkerCount() int {
	h.rwlock.RLock()
	defer h.rwlock.RUnlock()
	return len(h.sessionMap)
}
