package shuttle

import (
	"bytes"

	getty "github.com/AlexStocks/getty/transport"
	log "github.com/AlexStocks/log4go"
	jerrors "github.com/juju/errors"
)

// HandlePkgHandler splits the tcp stream into shuttle packages and writes
// them back out. One instance is shared by every session of an endpoint.
type HandlePkgHandler struct {
	maxMsgLen int
}

func NewHandlePkgHandler(maxMsgLen int) *HandlePkgHandler {
	if maxMsgLen <= 0 {
		maxMsgLen = DefaultMaxMsgLen
	}
	return &HandlePkgHandler{maxMsgLen: maxMsgLen}
}

func (h *HandlePkgHandler) Read(ss getty.Session, data []byte) (interface{}, int, error) {
	pkg := &HandlePackage{}
	buf := bytes.NewBuffer(data)
	pkgLen, err := pkg.Unmarshal(buf, h.maxMsgLen)
	if err != nil {
		if jerrors.Cause(err) == ErrNotEnoughStream {
			// 流不完整，等待后续字节
			return nil, pkgLen, nil
		}
		return nil, 0, jerrors.Trace(err)
	}
	return pkg, pkgLen, nil
}

func (h *HandlePkgHandler) Write(ss getty.Session, pkg interface{}) ([]byte, error) {
	handlePkg, ok := pkg.(*HandlePackage)
	if !ok {
		log.Error("illegal pkg:%+v", pkg)
		return nil, jerrors.Errorf("shuttle session cannot write pkg of type %T", pkg)
	}
	buf, err := handlePkg.Marshal()
	if err != nil {
		return nil, jerrors.Trace(err)
	}
	return buf.Bytes(), nil
}
