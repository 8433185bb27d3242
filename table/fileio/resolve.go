package fileio

import (
	"strings"
	"sync"

	jerrors "github.com/juju/errors"
	"github.com/zhukovaskychina/xiceberg/table/basic"
)

// Factory builds a fresh FileIO for a table location, props carry the table's
// io related properties.
type Factory func(location string, props map[string]string) (basic.FileIO, error)

var (
	schemesMu sync.RWMutex
	schemes   = make(map[string]Factory)
)

// Register binds a location scheme to a FileIO factory, later registrations
// replace earlier ones.
// 注册 location scheme 对应的 FileIO 工厂
func Register(scheme string, factory Factory) {
	schemesMu.Lock()
	defer schemesMu.Unlock()
	schemes[scheme] = factory
}

// Scheme extracts the scheme of a location, bare paths resolve to the empty
// scheme.
func Scheme(location string) string {
	if idx := strings.Index(location, "://"); idx >= 0 {
		return location[:idx]
	}
	return ""
}

// Resolve builds a fresh FileIO for the location, every call returns an
// independent instance.
// 每次调用返回独立的 FileIO 实例
func Resolve(location string, props map[string]string) (basic.FileIO, error) {
	scheme := Scheme(location)
	schemesMu.RLock()
	factory, ok := schemes[scheme]
	schemesMu.RUnlock()
	if !ok {
		return nil, jerrors.Errorf("no file io registered for scheme %q (location %s)", scheme, location)
	}
	return factory(location, props)
}

// FactoryFor binds Resolve to a fixed location and props
func FactoryFor(location string, props map[string]string) basic.FileIOFactory {
	return func() (basic.FileIO, error) {
		return Resolve(location, props)
	}
}

func init() {
	localFactory := func(location string, props map[string]string) (basic.FileIO, error) {
		return NewLocalFileIO(), nil
	}
	Register("", localFactory)
	Register("file", localFactory)
	Register("mem", func(location string, props map[string]string) (basic.FileIO, error) {
		return NewMemFileIO(location), nil
	})
}
