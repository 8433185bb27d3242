package codec

import (
	"sort"
	"sync"

	jerrors "github.com/juju/errors"
	"github.com/zhukovaskychina/xiceberg/table/handle"
)

// Codec turns a handle proxy into bytes and back. Every codec routes through
// the proxy's explicit field list, a live resource has no representation on
// the wire.
// 句柄代理与字节流之间的编解码器
type Codec interface {
	// Name identifies the codec on the wire
	Name() string
	// Encode serializes a proxy
	Encode(p *handle.Proxy) ([]byte, error)
	// Decode restores a proxy, corrupt input fails with ErrDeserialization
	Decode(data []byte) (*handle.Proxy, error)
}

var (
	codecsMu sync.RWMutex
	codecs   = make(map[string]Codec)
)

// Register adds a codec under its name, replacing an earlier registration
func Register(c Codec) {
	codecsMu.Lock()
	defer codecsMu.Unlock()
	codecs[c.Name()] = c
}

// Get returns the codec registered under a name
func Get(name string) (Codec, error) {
	codecsMu.RLock()
	defer codecsMu.RUnlock()
	c, ok := codecs[name]
	if !ok {
		return nil, jerrors.Errorf("no codec registered under %q", name)
	}
	return c, nil
}

// Names lists the registered codec names in sorted order
func Names() []string {
	codecsMu.RLock()
	defer codecsMu.RUnlock()
	names := make([]string, 0, len(codecs))
	for name := range codecs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	Register(NewBinaryCodec(COMPRESS_NONE))
	Register(NewGobCodec())
}
