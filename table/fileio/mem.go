package fileio

import (
	"strings"
	"sync"

	"github.com/dsnet/golib/memfile"
	jerrors "github.com/juju/errors"
	"github.com/zhukovaskychina/xiceberg/table/basic"
)

const memScheme = "mem://"

// memStore is a named in-memory filesystem shared by every MemFileIO view
// attached to the same store name.
// 同名 MemFileIO 视图共享的内存文件系统
type memStore struct {
	mu    sync.RWMutex
	files map[string]*memfile.File
}

var (
	memStoresMu sync.Mutex
	memStores   = make(map[string]*memStore)
)

func attachMemStore(name string) *memStore {
	memStoresMu.Lock()
	defer memStoresMu.Unlock()
	store, ok := memStores[name]
	if !ok {
		store = &memStore{files: make(map[string]*memfile.File)}
		memStores[name] = store
	}
	return store
}

// ResetMemStore drops a named store and its files
func ResetMemStore(name string) {
	memStoresMu.Lock()
	defer memStoresMu.Unlock()
	delete(memStores, name)
}

func memStoreName(location string) string {
	rest := strings.TrimPrefix(location, memScheme)
	if idx := strings.IndexByte(rest, '/'); idx >= 0 {
		return rest[:idx]
	}
	return rest
}

// MemFileIO is an independent view over a shared in-memory store, closing one
// view never touches its siblings.
// 关闭一个视图不影响同一存储上的其他视图
type MemFileIO struct {
	mu     sync.RWMutex
	store  *memStore
	closed bool
}

// NewMemFileIO attaches a fresh view to the store named in the location
func NewMemFileIO(location string) *MemFileIO {
	return &MemFileIO{store: attachMemStore(memStoreName(location))}
}

func (io *MemFileIO) checkOpen() error {
	io.mu.RLock()
	defer io.mu.RUnlock()
	if io.closed {
		return basic.ErrIOClosed
	}
	return nil
}

// NewInputFile opens a path for reading
func (io *MemFileIO) NewInputFile(path string) (basic.InputFile, error) {
	if err := io.checkOpen(); err != nil {
		return nil, err
	}
	return &memInputFile{io: io, location: path}, nil
}

// NewOutputFile opens a path for writing
func (io *MemFileIO) NewOutputFile(path string) (basic.OutputFile, error) {
	if err := io.checkOpen(); err != nil {
		return nil, err
	}
	return &memOutputFile{io: io, location: path}, nil
}

// DeleteFile removes a file from the shared store
func (io *MemFileIO) DeleteFile(path string) error {
	if err := io.checkOpen(); err != nil {
		return err
	}
	io.store.mu.Lock()
	defer io.store.mu.Unlock()
	if _, ok := io.store.files[path]; !ok {
		return jerrors.Errorf("delete %s: file does not exist", path)
	}
	delete(io.store.files, path)
	return nil
}

// Close releases this view, the shared store stays alive
func (io *MemFileIO) Close() error {
	io.mu.Lock()
	defer io.mu.Unlock()
	if io.closed {
		return basic.ErrIOClosed
	}
	io.closed = true
	return nil
}

type memInputFile struct {
	io       *MemFileIO
	location string
}

func (f *memInputFile) Location() string {
	return f.location
}

func (f *memInputFile) Exists() (bool, error) {
	if err := f.io.checkOpen(); err != nil {
		return false, err
	}
	f.io.store.mu.RLock()
	defer f.io.store.mu.RUnlock()
	_, ok := f.io.store.files[f.location]
	return ok, nil
}

func (f *memInputFile) ReadAll() ([]byte, error) {
	if err := f.io.checkOpen(); err != nil {
		return nil, err
	}
	f.io.store.mu.RLock()
	defer f.io.store.mu.RUnlock()
	file, ok := f.io.store.files[f.location]
	if !ok {
		return nil, jerrors.Errorf("read %s: file does not exist", f.location)
	}
	data := file.Bytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

type memOutputFile struct {
	io       *MemFileIO
	location string
}

func (f *memOutputFile) Location() string {
	return f.location
}

func (f *memOutputFile) Write(data []byte) error {
	if err := f.io.checkOpen(); err != nil {
		return err
	}
	f.io.store.mu.Lock()
	defer f.io.store.mu.Unlock()
	file := memfile.New(make([]byte, 0))
	if _, err := file.WriteAt(data, 0); err != nil {
		return jerrors.Annotatef(err, "write %s", f.location)
	}
	f.io.store.files[f.location] = file
	return nil
}

func (f *memOutputFile) WriteExclusive(data []byte) error {
	if err := f.io.checkOpen(); err != nil {
		return err
	}
	f.io.store.mu.Lock()
	defer f.io.store.mu.Unlock()
	if _, ok := f.io.store.files[f.location]; ok {
		return basic.ErrCommitConflict
	}
	file := memfile.New(make([]byte, 0))
	if _, err := file.WriteAt(data, 0); err != nil {
		return jerrors.Annotatef(err, "write %s", f.location)
	}
	f.io.store.files[f.location] = file
	return nil
}
