package fileio

import (
	"sync"
	"sync/atomic"

	"github.com/zhukovaskychina/xiceberg/table/basic"
)

// TrackingFileIO wraps another FileIO and counts lifecycle events, it backs
// the resource accounting assertions in tests and demos.
// 包装其他 FileIO 并统计生命周期事件
type TrackingFileIO struct {
	inner  basic.FileIO
	closes int64
	reads  int64
	writes int64
}

// NewTrackingFileIO wraps an existing FileIO
func NewTrackingFileIO(inner basic.FileIO) *TrackingFileIO {
	return &TrackingFileIO{inner: inner}
}

// CloseCount reports how many times Close succeeded
func (io *TrackingFileIO) CloseCount() int64 {
	return atomic.LoadInt64(&io.closes)
}

// ReadCount reports how many ReadAll calls went through
func (io *TrackingFileIO) ReadCount() int64 {
	return atomic.LoadInt64(&io.reads)
}

// WriteCount reports how many Write and WriteExclusive calls went through
func (io *TrackingFileIO) WriteCount() int64 {
	return atomic.LoadInt64(&io.writes)
}

func (io *TrackingFileIO) NewInputFile(path string) (basic.InputFile, error) {
	in, err := io.inner.NewInputFile(path)
	if err != nil {
		return nil, err
	}
	return &trackingInputFile{io: io, inner: in}, nil
}

func (io *TrackingFileIO) NewOutputFile(path string) (basic.OutputFile, error) {
	out, err := io.inner.NewOutputFile(path)
	if err != nil {
		return nil, err
	}
	return &trackingOutputFile{io: io, inner: out}, nil
}

func (io *TrackingFileIO) DeleteFile(path string) error {
	return io.inner.DeleteFile(path)
}

func (io *TrackingFileIO) Close() error {
	if err := io.inner.Close(); err != nil {
		return err
	}
	atomic.AddInt64(&io.closes, 1)
	return nil
}

type trackingInputFile struct {
	io    *TrackingFileIO
	inner basic.InputFile
}

func (f *trackingInputFile) Location() string {
	return f.inner.Location()
}

func (f *trackingInputFile) Exists() (bool, error) {
	return f.inner.Exists()
}

func (f *trackingInputFile) ReadAll() ([]byte, error) {
	data, err := f.inner.ReadAll()
	if err != nil {
		return nil, err
	}
	atomic.AddInt64(&f.io.reads, 1)
	return data, nil
}

type trackingOutputFile struct {
	io    *TrackingFileIO
	inner basic.OutputFile
}

func (f *trackingOutputFile) Location() string {
	return f.inner.Location()
}

func (f *trackingOutputFile) Write(data []byte) error {
	if err := f.inner.Write(data); err != nil {
		return err
	}
	atomic.AddInt64(&f.io.writes, 1)
	return nil
}

func (f *trackingOutputFile) WriteExclusive(data []byte) error {
	if err := f.inner.WriteExclusive(data); err != nil {
		return err
	}
	atomic.AddInt64(&f.io.writes, 1)
	return nil
}

// TrackingRegistry hands out tracking wrappers and keeps every instance it
// created, so tests can inspect per-instance counters afterwards.
// 记录每个已创建实例以便事后检查计数
type TrackingRegistry struct {
	mu        sync.Mutex
	instances []*TrackingFileIO
}

// NewTrackingRegistry creates an empty registry
func NewTrackingRegistry() *TrackingRegistry {
	return &TrackingRegistry{}
}

// Wrap registers and returns a tracking view over inner
func (r *TrackingRegistry) Wrap(inner basic.FileIO) *TrackingFileIO {
	tracked := NewTrackingFileIO(inner)
	r.mu.Lock()
	r.instances = append(r.instances, tracked)
	r.mu.Unlock()
	return tracked
}

// Instances returns every tracking view created so far
func (r *TrackingRegistry) Instances() []*TrackingFileIO {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*TrackingFileIO, len(r.instances))
	copy(out, r.instances)
	return out
}

// TotalCloses sums CloseCount across all instances
func (r *TrackingRegistry) TotalCloses() int64 {
	var total int64
	for _, tracked := range r.Instances() {
		total += tracked.CloseCount()
	}
	return total
}
