package handle

import (
	"sync"
	"sync/atomic"
	"testing"

	jerrors "github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhukovaskychina/xiceberg/table/basic"
)

// stubIO is a minimal FileIO counting closes
type stubIO struct {
	closes int32
}

func (s *stubIO) NewInputFile(path string) (basic.InputFile, error)   { return nil, nil }
func (s *stubIO) NewOutputFile(path string) (basic.OutputFile, error) { return nil, nil }
func (s *stubIO) DeleteFile(path string) error                        { return nil }
func (s *stubIO) Close() error {
	atomic.AddInt32(&s.closes, 1)
	return nil
}

func stubFactory(io basic.FileIO) basic.FileIOFactory {
	return func() (basic.FileIO, error) { return io, nil }
}

func TestSlotAcquireRelease(t *testing.T) {
	io := &stubIO{}
	slot := &resourceSlot{}
	assert.Equal(t, SLOT_STATE_EMPTY, slot.currentState())

	acquired, err := slot.acquire(stubFactory(io))
	require.NoError(t, err)
	assert.Same(t, basic.FileIO(io), acquired)
	assert.Equal(t, SLOT_STATE_OPEN, slot.currentState())

	t.Run("再次获取返回同一资源", func(t *testing.T) {
		again, err := slot.acquire(stubFactory(&stubIO{}))
		require.NoError(t, err)
		assert.Same(t, acquired, again)
	})

	require.NoError(t, slot.release())
	assert.Equal(t, SLOT_STATE_CLOSED, slot.currentState())
	assert.Equal(t, int32(1), atomic.LoadInt32(&io.closes))
}

func TestSlotReleaseOnEmpty(t *testing.T) {
	slot := &resourceSlot{}
	require.NoError(t, slot.release())
	// 空槽释放后保持可用
	assert.Equal(t, SLOT_STATE_EMPTY, slot.currentState())

	io := &stubIO{}
	acquired, err := slot.acquire(stubFactory(io))
	require.NoError(t, err)
	assert.Same(t, basic.FileIO(io), acquired)
	assert.Equal(t, int32(0), atomic.LoadInt32(&io.closes))
}

func TestSlotIdempotentRelease(t *testing.T) {
	io := &stubIO{}
	slot := &resourceSlot{}
	_, err := slot.acquire(stubFactory(io))
	require.NoError(t, err)

	require.NoError(t, slot.release())
	require.NoError(t, slot.release())
	require.NoError(t, slot.release())
	assert.Equal(t, int32(1), atomic.LoadInt32(&io.closes))
	assert.Equal(t, SLOT_STATE_CLOSED, slot.currentState())
}

func TestSlotAcquireAfterRelease(t *testing.T) {
	slot := &resourceSlot{}
	_, err := slot.acquire(stubFactory(&stubIO{}))
	require.NoError(t, err)
	require.NoError(t, slot.release())

	_, err = slot.acquire(stubFactory(&stubIO{}))
	require.Error(t, err)
	assert.True(t, basic.IsClosedHandle(err))
	assert.Equal(t, SLOT_STATE_CLOSED, slot.currentState())
}

func TestSlotFactoryFailureRetry(t *testing.T) {
	slot := &resourceSlot{}
	var calls int32
	io := &stubIO{}
	flaky := func() (basic.FileIO, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, jerrors.Errorf("warehouse unreachable")
		}
		return io, nil
	}

	_, err := slot.acquire(flaky)
	require.Error(t, err)
	assert.True(t, basic.IsResourceOpenFailed(err))
	// 失败的获取把槽留在空态，之后可重试
	assert.Equal(t, SLOT_STATE_EMPTY, slot.currentState())

	acquired, err := slot.acquire(flaky)
	require.NoError(t, err)
	assert.Same(t, basic.FileIO(io), acquired)
	assert.Equal(t, SLOT_STATE_OPEN, slot.currentState())
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestSlotNilFactoryResult(t *testing.T) {
	slot := &resourceSlot{}
	_, err := slot.acquire(func() (basic.FileIO, error) { return nil, nil })
	require.Error(t, err)
	assert.True(t, basic.IsResourceOpenFailed(err))
	assert.Equal(t, SLOT_STATE_EMPTY, slot.currentState())
}

func TestSlotConcurrentAcquire(t *testing.T) {
	slot := &resourceSlot{}
	var factoryRuns int32
	factory := func() (basic.FileIO, error) {
		atomic.AddInt32(&factoryRuns, 1)
		return &stubIO{}, nil
	}

	const goroutines = 32
	results := make([]basic.FileIO, goroutines)
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(idx int) {
			defer wg.Done()
			io, err := slot.acquire(factory)
			assert.NoError(t, err)
			results[idx] = io
		}(i)
	}
	wg.Wait()

	// 工厂只运行一次，所有调用者共享同一资源
	assert.Equal(t, int32(1), atomic.LoadInt32(&factoryRuns))
	for _, io := range results {
		assert.Same(t, results[0], io)
	}
}

func TestSlotConcurrentRelease(t *testing.T) {
	io := &stubIO{}
	slot := &resourceSlot{}
	_, err := slot.acquire(stubFactory(io))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = slot.release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&io.closes))
}
