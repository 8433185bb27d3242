package handle

import (
	"sync"

	jerrors "github.com/juju/errors"
	"github.com/zhukovaskychina/xiceberg/table/basic"
)

// SlotState is the lifecycle state of a handle's resource slot
type SlotState uint8

// 资源槽状态
const (
	SLOT_STATE_EMPTY SlotState = iota
	SLOT_STATE_OPEN
	SLOT_STATE_CLOSED
)

func (s SlotState) String() string {
	switch s {
	case SLOT_STATE_EMPTY:
		return "EMPTY"
	case SLOT_STATE_OPEN:
		return "OPEN"
	case SLOT_STATE_CLOSED:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// resourceSlot holds the lazily built FileIO of one handle. Slots start empty,
// acquire builds the resource on first use, release closes it exactly once.
// A slot never travels with a serialized handle.
// 每个句柄私有的资源槽
type resourceSlot struct {
	mu    sync.Mutex
	state SlotState
	io    basic.FileIO
}

// acquire returns the slot's resource, running the factory on first use.
// Concurrent callers block on the construction and share the one resource,
// a factory failure leaves the slot empty so a later acquire may retry.
func (slot *resourceSlot) acquire(factory basic.FileIOFactory) (basic.FileIO, error) {
	slot.mu.Lock()
	defer slot.mu.Unlock()
	switch slot.state {
	case SLOT_STATE_OPEN:
		return slot.io, nil
	case SLOT_STATE_CLOSED:
		return nil, basic.ErrClosedHandle
	}
	if factory == nil {
		return nil, jerrors.Annotatef(basic.ErrResourceOpenFailed, "no file io factory")
	}
	io, err := factory()
	if err != nil {
		return nil, jerrors.Annotatef(basic.ErrResourceOpenFailed, "building file io: %v", err)
	}
	if io == nil {
		return nil, jerrors.Annotatef(basic.ErrResourceOpenFailed, "factory returned no file io")
	}
	slot.io = io
	slot.state = SLOT_STATE_OPEN
	return io, nil
}

// release closes the resource. An empty slot stays empty and re-acquirable,
// an open slot transitions to closed even when the close itself errors,
// releasing a closed slot is a no-op.
func (slot *resourceSlot) release() error {
	slot.mu.Lock()
	defer slot.mu.Unlock()
	switch slot.state {
	case SLOT_STATE_EMPTY, SLOT_STATE_CLOSED:
		return nil
	}
	io := slot.io
	slot.io = nil
	slot.state = SLOT_STATE_CLOSED
	return io.Close()
}

// currentState reports the slot state
func (slot *resourceSlot) currentState() SlotState {
	slot.mu.Lock()
	defer slot.mu.Unlock()
	return slot.state
}
