package handle

import (
	"strings"

	jerrors "github.com/juju/errors"
	"github.com/zhukovaskychina/xiceberg/table/basic"
	"github.com/zhukovaskychina/xiceberg/table/fileio"
	"github.com/zhukovaskychina/xiceberg/table/metadata"
)

// HandleKind tells what a serializable handle was captured from
type HandleKind uint8

// 句柄种类
const (
	HANDLE_KIND_NONE HandleKind = iota
	HANDLE_KIND_TABLE
	HANDLE_KIND_METADATA_VIEW
	HANDLE_KIND_TRANSACTION
)

func (k HandleKind) String() string {
	switch k {
	case HANDLE_KIND_TABLE:
		return "TABLE"
	case HANDLE_KIND_METADATA_VIEW:
		return "METADATA_VIEW"
	case HANDLE_KIND_TRANSACTION:
		return "TRANSACTION"
	default:
		return "UNKNOWN"
	}
}

func validHandleKind(k HandleKind) bool {
	return k == HANDLE_KIND_TABLE || k == HANDLE_KIND_METADATA_VIEW || k == HANDLE_KIND_TRANSACTION
}

// IO_PROPERTY_PREFIX marks the table properties a handle carries for
// rebuilding its FileIO on the worker side
const IO_PROPERTY_PREFIX = "io."

// proxyOverheadBytes covers the fixed frame fields of an encoded handle
const proxyOverheadBytes = 64

// SerializableTable is a table handle safe to move between processes. It
// pairs an immutable metadata snapshot with one private resource slot, the
// snapshot answers every metadata accessor, the slot builds the FileIO on
// first use. Capturing or decoding never carries a live resource along.
// 可跨进程传输的表句柄
type SerializableTable struct {
	meta             *metadata.TableMetadata
	name             string
	location         string
	metadataLocation string
	kind             HandleKind
	viewType         MetadataTableType
	ioProps          map[string]string
	sizeEstimate     int64
	slot             resourceSlot
}

// CopyOf captures a handle from a live table, a metadata view, a transaction
// table or another handle. The captured snapshot is a deep copy and the new
// handle's slot starts empty, the source keeps sole ownership of whatever
// resource it may hold.
func CopyOf(t basic.Table) (*SerializableTable, error) {
	switch src := t.(type) {
	case *SerializableTable:
		return newHandle(src.kind, src.viewType, src.name, src.location, src.metadataLocation,
			src.meta.Clone(), copyProperties(src.ioProps))
	case *BaseTable:
		meta := src.Metadata()
		if meta == nil {
			return nil, jerrors.Errorf("table %s has no current metadata", src.Name())
		}
		return newHandle(HANDLE_KIND_TABLE, METADATA_TABLE_NONE, src.Name(), meta.Location,
			src.ops.MetadataLocation(), meta.Clone(), ioProperties(meta.Properties))
	case *MetadataTable:
		meta := src.Metadata()
		return newHandle(HANDLE_KIND_METADATA_VIEW, src.typ, src.Name(), meta.Location,
			src.ops.MetadataLocation(), meta.Clone(), ioProperties(meta.Properties))
	case *transactionTable:
		meta := src.pendingMetadata()
		if meta == nil {
			return nil, jerrors.Errorf("transaction of %s has no pending metadata", src.Name())
		}
		return newHandle(HANDLE_KIND_TRANSACTION, METADATA_TABLE_NONE, src.Name(), meta.Location,
			src.metadataLocation(), meta.Clone(), ioProperties(meta.Properties))
	case nil:
		return nil, jerrors.Errorf("cannot capture nil table")
	default:
		return nil, jerrors.Errorf("cannot capture table of type %T", t)
	}
}

func newHandle(kind HandleKind, viewType MetadataTableType, name, location, metadataLocation string,
	meta *metadata.TableMetadata, ioProps map[string]string) (*SerializableTable, error) {
	raw, err := meta.ToJSON()
	if err != nil {
		return nil, err
	}
	return &SerializableTable{
		meta:             meta,
		name:             name,
		location:         location,
		metadataLocation: metadataLocation,
		kind:             kind,
		viewType:         viewType,
		ioProps:          ioProps,
		sizeEstimate:     estimateHandleSize(name, location, metadataLocation, raw, ioProps),
	}, nil
}

// estimateHandleSize is the byte-size estimate of the encoded handle,
// computed once at capture or restore
func estimateHandleSize(name, location, metadataLocation string, metaJSON []byte, ioProps map[string]string) int64 {
	size := int64(proxyOverheadBytes)
	size += int64(len(name) + len(location) + len(metadataLocation) + len(metaJSON))
	for k, v := range ioProps {
		size += int64(len(k) + len(v))
	}
	return size
}

// ioProperties filters the properties a handle needs for rebuilding its
// FileIO on the other side
func ioProperties(props map[string]string) map[string]string {
	out := make(map[string]string)
	for k, v := range props {
		if strings.HasPrefix(k, IO_PROPERTY_PREFIX) {
			out[k] = v
		}
	}
	return out
}

func copyProperties(props map[string]string) map[string]string {
	out := make(map[string]string, len(props))
	for k, v := range props {
		out[k] = v
	}
	return out
}

// Name returns the captured table name
func (t *SerializableTable) Name() string {
	return t.name
}

// Location returns the captured table location
func (t *SerializableTable) Location() string {
	return t.location
}

// MetadataLocation returns the metadata file the snapshot was captured from
func (t *SerializableTable) MetadataLocation() string {
	return t.metadataLocation
}

// Schema answers from the captured snapshot, view handles project their
// view type's schema
func (t *SerializableTable) Schema() *metadata.Schema {
	if t.kind == HANDLE_KIND_METADATA_VIEW {
		return viewSchema(t.viewType, t.meta)
	}
	return t.meta.CurrentSchema()
}

// Spec answers from the captured snapshot
func (t *SerializableTable) Spec() *metadata.PartitionSpec {
	if t.kind == HANDLE_KIND_METADATA_VIEW {
		return metadata.UnpartitionedSpec()
	}
	return t.meta.DefaultSpec()
}

// SortOrder answers from the captured snapshot
func (t *SerializableTable) SortOrder() *metadata.SortOrder {
	if t.kind == HANDLE_KIND_METADATA_VIEW {
		return metadata.UnsortedOrder()
	}
	return t.meta.DefaultSortOrder()
}

// Properties answers from the captured snapshot
func (t *SerializableTable) Properties() map[string]string {
	return t.meta.Properties
}

// CurrentSnapshot answers from the captured snapshot
func (t *SerializableTable) CurrentSnapshot() *metadata.Snapshot {
	return t.meta.CurrentSnapshot()
}

// Snapshots answers from the captured snapshot
func (t *SerializableTable) Snapshots() []*metadata.Snapshot {
	return t.meta.Snapshots
}

// Metadata returns the captured snapshot itself
func (t *SerializableTable) Metadata() *metadata.TableMetadata {
	return t.meta
}

// IO returns the handle's own resource, building it on first use through the
// FileIO scheme registry
func (t *SerializableTable) IO() (basic.FileIO, error) {
	return t.slot.acquire(fileio.FactoryFor(t.location, t.ioProps))
}

// Close releases the handle's resource. Closing a handle that never acquired
// is a no-op, closing twice is a no-op.
func (t *SerializableTable) Close() error {
	return t.slot.release()
}

// SizeEstimate reports the estimated encoded size in bytes
func (t *SerializableTable) SizeEstimate() int64 {
	return t.sizeEstimate
}

// Kind reports what the handle was captured from
func (t *SerializableTable) Kind() HandleKind {
	return t.kind
}

// ViewType reports the metadata view type, NONE for plain table handles
func (t *SerializableTable) ViewType() MetadataTableType {
	return t.viewType
}

// ResourceState reports the slot state for logging and tests
func (t *SerializableTable) ResourceState() SlotState {
	return t.slot.currentState()
}
