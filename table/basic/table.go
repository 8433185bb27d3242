package basic

import (
	"github.com/zhukovaskychina/xiceberg/table/metadata"
)

// Table is the read surface shared by live tables, serializable handles,
// metadata views and transaction views. Metadata accessors answer from the
// table's current metadata snapshot and never perform I/O.
type Table interface {
	// Name returns the table name
	Name() string
	// Location returns the table root location
	Location() string
	// Schema returns the schema in effect
	Schema() *metadata.Schema
	// Spec returns the partition spec in effect
	Spec() *metadata.PartitionSpec
	// SortOrder returns the sort order in effect
	SortOrder() *metadata.SortOrder
	// Properties returns the table properties
	Properties() map[string]string
	// CurrentSnapshot returns the current snapshot, nil for an empty table
	CurrentSnapshot() *metadata.Snapshot
	// Snapshots returns all known snapshots
	Snapshots() []*metadata.Snapshot
	// Metadata returns the full metadata snapshot backing the table
	Metadata() *metadata.TableMetadata
	// IO returns the I/O resource of the table
	IO() (FileIO, error)
}

// TableOperations loads and publishes the metadata of one table
// 负责单个表元数据的读取与发布
type TableOperations interface {
	// Current returns the metadata as of the last refresh
	Current() *metadata.TableMetadata
	// Refresh reloads the metadata from storage
	Refresh() (*metadata.TableMetadata, error)
	// Commit publishes updated metadata, base must still be current
	Commit(base, updated *metadata.TableMetadata) error
	// IO returns the resource the operations read and write with
	IO() FileIO
	// MetadataLocation returns the path of the current metadata file
	MetadataLocation() string
}
