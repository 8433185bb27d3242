package handle

import (
	jerrors "github.com/juju/errors"
	"github.com/zhukovaskychina/xiceberg/table/basic"
	"github.com/zhukovaskychina/xiceberg/table/metadata"
)

// BaseTable is the live table over a TableOperations, the planner-side object
// handles are captured from. Accessors answer from the operations' current
// metadata.
// 基于 TableOperations 的活动表
type BaseTable struct {
	ops  basic.TableOperations
	name string
}

// NewBaseTable wraps loaded operations as a live table
func NewBaseTable(ops basic.TableOperations, name string) *BaseTable {
	return &BaseTable{ops: ops, name: name}
}

// Name returns the table name
func (t *BaseTable) Name() string {
	return t.name
}

// Location returns the table root location
func (t *BaseTable) Location() string {
	return t.ops.Current().Location
}

// Schema returns the schema in effect
func (t *BaseTable) Schema() *metadata.Schema {
	return t.ops.Current().CurrentSchema()
}

// Spec returns the partition spec in effect
func (t *BaseTable) Spec() *metadata.PartitionSpec {
	return t.ops.Current().DefaultSpec()
}

// SortOrder returns the sort order in effect
func (t *BaseTable) SortOrder() *metadata.SortOrder {
	return t.ops.Current().DefaultSortOrder()
}

// Properties returns the table properties
func (t *BaseTable) Properties() map[string]string {
	return t.ops.Current().Properties
}

// CurrentSnapshot returns the current snapshot, nil for an empty table
func (t *BaseTable) CurrentSnapshot() *metadata.Snapshot {
	return t.ops.Current().CurrentSnapshot()
}

// Snapshots returns all known snapshots
func (t *BaseTable) Snapshots() []*metadata.Snapshot {
	return t.ops.Current().Snapshots
}

// Metadata returns the full metadata snapshot backing the table
func (t *BaseTable) Metadata() *metadata.TableMetadata {
	return t.ops.Current()
}

// IO returns the operations' resource
func (t *BaseTable) IO() (basic.FileIO, error) {
	return t.ops.IO(), nil
}

// Operations exposes the underlying operations layer
func (t *BaseTable) Operations() basic.TableOperations {
	return t.ops
}

// Refresh reloads the table metadata from storage
func (t *BaseTable) Refresh() (*metadata.TableMetadata, error) {
	return t.ops.Refresh()
}

// NewTransaction starts a transaction over the table's current state
func (t *BaseTable) NewTransaction() (*Transaction, error) {
	base := t.ops.Current()
	if base == nil {
		return nil, jerrors.Errorf("table %s has no current metadata", t.name)
	}
	return newTransaction(t, base), nil
}
