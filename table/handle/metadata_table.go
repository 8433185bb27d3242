package handle

import (
	jerrors "github.com/juju/errors"
	"github.com/zhukovaskychina/xiceberg/table/basic"
	"github.com/zhukovaskychina/xiceberg/table/metadata"
)

// MetadataTableType names a derived metadata view of a table. The set is
// closed, ParseMetadataTableType rejects anything else.
type MetadataTableType uint8

// 元数据视图类型
const (
	METADATA_TABLE_NONE MetadataTableType = iota
	METADATA_TABLE_SNAPSHOTS
	METADATA_TABLE_HISTORY
	METADATA_TABLE_MANIFESTS
	METADATA_TABLE_PARTITIONS
	METADATA_TABLE_ALL_DATA_FILES
	METADATA_TABLE_ALL_MANIFESTS
	METADATA_TABLE_REFS
)

func (t MetadataTableType) String() string {
	switch t {
	case METADATA_TABLE_SNAPSHOTS:
		return "SNAPSHOTS"
	case METADATA_TABLE_HISTORY:
		return "HISTORY"
	case METADATA_TABLE_MANIFESTS:
		return "MANIFESTS"
	case METADATA_TABLE_PARTITIONS:
		return "PARTITIONS"
	case METADATA_TABLE_ALL_DATA_FILES:
		return "ALL_DATA_FILES"
	case METADATA_TABLE_ALL_MANIFESTS:
		return "ALL_MANIFESTS"
	case METADATA_TABLE_REFS:
		return "REFS"
	case METADATA_TABLE_NONE:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// MetadataTableTypes returns every view type in declaration order
func MetadataTableTypes() []MetadataTableType {
	return []MetadataTableType{
		METADATA_TABLE_SNAPSHOTS,
		METADATA_TABLE_HISTORY,
		METADATA_TABLE_MANIFESTS,
		METADATA_TABLE_PARTITIONS,
		METADATA_TABLE_ALL_DATA_FILES,
		METADATA_TABLE_ALL_MANIFESTS,
		METADATA_TABLE_REFS,
	}
}

// ParseMetadataTableType resolves the String form of a view type
func ParseMetadataTableType(s string) (MetadataTableType, error) {
	for _, typ := range MetadataTableTypes() {
		if typ.String() == s {
			return typ, nil
		}
	}
	return METADATA_TABLE_NONE, jerrors.Errorf("unknown metadata table type %q", s)
}

func validMetadataTableType(t MetadataTableType) bool {
	return t > METADATA_TABLE_NONE && t <= METADATA_TABLE_REFS
}

// MetadataTable is a read-only derived view over a base table's current
// metadata. Its schema is the fixed projection of its view type.
// 基表元数据之上的只读派生视图
type MetadataTable struct {
	ops      basic.TableOperations
	baseName string
	name     string
	typ      MetadataTableType
}

// CreateMetadataTable builds the named view over a loaded table
func CreateMetadataTable(ops basic.TableOperations, baseName, name string, typ MetadataTableType) (*MetadataTable, error) {
	if !validMetadataTableType(typ) {
		return nil, jerrors.Errorf("unknown metadata table type %d", typ)
	}
	if ops == nil || ops.Current() == nil {
		return nil, jerrors.Errorf("metadata table %s needs loaded base operations", name)
	}
	return &MetadataTable{ops: ops, baseName: baseName, name: name, typ: typ}, nil
}

// Type returns the view type
func (t *MetadataTable) Type() MetadataTableType {
	return t.typ
}

// BaseName returns the name of the table the view derives from
func (t *MetadataTable) BaseName() string {
	return t.baseName
}

// Name returns the view name
func (t *MetadataTable) Name() string {
	return t.name
}

// Location returns the base table location
func (t *MetadataTable) Location() string {
	return t.ops.Current().Location
}

// Schema returns the projection of the view type
func (t *MetadataTable) Schema() *metadata.Schema {
	return viewSchema(t.typ, t.ops.Current())
}

// Spec returns the unpartitioned spec, views carry no partitioning
func (t *MetadataTable) Spec() *metadata.PartitionSpec {
	return metadata.UnpartitionedSpec()
}

// SortOrder returns the unsorted order
func (t *MetadataTable) SortOrder() *metadata.SortOrder {
	return metadata.UnsortedOrder()
}

// Properties returns the base table properties
func (t *MetadataTable) Properties() map[string]string {
	return t.ops.Current().Properties
}

// CurrentSnapshot returns the base table's current snapshot
func (t *MetadataTable) CurrentSnapshot() *metadata.Snapshot {
	return t.ops.Current().CurrentSnapshot()
}

// Snapshots returns the base table's snapshots
func (t *MetadataTable) Snapshots() []*metadata.Snapshot {
	return t.ops.Current().Snapshots
}

// Metadata returns the base table's metadata snapshot
func (t *MetadataTable) Metadata() *metadata.TableMetadata {
	return t.ops.Current()
}

// IO returns the base operations' resource
func (t *MetadataTable) IO() (basic.FileIO, error) {
	return t.ops.IO(), nil
}

// viewSchema is the fixed projection of each view type. PARTITIONS reflects
// the base table's partition fields in front of the aggregate columns.
func viewSchema(typ MetadataTableType, base *metadata.TableMetadata) *metadata.Schema {
	builder := metadata.NewSchemaBuilder(0)
	switch typ {
	case METADATA_TABLE_SNAPSHOTS:
		builder.AddColumn("committed_at", metadata.LongType(), metadata.Required()).
			AddColumn("snapshot_id", metadata.LongType(), metadata.Required()).
			AddColumn("parent_id", metadata.LongType()).
			AddColumn("operation", metadata.StringType()).
			AddColumn("manifest_list", metadata.StringType()).
			AddColumn("summary", metadata.StringType())
	case METADATA_TABLE_HISTORY:
		builder.AddColumn("made_current_at", metadata.LongType(), metadata.Required()).
			AddColumn("snapshot_id", metadata.LongType(), metadata.Required()).
			AddColumn("parent_id", metadata.LongType()).
			AddColumn("is_current_ancestor", metadata.BooleanType(), metadata.Required())
	case METADATA_TABLE_MANIFESTS:
		builder.AddColumn("path", metadata.StringType(), metadata.Required()).
			AddColumn("length", metadata.LongType(), metadata.Required()).
			AddColumn("partition_spec_id", metadata.IntType()).
			AddColumn("added_snapshot_id", metadata.LongType()).
			AddColumn("added_data_files_count", metadata.IntType()).
			AddColumn("existing_data_files_count", metadata.IntType()).
			AddColumn("deleted_data_files_count", metadata.IntType())
	case METADATA_TABLE_PARTITIONS:
		appendPartitionColumns(builder, base)
		builder.AddColumn("record_count", metadata.LongType(), metadata.Required()).
			AddColumn("file_count", metadata.IntType(), metadata.Required())
	case METADATA_TABLE_ALL_DATA_FILES:
		builder.AddColumn("content", metadata.IntType(), metadata.Required()).
			AddColumn("file_path", metadata.StringType(), metadata.Required()).
			AddColumn("file_format", metadata.StringType(), metadata.Required()).
			AddColumn("record_count", metadata.LongType(), metadata.Required()).
			AddColumn("file_size_in_bytes", metadata.LongType(), metadata.Required()).
			AddColumn("partition_spec_id", metadata.IntType())
	case METADATA_TABLE_ALL_MANIFESTS:
		builder.AddColumn("path", metadata.StringType(), metadata.Required()).
			AddColumn("length", metadata.LongType(), metadata.Required()).
			AddColumn("partition_spec_id", metadata.IntType()).
			AddColumn("added_snapshot_id", metadata.LongType()).
			AddColumn("reference_snapshot_id", metadata.LongType(), metadata.Required())
	case METADATA_TABLE_REFS:
		builder.AddColumn("name", metadata.StringType(), metadata.Required()).
			AddColumn("type", metadata.StringType(), metadata.Required()).
			AddColumn("snapshot_id", metadata.LongType(), metadata.Required()).
			AddColumn("max_reference_age_in_ms", metadata.LongType()).
			AddColumn("min_snapshots_to_keep", metadata.IntType()).
			AddColumn("max_snapshot_age_in_ms", metadata.LongType())
	}
	schema, err := builder.Build()
	if err != nil {
		// projections are fixed column sets, they always build
		return &metadata.Schema{}
	}
	return schema
}

// appendPartitionColumns projects the base partition fields, identity fields
// keep the source column type, time transforms and buckets project to int,
// truncate keeps the source type.
func appendPartitionColumns(builder *metadata.SchemaBuilder, base *metadata.TableMetadata) {
	if base == nil {
		return
	}
	spec := base.DefaultSpec()
	schema := base.CurrentSchema()
	if spec == nil || schema == nil {
		return
	}
	for _, field := range spec.Fields {
		colType := metadata.IntType()
		if field.Transform.IsIdentity() || field.Transform.IsTruncate() {
			if source, ok := schema.GetColumnByID(field.SourceID); ok {
				colType = source.Type
			}
		}
		builder.AddColumn(field.Name, colType)
	}
}
