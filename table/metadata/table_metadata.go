package metadata

import (
	"encoding/json"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	jerrors "github.com/juju/errors"
	"github.com/zhukovaskychina/xiceberg/util"
)

const (
	FORMAT_V1 = 1
	FORMAT_V2 = 2

	DEFAULT_FORMAT_VERSION = FORMAT_V2

	// NO_CURRENT_SNAPSHOT 表示表还没有任何快照
	NO_CURRENT_SNAPSHOT int64 = -1
)

// reservedProperties are table properties owned by the metadata itself,
// they can never be set through a properties update.
var reservedProperties = mapset.NewSet(
	"format-version",
	"table-uuid",
	"location",
	"last-updated-ms",
	"current-snapshot-id",
	"snapshot-count",
)

// IsReservedProperty reports whether the key is owned by the metadata layer
func IsReservedProperty(key string) bool {
	return reservedProperties.Contains(key)
}

// ReservedProperties returns the reserved property keys in no particular order
func ReservedProperties() []string {
	return reservedProperties.ToSlice()
}

// TableMetadata is the complete immutable state of a table at one point in
// time. Handles capture it by value, mutation goes through MetadataBuilder.
// 表的完整元数据快照，修改必须经过 MetadataBuilder
type TableMetadata struct {
	FormatVersion      int                 `json:"format-version"`
	TableUUID          string              `json:"table-uuid"`
	Location           string              `json:"location"`
	LastSequenceNumber int64               `json:"last-sequence-number"`
	LastUpdatedMs      int64               `json:"last-updated-ms"`
	LastColumnID       int                 `json:"last-column-id"`
	CurrentSchemaID    int                 `json:"current-schema-id"`
	Schemas            []*Schema           `json:"schemas"`
	DefaultSpecID      int                 `json:"default-spec-id"`
	PartitionSpecs     []*PartitionSpec    `json:"partition-specs"`
	LastPartitionID    int                 `json:"last-partition-id"`
	DefaultSortOrderID int                 `json:"default-sort-order-id"`
	SortOrders         []*SortOrder        `json:"sort-orders"`
	Properties         map[string]string   `json:"properties,omitempty"`
	CurrentSnapshotID  int64               `json:"current-snapshot-id"`
	Snapshots          []*Snapshot         `json:"snapshots,omitempty"`
	SnapshotLog        []*SnapshotLogEntry `json:"snapshot-log,omitempty"`
	MetadataLog        []*MetadataLogEntry `json:"metadata-log,omitempty"`
}

// NewTableMetadata creates the first metadata version of a fresh table
func NewTableMetadata(schema *Schema, spec *PartitionSpec, order *SortOrder, location string, properties map[string]string) (*TableMetadata, error) {
	if schema == nil {
		return nil, jerrors.Annotate(ErrInvalidMetadata, "schema is required")
	}
	if location == "" {
		return nil, jerrors.Annotate(ErrInvalidMetadata, "location is required")
	}
	if spec == nil {
		spec = UnpartitionedSpec()
	}
	if order == nil {
		order = UnsortedOrder()
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if err := spec.Validate(schema); err != nil {
		return nil, err
	}
	if err := order.Validate(schema); err != nil {
		return nil, err
	}

	props := make(map[string]string, len(properties))
	for k, v := range properties {
		if IsReservedProperty(k) {
			return nil, jerrors.Annotatef(ErrReservedProperty, "cannot set %q", k)
		}
		props[k] = v
	}

	meta := &TableMetadata{
		FormatVersion:      DEFAULT_FORMAT_VERSION,
		TableUUID:          uuid.New().String(),
		Location:           location,
		LastSequenceNumber: 0,
		LastUpdatedMs:      util.GetCurrentTimeMillis(),
		LastColumnID:       schema.HighestColumnID(),
		CurrentSchemaID:    schema.SchemaID,
		Schemas:            []*Schema{schema.Clone()},
		DefaultSpecID:      spec.SpecID,
		PartitionSpecs:     []*PartitionSpec{spec.Clone()},
		LastPartitionID:    spec.HighestFieldID(),
		DefaultSortOrderID: order.OrderID,
		SortOrders:         []*SortOrder{order.Clone()},
		Properties:         props,
		CurrentSnapshotID:  NO_CURRENT_SNAPSHOT,
		Snapshots:          make([]*Snapshot, 0),
		SnapshotLog:        make([]*SnapshotLogEntry, 0),
		MetadataLog:        make([]*MetadataLogEntry, 0),
	}
	return meta, nil
}

// CurrentSchema returns the schema currently in effect
func (m *TableMetadata) CurrentSchema() *Schema {
	schema, _ := m.SchemaByID(m.CurrentSchemaID)
	return schema
}

// SchemaByID returns a schema by its id
func (m *TableMetadata) SchemaByID(id int) (*Schema, bool) {
	for _, s := range m.Schemas {
		if s.SchemaID == id {
			return s, true
		}
	}
	return nil, false
}

// DefaultSpec returns the partition spec currently in effect
func (m *TableMetadata) DefaultSpec() *PartitionSpec {
	spec, _ := m.SpecByID(m.DefaultSpecID)
	return spec
}

// SpecByID returns a partition spec by its id
func (m *TableMetadata) SpecByID(id int) (*PartitionSpec, bool) {
	for _, p := range m.PartitionSpecs {
		if p.SpecID == id {
			return p, true
		}
	}
	return nil, false
}

// DefaultSortOrder returns the sort order currently in effect
func (m *TableMetadata) DefaultSortOrder() *SortOrder {
	order, _ := m.SortOrderByID(m.DefaultSortOrderID)
	return order
}

// SortOrderByID returns a sort order by its id
func (m *TableMetadata) SortOrderByID(id int) (*SortOrder, bool) {
	for _, o := range m.SortOrders {
		if o.OrderID == id {
			return o, true
		}
	}
	return nil, false
}

// CurrentSnapshot returns the current snapshot, or nil when the table is empty
func (m *TableMetadata) CurrentSnapshot() *Snapshot {
	if m.CurrentSnapshotID == NO_CURRENT_SNAPSHOT {
		return nil
	}
	snap, _ := m.SnapshotByID(m.CurrentSnapshotID)
	return snap
}

// SnapshotByID returns a snapshot by its id
func (m *TableMetadata) SnapshotByID(id int64) (*Snapshot, bool) {
	for _, s := range m.Snapshots {
		if s.SnapshotID == id {
			return s, true
		}
	}
	return nil, false
}

// Property returns a table property, or the default when absent
func (m *TableMetadata) Property(key, defaultValue string) string {
	if m.Properties == nil {
		return defaultValue
	}
	if v, ok := m.Properties[key]; ok {
		return v
	}
	return defaultValue
}

// Clone returns a deep copy, the copy shares nothing with the original
func (m *TableMetadata) Clone() *TableMetadata {
	clone := *m

	clone.Schemas = make([]*Schema, 0, len(m.Schemas))
	for _, s := range m.Schemas {
		clone.Schemas = append(clone.Schemas, s.Clone())
	}
	clone.PartitionSpecs = make([]*PartitionSpec, 0, len(m.PartitionSpecs))
	for _, p := range m.PartitionSpecs {
		clone.PartitionSpecs = append(clone.PartitionSpecs, p.Clone())
	}
	clone.SortOrders = make([]*SortOrder, 0, len(m.SortOrders))
	for _, o := range m.SortOrders {
		clone.SortOrders = append(clone.SortOrders, o.Clone())
	}
	clone.Snapshots = make([]*Snapshot, 0, len(m.Snapshots))
	for _, s := range m.Snapshots {
		clone.Snapshots = append(clone.Snapshots, s.Clone())
	}
	clone.SnapshotLog = make([]*SnapshotLogEntry, 0, len(m.SnapshotLog))
	for _, e := range m.SnapshotLog {
		entry := *e
		clone.SnapshotLog = append(clone.SnapshotLog, &entry)
	}
	clone.MetadataLog = make([]*MetadataLogEntry, 0, len(m.MetadataLog))
	for _, e := range m.MetadataLog {
		entry := *e
		clone.MetadataLog = append(clone.MetadataLog, &entry)
	}
	if m.Properties != nil {
		clone.Properties = make(map[string]string, len(m.Properties))
		for k, v := range m.Properties {
			clone.Properties[k] = v
		}
	}
	return &clone
}

// Equal reports whether two metadata snapshots are identical field for field
func (m *TableMetadata) Equal(other *TableMetadata) bool {
	if other == nil {
		return false
	}
	left, err := json.Marshal(m)
	if err != nil {
		return false
	}
	right, err := json.Marshal(other)
	if err != nil {
		return false
	}
	return string(left) == string(right)
}

// Validate checks structural integrity and reference resolution
func (m *TableMetadata) Validate() error {
	if m.FormatVersion != FORMAT_V1 && m.FormatVersion != FORMAT_V2 {
		return jerrors.Annotatef(ErrInvalidMetadata, "unsupported format version %d", m.FormatVersion)
	}
	if m.TableUUID == "" {
		return jerrors.Annotate(ErrInvalidMetadata, "table uuid is empty")
	}
	if _, err := uuid.Parse(m.TableUUID); err != nil {
		return jerrors.Annotatef(ErrInvalidMetadata, "malformed table uuid %q", m.TableUUID)
	}
	if m.Location == "" {
		return jerrors.Annotate(ErrInvalidMetadata, "location is empty")
	}
	if len(m.Schemas) == 0 {
		return jerrors.Annotate(ErrInvalidMetadata, "no schemas")
	}
	schema, ok := m.SchemaByID(m.CurrentSchemaID)
	if !ok {
		return jerrors.Annotatef(ErrSchemaNotFound, "current schema id %d", m.CurrentSchemaID)
	}
	for _, s := range m.Schemas {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	if _, ok := m.SpecByID(m.DefaultSpecID); !ok {
		return jerrors.Annotatef(ErrInvalidMetadata, "default spec id %d not found", m.DefaultSpecID)
	}
	for _, p := range m.PartitionSpecs {
		if err := p.Validate(schema); err != nil {
			return err
		}
	}
	if _, ok := m.SortOrderByID(m.DefaultSortOrderID); !ok {
		return jerrors.Annotatef(ErrInvalidMetadata, "default sort order id %d not found", m.DefaultSortOrderID)
	}
	for _, o := range m.SortOrders {
		if err := o.Validate(schema); err != nil {
			return err
		}
	}
	if m.CurrentSnapshotID != NO_CURRENT_SNAPSHOT {
		if _, ok := m.SnapshotByID(m.CurrentSnapshotID); !ok {
			return jerrors.Annotatef(ErrSnapshotNotFound, "current snapshot id %d", m.CurrentSnapshotID)
		}
	}
	return nil
}

// ToJSON renders the metadata as the canonical indented document
func (m *TableMetadata) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// ParseTableMetadata parses and validates a metadata document
func ParseTableMetadata(data []byte) (*TableMetadata, error) {
	meta := &TableMetadata{CurrentSnapshotID: NO_CURRENT_SNAPSHOT}
	if err := json.Unmarshal(data, meta); err != nil {
		return nil, jerrors.Annotate(ErrInvalidMetadata, err.Error())
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	return meta, nil
}

// SnapshotCount returns the number of snapshots the table keeps
func (m *TableMetadata) SnapshotCount() int {
	return len(m.Snapshots)
}

// String renders a short description for logs
func (m *TableMetadata) String() string {
	return fmt.Sprintf("metadata{uuid=%s location=%s snapshots=%d current=%d}",
		m.TableUUID, m.Location, len(m.Snapshots), m.CurrentSnapshotID)
}
