package metadata

import (
	"fmt"
)

// PARTITION_FIELD_ID_START is the first field id assigned to partition fields,
// kept clear of schema field ids.
const PARTITION_FIELD_ID_START = 1000

// PartitionField maps a source column through a transform into a partition value
type PartitionField struct {
	SourceID  int       `json:"source-id"`
	FieldID   int       `json:"field-id"`
	Name      string    `json:"name"`
	Transform Transform `json:"transform"`
}

// Clone returns a copy of the partition field
func (f *PartitionField) Clone() *PartitionField {
	clone := *f
	return &clone
}

// PartitionSpec describes how a table is partitioned
// 表示表的分区方式
type PartitionSpec struct {
	SpecID int               `json:"spec-id"`
	Fields []*PartitionField `json:"fields"`
}

// UnpartitionedSpec returns the spec of an unpartitioned table
func UnpartitionedSpec() *PartitionSpec {
	return &PartitionSpec{SpecID: 0, Fields: make([]*PartitionField, 0)}
}

// IsUnpartitioned reports whether the spec has no partition fields
func (p *PartitionSpec) IsUnpartitioned() bool {
	return len(p.Fields) == 0
}

// HighestFieldID returns the largest partition field id, or
// PARTITION_FIELD_ID_START-1 for an unpartitioned spec
func (p *PartitionSpec) HighestFieldID() int {
	highest := PARTITION_FIELD_ID_START - 1
	for _, f := range p.Fields {
		if f.FieldID > highest {
			highest = f.FieldID
		}
	}
	return highest
}

// Validate checks the spec fields against the given schema
func (p *PartitionSpec) Validate(schema *Schema) error {
	names := make(map[string]bool)
	ids := make(map[int]bool)
	for _, f := range p.Fields {
		if f.Name == "" {
			return fmt.Errorf("%w: partition field %d has an empty name", ErrInvalidSpec, f.FieldID)
		}
		if names[f.Name] {
			return fmt.Errorf("%w: duplicate partition field name %s", ErrInvalidSpec, f.Name)
		}
		if ids[f.FieldID] {
			return fmt.Errorf("%w: duplicate partition field id %d", ErrInvalidSpec, f.FieldID)
		}
		names[f.Name] = true
		ids[f.FieldID] = true
		if err := f.Transform.Validate(); err != nil {
			return fmt.Errorf("%w: field %s: %v", ErrInvalidSpec, f.Name, err)
		}
		if schema != nil {
			if _, ok := schema.GetColumnByID(f.SourceID); !ok {
				return fmt.Errorf("%w: field %s references unknown source id %d", ErrInvalidSpec, f.Name, f.SourceID)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the spec
func (p *PartitionSpec) Clone() *PartitionSpec {
	clone := &PartitionSpec{SpecID: p.SpecID, Fields: make([]*PartitionField, 0, len(p.Fields))}
	for _, f := range p.Fields {
		clone.Fields = append(clone.Fields, f.Clone())
	}
	return clone
}

// Equal reports whether two specs have the same id and fields
func (p *PartitionSpec) Equal(other *PartitionSpec) bool {
	if other == nil || p.SpecID != other.SpecID || len(p.Fields) != len(other.Fields) {
		return false
	}
	for i, f := range p.Fields {
		if *f != *other.Fields[i] {
			return false
		}
	}
	return true
}

// PartitionSpecBuilder is a builder for creating PartitionSpec objects
// 用于构建 PartitionSpec 对象的构建器
type PartitionSpecBuilder struct {
	schema *Schema
	spec   *PartitionSpec
	nextID int
	err    error
}

// NewPartitionSpecBuilder creates a builder bound to a schema
func NewPartitionSpecBuilder(schema *Schema) *PartitionSpecBuilder {
	return &PartitionSpecBuilder{
		schema: schema,
		spec:   &PartitionSpec{SpecID: 0, Fields: make([]*PartitionField, 0)},
		nextID: PARTITION_FIELD_ID_START,
	}
}

// WithSpecID sets the spec id
func (b *PartitionSpecBuilder) WithSpecID(id int) *PartitionSpecBuilder {
	b.spec.SpecID = id
	return b
}

// Identity partitions by the raw column value
func (b *PartitionSpecBuilder) Identity(column string) *PartitionSpecBuilder {
	return b.add(column, column, TRANSFORM_IDENTITY)
}

// Bucket partitions by a hash of the column value into n buckets
func (b *PartitionSpecBuilder) Bucket(column string, n int) *PartitionSpecBuilder {
	return b.add(column, column+"_bucket", BucketTransform(n))
}

// Truncate partitions by the column value truncated to the given width
func (b *PartitionSpecBuilder) Truncate(column string, width int) *PartitionSpecBuilder {
	return b.add(column, column+"_trunc", TruncateTransform(width))
}

// Year partitions by the year of a date or timestamp column
func (b *PartitionSpecBuilder) Year(column string) *PartitionSpecBuilder {
	return b.add(column, column+"_year", TRANSFORM_YEAR)
}

// Month partitions by the month of a date or timestamp column
func (b *PartitionSpecBuilder) Month(column string) *PartitionSpecBuilder {
	return b.add(column, column+"_month", TRANSFORM_MONTH)
}

// Day partitions by the day of a date or timestamp column
func (b *PartitionSpecBuilder) Day(column string) *PartitionSpecBuilder {
	return b.add(column, column+"_day", TRANSFORM_DAY)
}

// Hour partitions by the hour of a timestamp column
func (b *PartitionSpecBuilder) Hour(column string) *PartitionSpecBuilder {
	return b.add(column, column+"_hour", TRANSFORM_HOUR)
}

func (b *PartitionSpecBuilder) add(column, name string, transform Transform) *PartitionSpecBuilder {
	if b.err != nil {
		return b
	}
	col, ok := b.schema.GetColumn(column)
	if !ok {
		b.err = fmt.Errorf("%w: column %s not found in schema %d", ErrInvalidSpec, column, b.schema.SchemaID)
		return b
	}
	b.spec.Fields = append(b.spec.Fields, &PartitionField{
		SourceID:  col.ID,
		FieldID:   b.nextID,
		Name:      name,
		Transform: transform,
	})
	b.nextID++
	return b
}

// Build validates and returns the built PartitionSpec
func (b *PartitionSpecBuilder) Build() (*PartitionSpec, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.spec.Validate(b.schema); err != nil {
		return nil, err
	}
	return b.spec, nil
}
