package metadata

import (
	"fmt"
)

// SortDirection 排序方向
type SortDirection string

const (
	SORT_ASC  SortDirection = "asc"
	SORT_DESC SortDirection = "desc"
)

// NullOrder 空值排序位置
type NullOrder string

const (
	NULLS_FIRST NullOrder = "nulls-first"
	NULLS_LAST  NullOrder = "nulls-last"
)

// SortField orders rows by a transformed source column
type SortField struct {
	SourceID  int           `json:"source-id"`
	Transform Transform     `json:"transform"`
	Direction SortDirection `json:"direction"`
	NullOrder NullOrder     `json:"null-order"`
}

// Clone returns a copy of the sort field
func (f *SortField) Clone() *SortField {
	clone := *f
	return &clone
}

// SortOrder describes how rows in a table are sorted
// 表示表的排序方式
type SortOrder struct {
	OrderID int          `json:"order-id"`
	Fields  []*SortField `json:"fields"`
}

// UnsortedOrder returns the order of an unsorted table
func UnsortedOrder() *SortOrder {
	return &SortOrder{OrderID: 0, Fields: make([]*SortField, 0)}
}

// IsUnsorted reports whether the order has no sort fields
func (o *SortOrder) IsUnsorted() bool {
	return len(o.Fields) == 0
}

// Validate checks the sort fields against the given schema
func (o *SortOrder) Validate(schema *Schema) error {
	if o.OrderID == 0 && len(o.Fields) > 0 {
		return fmt.Errorf("%w: order id 0 is reserved for the unsorted order", ErrInvalidSortOrder)
	}
	for _, f := range o.Fields {
		if f.Direction != SORT_ASC && f.Direction != SORT_DESC {
			return fmt.Errorf("%w: unknown direction %q", ErrInvalidSortOrder, f.Direction)
		}
		if f.NullOrder != NULLS_FIRST && f.NullOrder != NULLS_LAST {
			return fmt.Errorf("%w: unknown null order %q", ErrInvalidSortOrder, f.NullOrder)
		}
		if err := f.Transform.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSortOrder, err)
		}
		if schema != nil {
			if _, ok := schema.GetColumnByID(f.SourceID); !ok {
				return fmt.Errorf("%w: unknown source id %d", ErrInvalidSortOrder, f.SourceID)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the sort order
func (o *SortOrder) Clone() *SortOrder {
	clone := &SortOrder{OrderID: o.OrderID, Fields: make([]*SortField, 0, len(o.Fields))}
	for _, f := range o.Fields {
		clone.Fields = append(clone.Fields, f.Clone())
	}
	return clone
}

// Equal reports whether two sort orders have the same id and fields
func (o *SortOrder) Equal(other *SortOrder) bool {
	if other == nil || o.OrderID != other.OrderID || len(o.Fields) != len(other.Fields) {
		return false
	}
	for i, f := range o.Fields {
		if *f != *other.Fields[i] {
			return false
		}
	}
	return true
}

// SortOrderBuilder is a builder for creating SortOrder objects
// 用于构建 SortOrder 对象的构建器
type SortOrderBuilder struct {
	schema *Schema
	order  *SortOrder
	err    error
}

// NewSortOrderBuilder creates a builder bound to a schema
func NewSortOrderBuilder(schema *Schema) *SortOrderBuilder {
	return &SortOrderBuilder{
		schema: schema,
		order:  &SortOrder{OrderID: 1, Fields: make([]*SortField, 0)},
	}
}

// WithOrderID sets the order id
func (b *SortOrderBuilder) WithOrderID(id int) *SortOrderBuilder {
	b.order.OrderID = id
	return b
}

// Asc sorts by the column ascending, nulls first
func (b *SortOrderBuilder) Asc(column string) *SortOrderBuilder {
	return b.add(column, TRANSFORM_IDENTITY, SORT_ASC, NULLS_FIRST)
}

// Desc sorts by the column descending, nulls last
func (b *SortOrderBuilder) Desc(column string) *SortOrderBuilder {
	return b.add(column, TRANSFORM_IDENTITY, SORT_DESC, NULLS_LAST)
}

// AscTransform sorts ascending by a transformed column
func (b *SortOrderBuilder) AscTransform(column string, transform Transform) *SortOrderBuilder {
	return b.add(column, transform, SORT_ASC, NULLS_FIRST)
}

func (b *SortOrderBuilder) add(column string, transform Transform, direction SortDirection, nullOrder NullOrder) *SortOrderBuilder {
	if b.err != nil {
		return b
	}
	col, ok := b.schema.GetColumn(column)
	if !ok {
		b.err = fmt.Errorf("%w: column %s not found in schema %d", ErrInvalidSortOrder, column, b.schema.SchemaID)
		return b
	}
	b.order.Fields = append(b.order.Fields, &SortField{
		SourceID:  col.ID,
		Transform: transform,
		Direction: direction,
		NullOrder: nullOrder,
	})
	return b
}

// Build validates and returns the built SortOrder
func (b *SortOrderBuilder) Build() (*SortOrder, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.order.Validate(b.schema); err != nil {
		return nil, err
	}
	return b.order, nil
}
