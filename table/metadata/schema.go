package metadata

import (
	"fmt"
	"strings"

	"github.com/piex/transcode"
)

// Column describes a single field of a table schema
// 表示表结构中的一列
type Column struct {
	ID       int        `json:"id"`
	Name     string     `json:"name"`
	Type     ColumnType `json:"type"`
	Required bool       `json:"required"`
	Doc      string     `json:"doc,omitempty"`
}

// Clone returns a copy of the column
func (c *Column) Clone() *Column {
	clone := *c
	return &clone
}

// Schema is an ordered set of columns identified by a schema id
// 表示带版本号的表结构
type Schema struct {
	SchemaID int       `json:"schema-id"`
	Columns  []*Column `json:"fields"`
}

// GetColumn returns a column by name (case-insensitive)
func (s *Schema) GetColumn(name string) (*Column, bool) {
	for _, col := range s.Columns {
		if strings.EqualFold(col.Name, name) {
			return col, true
		}
	}
	return nil, false
}

// GetColumnByID returns a column by its field id
func (s *Schema) GetColumnByID(id int) (*Column, bool) {
	for _, col := range s.Columns {
		if col.ID == id {
			return col, true
		}
	}
	return nil, false
}

// HighestColumnID returns the largest field id in the schema
func (s *Schema) HighestColumnID() int {
	highest := 0
	for _, col := range s.Columns {
		if col.ID > highest {
			highest = col.ID
		}
	}
	return highest
}

// Validate checks the schema for duplicate names, duplicate ids and bad types
func (s *Schema) Validate() error {
	if len(s.Columns) == 0 {
		return fmt.Errorf("%w: schema %d has no columns", ErrInvalidSchema, s.SchemaID)
	}
	names := make(map[string]bool)
	ids := make(map[int]bool)
	for _, col := range s.Columns {
		if col.Name == "" {
			return fmt.Errorf("%w: column %d has an empty name", ErrInvalidSchema, col.ID)
		}
		if col.ID <= 0 {
			return fmt.Errorf("%w: column %s has field id %d", ErrInvalidSchema, col.Name, col.ID)
		}
		lower := strings.ToLower(col.Name)
		if names[lower] {
			return fmt.Errorf("%w: duplicate column name %s", ErrInvalidSchema, col.Name)
		}
		if ids[col.ID] {
			return fmt.Errorf("%w: duplicate field id %d", ErrInvalidSchema, col.ID)
		}
		names[lower] = true
		ids[col.ID] = true
		if err := col.Type.Validate(); err != nil {
			return fmt.Errorf("%w: column %s: %v", ErrInvalidSchema, col.Name, err)
		}
	}
	return nil
}

// Clone returns a deep copy of the schema
func (s *Schema) Clone() *Schema {
	clone := &Schema{SchemaID: s.SchemaID, Columns: make([]*Column, 0, len(s.Columns))}
	for _, col := range s.Columns {
		clone.Columns = append(clone.Columns, col.Clone())
	}
	return clone
}

// Equal reports whether two schemas have the same id and columns
func (s *Schema) Equal(other *Schema) bool {
	if other == nil || s.SchemaID != other.SchemaID || len(s.Columns) != len(other.Columns) {
		return false
	}
	for i, col := range s.Columns {
		if *col != *other.Columns[i] {
			return false
		}
	}
	return true
}

// SchemaBuilder is a builder for creating Schema objects
// 用于构建 Schema 对象的构建器，字段号自动分配
type SchemaBuilder struct {
	schema *Schema
	nextID int
}

// NewSchemaBuilder creates a builder for the given schema version
func NewSchemaBuilder(schemaID int) *SchemaBuilder {
	return &SchemaBuilder{
		schema: &Schema{SchemaID: schemaID, Columns: make([]*Column, 0)},
		nextID: 1,
	}
}

// AddColumn adds a column, field ids are assigned in order
func (b *SchemaBuilder) AddColumn(name string, colType ColumnType, options ...ColumnOption) *SchemaBuilder {
	col := &Column{
		ID:   b.nextID,
		Name: name,
		Type: colType,
	}
	for _, opt := range options {
		opt(col)
	}
	if col.ID >= b.nextID {
		b.nextID = col.ID + 1
	}
	b.schema.Columns = append(b.schema.Columns, col)
	return b
}

// Build validates and returns the built Schema
func (b *SchemaBuilder) Build() (*Schema, error) {
	if err := b.schema.Validate(); err != nil {
		return nil, err
	}
	return b.schema, nil
}

// ColumnOption is a function that modifies a Column
// 用于修改 Column 的函数类型
type ColumnOption func(*Column)

// Required marks the column as required
func Required() ColumnOption {
	return func(c *Column) {
		c.Required = true
	}
}

// WithDoc sets the column doc text
func WithDoc(doc string) ColumnOption {
	return func(c *Column) {
		c.Doc = doc
	}
}

// WithFieldID overrides the assigned field id
func WithFieldID(id int) ColumnOption {
	return func(c *Column) {
		c.ID = id
	}
}

// WithLegacyDoc sets a doc carried in a legacy character set,
// converted to UTF-8 before it is stored
func WithLegacyDoc(raw []byte, charset string) ColumnOption {
	return func(c *Column) {
		c.Doc = NormalizeDoc(raw, charset)
	}
}

// NormalizeDoc converts doc text from a legacy character set to UTF-8
// 兼容历史目录中以 GBK 等编码存储的列注释
func NormalizeDoc(raw []byte, charset string) string {
	switch strings.ToUpper(charset) {
	case "", "UTF-8", "UTF8":
		return string(raw)
	default:
		return transcode.FromByteArray(raw).Decode(strings.ToUpper(charset)).ToString()
	}
}
