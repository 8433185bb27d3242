package metadata

import (
	"fmt"
	"strconv"
	"strings"
)

// TypeID identifies a primitive column type
type TypeID uint8

const (
	TYPE_BOOLEAN TypeID = iota + 1
	TYPE_INT
	TYPE_LONG
	TYPE_FLOAT
	TYPE_DOUBLE
	TYPE_DATE
	TYPE_TIME
	TYPE_TIMESTAMP
	TYPE_STRING
	TYPE_UUID
	TYPE_BINARY
	TYPE_DECIMAL
)

// ColumnType is a primitive column type, precision and scale are only
// meaningful for decimals.
// 列类型，precision/scale 仅对 decimal 有效
type ColumnType struct {
	ID        TypeID
	Precision int
	Scale     int
}

var typeNames = map[TypeID]string{
	TYPE_BOOLEAN:   "boolean",
	TYPE_INT:       "int",
	TYPE_LONG:      "long",
	TYPE_FLOAT:     "float",
	TYPE_DOUBLE:    "double",
	TYPE_DATE:      "date",
	TYPE_TIME:      "time",
	TYPE_TIMESTAMP: "timestamp",
	TYPE_STRING:    "string",
	TYPE_UUID:      "uuid",
	TYPE_BINARY:    "binary",
	TYPE_DECIMAL:   "decimal",
}

func BooleanType() ColumnType   { return ColumnType{ID: TYPE_BOOLEAN} }
func IntType() ColumnType       { return ColumnType{ID: TYPE_INT} }
func LongType() ColumnType      { return ColumnType{ID: TYPE_LONG} }
func FloatType() ColumnType     { return ColumnType{ID: TYPE_FLOAT} }
func DoubleType() ColumnType    { return ColumnType{ID: TYPE_DOUBLE} }
func DateType() ColumnType      { return ColumnType{ID: TYPE_DATE} }
func TimeType() ColumnType      { return ColumnType{ID: TYPE_TIME} }
func TimestampType() ColumnType { return ColumnType{ID: TYPE_TIMESTAMP} }
func StringType() ColumnType    { return ColumnType{ID: TYPE_STRING} }
func UUIDType() ColumnType      { return ColumnType{ID: TYPE_UUID} }
func BinaryType() ColumnType    { return ColumnType{ID: TYPE_BINARY} }

func DecimalType(precision, scale int) ColumnType {
	return ColumnType{ID: TYPE_DECIMAL, Precision: precision, Scale: scale}
}

// String renders the type in its canonical metadata form
func (t ColumnType) String() string {
	if t.ID == TYPE_DECIMAL {
		return fmt.Sprintf("decimal(%d, %d)", t.Precision, t.Scale)
	}
	name, ok := typeNames[t.ID]
	if !ok {
		return "unknown"
	}
	return name
}

// Validate checks the type is well formed
func (t ColumnType) Validate() error {
	if _, ok := typeNames[t.ID]; !ok {
		return fmt.Errorf("unknown type id %d", t.ID)
	}
	if t.ID == TYPE_DECIMAL {
		if t.Precision < 1 || t.Precision > 38 {
			return fmt.Errorf("decimal precision %d out of range [1, 38]", t.Precision)
		}
		if t.Scale < 0 || t.Scale > t.Precision {
			return fmt.Errorf("decimal scale %d out of range [0, %d]", t.Scale, t.Precision)
		}
	}
	return nil
}

// ParseColumnType parses the canonical string form of a column type
func ParseColumnType(s string) (ColumnType, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "decimal(") && strings.HasSuffix(s, ")") {
		body := s[len("decimal(") : len(s)-1]
		parts := strings.Split(body, ",")
		if len(parts) != 2 {
			return ColumnType{}, fmt.Errorf("malformed decimal type %q", s)
		}
		precision, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return ColumnType{}, fmt.Errorf("malformed decimal precision in %q", s)
		}
		scale, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return ColumnType{}, fmt.Errorf("malformed decimal scale in %q", s)
		}
		t := DecimalType(precision, scale)
		if err := t.Validate(); err != nil {
			return ColumnType{}, err
		}
		return t, nil
	}

	for id, name := range typeNames {
		if name == s && id != TYPE_DECIMAL {
			return ColumnType{ID: id}, nil
		}
	}
	return ColumnType{}, fmt.Errorf("unknown column type %q", s)
}

// MarshalJSON renders the type as its canonical string
func (t ColumnType) MarshalJSON() ([]byte, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return []byte(strconv.Quote(t.String())), nil
}

// UnmarshalJSON parses the canonical string form
func (t *ColumnType) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("column type is not a string: %s", data)
	}
	parsed, err := ParseColumnType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
