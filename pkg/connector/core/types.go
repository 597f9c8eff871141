package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
	"github.com/ajitpratap0/nebula-fdw/pkg/json"
)

// SemanticType is the closed set of cell types a connector can produce.
type SemanticType string

const (
	TypeInt64      SemanticType = "int64"
	TypeFloat64    SemanticType = "float64"
	TypeText       SemanticType = "text"
	TypeTimestamp  SemanticType = "timestamp"
	TypeJsonb      SemanticType = "jsonb"
	TypeFloatArray SemanticType = "float_array"
	TypeBool       SemanticType = "bool"
)

var typeAliases = map[string]SemanticType{
	"int64":            TypeInt64,
	"bigint":           TypeInt64,
	"int8":             TypeInt64,
	"float64":          TypeFloat64,
	"double precision": TypeFloat64,
	"float8":           TypeFloat64,
	"text":             TypeText,
	"varchar":          TypeText,
	"string":           TypeText,
	"timestamp":        TypeTimestamp,
	"timestamptz":      TypeTimestamp,
	"jsonb":            TypeJsonb,
	"json":             TypeJsonb,
	"float_array":      TypeFloatArray,
	"real[]":           TypeFloatArray,
	"float4[]":         TypeFloatArray,
	"float[]":          TypeFloatArray,
	"bool":             TypeBool,
	"boolean":          TypeBool,
}

// ParseSemanticType resolves a host type name to a SemanticType.
func ParseSemanticType(name string) (SemanticType, error) {
	key := strings.ToLower(strings.Join(strings.Fields(name), " "))
	if t, ok := typeAliases[key]; ok {
		return t, nil
	}
	return "", errors.New(errors.ErrorTypeConfig, fmt.Sprintf("unknown column type `%s`", name)).
		WithDetail(errors.DetailGot, name)
}

// HostName returns the host engine's spelling of the type.
func (t SemanticType) HostName() string {
	switch t {
	case TypeInt64:
		return "bigint"
	case TypeFloat64:
		return "double precision"
	case TypeText:
		return "text"
	case TypeTimestamp:
		return "timestamp"
	case TypeJsonb:
		return "jsonb"
	case TypeFloatArray:
		return "real[]"
	case TypeBool:
		return "boolean"
	default:
		return string(t)
	}
}

// Column is one declared column of a foreign table.
type Column struct {
	Name string       `json:"name"`
	Type SemanticType `json:"type"`
}

// Cell is a single typed value. A nil *Cell is an absent value.
type Cell struct {
	Type SemanticType
	// Int holds Int64 values and Timestamp values as seconds since epoch.
	Int    int64
	Float  float64
	Text   string
	Bool   bool
	JSON   []byte
	Floats []float32
}

// Constructors for present cells.
func Int64Cell(v int64) *Cell          { return &Cell{Type: TypeInt64, Int: v} }
func Float64Cell(v float64) *Cell      { return &Cell{Type: TypeFloat64, Float: v} }
func TextCell(v string) *Cell          { return &Cell{Type: TypeText, Text: v} }
func BoolCell(v bool) *Cell            { return &Cell{Type: TypeBool, Bool: v} }
func JsonbCell(doc []byte) *Cell       { return &Cell{Type: TypeJsonb, JSON: doc} }
func FloatArrayCell(v []float32) *Cell { return &Cell{Type: TypeFloatArray, Floats: v} }

// TimestampCell stores t truncated to whole seconds.
func TimestampCell(t time.Time) *Cell { return &Cell{Type: TypeTimestamp, Int: t.Unix()} }

// Time returns the timestamp held by a Timestamp cell.
func (c *Cell) Time() time.Time {
	return time.Unix(c.Int, 0).UTC()
}

// Value returns the cell as a plain Go value suitable for encoding.
func (c *Cell) Value() interface{} {
	if c == nil {
		return nil
	}
	switch c.Type {
	case TypeInt64:
		return c.Int
	case TypeFloat64:
		return c.Float
	case TypeText:
		return c.Text
	case TypeTimestamp:
		return c.Time().Format(time.RFC3339)
	case TypeJsonb:
		return json.RawMessage(c.JSON)
	case TypeFloatArray:
		return c.Floats
	case TypeBool:
		return c.Bool
	default:
		return nil
	}
}

// String renders the cell for logs and test failures.
func (c *Cell) String() string {
	if c == nil {
		return "NULL"
	}
	switch c.Type {
	case TypeJsonb:
		return string(c.JSON)
	default:
		return fmt.Sprint(c.Value())
	}
}

// Field is one (column, cell) slot of a Row.
type Field struct {
	Name string
	Cell *Cell
}

// Row holds one cell slot per requested column, in request order.
type Row struct {
	Fields []Field
}

// NewRow allocates a row with one empty slot per column.
func NewRow(columns []Column) Row {
	fields := make([]Field, len(columns))
	for i, c := range columns {
		fields[i].Name = c.Name
	}
	return Row{Fields: fields}
}

// Len returns the number of slots
func (r Row) Len() int { return len(r.Fields) }

// Get returns the cell for name and whether the row has such a slot.
func (r Row) Get(name string) (*Cell, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Cell, true
		}
	}
	return nil, false
}

// Values returns the slot values in column order.
func (r Row) Values() []interface{} {
	out := make([]interface{}, len(r.Fields))
	for i, f := range r.Fields {
		out[i] = f.Cell.Value()
	}
	return out
}

// Map returns the slots keyed by column name; absent cells map to nil.
func (r Row) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(r.Fields))
	for _, f := range r.Fields {
		out[f.Name] = f.Cell.Value()
	}
	return out
}

// MarshalJSON encodes the row as an object whose keys follow column order.
func (r Row) MarshalJSON() ([]byte, error) {
	buf := json.GetBuffer()
	defer json.PutBuffer(buf)

	buf.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Cell.Value())
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to encode cell").
				WithDetail(errors.DetailColumn, f.Name)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return append([]byte(nil), buf.Bytes()...), nil
}

// Qual is a predicate the host could push down.
type Qual struct {
	Field    string
	Operator string
	Value    interface{}
}

// Sort is an ordering the host would like.
type Sort struct {
	Field      string
	Descending bool
}

// Limit is the host's row limit hint.
type Limit struct {
	Count  int64
	Offset int64
}

// ScanHints are advisory; connectors may ignore any of them.
type ScanHints struct {
	Quals []Qual
	Sorts []Sort
	Limit *Limit
}

// Scope is the catalog object whose options are being validated.
type Scope int

const (
	ServerLevel Scope = iota
	TableLevel
)

// String returns the catalog object name
func (s Scope) String() string {
	switch s {
	case ServerLevel:
		return "server"
	case TableLevel:
		return "table"
	default:
		return fmt.Sprintf("scope(%d)", int(s))
	}
}

// MarshalText encodes the scope by name
func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
