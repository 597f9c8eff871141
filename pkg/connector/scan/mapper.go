package scan

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/ajitpratap0/nebula-fdw/pkg/connector/core"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
	"github.com/ajitpratap0/nebula-fdw/pkg/json"
)

// number is satisfied by JSON number literals from either JSON package.
type number interface {
	Int64() (int64, error)
	Float64() (float64, error)
	String() string
}

// ToRow converts record into a row holding exactly the requested columns.
// index is the record's position in the scan and is only used in errors.
//
// A field the record does not carry, or carries as null, becomes an absent
// cell. A field that is present but cannot be converted to its column type
// fails the whole row.
func ToRow(record Record, columns []core.Column, index int64) (core.Row, error) {
	row := core.NewRow(columns)
	if record == nil {
		return row, nil
	}
	for i, col := range columns {
		v, ok := record.Field(col.Name)
		if !ok {
			continue
		}
		cell, err := Convert(v, col.Type)
		if err != nil {
			return core.Row{}, errors.MappingFailure(col.Name, index, err)
		}
		row.Fields[i].Cell = cell
	}
	return row, nil
}

// Convert turns one source value into a cell of type typ. A nil value,
// including a nil pointer, is an absent cell.
func Convert(v interface{}, typ core.SemanticType) (*core.Cell, error) {
	v = deref(v)
	if v == nil {
		return nil, nil
	}
	switch typ {
	case core.TypeInt64:
		n, err := toInt64(v)
		if err != nil {
			return nil, err
		}
		return core.Int64Cell(n), nil
	case core.TypeFloat64:
		f, err := toFloat64(v)
		if err != nil {
			return nil, err
		}
		return core.Float64Cell(f), nil
	case core.TypeText:
		s, err := toText(v)
		if err != nil {
			return nil, err
		}
		return core.TextCell(s), nil
	case core.TypeTimestamp:
		t, err := toTime(v)
		if err != nil {
			return nil, err
		}
		return core.TimestampCell(t), nil
	case core.TypeJsonb:
		doc, err := toJSON(v)
		if err != nil {
			return nil, err
		}
		return core.JsonbCell(doc), nil
	case core.TypeFloatArray:
		fs, err := toFloats(v)
		if err != nil {
			return nil, err
		}
		return core.FloatArrayCell(fs), nil
	case core.TypeBool:
		b, err := toBool(v)
		if err != nil {
			return nil, err
		}
		return core.BoolCell(b), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeInternal, "no conversion for column type %q", typ)
	}
}

func deref(v interface{}) interface{} {
	for v != nil {
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Ptr {
			return v
		}
		if rv.IsNil() {
			return nil
		}
		v = rv.Elem().Interface()
	}
	return nil
}

func conversionError(v interface{}, target string) error {
	return errors.Newf(errors.ErrorTypeData, "cannot convert %T value %s to %s", v, preview(v), target)
}

func preview(v interface{}) string {
	s := fmt.Sprintf("%v", v)
	if len(s) > 64 {
		s = s[:61] + "..."
	}
	return strconv.Quote(s)
}

func toInt64(v interface{}) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int64:
		return x, nil
	case uint:
		return uintToInt64(uint64(x), v)
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint64:
		return uintToInt64(x, v)
	case float32:
		return floatToInt64(float64(x), v)
	case float64:
		return floatToInt64(x, v)
	case number:
		if n, err := x.Int64(); err == nil {
			return n, nil
		}
		f, err := x.Float64()
		if err != nil {
			return 0, conversionError(v, "bigint")
		}
		return floatToInt64(f, v)
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return 0, conversionError(v, "bigint")
		}
		return n, nil
	default:
		return 0, conversionError(v, "bigint")
	}
}

func uintToInt64(u uint64, orig interface{}) (int64, error) {
	if u > math.MaxInt64 {
		return 0, conversionError(orig, "bigint")
	}
	return int64(u), nil
}

func floatToInt64(f float64, orig interface{}) (int64, error) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, conversionError(orig, "bigint")
	}
	return int64(f), nil
}

func toFloat64(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case number:
		f, err := x.Float64()
		if err != nil {
			return 0, conversionError(v, "double precision")
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, conversionError(v, "double precision")
		}
		return f, nil
	default:
		return 0, conversionError(v, "double precision")
	}
}

func toText(v interface{}) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case bool:
		return strconv.FormatBool(x), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x), nil
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case time.Time:
		return x.UTC().Format(time.RFC3339), nil
	case number:
		return x.String(), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	// Named string types such as SDK enums
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.String {
		return rv.String(), nil
	}
	return "", conversionError(v, "text")
}

func toTime(v interface{}) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x, nil
	case string:
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(x))
		if err != nil {
			return time.Time{}, errors.Wrap(err, errors.ErrorTypeData,
				fmt.Sprintf("timestamp %s is not RFC3339", preview(v)))
		}
		return t, nil
	case float32, float64:
		n, err := toInt64(v)
		if err != nil {
			return time.Time{}, conversionError(v, "timestamp")
		}
		return time.Unix(n, 0).UTC(), nil
	case bool:
		return time.Time{}, conversionError(v, "timestamp")
	}
	if n, err := toInt64(v); err == nil {
		return time.Unix(n, 0).UTC(), nil
	}
	return time.Time{}, conversionError(v, "timestamp")
}

func toJSON(v interface{}) ([]byte, error) {
	var doc []byte
	switch x := v.(type) {
	case json.RawMessage:
		doc = []byte(x)
	case []byte:
		doc = x
	case string:
		doc = []byte(x)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, fmt.Sprintf("cannot encode %T as jsonb", v))
		}
		return b, nil
	}
	if !json.Valid(doc) {
		return nil, conversionError(v, "jsonb")
	}
	out := make([]byte, len(doc))
	copy(out, doc)
	return out, nil
}

func toFloats(v interface{}) ([]float32, error) {
	switch x := v.(type) {
	case []float32:
		out := make([]float32, len(x))
		copy(out, x)
		return out, nil
	case []float64:
		out := make([]float32, len(x))
		for i, f := range x {
			out[i] = float32(f)
		}
		return out, nil
	case []interface{}:
		out := make([]float32, len(x))
		for i, e := range x {
			e = deref(e)
			if e == nil {
				return nil, errors.Newf(errors.ErrorTypeData, "array element %d is null", i)
			}
			if _, isString := e.(string); isString {
				return nil, errors.Newf(errors.ErrorTypeData, "array element %d is not a number: %s", i, preview(e))
			}
			f, err := toFloat64(e)
			if err != nil {
				return nil, errors.Newf(errors.ErrorTypeData, "array element %d is not a number: %s", i, preview(e))
			}
			out[i] = float32(f)
		}
		return out, nil
	default:
		return nil, conversionError(v, "real[]")
	}
}

func toBool(v interface{}) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, conversionError(v, "boolean")
		}
		return b, nil
	default:
		return false, conversionError(v, "boolean")
	}
}
