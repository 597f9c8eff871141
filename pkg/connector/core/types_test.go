package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
)

func TestParseSemanticType(t *testing.T) {
	tests := []struct {
		in   string
		want SemanticType
	}{
		{"bigint", TypeInt64},
		{"BIGINT", TypeInt64},
		{"double  precision", TypeFloat64},
		{"varchar", TypeText},
		{"timestamptz", TypeTimestamp},
		{"json", TypeJsonb},
		{"real[]", TypeFloatArray},
		{"boolean", TypeBool},
		{"float_array", TypeFloatArray},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSemanticType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSemanticTypeUnknown(t *testing.T) {
	_, err := ParseSemanticType("uuid")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
	assert.Contains(t, err.Error(), "uuid")
}

func TestHostNameRoundTrips(t *testing.T) {
	for _, typ := range []SemanticType{TypeInt64, TypeFloat64, TypeText, TypeTimestamp, TypeJsonb, TypeFloatArray, TypeBool} {
		got, err := ParseSemanticType(typ.HostName())
		require.NoError(t, err)
		assert.Equal(t, typ, got)
	}
}

func TestRowKeepsEverySlot(t *testing.T) {
	columns := []Column{{Name: "id", Type: TypeInt64}, {Name: "payload", Type: TypeJsonb}}
	row := NewRow(columns)
	row.Fields[0].Cell = Int64Cell(7)

	require.Equal(t, 2, row.Len())
	cell, ok := row.Get("payload")
	assert.True(t, ok)
	assert.Nil(t, cell)

	_, ok = row.Get("vector")
	assert.False(t, ok)

	assert.Equal(t, map[string]interface{}{"id": int64(7), "payload": nil}, row.Map())
	assert.Equal(t, []interface{}{int64(7), nil}, row.Values())
}

func TestRowMarshalJSONKeepsColumnOrder(t *testing.T) {
	columns := []Column{
		{Name: "vector", Type: TypeFloatArray},
		{Name: "payload", Type: TypeJsonb},
		{Name: "id", Type: TypeInt64},
		{Name: "name", Type: TypeText},
	}
	row := NewRow(columns)
	row.Fields[0].Cell = FloatArrayCell([]float32{0.5, 1})
	row.Fields[2].Cell = Int64Cell(7)
	row.Fields[3].Cell = TextCell("a\"b")

	data, err := row.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"vector":[0.5,1],"payload":null,"id":7,"name":"a\"b"}`, string(data))

	empty, err := Row{}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(empty))
}

func TestCellValue(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-01T12:00:00Z", TimestampCell(ts).Value())
	assert.Equal(t, ts.Unix(), TimestampCell(ts).Int)
	assert.Equal(t, `{"a":1}`, JsonbCell([]byte(`{"a":1}`)).String())
	assert.Equal(t, "NULL", (*Cell)(nil).String())
	assert.Equal(t, []float32{0.5}, FloatArrayCell([]float32{0.5}).Value())
}

func TestScopeString(t *testing.T) {
	assert.Equal(t, "server", ServerLevel.String())
	assert.Equal(t, "table", TableLevel.String())
}
