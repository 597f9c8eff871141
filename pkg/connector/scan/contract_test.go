package scan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-fdw/pkg/connector/core"
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/scan"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
)

var vectorSchema = scan.NewAllowedSchema(
	core.Column{Name: "id", Type: core.TypeInt64},
	core.Column{Name: "payload", Type: core.TypeJsonb},
	core.Column{Name: "vector", Type: core.TypeFloatArray},
)

func TestAllowedSchemaValidate(t *testing.T) {
	tests := []struct {
		name       string
		columns    []core.Column
		wantErr    bool
		violations int
		column     string
		code       string
	}{
		{
			name:    "all allowed",
			columns: vectorSchema.Columns(),
		},
		{
			name:    "subset in any order",
			columns: []core.Column{{Name: "vector", Type: core.TypeFloatArray}, {Name: "id", Type: core.TypeInt64}},
		},
		{
			name:    "empty list",
			columns: nil,
		},
		{
			name:       "unknown name",
			columns:    []core.Column{{Name: "id", Type: core.TypeInt64}, {Name: "score", Type: core.TypeFloat64}},
			wantErr:    true,
			violations: 1,
			column:     "score",
			code:       errors.CodeColumnNameNotFound,
		},
		{
			name:       "wrong type",
			columns:    []core.Column{{Name: "id", Type: core.TypeText}},
			wantErr:    true,
			violations: 1,
			column:     "id",
			code:       errors.CodeInvalidDataType,
		},
		{
			name: "all violations reported in declared order",
			columns: []core.Column{
				{Name: "payload", Type: core.TypeText},
				{Name: "id", Type: core.TypeInt64},
				{Name: "score", Type: core.TypeFloat64},
			},
			wantErr:    true,
			violations: 2,
			column:     "payload",
			code:       errors.CodeInvalidDataType,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := vectorSchema.Validate(tt.columns)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, errors.KindSchema, errors.Classify(err))
			assert.Len(t, errors.Violations(err), tt.violations)
			d := errors.Render(err)
			assert.Equal(t, tt.column, d.Column)
			assert.Equal(t, tt.code, d.Code)
		})
	}
}

func TestAllowedSchemaNamesErrorHint(t *testing.T) {
	err := vectorSchema.Validate([]core.Column{{Name: "score", Type: core.TypeFloat64}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only columns named `id`, `payload`, or `vector` are allowed")
	assert.Equal(t, "allowed columns: id, payload, vector", errors.Render(err).Hint)
}

func TestWrongTypeMessage(t *testing.T) {
	err := vectorSchema.Validate([]core.Column{{Name: "vector", Type: core.TypeJsonb}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "column `vector` can only be defined as `real[]`, got `jsonb`")
}

func TestAllowedSchemaLookup(t *testing.T) {
	typ, ok := vectorSchema.Lookup("payload")
	assert.True(t, ok)
	assert.Equal(t, core.TypeJsonb, typ)

	_, ok = vectorSchema.Lookup("nope")
	assert.False(t, ok)

	dup := scan.NewAllowedSchema(
		core.Column{Name: "a", Type: core.TypeText},
		core.Column{Name: "a", Type: core.TypeBool},
	)
	assert.Equal(t, 1, dup.Len())
	typ, _ = dup.Lookup("a")
	assert.Equal(t, core.TypeText, typ)
}

func TestColumnsReturnsCopy(t *testing.T) {
	cols := vectorSchema.Columns()
	cols[0].Name = "mutated"
	assert.Equal(t, []string{"id", "payload", "vector"}, vectorSchema.Names())
}
