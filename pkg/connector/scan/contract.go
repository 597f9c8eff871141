package scan

import (
	"github.com/ajitpratap0/nebula-fdw/pkg/connector/core"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
)

// AllowedSchema is the table of column names a connector can serve and the
// type each of them must be declared with.
type AllowedSchema struct {
	columns []core.Column
	index   map[string]core.SemanticType
}

// NewAllowedSchema builds a schema from columns in their display order.
// A repeated name keeps its first type.
func NewAllowedSchema(columns ...core.Column) AllowedSchema {
	s := AllowedSchema{
		columns: make([]core.Column, 0, len(columns)),
		index:   make(map[string]core.SemanticType, len(columns)),
	}
	for _, c := range columns {
		if _, dup := s.index[c.Name]; dup {
			continue
		}
		s.index[c.Name] = c.Type
		s.columns = append(s.columns, c)
	}
	return s
}

// Columns returns the allowed columns in display order.
func (s AllowedSchema) Columns() []core.Column {
	out := make([]core.Column, len(s.columns))
	copy(out, s.columns)
	return out
}

// Names returns the allowed column names in display order.
func (s AllowedSchema) Names() []string {
	out := make([]string, len(s.columns))
	for i, c := range s.columns {
		out[i] = c.Name
	}
	return out
}

// Len returns the number of allowed columns
func (s AllowedSchema) Len() int { return len(s.columns) }

// Lookup returns the required type of name.
func (s AllowedSchema) Lookup(name string) (core.SemanticType, bool) {
	t, ok := s.index[name]
	return t, ok
}

// Validate checks a declared column list. Every offending column is
// reported in one schema error, in declared order.
func (s AllowedSchema) Validate(columns []core.Column) error {
	var violations []error
	for _, c := range columns {
		want, ok := s.index[c.Name]
		if !ok {
			violations = append(violations, errors.UnsupportedColumn(c.Name, s.Names()))
			continue
		}
		if want != c.Type {
			violations = append(violations, errors.WrongColumnType(c.Name, want.HostName(), c.Type.HostName()))
		}
	}
	if err := errors.SchemaViolations(violations); err != nil {
		return err
	}
	return nil
}
