package scan

// Record is one source record. The scan core only ever asks it for named
// fields; present reports whether the source carried the field at all.
type Record interface {
	Field(name string) (value interface{}, present bool)
}

// FlatRecord is a record whose fields are looked up directly by name.
type FlatRecord map[string]interface{}

// Field implements Record
func (r FlatRecord) Field(name string) (interface{}, bool) {
	v, ok := r[name]
	return v, ok
}

// Attribute is one (name, value) pair of an attribute list.
type Attribute struct {
	Name  string
	Value interface{}
}

// AttributeRecord is a record whose fields live in a list of attributes
// searched linearly by name. Fields holds top-level values consulted when
// no attribute matches.
type AttributeRecord struct {
	Attributes []Attribute
	Fields     FlatRecord
}

// Field implements Record
func (r AttributeRecord) Field(name string) (interface{}, bool) {
	for _, a := range r.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	if r.Fields != nil {
		return r.Fields.Field(name)
	}
	return nil, false
}

// RecordFunc adapts a lookup function to Record.
type RecordFunc func(name string) (interface{}, bool)

// Field implements Record
func (f RecordFunc) Field(name string) (interface{}, bool) { return f(name) }
