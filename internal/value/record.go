package value

import (
	"fmt"
	"strings"
)

// Field is one named, typed member of a record schema.
type Field struct {
	Name string
	Type Type
}

// Schema describes a user-defined record type (declared with def-ty).
type Schema struct {
	Name   string
	Fields []Field
}

// Index returns the position of the named field.
func (s *Schema) Index(name string) (int, bool) {
	for i, f := range s.Fields {
		if f.Name == name {
			return i, true
		}
	}
	return 0, false
}

// FieldNames lists the field names in declaration order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Type returns the record type the schema declares.
func (s *Schema) Type() Type { return RecordType(s.Name) }

// Record is an instance of a Schema. Values are stored in schema field order.
type Record struct {
	schema *Schema
	vals   []Value
}

// NewRecord builds a record, checking arity and each field's type.
func NewRecord(s *Schema, vals ...Value) (*Record, error) {
	if len(vals) != len(s.Fields) {
		return nil, fmt.Errorf("%s expects %d fields, got %d", s.Name, len(s.Fields), len(vals))
	}
	for i, f := range s.Fields {
		if got := TypeOf(vals[i]); !f.Type.Accepts(got) {
			return nil, fmt.Errorf("%s.%s expects %s, got %s", s.Name, f.Name, f.Type, got)
		}
	}
	cp := make([]Value, len(vals))
	copy(cp, vals)
	return &Record{schema: s, vals: cp}, nil
}

func (*Record) sealed() {}

// Type returns the record's declared type.
func (r *Record) Type() Type { return r.schema.Type() }

// Schema returns the schema the record was built with.
func (r *Record) Schema() *Schema { return r.schema }

// Get looks a field up by name.
func (r *Record) Get(name string) (Value, bool) {
	i, ok := r.schema.Index(name)
	if !ok {
		return nil, false
	}
	return r.vals[i], true
}

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.vals) }

// At returns the i-th field and its value.
func (r *Record) At(i int) (Field, Value) {
	return r.schema.Fields[i], r.vals[i]
}

// Equal compares type name, field names and values.
func (r *Record) Equal(o *Record) bool {
	if r == o {
		return true
	}
	if r == nil || o == nil || r.schema.Name != o.schema.Name || len(r.vals) != len(o.vals) {
		return false
	}
	for i, f := range r.schema.Fields {
		if o.schema.Fields[i].Name != f.Name || !Equal(r.vals[i], o.vals[i]) {
			return false
		}
	}
	return true
}

func (r *Record) String() string {
	var b strings.Builder
	b.WriteString(r.schema.Name)
	b.WriteString(" {")
	for i, f := range r.schema.Fields {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, " %s: %v", f.Name, r.vals[i])
	}
	b.WriteString(" }")
	return b.String()
}
