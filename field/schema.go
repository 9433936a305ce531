package field

import (
	"strings"
)

// Mode indicates how the fields of a record are framed.
type Mode uint8

const (
	// Raw records pack fields sequentially, with no names or sizes.
	Raw Mode = iota
	// Named records frame each field with its byte size and name.
	Named
)

func (m Mode) String() string {
	switch m {
	case Raw:
		return "raw"
	case Named:
		return "named"
	}
	return "invalid"
}

// Field describes one field of a schema.
type Field struct {
	Name string
	Type *Type

	// Optional indicates that the field may be absent. The type of an
	// optional field must be nullable.
	Optional bool
}

// Schema is an ordered list of fields describing a record type. A Schema is
// immutable once created.
type Schema struct {
	name   string
	mode   Mode
	fields []Field
	index  map[string]int
}

// NewSchema returns a schema with the given name, mode and fields. An error is
// returned if the fields are not well formed, including optional fields with
// a type that cannot represent an absent value.
func NewSchema(name string, mode Mode, fields ...Field) (*Schema, error) {
	if name == "" {
		return nil, SchemaError{Cause: ErrEmptyName}
	}
	s := &Schema{
		name:   name,
		mode:   mode,
		fields: make([]Field, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	copy(s.fields, fields)
	for i, f := range s.fields {
		if f.Name == "" {
			return nil, SchemaError{Schema: name, Cause: ErrEmptyName}
		}
		key := strings.ToLower(f.Name)
		if _, ok := s.index[key]; ok {
			return nil, SchemaError{Schema: name, Field: f.Name, Cause: ErrDuplicateField}
		}
		if err := f.Type.validate(); err != nil {
			return nil, SchemaError{Schema: name, Field: f.Name, Cause: err}
		}
		if f.Optional && !f.Type.Nullable() {
			return nil, SchemaError{Schema: name, Field: f.Name, Cause: ErrNotNullable}
		}
		s.index[key] = i
	}
	return s, nil
}

// MustSchema is like NewSchema, but panics on error. It is meant for schemas
// declared at package initialization.
func MustSchema(name string, mode Mode, fields ...Field) *Schema {
	s, err := NewSchema(name, mode, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the name of the record type.
func (s *Schema) Name() string { return s.name }

// Mode returns how fields of the record are framed.
func (s *Schema) Mode() Mode { return s.mode }

// Len returns the number of fields.
func (s *Schema) Len() int { return len(s.fields) }

// Field returns the field at index i.
func (s *Schema) Field(i int) Field { return s.fields[i] }

// Fields returns a copy of the fields of the schema.
func (s *Schema) Fields() []Field {
	fields := make([]Field, len(s.fields))
	copy(fields, s.fields)
	return fields
}

// Lookup returns the index of the field with the given name. Names are
// compared without regard to case.
func (s *Schema) Lookup(name string) (i int, ok bool) {
	i, ok = s.index[strings.ToLower(name)]
	return i, ok
}

// Record is a decoded value of a schema. Each field is either set to a value
// or unset.
type Record struct {
	schema *Schema
	values []interface{}
	set    []bool
}

// NewRecord returns a record of s with every field unset.
func NewRecord(s *Schema) *Record {
	return &Record{
		schema: s,
		values: make([]interface{}, s.Len()),
		set:    make([]bool, s.Len()),
	}
}

// Schema returns the schema of the record.
func (r *Record) Schema() *Schema { return r.schema }

// At returns the value of the field at index i, and whether it is set.
func (r *Record) At(i int) (v interface{}, ok bool) {
	return r.values[i], r.set[i]
}

// SetAt sets the value of the field at index i.
func (r *Record) SetAt(i int, v interface{}) {
	r.values[i] = v
	r.set[i] = true
}

// Get returns the value of the named field, and whether it is set.
func (r *Record) Get(name string) (v interface{}, ok bool) {
	i, ok := r.schema.Lookup(name)
	if !ok {
		return nil, false
	}
	return r.At(i)
}

// Set sets the value of the named field.
func (r *Record) Set(name string, v interface{}) error {
	i, ok := r.schema.Lookup(name)
	if !ok {
		return FieldError{Schema: r.schema.name, Field: name, Cause: ErrUnknownField}
	}
	r.SetAt(i, v)
	return nil
}

// Unset marks the named field as absent.
func (r *Record) Unset(name string) {
	if i, ok := r.schema.Lookup(name); ok {
		r.values[i] = nil
		r.set[i] = false
	}
}

// IsSet returns whether the named field has a value.
func (r *Record) IsSet(name string) bool {
	i, ok := r.schema.Lookup(name)
	return ok && r.set[i]
}

// UnionValue is the value of a union type. Index is 0 for the first variant,
// and 1 for the second.
type UnionValue struct {
	Index int
	Value interface{}
}
