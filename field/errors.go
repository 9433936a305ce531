package field

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrNotNullable indicates a field marked optional whose type has no
	// representation for an absent value.
	ErrNotNullable = errors.New("optional field must have a nullable type")
	// ErrDuplicateField indicates two fields of a schema with the same name.
	ErrDuplicateField = errors.New("duplicate field name")
	// ErrEmptyName indicates a field or schema without a name.
	ErrEmptyName = errors.New("empty name")
	// ErrUnknownField indicates a lookup of a field not in the schema.
	ErrUnknownField = errors.New("unknown field")
	// ErrNegativeCount indicates a negative length or count prefix.
	ErrNegativeCount = errors.New("negative count")
	// ErrUnterminated indicates a string missing its null terminator.
	ErrUnterminated = errors.New("unterminated string")
	// ErrStringNull indicates a string that contains a null character, which
	// cannot be encoded as a null-terminated string.
	ErrStringNull = errors.New("string contains null character")
	// ErrStringLength indicates a string that does not fit in its fixed
	// length.
	ErrStringLength = errors.New("string exceeds fixed length")
	// ErrUnionVariant indicates that neither variant of a union could be
	// decoded or the value names a variant that does not exist.
	ErrUnionVariant = errors.New("no matching union variant")
	// ErrEmptyElement indicates a list with more than one element where an
	// element occupies no bytes. The count of such a list cannot be checked
	// against the data.
	ErrEmptyElement = errors.New("list element has no data")
)

// DataError wraps an error that occurred while decoding or encoding byte data.
type DataError struct {
	// Offset is the byte offset where the error occurred. A negative offset
	// is not reported.
	Offset int64

	Cause error
}

func (err DataError) Error() string {
	var s strings.Builder
	s.WriteString("data error")
	if err.Offset >= 0 {
		s.WriteString(" at ")
		s.Write(strconv.AppendInt(nil, err.Offset, 10))
	}
	if err.Cause != nil {
		s.WriteString(": ")
		s.WriteString(err.Cause.Error())
	}
	return s.String()
}

func (err DataError) Unwrap() error {
	return err.Cause
}

// SchemaMismatchError indicates that a named field did not match the field
// expected by the schema.
type SchemaMismatchError struct {
	Schema   string
	Expected string
	Found    string
	// Offset is the position of the field frame.
	Offset int64
}

func (err SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s: expected field %q at %d, found %q", err.Schema, err.Expected, err.Offset, err.Found)
}

// MissingFieldError indicates a required field that was not present while
// decoding, or not set while encoding.
type MissingFieldError struct {
	Schema string
	Field  string
}

func (err MissingFieldError) Error() string {
	return fmt.Sprintf("%s: missing required field %q", err.Schema, err.Field)
}

// UnsupportedValueError indicates that no codec claims a type. This is a gap
// in the engine configuration, not malformed data.
type UnsupportedValueError struct {
	Type *Type
}

func (err UnsupportedValueError) Error() string {
	return fmt.Sprintf("no codec for type %s (%s)", err.Type.String(), err.Type.Kind())
}

// ValueTypeError indicates a value whose Go type does not match the field type
// while encoding.
type ValueTypeError struct {
	Type  *Type
	Value interface{}
}

func (err ValueTypeError) Error() string {
	return fmt.Sprintf("cannot encode %T as %s", err.Value, err.Type.String())
}

// FieldError wraps an error that occurred within a field of a record.
type FieldError struct {
	Schema string
	Field  string

	Cause error
}

func (err FieldError) Error() string {
	return fmt.Sprintf("%s.%s: %s", err.Schema, err.Field, err.Cause.Error())
}

func (err FieldError) Unwrap() error {
	return err.Cause
}

// SchemaError indicates a schema that is not correctly configured. It is
// produced when a schema is constructed, never while decoding.
type SchemaError struct {
	Schema string
	Field  string

	Cause error
}

func (err SchemaError) Error() string {
	if err.Field == "" {
		return fmt.Sprintf("schema %q: %s", err.Schema, err.Cause.Error())
	}
	return fmt.Sprintf("schema %q field %q: %s", err.Schema, err.Field, err.Cause.Error())
}

func (err SchemaError) Unwrap() error {
	return err.Cause
}

type errInvalidType struct {
	t      *Type
	reason string
}

func (err errInvalidType) Error() string {
	return "invalid type " + err.t.String() + ": " + err.reason
}

// errUnconsumed indicates bytes left over in a region that should have been
// fully decoded.
type errUnconsumed int

func (err errUnconsumed) Error() string {
	return fmt.Sprintf("%d unparsed bytes remain", int(err))
}

type errExpectedMoreBytes int

func (err errExpectedMoreBytes) Error() string {
	return fmt.Sprintf("expected %d more bytes", int(err))
}

type errArrayLength struct {
	expected, got int
}

func (err errArrayLength) Error() string {
	return fmt.Sprintf("expected %d array elements, got %d", err.expected, err.got)
}

// indexError wraps an error that occurred at an index of a list.
type indexError struct {
	Index int
	Cause error
}

func (err indexError) Error() string {
	return fmt.Sprintf("element #%d: %s", err.Index, err.Cause.Error())
}

func (err indexError) Unwrap() error {
	return err.Cause
}

type errUnion struct {
	a, b error
}

func (err errUnion) Error() string {
	return fmt.Sprintf("%s: first variant: %s; second variant: %s", ErrUnionVariant, err.a, err.b)
}

func (err errUnion) Unwrap() error {
	return ErrUnionVariant
}
