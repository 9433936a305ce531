// Package field implements the schema-driven serialization engine used for
// controller records.
//
// A record is described by a Schema, an ordered list of Fields. Each Field has
// a name and a Type, which describes the shape of the value on the wire. The
// Engine walks a schema in declaration order and delegates each field to a
// ValueCodec, recursing into nested records as needed.
//
// Records are encoded in one of two modes. In Raw mode, fields are packed
// sequentially with no names. In Named mode, each field is framed by its byte
// size and its null-terminated name, which allows optional fields to be
// skipped when absent.
package field

import (
	"strconv"
	"strings"
)

// Kind indicates the general shape of a Type.
type Kind uint8

const (
	KindInvalid      Kind = iota
	KindPrimitive         // Fixed-size number or vector.
	KindFixedString       // String stored in a fixed number of bytes.
	KindString            // Null-terminated string.
	KindLengthString      // String prefixed with a 32-bit length.
	KindColor             // 4-byte RGBA color.
	KindDateTime          // 32-bit Unix time.
	KindBool              // Boolean stored as a byte.
	KindOptional          // Nullable wrapper around another type.
	KindArray             // Array of primitives.
	KindList              // Counted list of any type.
	KindUnion             // One of two types.
	KindRecord            // Nested record.
	KindCustom            // Value handled by a CustomCodec.
)

var kindStrings = [...]string{
	KindInvalid:      "Invalid",
	KindPrimitive:    "Primitive",
	KindFixedString:  "FixedString",
	KindString:       "String",
	KindLengthString: "LengthString",
	KindColor:        "Color",
	KindDateTime:     "DateTime",
	KindBool:         "Bool",
	KindOptional:     "Optional",
	KindArray:        "Array",
	KindList:         "List",
	KindUnion:        "Union",
	KindRecord:       "Record",
	KindCustom:       "Custom",
}

func (k Kind) String() string {
	if int(k) < len(kindStrings) {
		return kindStrings[k]
	}
	return "Invalid"
}

// Scalar identifies the primitive type of a KindPrimitive type.
type Scalar uint8

const (
	ScalarInvalid Scalar = iota
	ScalarInt8
	ScalarUint8
	ScalarInt16
	ScalarUint16
	ScalarInt32
	ScalarUint32
	ScalarInt64
	ScalarUint64
	ScalarFloat32
	ScalarFloat64
	ScalarVec2 // mgl32.Vec2
	ScalarVec3 // mgl32.Vec3
	ScalarVec4 // mgl32.Vec4
)

var scalarInfo = [...]struct {
	name string
	size int
}{
	ScalarInvalid: {"invalid", 0},
	ScalarInt8:    {"int8", 1},
	ScalarUint8:   {"uint8", 1},
	ScalarInt16:   {"int16", 2},
	ScalarUint16:  {"uint16", 2},
	ScalarInt32:   {"int32", 4},
	ScalarUint32:  {"uint32", 4},
	ScalarInt64:   {"int64", 8},
	ScalarUint64:  {"uint64", 8},
	ScalarFloat32: {"float32", 4},
	ScalarFloat64: {"float64", 8},
	ScalarVec2:    {"vec2", 8},
	ScalarVec3:    {"vec3", 12},
	ScalarVec4:    {"vec4", 16},
}

// Size returns the number of bytes occupied by the scalar, or 0 if the scalar
// is invalid.
func (s Scalar) Size() int {
	if int(s) < len(scalarInfo) {
		return scalarInfo[s].size
	}
	return 0
}

func (s Scalar) String() string {
	if int(s) < len(scalarInfo) {
		return scalarInfo[s].name
	}
	return "invalid"
}

// Type describes how a value is laid out on the wire. Types are immutable and
// may be shared between schemas.
type Type struct {
	kind   Kind
	scalar Scalar
	size   int
	elem   *Type
	alt    [2]*Type
	schema *Schema
	name   string
	custom CustomCodec
}

// Primitive types.
var (
	Int8    = &Type{kind: KindPrimitive, scalar: ScalarInt8}
	Uint8   = &Type{kind: KindPrimitive, scalar: ScalarUint8}
	Int16   = &Type{kind: KindPrimitive, scalar: ScalarInt16}
	Uint16  = &Type{kind: KindPrimitive, scalar: ScalarUint16}
	Int32   = &Type{kind: KindPrimitive, scalar: ScalarInt32}
	Uint32  = &Type{kind: KindPrimitive, scalar: ScalarUint32}
	Int64   = &Type{kind: KindPrimitive, scalar: ScalarInt64}
	Uint64  = &Type{kind: KindPrimitive, scalar: ScalarUint64}
	Float32 = &Type{kind: KindPrimitive, scalar: ScalarFloat32}
	Float64 = &Type{kind: KindPrimitive, scalar: ScalarFloat64}
	Vec2    = &Type{kind: KindPrimitive, scalar: ScalarVec2}
	Vec3    = &Type{kind: KindPrimitive, scalar: ScalarVec3}
	Vec4    = &Type{kind: KindPrimitive, scalar: ScalarVec4}
)

// Other fixed-shape types.
var (
	String       = &Type{kind: KindString}
	LengthString = &Type{kind: KindLengthString}
	Color        = &Type{kind: KindColor}
	DateTime     = &Type{kind: KindDateTime}
	Bool         = &Type{kind: KindBool}
)

// ScalarType returns the primitive type of s, or nil if s is invalid.
func ScalarType(s Scalar) *Type {
	switch s {
	case ScalarInt8:
		return Int8
	case ScalarUint8:
		return Uint8
	case ScalarInt16:
		return Int16
	case ScalarUint16:
		return Uint16
	case ScalarInt32:
		return Int32
	case ScalarUint32:
		return Uint32
	case ScalarInt64:
		return Int64
	case ScalarUint64:
		return Uint64
	case ScalarFloat32:
		return Float32
	case ScalarFloat64:
		return Float64
	case ScalarVec2:
		return Vec2
	case ScalarVec3:
		return Vec3
	case ScalarVec4:
		return Vec4
	}
	return nil
}

// FixedString returns a string type stored in exactly n bytes. Shorter strings
// are padded with zeros.
func FixedString(n int) *Type {
	return &Type{kind: KindFixedString, size: n}
}

// OptionalOf returns a nullable wrapper around t. The decoded value is nil
// when the value is absent.
func OptionalOf(t *Type) *Type {
	return &Type{kind: KindOptional, elem: t}
}

// ArrayOf returns a type for a count-prefixed array of primitives.
func ArrayOf(t *Type) *Type {
	return &Type{kind: KindArray, elem: t}
}

// FixedArrayOf returns a type for an array of exactly n primitives, with no
// count prefix.
func FixedArrayOf(t *Type, n int) *Type {
	return &Type{kind: KindArray, elem: t, size: n}
}

// ListOf returns a type for a count-prefixed list of values of type t.
func ListOf(t *Type) *Type {
	return &Type{kind: KindList, elem: t}
}

// UnionOf returns a type holding either a value of type a or of type b.
func UnionOf(a, b *Type) *Type {
	return &Type{kind: KindUnion, alt: [2]*Type{a, b}}
}

// RecordOf returns a type for a record nested within another.
func RecordOf(s *Schema) *Type {
	return &Type{kind: KindRecord, schema: s}
}

// CustomOf returns a type whose values are handled by c. The name is used for
// display only.
func CustomOf(name string, c CustomCodec) *Type {
	return &Type{kind: KindCustom, name: name, custom: c}
}

// Kind returns the kind of the type.
func (t *Type) Kind() Kind {
	if t == nil {
		return KindInvalid
	}
	return t.kind
}

// Scalar returns the scalar of a primitive type.
func (t *Type) Scalar() Scalar { return t.scalar }

// Size returns the byte length of a fixed string, or the element count of a
// fixed array. It is 0 for every other type.
func (t *Type) Size() int { return t.size }

// Elem returns the inner type of an optional, array or list type.
func (t *Type) Elem() *Type { return t.elem }

// Variants returns the two possible types of a union.
func (t *Type) Variants() (a, b *Type) { return t.alt[0], t.alt[1] }

// Schema returns the schema of a record type.
func (t *Type) Schema() *Schema { return t.schema }

// Custom returns the codec of a custom type.
func (t *Type) Custom() CustomCodec { return t.custom }

// Nullable returns whether a value of the type has a representation for
// "absent". Value-typed kinds must be wrapped with OptionalOf to become
// nullable.
func (t *Type) Nullable() bool {
	switch t.Kind() {
	case KindOptional, KindString, KindLengthString, KindFixedString,
		KindArray, KindList, KindUnion, KindRecord, KindCustom:
		return true
	}
	return false
}

// String returns a type expression for t, such as "list(optional(int32))".
func (t *Type) String() string {
	var s strings.Builder
	t.format(&s)
	return s.String()
}

func (t *Type) format(s *strings.Builder) {
	switch t.Kind() {
	case KindPrimitive:
		s.WriteString(t.scalar.String())
	case KindFixedString:
		s.WriteString("fixedstring(")
		s.WriteString(strconv.Itoa(t.size))
		s.WriteByte(')')
	case KindString:
		s.WriteString("string")
	case KindLengthString:
		s.WriteString("lstring")
	case KindColor:
		s.WriteString("color")
	case KindDateTime:
		s.WriteString("datetime")
	case KindBool:
		s.WriteString("bool")
	case KindOptional:
		s.WriteString("optional(")
		t.elem.format(s)
		s.WriteByte(')')
	case KindArray:
		s.WriteString("array(")
		t.elem.format(s)
		if t.size > 0 {
			s.WriteByte(',')
			s.WriteString(strconv.Itoa(t.size))
		}
		s.WriteByte(')')
	case KindList:
		s.WriteString("list(")
		t.elem.format(s)
		s.WriteByte(')')
	case KindUnion:
		s.WriteString("union(")
		t.alt[0].format(s)
		s.WriteByte(',')
		t.alt[1].format(s)
		s.WriteByte(')')
	case KindRecord:
		if t.schema == nil {
			s.WriteString("record(?)")
			break
		}
		s.WriteString(t.schema.Name())
	case KindCustom:
		s.WriteString(t.name)
	default:
		s.WriteString("invalid")
	}
}

// validate checks that the type and all of its inner types are well formed.
func (t *Type) validate() error {
	switch t.Kind() {
	case KindPrimitive:
		if t.scalar.Size() == 0 {
			return errInvalidType{t: t, reason: "invalid scalar"}
		}
	case KindFixedString:
		if t.size <= 0 {
			return errInvalidType{t: t, reason: "fixed string length must be positive"}
		}
	case KindString, KindLengthString, KindColor, KindDateTime, KindBool:
	case KindOptional, KindList:
		if t.elem == nil {
			return errInvalidType{t: t, reason: "missing element type"}
		}
		return t.elem.validate()
	case KindArray:
		if t.elem.Kind() != KindPrimitive {
			return errInvalidType{t: t, reason: "array element must be primitive"}
		}
		if t.size < 0 {
			return errInvalidType{t: t, reason: "negative array length"}
		}
		return t.elem.validate()
	case KindUnion:
		for _, a := range t.alt {
			if a == nil {
				return errInvalidType{t: t, reason: "missing union variant"}
			}
			if err := a.validate(); err != nil {
				return err
			}
		}
	case KindRecord:
		if t.schema == nil {
			return errInvalidType{t: t, reason: "missing record schema"}
		}
	case KindCustom:
		if t.custom == nil {
			return errInvalidType{t: t, reason: "missing custom codec"}
		}
	default:
		return errInvalidType{t: t, reason: "invalid kind"}
	}
	return nil
}
