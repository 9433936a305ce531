package declare

import (
	"image/color"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/skwas/datfile/field"
)

type number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// norm converts any number to T. Complex numbers and non-numbers are not
// converted.
func norm[T number](v interface{}) (T, bool) {
	switch v := v.(type) {
	case int:
		return T(v), true
	case uint:
		return T(v), true
	case uint8:
		return T(v), true
	case uint16:
		return T(v), true
	case uint32:
		return T(v), true
	case uint64:
		return T(v), true
	case int8:
		return T(v), true
	case int16:
		return T(v), true
	case int32:
		return T(v), true
	case int64:
		return T(v), true
	case float32:
		return T(v), true
	case float64:
		return T(v), true
	}
	return 0, false
}

// normAll converts each value to T. It fails unless exactly n numbers are
// given.
func normAll[T number](v []interface{}, n int) ([]T, bool) {
	if len(v) != n {
		return nil, false
	}
	a := make([]T, n)
	for i, v := range v {
		var ok bool
		if a[i], ok = norm[T](v); !ok {
			return nil, false
		}
	}
	return a, true
}

func scalar[T number](v []interface{}) (interface{}, bool) {
	if len(v) != 1 {
		return nil, false
	}
	if n, ok := v[0].(T); ok {
		return n, true
	}
	n, ok := norm[T](v[0])
	return n, ok
}

func normString(v []interface{}) (string, bool) {
	if len(v) != 1 {
		return "", false
	}
	switch v := v[0].(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	}
	return "", false
}

func normPrimitive(t *field.Type, v []interface{}) (interface{}, bool) {
	switch t.Scalar() {
	case field.ScalarInt8:
		return scalar[int8](v)
	case field.ScalarUint8:
		return scalar[uint8](v)
	case field.ScalarInt16:
		return scalar[int16](v)
	case field.ScalarUint16:
		return scalar[uint16](v)
	case field.ScalarInt32:
		return scalar[int32](v)
	case field.ScalarUint32:
		return scalar[uint32](v)
	case field.ScalarInt64:
		return scalar[int64](v)
	case field.ScalarUint64:
		return scalar[uint64](v)
	case field.ScalarFloat32:
		return scalar[float32](v)
	case field.ScalarFloat64:
		return scalar[float64](v)
	case field.ScalarVec2:
		if len(v) == 1 {
			u, ok := v[0].(mgl32.Vec2)
			return u, ok
		}
		if a, ok := normAll[float32](v, 2); ok {
			return mgl32.Vec2{a[0], a[1]}, true
		}
	case field.ScalarVec3:
		if len(v) == 1 {
			u, ok := v[0].(mgl32.Vec3)
			return u, ok
		}
		if a, ok := normAll[float32](v, 3); ok {
			return mgl32.Vec3{a[0], a[1], a[2]}, true
		}
	case field.ScalarVec4:
		if len(v) == 1 {
			u, ok := v[0].(mgl32.Vec4)
			return u, ok
		}
		if a, ok := normAll[float32](v, 4); ok {
			return mgl32.Vec4{a[0], a[1], a[2], a[3]}, true
		}
	}
	return nil, false
}

// items returns the elements of a list declaration. A single []interface{}
// value is expanded, otherwise each value is an element.
func items(v []interface{}) []interface{} {
	if len(v) == 1 {
		if a, ok := v[0].([]interface{}); ok {
			return a
		}
	}
	return v
}

// value converts the declared values of a field to the Go value of type t.
//
// The values may be a single value that already has the Go type of t (e.g.
// mgl32.Vec3 for vec3), in which case the value itself is returned.
//
// Otherwise, for a given kind of type, values must be the following:
//
//     Primitive:
//         A single number for number types. 2, 3 or 4 numbers for the
//         vector types.
//
//     String, FixedString, LengthString:
//         A single string or []byte.
//
//     Color:
//         3 or 4 numbers, corresponding to the R, G, B and A components. A
//         is 255 when omitted.
//
//     DateTime:
//         A single number of seconds since the Unix epoch.
//
//     Bool:
//         A single bool.
//
//     Optional:
//         No values, or a single nil, for an absent value. Otherwise, the
//         values of the wrapped type.
//
//     Array, List:
//         One value per element. An element that is a []interface{} is
//         expanded into the values of the element type. A single
//         []interface{} holds the elements.
//
//     Union:
//         A field.UnionValue, or the values of either variant, tried in order.
//
//     Record:
//         A *field.Record, or a Record declaration.
//
//     Custom:
//         A single value, which is passed to the custom codec as is.
func value(t *field.Type, v []interface{}) (interface{}, error) {
	var out interface{}
	var ok bool
	switch t.Kind() {
	case field.KindPrimitive:
		out, ok = normPrimitive(t, v)
	case field.KindString, field.KindFixedString, field.KindLengthString:
		out, ok = normString(v)
	case field.KindColor:
		if len(v) == 1 {
			out, ok = v[0].(color.RGBA)
			break
		}
		if len(v) == 3 {
			v = append(v[:3:3], 255)
		}
		if a, k := normAll[uint8](v, 4); k {
			out, ok = color.RGBA{R: a[0], G: a[1], B: a[2], A: a[3]}, true
		}
	case field.KindDateTime:
		if len(v) == 1 {
			if d, k := v[0].(time.Time); k {
				out, ok = d, true
			} else if n, k := norm[int64](v[0]); k {
				out, ok = time.Unix(n, 0).UTC(), true
			}
		}
	case field.KindBool:
		if len(v) == 1 {
			out, ok = v[0].(bool)
		}
	case field.KindOptional:
		if len(v) == 0 || len(v) == 1 && v[0] == nil {
			return nil, nil
		}
		return value(t.Elem(), v)
	case field.KindArray, field.KindList:
		list := items(v)
		a := make([]interface{}, len(list))
		for i, item := range list {
			iv, isList := item.([]interface{})
			if !isList {
				iv = []interface{}{item}
			}
			var err error
			if a[i], err = value(t.Elem(), iv); err != nil {
				return nil, err
			}
		}
		return a, nil
	case field.KindUnion:
		if len(v) == 1 {
			if u, k := v[0].(field.UnionValue); k {
				return u, nil
			}
		}
		a, b := t.Variants()
		if x, err := value(a, v); err == nil {
			return field.UnionValue{Index: 0, Value: x}, nil
		}
		x, err := value(b, v)
		if err != nil {
			return nil, err
		}
		return field.UnionValue{Index: 1, Value: x}, nil
	case field.KindRecord:
		if len(v) == 1 {
			switch r := v[0].(type) {
			case *field.Record:
				out, ok = r, r.Schema() == t.Schema()
			case record:
				return r.Declare(t.Schema())
			}
		}
	case field.KindCustom:
		if len(v) == 1 {
			out, ok = v[0], true
		}
	}
	if !ok {
		return nil, field.ValueTypeError{Type: t, Value: v}
	}
	return out, nil
}

// record represents the declaration of a nested record.
type record []fieldDecl

// Record declares the value of a record type, as a list of Field
// declarations.
func Record(fields ...fieldDecl) record {
	return record(fields)
}

// Declare evaluates the Record declaration as a record of schema s.
func (r record) Declare(s *field.Schema) (*field.Record, error) {
	rec := field.NewRecord(s)
	for _, f := range r {
		if err := f.apply(rec); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// fieldDecl represents the declaration of a field value.
type fieldDecl struct {
	name  string
	value []interface{}
}

func (fieldDecl) element() {}

// Field declares the value of the named field of a controller or record. The
// values are converted to the type of the field.
func Field(name string, value ...interface{}) fieldDecl {
	return fieldDecl{name: name, value: value}
}

func (f fieldDecl) apply(rec *field.Record) error {
	s := rec.Schema()
	i, ok := s.Lookup(f.name)
	if !ok {
		return field.FieldError{Schema: s.Name(), Field: f.name, Cause: field.ErrUnknownField}
	}
	v, err := value(s.Field(i).Type, f.value)
	if err != nil {
		return field.FieldError{Schema: s.Name(), Field: f.name, Cause: err}
	}
	rec.SetAt(i, v)
	return nil
}
