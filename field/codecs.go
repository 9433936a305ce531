package field

import (
	"bytes"
	"image/color"
	"time"
)

// ValueCodec decodes and encodes values of the types it handles. Codecs that
// contain other values, such as lists, call back into the Engine.
type ValueCodec interface {
	// Handles returns whether the codec claims t.
	Handles(t *Type) bool
	Decode(e *Engine, r *Reader, t *Type) (interface{}, error)
	Encode(e *Engine, w *Writer, t *Type, v interface{}) error
}

// CustomCodec handles values of a KindCustom type. It is used for payloads
// whose layout cannot be described by fields, such as compressed vertex runs.
type CustomCodec interface {
	DecodeField(r *Reader) (interface{}, error)
	EncodeField(w *Writer, v interface{}) error
}

// DefaultCodecs returns the built-in codecs in resolution order:
//
//	fixed-length string
//	string (length-prefixed or null-terminated)
//	color
//	date-time
//	boolean
//	optional wrapper
//	primitive array
//	list
//	union
//	nested record
//
// The first codec that handles a type wins. Primitive and custom types are
// handled by the engine before the codecs are consulted.
func DefaultCodecs() []ValueCodec {
	return []ValueCodec{
		fixedStringCodec{},
		stringCodec{},
		colorCodec{},
		dateTimeCodec{},
		boolCodec{},
		optionalCodec{},
		arrayCodec{},
		listCodec{},
		unionCodec{},
		recordCodec{},
	}
}

////////////////////////////////////////////////////////////////

type fixedStringCodec struct{}

func (fixedStringCodec) Handles(t *Type) bool { return t.Kind() == KindFixedString }

func (fixedStringCodec) Decode(e *Engine, r *Reader, t *Type) (interface{}, error) {
	b, err := r.Bytes(t.size)
	if err != nil {
		return nil, err
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b), nil
}

func (fixedStringCodec) Encode(e *Engine, w *Writer, t *Type, v interface{}) error {
	s, ok := v.(string)
	if !ok {
		return ValueTypeError{Type: t, Value: v}
	}
	if len(s) > t.size {
		return DataError{Offset: int64(w.Len()), Cause: ErrStringLength}
	}
	b := make([]byte, t.size)
	copy(b, s)
	return w.Write(b)
}

////////////////////////////////////////////////////////////////

type stringCodec struct{}

func (stringCodec) Handles(t *Type) bool {
	return t.Kind() == KindString || t.Kind() == KindLengthString
}

func (stringCodec) Decode(e *Engine, r *Reader, t *Type) (interface{}, error) {
	if t.Kind() == KindString {
		return r.CString()
	}
	n, err := r.Count()
	if err != nil {
		return nil, err
	}
	b, err := r.Bytes(n)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (stringCodec) Encode(e *Engine, w *Writer, t *Type, v interface{}) error {
	s, ok := v.(string)
	if !ok {
		return ValueTypeError{Type: t, Value: v}
	}
	if t.Kind() == KindString {
		return w.CString(s)
	}
	if err := w.Int32(int32(len(s))); err != nil {
		return err
	}
	return w.Write([]byte(s))
}

////////////////////////////////////////////////////////////////

type colorCodec struct{}

func (colorCodec) Handles(t *Type) bool { return t.Kind() == KindColor }

func (colorCodec) Decode(e *Engine, r *Reader, t *Type) (interface{}, error) {
	return r.Color()
}

func (colorCodec) Encode(e *Engine, w *Writer, t *Type, v interface{}) error {
	c, ok := v.(color.RGBA)
	if !ok {
		return ValueTypeError{Type: t, Value: v}
	}
	return w.Color(c)
}

////////////////////////////////////////////////////////////////

type dateTimeCodec struct{}

func (dateTimeCodec) Handles(t *Type) bool { return t.Kind() == KindDateTime }

func (dateTimeCodec) Decode(e *Engine, r *Reader, t *Type) (interface{}, error) {
	return r.DateTime()
}

func (dateTimeCodec) Encode(e *Engine, w *Writer, t *Type, v interface{}) error {
	d, ok := v.(time.Time)
	if !ok {
		return ValueTypeError{Type: t, Value: v}
	}
	return w.DateTime(d)
}

////////////////////////////////////////////////////////////////

type boolCodec struct{}

func (boolCodec) Handles(t *Type) bool { return t.Kind() == KindBool }

func (boolCodec) Decode(e *Engine, r *Reader, t *Type) (interface{}, error) {
	b, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	return b != 0, nil
}

func (boolCodec) Encode(e *Engine, w *Writer, t *Type, v interface{}) error {
	b, ok := v.(bool)
	if !ok {
		return ValueTypeError{Type: t, Value: v}
	}
	var n uint8
	if b {
		n = 1
	}
	return w.Uint8(n)
}

////////////////////////////////////////////////////////////////

// optionalCodec decodes nil when the region is exhausted. Within a named
// record, absence is normally detected by the engine from the field name, so
// this only comes into play for raw records and nested lists.
type optionalCodec struct{}

func (optionalCodec) Handles(t *Type) bool { return t.Kind() == KindOptional }

func (optionalCodec) Decode(e *Engine, r *Reader, t *Type) (interface{}, error) {
	if r.Len() == 0 {
		return nil, nil
	}
	return e.DecodeValue(r, t.elem)
}

func (optionalCodec) Encode(e *Engine, w *Writer, t *Type, v interface{}) error {
	if v == nil {
		return nil
	}
	return e.EncodeValue(w, t.elem, v)
}

////////////////////////////////////////////////////////////////

type arrayCodec struct{}

func (arrayCodec) Handles(t *Type) bool { return t.Kind() == KindArray }

func (arrayCodec) Decode(e *Engine, r *Reader, t *Type) (interface{}, error) {
	n := t.size
	if n == 0 {
		var err error
		if n, err = r.Count(); err != nil {
			return nil, err
		}
	}
	// Primitives have a known size, so the whole array can be bounds checked
	// before allocating.
	if z := t.elem.scalar.Size(); n*z > r.Len() {
		return nil, DataError{Offset: r.Offset(), Cause: errExpectedMoreBytes(n*z - r.Len())}
	}
	a := make([]interface{}, n)
	for i := range a {
		v, err := readScalar(r, t.elem.scalar)
		if err != nil {
			return nil, err
		}
		a[i] = v
	}
	return a, nil
}

func (arrayCodec) Encode(e *Engine, w *Writer, t *Type, v interface{}) error {
	a, ok := v.([]interface{})
	if !ok {
		return ValueTypeError{Type: t, Value: v}
	}
	if t.size == 0 {
		if err := w.Int32(int32(len(a))); err != nil {
			return err
		}
	} else if len(a) != t.size {
		return DataError{Offset: int64(w.Len()), Cause: errArrayLength{expected: t.size, got: len(a)}}
	}
	for _, v := range a {
		if err := writeScalar(w, t.elem, v); err != nil {
			return err
		}
	}
	return nil
}

////////////////////////////////////////////////////////////////

type listCodec struct{}

func (listCodec) Handles(t *Type) bool { return t.Kind() == KindList }

func (listCodec) Decode(e *Engine, r *Reader, t *Type) (interface{}, error) {
	n, err := r.Count()
	if err != nil {
		return nil, err
	}
	c := n
	if c > r.Len() {
		c = r.Len()
	}
	list := make([]interface{}, 0, c)
	for i := 0; i < n; i++ {
		pos := r.Pos()
		v, err := e.DecodeValue(r, t.elem)
		if err != nil {
			return nil, indexError{Index: i, Cause: err}
		}
		if r.Pos() == pos && n > 1 {
			return nil, indexError{Index: i, Cause: DataError{Offset: r.Offset(), Cause: ErrEmptyElement}}
		}
		list = append(list, v)
	}
	return list, nil
}

func (listCodec) Encode(e *Engine, w *Writer, t *Type, v interface{}) error {
	list, ok := v.([]interface{})
	if !ok {
		return ValueTypeError{Type: t, Value: v}
	}
	if err := w.Int32(int32(len(list))); err != nil {
		return err
	}
	for i, v := range list {
		n := w.Len()
		if err := e.EncodeValue(w, t.elem, v); err != nil {
			return indexError{Index: i, Cause: err}
		}
		if w.Len() == n && len(list) > 1 {
			return indexError{Index: i, Cause: DataError{Offset: int64(n), Cause: ErrEmptyElement}}
		}
	}
	return nil
}

////////////////////////////////////////////////////////////////

// unionCodec tries the first variant, then falls back to the second. When
// the union is the entire value of a named field, a variant only matches if it
// consumes the whole field.
type unionCodec struct{}

func (unionCodec) Handles(t *Type) bool { return t.Kind() == KindUnion }

func (unionCodec) Decode(e *Engine, r *Reader, t *Type) (interface{}, error) {
	start := r.Pos()
	whole := r.whole
	var errs [2]error
	for i, alt := range t.alt {
		r.whole = whole
		v, err := e.DecodeValue(r, alt)
		if err == nil && whole && r.Len() != 0 {
			err = DataError{Offset: r.Offset(), Cause: errUnconsumed(r.Len())}
		}
		if err == nil {
			return UnionValue{Index: i, Value: v}, nil
		}
		errs[i] = err
		if err := r.Seek(start); err != nil {
			return nil, err
		}
	}
	return nil, errUnion{a: errs[0], b: errs[1]}
}

func (unionCodec) Encode(e *Engine, w *Writer, t *Type, v interface{}) error {
	u, ok := v.(UnionValue)
	if !ok {
		return ValueTypeError{Type: t, Value: v}
	}
	if u.Index < 0 || u.Index > 1 {
		return ErrUnionVariant
	}
	return e.EncodeValue(w, t.alt[u.Index], u.Value)
}

////////////////////////////////////////////////////////////////

type recordCodec struct{}

func (recordCodec) Handles(t *Type) bool { return t.Kind() == KindRecord }

func (recordCodec) Decode(e *Engine, r *Reader, t *Type) (interface{}, error) {
	return e.DecodeRecord(r, t.schema)
}

func (recordCodec) Encode(e *Engine, w *Writer, t *Type, v interface{}) error {
	rec, ok := v.(*Record)
	if !ok || rec == nil {
		return ValueTypeError{Type: t, Value: v}
	}
	if rec.schema != t.schema {
		return ValueTypeError{Type: t, Value: v}
	}
	return e.EncodeRecord(w, rec)
}
