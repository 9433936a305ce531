package field

import (
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Engine decodes and encodes records by walking their schema.
type Engine struct {
	codecs []ValueCodec
}

// NewEngine returns an engine that resolves types against codecs in the given
// order. If no codecs are given, DefaultCodecs is used.
func NewEngine(codecs ...ValueCodec) *Engine {
	if len(codecs) == 0 {
		codecs = DefaultCodecs()
	}
	return &Engine{codecs: codecs}
}

// DefaultEngine is the engine used when no other is configured.
var DefaultEngine = NewEngine()

func (e *Engine) codecFor(t *Type) (ValueCodec, error) {
	for _, c := range e.codecs {
		if c.Handles(t) {
			return c, nil
		}
	}
	return nil, UnsupportedValueError{Type: t}
}

// Decode decodes b entirely as a record of s. It is an error for bytes to
// remain after the record.
func (e *Engine) Decode(b []byte, s *Schema) (*Record, error) {
	r := NewReader(b)
	rec, err := e.DecodeRecord(r, s)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, DataError{Offset: r.Offset(), Cause: errUnconsumed(r.Len())}
	}
	return rec, nil
}

// Encode encodes rec into a new byte slice.
func (e *Engine) Encode(rec *Record) ([]byte, error) {
	w := NewWriter()
	if err := e.EncodeRecord(w, rec); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// DecodeRecord decodes a record of s from r, according to the mode of s.
func (e *Engine) DecodeRecord(r *Reader, s *Schema) (*Record, error) {
	if s.mode == Named {
		return e.decodeNamed(r, s)
	}
	return e.decodeRaw(r, s)
}

func (e *Engine) decodeRaw(r *Reader, s *Schema) (*Record, error) {
	rec := NewRecord(s)
	for i, f := range s.fields {
		if f.Optional && r.Len() == 0 {
			continue
		}
		v, err := e.DecodeValue(r, f.Type)
		if err != nil {
			return nil, FieldError{Schema: s.name, Field: f.Name, Cause: err}
		}
		if v == nil && f.Optional {
			continue
		}
		rec.SetAt(i, v)
	}
	return rec, nil
}

func (e *Engine) decodeNamed(r *Reader, s *Schema) (*Record, error) {
	rec := NewRecord(s)
	for i, f := range s.fields {
		start := r.Pos()
		if r.Len() == 0 {
			if f.Optional {
				continue
			}
			return nil, MissingFieldError{Schema: s.name, Field: f.Name}
		}

		size, err := r.Count()
		if err != nil {
			return nil, FieldError{Schema: s.name, Field: f.Name, Cause: err}
		}
		name, err := r.CString()
		if err != nil {
			if f.Optional {
				r.Seek(start)
				continue
			}
			return nil, FieldError{Schema: s.name, Field: f.Name, Cause: err}
		}
		if !strings.EqualFold(name, f.Name) {
			if f.Optional {
				// Leave the frame for the next field.
				if err := r.Seek(start); err != nil {
					return nil, err
				}
				continue
			}
			return nil, SchemaMismatchError{
				Schema:   s.name,
				Expected: f.Name,
				Found:    name,
				Offset:   r.base + start,
			}
		}

		sub, err := r.Region(size - len(name) - 1)
		if err != nil {
			return nil, FieldError{Schema: s.name, Field: f.Name, Cause: err}
		}
		v, err := e.DecodeValue(sub, f.Type)
		if err != nil {
			return nil, FieldError{Schema: s.name, Field: f.Name, Cause: err}
		}
		if sub.Len() != 0 {
			return nil, FieldError{Schema: s.name, Field: f.Name, Cause: DataError{Offset: sub.Offset(), Cause: errUnconsumed(sub.Len())}}
		}
		rec.SetAt(i, v)
	}
	return rec, nil
}

// EncodeRecord encodes rec to w, according to the mode of its schema.
func (e *Engine) EncodeRecord(w *Writer, rec *Record) error {
	s := rec.schema
	for i, f := range s.fields {
		v, ok := rec.At(i)
		if !ok || (v == nil && f.Type.Nullable()) {
			if f.Optional {
				continue
			}
			return MissingFieldError{Schema: s.name, Field: f.Name}
		}
		if s.mode == Raw {
			if err := e.EncodeValue(w, f.Type, v); err != nil {
				return FieldError{Schema: s.name, Field: f.Name, Cause: err}
			}
			continue
		}

		sub := NewWriter()
		if err := e.EncodeValue(sub, f.Type, v); err != nil {
			return FieldError{Schema: s.name, Field: f.Name, Cause: err}
		}
		if err := w.Int32(int32(len(f.Name) + 1 + sub.Len())); err != nil {
			return err
		}
		if err := w.CString(f.Name); err != nil {
			return err
		}
		if err := w.Write(sub.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// DecodeValue decodes one value of type t from r.
func (e *Engine) DecodeValue(r *Reader, t *Type) (interface{}, error) {
	// Only an optional or a union can still be the entire value of a field
	// region.
	r.whole = r.whole && (t.Kind() == KindOptional || t.Kind() == KindUnion)
	switch t.Kind() {
	case KindPrimitive:
		return readScalar(r, t.scalar)
	case KindCustom:
		return t.custom.DecodeField(r)
	}
	c, err := e.codecFor(t)
	if err != nil {
		return nil, err
	}
	return c.Decode(e, r, t)
}

// EncodeValue encodes v as a value of type t to w.
func (e *Engine) EncodeValue(w *Writer, t *Type, v interface{}) error {
	switch t.Kind() {
	case KindPrimitive:
		return writeScalar(w, t, v)
	case KindCustom:
		return t.custom.EncodeField(w, v)
	}
	c, err := e.codecFor(t)
	if err != nil {
		return err
	}
	return c.Encode(e, w, t, v)
}

func readScalar(r *Reader, s Scalar) (interface{}, error) {
	switch s {
	case ScalarInt8:
		return r.Int8()
	case ScalarUint8:
		return r.Uint8()
	case ScalarInt16:
		return r.Int16()
	case ScalarUint16:
		return r.Uint16()
	case ScalarInt32:
		return r.Int32()
	case ScalarUint32:
		return r.Uint32()
	case ScalarInt64:
		return r.Int64()
	case ScalarUint64:
		return r.Uint64()
	case ScalarFloat32:
		return r.Float32()
	case ScalarFloat64:
		return r.Float64()
	case ScalarVec2:
		return r.Vec2()
	case ScalarVec3:
		return r.Vec3()
	case ScalarVec4:
		return r.Vec4()
	}
	return nil, UnsupportedValueError{Type: ScalarType(s)}
}

func writeScalar(w *Writer, t *Type, v interface{}) error {
	switch t.scalar {
	case ScalarInt8:
		if v, ok := v.(int8); ok {
			return w.Int8(v)
		}
	case ScalarUint8:
		if v, ok := v.(uint8); ok {
			return w.Uint8(v)
		}
	case ScalarInt16:
		if v, ok := v.(int16); ok {
			return w.Int16(v)
		}
	case ScalarUint16:
		if v, ok := v.(uint16); ok {
			return w.Uint16(v)
		}
	case ScalarInt32:
		if v, ok := v.(int32); ok {
			return w.Int32(v)
		}
	case ScalarUint32:
		if v, ok := v.(uint32); ok {
			return w.Uint32(v)
		}
	case ScalarInt64:
		if v, ok := v.(int64); ok {
			return w.Int64(v)
		}
	case ScalarUint64:
		if v, ok := v.(uint64); ok {
			return w.Uint64(v)
		}
	case ScalarFloat32:
		if v, ok := v.(float32); ok {
			return w.Float32(v)
		}
	case ScalarFloat64:
		if v, ok := v.(float64); ok {
			return w.Float64(v)
		}
	case ScalarVec2:
		if v, ok := v.(mgl32.Vec2); ok {
			return w.Vec2(v)
		}
	case ScalarVec3:
		if v, ok := v.(mgl32.Vec3); ok {
			return w.Vec3(v)
		}
	case ScalarVec4:
		if v, ok := v.(mgl32.Vec4); ok {
			return w.Vec4(v)
		}
	default:
		return UnsupportedValueError{Type: t}
	}
	return ValueTypeError{Type: t, Value: v}
}
