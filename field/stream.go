package field

import (
	"bytes"
	"image/color"
	"io"
	"math"
	"time"

	"github.com/anaminus/parse"
	"github.com/go-gl/mathgl/mgl32"
)

// Reader reads little-endian values from a bounded region of bytes. Unlike a
// plain io.Reader, a Reader can rewind, peek, and split off sub-regions, which
// the engine needs for optional fields and union probing.
type Reader struct {
	data []byte
	br   *bytes.Reader
	fr   *parse.BinaryReader
	base int64

	// whole is true while the next value decoded from the region is the
	// entire payload of one named field. The engine clears it as soon as a
	// value other than an optional or union is entered.
	whole bool
}

// NewReader returns a Reader over b.
func NewReader(b []byte) *Reader {
	return newReader(b, 0, false)
}

// NewReaderAt returns a Reader over b, reporting offsets relative to base.
func NewReaderAt(b []byte, base int64) *Reader {
	return newReader(b, base, false)
}

func newReader(b []byte, base int64, whole bool) *Reader {
	r := &Reader{data: b, br: bytes.NewReader(b), base: base, whole: whole}
	r.fr = parse.NewBinaryReader(r.br)
	return r
}

// Pos returns the current position within the region.
func (r *Reader) Pos() int64 {
	return r.br.Size() - int64(r.br.Len())
}

// Offset returns the absolute offset of the current position.
func (r *Reader) Offset() int64 {
	return r.base + r.Pos()
}

// Len returns the number of unread bytes in the region.
func (r *Reader) Len() int {
	return r.br.Len()
}

// Size returns the total size of the region.
func (r *Reader) Size() int64 {
	return r.br.Size()
}

// Seek moves the position to pos within the region.
func (r *Reader) Seek(pos int64) error {
	if pos < 0 || pos > r.br.Size() {
		return DataError{Offset: r.base + pos, Cause: io.ErrUnexpectedEOF}
	}
	r.br.Seek(pos, io.SeekStart)
	// The parse reader holds a sticky error, so a rewind starts fresh.
	r.fr = parse.NewBinaryReader(r.br)
	return nil
}

func (r *Reader) fail(off int64) error {
	err := r.fr.Err()
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	r.fr = parse.NewBinaryReader(r.br)
	return DataError{Offset: r.base + off, Cause: err}
}

// Number reads a fixed-size integer into data, which must be a pointer.
func (r *Reader) Number(data interface{}) error {
	off := r.Pos()
	if r.fr.Number(data) {
		return r.fail(off)
	}
	return nil
}

// Bytes reads exactly n bytes.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, DataError{Offset: r.Offset(), Cause: ErrNegativeCount}
	}
	if n > r.Len() {
		return nil, DataError{Offset: r.Offset(), Cause: io.ErrUnexpectedEOF}
	}
	off := r.Pos()
	b := make([]byte, n)
	if r.fr.Bytes(b) {
		return nil, r.fail(off)
	}
	return b, nil
}

// Peek returns the next n bytes without advancing.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n > r.Len() {
		return nil, DataError{Offset: r.Offset(), Cause: io.ErrUnexpectedEOF}
	}
	pos := r.Pos()
	return r.data[pos : pos+int64(n)], nil
}

// Rest reads all remaining bytes.
func (r *Reader) Rest() []byte {
	b, _ := r.Bytes(r.Len())
	return b
}

// Region splits off the next n bytes as a framed sub-region and advances past
// them.
func (r *Reader) Region(n int) (*Reader, error) {
	if n < 0 {
		return nil, DataError{Offset: r.Offset(), Cause: ErrNegativeCount}
	}
	if n > r.Len() {
		return nil, DataError{Offset: r.Offset(), Cause: io.ErrUnexpectedEOF}
	}
	pos := r.Pos()
	sub := newReader(r.data[pos:pos+int64(n)], r.base+pos, true)
	if err := r.Seek(pos + int64(n)); err != nil {
		return nil, err
	}
	return sub, nil
}

func (r *Reader) Int8() (v int8, err error)     { err = r.Number(&v); return }
func (r *Reader) Uint8() (v uint8, err error)   { err = r.Number(&v); return }
func (r *Reader) Int16() (v int16, err error)   { err = r.Number(&v); return }
func (r *Reader) Uint16() (v uint16, err error) { err = r.Number(&v); return }
func (r *Reader) Int32() (v int32, err error)   { err = r.Number(&v); return }
func (r *Reader) Uint32() (v uint32, err error) { err = r.Number(&v); return }
func (r *Reader) Int64() (v int64, err error)   { err = r.Number(&v); return }
func (r *Reader) Uint64() (v uint64, err error) { err = r.Number(&v); return }

func (r *Reader) Float32() (float32, error) {
	n, err := r.Uint32()
	return math.Float32frombits(n), err
}

func (r *Reader) Float64() (float64, error) {
	n, err := r.Uint64()
	return math.Float64frombits(n), err
}

// Floats reads len(v) consecutive 32-bit floats into v.
func (r *Reader) Floats(v []float32) (err error) {
	for i := range v {
		if v[i], err = r.Float32(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) Vec2() (v mgl32.Vec2, err error) { err = r.Floats(v[:]); return }
func (r *Reader) Vec3() (v mgl32.Vec3, err error) { err = r.Floats(v[:]); return }
func (r *Reader) Vec4() (v mgl32.Vec4, err error) { err = r.Floats(v[:]); return }

// Count reads a 32-bit count, rejecting negative values.
func (r *Reader) Count() (int, error) {
	off := r.Offset()
	n, err := r.Int32()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, DataError{Offset: off, Cause: ErrNegativeCount}
	}
	return int(n), nil
}

// CString reads a null-terminated string.
func (r *Reader) CString() (string, error) {
	pos := r.Pos()
	i := bytes.IndexByte(r.data[pos:], 0)
	if i < 0 {
		return "", DataError{Offset: r.base + pos, Cause: ErrUnterminated}
	}
	b, err := r.Bytes(i + 1)
	if err != nil {
		return "", err
	}
	return string(b[:i]), nil
}

// Color reads a 4-byte RGBA color.
func (r *Reader) Color() (c color.RGBA, err error) {
	b, err := r.Bytes(4)
	if err != nil {
		return c, err
	}
	return color.RGBA{R: b[0], G: b[1], B: b[2], A: b[3]}, nil
}

// DateTime reads a 32-bit Unix timestamp.
func (r *Reader) DateTime() (time.Time, error) {
	n, err := r.Int32()
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(n), 0).UTC(), nil
}

// Writer accumulates little-endian values in memory.
type Writer struct {
	buf bytes.Buffer
	fw  *parse.BinaryWriter
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	w := &Writer{}
	w.fw = parse.NewBinaryWriter(&w.buf)
	return w
}

// Bytes returns the bytes written so far.
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

func (w *Writer) fail() error {
	err := w.fw.Err()
	w.fw = parse.NewBinaryWriter(&w.buf)
	return DataError{Offset: int64(w.buf.Len()), Cause: err}
}

// Number writes a fixed-size integer.
func (w *Writer) Number(data interface{}) error {
	if w.fw.Number(data) {
		return w.fail()
	}
	return nil
}

// Write writes p verbatim.
func (w *Writer) Write(p []byte) error {
	if w.fw.Bytes(p) {
		return w.fail()
	}
	return nil
}

func (w *Writer) Int8(v int8) error     { return w.Number(v) }
func (w *Writer) Uint8(v uint8) error   { return w.Number(v) }
func (w *Writer) Int16(v int16) error   { return w.Number(v) }
func (w *Writer) Uint16(v uint16) error { return w.Number(v) }
func (w *Writer) Int32(v int32) error   { return w.Number(v) }
func (w *Writer) Uint32(v uint32) error { return w.Number(v) }
func (w *Writer) Int64(v int64) error   { return w.Number(v) }
func (w *Writer) Uint64(v uint64) error { return w.Number(v) }

func (w *Writer) Float32(v float32) error { return w.Uint32(math.Float32bits(v)) }
func (w *Writer) Float64(v float64) error { return w.Uint64(math.Float64bits(v)) }

// Floats writes each value of v as a 32-bit float.
func (w *Writer) Floats(v []float32) error {
	for _, f := range v {
		if err := w.Float32(f); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) Vec2(v mgl32.Vec2) error { return w.Floats(v[:]) }
func (w *Writer) Vec3(v mgl32.Vec3) error { return w.Floats(v[:]) }
func (w *Writer) Vec4(v mgl32.Vec4) error { return w.Floats(v[:]) }

// CString writes s followed by a null terminator.
func (w *Writer) CString(s string) error {
	if bytes.IndexByte([]byte(s), 0) >= 0 {
		return DataError{Offset: int64(w.buf.Len()), Cause: ErrStringNull}
	}
	if err := w.Write([]byte(s)); err != nil {
		return err
	}
	return w.Uint8(0)
}

// Color writes a 4-byte RGBA color.
func (w *Writer) Color(c color.RGBA) error {
	return w.Write([]byte{c.R, c.G, c.B, c.A})
}

// DateTime writes t as a 32-bit Unix timestamp.
func (w *Writer) DateTime(t time.Time) error {
	return w.Int32(int32(t.Unix()))
}
