package mesh

import (
	"errors"
	"iter"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/skwas/datfile/field"
)

// ErrComponents indicates a component count that is not positive.
var ErrComponents = errors.New("components per vertex must be positive")

// CompressedVertices is a sequence of vectors quantized to signed 16-bit
// integers. A component decompresses to Scale*raw + Bias.
type CompressedVertices struct {
	Scale float32
	Bias  float32

	// Components is the number of components per vertex.
	Components int

	// Data holds Components values per vertex.
	Data []int16
}

// Compress quantizes values, which holds components values per vertex. If
// pad is greater than the number of vertices, the result is padded with zero
// vertices up to pad. Values that do not fit the quantized range saturate.
func Compress(values []float32, components, pad int) CompressedVertices {
	c := CompressedVertices{Components: components}
	if components <= 0 {
		return c
	}

	var fmin, fmax float64
	for _, v := range values {
		fmin = min(fmin, float64(v))
		fmax = max(fmax, float64(v))
	}
	scale := (fmax - fmin) / math.MaxUint16
	var bias float64
	if scale > 0 {
		// Shift the range when an extreme would not fit after scaling.
		if q := fmax / scale; q > math.MaxInt16 {
			bias = (q - math.MaxInt16) * scale
		} else if q := fmin / scale; q < math.MinInt16 {
			bias = (q - math.MinInt16) * scale
		}
	}
	c.Scale = float32(scale)
	c.Bias = float32(bias)

	n := len(values) / components
	if pad > n {
		n = pad
	}
	c.Data = make([]int16, n*components)
	if scale == 0 {
		return c
	}
	for i, v := range values[:len(values)/components*components] {
		q := math.Round((float64(v) - bias) / scale)
		c.Data[i] = int16(max(math.MinInt16, min(math.MaxInt16, q)))
	}
	return c
}

// CompressVec3 quantizes a list of 3-component vectors.
func CompressVec3(vs []mgl32.Vec3, pad int) CompressedVertices {
	values := make([]float32, 0, len(vs)*3)
	for _, v := range vs {
		values = append(values, v[:]...)
	}
	return Compress(values, 3, pad)
}

// CompressVec2 quantizes a list of 2-component vectors.
func CompressVec2(vs []mgl32.Vec2, pad int) CompressedVertices {
	values := make([]float32, 0, len(vs)*2)
	for _, v := range vs {
		values = append(values, v[:]...)
	}
	return Compress(values, 2, pad)
}

// Len returns the number of vertices.
func (c CompressedVertices) Len() int {
	if c.Components <= 0 {
		return 0
	}
	return len(c.Data) / c.Components
}

// At decompresses vertex i into dst, which must hold Components values.
func (c CompressedVertices) At(i int, dst []float32) {
	raw := c.Data[i*c.Components : (i+1)*c.Components]
	for j, q := range raw {
		dst[j] = c.Scale*float32(q) + c.Bias
	}
}

// Decompress returns the decompressed vertices of c as a sequence.
func Decompress(c CompressedVertices) iter.Seq[[]float32] {
	return c.Vectors()
}

// Vectors iterates over the decompressed vertices. The yielded slice is
// reused between iterations. Each call starts from the first vertex.
func (c CompressedVertices) Vectors() iter.Seq[[]float32] {
	return func(yield func([]float32) bool) {
		buf := make([]float32, max(c.Components, 0))
		for i := 0; i < c.Len(); i++ {
			c.At(i, buf)
			if !yield(buf) {
				return
			}
		}
	}
}

// Vec3s iterates over the decompressed vertices as 3-component vectors.
// Missing components are zero.
func (c CompressedVertices) Vec3s() iter.Seq[mgl32.Vec3] {
	return func(yield func(mgl32.Vec3) bool) {
		for v := range c.Vectors() {
			var out mgl32.Vec3
			copy(out[:], v)
			if !yield(out) {
				return
			}
		}
	}
}

// Vec2s iterates over the decompressed vertices as 2-component vectors.
func (c CompressedVertices) Vec2s() iter.Seq[mgl32.Vec2] {
	return func(yield func(mgl32.Vec2) bool) {
		for v := range c.Vectors() {
			var out mgl32.Vec2
			copy(out[:], v)
			if !yield(out) {
				return
			}
		}
	}
}

// VertexCodec reads and writes compressed vertices as a record field:
//
//	[f32 scale][f32 bias][i32 vertexCount][i16 × vertexCount*Components]
type VertexCodec struct {
	Components int
}

// Field types of compressed vertex lists.
var (
	CompressedVec3 = field.CustomOf("compressed_vec3", VertexCodec{Components: 3})
	CompressedVec2 = field.CustomOf("compressed_vec2", VertexCodec{Components: 2})
)

func (vc VertexCodec) DecodeField(r *field.Reader) (interface{}, error) {
	if vc.Components <= 0 {
		return nil, ErrComponents
	}
	c := CompressedVertices{Components: vc.Components}
	var err error
	if c.Scale, err = r.Float32(); err != nil {
		return nil, err
	}
	if c.Bias, err = r.Float32(); err != nil {
		return nil, err
	}
	n, err := r.Count()
	if err != nil {
		return nil, err
	}
	if err := checkCount(r, n*vc.Components, 2); err != nil {
		return nil, err
	}
	c.Data = make([]int16, n*vc.Components)
	for i := range c.Data {
		if c.Data[i], err = r.Int16(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (vc VertexCodec) EncodeField(w *field.Writer, v interface{}) error {
	var c CompressedVertices
	switch v := v.(type) {
	case CompressedVertices:
		c = v
	case *CompressedVertices:
		c = *v
	default:
		return field.ValueTypeError{Type: field.CustomOf("compressed", vc), Value: v}
	}
	if c.Components != vc.Components {
		return ErrComponents
	}
	if err := w.Float32(c.Scale); err != nil {
		return err
	}
	if err := w.Float32(c.Bias); err != nil {
		return err
	}
	if err := w.Int32(int32(c.Len())); err != nil {
		return err
	}
	for _, q := range c.Data[:c.Len()*c.Components] {
		if err := w.Int16(q); err != nil {
			return err
		}
	}
	return nil
}
