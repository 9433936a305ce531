package dat

import (
	"image/color"
	"io"
	"math"
	"time"

	"github.com/anaminus/parse"
	"github.com/go-gl/mathgl/mgl32"
)

// Chunk is a portion of a file that contains distinct data.
type Chunk interface {
	// Magic returns the value used to identify the chunk's type.
	Magic() Magic

	// SubType returns the subtype field of the chunk header.
	SubType() int32

	// SetSubType sets the subtype field of the chunk header.
	SetSubType(int32)

	// ReadFrom decodes the payload of the chunk. The returned count is the
	// number of bytes the chunk consumed, which may be compared against the
	// size declared by the chunk header.
	ReadFrom(r io.Reader) (n int64, err error)

	// WriteTo encodes the payload of the chunk.
	WriteTo(w io.Writer) (n int64, err error)
}

// IDChunk is implemented by chunks that have an id. Chunks with an id are
// listed in the Index chunk.
type IDChunk interface {
	Chunk
	ChunkID() uint64
}

// ParentChunk is implemented by chunks that refer to a parent chunk by id.
type ParentChunk interface {
	Chunk
	ParentChunkID() uint64
}

// TrailingTolerant is implemented by chunks that may be followed by unused
// bytes within their declared size. Such bytes are skipped with a warning
// instead of failing the decode.
type TrailingTolerant interface {
	Chunk
	TolerateTrailing() bool
}

// Header holds the subtype of a chunk. It is embedded by every chunk type.
type Header struct {
	Sub int32
}

func (h *Header) SubType() int32 { return h.Sub }

func (h *Header) SetSubType(s int32) { h.Sub = s }

////////////////////////////////////////////////////////////////

func readCString(fr *parse.BinaryReader, s *string) (failed bool) {
	if fr.Err() != nil {
		return true
	}
	var buf []byte
	var c [1]byte
	for {
		if fr.Bytes(c[:]) {
			return true
		}
		if c[0] == 0 {
			break
		}
		buf = append(buf, c[0])
	}
	*s = string(buf)
	return false
}

func writeCString(fw *parse.BinaryWriter, s string) (failed bool) {
	if fw.Err() != nil {
		return true
	}
	for i := 0; i < len(s); i++ {
		if s[i] == 0 {
			fw.Add(0, errStringNull)
			return true
		}
	}
	if fw.Bytes([]byte(s)) {
		return true
	}
	return fw.Number(uint8(0))
}

func readFloat32(fr *parse.BinaryReader, v *float32) (failed bool) {
	var bits uint32
	if fr.Number(&bits) {
		return true
	}
	*v = math.Float32frombits(bits)
	return false
}

func writeFloat32(fw *parse.BinaryWriter, v float32) (failed bool) {
	return fw.Number(math.Float32bits(v))
}

func readVec3(fr *parse.BinaryReader, v *mgl32.Vec3) (failed bool) {
	for i := range v {
		if readFloat32(fr, &v[i]) {
			return true
		}
	}
	return false
}

func writeVec3(fw *parse.BinaryWriter, v mgl32.Vec3) (failed bool) {
	for _, f := range v {
		if writeFloat32(fw, f) {
			return true
		}
	}
	return false
}

func readColor(fr *parse.BinaryReader, c *color.RGBA) (failed bool) {
	var b [4]byte
	if fr.Bytes(b[:]) {
		return true
	}
	*c = color.RGBA{R: b[0], G: b[1], B: b[2], A: b[3]}
	return false
}

func writeColor(fw *parse.BinaryWriter, c color.RGBA) (failed bool) {
	return fw.Bytes([]byte{c.R, c.G, c.B, c.A})
}

func readTime(fr *parse.BinaryReader, t *time.Time) (failed bool) {
	var sec int32
	if fr.Number(&sec) {
		return true
	}
	*t = time.Unix(int64(sec), 0).UTC()
	return false
}

func writeTime(fw *parse.BinaryWriter, t time.Time) (failed bool) {
	return fw.Number(int32(t.Unix()))
}

func readCount(fr *parse.BinaryReader, n *int) (failed bool) {
	var count int32
	if fr.Number(&count) {
		return true
	}
	if count < 0 {
		fr.Add(0, errNegativeCount(count))
		return true
	}
	*n = int(count)
	return false
}

////////////////////////////////////////////////////////////////

// Unknown is a chunk whose magic is not known by the registry. Its payload is
// kept as is.
type Unknown struct {
	Header

	// Kind is the magic of the chunk.
	Kind Magic

	// Bytes is the raw payload of the chunk.
	Bytes []byte
}

func (c *Unknown) Magic() Magic {
	return c.Kind
}

func (c *Unknown) ReadFrom(r io.Reader) (n int64, err error) {
	fr := parse.NewBinaryReader(r)
	c.Bytes, _ = fr.All()
	return fr.End()
}

func (c *Unknown) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)
	fw.Bytes(c.Bytes)
	return fw.End()
}
