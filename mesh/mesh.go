// Package mesh implements the model mesh codec and the 16-bit vertex
// compression used by mesh animation data.
package mesh

import (
	"errors"
	"fmt"
	"io"

	"github.com/anaminus/parse"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/skwas/datfile/field"
)

// Tags of the optional sections that may follow the main mesh block.
const (
	tagTextureMaps = "TMAP"
	tagNormals     = "NORM"
)

// PrimaryChannel is the UV channel stored inline with the triangle list.
const PrimaryChannel = 1

var (
	ErrIndexCount  = errors.New("vertex index count must be three times the material index count")
	ErrUVCount     = errors.New("uv map index count does not match vertex index count")
	ErrNormalCount = errors.New("normal count does not match vertex count")
	ErrTooManyMaps = errors.New("too many uv maps")
)

// ErrUnknownSection indicates an optional section tag not known by the codec.
type ErrUnknownSection [4]byte

func (err ErrUnknownSection) Error() string {
	return fmt.Sprintf("unknown mesh section %q", string(err[:]))
}

// UVMap is a set of indices into the texture coordinates of a mesh, one per
// vertex index.
type UVMap struct {
	Channel        uint8
	TextureIndices []uint16
}

// Mesh is the geometry stored in a model chunk.
type Mesh struct {
	Vertices []mgl32.Vec3

	// VertexIndices contains three indices per triangle.
	VertexIndices []uint16

	// MaterialIndices contains one material per triangle.
	MaterialIndices []uint8

	TextureCoordinates []mgl32.Vec2

	// UVMaps is the list of UV channels. The channel 1 map is written inline
	// with the triangles, the others in a TMAP section.
	UVMaps []UVMap

	// Normals contains one normal per vertex, or is empty.
	Normals []mgl32.Vec3
}

// ReadFrom decodes the mesh from the remainder of r.
func (m *Mesh) ReadFrom(r io.Reader) (n int64, err error) {
	fr := parse.NewBinaryReader(r)
	b, failed := fr.All()
	if failed {
		return fr.End()
	}
	fr.Add(0, m.Decode(field.NewReader(b)))
	return fr.End()
}

// WriteTo encodes the mesh to w.
func (m *Mesh) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)
	bw := field.NewWriter()
	if fw.Add(0, m.Encode(bw)) {
		return fw.End()
	}
	fw.Bytes(bw.Bytes())
	return fw.End()
}

func checkCount(r *field.Reader, count, size int) error {
	if count*size > r.Len() {
		return field.DataError{Offset: r.Offset(), Cause: io.ErrUnexpectedEOF}
	}
	return nil
}

// Decode reads a mesh from r, consuming all remaining bytes.
func (m *Mesh) Decode(r *field.Reader) error {
	n, err := r.Count()
	if err != nil {
		return err
	}
	if err := checkCount(r, n, 12); err != nil {
		return err
	}
	m.Vertices = make([]mgl32.Vec3, n)
	for i := range m.Vertices {
		if m.Vertices[i], err = r.Vec3(); err != nil {
			return err
		}
	}

	triangles, err := r.Count()
	if err != nil {
		return err
	}
	if err := checkCount(r, triangles, 13); err != nil {
		return err
	}
	m.VertexIndices = make([]uint16, triangles*3)
	m.MaterialIndices = make([]uint8, triangles)
	primary := UVMap{Channel: PrimaryChannel, TextureIndices: make([]uint16, triangles*3)}
	for i := 0; i < triangles; i++ {
		for j := 0; j < 3; j++ {
			if m.VertexIndices[i*3+j], err = r.Uint16(); err != nil {
				return err
			}
		}
		for j := 0; j < 3; j++ {
			if primary.TextureIndices[i*3+j], err = r.Uint16(); err != nil {
				return err
			}
		}
		if m.MaterialIndices[i], err = r.Uint8(); err != nil {
			return err
		}
	}
	m.UVMaps = []UVMap{primary}

	n, err = r.Count()
	if err != nil {
		return err
	}
	if err := checkCount(r, n, 8); err != nil {
		return err
	}
	m.TextureCoordinates = make([]mgl32.Vec2, n)
	for i := range m.TextureCoordinates {
		if m.TextureCoordinates[i], err = r.Vec2(); err != nil {
			return err
		}
	}

	m.Normals = nil
	for r.Len() > 0 {
		off := r.Offset()
		tag, err := r.Bytes(4)
		if err != nil {
			return err
		}
		switch string(tag) {
		case tagTextureMaps:
			if err := m.decodeMaps(r); err != nil {
				return err
			}
		case tagNormals:
			if err := checkCount(r, len(m.Vertices), 12); err != nil {
				return err
			}
			m.Normals = make([]mgl32.Vec3, len(m.Vertices))
			for i := range m.Normals {
				if m.Normals[i], err = r.Vec3(); err != nil {
					return err
				}
			}
		default:
			var sig ErrUnknownSection
			copy(sig[:], tag)
			return field.DataError{Offset: off, Cause: sig}
		}
	}
	return nil
}

func (m *Mesh) decodeMaps(r *field.Reader) error {
	count, err := r.Uint8()
	if err != nil {
		return err
	}
	for i := 0; i < int(count); i++ {
		var uv UVMap
		if uv.Channel, err = r.Uint8(); err != nil {
			return err
		}
		if err := checkCount(r, len(m.VertexIndices), 2); err != nil {
			return err
		}
		uv.TextureIndices = make([]uint16, len(m.VertexIndices))
		for j := range uv.TextureIndices {
			if uv.TextureIndices[j], err = r.Uint16(); err != nil {
				return err
			}
		}
		m.UVMaps = append(m.UVMaps, uv)
	}
	return nil
}

// primaryMap returns the index of the UV map written inline: the map of
// channel 1, or else the first map. Returns -1 if there are no maps.
func (m *Mesh) primaryMap() int {
	for i, uv := range m.UVMaps {
		if uv.Channel == PrimaryChannel {
			return i
		}
	}
	if len(m.UVMaps) > 0 {
		return 0
	}
	return -1
}

// Encode writes the mesh to w.
func (m *Mesh) Encode(w *field.Writer) error {
	if len(m.VertexIndices) != len(m.MaterialIndices)*3 {
		return ErrIndexCount
	}
	for _, uv := range m.UVMaps {
		if len(uv.TextureIndices) != len(m.VertexIndices) {
			return ErrUVCount
		}
	}
	if len(m.Normals) > 0 && len(m.Normals) != len(m.Vertices) {
		return ErrNormalCount
	}
	if len(m.UVMaps) > 256 {
		return ErrTooManyMaps
	}

	if err := w.Int32(int32(len(m.Vertices))); err != nil {
		return err
	}
	for _, v := range m.Vertices {
		if err := w.Vec3(v); err != nil {
			return err
		}
	}

	p := m.primaryMap()
	var primary []uint16
	if p >= 0 {
		primary = m.UVMaps[p].TextureIndices
	} else {
		primary = make([]uint16, len(m.VertexIndices))
	}
	if err := w.Int32(int32(len(m.MaterialIndices))); err != nil {
		return err
	}
	for i, mat := range m.MaterialIndices {
		for _, idx := range m.VertexIndices[i*3 : i*3+3] {
			if err := w.Uint16(idx); err != nil {
				return err
			}
		}
		for _, idx := range primary[i*3 : i*3+3] {
			if err := w.Uint16(idx); err != nil {
				return err
			}
		}
		if err := w.Uint8(mat); err != nil {
			return err
		}
	}

	if err := w.Int32(int32(len(m.TextureCoordinates))); err != nil {
		return err
	}
	for _, uv := range m.TextureCoordinates {
		if err := w.Vec2(uv); err != nil {
			return err
		}
	}

	if len(m.UVMaps) > 1 {
		if err := w.Write([]byte(tagTextureMaps)); err != nil {
			return err
		}
		if err := w.Uint8(uint8(len(m.UVMaps) - 1)); err != nil {
			return err
		}
		for i, uv := range m.UVMaps {
			if i == p {
				continue
			}
			if err := w.Uint8(uv.Channel); err != nil {
				return err
			}
			for _, idx := range uv.TextureIndices {
				if err := w.Uint16(idx); err != nil {
					return err
				}
			}
		}
	}

	if len(m.Normals) > 0 {
		if err := w.Write([]byte(tagNormals)); err != nil {
			return err
		}
		for _, n := range m.Normals {
			if err := w.Vec3(n); err != nil {
				return err
			}
		}
	}
	return nil
}
