package dat

import (
	"bytes"
	"image/color"
	"io"
	"time"

	"github.com/anaminus/parse"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/skwas/datfile/mesh"
)

// remaining returns the number of unread bytes of r, or -1 if unknown.
func remaining(r io.Reader) int {
	if l, ok := r.(interface{ Len() int }); ok {
		return l.Len()
	}
	return -1
}

// checkCount fails fr if count elements of size bytes cannot fit in the rest
// of r.
func checkCount(fr *parse.BinaryReader, r io.Reader, count, size int) (failed bool) {
	if n := remaining(r); n >= 0 && count*size > n {
		fr.Add(0, io.ErrUnexpectedEOF)
		return true
	}
	return false
}

////////////////////////////////////////////////////////////////

// Model is a chunk containing a mesh.
type Model struct {
	Header
	ID   uint64
	Mesh mesh.Mesh
}

func (*Model) Magic() Magic       { return MagicModel }
func (c *Model) ChunkID() uint64 { return c.ID }

func (c *Model) ReadFrom(r io.Reader) (n int64, err error) {
	fr := parse.NewBinaryReader(r)
	if fr.Number(&c.ID) {
		return fr.End()
	}
	fr.Add(c.Mesh.ReadFrom(r))
	return fr.End()
}

func (c *Model) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)
	if fw.Number(c.ID) {
		return fw.End()
	}
	fw.Add(c.Mesh.WriteTo(w))
	return fw.End()
}

////////////////////////////////////////////////////////////////

// Material describes the surface of a model.
type Material struct {
	Header
	ID               uint64
	Opacity          uint8
	Diffuse          color.RGBA
	Specular         color.RGBA
	SpecularStrength uint8
	Glossiness       uint8
	Emission         uint8
	Flags            uint8

	// Textured indicates that the material refers to a texture file. The
	// creation time and texture fields are present only if set.
	Textured     bool
	CreationTime time.Time
	Texture      string
}

func (*Material) Magic() Magic       { return MagicMaterial }
func (c *Material) ChunkID() uint64 { return c.ID }

func (c *Material) ReadFrom(r io.Reader) (n int64, err error) {
	fr := parse.NewBinaryReader(r)
	if fr.Number(&c.ID) {
		return fr.End()
	}
	if fr.Number(&c.Opacity) {
		return fr.End()
	}
	if readColor(fr, &c.Diffuse) {
		return fr.End()
	}
	if readColor(fr, &c.Specular) {
		return fr.End()
	}
	if fr.Number(&c.SpecularStrength) {
		return fr.End()
	}
	if fr.Number(&c.Glossiness) {
		return fr.End()
	}
	if fr.Number(&c.Emission) {
		return fr.End()
	}
	if fr.Number(&c.Flags) {
		return fr.End()
	}
	c.Textured = remaining(r) != 0
	if !c.Textured {
		return fr.End()
	}
	if readTime(fr, &c.CreationTime) {
		return fr.End()
	}
	readCString(fr, &c.Texture)
	return fr.End()
}

func (c *Material) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)
	if fw.Number(c.ID) {
		return fw.End()
	}
	if fw.Number(c.Opacity) {
		return fw.End()
	}
	if writeColor(fw, c.Diffuse) {
		return fw.End()
	}
	if writeColor(fw, c.Specular) {
		return fw.End()
	}
	if fw.Bytes([]byte{c.SpecularStrength, c.Glossiness, c.Emission, c.Flags}) {
		return fw.End()
	}
	if !c.Textured {
		return fw.End()
	}
	if writeTime(fw, c.CreationTime) {
		return fw.End()
	}
	writeCString(fw, c.Texture)
	return fw.End()
}

////////////////////////////////////////////////////////////////

// EmbeddedImage contains the bytes of an image file.
type EmbeddedImage struct {
	Header
	ID    uint64
	Bytes []byte
}

func (*EmbeddedImage) Magic() Magic       { return MagicEmbeddedImage }
func (c *EmbeddedImage) ChunkID() uint64 { return c.ID }

func (c *EmbeddedImage) ReadFrom(r io.Reader) (n int64, err error) {
	fr := parse.NewBinaryReader(r)
	if fr.Number(&c.ID) {
		return fr.End()
	}
	c.Bytes, _ = fr.All()
	return fr.End()
}

func (c *EmbeddedImage) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)
	if fw.Number(c.ID) {
		return fw.End()
	}
	fw.Bytes(c.Bytes)
	return fw.End()
}

////////////////////////////////////////////////////////////////

// NodeLink is a node of the scene graph, transformed relative to its parent.
type NodeLink struct {
	Header
	ID          uint64
	ParentID    uint64
	Translation mgl32.Vec3
	Rotation    mgl32.Vec3
}

func (*NodeLink) Magic() Magic             { return MagicNodeLink }
func (c *NodeLink) ChunkID() uint64       { return c.ID }
func (c *NodeLink) ParentChunkID() uint64 { return c.ParentID }

func (c *NodeLink) ReadFrom(r io.Reader) (n int64, err error) {
	fr := parse.NewBinaryReader(r)
	if fr.Number(&c.ID) {
		return fr.End()
	}
	if fr.Number(&c.ParentID) {
		return fr.End()
	}
	if readVec3(fr, &c.Translation) {
		return fr.End()
	}
	readVec3(fr, &c.Rotation)
	return fr.End()
}

func (c *NodeLink) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)
	if fw.Number(c.ID) {
		return fw.End()
	}
	if fw.Number(c.ParentID) {
		return fw.End()
	}
	if writeVec3(fw, c.Translation) {
		return fw.End()
	}
	writeVec3(fw, c.Rotation)
	return fw.End()
}

////////////////////////////////////////////////////////////////

// Label is a name attached to another chunk.
type Label struct {
	Header
	ParentID uint64
	Text     string
}

func (*Label) Magic() Magic             { return MagicLabel }
func (c *Label) ParentChunkID() uint64 { return c.ParentID }
func (*Label) TolerateTrailing() bool   { return true }

func (c *Label) ReadFrom(r io.Reader) (n int64, err error) {
	fr := parse.NewBinaryReader(r)
	if fr.Number(&c.ParentID) {
		return fr.End()
	}
	readCString(fr, &c.Text)
	return fr.End()
}

func (c *Label) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)
	if fw.Number(c.ParentID) {
		return fw.End()
	}
	writeCString(fw, c.Text)
	return fw.End()
}

////////////////////////////////////////////////////////////////

// Controller attaches a controller to a chunk. Its record is stored in the
// ControllerData chunk that follows it.
type Controller struct {
	Header
	ID       uint64
	ParentID uint64
	Name     string
}

func (*Controller) Magic() Magic             { return MagicController }
func (c *Controller) ChunkID() uint64       { return c.ID }
func (c *Controller) ParentChunkID() uint64 { return c.ParentID }
func (*Controller) TolerateTrailing() bool   { return true }

func (c *Controller) ReadFrom(r io.Reader) (n int64, err error) {
	fr := parse.NewBinaryReader(r)
	if fr.Number(&c.ID) {
		return fr.End()
	}
	if fr.Number(&c.ParentID) {
		return fr.End()
	}
	readCString(fr, &c.Name)
	return fr.End()
}

func (c *Controller) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)
	if fw.Number(c.ID) {
		return fw.End()
	}
	if fw.Number(c.ParentID) {
		return fw.End()
	}
	writeCString(fw, c.Name)
	return fw.End()
}

////////////////////////////////////////////////////////////////

// Placement places a copy of a target chunk under a parent.
type Placement struct {
	Header
	ID       uint64
	ParentID uint64
	TargetID uint64
	Position mgl32.Vec3
	Rotation mgl32.Vec3
}

func (*Placement) Magic() Magic             { return MagicPlacement }
func (c *Placement) ChunkID() uint64       { return c.ID }
func (c *Placement) ParentChunkID() uint64 { return c.ParentID }

func (c *Placement) ReadFrom(r io.Reader) (n int64, err error) {
	fr := parse.NewBinaryReader(r)
	if fr.Number(&c.ID) {
		return fr.End()
	}
	if fr.Number(&c.ParentID) {
		return fr.End()
	}
	if fr.Number(&c.TargetID) {
		return fr.End()
	}
	if readVec3(fr, &c.Position) {
		return fr.End()
	}
	readVec3(fr, &c.Rotation)
	return fr.End()
}

func (c *Placement) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)
	if fw.Number(c.ID) {
		return fw.End()
	}
	if fw.Number(c.ParentID) {
		return fw.End()
	}
	if fw.Number(c.TargetID) {
		return fw.End()
	}
	if writeVec3(fw, c.Position) {
		return fw.End()
	}
	writeVec3(fw, c.Rotation)
	return fw.End()
}

////////////////////////////////////////////////////////////////

// TextureMap assigns a texture file to a map channel of a material.
type TextureMap struct {
	Header
	ID           uint64
	ParentID     uint64
	MapChannel   int32
	Attributes   uint32
	CreationTime time.Time
	MapType      string
	Texture      string
}

func (*TextureMap) Magic() Magic             { return MagicTextureMap }
func (c *TextureMap) ChunkID() uint64       { return c.ID }
func (c *TextureMap) ParentChunkID() uint64 { return c.ParentID }

func (c *TextureMap) ReadFrom(r io.Reader) (n int64, err error) {
	fr := parse.NewBinaryReader(r)
	if fr.Number(&c.ID) {
		return fr.End()
	}
	if fr.Number(&c.ParentID) {
		return fr.End()
	}
	if fr.Number(&c.MapChannel) {
		return fr.End()
	}
	if fr.Number(&c.Attributes) {
		return fr.End()
	}
	if readTime(fr, &c.CreationTime) {
		return fr.End()
	}
	if readCString(fr, &c.MapType) {
		return fr.End()
	}
	readCString(fr, &c.Texture)
	return fr.End()
}

func (c *TextureMap) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)
	if fw.Number(c.ID) {
		return fw.End()
	}
	if fw.Number(c.ParentID) {
		return fw.End()
	}
	if fw.Number(c.MapChannel) {
		return fw.End()
	}
	if fw.Number(c.Attributes) {
		return fw.End()
	}
	if writeTime(fw, c.CreationTime) {
		return fw.End()
	}
	if writeCString(fw, c.MapType) {
		return fw.End()
	}
	writeCString(fw, c.Texture)
	return fw.End()
}

////////////////////////////////////////////////////////////////

// S3DSettings is bookkeeping data written by the editor and ignored by the
// game. Its payload is kept as is.
type S3DSettings struct {
	Header
	Bytes []byte
}

// NewS3DSettings returns an empty settings chunk with the expected subtype.
func NewS3DSettings() *S3DSettings {
	return &S3DSettings{Header: Header{Sub: S3DSettingsSubType}}
}

func (*S3DSettings) Magic() Magic { return MagicS3DSettings }

func (c *S3DSettings) ReadFrom(r io.Reader) (n int64, err error) {
	fr := parse.NewBinaryReader(r)
	c.Bytes, _ = fr.All()
	return fr.End()
}

func (c *S3DSettings) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)
	fw.Bytes(c.Bytes)
	return fw.End()
}

////////////////////////////////////////////////////////////////

// AuthorInfo identifies the author of a file.
type AuthorInfo struct {
	Header
	Reserved    int64
	Author      string
	Description string

	// Signature holds any bytes that follow the description.
	Signature []byte
}

func (*AuthorInfo) Magic() Magic { return MagicAuthorInfo }

func (c *AuthorInfo) ReadFrom(r io.Reader) (n int64, err error) {
	fr := parse.NewBinaryReader(r)
	if fr.Number(&c.Reserved) {
		return fr.End()
	}
	if readCString(fr, &c.Author) {
		return fr.End()
	}
	c.Description = ""
	c.Signature = nil
	rest, _ := fr.All()
	if i := bytes.IndexByte(rest, 0); i >= 0 {
		c.Description = string(rest[:i])
		rest = rest[i+1:]
	}
	if len(rest) > 0 {
		c.Signature = rest
	}
	return fr.End()
}

func (c *AuthorInfo) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)
	if fw.Number(c.Reserved) {
		return fw.End()
	}
	if writeCString(fw, c.Author) {
		return fw.End()
	}
	if c.Description != "" || len(c.Signature) > 0 {
		if writeCString(fw, c.Description) {
			return fw.End()
		}
	}
	fw.Bytes(c.Signature)
	return fw.End()
}

////////////////////////////////////////////////////////////////

// IndexEntry associates the id of a chunk with the file offset of its header.
type IndexEntry struct {
	ID     uint64
	Offset int32
}

// Index lists the chunks of a file that have an id.
type Index struct {
	Header
	Entries []IndexEntry
}

func (*Index) Magic() Magic { return MagicIndex }

func (c *Index) ReadFrom(r io.Reader) (n int64, err error) {
	fr := parse.NewBinaryReader(r)
	b, failed := fr.All()
	if failed {
		return fr.End()
	}
	if len(b)%12 != 0 {
		fr.Add(0, errIndexSize(len(b)))
		return fr.End()
	}
	c.Entries = make([]IndexEntry, len(b)/12)
	er := parse.NewBinaryReader(bytes.NewReader(b))
	for i := range c.Entries {
		e := &c.Entries[i]
		if er.Number(&e.ID) {
			break
		}
		if er.Number(&e.Offset) {
			break
		}
	}
	_, err = er.End()
	fr.Add(0, err)
	return fr.End()
}

func (c *Index) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)
	for _, e := range c.Entries {
		if fw.Number(e.ID) {
			return fw.End()
		}
		if fw.Number(e.Offset) {
			return fw.End()
		}
	}
	return fw.End()
}

////////////////////////////////////////////////////////////////

// Eof marks the end of a file. It has no payload.
type Eof struct {
	Header
}

func (*Eof) Magic() Magic { return MagicEof }

func (c *Eof) ReadFrom(r io.Reader) (n int64, err error) {
	return 0, nil
}

func (c *Eof) WriteTo(w io.Writer) (n int64, err error) {
	return 0, nil
}

////////////////////////////////////////////////////////////////

// BodyParts lists the names of the body parts of a character model.
type BodyParts struct {
	Header
	Names []string
}

func (*BodyParts) Magic() Magic { return MagicBodyParts }

func (c *BodyParts) ReadFrom(r io.Reader) (n int64, err error) {
	fr := parse.NewBinaryReader(r)
	var count int
	if readCount(fr, &count) {
		return fr.End()
	}
	// Each name has at least its terminator.
	if checkCount(fr, r, count, 1) {
		return fr.End()
	}
	c.Names = make([]string, count)
	for i := range c.Names {
		if readCString(fr, &c.Names[i]) {
			return fr.End()
		}
	}
	return fr.End()
}

func (c *BodyParts) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)
	if fw.Number(int32(len(c.Names))) {
		return fw.End()
	}
	for _, name := range c.Names {
		if writeCString(fw, name) {
			return fw.End()
		}
	}
	return fw.End()
}

////////////////////////////////////////////////////////////////

// BodyParts2 assigns a body part to each vertex of a model.
type BodyParts2 struct {
	Header
	ParentID uint64
	Parts    []uint8
}

func (*BodyParts2) Magic() Magic             { return MagicBodyParts2 }
func (c *BodyParts2) ParentChunkID() uint64 { return c.ParentID }

func (c *BodyParts2) ReadFrom(r io.Reader) (n int64, err error) {
	fr := parse.NewBinaryReader(r)
	if fr.Number(&c.ParentID) {
		return fr.End()
	}
	var count int
	if readCount(fr, &count) {
		return fr.End()
	}
	if checkCount(fr, r, count, 1) {
		return fr.End()
	}
	c.Parts = make([]uint8, count)
	fr.Bytes(c.Parts)
	return fr.End()
}

func (c *BodyParts2) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)
	if fw.Number(c.ParentID) {
		return fw.End()
	}
	if fw.Number(int32(len(c.Parts))) {
		return fw.End()
	}
	fw.Bytes(c.Parts)
	return fw.End()
}

////////////////////////////////////////////////////////////////

// BoneInfluence is the weighting of up to four bones on one vertex.
type BoneInfluence struct {
	Bones   [4]uint8
	Weights [4]float32
}

// BoneInfluences assigns bone weights to each vertex of a model.
type BoneInfluences struct {
	Header
	ParentID   uint64
	Influences []BoneInfluence
}

func (*BoneInfluences) Magic() Magic             { return MagicBoneInfluences }
func (c *BoneInfluences) ParentChunkID() uint64 { return c.ParentID }

func (c *BoneInfluences) ReadFrom(r io.Reader) (n int64, err error) {
	fr := parse.NewBinaryReader(r)
	if fr.Number(&c.ParentID) {
		return fr.End()
	}
	var count int
	if readCount(fr, &count) {
		return fr.End()
	}
	if checkCount(fr, r, count, 20) {
		return fr.End()
	}
	c.Influences = make([]BoneInfluence, count)
	for i := range c.Influences {
		b := &c.Influences[i]
		if fr.Bytes(b.Bones[:]) {
			return fr.End()
		}
		for j := range b.Weights {
			if readFloat32(fr, &b.Weights[j]) {
				return fr.End()
			}
		}
	}
	return fr.End()
}

func (c *BoneInfluences) WriteTo(w io.Writer) (n int64, err error) {
	fw := parse.NewBinaryWriter(w)
	if fw.Number(c.ParentID) {
		return fw.End()
	}
	if fw.Number(int32(len(c.Influences))) {
		return fw.End()
	}
	for _, b := range c.Influences {
		if fw.Bytes(b.Bones[:]) {
			return fw.End()
		}
		for _, f := range b.Weights {
			if writeFloat32(fw, f) {
				return fw.End()
			}
		}
	}
	return fw.End()
}
