package dat

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image/color"
	"io"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/skwas/datfile/mesh"
)

func app(bs ...interface{}) []byte {
	var s []byte
	for _, b := range bs {
		switch b := b.(type) {
		case string:
			s = append(s, b...)
		case []byte:
			s = append(s, b...)
		case int:
			s = append(s, byte(b))
		}
	}
	return s
}

func le16(v uint16) []byte { return binary.LittleEndian.AppendUint16(nil, v) }
func le32(v int32) []byte  { return binary.LittleEndian.AppendUint32(nil, uint32(v)) }
func le64(v uint64) []byte { return binary.LittleEndian.AppendUint64(nil, v) }

func f32(vs ...float32) []byte {
	var b []byte
	for _, v := range vs {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
	}
	return b
}

func encodeChunk(t *testing.T, c Chunk) []byte {
	t.Helper()
	var buf bytes.Buffer
	n, err := c.WriteTo(&buf)
	if err != nil {
		t.Fatalf("%s: write: %s", c.Magic(), err)
	}
	if n != int64(buf.Len()) {
		t.Errorf("%s: reported %d bytes, wrote %d", c.Magic(), n, buf.Len())
	}
	return buf.Bytes()
}

func TestAuthorInfo_Encode(t *testing.T) {
	c := &AuthorInfo{Author: "skwas", Description: "My description"}
	expected := app(le64(0), "skwas", 0, "My description", 0)
	if b := encodeChunk(t, c); !bytes.Equal(b, expected) {
		t.Errorf("unexpected bytes:\n% x\n% x", b, expected)
	}

	// The description is omitted when empty and no signature follows.
	c = &AuthorInfo{Author: "skwas"}
	expected = app(le64(0), "skwas", 0)
	if b := encodeChunk(t, c); !bytes.Equal(b, expected) {
		t.Errorf("unexpected bytes:\n% x\n% x", b, expected)
	}
}

func TestAuthorInfo_Signature(t *testing.T) {
	b := app(le64(0), "skwas", 0, "desc", 0, 0xDE, 0xAD)
	var c AuthorInfo
	n, err := c.ReadFrom(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("read: %s", err)
	}
	if n != int64(len(b)) {
		t.Errorf("expected %d bytes read, got %d", len(b), n)
	}
	if c.Author != "skwas" || c.Description != "desc" || !bytes.Equal(c.Signature, []byte{0xDE, 0xAD}) {
		t.Errorf("unexpected chunk %+v", c)
	}
	if out := encodeChunk(t, &c); !bytes.Equal(out, b) {
		t.Errorf("round trip mismatch:\n% x\n% x", out, b)
	}
}

func TestController_Encode(t *testing.T) {
	c := &Controller{ID: 456, ParentID: 123, Name: "Some Name"}
	expected := app(le64(456), le64(123), "Some Name", 0)
	if b := encodeChunk(t, c); !bytes.Equal(b, expected) {
		t.Errorf("unexpected bytes:\n% x\n% x", b, expected)
	}
}

func TestChunk_WriteNullString(t *testing.T) {
	c := &Label{Text: "a\x00b"}
	if _, err := c.WriteTo(io.Discard); !errors.Is(err, errStringNull) {
		t.Errorf("expected errStringNull, got %v", err)
	}
}

func triangle() mesh.Mesh {
	return mesh.Mesh{
		Vertices:           []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		VertexIndices:      []uint16{0, 1, 2},
		MaterialIndices:    []uint8{0},
		TextureCoordinates: []mgl32.Vec2{{0, 0}},
		UVMaps:             []mesh.UVMap{{Channel: mesh.PrimaryChannel, TextureIndices: []uint16{0, 0, 0}}},
	}
}

func TestChunks_RoundTrip(t *testing.T) {
	created := time.Date(2010, 4, 1, 12, 30, 0, 0, time.UTC)
	chunks := []Chunk{
		&Model{ID: 1, Mesh: triangle()},
		&Material{
			ID:               2,
			Opacity:          255,
			Diffuse:          color.RGBA{R: 10, G: 20, B: 30, A: 255},
			Specular:         color.RGBA{R: 1, G: 2, B: 3, A: 4},
			SpecularStrength: 5,
			Glossiness:       6,
			Emission:         7,
			Flags:            8,
			Textured:         true,
			CreationTime:     created,
			Texture:          "wall.png",
		},
		&Material{ID: 3, Opacity: 128},
		&EmbeddedImage{ID: 4, Bytes: []byte("\x89PNG")},
		&NodeLink{ID: 5, ParentID: 1, Translation: mgl32.Vec3{1, 2, 3}, Rotation: mgl32.Vec3{0, 90, 0}},
		&Label{ParentID: 5, Text: "door"},
		&Controller{ID: 6, ParentID: 5, Name: "Camera"},
		&Placement{ID: 7, ParentID: 5, TargetID: 1, Position: mgl32.Vec3{4, 5, 6}},
		&TextureMap{ID: 8, ParentID: 2, MapChannel: 1, Attributes: 0x11, CreationTime: created, MapType: "diffuse", Texture: "wall.png"},
		&S3DSettings{Bytes: []byte{1, 2, 3}},
		&AuthorInfo{Author: "skwas"},
		&Index{Entries: []IndexEntry{{ID: 1, Offset: 16}, {ID: 2, Offset: 100}}},
		&Eof{},
		&BodyParts{Names: []string{"head", "torso"}},
		&BodyParts2{ParentID: 1, Parts: []uint8{0, 1, 1}},
		&BoneInfluences{ParentID: 1, Influences: []BoneInfluence{
			{Bones: [4]uint8{0, 1, 0, 0}, Weights: [4]float32{0.25, 0.75, 0, 0}},
		}},
	}
	for _, c := range chunks {
		b := encodeChunk(t, c)
		out := DefaultRegistry.New(c.Magic())
		if out == nil {
			t.Fatalf("%s: not registered", c.Magic())
		}
		n, err := out.ReadFrom(bytes.NewReader(b))
		if err != nil {
			t.Errorf("%s: read: %s", c.Magic(), err)
			continue
		}
		if n != int64(len(b)) {
			t.Errorf("%s: expected %d bytes read, got %d", c.Magic(), len(b), n)
		}
		if !reflect.DeepEqual(c, out) {
			t.Errorf("%s: round trip mismatch:\n%+v\n%+v", c.Magic(), c, out)
		}
	}
}

func TestChunks_Truncated(t *testing.T) {
	tests := []struct {
		chunk Chunk
		b     []byte
	}{
		{&NodeLink{}, app(le64(1), le64(2), f32(1))},
		{&Label{}, app(le64(1), "no terminator")},
		{&BodyParts{}, app(le32(1000), "a", 0)},
		{&BoneInfluences{}, app(le64(1), le32(2), make([]byte, 20))},
		{&Index{}, app(le64(1), le32(16), 1)},
	}
	for _, test := range tests {
		if _, err := test.chunk.ReadFrom(bytes.NewReader(test.b)); err == nil {
			t.Errorf("%s: expected error", test.chunk.Magic())
		}
	}

	if _, err := (&BodyParts{}).ReadFrom(bytes.NewReader(le32(-1))); !errors.As(err, new(errNegativeCount)) {
		t.Errorf("expected errNegativeCount, got %v", err)
	}
}
