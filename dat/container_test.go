package dat

import (
	"bytes"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/skwas/datfile/controller"
	"github.com/skwas/datfile/errors"
	"github.com/skwas/datfile/schema"
)

func fileHeader() []byte {
	return app(binaryLE32(FileMagic), le32(0), make([]byte, 8))
}

func binaryLE32(v uint32) []byte { return le32(int32(v)) }

func rawChunk(m Magic, sub int32, payload ...interface{}) []byte {
	p := app(payload...)
	return app(binaryLE32(uint32(m)), le32(sub), le32(int32(len(p))), p)
}

func named(name string, fields ...[]byte) []byte {
	body := app(name, 0)
	for _, f := range fields {
		body = append(body, f...)
	}
	return app(le32(int32(len(body))), body)
}

func nf(name string, payload []byte) []byte {
	return app(le32(int32(len(name)+1+len(payload))), name, 0, payload)
}

func cameraPayload(fov float32) []byte {
	return named("Camera",
		nf("Fov", f32(fov)),
		nf("Near", f32(0.5)),
		nf("Far", f32(1000)),
	)
}

func nodeLinkPayload(id, parent uint64) []byte {
	return app(le64(id), le64(parent), f32(1, 2, 3), f32(0, 0, 0))
}

// seekBuffer is an in-memory io.WriteSeeker.
type seekBuffer struct {
	b   []byte
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	if end := s.pos + len(p); end > len(s.b) {
		s.b = append(s.b, make([]byte, end-len(s.b))...)
	}
	copy(s.b[s.pos:], p)
	s.pos += len(p)
	return len(p), nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	pos := int64(s.pos)
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos += offset
	case io.SeekEnd:
		pos = int64(len(s.b)) + offset
	}
	if pos < 0 {
		return 0, errors.New("negative position")
	}
	s.pos = int(pos)
	return pos, nil
}

func rawData(t *testing.T, payload []byte) *ControllerData {
	t.Helper()
	d := &ControllerData{}
	if _, err := d.ReadFrom(bytes.NewReader(payload)); err != nil {
		t.Fatalf("read controller data: %s", err)
	}
	return d
}

func encode(t *testing.T, c *Container) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := (Encoder{}).Encode(&buf, c); err != nil {
		t.Fatalf("encode: %s", err)
	}
	return buf.Bytes()
}

func decode(t *testing.T, b []byte) *Container {
	t.Helper()
	c, warn, err := Decoder{}.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	if warn != nil {
		t.Fatalf("unexpected warnings: %s", warn)
	}
	return c
}

func TestEncoder_Layout(t *testing.T) {
	c := &Container{}
	c.Add(
		&NodeLink{ID: 1, Translation: mgl32.Vec3{1, 2, 3}},
		&Label{ParentID: 1, Text: "root"},
	)
	expected := app(
		fileHeader(),
		rawChunk(MagicNodeLink, 0, nodeLinkPayload(1, 0)),
		rawChunk(MagicLabel, 0, le64(1), "root", 0),
		rawChunk(MagicIndex, 0, le64(1), le32(16)),
		rawChunk(MagicEof, 0),
	)
	if b := encode(t, c); !bytes.Equal(b, expected) {
		t.Errorf("unexpected bytes:\n% x\n% x", b, expected)
	}

	// Backpatched sizes produce the same bytes.
	var sb seekBuffer
	if err := (Encoder{}).Encode(&sb, c); err != nil {
		t.Fatalf("encode: %s", err)
	}
	if !bytes.Equal(sb.b, expected) {
		t.Errorf("unexpected bytes:\n% x\n% x", sb.b, expected)
	}
}

func TestEncoder_Reserved(t *testing.T) {
	c := &Container{Chunks: []Chunk{&Eof{}}}
	err := (Encoder{}).Encode(io.Discard, c)
	if !errors.Is(err, ErrReservedChunk) {
		t.Errorf("expected ErrReservedChunk, got %v", err)
	}
	if err := (Encoder{}).Encode(io.Discard, nil); !errors.Is(err, ErrNilContainer) {
		t.Errorf("expected ErrNilContainer, got %v", err)
	}
}

func sampleContainer(t *testing.T) *Container {
	c := &Container{FileType: 2, Settings: NewS3DSettings()}
	c.Settings.Bytes = []byte("settings")
	c.Add(
		&Model{ID: 1, Mesh: triangle()},
		&NodeLink{ID: 2, ParentID: 1},
		&Label{ParentID: 2, Text: "hinge"},
	)
	c.AddController(&Controller{ID: 3, ParentID: 2, Name: "Camera"}, rawData(t, cameraPayload(60)))
	c.Add(
		&Placement{ID: 4, ParentID: 2, TargetID: 1},
		&AuthorInfo{Author: "skwas", Description: "My description"},
	)
	return c
}

func TestContainer_RoundTrip(t *testing.T) {
	b := encode(t, sampleContainer(t))
	c := decode(t, b)
	if c.FileType != 2 {
		t.Errorf("unexpected file type %d", c.FileType)
	}
	if c.Settings == nil || c.Settings.SubType() != S3DSettingsSubType || string(c.Settings.Bytes) != "settings" {
		t.Errorf("unexpected settings %+v", c.Settings)
	}
	if len(c.Chunks) != 7 {
		t.Fatalf("expected 7 chunks, got %d", len(c.Chunks))
	}
	if out := encode(t, c); !bytes.Equal(out, b) {
		t.Errorf("round trip mismatch:\n% x\n% x", out, b)
	}
}

func TestContainer_Lookup(t *testing.T) {
	c := sampleContainer(t)
	if ch, ok := c.ChunkByID(2).(*NodeLink); !ok || ch.ParentID != 1 {
		t.Errorf("unexpected chunk %v", c.ChunkByID(2))
	}
	if c.ChunkByID(99) != nil {
		t.Error("expected no chunk")
	}
	children := c.Children(2)
	if len(children) != 3 {
		t.Fatalf("expected 3 children, got %d", len(children))
	}
	if _, ok := children[0].(*Label); !ok {
		t.Errorf("unexpected first child %T", children[0])
	}

	var n int
	for ctl, data := range c.Controllers() {
		n++
		if ctl.ID != 3 || data.Decoded() {
			t.Errorf("unexpected pair %+v", ctl)
		}
	}
	if n != 1 {
		t.Errorf("expected 1 controller, got %d", n)
	}
}

func TestContainer_RebuildIndex(t *testing.T) {
	c := sampleContainer(t)
	index, err := c.RebuildIndex()
	if err != nil {
		t.Fatalf("rebuild: %s", err)
	}
	f, _, err := Decoder{}.decode(bytes.NewReader(encode(t, c)))
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	offsets := map[uint64]int64{}
	for _, e := range f.Entries {
		if ic, ok := e.Chunk.(IDChunk); ok {
			offsets[ic.ChunkID()] = e.Offset
		}
	}
	if len(index.Entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(index.Entries))
	}
	for _, e := range index.Entries {
		if offsets[e.ID] != int64(e.Offset) {
			t.Errorf("entry %d: expected offset %d, got %d", e.ID, offsets[e.ID], e.Offset)
		}
	}
	if len(f.Index.Entries) != len(index.Entries) {
		t.Errorf("stored index differs from rebuilt index")
	}
}

func TestDecoder_Header(t *testing.T) {
	_, _, err := Decoder{}.Decode(bytes.NewReader(app(le32(7), make([]byte, 12))))
	if !errors.Is(err, ErrInvalidHeader) {
		t.Errorf("expected ErrInvalidHeader, got %v", err)
	}
	_, _, err = Decoder{}.Decode(bytes.NewReader(fileHeader()[:10]))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("expected io.ErrUnexpectedEOF, got %v", err)
	}

	b := app(binaryLE32(FileMagic), le32(0), 1, 0, 0, 0, 0, 0, 0, 0, rawChunk(MagicEof, 0))
	_, warn, err := Decoder{}.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	if !errors.As(warn, new(errReserve)) {
		t.Errorf("expected reserve warning, got %v", warn)
	}
}

func TestDecoder_StructuralErrors(t *testing.T) {
	tests := []struct {
		name   string
		b      []byte
		cause  error
		index  int
		offset int64
	}{
		{"negative size", app(fileHeader(), le32(4), le32(0), le32(-1)), ErrNegativeSize, 0, 16},
		{"bounds", app(fileHeader(), le32(4), le32(0), le32(100), make([]byte, 10)), ErrChunkBounds, 0, 16},
		{"truncated header", app(fileHeader(), rawChunk(MagicEof+99, 0), 1, 2), ErrTruncatedHeader, 1, 28},
		{"unparsed", app(fileHeader(), rawChunk(MagicNodeLink, 0, nodeLinkPayload(1, 0), 0, 0)), ErrUnparsedData, 0, 16},
		{"too much", app(fileHeader(), rawChunk(MagicNodeLink, 0, le64(1), le64(0))), ErrTooMuchData, 0, 16},
	}
	for _, test := range tests {
		_, _, err := Decoder{}.Decode(bytes.NewReader(test.b))
		if !errors.Is(err, test.cause) {
			t.Errorf("%s: expected %v, got %v", test.name, test.cause, err)
			continue
		}
		var serr StructuralError
		if !errors.As(err, &serr) {
			t.Errorf("%s: expected StructuralError, got %T", test.name, err)
			continue
		}
		if serr.Index != test.index || serr.Offset != test.offset {
			t.Errorf("%s: expected #%d at %d, got #%d at %d", test.name, test.index, test.offset, serr.Index, serr.Offset)
		}
	}

	// The data error reports where parsing stopped.
	b := app(fileHeader(), rawChunk(MagicNodeLink, 0, nodeLinkPayload(1, 0), 0, 0))
	_, _, err := Decoder{}.Decode(bytes.NewReader(b))
	var derr DataError
	if !errors.As(err, &derr) || derr.Offset != 16+12+40 {
		t.Errorf("expected data error at 68, got %v", err)
	}
}

func TestDecoder_Lenient(t *testing.T) {
	b := app(
		fileHeader(),
		rawChunk(MagicLabel, 0, le64(1), "root", 0, 0, 0, 0),
		rawChunk(77, 3, "opaque"),
		rawChunk(MagicEof, 0),
	)
	c, warn, err := Decoder{}.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	if !errors.Is(warn, ErrUnparsedData) {
		t.Errorf("expected trailing data warning, got %v", warn)
	}
	if !errors.Is(warn, ErrUnknownMagic) {
		t.Errorf("expected unknown magic warning, got %v", warn)
	}
	if l, ok := c.Chunks[0].(*Label); !ok || l.Text != "root" {
		t.Errorf("unexpected label %+v", c.Chunks[0])
	}
	u, ok := c.Chunks[1].(*Unknown)
	if !ok || u.Kind != 77 || u.SubType() != 3 || string(u.Bytes) != "opaque" {
		t.Fatalf("unexpected unknown chunk %+v", c.Chunks[1])
	}

	// Unknown chunks are written back as is.
	out := encode(t, c)
	if !bytes.Contains(out, rawChunk(77, 3, "opaque")) {
		t.Error("expected unknown chunk to be preserved")
	}

	if _, _, err := (Decoder{Strict: true}).Decode(bytes.NewReader(b)); !errors.Is(err, ErrUnknownMagic) {
		t.Errorf("expected strict decode to fail, got %v", err)
	}
}

func TestDecoder_Warnings(t *testing.T) {
	b := app(fileHeader(), rawChunk(MagicNodeLink, 0, nodeLinkPayload(1, 0)))
	c, warn, err := Decoder{}.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	if !errors.Is(warn, ErrMissingEof) || len(c.Chunks) != 1 {
		t.Errorf("expected missing eof warning, got %v", warn)
	}

	b = app(
		fileHeader(),
		rawChunk(MagicNodeLink, 0, nodeLinkPayload(1, 0)),
		rawChunk(MagicIndex, 0, le64(1), le32(999), le64(2), le32(16)),
		rawChunk(MagicEof, 0),
	)
	c, warn, err = Decoder{}.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	var ierr IndexError
	if !errors.As(warn, &ierr) || ierr.ID != 1 || ierr.Actual != 16 {
		t.Errorf("expected index warning, got %v", warn)
	}
	if !errors.Is(warn, ErrIndexMismatch) {
		t.Errorf("expected ErrIndexMismatch, got %v", warn)
	}
	for _, chunk := range c.Chunks {
		if _, ok := chunk.(*Index); ok {
			t.Error("index chunk should not be kept")
		}
	}
}

func TestControllerData_Lazy(t *testing.T) {
	b := encode(t, sampleContainer(t))
	c := decode(t, b)
	var data *ControllerData
	for _, d := range c.Controllers() {
		data = d
	}
	if data == nil {
		t.Fatal("expected controller data")
	}
	if data.Decoded() || data.Hint() != "Camera" {
		t.Fatalf("unexpected state: decoded %t, hint %q", data.Decoded(), data.Hint())
	}
	if !bytes.Equal(data.Raw(), cameraPayload(60)) {
		t.Errorf("unexpected raw bytes % x", data.Raw())
	}

	v, err := data.Value()
	if err != nil {
		t.Fatalf("value: %s", err)
	}
	if v.Profile != schema.SH5 || v.Name != "Camera" {
		t.Errorf("unexpected controller %+v", v)
	}
	if !data.Decoded() {
		t.Error("expected data to be decoded")
	}
	if out := encode(t, c); !bytes.Equal(out, b) {
		t.Errorf("decoded controller changed bytes:\n% x\n% x", out, b)
	}

	v.Record.Set("Fov", float32(90))
	out := encode(t, c)
	if !bytes.Contains(out, cameraPayload(90)) {
		t.Error("expected modified record to be written")
	}
}

func TestControllerData_Unresolved(t *testing.T) {
	payload := named("Camera", nf("Zoom", f32(1)))
	c := &Container{}
	c.AddController(&Controller{ID: 1, Name: "Camera"}, rawData(t, payload))
	b := encode(t, c)

	out := decode(t, b)
	data := out.Chunks[1].(*ControllerData)
	_, err := data.Value()
	var rerr controller.ResolutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
	if _, err2 := data.Value(); err2 == nil {
		t.Error("expected memoized error")
	}
	var cerr ControllerError
	if err := out.ResolveControllers(); !errors.As(err, &cerr) || cerr.ID != 1 || cerr.Name != "Camera" {
		t.Errorf("expected ControllerError for controller 1, got %v", err)
	}
	if e := encode(t, out); !bytes.Equal(e, b) {
		t.Errorf("unresolved controller changed bytes:\n% x\n% x", e, b)
	}

	_, warn, err := Decoder{Resolve: true}.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	if warns := errors.List(warn); len(warns) != 1 || !errors.As(warns[0], &cerr) || cerr.ID != 1 {
		t.Errorf("expected one ControllerError warning, got %v", warn)
	}
	if _, _, err := (Decoder{Resolve: true, Strict: true}).Decode(bytes.NewReader(b)); !errors.As(err, &cerr) {
		t.Errorf("expected strict decode to fail, got %v", err)
	}
}

func TestControllerData_Concurrent(t *testing.T) {
	d := rawData(t, cameraPayload(45))
	d.Bind("Camera", nil)
	values := make([]*controller.Controller, 8)
	var wg sync.WaitGroup
	for i := range values {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := d.Value()
			if err != nil {
				t.Error(err)
			}
			values[i] = v
		}(i)
	}
	wg.Wait()
	for _, v := range values[1:] {
		if v != values[0] {
			t.Fatal("expected every call to return the same value")
		}
	}
}

func TestControllerData_SetValue(t *testing.T) {
	ctl, err := controller.DefaultResolver.New(schema.SH5, "Camera")
	if err != nil {
		t.Fatal(err)
	}
	ctl.Record.Set("Fov", float32(60))
	ctl.Record.Set("Near", float32(0.5))
	ctl.Record.Set("Far", float32(1000))

	c := &Container{}
	c.AddController(&Controller{ID: 1, Name: "Camera"}, NewControllerData(ctl))
	b := encode(t, c)
	if !bytes.Contains(b, rawChunk(MagicController, 0, cameraPayload(60))) {
		t.Error("expected encoded record")
	}
}

func TestDecoder_Dump(t *testing.T) {
	var buf bytes.Buffer
	c := sampleContainer(t)
	c.Add(&Unknown{Kind: 77, Bytes: []byte("opaque")})
	b := encode(t, c)
	if _, err := (Decoder{}).Dump(&buf, bytes.NewReader(b)); err != nil {
		t.Fatalf("dump: %s", err)
	}
	s := buf.String()
	for _, sub := range []string{"NodeLink", "\"hinge\"", "Camera (named)", "Fov: 60", "blake2b", "<unknown chunk magic>", "Eof"} {
		if !strings.Contains(s, sub) {
			t.Errorf("dump does not contain %q", sub)
		}
	}
}
