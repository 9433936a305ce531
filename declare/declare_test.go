package declare_test

import (
	"bytes"
	"fmt"
	"image/color"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/skwas/datfile/dat"
	. "github.com/skwas/datfile/declare"
	"github.com/skwas/datfile/errors"
	"github.com/skwas/datfile/field"
	"github.com/skwas/datfile/mesh"
	"github.com/skwas/datfile/schema"
)

func Example() {
	c, err := Container{
		Node(Ref("root"), Label("root"),
			Controller("Camera", Field("Fov", 60), Field("Near", 0.1), Field("Far", 500)),
			Place("hull", Translation(0, 2, 0)),
		),
		Model(mesh.Mesh{}, Ref("hull")),
	}.Declare()
	if err != nil {
		fmt.Println(err)
		return
	}
	for _, chunk := range c.Chunks {
		switch chunk := chunk.(type) {
		case *dat.Placement:
			fmt.Printf("%T %d -> %d\n", chunk, chunk.ID, chunk.TargetID)
		case dat.IDChunk:
			fmt.Printf("%T %d\n", chunk, chunk.ChunkID())
		default:
			fmt.Printf("%T\n", chunk)
		}
	}
	// Output:
	// *dat.NodeLink 1
	// *dat.Label
	// *dat.Controller 2
	// *dat.ControllerData
	// *dat.Placement 3 -> 4
	// *dat.Model 4
}

func TestDeclare(t *testing.T) {
	c, err := Container{
		FileType(1),
		Material(ID(10), Diffuse(255, 0, 0), Texture("hull.dds")),
		Node(Ref("root"), Translation(0, 1, 0),
			Controller("Camera", Profile(schema.SH5), Field("Fov", 60), Field("Near", 0.1), Field("Far", 500)),
			Node(Label("child"), Rotation(0, 90, 0)),
		),
		Author("skwas", "A declared file"),
	}.Declare()
	if err != nil {
		t.Fatal(err)
	}
	if c.FileType != 1 {
		t.Errorf("unexpected file type %d", c.FileType)
	}
	if len(c.Chunks) != 7 {
		t.Fatalf("expected 7 chunks, got %d", len(c.Chunks))
	}

	m, ok := c.Chunks[0].(*dat.Material)
	if !ok || m.ID != 10 || m.Diffuse != (color.RGBA{R: 255, A: 255}) || !m.Textured || m.Texture != "hull.dds" {
		t.Errorf("unexpected material %+v", c.Chunks[0])
	}
	root, ok := c.Chunks[1].(*dat.NodeLink)
	if !ok || root.ID != 1 || root.ParentID != 0 || root.Translation != (mgl32.Vec3{0, 1, 0}) {
		t.Errorf("unexpected root %+v", c.Chunks[1])
	}
	if ctl, ok := c.Chunks[2].(*dat.Controller); !ok || ctl.ID != 2 || ctl.ParentID != 1 || ctl.Name != "Camera" {
		t.Errorf("unexpected controller %+v", c.Chunks[2])
	}
	child, ok := c.Chunks[4].(*dat.NodeLink)
	if !ok || child.ID != 3 || child.ParentID != 1 {
		t.Errorf("unexpected child %+v", c.Chunks[4])
	}
	if l, ok := c.Chunks[5].(*dat.Label); !ok || l.ParentID != 3 || l.Text != "child" {
		t.Errorf("unexpected label %+v", c.Chunks[5])
	}

	// The declared container must survive encoding.
	var buf bytes.Buffer
	if err := (dat.Encoder{}).Encode(&buf, c); err != nil {
		t.Fatalf("encode: %s", err)
	}
	d, warn, err := dat.Decoder{}.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil || warn != nil {
		t.Fatalf("decode: %v, %v", err, warn)
	}
	for _, data := range d.Controllers() {
		v, err := data.Value()
		if err != nil {
			t.Fatalf("resolve: %s", err)
		}
		if fov, _ := v.Record.Get("Fov"); fov != float32(60) {
			t.Errorf("unexpected Fov %v", fov)
		}
		if far, _ := v.Record.Get("Far"); far != float32(500) {
			t.Errorf("unexpected Far %v", far)
		}
	}
}

func TestDeclare_Errors(t *testing.T) {
	tests := []struct {
		name string
		decl Container
		err  error
	}{
		{"duplicate id", Container{Node(ID(4)), Node(ID(4))}, ErrDuplicateID},
		{"duplicate ref", Container{Node(Ref("a")), Node(Ref("a"))}, ErrDuplicateRef},
		{"unknown ref", Container{Node(Place("missing"))}, ErrUnknownRef},
		{"unknown field", Container{Node(Controller("Camera", Field("Zoom", 1)))}, field.ErrUnknownField},
	}
	for _, tt := range tests {
		_, err := tt.decl.Declare()
		if !errors.Is(err, tt.err) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.err, err)
		}
	}

	if _, err := (Container{Node(Controller("Camera", Field("Fov", "wide")))}).Declare(); !errors.As(err, &field.ValueTypeError{}) {
		t.Errorf("expected value type error, got %v", err)
	}
	if _, err := (Container{Node(Controller("NoSuchController"))}).Declare(); err == nil {
		t.Error("expected error for unknown controller")
	}
}

func TestDeclare_AutoID(t *testing.T) {
	// Auto ids skip ids that are declared explicitly, even later ones.
	c, err := Container{Node(), Node(ID(2)), Node()}.Declare()
	if err != nil {
		t.Fatal(err)
	}
	var ids []uint64
	for _, chunk := range c.Chunks {
		ids = append(ids, chunk.(*dat.NodeLink).ID)
	}
	if fmt.Sprint(ids) != "[1 2 3]" {
		t.Errorf("unexpected ids %v", ids)
	}
}

func TestField_Values(t *testing.T) {
	key := field.MustSchema("Key", field.Raw,
		field.Field{Name: "Time", Type: field.Float32},
		field.Field{Name: "Value", Type: field.Vec3},
	)
	s := field.MustSchema("Values", field.Named,
		field.Field{Name: "Int", Type: field.Int16},
		field.Field{Name: "Vec", Type: field.Vec3},
		field.Field{Name: "Color", Type: field.Color},
		field.Field{Name: "Time", Type: field.DateTime},
		field.Field{Name: "Name", Type: field.String},
		field.Field{Name: "Flag", Type: field.Bool},
		field.Field{Name: "Maybe", Type: field.OptionalOf(field.Uint32), Optional: true},
		field.Field{Name: "Points", Type: field.ListOf(field.Vec2)},
		field.Field{Name: "Either", Type: field.UnionOf(field.Bool, field.String)},
		field.Field{Name: "Keys", Type: field.ListOf(field.RecordOf(key))},
	)
	rec, err := Record(
		Field("Int", 7.0),
		Field("Vec", 1, 2, 3),
		Field("Color", 10, 20, 30),
		Field("Time", 86400),
		Field("Name", []byte("name")),
		Field("Flag", true),
		Field("Maybe"),
		Field("Points", []interface{}{1, 2}, mgl32.Vec2{3, 4}),
		Field("Either", "text"),
		Field("Keys", Record(Field("Time", 0.5), Field("Value", mgl32.Vec3{1, 1, 1}))),
	).Declare(s)
	if err != nil {
		t.Fatal(err)
	}

	expect := map[string]interface{}{
		"Int":   int16(7),
		"Vec":   mgl32.Vec3{1, 2, 3},
		"Color": color.RGBA{R: 10, G: 20, B: 30, A: 255},
		"Time":  time.Unix(86400, 0).UTC(),
		"Name":  "name",
		"Flag":  true,
		"Maybe": nil,
	}
	for name, want := range expect {
		got, _ := rec.Get(name)
		if got != want {
			t.Errorf("%s: expected %v, got %v", name, want, got)
		}
	}
	points, _ := rec.Get("Points")
	if fmt.Sprint(points) != "[[1 2] [3 4]]" {
		t.Errorf("unexpected points %v", points)
	}
	if u, _ := rec.Get("Either"); u != (field.UnionValue{Index: 1, Value: "text"}) {
		t.Errorf("unexpected union %v", u)
	}
	keys, _ := rec.Get("Keys")
	list, ok := keys.([]interface{})
	if !ok || len(list) != 1 {
		t.Fatalf("unexpected keys %v", keys)
	}
	if v, _ := list[0].(*field.Record).Get("Time"); v != float32(0.5) {
		t.Errorf("unexpected key time %v", v)
	}
}
