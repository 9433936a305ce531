package schema

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/skwas/datfile/field"
)

func TestProfile(t *testing.T) {
	for _, p := range Profiles {
		q, ok := ParseProfile(p.String())
		if !ok || q != p {
			t.Errorf("profile %s did not round trip", p)
		}
	}
	if p, ok := ParseProfile("sh4"); !ok || p != SH4 {
		t.Error("expected case-insensitive profile name")
	}
	if _, ok := ParseProfile("SH6"); ok {
		t.Error("unexpected profile SH6")
	}
}

func TestSplitHint(t *testing.T) {
	tests := []struct {
		hint    string
		profile Profile
		name    string
		ok      bool
	}{
		{"SH4:LightAnimation", SH4, "LightAnimation", true},
		{"sh3:Foo", SH3, "Foo", true},
		{"LightAnimation", 0, "LightAnimation", false},
		{"Other:Name", 0, "Other:Name", false},
	}
	for _, tt := range tests {
		p, name, ok := SplitHint(tt.hint)
		if p != tt.profile || name != tt.name || ok != tt.ok {
			t.Errorf("%q: got %v %q %v", tt.hint, p, name, ok)
		}
	}
}

func TestRegistry_Candidates(t *testing.T) {
	r := NewRegistry()
	s5 := field.MustSchema("Light", field.Named, field.Field{Name: "A", Type: field.Int32})
	s3 := field.MustSchema("Light", field.Raw, field.Field{Name: "A", Type: field.Int16})
	r.MustRegister(s3, SH3)
	r.MustRegister(s5, SH5)

	c := r.Candidates("light")
	if len(c) != 2 || c[0].Profile != SH5 || c[1].Profile != SH3 {
		t.Fatalf("unexpected candidates %+v", c)
	}
	if c[0].Schema != s5 || c[1].Schema != s3 {
		t.Error("unexpected candidate schemas")
	}

	if c := r.Candidates("SH3:Light"); len(c) != 1 || c[0].Schema != s3 {
		t.Errorf("expected only SH3 candidate, got %+v", c)
	}
	if c := r.Candidates("SH4:Light"); len(c) != 0 {
		t.Errorf("expected no SH4 candidate, got %+v", c)
	}
	if c := r.Candidates("Unknown"); c != nil {
		t.Errorf("expected no candidates, got %+v", c)
	}
	if r.Lookup(SH5, "LIGHT") != s5 {
		t.Error("lookup failed")
	}

	if err := r.Register(SH5, s5); !errors.Is(err, ErrRegistered) {
		t.Errorf("expected ErrRegistered, got %v", err)
	}
	if err := r.Register(Profile(9), s5); !errors.Is(err, ErrInvalidProfile) {
		t.Errorf("expected ErrInvalidProfile, got %v", err)
	}
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('A' + i))
			r.MustRegister(field.MustSchema(name, field.Raw), SH5)
			r.Candidates(name)
			r.Names()
		}(i)
	}
	wg.Wait()
	if r.Len() != 8 {
		t.Errorf("expected 8 names, got %d", r.Len())
	}
	names := r.Names()
	if names[0] != "A" || names[7] != "H" {
		t.Errorf("unexpected names %v", names)
	}
}

func TestParseType(t *testing.T) {
	point := field.RecordOf(field.MustSchema("Point", field.Raw))
	lookup := func(name string) *field.Type {
		if name == "Point" {
			return point
		}
		return nil
	}
	exprs := []string{
		"int32",
		"list(optional(float32))",
		"array(vec3,4)",
		"array(uint8)",
		"union(string,fixedstring(8))",
		"list(Point)",
		"optional(color)",
		"lstring",
		"datetime",
	}
	for _, expr := range exprs {
		typ, err := ParseType(expr, lookup)
		if err != nil {
			t.Errorf("%q: %s", expr, err)
			continue
		}
		if s := typ.String(); s != expr {
			t.Errorf("%q: parsed as %q", expr, s)
		}
	}

	if typ, err := ParseType(" List ( Int8 ) ", nil); err != nil || typ.String() != "list(int8)" {
		t.Errorf("unexpected result %v, %v", typ, err)
	}

	bad := []string{"", "list(", "list(int8", "fixedstring(x)", "union(int8)", "int8)", "Unknown", "array(int8,-1)"}
	for _, expr := range bad {
		var terr TypeExprError
		if _, err := ParseType(expr, lookup); !errors.As(err, &terr) {
			t.Errorf("%q: expected TypeExprError, got %v", expr, err)
		}
	}
}

const testManifest = `
types:
  - name: KeyFrame
    fields:
      - {name: Time, type: float32}
      - {name: Value, type: vec3}
controllers:
  - name: PositionAnimation
    profiles: [SH5, SH3]
    fields:
      - {name: Frames, type: list(KeyFrame)}
      - {name: Loop, type: optional(bool), optional: true}
  - name: RawThing
    mode: raw
    profiles: [SH4]
    fields:
      - {name: Data, type: blob}
`

type blobCodec struct{}

func (blobCodec) DecodeField(r *field.Reader) (interface{}, error) { return r.Rest(), nil }
func (blobCodec) EncodeField(w *field.Writer, v interface{}) error {
	return w.Write(v.([]byte))
}

func TestManifest_Register(t *testing.T) {
	m, err := ParseManifest([]byte(testManifest))
	if err != nil {
		t.Fatalf("parse: %s", err)
	}
	r := NewRegistry()
	custom := map[string]*field.Type{"blob": field.CustomOf("blob", blobCodec{})}
	if err := m.Register(r, custom); err != nil {
		t.Fatalf("register: %s", err)
	}

	if !reflect.DeepEqual(r.Names(), []string{"PositionAnimation", "RawThing"}) {
		t.Errorf("unexpected names %v", r.Names())
	}
	c := r.Candidates("PositionAnimation")
	if len(c) != 2 || c[0].Profile != SH5 || c[1].Profile != SH3 {
		t.Fatalf("unexpected candidates %+v", c)
	}
	s := c[0].Schema
	if s.Mode() != field.Named || s.Len() != 2 {
		t.Fatalf("unexpected schema %s %d", s.Mode(), s.Len())
	}
	frames := s.Field(0).Type
	if frames.Kind() != field.KindList || frames.Elem().Schema().Mode() != field.Raw {
		t.Errorf("unexpected frames type %s", frames)
	}
	if !s.Field(1).Optional {
		t.Error("expected Loop to be optional")
	}
	if r.Lookup(SH4, "RawThing").Mode() != field.Raw {
		t.Error("expected raw mode")
	}
}

func TestManifest_Invalid(t *testing.T) {
	invalid := []string{
		"controllers: [{name: A, fields: []}]",
		"controllers: [{name: A, profiles: [SH9], fields: []}]",
		"controllers: [{name: A, profiles: [SH5], fields: [{name: X}]}]",
		"other: 1",
		"types: [{name: '1bad', fields: []}]",
	}
	for _, src := range invalid {
		if _, err := ParseManifest([]byte(src)); err == nil {
			t.Errorf("%q: expected validation error", src)
		}
	}

	// Valid document, but the type is not declared.
	m, err := ParseManifest([]byte("controllers: [{name: A, profiles: [SH5], fields: [{name: X, type: Missing}]}]"))
	if err != nil {
		t.Fatalf("parse: %s", err)
	}
	var terr TypeExprError
	if err := m.Register(NewRegistry(), nil); !errors.As(err, &terr) {
		t.Errorf("expected TypeExprError, got %v", err)
	}

	// Optional value type.
	m, err = ParseManifest([]byte("controllers: [{name: A, profiles: [SH5], fields: [{name: X, type: int32, optional: true}]}]"))
	if err != nil {
		t.Fatalf("parse: %s", err)
	}
	if err := m.Register(NewRegistry(), nil); !errors.Is(err, field.ErrNotNullable) {
		t.Errorf("expected ErrNotNullable, got %v", err)
	}
}

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "controllers.yaml")
	if err := os.WriteFile(path, []byte(testManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("load: %s", err)
	}
	if len(m.Types) != 1 || len(m.Controllers) != 2 {
		t.Errorf("unexpected manifest %+v", m)
	}
	if _, err := LoadManifest(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}
