package field

import (
	"errors"
	"testing"
)

func TestNewSchema_NotNullable(t *testing.T) {
	_, err := NewSchema("S", Named, Field{Name: "A", Type: Int32, Optional: true})
	if !errors.Is(err, ErrNotNullable) {
		t.Fatalf("expected ErrNotNullable, got %v", err)
	}

	if _, err := NewSchema("S", Named, Field{Name: "A", Type: OptionalOf(Int32), Optional: true}); err != nil {
		t.Errorf("unexpected error for optional wrapper: %s", err)
	}
	if _, err := NewSchema("S", Named, Field{Name: "A", Type: String, Optional: true}); err != nil {
		t.Errorf("unexpected error for optional string: %s", err)
	}
}

func TestNewSchema_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
		target error
	}{
		{"duplicate", []Field{{Name: "A", Type: Int8}, {Name: "a", Type: Int8}}, ErrDuplicateField},
		{"empty", []Field{{Name: "", Type: Int8}}, ErrEmptyName},
	}
	for _, tt := range tests {
		_, err := NewSchema("S", Raw, tt.fields...)
		if !errors.Is(err, tt.target) {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.target, err)
		}
	}

	bad := [][]Field{
		{{Name: "A", Type: nil}},
		{{Name: "A", Type: ArrayOf(String)}},
		{{Name: "A", Type: FixedString(0)}},
		{{Name: "A", Type: ListOf(nil)}},
		{{Name: "A", Type: UnionOf(Int8, nil)}},
		{{Name: "A", Type: CustomOf("c", nil)}},
	}
	for i, fields := range bad {
		var serr SchemaError
		if _, err := NewSchema("S", Raw, fields...); !errors.As(err, &serr) {
			t.Errorf("#%d: expected SchemaError, got %v", i, err)
		}
	}
}

func TestSchema_Immutable(t *testing.T) {
	fields := []Field{{Name: "A", Type: Int8}}
	s := MustSchema("S", Raw, fields...)
	fields[0].Name = "B"
	if s.Field(0).Name != "A" {
		t.Error("schema changed after construction")
	}
	s.Fields()[0].Name = "C"
	if s.Field(0).Name != "A" {
		t.Error("schema changed through Fields")
	}
}

func TestType_String(t *testing.T) {
	tests := map[string]*Type{
		"int32":                        Int32,
		"list(optional(float32))":      ListOf(OptionalOf(Float32)),
		"array(vec3,4)":                FixedArrayOf(Vec3, 4),
		"union(string,fixedstring(8))": UnionOf(String, FixedString(8)),
		"Point":                        RecordOf(pointSchema),
	}
	for expected, typ := range tests {
		if s := typ.String(); s != expected {
			t.Errorf("expected %q, got %q", expected, s)
		}
	}
}

func TestRecord_SetUnknown(t *testing.T) {
	rec := NewRecord(pointSchema)
	if err := rec.Set("Z", int16(0)); !errors.Is(err, ErrUnknownField) {
		t.Errorf("expected ErrUnknownField, got %v", err)
	}
	rec.Set("X", int16(1))
	rec.Unset("x")
	if rec.IsSet("X") {
		t.Error("expected X to be unset")
	}
}
