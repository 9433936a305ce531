package statemachine

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"testing"

	"github.com/skwas/datfile/field"
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

func le32(v int32) []byte {
	return binary.LittleEndian.AppendUint32(nil, uint32(v))
}

func sample() *Graph {
	return &Graph{Entries: []Entry{
		{Index: 0, Name: "Idle", Conditions: []Condition{
			{GotoEntry: 1, Type: 2, Expression: "time > 5", Value: "1", Actions: []Action{
				{Name: "Play", Value: "walk"},
				{Name: "Sound", Value: "step"},
			}},
			{GotoEntry: 0, Type: 0, Expression: "", Value: ""},
		}},
		{Index: 1, Name: "Walk"},
		{Index: 2, Name: "Run", Conditions: []Condition{
			{GotoEntry: 0, Type: 1, Expression: "stop", Value: "", Actions: []Action{{Name: "Reset"}}},
		}},
	}}
}

func TestGraph_Encode(t *testing.T) {
	g := &Graph{Entries: []Entry{
		{Index: 3, Name: "A", Conditions: []Condition{
			{GotoEntry: 4, Type: 5, Expression: "x", Value: "y", Actions: []Action{{Name: "n", Value: "v"}}},
		}},
	}}
	w := field.NewWriter()
	if err := g.Encode(w); err != nil {
		t.Fatalf("encode: %s", err)
	}
	expected := app(
		"Entr", le32(3), "A", 0,
		"Cond", le32(4), le32(5), "x", 0, "y", 0,
		"Actn", "n", 0, "v", 0,
	)
	if !bytes.Equal(w.Bytes(), expected) {
		t.Fatalf("unexpected bytes:\n% x\n% x", w.Bytes(), expected)
	}
}

func TestGraph_RoundTrip(t *testing.T) {
	g := sample()
	w := field.NewWriter()
	if err := g.Encode(w); err != nil {
		t.Fatalf("encode: %s", err)
	}
	r := field.NewReader(w.Bytes())
	out, err := Decode(r)
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	if r.Len() != 0 {
		t.Errorf("expected all bytes consumed, %d remain", r.Len())
	}
	if !reflect.DeepEqual(g, out) {
		t.Errorf("round trip mismatch:\n%+v\n%+v", g, out)
	}
}

func TestGraph_Empty(t *testing.T) {
	g, err := Decode(field.NewReader(nil))
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	if len(g.Entries) != 0 {
		t.Errorf("expected no entries, got %d", len(g.Entries))
	}
}

func TestGraph_UnexpectedTag(t *testing.T) {
	b := app("Entr", le32(0), "A", 0, "Junk")
	_, err := Decode(field.NewReader(b))
	var tag ErrUnexpectedTag
	if !errors.As(err, &tag) {
		t.Fatalf("expected ErrUnexpectedTag, got %v", err)
	}
	var derr field.DataError
	if !errors.As(err, &derr) || derr.Offset != 10 {
		t.Errorf("unexpected offset in %v", err)
	}

	// An action tag after an entry does not belong to any condition.
	b = app("Entr", le32(0), "A", 0, "Actn", "n", 0, "v", 0)
	if _, err := Decode(field.NewReader(b)); !errors.As(err, &tag) {
		t.Errorf("expected ErrUnexpectedTag, got %v", err)
	}
}

func TestGraph_Truncated(t *testing.T) {
	b := app("Entr", le32(0), "A", 0, "Cond", le32(1))
	if _, err := Decode(field.NewReader(b)); err == nil {
		t.Fatal("expected error for truncated condition")
	}
}

func TestGraph_TagsConsumed(t *testing.T) {
	// Each tag is consumed exactly once, so a condition or action ends where
	// the next tag begins.
	b := app(
		"Entr", le32(0), "A", 0,
		"Cond", le32(1), le32(2), "e", 0, "v", 0,
		"Actn", "n", 0, "", 0,
		"Actn", "m", 0, "w", 0,
		"Cond", le32(3), le32(4), "", 0, "", 0,
	)
	r := field.NewReader(b)
	g, err := Decode(r)
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	if r.Len() != 0 {
		t.Errorf("%d bytes left unread", r.Len())
	}
	expected := &Graph{Entries: []Entry{
		{Index: 0, Name: "A", Conditions: []Condition{
			{GotoEntry: 1, Type: 2, Expression: "e", Value: "v", Actions: []Action{
				{Name: "n"},
				{Name: "m", Value: "w"},
			}},
			{GotoEntry: 3, Type: 4},
		}},
	}}
	if !reflect.DeepEqual(g, expected) {
		t.Errorf("unexpected graph %+v", g)
	}

	// A trailing action tag with no action data fails.
	b = app("Entr", le32(0), "A", 0, "Cond", le32(1), le32(2), "", 0, "", 0, "Actn")
	if _, err := Decode(field.NewReader(b)); err == nil {
		t.Error("expected error for truncated action")
	}
}

func TestCodec_Field(t *testing.T) {
	s := field.MustSchema("StateMachineCtl", field.Named,
		field.Field{Name: "Graph", Type: Type},
	)
	rec := field.NewRecord(s)
	rec.Set("Graph", sample())

	b, err := field.DefaultEngine.Encode(rec)
	if err != nil {
		t.Fatalf("encode: %s", err)
	}
	out, err := field.DefaultEngine.Decode(b, s)
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	if v, _ := out.Get("Graph"); !reflect.DeepEqual(v, sample()) {
		t.Errorf("round trip mismatch: %+v", v)
	}

	rec.Set("Graph", "not a graph")
	var verr field.ValueTypeError
	if _, err := field.DefaultEngine.Encode(rec); !errors.As(err, &verr) {
		t.Errorf("expected ValueTypeError, got %v", err)
	}
}
