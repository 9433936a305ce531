package errors

import (
	"io"
	"testing"
)

func TestUnion(t *testing.T) {
	a := New("a")
	b := New("b")
	if err := Union(nil, Errors{}, nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	err := Union(a, nil, Errors{b, nil})
	list := List(err)
	if len(list) != 2 || list[0] != a || list[1] != b {
		t.Fatalf("unexpected list %v", list)
	}
	if s := err.Error(); s != "multiple errors:\n\ta\n\tb" {
		t.Errorf("unexpected message %q", s)
	}
}

func TestErrors_Is(t *testing.T) {
	err := Errors{New("x"), io.ErrUnexpectedEOF}.Return()
	if !Is(err, io.ErrUnexpectedEOF) {
		t.Error("expected list to match contained error")
	}
	if Is(err, io.EOF) {
		t.Error("unexpected match")
	}
	if List(nil) != nil {
		t.Error("expected empty list")
	}
	if l := List(io.EOF); len(l) != 1 || l[0] != io.EOF {
		t.Errorf("unexpected list %v", l)
	}
}
