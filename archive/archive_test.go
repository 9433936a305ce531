package archive

import (
	"bytes"
	"errors"
	"testing"
)

func sample() []byte {
	var b []byte
	for i := 0; i < 64; i++ {
		b = append(b, "\xEE\xFF\x06\x00chunk payload with repeated content "...)
		b = append(b, byte(i))
	}
	return b
}

func TestRoundTrip(t *testing.T) {
	in := sample()
	for _, m := range []Method{None, Zstd, LZ4} {
		c, err := Compress(m, in)
		if err != nil {
			t.Fatalf("%s: compress: %s", m, err)
		}
		if got := Detect(c); got != m {
			t.Errorf("%s: detected %s", m, got)
		}
		if m != None && len(c) >= len(in) {
			t.Errorf("%s: expected compression, got %d bytes from %d", m, len(c), len(in))
		}
		out, dm, err := Decompress(c)
		if err != nil {
			t.Fatalf("%s: decompress: %s", m, err)
		}
		if dm != m {
			t.Errorf("%s: decompressed as %s", m, dm)
		}
		if !bytes.Equal(out, in) {
			t.Errorf("%s: round trip mismatch", m)
		}
	}
}

func TestMethodOf(t *testing.T) {
	tests := map[string]Method{
		"model.dat":     None,
		"model.dat.zst": Zstd,
		"MODEL.DAT.LZ4": LZ4,
		"model":         None,
	}
	for path, m := range tests {
		if got := MethodOf(path); got != m {
			t.Errorf("%s: expected %s, got %s", path, m, got)
		}
	}
	for _, m := range []Method{None, Zstd, LZ4} {
		if got, err := ParseMethod(m.String()); err != nil || got != m {
			t.Errorf("%s: parse returned %s, %v", m, got, err)
		}
		if MethodOf("x"+m.Ext()) != m {
			t.Errorf("%s: extension does not round trip", m)
		}
	}
	if _, err := ParseMethod("gzip"); err == nil {
		t.Error("expected error for unknown method")
	}
}

func TestDecompress_Corrupt(t *testing.T) {
	if _, _, err := Decompress([]byte("DLZ4\x01")); !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
	if _, _, err := Decompress([]byte("DLZ4\xFF\xFF\xFF\xFF")); !errors.Is(err, ErrTooLarge) {
		t.Errorf("expected ErrTooLarge, got %v", err)
	}
	if _, _, err := Decompress(append([]byte{0x28, 0xB5, 0x2F, 0xFD}, 1, 2, 3)); err == nil {
		t.Error("expected zstd error")
	}
}
