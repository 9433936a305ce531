// Package archive compresses and decompresses DAT files for distribution.
//
// Two methods are supported. Zstd data is a standard zstd frame. LZ4 data is
// the 4-byte signature "DLZ4", followed by the little-endian length of the
// uncompressed data and an LZ4 block.
package archive

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bkaradzic/go-lz4"
	"github.com/klauspost/compress/zstd"
)

// Method is a compression method.
type Method uint8

const (
	None Method = iota
	Zstd
	LZ4
)

func (m Method) String() string {
	switch m {
	case None:
		return "none"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	}
	return fmt.Sprintf("Method(%d)", uint8(m))
}

// Ext returns the file extension of the method, including the dot. None has
// no extension.
func (m Method) Ext() string {
	switch m {
	case Zstd:
		return ".zst"
	case LZ4:
		return ".lz4"
	}
	return ""
}

// ParseMethod returns the method whose name is s.
func ParseMethod(s string) (Method, error) {
	for _, m := range []Method{None, Zstd, LZ4} {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return None, fmt.Errorf("unknown compression method %q", s)
}

// MethodOf returns the method indicated by the extension of path.
func MethodOf(path string) Method {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return Zstd
	case ".lz4":
		return LZ4
	}
	return None
}

var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	lz4Magic  = []byte("DLZ4")
)

// MaxSize is the largest uncompressed size accepted by Decompress.
const MaxSize = 1 << 30

var (
	ErrUnknownMethod = errors.New("unknown compression method")
	ErrTooLarge      = errors.New("uncompressed size exceeds limit")
	ErrCorrupt       = errors.New("corrupt compressed data")
)

// Detect returns the method that compressed b, or None if b is not
// recognized as compressed data.
func Detect(b []byte) Method {
	switch {
	case bytes.HasPrefix(b, zstdMagic):
		return Zstd
	case bytes.HasPrefix(b, lz4Magic):
		return LZ4
	}
	return None
}

// Compress returns b compressed with m. None returns b as is.
func Compress(m Method, b []byte) ([]byte, error) {
	switch m {
	case None:
		return b, nil
	case Zstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(b, nil), nil
	case LZ4:
		if len(b) > MaxSize {
			return nil, ErrTooLarge
		}
		// The encoded block is prefixed with the uncompressed length.
		block, err := lz4.Encode(nil, b)
		if err != nil {
			return nil, fmt.Errorf("lz4: %w", err)
		}
		out := make([]byte, 0, len(lz4Magic)+len(block))
		out = append(out, lz4Magic...)
		return append(out, block...), nil
	}
	return nil, ErrUnknownMethod
}

// Decompress detects the method that compressed b, and returns the
// uncompressed data. Data that is not compressed is returned as is.
func Decompress(b []byte) ([]byte, Method, error) {
	m := Detect(b)
	switch m {
	case Zstd:
		dec, err := zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxSize))
		if err != nil {
			return nil, m, err
		}
		defer dec.Close()
		out, err := dec.DecodeAll(b, nil)
		if err != nil {
			return nil, m, fmt.Errorf("zstd: %w", err)
		}
		return out, m, nil
	case LZ4:
		block := b[len(lz4Magic):]
		if len(block) < 4 {
			return nil, m, ErrCorrupt
		}
		size := binary.LittleEndian.Uint32(block)
		if size > MaxSize {
			return nil, m, ErrTooLarge
		}
		out := make([]byte, size)
		out, err := lz4.Decode(out, block)
		if err != nil {
			return nil, m, fmt.Errorf("lz4: %w", err)
		}
		if len(out) != int(size) {
			return nil, m, ErrCorrupt
		}
		return out, m, nil
	}
	return b, None, nil
}
