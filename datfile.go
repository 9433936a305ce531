// Package datfile reads and writes DAT asset files.
//
// The easiest way to read and write files is through the ReadFile and
// WriteFile functions, which convert between files and dat.Container values.
// Files may be compressed with any method of the archive package; the method
// is detected when reading, and chosen by the file extension when writing.
//
// The dat package implements the container format itself. The controller
// package resolves the records of controller chunks, whose schemas are held
// by the schema package.
package datfile

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/skwas/datfile/archive"
	"github.com/skwas/datfile/dat"
)

// Serializer decodes and encodes containers with a specified decoder and
// encoder.
type Serializer struct {
	Decoder dat.Decoder
	Encoder dat.Encoder
}

// Deserialize decodes an uncompressed container from r.
func (s Serializer) Deserialize(r io.Reader) (c *dat.Container, warn, err error) {
	return s.Decoder.Decode(r)
}

// Serialize encodes c to w without compression.
func (s Serializer) Serialize(w io.Writer, c *dat.Container) error {
	return s.Encoder.Encode(w, c)
}

// ReadFile reads the container from the file at path, decompressing it if
// needed.
func (s Serializer) ReadFile(path string) (c *dat.Container, warn, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	b, _, err = archive.Decompress(b)
	if err != nil {
		return nil, nil, fmt.Errorf("decompress %s: %w", path, err)
	}
	return s.Decoder.Decode(bytes.NewReader(b))
}

// WriteFile writes c to the file at path. The file is compressed according to
// the extension of path.
func (s Serializer) WriteFile(path string, c *dat.Container) (err error) {
	m := archive.MethodOf(path)
	if m == archive.None {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		return s.Encoder.Encode(f, c)
	}

	var buf bytes.Buffer
	if err := s.Encoder.Encode(&buf, c); err != nil {
		return err
	}
	b, err := archive.Compress(m, buf.Bytes())
	if err != nil {
		return fmt.Errorf("compress %s: %w", path, err)
	}
	return os.WriteFile(path, b, 0o644)
}

// DefaultSerializer is the serializer used by the package-level functions.
var DefaultSerializer = Serializer{}

// Load decodes an uncompressed container from r using DefaultSerializer.
func Load(r io.Reader) (c *dat.Container, warn, err error) {
	return DefaultSerializer.Deserialize(r)
}

// Save encodes c to w using DefaultSerializer.
func Save(w io.Writer, c *dat.Container) error {
	return DefaultSerializer.Serialize(w, c)
}

// ReadFile reads the file at path using DefaultSerializer.
func ReadFile(path string) (c *dat.Container, warn, err error) {
	return DefaultSerializer.ReadFile(path)
}

// WriteFile writes c to the file at path using DefaultSerializer.
func WriteFile(path string, c *dat.Container) error {
	return DefaultSerializer.WriteFile(path, c)
}
