package dat

import (
	"bytes"
	"errors"
	"io"
	"math"

	"github.com/anaminus/parse"
)

var errOffsetRange = errors.New("file offset exceeds 32 bits")

// Encoder encodes a Container into a stream of bytes.
type Encoder struct{}

// Encode writes c to w. The file header is written first, followed by the
// Settings chunk, each chunk of c, a rebuilt Index chunk, and an Eof chunk.
//
// If w implements io.WriteSeeker, the payload of each chunk is written
// directly and its size is patched into the chunk header afterwards.
// Otherwise, each payload is buffered before being written.
func (e Encoder) Encode(w io.Writer, c *Container) error {
	if w == nil {
		return errors.New("nil writer")
	}
	index, cw, err := encodeBody(w, c)
	if err != nil {
		return err
	}
	if _, err := cw.writeChunk(index); err != nil {
		return StructuralError{Index: len(c.Chunks), Offset: cw.pos, Magic: MagicIndex, Cause: err}
	}
	if _, err := cw.writeChunk(&Eof{}); err != nil {
		return StructuralError{Index: len(c.Chunks) + 1, Offset: cw.pos, Magic: MagicEof, Cause: err}
	}
	return nil
}

// encodeBody writes the header, settings and chunks of c to w, and returns
// the index of the written chunks.
func encodeBody(w io.Writer, c *Container) (*Index, *chunkWriter, error) {
	if c == nil {
		return nil, nil, ErrNilContainer
	}
	cw := newChunkWriter(w)

	fw := parse.NewBinaryWriter(&cw.hdr)
	fw.Number(FileMagic)
	fw.Number(c.FileType)
	fw.Bytes(c.Reserved[:])
	if _, err := fw.End(); err != nil {
		return nil, nil, err
	}
	if err := cw.flushHeader(); err != nil {
		return nil, nil, StructuralError{Index: -1, Offset: 0, Cause: err}
	}

	if c.Settings != nil {
		if off, err := cw.writeChunk(c.Settings); err != nil {
			return nil, nil, StructuralError{Index: -1, Offset: off, Magic: MagicS3DSettings, Cause: err}
		}
	}

	index := &Index{}
	for i, chunk := range c.Chunks {
		switch chunk.(type) {
		case *Index, *Eof:
			return nil, nil, StructuralError{Index: i, Offset: cw.pos, Magic: chunk.Magic(), Cause: ErrReservedChunk}
		}
		off, err := cw.writeChunk(chunk)
		if err != nil {
			return nil, nil, StructuralError{Index: i, Offset: off, Magic: chunk.Magic(), Cause: err}
		}
		if ic, ok := chunk.(IDChunk); ok {
			if off > math.MaxInt32 {
				return nil, nil, StructuralError{Index: i, Offset: off, Magic: chunk.Magic(), Cause: errOffsetRange}
			}
			index.Entries = append(index.Entries, IndexEntry{ID: ic.ChunkID(), Offset: int32(off)})
		}
	}
	return index, cw, nil
}

// chunkWriter writes framed chunks and tracks the number of bytes written.
type chunkWriter struct {
	w   io.Writer
	ws  io.WriteSeeker
	pos int64
	hdr bytes.Buffer
	buf bytes.Buffer
}

func newChunkWriter(w io.Writer) *chunkWriter {
	cw := &chunkWriter{w: w}
	if ws, ok := w.(io.WriteSeeker); ok {
		cw.ws = ws
	}
	return cw
}

func (cw *chunkWriter) flushHeader() error {
	n, err := cw.w.Write(cw.hdr.Bytes())
	cw.pos += int64(n)
	cw.hdr.Reset()
	return err
}

func (cw *chunkWriter) header(m Magic, sub, size int32) error {
	fw := parse.NewBinaryWriter(&cw.hdr)
	fw.Number(uint32(m))
	fw.Number(sub)
	fw.Number(size)
	if _, err := fw.End(); err != nil {
		return err
	}
	return cw.flushHeader()
}

// writeChunk writes the header and payload of chunk, returning the offset of
// the header.
func (cw *chunkWriter) writeChunk(chunk Chunk) (off int64, err error) {
	off = cw.pos
	if cw.ws == nil {
		cw.buf.Reset()
		n, err := chunk.WriteTo(&cw.buf)
		if err != nil {
			return off, err
		}
		if n > math.MaxInt32 {
			return off, errOffsetRange
		}
		if err := cw.header(chunk.Magic(), chunk.SubType(), int32(n)); err != nil {
			return off, err
		}
		m, err := cw.w.Write(cw.buf.Bytes())
		cw.pos += int64(m)
		return off, err
	}

	// Write a placeholder size, then patch it once the payload is written.
	if err := cw.header(chunk.Magic(), chunk.SubType(), 0); err != nil {
		return off, err
	}
	n, err := chunk.WriteTo(cw.ws)
	cw.pos += n
	if err != nil {
		return off, err
	}
	if n > math.MaxInt32 {
		return off, errOffsetRange
	}
	if _, err := cw.ws.Seek(-(n + 4), io.SeekCurrent); err != nil {
		return off, err
	}
	fw := parse.NewBinaryWriter(cw.ws)
	fw.Number(int32(n))
	if _, err := fw.End(); err != nil {
		return off, err
	}
	if _, err := cw.ws.Seek(n, io.SeekCurrent); err != nil {
		return off, err
	}
	return off, nil
}
