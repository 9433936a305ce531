package dat

import (
	"bytes"
	"io"

	"github.com/anaminus/parse"
	"github.com/skwas/datfile/controller"
	"github.com/skwas/datfile/errors"
)

var errDataAfterEof = errors.New("data after eof chunk")

// Decoder decodes a stream of bytes into a Container.
type Decoder struct {
	// Registry maps chunk magics to chunk types. If nil, DefaultRegistry is
	// used.
	Registry *Registry

	// Resolver is bound to each ControllerData chunk to decode its record. If
	// nil, controller.DefaultResolver is used.
	Resolver *controller.Resolver

	// If Resolve is true, the record of every ControllerData chunk is decoded
	// immediately. Records that cannot be resolved are added to the warnings
	// as ControllerErrors.
	Resolve bool

	// If Strict is true, then any warning produced by the decoder is returned
	// as an error instead.
	Strict bool
}

// Decode reads data from r and decodes it into a Container.
//
// Problems that do not prevent the file from being decoded, such as unknown
// chunks or a stale index, are returned as warnings in warn.
func (d Decoder) Decode(r io.Reader) (c *Container, warn, err error) {
	if r == nil {
		return nil, nil, errors.New("nil reader")
	}
	f, warn, err := d.decode(r)
	if err != nil {
		return nil, warn, err
	}
	if d.Resolve {
		warn = errors.Union(warn, f.Container.ResolveControllers())
	}
	if d.Strict && warn != nil {
		return nil, nil, warn
	}
	return f.Container, warn, nil
}

// entry is a chunk as it was found in the file.
type entry struct {
	Offset int64
	Size   int32
	Chunk  Chunk
}

// format is the result of a decode, retaining the file layout.
type format struct {
	Container *Container
	// Entries lists every chunk in file order, including the Settings, Index
	// and Eof chunks.
	Entries []entry
	// Index is the stored index, or nil if the file has none.
	Index *Index
}

func (d Decoder) registry() *Registry {
	if d.Registry == nil {
		return DefaultRegistry
	}
	return d.Registry
}

func headerError(fr *parse.BinaryReader, err error) error {
	fr.Add(0, err)
	if err = fr.Err(); err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return StructuralError{Index: -1, Offset: fr.N(), Cause: err}
}

func (d Decoder) decode(r io.Reader) (f *format, warn, err error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, err
	}
	f = &format{Container: &Container{}}
	c := f.Container
	var warns errors.Errors

	fr := parse.NewBinaryReader(bytes.NewReader(data))
	var magic uint32
	if fr.Number(&magic) {
		return nil, nil, headerError(fr, ErrInvalidHeader)
	}
	if magic != FileMagic {
		return nil, nil, StructuralError{Index: -1, Offset: 0, Cause: ErrInvalidHeader}
	}
	if fr.Number(&c.FileType) {
		return nil, nil, headerError(fr, nil)
	}
	if fr.Bytes(c.Reserved[:]) {
		return nil, nil, headerError(fr, nil)
	}
	if c.Reserved != [8]byte{} {
		warns = append(warns, errReserve{Offset: fr.N() - int64(len(c.Reserved)), Bytes: c.Reserved[:]})
	}

	reg := d.registry()
	offsets := map[uint64]int64{}
	var pending *Controller
	var eof bool
	for i := 0; fr.N() < int64(len(data)); i++ {
		off := fr.N()
		if int64(len(data))-off < chunkHeaderSize {
			return nil, warns.Return(), StructuralError{Index: i, Offset: off, Cause: ErrTruncatedHeader}
		}
		var m uint32
		var sub, size int32
		fr.Number(&m)
		fr.Number(&sub)
		fr.Number(&size)
		magic := Magic(m)
		if size < 0 {
			return nil, warns.Return(), StructuralError{Index: i, Offset: off, Magic: magic, Cause: ErrNegativeSize}
		}
		start := fr.N()
		if start+int64(size) > int64(len(data)) {
			return nil, warns.Return(), StructuralError{Index: i, Offset: off, Magic: magic, Cause: ErrChunkBounds}
		}
		payload := make([]byte, size)
		if fr.Bytes(payload) {
			return nil, warns.Return(), StructuralError{Index: i, Offset: off, Magic: magic, Cause: fr.Err()}
		}

		var chunk Chunk
		if magic == MagicController && pending != nil {
			chunk = &ControllerData{}
		} else if chunk = reg.New(magic); chunk == nil {
			chunk = &Unknown{Kind: magic}
			warns = append(warns, StructuralError{Index: i, Offset: off, Magic: magic, Cause: ErrUnknownMagic})
		}
		chunk.SetSubType(sub)

		n, err := chunk.ReadFrom(bytes.NewReader(payload))
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				err = ErrTooMuchData
			}
			return nil, warns.Return(), StructuralError{Index: i, Offset: off, Magic: magic,
				Cause: DataError{Offset: start + n, Cause: err},
			}
		}
		if n < int64(size) {
			cause := DataError{Offset: start + n, Cause: ErrUnparsedData}
			if t, ok := chunk.(TrailingTolerant); !ok || !t.TolerateTrailing() {
				return nil, warns.Return(), StructuralError{Index: i, Offset: off, Magic: magic, Cause: cause}
			}
			warns = append(warns, StructuralError{Index: i, Offset: off, Magic: magic, Cause: cause})
		}
		f.Entries = append(f.Entries, entry{Offset: off, Size: size, Chunk: chunk})

		if ic, ok := chunk.(IDChunk); ok {
			if _, ok := offsets[ic.ChunkID()]; !ok {
				offsets[ic.ChunkID()] = off
			}
		}

		switch chunk := chunk.(type) {
		case *S3DSettings:
			pending = nil
			if c.Settings == nil {
				c.Settings = chunk
				continue
			}
		case *Index:
			pending = nil
			f.Index = chunk
			continue
		case *Eof:
			eof = true
		case *Controller:
			pending = chunk
		case *ControllerData:
			chunk.Bind(pending.Name, d.Resolver)
			pending = nil
		default:
			pending = nil
		}
		if eof {
			break
		}
		c.Chunks = append(c.Chunks, chunk)
	}

	if !eof {
		warns = append(warns, StructuralError{Index: len(f.Entries), Offset: fr.N(), Cause: ErrMissingEof})
	} else if fr.N() < int64(len(data)) {
		warns = append(warns, StructuralError{Index: len(f.Entries), Offset: fr.N(), Cause: errDataAfterEof})
	}

	if f.Index != nil {
		for _, e := range f.Index.Entries {
			actual, ok := offsets[e.ID]
			if !ok {
				warns = append(warns, IndexError{ID: e.ID, Stored: e.Offset, Actual: -1})
			} else if actual != int64(e.Offset) {
				warns = append(warns, IndexError{ID: e.ID, Stored: e.Offset, Actual: actual})
			}
		}
	}

	return f, warns.Return(), nil
}
