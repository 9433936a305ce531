package dat

import (
	"io"
	"iter"

	"github.com/skwas/datfile/errors"
)

// Container is the decoded content of a DAT file.
type Container struct {
	// FileType is the second field of the file header.
	FileType uint32

	// Reserved holds the reserved bytes of the file header. They are expected
	// to be zero.
	Reserved [8]byte

	// Settings is the editor settings chunk, written before any other chunk.
	// It may be nil.
	Settings *S3DSettings

	// Chunks is the ordered list of chunks, excluding Settings and the Index
	// and Eof chunks, which are produced by the encoder.
	Chunks []Chunk
}

// Add appends chunks to the container.
func (c *Container) Add(chunks ...Chunk) {
	c.Chunks = append(c.Chunks, chunks...)
}

// AddController appends a Controller chunk and the ControllerData chunk that
// holds its record.
func (c *Container) AddController(ctl *Controller, data *ControllerData) {
	c.Chunks = append(c.Chunks, ctl, data)
}

// ChunkByID returns the first chunk whose id is id, or nil if there is no such
// chunk.
func (c *Container) ChunkByID(id uint64) Chunk {
	for _, chunk := range c.Chunks {
		if ic, ok := chunk.(IDChunk); ok && ic.ChunkID() == id {
			return chunk
		}
	}
	return nil
}

// Children returns the chunks whose parent id is id, in order.
func (c *Container) Children(id uint64) []Chunk {
	var children []Chunk
	for _, chunk := range c.Chunks {
		if pc, ok := chunk.(ParentChunk); ok && pc.ParentChunkID() == id {
			children = append(children, chunk)
		}
	}
	return children
}

// Controllers returns an iterator over each Controller chunk that is directly
// followed by a ControllerData chunk.
func (c *Container) Controllers() iter.Seq2[*Controller, *ControllerData] {
	return func(yield func(*Controller, *ControllerData) bool) {
		for i := 0; i+1 < len(c.Chunks); i++ {
			ctl, ok := c.Chunks[i].(*Controller)
			if !ok {
				continue
			}
			data, ok := c.Chunks[i+1].(*ControllerData)
			if !ok {
				continue
			}
			if !yield(ctl, data) {
				return
			}
			i++
		}
	}
}

// RebuildIndex returns the Index chunk that the encoder would write for c,
// mapping the id of each chunk to the file offset of its header.
func (c *Container) RebuildIndex() (*Index, error) {
	index, _, err := encodeBody(io.Discard, c)
	return index, err
}

// ResolveControllers decodes the record of every ControllerData chunk. Each
// record that cannot be resolved produces a ControllerError. The errors are
// returned together, or nil if every record was resolved.
func (c *Container) ResolveControllers() error {
	var errs errors.Errors
	for ctl, data := range c.Controllers() {
		if _, err := data.Value(); err != nil {
			errs = errs.Append(ControllerError{ID: ctl.ID, Name: ctl.Name, Cause: err})
		}
	}
	return errs.Return()
}
