package dat

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// Indicates that the file header does not start with FileMagic.
	ErrInvalidHeader = errors.New("invalid file header")
	// Indicates a chunk header whose size is negative.
	ErrNegativeSize = errors.New("negative chunk size")
	// Indicates a chunk whose declared size extends past the end of the
	// stream.
	ErrChunkBounds = errors.New("chunk extends past end of stream")
	// Indicates that a chunk consumed fewer bytes than its declared size.
	ErrUnparsedData = errors.New("more unparsed data")
	// Indicates that a chunk tried to consume more bytes than its declared
	// size.
	ErrTooMuchData = errors.New("too much data read")
	// Indicates that the stream ended within a chunk header.
	ErrTruncatedHeader = errors.New("truncated chunk header")
	// Indicates a chunk magic not known by the registry.
	ErrUnknownMagic = errors.New("unknown chunk magic")
	// Indicates that the stream ended without an Eof chunk.
	ErrMissingEof = errors.New("missing eof chunk")
	// Indicates that the stored index does not agree with the chunks of the
	// file.
	ErrIndexMismatch = errors.New("index does not match chunks")
	// Indicates a nil Container passed to the encoder.
	ErrNilContainer = errors.New("nil container")
	// Indicates a chunk with a magic reserved for the container structure
	// passed to the encoder.
	ErrReservedChunk = errors.New("chunk is written by the encoder")

	errStringNull = errors.New("string contains null character")
)

// errNegativeCount indicates a list whose length prefix is negative.
type errNegativeCount int32

func (err errNegativeCount) Error() string {
	return fmt.Sprintf("negative count %d", int32(err))
}

// errIndexSize indicates an Index payload that is not a whole number of
// entries.
type errIndexSize int

func (err errIndexSize) Error() string {
	return fmt.Sprintf("index payload of %d bytes is not a multiple of 12", int(err))
}

// errReserve indicates that the reserved bytes of the file header are not
// zero.
type errReserve struct {
	Offset int64
	Bytes  []byte
}

func (err errReserve) Error() string {
	return fmt.Sprintf("non-zero reserved bytes at %d: % 02X", err.Offset, err.Bytes)
}

// StructuralError indicates a problem with the framing of a chunk.
type StructuralError struct {
	// Index is the position of the chunk within the file, or -1 if the error
	// is not associated with a chunk.
	Index int
	// Offset is the byte offset of the chunk header within the file.
	Offset int64
	// Magic is the magic of the chunk.
	Magic Magic

	Cause error
}

func (err StructuralError) Error() string {
	var s strings.Builder
	if err.Index >= 0 {
		s.WriteString("#")
		s.WriteString(strconv.Itoa(err.Index))
		s.WriteString(" ")
		s.WriteString(err.Magic.String())
		s.WriteString(" chunk at ")
	} else {
		s.WriteString("at ")
	}
	s.Write(strconv.AppendInt(nil, err.Offset, 10))
	if err.Cause != nil {
		s.WriteString(": ")
		s.WriteString(err.Cause.Error())
	}
	return s.String()
}

func (err StructuralError) Unwrap() error {
	return err.Cause
}

// DataError wraps an error that occurred while decoding the payload of a
// chunk.
type DataError struct {
	// Offset is the byte offset within the file where the error occurred.
	Offset int64

	Cause error
}

func (err DataError) Error() string {
	var s strings.Builder
	s.WriteString("data error")
	if err.Offset >= 0 {
		s.WriteString(" at ")
		s.Write(strconv.AppendInt(nil, err.Offset, 10))
	}
	if err.Cause != nil {
		s.WriteString(": ")
		s.WriteString(err.Cause.Error())
	}
	return s.String()
}

func (err DataError) Unwrap() error {
	return err.Cause
}

// IndexError describes an entry of a stored Index that does not agree with
// the chunks of the file.
type IndexError struct {
	ID uint64
	// Stored is the offset recorded by the index.
	Stored int32
	// Actual is the offset of the chunk with the id, or -1 if no such chunk
	// exists.
	Actual int64
}

func (err IndexError) Error() string {
	if err.Actual < 0 {
		return fmt.Sprintf("index entry %d at %d: no chunk with id", err.ID, err.Stored)
	}
	return fmt.Sprintf("index entry %d at %d: chunk is at %d", err.ID, err.Stored, err.Actual)
}

func (err IndexError) Unwrap() error {
	return ErrIndexMismatch
}

// ControllerError wraps an error produced by resolving the record of a
// ControllerData chunk.
type ControllerError struct {
	// ID is the id of the Controller chunk that the data belongs to.
	ID   uint64
	Name string

	Cause error
}

func (err ControllerError) Error() string {
	return fmt.Sprintf("controller %d %q: %s", err.ID, err.Name, err.Cause)
}

func (err ControllerError) Unwrap() error {
	return err.Cause
}
