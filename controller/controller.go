// Package controller resolves and frames controller records, the behavior and
// animation data attached to objects of a DAT file.
//
// A controller payload is framed in one of two ways. Named framing is
//
//	[i32 size][name\0][named fields…]
//
// where size counts every byte after itself. Raw framing is
//
//	[u16 subtype][u16 reserved][raw fields…]
//
// where subtype usually identifies an animation kind.
package controller

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/skwas/datfile/errors"
	"github.com/skwas/datfile/field"
	"github.com/skwas/datfile/schema"
)

var (
	ErrUnknownController = errors.New("no schema registered for controller")
	ErrFrameMode         = errors.New("schema mode does not match payload framing")
	ErrShortFrame        = errors.New("controller payload too short")
)

// Controller is a decoded controller record.
type Controller struct {
	// Name is the name of the controller, which matches the name of the
	// schema of Record.
	Name string

	// Profile is the profile of the schema that decoded the record.
	Profile schema.Profile

	// Framing is Named or Raw.
	Framing field.Mode

	// SubType and Reserved are the leading fields of raw framing.
	SubType  uint16
	Reserved uint16

	Record *field.Record
}

// Frame is the framing of an undecoded controller payload.
type Frame struct {
	Framing field.Mode

	// Name is the name stored with named framing.
	Name string

	SubType  uint16
	Reserved uint16

	// Body contains the fields following the frame header, starting at
	// offset BodyOffset of the payload.
	Body       []byte
	BodyOffset int
}

// ParseFrame determines the framing of a controller payload. The payload is
// named if its leading 32-bit size equals the number of bytes that follow.
func ParseFrame(data []byte) (Frame, error) {
	if len(data) < 4 {
		return Frame{}, field.DataError{Offset: 0, Cause: ErrShortFrame}
	}
	if size := int32(binary.LittleEndian.Uint32(data)); int(size) == len(data)-4 {
		r := field.NewReaderAt(data[4:], 4)
		if name, err := r.CString(); err == nil && name != "" {
			return Frame{
				Framing:    field.Named,
				Name:       name,
				Body:       r.Rest(),
				BodyOffset: 4 + len(name) + 1,
			}, nil
		}
	}
	return Frame{
		Framing:    field.Raw,
		SubType:    binary.LittleEndian.Uint16(data[0:2]),
		Reserved:   binary.LittleEndian.Uint16(data[2:4]),
		Body:       data[4:],
		BodyOffset: 4,
	}, nil
}

// Attempt records a failed decode of one candidate schema.
type Attempt struct {
	Profile schema.Profile
	Schema  string
	Err     error
}

func (a Attempt) Error() string {
	return fmt.Sprintf("%s %s: %s", a.Profile, a.Schema, a.Err)
}

func (a Attempt) Unwrap() error {
	return a.Err
}

// ResolutionError indicates that no candidate schema could decode a
// controller payload. The payload remains available as raw bytes.
type ResolutionError struct {
	// Name is the controller name that was resolved, if any.
	Name     string
	Attempts []Attempt
}

func (err ResolutionError) Error() string {
	var s strings.Builder
	s.WriteString("resolve controller")
	if err.Name != "" {
		s.WriteString(" ")
		s.WriteString(err.Name)
	}
	s.WriteString(": ")
	if len(err.Attempts) == 0 {
		s.WriteString(ErrUnknownController.Error())
		return s.String()
	}
	s.WriteString(err.Unwrap().Error())
	return s.String()
}

// Unwrap returns the errors of every attempt as an errors.Errors, or
// ErrUnknownController if there were no candidates.
func (err ResolutionError) Unwrap() error {
	if len(err.Attempts) == 0 {
		return ErrUnknownController
	}
	var errs errors.Errors
	for _, a := range err.Attempts {
		errs = errs.Append(a)
	}
	return errs
}

type errUnconsumed int

func (err errUnconsumed) Error() string {
	return fmt.Sprintf("%d bytes remain after decoding", int(err))
}
