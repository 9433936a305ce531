// Package statemachine decodes and encodes state machine graphs: a list of
// entries, each with transition conditions, each with actions. Every record is
// introduced by a 4-byte tag, and the end of a level is detected by peeking at
// the next tag.
package statemachine

import (
	"encoding/binary"
	"fmt"

	"github.com/skwas/datfile/field"
)

// Record tags.
const (
	TagEntry     uint32 = 0x72746E45 // "Entr"
	TagCondition uint32 = 0x646E6F43 // "Cond"
	TagAction    uint32 = 0x6E746341 // "Actn"
)

// Action is a named operation performed when a condition holds.
type Action struct {
	Name  string
	Value string
}

// Condition is a transition to another entry.
type Condition struct {
	GotoEntry  int32
	Type       int32
	Expression string
	Value      string
	Actions    []Action
}

// Entry is a state of the graph.
type Entry struct {
	Index      int32
	Name       string
	Conditions []Condition
}

// Graph is a state machine.
type Graph struct {
	Entries []Entry
}

// ErrUnexpectedTag indicates a record tag that is not valid at its position.
type ErrUnexpectedTag uint32

func (err ErrUnexpectedTag) Error() string {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(err))
	return fmt.Sprintf("unexpected state machine tag %q (%#08x)", b[:], uint32(err))
}

// acceptTag consumes the next 4 bytes of r if they are tag. Otherwise r is
// left as is.
func acceptTag(r *field.Reader, tag uint32) (bool, error) {
	b, err := r.Peek(4)
	if err != nil || binary.LittleEndian.Uint32(b) != tag {
		return false, nil
	}
	if err := r.Seek(r.Pos() + 4); err != nil {
		return false, err
	}
	return true, nil
}

func expectTag(r *field.Reader, tag uint32) error {
	off := r.Offset()
	v, err := r.Uint32()
	if err != nil {
		return err
	}
	if v != tag {
		return field.DataError{Offset: off, Cause: ErrUnexpectedTag(v)}
	}
	return nil
}

// Decode reads a graph from the remainder of r.
func Decode(r *field.Reader) (*Graph, error) {
	g := &Graph{}
	for r.Len() > 0 {
		if err := expectTag(r, TagEntry); err != nil {
			return nil, err
		}
		var e Entry
		var err error
		if e.Index, err = r.Int32(); err != nil {
			return nil, err
		}
		if e.Name, err = r.CString(); err != nil {
			return nil, err
		}
		for {
			ok, err := acceptTag(r, TagCondition)
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			c, err := decodeCondition(r)
			if err != nil {
				return nil, err
			}
			e.Conditions = append(e.Conditions, c)
		}
		g.Entries = append(g.Entries, e)
	}
	return g, nil
}

func decodeCondition(r *field.Reader) (c Condition, err error) {
	if c.GotoEntry, err = r.Int32(); err != nil {
		return c, err
	}
	if c.Type, err = r.Int32(); err != nil {
		return c, err
	}
	if c.Expression, err = r.CString(); err != nil {
		return c, err
	}
	if c.Value, err = r.CString(); err != nil {
		return c, err
	}
	for {
		ok, err := acceptTag(r, TagAction)
		if err != nil {
			return c, err
		}
		if !ok {
			break
		}
		var a Action
		if a.Name, err = r.CString(); err != nil {
			return c, err
		}
		if a.Value, err = r.CString(); err != nil {
			return c, err
		}
		c.Actions = append(c.Actions, a)
	}
	return c, nil
}

// Encode writes g to w.
func (g *Graph) Encode(w *field.Writer) error {
	for _, e := range g.Entries {
		if err := w.Uint32(TagEntry); err != nil {
			return err
		}
		if err := w.Int32(e.Index); err != nil {
			return err
		}
		if err := w.CString(e.Name); err != nil {
			return err
		}
		for _, c := range e.Conditions {
			if err := encodeCondition(w, c); err != nil {
				return err
			}
		}
	}
	return nil
}

func encodeCondition(w *field.Writer, c Condition) error {
	if err := w.Uint32(TagCondition); err != nil {
		return err
	}
	if err := w.Int32(c.GotoEntry); err != nil {
		return err
	}
	if err := w.Int32(c.Type); err != nil {
		return err
	}
	if err := w.CString(c.Expression); err != nil {
		return err
	}
	if err := w.CString(c.Value); err != nil {
		return err
	}
	for _, a := range c.Actions {
		if err := w.Uint32(TagAction); err != nil {
			return err
		}
		if err := w.CString(a.Name); err != nil {
			return err
		}
		if err := w.CString(a.Value); err != nil {
			return err
		}
	}
	return nil
}

// Codec reads and writes a graph as a record field. The graph extends to the
// end of the enclosing region.
type Codec struct{}

// Type is the field type of a state machine graph.
var Type = field.CustomOf("statemachine", Codec{})

func (Codec) DecodeField(r *field.Reader) (interface{}, error) {
	return Decode(r)
}

func (Codec) EncodeField(w *field.Writer, v interface{}) error {
	switch g := v.(type) {
	case *Graph:
		return g.Encode(w)
	case Graph:
		return g.Encode(w)
	}
	return field.ValueTypeError{Type: Type, Value: v}
}
