package controller

import (
	"github.com/skwas/datfile/field"
	"github.com/skwas/datfile/schema"
)

// Resolver selects the schema that decodes a controller payload.
type Resolver struct {
	// Registry provides the candidate schemas. If nil, the built-in catalog is
	// used.
	Registry *schema.Registry

	// Engine decodes and encodes records. If nil, field.DefaultEngine is used.
	Engine *field.Engine
}

// DefaultResolver resolves controllers against the built-in catalog.
var DefaultResolver = &Resolver{}

func (r *Resolver) registry() *schema.Registry {
	if r == nil || r.Registry == nil {
		return Builtin()
	}
	return r.Registry
}

func (r *Resolver) engine() *field.Engine {
	if r == nil || r.Engine == nil {
		return field.DefaultEngine
	}
	return r.Engine
}

// names returns the controller names to try, in order: the name part of the
// hint, the name stored in the frame, and the name of the animation kind.
func names(hint string, f Frame) (prefix string, list []string) {
	p, name, ok := schema.SplitHint(hint)
	if ok {
		prefix = p.String() + ":"
	}
	add := func(s string) {
		if s == "" {
			return
		}
		for _, n := range list {
			if n == s {
				return
			}
		}
		list = append(list, s)
	}
	add(name)
	add(f.Name)
	if f.Framing == field.Raw {
		add(AnimationKind(f.SubType).String())
	}
	return prefix, list
}

// Resolve decodes a controller payload. hint is the name of the controller,
// optionally prefixed with a profile such as "SH4:", and may be empty.
//
// Candidate schemas are tried from the newest profile to the oldest. Each
// attempt must consume the payload exactly; a failed attempt rewinds to the
// start of the fields and the next candidate is tried. If no candidate
// succeeds, a ResolutionError is returned.
func (r *Resolver) Resolve(hint string, data []byte) (*Controller, error) {
	frame, err := ParseFrame(data)
	if err != nil {
		return nil, err
	}

	reg := r.registry()
	prefix, list := names(hint, frame)
	var name string
	var candidates []schema.Candidate
	for _, n := range list {
		if candidates = reg.Candidates(prefix + n); len(candidates) > 0 {
			name = n
			break
		}
	}
	if len(candidates) == 0 {
		if len(list) > 0 {
			name = list[0]
		}
		return nil, ResolutionError{Name: name}
	}

	e := r.engine()
	fr := field.NewReaderAt(frame.Body, int64(frame.BodyOffset))
	start := fr.Pos()
	var attempts []Attempt
	for _, c := range candidates {
		if err := fr.Seek(start); err != nil {
			return nil, err
		}
		if c.Schema.Mode() != frame.Framing {
			attempts = append(attempts, Attempt{Profile: c.Profile, Schema: c.Schema.Name(), Err: ErrFrameMode})
			continue
		}
		rec, err := e.DecodeRecord(fr, c.Schema)
		if err == nil && fr.Len() != 0 {
			err = field.DataError{Offset: fr.Offset(), Cause: errUnconsumed(fr.Len())}
		}
		if err != nil {
			attempts = append(attempts, Attempt{Profile: c.Profile, Schema: c.Schema.Name(), Err: err})
			continue
		}
		return &Controller{
			Name:     c.Schema.Name(),
			Profile:  c.Profile,
			Framing:  frame.Framing,
			SubType:  frame.SubType,
			Reserved: frame.Reserved,
			Record:   rec,
		}, nil
	}
	return nil, ResolutionError{Name: name, Attempts: attempts}
}

// Encode frames and encodes c.
func (r *Resolver) Encode(c *Controller) ([]byte, error) {
	w := field.NewWriter()
	if err := r.EncodeTo(w, c); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// EncodeTo frames and encodes c to w.
func (r *Resolver) EncodeTo(w *field.Writer, c *Controller) error {
	s := c.Record.Schema()
	if s.Mode() != c.Framing {
		return ErrFrameMode
	}
	e := r.engine()
	if c.Framing == field.Raw {
		if err := w.Uint16(c.SubType); err != nil {
			return err
		}
		if err := w.Uint16(c.Reserved); err != nil {
			return err
		}
		return e.EncodeRecord(w, c.Record)
	}

	name := c.Name
	if name == "" {
		name = s.Name()
	}
	sub := field.NewWriter()
	if err := e.EncodeRecord(sub, c.Record); err != nil {
		return err
	}
	if err := w.Int32(int32(len(name) + 1 + sub.Len())); err != nil {
		return err
	}
	if err := w.CString(name); err != nil {
		return err
	}
	return w.Write(sub.Bytes())
}

// New returns an empty controller of the schema registered as name for
// profile p. The framing follows the mode of the schema, and raw controllers
// of an animation kind get its subtype.
func (r *Resolver) New(p schema.Profile, name string) (*Controller, error) {
	s := r.registry().Lookup(p, name)
	if s == nil {
		return nil, ResolutionError{Name: name}
	}
	c := &Controller{
		Name:    s.Name(),
		Profile: p,
		Framing: s.Mode(),
		Record:  field.NewRecord(s),
	}
	if s.Mode() == field.Raw {
		if k, ok := AnimationKindOf(s.Name()); ok {
			c.SubType = uint16(k)
		}
	}
	return c, nil
}
