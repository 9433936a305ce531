package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/skwas/datfile/field"
)

// TypeExprError indicates a malformed type expression.
type TypeExprError struct {
	Expr string
	Pos  int
	Msg  string
}

func (err TypeExprError) Error() string {
	return fmt.Sprintf("type %q at %d: %s", err.Expr, err.Pos, err.Msg)
}

var builtinTypes = map[string]*field.Type{
	"int8":     field.Int8,
	"uint8":    field.Uint8,
	"byte":     field.Uint8,
	"int16":    field.Int16,
	"uint16":   field.Uint16,
	"int32":    field.Int32,
	"uint32":   field.Uint32,
	"int64":    field.Int64,
	"uint64":   field.Uint64,
	"float32":  field.Float32,
	"float64":  field.Float64,
	"vec2":     field.Vec2,
	"vec3":     field.Vec3,
	"vec4":     field.Vec4,
	"string":   field.String,
	"lstring":  field.LengthString,
	"color":    field.Color,
	"datetime": field.DateTime,
	"bool":     field.Bool,
}

// ParseType parses a type expression of the form returned by
// field.Type.String, such as "list(optional(float32))". Names that are not
// built in are passed to lookup, which returns nil for unknown names.
func ParseType(expr string, lookup func(name string) *field.Type) (*field.Type, error) {
	p := &typeParser{expr: expr, lookup: lookup}
	t, err := p.parse()
	if err != nil {
		return nil, err
	}
	p.space()
	if p.pos < len(p.expr) {
		return nil, p.errorf("unexpected %q", p.expr[p.pos:])
	}
	return t, nil
}

type typeParser struct {
	expr   string
	pos    int
	lookup func(string) *field.Type
}

func (p *typeParser) errorf(format string, a ...interface{}) error {
	return TypeExprError{Expr: p.expr, Pos: p.pos, Msg: fmt.Sprintf(format, a...)}
}

func (p *typeParser) space() {
	for p.pos < len(p.expr) && (p.expr[p.pos] == ' ' || p.expr[p.pos] == '\t') {
		p.pos++
	}
}

func isIdent(c byte) bool {
	return c == '_' || c == '.' ||
		'a' <= c && c <= 'z' ||
		'A' <= c && c <= 'Z' ||
		'0' <= c && c <= '9'
}

func (p *typeParser) ident() string {
	p.space()
	i := p.pos
	for p.pos < len(p.expr) && isIdent(p.expr[p.pos]) {
		p.pos++
	}
	return p.expr[i:p.pos]
}

func (p *typeParser) accept(c byte) bool {
	p.space()
	if p.pos < len(p.expr) && p.expr[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *typeParser) expect(c byte) error {
	if !p.accept(c) {
		return p.errorf("expected %q", c)
	}
	return nil
}

func (p *typeParser) number() (int, error) {
	s := p.ident()
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, p.errorf("expected count, got %q", s)
	}
	return n, nil
}

// inner parses "(type)".
func (p *typeParser) inner() (*field.Type, error) {
	if err := p.expect('('); err != nil {
		return nil, err
	}
	t, err := p.parse()
	if err != nil {
		return nil, err
	}
	return t, p.expect(')')
}

func (p *typeParser) parse() (*field.Type, error) {
	name := p.ident()
	if name == "" {
		return nil, p.errorf("expected type name")
	}
	if t, ok := builtinTypes[strings.ToLower(name)]; ok {
		return t, nil
	}
	switch strings.ToLower(name) {
	case "optional":
		t, err := p.inner()
		if err != nil {
			return nil, err
		}
		return field.OptionalOf(t), nil
	case "list":
		t, err := p.inner()
		if err != nil {
			return nil, err
		}
		return field.ListOf(t), nil
	case "fixedstring":
		if err := p.expect('('); err != nil {
			return nil, err
		}
		n, err := p.number()
		if err != nil {
			return nil, err
		}
		return field.FixedString(n), p.expect(')')
	case "array":
		if err := p.expect('('); err != nil {
			return nil, err
		}
		t, err := p.parse()
		if err != nil {
			return nil, err
		}
		if p.accept(',') {
			n, err := p.number()
			if err != nil {
				return nil, err
			}
			return field.FixedArrayOf(t, n), p.expect(')')
		}
		return field.ArrayOf(t), p.expect(')')
	case "union":
		if err := p.expect('('); err != nil {
			return nil, err
		}
		a, err := p.parse()
		if err != nil {
			return nil, err
		}
		if err := p.expect(','); err != nil {
			return nil, err
		}
		b, err := p.parse()
		if err != nil {
			return nil, err
		}
		return field.UnionOf(a, b), p.expect(')')
	}
	if p.lookup != nil {
		if t := p.lookup(name); t != nil {
			return t, nil
		}
	}
	return nil, p.errorf("unknown type %q", name)
}
