// The declare package is used to generate DAT containers in a declarative
// style.
//
// A Container declaration is a list of Node, Model, Material, Author and
// FileType declarations. Its Declare method assigns chunk ids, resolves
// references between declarations, and builds controller records from Field
// declarations.
//
// The easiest way to use this package is to import it directly into the
// current package:
//
//     import . "github.com/skwas/datfile/declare"
//
// This allows the package's identifiers to be used directly without a
// qualifier.
package declare

import (
	"fmt"
	"image/color"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/skwas/datfile/controller"
	"github.com/skwas/datfile/dat"
	"github.com/skwas/datfile/errors"
	"github.com/skwas/datfile/mesh"
	"github.com/skwas/datfile/schema"
)

var (
	ErrDuplicateID  = errors.New("duplicate chunk id")
	ErrDuplicateRef = errors.New("duplicate reference")
	ErrUnknownRef   = errors.New("unknown reference")
)

// RefError indicates a reference declaration that could not be resolved or
// registered.
type RefError struct {
	Ref   Ref
	Cause error
}

func (err RefError) Error() string {
	return fmt.Sprintf("ref %q: %s", string(err.Ref), err.Cause)
}

func (err RefError) Unwrap() error {
	return err.Cause
}

// primary is implemented by declarations that can be directly within a
// Container declaration.
type primary interface {
	primary()
}

// element is implemented by declarations that can be within another
// declaration.
type element interface {
	element()
}

// Container declares a dat.Container.
type Container []primary

// Declare evaluates the Container declaration with the default controller
// resolver.
func (dc Container) Declare() (*dat.Container, error) {
	return dc.DeclareWith(controller.DefaultResolver)
}

// DeclareWith evaluates the Container declaration, generating chunks in
// declaration order. Controller records are created with r.
//
// Declarations without an ID declaration receive the lowest id that is not
// otherwise used. Ref declarations are resolved after every id has been
// assigned, so a Place may refer to a declaration that appears after it.
func (dc Container) DeclareWith(r *controller.Resolver) (*dat.Container, error) {
	if r == nil {
		r = controller.DefaultResolver
	}
	b := &builder{resolver: r, used: map[uint64]bool{}}
	// The first pass only collects ids and refs.
	if err := b.container(dc); err != nil {
		return nil, err
	}
	if err := b.assign(); err != nil {
		return nil, err
	}
	b.emit = true
	b.pos = 0
	b.c = &dat.Container{}
	if err := b.container(dc); err != nil {
		return nil, err
	}
	return b.c, nil
}

type builder struct {
	resolver *controller.Resolver
	emit     bool
	c        *dat.Container

	// ids and refs are in visiting order.
	ids  []uint64
	refs []Ref
	pos  int

	used  map[uint64]bool
	named map[Ref]uint64
}

// id returns the id of the next identifiable declaration.
func (b *builder) id(explicit ID, ref Ref) (uint64, error) {
	if b.emit {
		id := b.ids[b.pos]
		b.pos++
		return id, nil
	}
	if explicit != 0 {
		if b.used[uint64(explicit)] {
			return 0, fmt.Errorf("id %d: %w", uint64(explicit), ErrDuplicateID)
		}
		b.used[uint64(explicit)] = true
	}
	b.ids = append(b.ids, uint64(explicit))
	b.refs = append(b.refs, ref)
	return 0, nil
}

func (b *builder) assign() error {
	b.named = make(map[Ref]uint64, len(b.refs))
	var next uint64 = 1
	for i, id := range b.ids {
		if id == 0 {
			for b.used[next] {
				next++
			}
			id = next
			b.used[id] = true
			b.ids[i] = id
		}
		if ref := b.refs[i]; ref != "" {
			if _, ok := b.named[ref]; ok {
				return RefError{Ref: ref, Cause: ErrDuplicateRef}
			}
			b.named[ref] = id
		}
	}
	return nil
}

func (b *builder) resolve(ref Ref) (uint64, error) {
	if !b.emit || ref == "" {
		return 0, nil
	}
	id, ok := b.named[ref]
	if !ok {
		return 0, RefError{Ref: ref, Cause: ErrUnknownRef}
	}
	return id, nil
}

func (b *builder) add(chunks ...dat.Chunk) {
	if b.emit {
		b.c.Add(chunks...)
	}
}

func (b *builder) container(dc Container) error {
	for _, p := range dc {
		var err error
		switch p := p.(type) {
		case node:
			err = b.node(p, 0)
		case model:
			err = b.model(p)
		case material:
			err = b.material(p)
		case author:
			b.add(&dat.AuthorInfo{Author: p.name, Description: p.description})
		case FileType:
			if b.emit {
				b.c.FileType = uint32(p)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) node(n node, parent uint64) error {
	id, err := b.id(n.id, n.ref)
	if err != nil {
		return err
	}
	b.add(&dat.NodeLink{
		ID:          id,
		ParentID:    parent,
		Translation: n.translation,
		Rotation:    n.rotation,
	})
	for _, text := range n.labels {
		b.add(&dat.Label{ParentID: id, Text: text})
	}
	for _, e := range n.elements {
		switch e := e.(type) {
		case ctl:
			err = b.controller(e, id)
		case place:
			err = b.place(e, id)
		case node:
			err = b.node(e, id)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) controller(d ctl, parent uint64) error {
	id, err := b.id(d.id, d.ref)
	if err != nil || !b.emit {
		return err
	}
	v, err := b.resolver.New(d.profile, d.name)
	if err != nil {
		return fmt.Errorf("controller %s: %w", d.name, err)
	}
	for _, f := range d.fields {
		if err := f.apply(v.Record); err != nil {
			return fmt.Errorf("controller %s: %w", d.name, err)
		}
	}
	b.c.AddController(&dat.Controller{ID: id, ParentID: parent, Name: d.name}, dat.NewControllerData(v))
	return nil
}

func (b *builder) place(d place, parent uint64) error {
	id, err := b.id(d.id, d.ref)
	if err != nil {
		return err
	}
	target, err := b.resolve(d.target)
	if err != nil {
		return err
	}
	b.add(&dat.Placement{
		ID:       id,
		ParentID: parent,
		TargetID: target,
		Position: d.position,
		Rotation: d.rotation,
	})
	return nil
}

func (b *builder) model(d model) error {
	id, err := b.id(d.id, d.ref)
	if err != nil {
		return err
	}
	b.add(&dat.Model{ID: id, Mesh: d.mesh})
	return nil
}

func (b *builder) material(d material) error {
	id, err := b.id(d.id, d.ref)
	if err != nil {
		return err
	}
	m := d.m
	m.ID = id
	b.add(&m)
	return nil
}

////////////////////////////////////////////////////////////////

// FileType declares the file type field of the container header.
type FileType uint32

func (FileType) primary() {}

// Ref declares a string that can be used to refer to the declaration under
// which it was declared.
type Ref string

func (Ref) element() {}

// ID declares the chunk id of the declaration under which it was declared.
type ID uint64

func (ID) element() {}

type translation mgl32.Vec3

func (translation) element() {}

// Translation declares the translation of a Node, or the position of a Place.
func Translation(x, y, z float32) translation {
	return translation{x, y, z}
}

type rotation mgl32.Vec3

func (rotation) element() {}

// Rotation declares the rotation of a Node or Place.
func Rotation(x, y, z float32) rotation {
	return rotation{x, y, z}
}

type label string

func (label) element() {}

// Label declares a label for a Node.
func Label(text string) label {
	return label(text)
}

// node represents the declaration of a dat.NodeLink.
type node struct {
	id          ID
	ref         Ref
	translation mgl32.Vec3
	rotation    mgl32.Vec3
	labels      []string

	// Controller, Place and Node declarations, in order.
	elements []element
}

func (node) primary() {}
func (node) element() {}

// Node declares a dat.NodeLink. Its elements may be ID, Ref, Translation,
// Rotation and Label declarations, which apply to the node. An element can
// also be a Controller or Place declaration, which is attached to the node,
// or another Node declaration, which becomes a child of the node.
func Node(elements ...element) node {
	var n node
	for _, e := range elements {
		switch e := e.(type) {
		case ID:
			n.id = e
		case Ref:
			n.ref = e
		case translation:
			n.translation = mgl32.Vec3(e)
		case rotation:
			n.rotation = mgl32.Vec3(e)
		case label:
			n.labels = append(n.labels, string(e))
		case ctl, place, node:
			n.elements = append(n.elements, e)
		}
	}
	return n
}

// place represents the declaration of a dat.Placement.
type place struct {
	id       ID
	ref      Ref
	target   Ref
	position mgl32.Vec3
	rotation mgl32.Vec3
}

func (place) element() {}

// Place declares a dat.Placement of the declaration referred to by target.
// Its elements may be ID, Ref, Translation and Rotation declarations.
func Place(target Ref, elements ...element) place {
	p := place{target: target}
	for _, e := range elements {
		switch e := e.(type) {
		case ID:
			p.id = e
		case Ref:
			p.ref = e
		case translation:
			p.position = mgl32.Vec3(e)
		case rotation:
			p.rotation = mgl32.Vec3(e)
		}
	}
	return p
}

type profile schema.Profile

func (profile) element() {}

// Profile declares the profile of the schema used by a Controller. The
// default is schema.SH5.
func Profile(p schema.Profile) profile {
	return profile(p)
}

// ctl represents the declaration of a dat.Controller and its record.
type ctl struct {
	id      ID
	ref     Ref
	name    string
	profile schema.Profile
	fields  []fieldDecl
}

func (ctl) element() {}

// Controller declares a dat.Controller, followed by a dat.ControllerData
// holding a record of the schema registered as name. Its elements may be ID,
// Ref, Profile and Field declarations.
func Controller(name string, elements ...element) ctl {
	c := ctl{name: name, profile: schema.SH5}
	for _, e := range elements {
		switch e := e.(type) {
		case ID:
			c.id = e
		case Ref:
			c.ref = e
		case profile:
			c.profile = schema.Profile(e)
		case fieldDecl:
			c.fields = append(c.fields, e)
		}
	}
	return c
}

// model represents the declaration of a dat.Model.
type model struct {
	id   ID
	ref  Ref
	mesh mesh.Mesh
}

func (model) primary() {}

// Model declares a dat.Model containing m. Its elements may be ID and Ref
// declarations.
func Model(m mesh.Mesh, elements ...element) model {
	d := model{mesh: m}
	for _, e := range elements {
		switch e := e.(type) {
		case ID:
			d.id = e
		case Ref:
			d.ref = e
		}
	}
	return d
}

type diffuse color.RGBA

func (diffuse) element() {}

// Diffuse declares the diffuse color of a Material.
func Diffuse(r, g, b uint8) diffuse {
	return diffuse{R: r, G: g, B: b, A: 255}
}

type opacity uint8

func (opacity) element() {}

// Opacity declares the opacity of a Material.
func Opacity(v uint8) opacity {
	return opacity(v)
}

type texture string

func (texture) element() {}

// Texture declares the texture file of a Material.
func Texture(path string) texture {
	return texture(path)
}

// material represents the declaration of a dat.Material.
type material struct {
	id  ID
	ref Ref
	m   dat.Material
}

func (material) primary() {}

// Material declares a dat.Material. Its elements may be ID, Ref, Diffuse,
// Opacity and Texture declarations. The material is opaque unless an Opacity
// is declared.
func Material(elements ...element) material {
	d := material{m: dat.Material{Opacity: 255}}
	for _, e := range elements {
		switch e := e.(type) {
		case ID:
			d.id = e
		case Ref:
			d.ref = e
		case diffuse:
			d.m.Diffuse = color.RGBA(e)
		case opacity:
			d.m.Opacity = uint8(e)
		case texture:
			d.m.Textured = true
			d.m.CreationTime = time.Unix(0, 0).UTC()
			d.m.Texture = string(e)
		}
	}
	return d
}

// author represents the declaration of a dat.AuthorInfo.
type author struct {
	name        string
	description string
}

func (author) primary() {}

// Author declares a dat.AuthorInfo.
func Author(name, description string) author {
	return author{name: name, description: description}
}
