package controller

import (
	_ "embed"
	"sync"

	"github.com/skwas/datfile/field"
	"github.com/skwas/datfile/mesh"
	"github.com/skwas/datfile/schema"
	"github.com/skwas/datfile/statemachine"
)

//go:embed controllers.yaml
var catalogSource []byte

// StateMachineCtl is the schema of the state machine controller.
var StateMachineCtl = field.MustSchema("StateMachineCtl", field.Named,
	field.Field{Name: "GraphName", Type: field.String},
	field.Field{Name: "Graph", Type: statemachine.Type},
)

// CustomTypes returns the custom field types that manifests may refer to by
// name.
func CustomTypes() map[string]*field.Type {
	return map[string]*field.Type{
		"compressed_vec3": mesh.CompressedVec3,
		"compressed_vec2": mesh.CompressedVec2,
		"statemachine":    statemachine.Type,
	}
}

// NewCatalog returns a new registry containing the built-in controller
// schemas.
func NewCatalog() (*schema.Registry, error) {
	m, err := schema.ParseManifest(catalogSource)
	if err != nil {
		return nil, err
	}
	r := schema.NewRegistry()
	if err := m.Register(r, CustomTypes()); err != nil {
		return nil, err
	}
	for _, p := range []schema.Profile{schema.SH5, schema.SH4} {
		if err := r.Register(p, StateMachineCtl); err != nil {
			return nil, err
		}
	}
	return r, nil
}

var builtin = sync.OnceValue(func() *schema.Registry {
	r, err := NewCatalog()
	if err != nil {
		panic(err)
	}
	return r
})

// Builtin returns the shared registry of built-in schemas. Schemas registered
// to it are visible to every resolver that uses the built-in catalog.
func Builtin() *schema.Registry {
	return builtin()
}
