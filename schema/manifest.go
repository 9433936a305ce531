package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/skwas/datfile/field"
	"gopkg.in/yaml.v3"
)

//go:embed manifest.schema.json
var manifestSchemaSource string

var manifestSchema = jsonschema.MustCompileString("manifest.schema.json", manifestSchemaSource)

// Manifest declares record types and controller schemas.
//
//	types:
//	  - name: KeyFrame
//	    fields:
//	      - {name: Time, type: float32}
//	      - {name: Value, type: vec3}
//	controllers:
//	  - name: PositionAnimation
//	    profiles: [SH5, SH4]
//	    fields:
//	      - {name: Frames, type: list(KeyFrame)}
//	      - {name: Loop, type: optional(bool), optional: true}
//
// Types default to raw mode and controllers to named mode. A type must be
// declared before it is referenced.
type Manifest struct {
	Types       []Declaration `yaml:"types"`
	Controllers []Declaration `yaml:"controllers"`
}

// Declaration declares one schema.
type Declaration struct {
	Name     string             `yaml:"name"`
	Mode     string             `yaml:"mode,omitempty"`
	Profiles []string           `yaml:"profiles,omitempty"`
	Fields   []FieldDeclaration `yaml:"fields"`
}

// FieldDeclaration declares one field. Type is a type expression parsed by
// ParseType.
type FieldDeclaration struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Optional bool   `yaml:"optional,omitempty"`
}

// ParseManifest decodes and validates a YAML manifest.
func ParseManifest(b []byte) (*Manifest, error) {
	var doc interface{}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	// The validator works on JSON values.
	j, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	var v interface{}
	if err := json.Unmarshal(j, &v); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	if err := manifestSchema.Validate(v); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("manifest: %w", err)
	}
	return &m, nil
}

// LoadManifest reads and parses the manifest file at path.
func LoadManifest(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := ParseManifest(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func parseMode(s string, def field.Mode) (field.Mode, error) {
	switch strings.ToLower(s) {
	case "":
		return def, nil
	case "raw":
		return field.Raw, nil
	case "named":
		return field.Named, nil
	}
	return def, fmt.Errorf("unknown mode %q", s)
}

func (d Declaration) schema(def field.Mode, lookup func(string) *field.Type) (*field.Schema, error) {
	mode, err := parseMode(d.Mode, def)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Name, err)
	}
	fields := make([]field.Field, len(d.Fields))
	for i, f := range d.Fields {
		t, err := ParseType(f.Type, lookup)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", d.Name, f.Name, err)
		}
		fields[i] = field.Field{Name: f.Name, Type: t, Optional: f.Optional}
	}
	return field.NewSchema(d.Name, mode, fields...)
}

// Register builds the schemas declared by m and adds the controllers to r.
// Type expressions may refer to the declared types and to the types in custom,
// keyed by name.
func (m *Manifest) Register(r *Registry, custom map[string]*field.Type) error {
	types := make(map[string]*field.Type, len(custom)+len(m.Types))
	for name, t := range custom {
		types[strings.ToLower(name)] = t
	}
	lookup := func(name string) *field.Type {
		return types[strings.ToLower(name)]
	}

	for _, d := range m.Types {
		s, err := d.schema(field.Raw, lookup)
		if err != nil {
			return err
		}
		types[strings.ToLower(d.Name)] = field.RecordOf(s)
	}

	for _, d := range m.Controllers {
		s, err := d.schema(field.Named, lookup)
		if err != nil {
			return err
		}
		for _, name := range d.Profiles {
			p, ok := ParseProfile(name)
			if !ok {
				return fmt.Errorf("%s: %w %q", d.Name, ErrInvalidProfile, name)
			}
			if err := r.Register(p, s); err != nil {
				return err
			}
		}
	}
	return nil
}
