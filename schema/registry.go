// Package schema holds the controller schemas known for each game version
// profile.
//
// Schemas are registered from Go declarations or from a YAML manifest. A
// Registry is safe for concurrent use.
package schema

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/skwas/datfile/field"
)

// Profile identifies the game version a schema was declared for.
type Profile uint8

// Profiles, ordered from newest to oldest.
const (
	SH5 Profile = iota
	SH4
	SH3

	numProfiles
)

// Profiles lists every profile in resolution order.
var Profiles = [...]Profile{SH5, SH4, SH3}

func (p Profile) String() string {
	switch p {
	case SH5:
		return "SH5"
	case SH4:
		return "SH4"
	case SH3:
		return "SH3"
	}
	return fmt.Sprintf("Profile(%d)", uint8(p))
}

// Valid returns whether p is a known profile.
func (p Profile) Valid() bool {
	return p < numProfiles
}

// ParseProfile returns the profile named s, ignoring case.
func ParseProfile(s string) (Profile, bool) {
	for _, p := range Profiles {
		if strings.EqualFold(s, p.String()) {
			return p, true
		}
	}
	return 0, false
}

// SplitHint splits a name hint of the form "SH4:Name" into its profile and
// name. If the hint has no profile prefix, ok is false and name is the hint.
func SplitHint(hint string) (p Profile, name string, ok bool) {
	prefix, rest, found := strings.Cut(hint, ":")
	if !found {
		return 0, hint, false
	}
	if p, ok = ParseProfile(prefix); !ok {
		return 0, hint, false
	}
	return p, rest, true
}

var (
	ErrInvalidProfile = errors.New("invalid profile")
	ErrRegistered     = errors.New("schema already registered")
)

// Candidate is a schema that may decode a controller.
type Candidate struct {
	Profile Profile
	Schema  *field.Schema
}

// Registry maps controller names to a schema per profile. Names are matched
// without regard to case.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]*[numProfiles]*field.Schema
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{schemas: map[string]*[numProfiles]*field.Schema{}}
}

// Register adds s as the schema of its name under profile p. It is an error to
// register the same name twice for one profile.
func (r *Registry) Register(p Profile, s *field.Schema) error {
	if !p.Valid() {
		return fmt.Errorf("register %s: %w", s.Name(), ErrInvalidProfile)
	}
	key := strings.ToLower(s.Name())
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.schemas[key]
	if set == nil {
		set = new([numProfiles]*field.Schema)
		r.schemas[key] = set
	}
	if set[p] != nil {
		return fmt.Errorf("register %s for %s: %w", s.Name(), p, ErrRegistered)
	}
	set[p] = s
	return nil
}

// MustRegister is like Register, but panics on error.
func (r *Registry) MustRegister(s *field.Schema, profiles ...Profile) {
	for _, p := range profiles {
		if err := r.Register(p, s); err != nil {
			panic(err)
		}
	}
}

// Lookup returns the schema of name for profile p, or nil.
func (r *Registry) Lookup(p Profile, name string) *field.Schema {
	if !p.Valid() {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if set := r.schemas[strings.ToLower(name)]; set != nil {
		return set[p]
	}
	return nil
}

// Candidates returns the schemas that may decode a controller named by hint,
// from newest to oldest profile. A hint prefixed with a profile, such as
// "SH4:Name", restricts the result to that profile.
func (r *Registry) Candidates(hint string) []Candidate {
	p, name, restricted := SplitHint(hint)
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.schemas[strings.ToLower(name)]
	if set == nil {
		return nil
	}
	if restricted {
		if set[p] == nil {
			return nil
		}
		return []Candidate{{Profile: p, Schema: set[p]}}
	}
	var c []Candidate
	for _, p := range Profiles {
		if set[p] != nil {
			c = append(c, Candidate{Profile: p, Schema: set[p]})
		}
	}
	return c
}

// Names returns the sorted names of all registered controllers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.schemas))
	for _, set := range r.schemas {
		for _, s := range set {
			if s != nil {
				names = append(names, s.Name())
				break
			}
		}
	}
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

// Len returns the number of registered controller names.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.schemas)
}
