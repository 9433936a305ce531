package dat

import (
	"slices"
	"sync"
)

// Registry maps the magic of a chunk to a function that creates an empty
// chunk of the corresponding type. The methods of Registry are safe for
// concurrent use.
type Registry struct {
	mu    sync.RWMutex
	types map[Magic]func() Chunk
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: map[Magic]func() Chunk{}}
}

// Register associates m with the constructor fn, replacing any existing
// association.
func (r *Registry) Register(m Magic, fn func() Chunk) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.types == nil {
		r.types = map[Magic]func() Chunk{}
	}
	r.types[m] = fn
}

// New returns a new chunk for m, or nil if m is not registered.
func (r *Registry) New(m Magic) Chunk {
	r.mu.RLock()
	fn := r.types[m]
	r.mu.RUnlock()
	if fn == nil {
		return nil
	}
	return fn()
}

// Magics returns the registered magics in ascending order.
func (r *Registry) Magics() []Magic {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ms := make([]Magic, 0, len(r.types))
	for m := range r.types {
		ms = append(ms, m)
	}
	slices.Sort(ms)
	return ms
}

// NewDefaultRegistry returns a registry containing every chunk type of the
// format.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(MagicModel, func() Chunk { return &Model{} })
	r.Register(MagicMaterial, func() Chunk { return &Material{} })
	r.Register(MagicEmbeddedImage, func() Chunk { return &EmbeddedImage{} })
	r.Register(MagicNodeLink, func() Chunk { return &NodeLink{} })
	r.Register(MagicLabel, func() Chunk { return &Label{} })
	r.Register(MagicController, func() Chunk { return &Controller{} })
	r.Register(MagicPlacement, func() Chunk { return &Placement{} })
	r.Register(MagicTextureMap, func() Chunk { return &TextureMap{} })
	r.Register(MagicS3DSettings, func() Chunk { return &S3DSettings{} })
	r.Register(MagicAuthorInfo, func() Chunk { return &AuthorInfo{} })
	r.Register(MagicIndex, func() Chunk { return &Index{} })
	r.Register(MagicEof, func() Chunk { return &Eof{} })
	r.Register(MagicBodyParts, func() Chunk { return &BodyParts{} })
	r.Register(MagicBodyParts2, func() Chunk { return &BodyParts2{} })
	r.Register(MagicBoneInfluences, func() Chunk { return &BoneInfluences{} })
	return r
}

// DefaultRegistry is used by a Decoder with no registry.
var DefaultRegistry = NewDefaultRegistry()
