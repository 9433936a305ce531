package dat

import (
	"io"
	"sync"

	"github.com/anaminus/parse"
	"github.com/skwas/datfile/controller"
)

// ControllerData holds the record of the Controller chunk that precedes it.
// It shares the magic of Controller; the decoder pairs a magic-10 chunk that
// directly follows an unpaired Controller with that controller.
//
// The record is decoded on the first call to Value. Until then, and whenever
// decoding fails, the chunk keeps the raw payload and writes it back as is.
// The methods of ControllerData are safe for concurrent use.
type ControllerData struct {
	Header

	mu       sync.Mutex
	raw      []byte
	hint     string
	resolver *controller.Resolver
	decoded  bool
	value    *controller.Controller
	err      error
}

// NewControllerData returns a ControllerData holding c.
func NewControllerData(c *controller.Controller) *ControllerData {
	d := &ControllerData{}
	d.SetValue(c)
	return d
}

func (*ControllerData) Magic() Magic { return MagicController }

// Bind sets the name hint and the resolver used to decode the record. A nil
// resolver uses controller.DefaultResolver. Binding resets any decoded value
// that was not set with SetValue.
func (d *ControllerData) Bind(hint string, r *controller.Resolver) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hint = hint
	d.resolver = r
	if d.raw != nil {
		d.decoded = false
		d.value = nil
		d.err = nil
	}
}

// Hint returns the name hint bound to the data.
func (d *ControllerData) Hint() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.hint
}

func (d *ControllerData) res() *controller.Resolver {
	if d.resolver == nil {
		return controller.DefaultResolver
	}
	return d.resolver
}

// Value returns the decoded record. The record is decoded once; later calls
// return the same value and error.
func (d *ControllerData) Value() (*controller.Controller, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.decoded {
		d.value, d.err = d.res().Resolve(d.hint, d.raw)
		d.decoded = true
	}
	return d.value, d.err
}

// SetValue replaces the record with c.
func (d *ControllerData) SetValue(c *controller.Controller) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.value = c
	d.err = nil
	d.decoded = true
}

// Decoded returns whether the record has been decoded or set.
func (d *ControllerData) Decoded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.decoded
}

// Raw returns the payload as read by ReadFrom.
func (d *ControllerData) Raw() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.raw
}

func (d *ControllerData) ReadFrom(r io.Reader) (n int64, err error) {
	fr := parse.NewBinaryReader(r)
	raw, _ := fr.All()
	d.mu.Lock()
	d.raw = raw
	d.decoded = false
	d.value = nil
	d.err = nil
	d.mu.Unlock()
	return fr.End()
}

// WriteTo writes the record. A record that has not been decoded, or failed to
// decode, is written as the raw payload.
func (d *ControllerData) WriteTo(w io.Writer) (n int64, err error) {
	d.mu.Lock()
	raw, value, res := d.raw, d.value, d.res()
	d.mu.Unlock()

	fw := parse.NewBinaryWriter(w)
	if value == nil {
		fw.Bytes(raw)
		return fw.End()
	}
	b, err := res.Encode(value)
	if fw.Add(0, err) {
		return fw.End()
	}
	fw.Bytes(b)
	return fw.End()
}
