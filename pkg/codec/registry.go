package codec

import (
	"math"

	"github.com/pkg/errors"

	"github.com/ndegiovanni/hywire/pkg/schema"
	"github.com/ndegiovanni/hywire/pkg/wire"
)

// Registry is an explicit messageId -> codec table. The connection layer
// builds one during process initialization, registers every schema it speaks,
// and passes it to whatever needs to dispatch on incoming ids. There is no
// global registry and no reflection-based discovery.
//
// A Registry is immutable once registration is done; registration itself is
// not safe for concurrent use.
type Registry struct {
	codecs map[uint32]*MessageCodec
	order  []uint32
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{codecs: make(map[uint32]*MessageCodec)}
}

// Register adds a schema and returns its codec. Registering two schemas with
// the same message id is an error.
func (r *Registry) Register(s *schema.Schema) (*MessageCodec, error) {
	if prev, ok := r.codecs[s.ID()]; ok {
		return nil, errors.Errorf("codec: message id %d already registered to %s", s.ID(), prev.Schema().Name())
	}
	c := New(s)
	r.codecs[s.ID()] = c
	r.order = append(r.order, s.ID())
	return c, nil
}

// MustRegister is Register for init-time tables; it panics on error.
func (r *Registry) MustRegister(s *schema.Schema) *MessageCodec {
	c, err := r.Register(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the codec registered for id.
func (r *Registry) Lookup(id uint32) (*MessageCodec, bool) {
	c, ok := r.codecs[id]
	return c, ok
}

// Schemas returns the registered schemas in registration order.
func (r *Registry) Schemas() []*schema.Schema {
	out := make([]*schema.Schema, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.codecs[id].Schema())
	}
	return out
}

// dispatch peeks the leading message id and resolves its codec without
// moving the read position. An id nobody registered is malformed.
func (r *Registry) dispatch(buf *wire.Buffer) (*MessageCodec, error) {
	id, _, err := buf.PeekUvarint(buf.ReadPos())
	if err != nil {
		return nil, errors.Wrap(err, "message id")
	}
	if id > math.MaxUint32 {
		return nil, errors.Wrapf(wire.ErrMalformed, "message id %d out of range", id)
	}
	c, ok := r.codecs[uint32(id)]
	if !ok {
		return nil, errors.Wrapf(wire.ErrMalformed, "unknown message id %d", id)
	}
	return c, nil
}

// Decode dispatches on the buffer's leading message id and decodes the
// message with the matching codec.
func (r *Registry) Decode(buf *wire.Buffer) (*Record, error) {
	c, err := r.dispatch(buf)
	if err != nil {
		return nil, err
	}
	return c.Decode(buf)
}

// Validate dispatches on the buffer's leading message id and structurally
// validates the message with the matching codec.
func (r *Registry) Validate(buf *wire.Buffer) ValidationResult {
	c, err := r.dispatch(buf)
	if err != nil {
		return ValidationResult{Err: err}
	}
	return c.Validate(buf)
}
