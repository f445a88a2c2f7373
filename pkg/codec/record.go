package codec

import (
	"github.com/pkg/errors"

	"github.com/ndegiovanni/hywire/pkg/schema"
)

// Record is an immutable, schema-shaped bag of field values. Records are
// produced by Builder.Build or MessageCodec.Decode, are owned solely by the
// caller, and are never retained by the codec. Slice-valued accessors return
// internal storage and must not be modified.
type Record struct {
	schema  *schema.Schema
	present []bool
	values  []any
}

// Schema returns the schema the record conforms to.
func (r *Record) Schema() *schema.Schema { return r.schema }

// Has reports whether the named field is present (non-null).
func (r *Record) Has(name string) bool {
	i, ok := r.schema.FieldIndex(name)
	return ok && r.present[i]
}

func (r *Record) lookup(name string, class schema.Class) (any, bool) {
	i, ok := r.schema.FieldIndex(name)
	if !ok || !r.present[i] || r.schema.Field(i).Kind.Class() != class {
		return nil, false
	}
	return r.values[i], true
}

// Uint returns a scalar field's value.
func (r *Record) Uint(name string) (uint64, bool) {
	v, ok := r.lookup(name, schema.ClassScalar)
	if !ok {
		return 0, false
	}
	return v.(uint64), true
}

// Struct returns a fixed-struct field's lane values.
func (r *Record) Struct(name string) ([]uint64, bool) {
	v, ok := r.lookup(name, schema.ClassStruct)
	if !ok {
		return nil, false
	}
	return v.([]uint64), true
}

// Bytes returns a bytes field's value.
func (r *Record) Bytes(name string) ([]byte, bool) {
	v, ok := r.lookup(name, schema.ClassBytes)
	if !ok {
		return nil, false
	}
	return v.([]byte), true
}

// String returns a string field's value.
func (r *Record) String(name string) (string, bool) {
	v, ok := r.lookup(name, schema.ClassString)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Uints returns a scalar-array field's elements.
func (r *Record) Uints(name string) ([]uint64, bool) {
	v, ok := r.lookup(name, schema.ClassArray)
	if !ok {
		return nil, false
	}
	u, ok := v.([]uint64)
	return u, ok
}

// Strings returns a string-array field's elements.
func (r *Record) Strings(name string) ([]string, bool) {
	v, ok := r.lookup(name, schema.ClassArray)
	if !ok {
		return nil, false
	}
	s, ok := v.([]string)
	return s, ok
}

// ByteSlices returns a bytes-array field's elements.
func (r *Record) ByteSlices(name string) ([][]byte, bool) {
	v, ok := r.lookup(name, schema.ClassArray)
	if !ok {
		return nil, false
	}
	b, ok := v.([][]byte)
	return b, ok
}

// Fields returns a name -> value map of the present fields, for diagnostics
// and JSON rendering. Absent fields are omitted.
func (r *Record) Fields() map[string]any {
	out := make(map[string]any, len(r.values))
	for i := 0; i < r.schema.NumFields(); i++ {
		if r.present[i] {
			out[r.schema.Field(i).Name] = r.values[i]
		}
	}
	return out
}

// Equal reports field-for-field equality, including the present-vs-null
// distinction. Records built against different schemas are never equal.
func (r *Record) Equal(o *Record) bool {
	if r == nil || o == nil {
		return r == o
	}
	if r.schema != o.schema {
		return false
	}
	for i := range r.present {
		if r.present[i] != o.present[i] {
			return false
		}
		if r.present[i] && !valueEqual(r.values[i], o.values[i]) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	switch av := a.(type) {
	case uint64:
		bv, ok := b.(uint64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case []uint64:
		bv, ok := b.([]uint64)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case []byte:
		bv, ok := b.([]byte)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case []string:
		bv, ok := b.([]string)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	case [][]byte:
		bv, ok := b.([][]byte)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valueEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Builder assembles a Record for one schema. Set calls copy their slice
// arguments, so a Builder can be reused after Build without aliasing the
// records it produced.
type Builder struct {
	schema  *schema.Schema
	present []bool
	values  []any
}

// NewBuilder returns a Builder for the given schema with all fields unset.
func NewBuilder(s *schema.Schema) *Builder {
	return &Builder{
		schema:  s,
		present: make([]bool, s.NumFields()),
		values:  make([]any, s.NumFields()),
	}
}

func (b *Builder) field(name string, class schema.Class) (int, schema.Field, error) {
	i, ok := b.schema.FieldIndex(name)
	if !ok {
		return 0, schema.Field{}, errors.Errorf("codec: schema %s has no field %q", b.schema.Name(), name)
	}
	f := b.schema.Field(i)
	if f.Kind.Class() != class {
		return 0, schema.Field{}, errors.Errorf("codec: field %q is %s, not %s", name, f.Kind, class)
	}
	return i, f, nil
}

func checkScalarRange(name string, width int, v uint64) error {
	if width < 8 && v >= 1<<(8*width) {
		return errors.Errorf("codec: value %d does not fit field %q width %d", v, name, width)
	}
	return nil
}

// SetUint sets a scalar field. The value must fit the field's byte width.
func (b *Builder) SetUint(name string, v uint64) error {
	i, f, err := b.field(name, schema.ClassScalar)
	if err != nil {
		return err
	}
	if err := checkScalarRange(name, f.Kind.Width(), v); err != nil {
		return err
	}
	b.present[i] = true
	b.values[i] = v
	return nil
}

// SetStruct sets a fixed-struct field, one value per lane.
func (b *Builder) SetStruct(name string, lanes ...uint64) error {
	i, f, err := b.field(name, schema.ClassStruct)
	if err != nil {
		return err
	}
	if len(lanes) != f.Kind.NumLanes() {
		return errors.Errorf("codec: field %q has %d lanes, got %d values", name, f.Kind.NumLanes(), len(lanes))
	}
	for j, v := range lanes {
		if err := checkScalarRange(name, f.Kind.Lane(j), v); err != nil {
			return err
		}
	}
	cp := make([]uint64, len(lanes))
	copy(cp, lanes)
	b.present[i] = true
	b.values[i] = cp
	return nil
}

// SetBytes sets a bytes field. p is copied.
func (b *Builder) SetBytes(name string, p []byte) error {
	i, _, err := b.field(name, schema.ClassBytes)
	if err != nil {
		return err
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	b.present[i] = true
	b.values[i] = cp
	return nil
}

// SetString sets a string field.
func (b *Builder) SetString(name, v string) error {
	i, _, err := b.field(name, schema.ClassString)
	if err != nil {
		return err
	}
	b.present[i] = true
	b.values[i] = v
	return nil
}

func (b *Builder) arrayField(name string, elemClass schema.Class) (int, schema.Field, error) {
	i, f, err := b.field(name, schema.ClassArray)
	if err != nil {
		return 0, schema.Field{}, err
	}
	if f.Kind.Elem().Class() != elemClass {
		return 0, schema.Field{}, errors.Errorf("codec: field %q holds %s elements, not %s", name, f.Kind.Elem(), elemClass)
	}
	return i, f, nil
}

// SetUints sets a scalar-array field. vs is copied; every element must fit
// the element width.
func (b *Builder) SetUints(name string, vs []uint64) error {
	i, f, err := b.arrayField(name, schema.ClassScalar)
	if err != nil {
		return err
	}
	width := f.Kind.Elem().Width()
	for _, v := range vs {
		if err := checkScalarRange(name, width, v); err != nil {
			return err
		}
	}
	cp := make([]uint64, len(vs))
	copy(cp, vs)
	b.present[i] = true
	b.values[i] = cp
	return nil
}

// SetStrings sets a string-array field. vs is copied.
func (b *Builder) SetStrings(name string, vs []string) error {
	i, _, err := b.arrayField(name, schema.ClassString)
	if err != nil {
		return err
	}
	cp := make([]string, len(vs))
	copy(cp, vs)
	b.present[i] = true
	b.values[i] = cp
	return nil
}

// SetByteSlices sets a bytes-array field. vs and its elements are copied.
func (b *Builder) SetByteSlices(name string, vs [][]byte) error {
	i, _, err := b.arrayField(name, schema.ClassBytes)
	if err != nil {
		return err
	}
	cp := make([][]byte, len(vs))
	for j, v := range vs {
		e := make([]byte, len(v))
		copy(e, v)
		cp[j] = e
	}
	b.present[i] = true
	b.values[i] = cp
	return nil
}

// Clear unsets the named field.
func (b *Builder) Clear(name string) error {
	i, ok := b.schema.FieldIndex(name)
	if !ok {
		return errors.Errorf("codec: schema %s has no field %q", b.schema.Name(), name)
	}
	b.present[i] = false
	b.values[i] = nil
	return nil
}

// Build returns an immutable Record. Every non-nullable field must have been
// set.
func (b *Builder) Build() (*Record, error) {
	for i := 0; i < b.schema.NumFields(); i++ {
		f := b.schema.Field(i)
		if !f.Nullable && !b.present[i] {
			return nil, errors.Errorf("codec: field %q is required", f.Name)
		}
	}
	present := make([]bool, len(b.present))
	copy(present, b.present)
	values := make([]any, len(b.values))
	copy(values, b.values)
	return &Record{schema: b.schema, present: present, values: values}, nil
}
