// Package schema describes message layouts for the hywire codec.
//
// A Schema is an ordered, immutable list of field descriptors plus a stable
// numeric message id. Field order is fixed at construction time and
// determines both the presence-bitmask bit order and the offset-table slot
// order on the wire; reordering fields is a breaking wire-format change and
// is never performed at runtime. Schemas are built once at process start and
// are safe to share across goroutines without synchronization.
package schema

import (
	"fmt"

	"github.com/pkg/errors"
)

// Class partitions field kinds by their wire behavior.
type Class uint8

const (
	// ClassScalar is a fixed-width unsigned integer of 1, 2, 4 or 8 bytes.
	ClassScalar Class = iota + 1
	// ClassStruct is a fixed-width group of scalar lanes, e.g. a vec3 of
	// three 4-byte lanes. It occupies the sum of its lane widths inline.
	ClassStruct
	// ClassBytes is a variable-length byte string.
	ClassBytes
	// ClassString is a variable-length UTF-8 string.
	ClassString
	// ClassArray is a variable-length sequence of a single element kind.
	ClassArray
)

func (c Class) String() string {
	switch c {
	case ClassScalar:
		return "scalar"
	case ClassStruct:
		return "struct"
	case ClassBytes:
		return "bytes"
	case ClassString:
		return "string"
	case ClassArray:
		return "array"
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// Kind describes one field's wire shape. Kinds are immutable values built
// with the Scalar, Struct, Bytes, String and Array constructors.
type Kind struct {
	class Class
	width int
	lanes []int
	elem  *Kind
}

func validWidth(w int) bool {
	return w == 1 || w == 2 || w == 4 || w == 8
}

// Scalar returns a fixed-width unsigned integer kind. width must be 1, 2, 4
// or 8; anything else is a programming error and panics.
func Scalar(width int) Kind {
	if !validWidth(width) {
		panic(fmt.Sprintf("schema: invalid scalar width %d", width))
	}
	return Kind{class: ClassScalar, width: width}
}

// Struct returns a fixed-width kind made of scalar lanes. Each lane width
// must be 1, 2, 4 or 8 and at least one lane is required.
func Struct(lanes ...int) Kind {
	if len(lanes) == 0 {
		panic("schema: struct kind needs at least one lane")
	}
	total := 0
	for _, w := range lanes {
		if !validWidth(w) {
			panic(fmt.Sprintf("schema: invalid struct lane width %d", w))
		}
		total += w
	}
	cp := make([]int, len(lanes))
	copy(cp, lanes)
	return Kind{class: ClassStruct, width: total, lanes: cp}
}

// Bytes returns the variable-length byte string kind.
func Bytes() Kind { return Kind{class: ClassBytes} }

// String returns the variable-length UTF-8 string kind.
func String() Kind { return Kind{class: ClassString} }

// Array returns a variable-length sequence kind. The element kind must be a
// scalar, bytes or string; nesting arrays or structs inside arrays is not
// part of the wire format and panics.
func Array(elem Kind) Kind {
	switch elem.class {
	case ClassScalar, ClassBytes, ClassString:
	default:
		panic(fmt.Sprintf("schema: array of %s not supported", elem.class))
	}
	e := elem
	return Kind{class: ClassArray, elem: &e}
}

// Class returns the kind's class.
func (k Kind) Class() Class { return k.class }

// Fixed reports whether the kind occupies a fixed byte width inline.
func (k Kind) Fixed() bool { return k.class == ClassScalar || k.class == ClassStruct }

// Width returns the inline byte width of a fixed kind, zero otherwise.
func (k Kind) Width() int { return k.width }

// Lanes returns a copy of a struct kind's lane widths, nil otherwise.
func (k Kind) Lanes() []int {
	if k.lanes == nil {
		return nil
	}
	cp := make([]int, len(k.lanes))
	copy(cp, k.lanes)
	return cp
}

// NumLanes returns a struct kind's lane count, zero otherwise.
func (k Kind) NumLanes() int { return len(k.lanes) }

// Lane returns the width of lane i of a struct kind.
func (k Kind) Lane(i int) int { return k.lanes[i] }

// Elem returns an array kind's element kind.
func (k Kind) Elem() Kind {
	if k.elem == nil {
		return Kind{}
	}
	return *k.elem
}

func (k Kind) String() string {
	switch k.class {
	case ClassScalar:
		return fmt.Sprintf("scalar%d", k.width)
	case ClassStruct:
		return fmt.Sprintf("struct%v", k.lanes)
	case ClassArray:
		return fmt.Sprintf("array[%s]", k.elem)
	default:
		return k.class.String()
	}
}

// Field is one entry in a schema: a name, a wire kind, and whether the field
// may be absent on the wire.
type Field struct {
	Name     string
	Kind     Kind
	Nullable bool
}

// Schema is an immutable ordered field list with a stable message id.
type Schema struct {
	id     uint32
	name   string
	fields []Field

	byName  map[string]int
	bitIdx  []int // field index -> presence bit index, -1 when not nullable
	varIdx  []int // variable-length field indexes in schema order
	nullCnt int
}

// New builds a Schema. Field names must be non-empty and unique; every kind
// must come from one of the package constructors.
func New(id uint32, name string, fields ...Field) (*Schema, error) {
	if name == "" {
		return nil, errors.New("schema: empty message name")
	}
	s := &Schema{
		id:     id,
		name:   name,
		fields: make([]Field, len(fields)),
		byName: make(map[string]int, len(fields)),
		bitIdx: make([]int, len(fields)),
	}
	copy(s.fields, fields)
	for i, f := range s.fields {
		if f.Name == "" {
			return nil, errors.Errorf("schema %s: field %d has no name", name, i)
		}
		if _, dup := s.byName[f.Name]; dup {
			return nil, errors.Errorf("schema %s: duplicate field %q", name, f.Name)
		}
		if f.Kind.class == 0 {
			return nil, errors.Errorf("schema %s: field %q has no kind", name, f.Name)
		}
		s.byName[f.Name] = i
		s.bitIdx[i] = -1
		if f.Nullable {
			s.bitIdx[i] = s.nullCnt
			s.nullCnt++
		}
		if !f.Kind.Fixed() {
			s.varIdx = append(s.varIdx, i)
		}
	}
	return s, nil
}

// MustNew is New for init-time schema tables; it panics on error.
func MustNew(id uint32, name string, fields ...Field) *Schema {
	s, err := New(id, name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

// ID returns the stable numeric message id.
func (s *Schema) ID() uint32 { return s.id }

// Name returns the human-readable message name.
func (s *Schema) Name() string { return s.name }

// NumFields returns the number of fields.
func (s *Schema) NumFields() int { return len(s.fields) }

// Field returns the i-th field descriptor.
func (s *Schema) Field(i int) Field { return s.fields[i] }

// FieldIndex returns the index of the named field.
func (s *Schema) FieldIndex(name string) (int, bool) {
	i, ok := s.byName[name]
	return i, ok
}

// NullableCount returns the number of nullable fields, i.e. the presence
// bitmask's bit count.
func (s *Schema) NullableCount() int { return s.nullCnt }

// BitIndex returns field i's presence-bitmask bit index, or -1 if the field
// is not nullable.
func (s *Schema) BitIndex(i int) int { return s.bitIdx[i] }

// VariableFields returns the indexes of variable-length fields in schema
// order. The returned slice is shared and must not be modified.
func (s *Schema) VariableFields() []int { return s.varIdx }
