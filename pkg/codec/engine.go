package codec

import (
	"github.com/pkg/errors"

	"github.com/ndegiovanni/hywire/pkg/schema"
	"github.com/ndegiovanni/hywire/pkg/wire"
)

// MaxMessageSize caps a single encoded message at 1 GiB. Offsets and lengths
// beyond it are rejected as malformed before any allocation happens.
const MaxMessageSize = 1 << 30

// offsetEntrySize is the fixed width of one offset-table entry.
const offsetEntrySize = 4

// MessageCodec drives serialize, deserialize, structural validation and size
// computation for one schema. It is stateless: every call is independent
// given a Record or a Buffer, and a MessageCodec is safe to share across
// goroutines.
type MessageCodec struct {
	schema *schema.Schema
}

// New returns the codec for a schema.
func New(s *schema.Schema) *MessageCodec {
	return &MessageCodec{schema: s}
}

// Schema returns the schema this codec encodes.
func (c *MessageCodec) Schema() *schema.Schema { return c.schema }

// Size returns the exact number of bytes Encode will produce for rec.
func (c *MessageCodec) Size(rec *Record) (int, error) {
	if rec.schema != c.schema {
		return 0, errors.Errorf("codec: record conforms to schema %s, codec is for %s", rec.schema.Name(), c.schema.Name())
	}
	size := wire.UvarintSize(uint64(c.schema.ID()))
	size += wire.BitmaskLen(c.schema.NullableCount())
	for i := 0; i < c.schema.NumFields(); i++ {
		f := c.schema.Field(i)
		if rec.present[i] && f.Kind.Fixed() {
			size += f.Kind.Width()
		}
	}
	for _, i := range c.schema.VariableFields() {
		if !rec.present[i] {
			continue
		}
		size += offsetEntrySize + payloadSize(c.schema.Field(i).Kind, rec.values[i])
	}
	if size > MaxMessageSize {
		return 0, errors.Wrapf(wire.ErrMalformed, "message %s is %d bytes, limit %d", c.schema.Name(), size, MaxMessageSize)
	}
	return size, nil
}

func payloadSize(k schema.Kind, v any) int {
	switch k.Class() {
	case schema.ClassBytes:
		b := v.([]byte)
		return wire.UvarintSize(uint64(len(b))) + len(b)
	case schema.ClassString:
		s := v.(string)
		return wire.UvarintSize(uint64(len(s))) + len(s)
	case schema.ClassArray:
		elem := k.Elem()
		switch elem.Class() {
		case schema.ClassScalar:
			u := v.([]uint64)
			return wire.UvarintSize(uint64(len(u))) + len(u)*elem.Width()
		case schema.ClassString:
			ss := v.([]string)
			n := wire.UvarintSize(uint64(len(ss)))
			for _, s := range ss {
				n += wire.UvarintSize(uint64(len(s))) + len(s)
			}
			return n
		case schema.ClassBytes:
			bs := v.([][]byte)
			n := wire.UvarintSize(uint64(len(bs)))
			for _, b := range bs {
				n += wire.UvarintSize(uint64(len(b))) + len(b)
			}
			return n
		}
	}
	panic("codec: payloadSize on fixed kind")
}

// Encode serializes rec onto buf. Capacity is checked up front against Size,
// so a failed Encode never leaves a torn partial write behind.
func (c *MessageCodec) Encode(rec *Record, buf *wire.Buffer) error {
	size, err := c.Size(rec)
	if err != nil {
		return err
	}
	if buf.Writable() < size {
		return errors.Wrapf(wire.ErrCapacityExceeded, "message %s needs %d bytes, %d writable", c.schema.Name(), size, buf.Writable())
	}
	if err := buf.WriteUvarint(uint64(c.schema.ID())); err != nil {
		return err
	}
	flags := make([]bool, c.schema.NullableCount())
	for i := 0; i < c.schema.NumFields(); i++ {
		if bit := c.schema.BitIndex(i); bit >= 0 {
			flags[bit] = rec.present[i]
		}
	}
	if err := buf.WriteBytes(wire.PackBits(flags)); err != nil {
		return err
	}
	for i := 0; i < c.schema.NumFields(); i++ {
		f := c.schema.Field(i)
		if !rec.present[i] || !f.Kind.Fixed() {
			continue
		}
		if err := writeFixed(buf, f.Kind, rec.values[i]); err != nil {
			return err
		}
	}
	off := 0
	for _, i := range c.schema.VariableFields() {
		if !rec.present[i] {
			continue
		}
		if err := buf.WriteUint32(uint32(off)); err != nil {
			return err
		}
		off += payloadSize(c.schema.Field(i).Kind, rec.values[i])
	}
	for _, i := range c.schema.VariableFields() {
		if !rec.present[i] {
			continue
		}
		if err := writePayload(buf, c.schema.Field(i).Kind, rec.values[i]); err != nil {
			return err
		}
	}
	return nil
}

func writeScalar(buf *wire.Buffer, width int, v uint64) error {
	switch width {
	case 1:
		return buf.WriteUint8(uint8(v))
	case 2:
		return buf.WriteUint16(uint16(v))
	case 4:
		return buf.WriteUint32(uint32(v))
	default:
		return buf.WriteUint64(v)
	}
}

func writeFixed(buf *wire.Buffer, k schema.Kind, v any) error {
	if k.Class() == schema.ClassScalar {
		return writeScalar(buf, k.Width(), v.(uint64))
	}
	lanes := v.([]uint64)
	for j, lv := range lanes {
		if err := writeScalar(buf, k.Lane(j), lv); err != nil {
			return err
		}
	}
	return nil
}

func writePayload(buf *wire.Buffer, k schema.Kind, v any) error {
	switch k.Class() {
	case schema.ClassBytes:
		b := v.([]byte)
		if err := buf.WriteUvarint(uint64(len(b))); err != nil {
			return err
		}
		return buf.WriteBytes(b)
	case schema.ClassString:
		s := v.(string)
		if err := buf.WriteUvarint(uint64(len(s))); err != nil {
			return err
		}
		return buf.WriteBytes([]byte(s))
	case schema.ClassArray:
		elem := k.Elem()
		switch elem.Class() {
		case schema.ClassScalar:
			u := v.([]uint64)
			if err := buf.WriteUvarint(uint64(len(u))); err != nil {
				return err
			}
			for _, ev := range u {
				if err := writeScalar(buf, elem.Width(), ev); err != nil {
					return err
				}
			}
			return nil
		case schema.ClassString:
			ss := v.([]string)
			if err := buf.WriteUvarint(uint64(len(ss))); err != nil {
				return err
			}
			for _, s := range ss {
				if err := buf.WriteUvarint(uint64(len(s))); err != nil {
					return err
				}
				if err := buf.WriteBytes([]byte(s)); err != nil {
					return err
				}
			}
			return nil
		case schema.ClassBytes:
			bs := v.([][]byte)
			if err := buf.WriteUvarint(uint64(len(bs))); err != nil {
				return err
			}
			for _, b := range bs {
				if err := buf.WriteUvarint(uint64(len(b))); err != nil {
					return err
				}
				if err := buf.WriteBytes(b); err != nil {
					return err
				}
			}
			return nil
		}
	}
	panic("codec: writePayload on fixed kind")
}

// Decode deserializes one message from buf, consuming all unread bytes on
// success. The returned Record copies out of the buffer and shares no
// storage with it. On failure the read position is unchanged.
func (c *MessageCodec) Decode(buf *wire.Buffer) (*Record, error) {
	rec, n, err := c.traverse(buf, true)
	if err != nil {
		return nil, err
	}
	if err := buf.Skip(n); err != nil {
		return nil, err
	}
	return rec, nil
}

// Validate performs the same traversal as Decode but only checks bounds,
// offset ordering and bitmask consistency; it never allocates payload values
// and never moves the read position. It is meant to run before Decode on any
// buffer from an untrusted peer, so rejecting malformed input costs work
// proportional to the field count, not to attacker-claimed lengths.
func (c *MessageCodec) Validate(buf *wire.Buffer) ValidationResult {
	_, n, err := c.traverse(buf, false)
	if err != nil {
		return ValidationResult{Err: err}
	}
	return ValidationResult{OK: true, BytesConsumed: n}
}

// traverse walks one message using absolute peeks only, from the current read
// position through writePos. With materialize set it builds the Record;
// without, it performs the identical structural checks and allocates nothing
// proportional to payload sizes.
func (c *MessageCodec) traverse(buf *wire.Buffer, materialize bool) (*Record, int, error) {
	start := buf.ReadPos()
	pos := start

	id, n, err := buf.PeekUvarint(pos)
	if err != nil {
		return nil, 0, errors.Wrap(err, "message id")
	}
	if id != uint64(c.schema.ID()) {
		return nil, 0, errors.Wrapf(wire.ErrMalformed, "message id %d, want %d (%s)", id, c.schema.ID(), c.schema.Name())
	}
	pos += n

	maskLen := wire.BitmaskLen(c.schema.NullableCount())
	maskBytes, err := buf.PeekBytes(pos, maskLen)
	if err != nil {
		return nil, 0, errors.Wrap(err, "presence bitmask")
	}
	flags, err := wire.UnpackBits(maskBytes, c.schema.NullableCount())
	if err != nil {
		return nil, 0, err
	}
	pos += maskLen

	nf := c.schema.NumFields()
	present := make([]bool, nf)
	for i := 0; i < nf; i++ {
		if bit := c.schema.BitIndex(i); bit >= 0 {
			present[i] = flags[bit]
		} else {
			present[i] = true
		}
	}

	var rec *Record
	if materialize {
		rec = &Record{schema: c.schema, present: present, values: make([]any, nf)}
	}

	for i := 0; i < nf; i++ {
		f := c.schema.Field(i)
		if !present[i] || !f.Kind.Fixed() {
			continue
		}
		if materialize {
			v, err := peekFixed(buf, pos, f.Kind)
			if err != nil {
				return nil, 0, errors.Wrapf(err, "field %q", f.Name)
			}
			rec.values[i] = v
		} else if _, err := buf.PeekBytes(pos, f.Kind.Width()); err != nil {
			return nil, 0, errors.Wrapf(err, "field %q", f.Name)
		}
		pos += f.Kind.Width()
	}

	var presentVar []int
	for _, i := range c.schema.VariableFields() {
		if present[i] {
			presentVar = append(presentVar, i)
		}
	}
	offsets := make([]int, len(presentVar))
	for j := range presentVar {
		v, err := buf.PeekUint32(pos)
		if err != nil {
			return nil, 0, errors.Wrap(err, "offset table")
		}
		if v > MaxMessageSize {
			return nil, 0, errors.Wrapf(wire.ErrMalformed, "offset %d exceeds message size limit", v)
		}
		offsets[j] = int(v)
		pos += offsetEntrySize
	}

	dataStart := pos
	dataLen := buf.WritePos() - dataStart

	if len(presentVar) == 0 {
		if dataLen != 0 {
			return nil, 0, errors.Wrapf(wire.ErrMalformed, "%d trailing bytes after fixed fields", dataLen)
		}
		return rec, pos - start, nil
	}

	if offsets[0] != 0 {
		return nil, 0, errors.Wrapf(wire.ErrMalformed, "first offset is %d, want 0", offsets[0])
	}
	for j := range offsets {
		if offsets[j] > dataLen {
			return nil, 0, errors.Wrapf(wire.ErrMalformed, "offset %d past data region of %d bytes", offsets[j], dataLen)
		}
		if j > 0 && offsets[j] < offsets[j-1] {
			return nil, 0, errors.Wrapf(wire.ErrMalformed, "offsets not monotonic: %d after %d", offsets[j], offsets[j-1])
		}
	}

	for j, i := range presentVar {
		f := c.schema.Field(i)
		end := dataLen
		if j+1 < len(offsets) {
			end = offsets[j+1]
		}
		extent, err := buf.PeekBytes(dataStart+offsets[j], end-offsets[j])
		if err != nil {
			return nil, 0, errors.Wrapf(err, "field %q", f.Name)
		}
		v, err := decodePayload(extent, f.Kind, materialize)
		if err != nil {
			return nil, 0, errors.Wrapf(err, "field %q", f.Name)
		}
		if materialize {
			rec.values[i] = v
		}
	}

	return rec, dataStart + dataLen - start, nil
}

func peekScalar(buf *wire.Buffer, at, width int) (uint64, error) {
	switch width {
	case 1:
		v, err := buf.PeekUint8(at)
		return uint64(v), err
	case 2:
		v, err := buf.PeekUint16(at)
		return uint64(v), err
	case 4:
		v, err := buf.PeekUint32(at)
		return uint64(v), err
	default:
		return buf.PeekUint64(at)
	}
}

func peekFixed(buf *wire.Buffer, at int, k schema.Kind) (any, error) {
	if k.Class() == schema.ClassScalar {
		return peekScalar(buf, at, k.Width())
	}
	lanes := make([]uint64, k.NumLanes())
	for j := range lanes {
		v, err := peekScalar(buf, at, k.Lane(j))
		if err != nil {
			return nil, err
		}
		lanes[j] = v
		at += k.Lane(j)
	}
	return lanes, nil
}

// extentMalformed reclassifies errors from decoding inside a field extent.
// The extent's bounds came from the offset table, so running out of bytes
// inside it is an inconsistency, never a short buffer.
func extentMalformed(err error) error {
	if wire.IsTruncated(err) {
		return errors.Wrap(wire.ErrMalformed, "payload ends inside its extent")
	}
	return err
}

// decodePayload checks that a variable field's payload exactly fills the
// extent carved out for it by the offset table, and materializes the value
// when asked to. All failures are malformed: the extent is already trusted
// to be in bounds.
func decodePayload(extent []byte, k schema.Kind, materialize bool) (any, error) {
	switch k.Class() {
	case schema.ClassBytes, schema.ClassString:
		ln, n, err := wire.Uvarint(extent)
		if err != nil {
			return nil, extentMalformed(err)
		}
		if ln != uint64(len(extent)-n) {
			return nil, errors.Wrapf(wire.ErrMalformed, "length prefix %d disagrees with extent of %d bytes", ln, len(extent)-n)
		}
		if !materialize {
			return nil, nil
		}
		if k.Class() == schema.ClassString {
			return string(extent[n:]), nil
		}
		cp := make([]byte, len(extent)-n)
		copy(cp, extent[n:])
		return cp, nil
	case schema.ClassArray:
		return decodeArray(extent, k.Elem(), materialize)
	}
	panic("codec: decodePayload on fixed kind")
}

func decodeArray(extent []byte, elem schema.Kind, materialize bool) (any, error) {
	cnt, n, err := wire.Uvarint(extent)
	if err != nil {
		return nil, extentMalformed(err)
	}
	body := extent[n:]
	// Every element costs at least one byte, so a count beyond the extent
	// length can be rejected before any allocation.
	if cnt > uint64(len(body)) {
		return nil, errors.Wrapf(wire.ErrMalformed, "array count %d cannot fit %d payload bytes", cnt, len(body))
	}
	count := int(cnt)

	switch elem.Class() {
	case schema.ClassScalar:
		width := elem.Width()
		if count*width != len(body) {
			return nil, errors.Wrapf(wire.ErrMalformed, "array of %d width-%d elements disagrees with %d payload bytes", count, width, len(body))
		}
		if !materialize {
			return nil, nil
		}
		out := make([]uint64, count)
		for i := 0; i < count; i++ {
			out[i] = readScalarLE(body[i*width:(i+1)*width])
		}
		return out, nil
	case schema.ClassString, schema.ClassBytes:
		var outS []string
		var outB [][]byte
		if materialize {
			if elem.Class() == schema.ClassString {
				outS = make([]string, 0, count)
			} else {
				outB = make([][]byte, 0, count)
			}
		}
		rest := body
		for i := 0; i < count; i++ {
			ln, n, err := wire.Uvarint(rest)
			if err != nil {
				return nil, extentMalformed(err)
			}
			if ln > uint64(len(rest)-n) {
				return nil, errors.Wrapf(wire.ErrMalformed, "array element %d of %d bytes overruns extent", i, ln)
			}
			if materialize {
				if elem.Class() == schema.ClassString {
					outS = append(outS, string(rest[n:n+int(ln)]))
				} else {
					cp := make([]byte, ln)
					copy(cp, rest[n:n+int(ln)])
					outB = append(outB, cp)
				}
			}
			rest = rest[n+int(ln):]
		}
		if len(rest) != 0 {
			return nil, errors.Wrapf(wire.ErrMalformed, "%d slack bytes after array elements", len(rest))
		}
		if elem.Class() == schema.ClassString {
			return outS, nil
		}
		return outB, nil
	}
	panic("codec: array element kind")
}

func readScalarLE(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
