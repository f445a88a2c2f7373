package codec

import (
	"bytes"
	"testing"

	"github.com/ndegiovanni/hywire/pkg/schema"
	"github.com/ndegiovanni/hywire/pkg/wire"
)

// playerSchema is the two-field example layout: one nullable string and one
// required 4-byte score.
func playerSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New(21, "Player",
		schema.Field{Name: "name", Kind: schema.String(), Nullable: true},
		schema.Field{Name: "score", Kind: schema.Scalar(4)},
	)
	if err != nil {
		t.Fatalf("schema.New failed: %v", err)
	}
	return s
}

func buildPlayer(t *testing.T, s *schema.Schema, name *string, score uint64) *Record {
	t.Helper()
	b := NewBuilder(s)
	if name != nil {
		if err := b.SetString("name", *name); err != nil {
			t.Fatalf("SetString failed: %v", err)
		}
	}
	if err := b.SetUint("score", score); err != nil {
		t.Fatalf("SetUint failed: %v", err)
	}
	rec, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return rec
}

func encode(t *testing.T, c *MessageCodec, rec *Record) *wire.Buffer {
	t.Helper()
	size, err := c.Size(rec)
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	buf := wire.NewBuffer(size)
	if err := c.Encode(rec, buf); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if buf.WritePos() != size {
		t.Fatalf("Encode produced %d bytes, Size said %d", buf.WritePos(), size)
	}
	return buf
}

func TestEncode_ExactLayout_PresentString(t *testing.T) {
	s := playerSchema(t)
	c := New(s)
	name := "abc"
	rec := buildPlayer(t, s, &name, 42)

	buf := encode(t, c, rec)

	want := []byte{
		21,               // message id varint
		0x01,             // bitmask: name present
		42, 0, 0, 0,      // score, little-endian
		0, 0, 0, 0,       // offset table: name at data region start
		3, 'a', 'b', 'c', // data region: varint length + UTF-8 bytes
	}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("encoded bytes = %x, want %x", buf.Bytes(), want)
	}

	back, err := c.Decode(wire.Wrap(want))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	gotName, ok := back.String("name")
	if !ok || gotName != "abc" {
		t.Errorf("name = %q, %v", gotName, ok)
	}
	gotScore, ok := back.Uint("score")
	if !ok || gotScore != 42 {
		t.Errorf("score = %d, %v", gotScore, ok)
	}
}

func TestEncode_ExactLayout_AbsentString(t *testing.T) {
	s := playerSchema(t)
	c := New(s)
	rec := buildPlayer(t, s, nil, 7)

	size, err := c.Size(rec)
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	// Header + bitmask + score, no offset table, no data region.
	if size != 1+1+4 {
		t.Errorf("Size = %d, want 6", size)
	}

	buf := encode(t, c, rec)
	want := []byte{21, 0x00, 7, 0, 0, 0}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("encoded bytes = %x, want %x", buf.Bytes(), want)
	}

	back, err := c.Decode(wire.Wrap(want))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if back.Has("name") {
		t.Error("absent field decoded as present")
	}
	if _, ok := back.String("name"); ok {
		t.Error("String returned a value for a null field")
	}
}

func TestValidate_OffsetBeyondDataRegion(t *testing.T) {
	s := playerSchema(t)
	c := New(s)

	// Valid header and bitmask, then an offset of 0xFFFFFFFF.
	data := []byte{
		21, 0x01,
		42, 0, 0, 0,
		0xFF, 0xFF, 0xFF, 0xFF,
		3, 'a', 'b', 'c',
	}
	res := c.Validate(wire.Wrap(data))
	if res.OK || !res.Malformed() {
		t.Errorf("Validate = %+v, want malformed", res)
	}
	if _, err := c.Decode(wire.Wrap(data)); !wire.IsMalformed(err) {
		t.Errorf("Decode err = %v, want malformed", err)
	}
}

// assetSchema exercises every kind and both nullabilities.
func assetSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New(18, "Asset",
		schema.Field{Name: "flags", Kind: schema.Scalar(1)},
		schema.Field{Name: "slot", Kind: schema.Scalar(2), Nullable: true},
		schema.Field{Name: "version", Kind: schema.Scalar(4)},
		schema.Field{Name: "owner", Kind: schema.Scalar(8), Nullable: true},
		schema.Field{Name: "position", Kind: schema.Struct(4, 4, 4)},
		schema.Field{Name: "digest", Kind: schema.Struct(8, 8), Nullable: true},
		schema.Field{Name: "payload", Kind: schema.Bytes(), Nullable: true},
		schema.Field{Name: "name", Kind: schema.String()},
		schema.Field{Name: "counts", Kind: schema.Array(schema.Scalar(2))},
		schema.Field{Name: "tags", Kind: schema.Array(schema.String()), Nullable: true},
		schema.Field{Name: "chunks", Kind: schema.Array(schema.Bytes()), Nullable: true},
	)
	if err != nil {
		t.Fatalf("schema.New failed: %v", err)
	}
	return s
}

func TestRoundTrip(t *testing.T) {
	s := assetSchema(t)
	c := New(s)

	testCases := []struct {
		name  string
		build func(b *Builder)
	}{
		{
			name: "all fields present",
			build: func(b *Builder) {
				_ = b.SetUint("flags", 0x80)
				_ = b.SetUint("slot", 513)
				_ = b.SetUint("version", 70000)
				_ = b.SetUint("owner", 1<<40)
				_ = b.SetStruct("position", 1, 2, 3)
				_ = b.SetStruct("digest", 0xAAAA, 0xBBBB)
				_ = b.SetBytes("payload", []byte{0x00, 0xFF, 0x7F})
				_ = b.SetString("name", "crate")
				_ = b.SetUints("counts", []uint64{1, 2, 65535})
				_ = b.SetStrings("tags", []string{"ui", "", "inventory"})
				_ = b.SetByteSlices("chunks", [][]byte{{1}, {}, {2, 3}})
			},
		},
		{
			name: "nullables absent",
			build: func(b *Builder) {
				_ = b.SetUint("flags", 1)
				_ = b.SetUint("version", 2)
				_ = b.SetStruct("position", 0, 0, 0)
				_ = b.SetString("name", "")
				_ = b.SetUints("counts", nil)
			},
		},
		{
			name: "empty but present variable fields",
			build: func(b *Builder) {
				_ = b.SetUint("flags", 0)
				_ = b.SetUint("version", 0)
				_ = b.SetStruct("position", 9, 9, 9)
				_ = b.SetBytes("payload", nil)
				_ = b.SetString("name", "")
				_ = b.SetUints("counts", []uint64{})
				_ = b.SetStrings("tags", []string{})
				_ = b.SetByteSlices("chunks", [][]byte{})
			},
		},
		{
			name: "unicode strings",
			build: func(b *Builder) {
				_ = b.SetUint("flags", 3)
				_ = b.SetUint("version", 4)
				_ = b.SetStruct("position", 7, 8, 9)
				_ = b.SetString("name", "🔑 clé")
				_ = b.SetUints("counts", []uint64{42})
				_ = b.SetStrings("tags", []string{"émoji 🎯"})
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBuilder(s)
			tc.build(b)
			rec, err := b.Build()
			if err != nil {
				t.Fatalf("Build failed: %v", err)
			}

			buf := encode(t, c, rec)

			res := c.Validate(buf)
			if !res.OK {
				t.Fatalf("Validate failed: %v", res.Err)
			}
			if res.BytesConsumed != buf.WritePos() {
				t.Errorf("BytesConsumed = %d, want %d", res.BytesConsumed, buf.WritePos())
			}
			if buf.ReadPos() != 0 {
				t.Errorf("Validate moved readPos to %d", buf.ReadPos())
			}

			back, err := c.Decode(buf)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !back.Equal(rec) {
				t.Errorf("round trip mismatch:\n got %v\nwant %v", back.Fields(), rec.Fields())
			}
			if buf.Remaining() != 0 {
				t.Errorf("Decode left %d unread bytes", buf.Remaining())
			}
		})
	}
}

func TestValidate_AgreesWithDecode_OnTruncation(t *testing.T) {
	s := assetSchema(t)
	c := New(s)

	b := NewBuilder(s)
	_ = b.SetUint("flags", 5)
	_ = b.SetUint("slot", 6)
	_ = b.SetUint("version", 7)
	_ = b.SetStruct("position", 1, 2, 3)
	_ = b.SetBytes("payload", []byte("payload"))
	_ = b.SetString("name", "widget")
	_ = b.SetUints("counts", []uint64{10, 20})
	_ = b.SetStrings("tags", []string{"a", "bb"})
	rec, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	full := encode(t, c, rec).Bytes()

	for n := 0; n < len(full); n++ {
		prefix := wire.Wrap(full[:n])
		res := c.Validate(prefix)
		if res.OK {
			t.Errorf("prefix of %d/%d bytes validated OK", n, len(full))
			continue
		}
		if !res.Truncated() && !res.Malformed() {
			t.Errorf("prefix of %d bytes: unexpected error kind: %v", n, res.Err)
		}
		if _, err := c.Decode(wire.Wrap(full[:n])); err == nil {
			t.Errorf("prefix of %d bytes decoded without error", n)
		}
	}
}

func TestValidate_AgreesWithDecode_OnCorruption(t *testing.T) {
	s := playerSchema(t)
	c := New(s)
	name := "abcdef"
	rec := buildPlayer(t, s, &name, 9)
	full := encode(t, c, rec).Bytes()

	for pos := 0; pos < len(full); pos++ {
		for _, flip := range []byte{0x01, 0x80, 0xFF} {
			corrupted := make([]byte, len(full))
			copy(corrupted, full)
			corrupted[pos] ^= flip

			res := c.Validate(wire.Wrap(corrupted))
			_, err := c.Decode(wire.Wrap(corrupted))
			if res.OK != (err == nil) {
				t.Fatalf("pos %d flip %#x: Validate.OK=%v but Decode err=%v", pos, flip, res.OK, err)
			}
		}
	}
}

func TestDecode_RejectsWrongMessageID(t *testing.T) {
	s := playerSchema(t)
	c := New(s)
	data := []byte{22, 0x00, 7, 0, 0, 0}
	if _, err := c.Decode(wire.Wrap(data)); !wire.IsMalformed(err) {
		t.Errorf("Decode err = %v, want malformed", err)
	}
}

func TestDecode_RejectsSpareBitmaskBits(t *testing.T) {
	s := playerSchema(t)
	c := New(s)
	data := []byte{21, 0x02, 7, 0, 0, 0}
	if _, err := c.Decode(wire.Wrap(data)); !wire.IsMalformed(err) {
		t.Errorf("Decode err = %v, want malformed", err)
	}
}

func TestDecode_RejectsTrailingBytes(t *testing.T) {
	s := playerSchema(t)
	c := New(s)
	data := []byte{21, 0x00, 7, 0, 0, 0, 0xEE}
	if _, err := c.Decode(wire.Wrap(data)); !wire.IsMalformed(err) {
		t.Errorf("Decode err = %v, want malformed", err)
	}
}

func TestDecode_RejectsLengthPrefixMismatch(t *testing.T) {
	s := playerSchema(t)
	c := New(s)
	// The extent is 4 bytes but the prefix claims 9.
	data := []byte{21, 0x01, 7, 0, 0, 0, 0, 0, 0, 0, 9, 'a', 'b', 'c'}
	if _, err := c.Decode(wire.Wrap(data)); !wire.IsMalformed(err) {
		t.Errorf("Decode err = %v, want malformed", err)
	}
}

func tripleStringSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New(30, "Triple",
		schema.Field{Name: "first", Kind: schema.String()},
		schema.Field{Name: "second", Kind: schema.String()},
		schema.Field{Name: "third", Kind: schema.String()},
	)
	if err != nil {
		t.Fatalf("schema.New failed: %v", err)
	}
	return s
}

func TestDecode_RejectsNonMonotonicOffsets(t *testing.T) {
	s := tripleStringSchema(t)
	c := New(s)

	data := []byte{
		30,
		0, 0, 0, 0, // first at 0
		4, 0, 0, 0, // second at 4
		2, 0, 0, 0, // third at 2: goes backwards
		1, 'a', 1, 'b', 1, 'c',
	}
	if _, err := c.Decode(wire.Wrap(data)); !wire.IsMalformed(err) {
		t.Errorf("Decode err = %v, want malformed", err)
	}
}

func TestDecode_RejectsNonZeroFirstOffset(t *testing.T) {
	s := tripleStringSchema(t)
	c := New(s)

	data := []byte{
		30,
		2, 0, 0, 0,
		4, 0, 0, 0,
		6, 0, 0, 0,
		1, 'a', 1, 'b', 1, 'c', 0,
	}
	if _, err := c.Decode(wire.Wrap(data)); !wire.IsMalformed(err) {
		t.Errorf("Decode err = %v, want malformed", err)
	}
}

func TestDecode_RejectsOversizedArrayCount(t *testing.T) {
	s, err := schema.New(31, "Counts",
		schema.Field{Name: "values", Kind: schema.Array(schema.Scalar(2))},
	)
	if err != nil {
		t.Fatalf("schema.New failed: %v", err)
	}
	c := New(s)

	// Claims 0xFFFFFF elements with a 4-byte data region. Must be rejected
	// before any allocation sized from the claim.
	data := []byte{
		31,
		0, 0, 0, 0,
		0xFF, 0xFF, 0xFF, 0x07,
	}
	if _, err := c.Decode(wire.Wrap(data)); !wire.IsMalformed(err) {
		t.Errorf("Decode err = %v, want malformed", err)
	}
	res := c.Validate(wire.Wrap(data))
	if res.OK || !res.Malformed() {
		t.Errorf("Validate = %+v, want malformed", res)
	}
}

func TestBitmaskOffsetConsistency(t *testing.T) {
	s := playerSchema(t)
	c := New(s)

	name := "abc"
	present := buildPlayer(t, s, &name, 42)
	absent := buildPlayer(t, s, nil, 42)

	presentSize, err := c.Size(present)
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	absentSize, err := c.Size(absent)
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}

	// Toggling the field off removes its offset entry and its data bytes:
	// 4 offset bytes + 1 length prefix + 3 payload bytes.
	if presentSize-absentSize != 4+1+3 {
		t.Errorf("size delta = %d, want 8", presentSize-absentSize)
	}

	empty := ""
	emptyPresent := buildPlayer(t, s, &empty, 42)
	buf := encode(t, c, emptyPresent)
	back, err := c.Decode(buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	v, ok := back.String("name")
	if !ok || v != "" {
		t.Errorf("empty-present string decoded as (%q, %v), want present empty", v, ok)
	}
}

func TestEncode_CapacityExceededLeavesBufferUntouched(t *testing.T) {
	s := playerSchema(t)
	c := New(s)
	name := "abc"
	rec := buildPlayer(t, s, &name, 42)

	buf := wire.NewBuffer(4)
	err := c.Encode(rec, buf)
	if !wire.IsCapacityExceeded(err) {
		t.Fatalf("Encode err = %v, want capacity exceeded", err)
	}
	if buf.WritePos() != 0 {
		t.Errorf("failed Encode left writePos at %d", buf.WritePos())
	}
}

func TestDecode_FailureLeavesReadPosUntouched(t *testing.T) {
	s := playerSchema(t)
	c := New(s)
	data := []byte{21, 0x01, 42, 0}
	buf := wire.Wrap(data)
	if _, err := c.Decode(buf); err == nil {
		t.Fatal("Decode of truncated buffer succeeded")
	}
	if buf.ReadPos() != 0 {
		t.Errorf("failed Decode moved readPos to %d", buf.ReadPos())
	}
}

func TestSize_MatchesEncodedLength(t *testing.T) {
	s := assetSchema(t)
	c := New(s)

	b := NewBuilder(s)
	_ = b.SetUint("flags", 255)
	_ = b.SetUint("version", 1<<31)
	_ = b.SetStruct("position", 10, 20, 30)
	_ = b.SetString("name", "exactly-sized")
	_ = b.SetUints("counts", []uint64{1, 2, 3, 4, 5})
	_ = b.SetByteSlices("chunks", [][]byte{bytes.Repeat([]byte{0xAA}, 200)})
	rec, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	size, err := c.Size(rec)
	if err != nil {
		t.Fatalf("Size failed: %v", err)
	}
	buf := wire.NewBuffer(size)
	if err := c.Encode(rec, buf); err != nil {
		t.Fatalf("Encode into exactly-sized buffer failed: %v", err)
	}
	if buf.WritePos() != size {
		t.Errorf("encoded %d bytes, Size said %d", buf.WritePos(), size)
	}
}
