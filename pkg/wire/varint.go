package wire

import "github.com/pkg/errors"

// LEB128-style unsigned varints: 7 payload bits per byte, LSB group first,
// high bit set on every byte except the last. Decoding is capped at
// MaxUvarintLen bytes so a run of continuation bytes costs bounded work no
// matter what the buffer contains.

// MaxUvarintLen is the maximum encoded length of a 64-bit varint.
const MaxUvarintLen = 10

// UvarintSize returns the number of bytes v occupies when varint-encoded.
func UvarintSize(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// PutUvarint encodes v into buf and returns the number of bytes written.
// buf must be at least UvarintSize(v) bytes long.
func PutUvarint(buf []byte, v uint64) int {
	i := 0
	for v >= 0x80 {
		buf[i] = byte(v) | 0x80
		v >>= 7
		i++
	}
	buf[i] = byte(v)
	return i + 1
}

// Uvarint decodes a varint from the front of buf and returns the value and
// the number of bytes consumed. A buffer that ends mid-varint yields
// ErrTruncated; a varint longer than MaxUvarintLen bytes, or one whose final
// byte overflows 64 bits, yields ErrMalformed.
func Uvarint(buf []byte) (uint64, int, error) {
	var v uint64
	var shift uint
	for i := 0; i < len(buf); i++ {
		if i >= MaxUvarintLen {
			return 0, 0, errors.Wrap(ErrMalformed, "varint exceeds 10 bytes")
		}
		c := buf[i]
		if c < 0x80 {
			if i == MaxUvarintLen-1 && c > 1 {
				return 0, 0, errors.Wrap(ErrMalformed, "varint overflows 64 bits")
			}
			return v | uint64(c)<<shift, i + 1, nil
		}
		v |= uint64(c&0x7f) << shift
		shift += 7
	}
	if len(buf) >= MaxUvarintLen {
		return 0, 0, errors.Wrap(ErrMalformed, "varint exceeds 10 bytes")
	}
	return 0, 0, errors.Wrap(ErrTruncated, "varint ends mid-value")
}
