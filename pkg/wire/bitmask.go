package wire

import "github.com/pkg/errors"

// Presence bitmasks pack N boolean flags LSB-first into ceil(N/8) bytes.
// Bit i always corresponds to the i-th nullable field in schema order.

// BitmaskLen returns the number of bytes needed to hold n flags.
func BitmaskLen(n int) int { return (n + 7) / 8 }

// PackBits packs flags LSB-first into a fresh byte slice of BitmaskLen bytes.
func PackBits(flags []bool) []byte {
	out := make([]byte, BitmaskLen(len(flags)))
	for i, set := range flags {
		if set {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return out
}

// UnpackBits unpacks n flags from data. data must be exactly BitmaskLen(n)
// bytes, and any spare bits in the final byte must be zero; a mask that
// disagrees with the expected flag count is malformed.
func UnpackBits(data []byte, n int) ([]bool, error) {
	if len(data) != BitmaskLen(n) {
		return nil, errors.Wrapf(ErrMalformed, "bitmask is %d bytes, want %d for %d flags", len(data), BitmaskLen(n), n)
	}
	flags := make([]bool, n)
	for i := range flags {
		flags[i] = data[i/8]&(1<<(i%8)) != 0
	}
	for i := n; i < len(data)*8; i++ {
		if data[i/8]&(1<<(i%8)) != 0 {
			return nil, errors.Wrapf(ErrMalformed, "bitmask has spare bit %d set", i)
		}
	}
	return flags, nil
}
