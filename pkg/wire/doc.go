// Package wire provides the byte-level primitives the hywire codec is built
// on: a bounds-checked Buffer with independent read/write cursors, LEB128
// varints, LSB-first presence bitmasks, and the shared error taxonomy.
//
// # Error Taxonomy
//
// Every failure in this package and in the packages layered on top reduces to
// one of three sentinel errors:
//
//   - ErrTruncated: the buffer ended before the declared structure did.
//     A streaming caller should wait for more bytes rather than treat this
//     as corruption.
//   - ErrMalformed: the bytes are internally inconsistent. Fatal for that
//     one message.
//   - ErrCapacityExceeded: a write did not fit. The caller resizes and
//     retries; the data is fine.
//
// Classify with errors.Is or the IsTruncated/IsMalformed/IsCapacityExceeded
// helpers.
//
// # Buffer
//
// A Buffer tracks a read position and a write position over a fixed-capacity
// byte region, with 0 <= readPos <= writePos <= capacity at all times.
// Read*/Write* calls advance their cursor by exactly the consumed or produced
// byte count, or fail without mutating state. Peek* variants take absolute
// positions and move nothing; the structural validator is built entirely on
// them. All position arithmetic is checked, so an attacker-supplied offset
// can produce ErrMalformed or ErrTruncated but never an out-of-bounds access.
//
// All multi-byte scalars are little-endian.
//
// # Thread Safety
//
// A Buffer is confined to one logical operation at a time; the owning I/O
// layer provides that exclusivity. Everything else in the package is
// stateless and safe for concurrent use.
package wire
