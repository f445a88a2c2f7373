package codec

import "github.com/ndegiovanni/hywire/pkg/wire"

// ValidationResult is the outcome of a structural validation pass. It is
// constructed fresh per call and never cached: the bytes under a buffer can
// change between calls.
type ValidationResult struct {
	// OK is true when the buffer holds a structurally valid message.
	OK bool
	// Err carries the failure when OK is false; classify it with the
	// wire error kinds.
	Err error
	// BytesConsumed is the message's total encoded length when OK.
	BytesConsumed int
}

// Truncated reports whether validation failed because the buffer ended
// before the declared structure did.
func (r ValidationResult) Truncated() bool { return wire.IsTruncated(r.Err) }

// Malformed reports whether validation failed on internally inconsistent
// bytes.
func (r ValidationResult) Malformed() bool { return wire.IsMalformed(r.Err) }
