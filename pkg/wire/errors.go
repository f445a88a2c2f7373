package wire

import "github.com/pkg/errors"

// The three failure kinds every codec operation reduces to. Callers classify
// with errors.Is; everything wrapped on top only adds context.
var (
	// ErrTruncated means the buffer ended before the declared structure did.
	// Over a byte stream this is "wait for more bytes", not corruption.
	ErrTruncated = errors.New("wire: truncated")

	// ErrMalformed means the bytes are internally inconsistent: bad offsets,
	// overflowing lengths, unknown message ids. Fatal for that message.
	ErrMalformed = errors.New("wire: malformed")

	// ErrCapacityExceeded means a write does not fit the buffer's capacity.
	// The caller must resize and retry; the data itself is fine.
	ErrCapacityExceeded = errors.New("wire: capacity exceeded")
)

// IsTruncated reports whether err is a truncation failure.
func IsTruncated(err error) bool { return errors.Is(err, ErrTruncated) }

// IsMalformed reports whether err is a malformed-input failure.
func IsMalformed(err error) bool { return errors.Is(err, ErrMalformed) }

// IsCapacityExceeded reports whether err is a capacity failure.
func IsCapacityExceeded(err error) bool { return errors.Is(err, ErrCapacityExceeded) }
