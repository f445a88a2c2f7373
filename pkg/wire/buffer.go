package wire

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// Buffer is a bounds-checked cursor over a byte region with independent read
// and write positions. Invariant: 0 <= readPos <= writePos <= capacity.
// Every read or write either advances its cursor by exactly the consumed or
// produced byte count, or fails without mutating any state.
//
// A Buffer is not safe for concurrent use; the owning I/O layer must ensure
// at most one operation runs against it at a time.
type Buffer struct {
	data []byte
	rpos int
	wpos int
}

// NewBuffer returns an empty Buffer with the given capacity, ready for writing.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{data: make([]byte, capacity)}
}

// Wrap returns a Buffer over data with the write position at len(data),
// ready for reading. The Buffer aliases data; it does not copy.
func Wrap(data []byte) *Buffer {
	return &Buffer{data: data, wpos: len(data)}
}

// Capacity returns the total byte capacity.
func (b *Buffer) Capacity() int { return len(b.data) }

// ReadPos returns the current read position.
func (b *Buffer) ReadPos() int { return b.rpos }

// WritePos returns the current write position.
func (b *Buffer) WritePos() int { return b.wpos }

// Remaining returns the number of unread bytes (writePos - readPos).
func (b *Buffer) Remaining() int { return b.wpos - b.rpos }

// Writable returns the number of bytes that can still be written.
func (b *Buffer) Writable() int { return len(b.data) - b.wpos }

// Bytes returns the written region of the buffer. The slice aliases the
// buffer's storage and is invalidated by Reset.
func (b *Buffer) Bytes() []byte { return b.data[:b.wpos] }

// Reset rewinds both cursors to zero. The storage is retained.
func (b *Buffer) Reset() {
	b.rpos = 0
	b.wpos = 0
}

// Skip advances the read position by n bytes.
func (b *Buffer) Skip(n int) error {
	if n < 0 {
		return errors.Wrapf(ErrMalformed, "skip of %d bytes", n)
	}
	if n > b.wpos-b.rpos {
		return errors.Wrapf(ErrTruncated, "skip %d bytes with %d remaining", n, b.wpos-b.rpos)
	}
	b.rpos += n
	return nil
}

// checkRead verifies that n bytes can be read starting at the absolute
// position at. The guard is written so that at+n cannot overflow.
func (b *Buffer) checkRead(at, n int) error {
	if at < 0 || n < 0 {
		return errors.Wrapf(ErrMalformed, "read of %d bytes at %d", n, at)
	}
	if at > b.wpos || b.wpos-at < n {
		return errors.Wrapf(ErrTruncated, "read %d bytes at %d, limit %d", n, at, b.wpos)
	}
	return nil
}

// ReadUint8 reads one byte and advances the read position.
func (b *Buffer) ReadUint8() (uint8, error) {
	v, err := b.PeekUint8(b.rpos)
	if err != nil {
		return 0, err
	}
	b.rpos++
	return v, nil
}

// ReadUint16 reads a little-endian uint16 and advances the read position.
func (b *Buffer) ReadUint16() (uint16, error) {
	v, err := b.PeekUint16(b.rpos)
	if err != nil {
		return 0, err
	}
	b.rpos += 2
	return v, nil
}

// ReadUint32 reads a little-endian uint32 and advances the read position.
func (b *Buffer) ReadUint32() (uint32, error) {
	v, err := b.PeekUint32(b.rpos)
	if err != nil {
		return 0, err
	}
	b.rpos += 4
	return v, nil
}

// ReadUint64 reads a little-endian uint64 and advances the read position.
func (b *Buffer) ReadUint64() (uint64, error) {
	v, err := b.PeekUint64(b.rpos)
	if err != nil {
		return 0, err
	}
	b.rpos += 8
	return v, nil
}

// ReadBytes reads n bytes and advances the read position. The returned slice
// aliases the buffer's storage; callers that retain it must copy.
func (b *Buffer) ReadBytes(n int) ([]byte, error) {
	v, err := b.PeekBytes(b.rpos, n)
	if err != nil {
		return nil, err
	}
	b.rpos += n
	return v, nil
}

// ReadUvarint reads a LEB128 varint and advances the read position.
func (b *Buffer) ReadUvarint() (uint64, error) {
	v, n, err := b.PeekUvarint(b.rpos)
	if err != nil {
		return 0, err
	}
	b.rpos += n
	return v, nil
}

// PeekUint8 reads one byte at the absolute position at without moving cursors.
func (b *Buffer) PeekUint8(at int) (uint8, error) {
	if err := b.checkRead(at, 1); err != nil {
		return 0, err
	}
	return b.data[at], nil
}

// PeekUint16 reads a little-endian uint16 at the absolute position at.
func (b *Buffer) PeekUint16(at int) (uint16, error) {
	if err := b.checkRead(at, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b.data[at:]), nil
}

// PeekUint32 reads a little-endian uint32 at the absolute position at.
func (b *Buffer) PeekUint32(at int) (uint32, error) {
	if err := b.checkRead(at, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b.data[at:]), nil
}

// PeekUint64 reads a little-endian uint64 at the absolute position at.
func (b *Buffer) PeekUint64(at int) (uint64, error) {
	if err := b.checkRead(at, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b.data[at:]), nil
}

// PeekBytes reads n bytes at the absolute position at. The returned slice
// aliases the buffer's storage.
func (b *Buffer) PeekBytes(at, n int) ([]byte, error) {
	if err := b.checkRead(at, n); err != nil {
		return nil, err
	}
	return b.data[at : at+n], nil
}

// PeekUvarint decodes a LEB128 varint at the absolute position at and returns
// the value and its encoded width.
func (b *Buffer) PeekUvarint(at int) (uint64, int, error) {
	if at < 0 || at > b.wpos {
		return 0, 0, errors.Wrapf(ErrMalformed, "varint at %d, limit %d", at, b.wpos)
	}
	return Uvarint(b.data[at:b.wpos])
}

// checkWrite verifies that n more bytes fit before capacity.
func (b *Buffer) checkWrite(n int) error {
	if n > len(b.data)-b.wpos {
		return errors.Wrapf(ErrCapacityExceeded, "write %d bytes with %d writable", n, len(b.data)-b.wpos)
	}
	return nil
}

// WriteUint8 appends one byte.
func (b *Buffer) WriteUint8(v uint8) error {
	if err := b.checkWrite(1); err != nil {
		return err
	}
	b.data[b.wpos] = v
	b.wpos++
	return nil
}

// WriteUint16 appends a little-endian uint16.
func (b *Buffer) WriteUint16(v uint16) error {
	if err := b.checkWrite(2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b.data[b.wpos:], v)
	b.wpos += 2
	return nil
}

// WriteUint32 appends a little-endian uint32.
func (b *Buffer) WriteUint32(v uint32) error {
	if err := b.checkWrite(4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b.data[b.wpos:], v)
	b.wpos += 4
	return nil
}

// WriteUint64 appends a little-endian uint64.
func (b *Buffer) WriteUint64(v uint64) error {
	if err := b.checkWrite(8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b.data[b.wpos:], v)
	b.wpos += 8
	return nil
}

// WriteBytes appends p verbatim.
func (b *Buffer) WriteBytes(p []byte) error {
	if err := b.checkWrite(len(p)); err != nil {
		return err
	}
	copy(b.data[b.wpos:], p)
	b.wpos += len(p)
	return nil
}

// WriteUvarint appends v as a LEB128 varint.
func (b *Buffer) WriteUvarint(v uint64) error {
	n := UvarintSize(v)
	if err := b.checkWrite(n); err != nil {
		return err
	}
	PutUvarint(b.data[b.wpos:], v)
	b.wpos += n
	return nil
}
