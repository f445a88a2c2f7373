// Package stream frames codec messages over a byte stream. Each frame is a
// varint length followed by exactly one encoded message. The reader
// structurally validates every frame before decoding it, so a hostile peer
// pays for its bytes before the process allocates for them.
package stream

import (
	"bufio"
	"io"

	"github.com/pkg/errors"

	"github.com/ndegiovanni/hywire/pkg/codec"
	"github.com/ndegiovanni/hywire/pkg/wire"
)

// DefaultMaxFrameSize bounds a single frame at 1 MiB unless configured
// otherwise.
const DefaultMaxFrameSize = 1 << 20

// FrameReader reads length-prefixed messages from an io.Reader and decodes
// them against a registry. Not safe for concurrent use.
type FrameReader struct {
	r        *bufio.Reader
	registry *codec.Registry
	maxFrame int
	scratch  []byte
}

// ReaderOption configures a FrameReader.
type ReaderOption func(*FrameReader)

// WithMaxFrameSize overrides the frame size bound.
func WithMaxFrameSize(n int) ReaderOption {
	return func(fr *FrameReader) { fr.maxFrame = n }
}

// NewFrameReader returns a FrameReader over r dispatching into registry.
func NewFrameReader(r io.Reader, registry *codec.Registry, opts ...ReaderOption) *FrameReader {
	fr := &FrameReader{
		r:        bufio.NewReader(r),
		registry: registry,
		maxFrame: DefaultMaxFrameSize,
	}
	for _, opt := range opts {
		opt(fr)
	}
	return fr
}

// Next reads, validates and decodes one message. It returns io.EOF at a
// clean frame boundary; a stream that ends mid-frame yields ErrTruncated,
// and a frame that fails structural validation yields the validator's error.
func (fr *FrameReader) Next() (*codec.Record, error) {
	frameLen, err := fr.readFrameLen()
	if err != nil {
		return nil, err
	}
	if cap(fr.scratch) < frameLen {
		fr.scratch = make([]byte, frameLen)
	}
	frame := fr.scratch[:frameLen]
	if _, err := io.ReadFull(fr.r, frame); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errors.Wrap(wire.ErrTruncated, "stream ended mid-frame")
		}
		return nil, err
	}
	buf := wire.Wrap(frame)
	if res := fr.registry.Validate(buf); !res.OK {
		return nil, res.Err
	}
	return fr.registry.Decode(buf)
}

// readFrameLen decodes the varint frame length byte by byte so the stream
// position never overshoots the prefix.
func (fr *FrameReader) readFrameLen() (int, error) {
	var prefix [wire.MaxUvarintLen]byte
	n := 0
	for {
		c, err := fr.r.ReadByte()
		if err == io.EOF {
			if n == 0 {
				return 0, io.EOF
			}
			return 0, errors.Wrap(wire.ErrTruncated, "stream ended mid-length")
		}
		if err != nil {
			return 0, err
		}
		if n == len(prefix) {
			return 0, errors.Wrap(wire.ErrMalformed, "frame length varint exceeds 10 bytes")
		}
		prefix[n] = c
		n++
		if c < 0x80 {
			break
		}
	}
	v, _, err := wire.Uvarint(prefix[:n])
	if err != nil {
		return 0, err
	}
	if v == 0 || v > uint64(fr.maxFrame) {
		return 0, errors.Wrapf(wire.ErrMalformed, "frame of %d bytes, limit %d", v, fr.maxFrame)
	}
	return int(v), nil
}

// FrameWriter writes length-prefixed messages to an io.Writer, reusing one
// encode buffer across calls. Not safe for concurrent use.
type FrameWriter struct {
	w       io.Writer
	scratch *wire.Buffer
}

// NewFrameWriter returns a FrameWriter over w.
func NewFrameWriter(w io.Writer) *FrameWriter {
	return &FrameWriter{w: w, scratch: wire.NewBuffer(4096)}
}

// Write encodes rec with c and writes it as one frame.
func (fw *FrameWriter) Write(c *codec.MessageCodec, rec *codec.Record) error {
	size, err := c.Size(rec)
	if err != nil {
		return err
	}
	if fw.scratch.Capacity() < size {
		fw.scratch = wire.NewBuffer(size)
	}
	fw.scratch.Reset()
	if err := c.Encode(rec, fw.scratch); err != nil {
		return err
	}
	var prefix [wire.MaxUvarintLen]byte
	n := wire.PutUvarint(prefix[:], uint64(size))
	if _, err := fw.w.Write(prefix[:n]); err != nil {
		return err
	}
	_, err = fw.w.Write(fw.scratch.Bytes())
	return err
}
