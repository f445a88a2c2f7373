// Package codec implements the schema-driven binary message codec at the
// heart of hywire. One MessageCodec per schema replaces one hand-written
// encoder/decoder per message type: new message types are added by
// registering a schema, not by writing new encode/decode code.
//
// # Wire Format
//
// Every message is laid out as:
//
//	[messageId      ] varint
//	[presenceBitmask] ceil(nullableFieldCount/8) bytes, LSB-first
//	[fixed fields   ] in schema order; an absent nullable fixed field
//	                  occupies zero bytes, presence is conveyed solely
//	                  by the bitmask
//	[offsetTable    ] one 4-byte little-endian offset per PRESENT
//	                  variable-length field, relative to the start of
//	                  the data region
//	[dataRegion     ] each present variable field's payload, in schema
//	                  order
//
// Within the data region, bytes and string payloads are a varint byte length
// followed by the raw bytes; arrays are a varint element count followed by
// the elements (fixed-width for scalar elements, varint-length-prefixed for
// string and bytes elements). A payload must exactly fill the extent the
// offset table carves out for it; the redundancy is checked on every decode
// and validation.
//
// The offset table lets a reader locate any one variable field in O(1): a
// field's length is derived as nextOffset - thisOffset, or dataRegionEnd -
// thisOffset for the last field. Offsets must start at zero, be monotonically
// non-decreasing, and stay within the data region, all verified before any
// payload is trusted.
//
// # Validate Before Decode
//
// MessageCodec.Validate traverses a message exactly the way Decode does but
// materializes nothing, so rejecting hostile input costs work proportional
// to the schema's field count and the buffer's real length, never to
// attacker-claimed sizes. Always validate buffers from untrusted peers
// before decoding them.
//
// # Failure Semantics
//
// All failures are typed result values built on the wire package sentinels;
// the codec never panics on input bytes. A short buffer is ErrTruncated so a
// streaming caller can wait for more bytes. Every internal inconsistency
// (bad offsets, overflowing lengths, spare bitmask bits, unknown message ids)
// is ErrMalformed and fatal for that one message. What to do about the peer
// is the connection layer's decision, not this package's.
//
// # Thread Safety
//
// Schemas, MessageCodecs and a fully-registered Registry are immutable and
// safe to share. A Buffer is confined to one operation at a time. Records
// and ValidationResults are plain immutable data owned by the caller.
package codec
