package hpack

import "errors"

// ErrCompression is returned whenever a header block violates HPACK's wire
// grammar (bad integer encoding, truncated literal, malformed Huffman
// padding, or an EOS symbol found mid-stream; an out-of-range index is
// reported as ErrIndexOutOfRange instead). Per base
// spec §4.3/§6.3 this is always a connection-level COMPRESSION_ERROR: the
// dynamic table's state is no longer trustworthy and the connection holding
// it must be torn down.
var ErrCompression = errors.New("hpack: compression error")

// ErrHeaderListTooLarge is returned by the Decoder when the decompressed
// header list would exceed MaxDecodedHeaderBytes, guarding against
// decompression-bomb header blocks (base spec §4.3, §7 edge cases).
var ErrHeaderListTooLarge = errors.New("hpack: decoded header list too large")

// ErrIndexOutOfRange is returned when a header field representation
// references a static/dynamic table index that doesn't exist.
var ErrIndexOutOfRange = errors.New("hpack: header field index out of range")

// ErrDynamicTableUpdateOrder is returned when a dynamic table size update
// appears anywhere but the start of a header block (RFC 7541 §4.2).
var ErrDynamicTableUpdateOrder = errors.New("hpack: dynamic table size update out of order")
