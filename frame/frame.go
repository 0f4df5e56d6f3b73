// Package frame implements the HTTP/2 framing layer (RFC 7540 §4-§6): the
// 9-byte frame header, the ten frame bodies, the connection preface, and a
// Framer that reads/writes frames over an arbitrary duplex byte transport.
//
// The shape (a pooled Frame struct carrying the header fields and raw
// payload, plus a Decode*/Encode* function pair per body type) is grounded
// on dgrr-http2's frameHeader.go +
// data.go/headers.go/settings.go/etc, generalized from that repo's
// half-finished, two-package-in-one-directory state into one coherent,
// buildable package.
package frame

import (
	"fmt"
	"sync"

	"github.com/h2vex/engine/internal/wire"
)

// Type is the HTTP/2 frame type (RFC 7540 §6).
type Type uint8

const (
	TypeData         Type = 0x0
	TypeHeaders      Type = 0x1
	TypePriority     Type = 0x2
	TypeRSTStream    Type = 0x3
	TypeSettings     Type = 0x4
	TypePushPromise  Type = 0x5
	TypePing         Type = 0x6
	TypeGoAway       Type = 0x7
	TypeWindowUpdate Type = 0x8
	TypeContinuation Type = 0x9

	minType Type = TypeData
	maxType Type = TypeContinuation
)

func (t Type) String() string {
	switch t {
	case TypeData:
		return "DATA"
	case TypeHeaders:
		return "HEADERS"
	case TypePriority:
		return "PRIORITY"
	case TypeRSTStream:
		return "RST_STREAM"
	case TypeSettings:
		return "SETTINGS"
	case TypePushPromise:
		return "PUSH_PROMISE"
	case TypePing:
		return "PING"
	case TypeGoAway:
		return "GOAWAY"
	case TypeWindowUpdate:
		return "WINDOW_UPDATE"
	case TypeContinuation:
		return "CONTINUATION"
	default:
		return fmt.Sprintf("UNKNOWN(%#x)", uint8(t))
	}
}

// Flags is the frame-header flags byte. Which bits are meaningful depends on
// the frame Type; see each frame body's doc comment.
type Flags uint8

const (
	FlagAck        Flags = 0x1
	FlagEndStream  Flags = 0x1
	FlagEndHeaders Flags = 0x4
	FlagPadded     Flags = 0x8
	FlagPriority   Flags = 0x20
)

// Has reports whether all bits of x are set in f.
func (f Flags) Has(x Flags) bool { return f&x == x }

// Add sets the bits of x in f and returns the result.
func (f Flags) Add(x Flags) Flags { return f | x }

// HeaderLen is the fixed size of an HTTP/2 frame header.
const HeaderLen = 9

// DefaultMaxFrameSize is the RFC 7540 §6.5.2 default for SETTINGS_MAX_FRAME_SIZE.
const DefaultMaxFrameSize = 1 << 14

// MaxFrameSizeUpperBound is the largest legal value for SETTINGS_MAX_FRAME_SIZE.
const MaxFrameSizeUpperBound = 1<<24 - 1

// Frame is the decoded wire record described by the base spec's Data Model
// section: {type, flags, stream_id (31-bit), length, payload}.
//
// A Frame owns its Payload slice; callers that want to retain the bytes past
// the next Release must copy them.
type Frame struct {
	Type     Type
	Flags    Flags
	StreamID uint32
	// Length is the number of bytes of Payload that WriteFrame will
	// actually place on the wire. It defaults to len(Payload) (set by
	// SetPayload) but may be set smaller than cap/len(Payload) by a caller
	// that wants to write a prefix of a reusable buffer.
	Length int
	Payload []byte

	rawHeader [HeaderLen]byte
}

// SetPayload replaces the payload and sets Length to its full length.
func (f *Frame) SetPayload(b []byte) {
	f.Payload = append(f.Payload[:0], b...)
	f.Length = len(f.Payload)
}

var framePool = sync.Pool{New: func() any { return new(Frame) }}

// Acquire returns a zeroed Frame from the pool.
func Acquire() *Frame {
	f := framePool.Get().(*Frame)
	f.reset()
	return f
}

// Release returns f to the pool. f must not be used afterward.
func Release(f *Frame) {
	framePool.Put(f)
}

func (f *Frame) reset() {
	f.Type = 0
	f.Flags = 0
	f.StreamID = 0
	f.Length = 0
	f.Payload = f.Payload[:0]
}

// Len returns the payload length that will be (or was) written on the wire.
func (f *Frame) Len() int { return f.Length }

func (f *Frame) encodeHeader(length int) []byte {
	wire.PutUint24(f.rawHeader[:3], uint32(length))
	f.rawHeader[3] = byte(f.Type)
	f.rawHeader[4] = byte(f.Flags)
	wire.PutUint32(f.rawHeader[5:9], f.StreamID&(1<<31-1))
	return f.rawHeader[:]
}

func (f *Frame) decodeHeader(b []byte) (length int) {
	length = int(wire.Uint24(b[:3]))
	f.Type = Type(b[3])
	f.Flags = Flags(b[4])
	f.StreamID = wire.Uint31(b[5:9])
	return length
}

// IsConnectionFrame reports whether f is addressed to stream 0.
func (f *Frame) IsConnectionFrame() bool { return f.StreamID == 0 }
