package frame

import (
	"errors"
	"fmt"
)

// ErrorCode is an HTTP/2 error code (RFC 7540 §7), carried by RST_STREAM and
// GOAWAY frames and used throughout the engine to classify failures.
type ErrorCode uint32

const (
	ErrCodeNo                 ErrorCode = 0x0
	ErrCodeProtocol           ErrorCode = 0x1
	ErrCodeInternal           ErrorCode = 0x2
	ErrCodeFlowControl        ErrorCode = 0x3
	ErrCodeSettingsTimeout    ErrorCode = 0x4
	ErrCodeStreamClosed       ErrorCode = 0x5
	ErrCodeFrameSize          ErrorCode = 0x6
	ErrCodeRefusedStream      ErrorCode = 0x7
	ErrCodeCancel             ErrorCode = 0x8
	ErrCodeCompression        ErrorCode = 0x9
	ErrCodeConnect            ErrorCode = 0xa
	ErrCodeEnhanceYourCalm    ErrorCode = 0xb
	ErrCodeInadequateSecurity ErrorCode = 0xc
	ErrCodeHTTP11Required     ErrorCode = 0xd
)

var codeNames = [...]string{
	"NO_ERROR", "PROTOCOL_ERROR", "INTERNAL_ERROR", "FLOW_CONTROL_ERROR",
	"SETTINGS_TIMEOUT", "STREAM_CLOSED", "FRAME_SIZE_ERROR", "REFUSED_STREAM",
	"CANCEL", "COMPRESSION_ERROR", "CONNECT_ERROR", "ENHANCE_YOUR_CALM",
	"INADEQUATE_SECURITY", "HTTP_1_1_REQUIRED",
}

func (c ErrorCode) String() string {
	if int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("UNKNOWN_ERROR(%#x)", uint32(c))
}

// ConnError is a connection-level protocol failure: the whole connection
// must be disposed and every active stream failed (base spec §7).
type ConnError struct {
	Code ErrorCode
	Msg  string
}

func (e *ConnError) Error() string {
	if e.Msg == "" {
		return "http2: connection error: " + e.Code.String()
	}
	return fmt.Sprintf("http2: connection error: %s: %s", e.Code, e.Msg)
}

// NewConnError builds a ConnError.
func NewConnError(code ErrorCode, msg string) *ConnError {
	return &ConnError{Code: code, Msg: msg}
}

// StreamError is a stream-scoped failure: only that stream is failed, the
// connection continues (base spec §7).
type StreamError struct {
	StreamID uint32
	Code     ErrorCode
	Msg      string
}

func (e *StreamError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("http2: stream %d error: %s", e.StreamID, e.Code)
	}
	return fmt.Sprintf("http2: stream %d error: %s: %s", e.StreamID, e.Code, e.Msg)
}

// NewStreamError builds a StreamError.
func NewStreamError(streamID uint32, code ErrorCode, msg string) *StreamError {
	return &StreamError{StreamID: streamID, Code: code, Msg: msg}
}

var (
	// ErrInvalidArgument is returned by WriteFrame when the caller's declared
	// length exceeds the payload actually supplied.
	ErrInvalidArgument = errors.New("http2/frame: length exceeds payload")

	// ErrFrameSize is returned by ReadFrame when the advertised length
	// exceeds the negotiated maximum, before the payload is consumed.
	ErrFrameSize = errors.New("http2/frame: frame size exceeds negotiated maximum")

	// ErrShortPayload is returned when a frame body is too small to decode.
	ErrShortPayload = errors.New("http2/frame: payload too short for frame type")

	// ErrUnknownFrameType names a type byte this codec does not recognize.
	// ReadFrame does not return it: per RFC 7540 §4.1 such frames are passed
	// through to the caller, which ignores them.
	ErrUnknownFrameType = errors.New("http2/frame: unknown frame type")

	// ErrBadPreface is returned when a read preface does not match exactly.
	ErrBadPreface = errors.New("http2/frame: bad connection preface")
)
