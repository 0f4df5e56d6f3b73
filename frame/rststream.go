package frame

import "github.com/h2vex/engine/internal/wire"

// RSTStreamBody is the decoded payload of an RST_STREAM frame
// (RFC 7540 §6.4).
type RSTStreamBody struct {
	Code ErrorCode
}

// DecodeRSTStream parses f's payload as an RST_STREAM frame body.
func DecodeRSTStream(f *Frame) (RSTStreamBody, error) {
	payload := f.Payload[:f.Length]
	if len(payload) < 4 {
		return RSTStreamBody{}, ErrShortPayload
	}
	return RSTStreamBody{Code: ErrorCode(wire.Uint32(payload))}, nil
}

// EncodeRSTStream serializes r into f as an RST_STREAM frame.
func EncodeRSTStream(f *Frame, r RSTStreamBody) {
	f.Type = TypeRSTStream
	f.Flags = 0
	buf := wire.AppendUint32(nil, uint32(r.Code))
	f.SetPayload(buf)
}
