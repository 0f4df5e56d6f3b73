package frame

import "github.com/h2vex/engine/internal/wire"

// GoAwayBody is the decoded payload of a GOAWAY frame (RFC 7540 §6.8).
type GoAwayBody struct {
	LastStreamID uint32
	Code         ErrorCode
	DebugData    []byte
}

// DecodeGoAway parses f's payload as a GOAWAY frame body.
func DecodeGoAway(f *Frame) (GoAwayBody, error) {
	var g GoAwayBody
	payload := f.Payload[:f.Length]
	if len(payload) < 8 {
		return g, ErrShortPayload
	}
	g.LastStreamID = wire.Uint31(payload[:4])
	g.Code = ErrorCode(wire.Uint32(payload[4:8]))
	if len(payload) > 8 {
		g.DebugData = payload[8:]
	}
	return g, nil
}

// EncodeGoAway serializes g into f.
func EncodeGoAway(f *Frame, g GoAwayBody) {
	f.Type = TypeGoAway
	f.Flags = 0
	buf := wire.AppendUint32(nil, g.LastStreamID&(1<<31-1))
	buf = wire.AppendUint32(buf, uint32(g.Code))
	buf = append(buf, g.DebugData...)
	f.SetPayload(buf)
}
