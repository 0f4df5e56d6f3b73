package frame

import "github.com/h2vex/engine/internal/wire"

// WindowUpdateBody is the decoded payload of a WINDOW_UPDATE frame
// (RFC 7540 §6.9).
type WindowUpdateBody struct {
	Increment uint32
}

// DecodeWindowUpdate parses f's payload as a WINDOW_UPDATE frame body.
func DecodeWindowUpdate(f *Frame) (WindowUpdateBody, error) {
	payload := f.Payload[:f.Length]
	if len(payload) < 4 {
		return WindowUpdateBody{}, ErrShortPayload
	}
	return WindowUpdateBody{Increment: wire.Uint31(payload[:4])}, nil
}

// EncodeWindowUpdate serializes w into f.
func EncodeWindowUpdate(f *Frame, w WindowUpdateBody) {
	f.Type = TypeWindowUpdate
	f.Flags = 0
	buf := wire.AppendUint32(nil, w.Increment&(1<<31-1))
	f.SetPayload(buf)
}
