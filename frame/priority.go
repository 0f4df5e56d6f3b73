package frame

import "github.com/h2vex/engine/internal/wire"

// PriorityBody is the decoded payload of a PRIORITY frame (RFC 7540 §6.3).
// The base spec treats PRIORITY as semantically ignored but length-validated
// (§4.7 reader dispatch table); it is decoded here purely so that
// validation can happen uniformly with every other frame type.
type PriorityBody struct {
	Exclusive        bool
	StreamDependency uint32
	Weight           uint8
}

// DecodePriority parses f's payload as a PRIORITY frame body.
func DecodePriority(f *Frame) (PriorityBody, error) {
	var p PriorityBody
	payload := f.Payload[:f.Length]
	if len(payload) < 5 {
		return p, ErrShortPayload
	}
	dep := wire.Uint32(payload[:4])
	p.Exclusive = dep&(1<<31) != 0
	p.StreamDependency = dep & (1<<31 - 1)
	p.Weight = payload[4]
	return p, nil
}

// EncodePriority serializes p into f as a PRIORITY frame.
func EncodePriority(f *Frame, p PriorityBody) {
	f.Type = TypePriority
	f.Flags = 0
	buf := make([]byte, 5)
	dep := p.StreamDependency & (1<<31 - 1)
	if p.Exclusive {
		dep |= 1 << 31
	}
	wire.PutUint32(buf[:4], dep)
	buf[4] = p.Weight
	f.SetPayload(buf)
}
