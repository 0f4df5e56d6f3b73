package frame

// PingBody is the decoded payload of a PING frame (RFC 7540 §6.7): exactly
// 8 opaque octets, echoed back unchanged on ACK.
type PingBody struct {
	Ack  bool
	Data [8]byte
}

// DecodePing parses f's payload as a PING frame body.
func DecodePing(f *Frame) (PingBody, error) {
	var p PingBody
	payload := f.Payload[:f.Length]
	if len(payload) != 8 {
		return p, ErrShortPayload
	}
	p.Ack = f.Flags.Has(FlagAck)
	copy(p.Data[:], payload)
	return p, nil
}

// EncodePing serializes p into f.
func EncodePing(f *Frame, p PingBody) {
	f.Type = TypePing
	f.Flags = 0
	if p.Ack {
		f.Flags = f.Flags.Add(FlagAck)
	}
	f.SetPayload(p.Data[:])
}
