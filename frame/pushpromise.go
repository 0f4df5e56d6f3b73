package frame

import "github.com/h2vex/engine/internal/wire"

// PushPromiseBody is the decoded payload of a PUSH_PROMISE frame
// (RFC 7540 §6.6). This client engine always advertises ENABLE_PUSH=0 (base
// spec §4.2/§4.7), so receiving one is a connection PROTOCOL_ERROR at the
// h2conn layer; the codec still decodes it so that layer can log/diagnose
// before failing the connection.
type PushPromiseBody struct {
	EndHeaders    bool
	PromisedID    uint32
	BlockFragment []byte
}

// DecodePushPromise parses f's payload as a PUSH_PROMISE frame body.
func DecodePushPromise(f *Frame) (PushPromiseBody, error) {
	var p PushPromiseBody
	payload := f.Payload[:f.Length]

	if f.Flags.Has(FlagPadded) {
		cut, err := cutPadding(payload)
		if err != nil {
			return p, err
		}
		payload = cut
	}

	if len(payload) < 4 {
		return p, ErrShortPayload
	}

	p.PromisedID = wire.Uint31(payload[:4])
	p.BlockFragment = payload[4:]
	p.EndHeaders = f.Flags.Has(FlagEndHeaders)
	return p, nil
}

// EncodePushPromise serializes p into f. Included for codec completeness and
// server-side symmetry; this client never sends PUSH_PROMISE.
func EncodePushPromise(f *Frame, p PushPromiseBody) {
	f.Type = TypePushPromise
	f.Flags = 0
	if p.EndHeaders {
		f.Flags = f.Flags.Add(FlagEndHeaders)
	}
	buf := wire.AppendUint32(nil, p.PromisedID&(1<<31-1))
	buf = append(buf, p.BlockFragment...)
	f.SetPayload(buf)
}
