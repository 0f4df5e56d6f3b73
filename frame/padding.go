package frame

import "github.com/valyala/fastrand"

// cutPadding strips the pad-length byte and trailing padding octets from a
// payload that carries FlagPadded, per RFC 7540 §6.1/§6.2. Grounded on
// dgrr-http2's http2utils.CutPadding.
func cutPadding(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrShortPayload
	}
	padLen := int(payload[0])
	payload = payload[1:]
	if padLen > len(payload) {
		return nil, ErrShortPayload
	}
	return payload[:len(payload)-padLen], nil
}

// addPadding prefixes payload with a pad-length byte and appends that many
// zero bytes, choosing the pad length with fastrand the way dgrr-http2's
// http2utils.AddPadding sizes its padding.
func addPadding(payload []byte, maxExtra int) []byte {
	if maxExtra <= 0 {
		return append([]byte{0}, payload...)
	}
	n := int(fastrand.Uint32n(uint32(maxExtra)))
	out := make([]byte, 0, 1+len(payload)+n)
	out = append(out, byte(n))
	out = append(out, payload...)
	for i := 0; i < n; i++ {
		out = append(out, 0)
	}
	return out
}
