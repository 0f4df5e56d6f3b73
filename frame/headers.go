package frame

import "github.com/h2vex/engine/internal/wire"

// HeadersBody is the decoded payload of a HEADERS frame (RFC 7540 §6.2). The
// header block fragment is left undecoded — HPACK decoding is the hpack
// package's job, fed by the connection multiplexer once the full block
// (possibly spanning CONTINUATION frames) has been assembled.
type HeadersBody struct {
	EndStream        bool
	EndHeaders       bool
	HasPriority      bool
	Exclusive        bool
	StreamDependency uint32
	Weight           uint8
	BlockFragment    []byte
}

// DecodeHeaders parses f's payload as a HEADERS frame body.
func DecodeHeaders(f *Frame) (HeadersBody, error) {
	var h HeadersBody
	payload := f.Payload[:f.Length]

	if f.Flags.Has(FlagPadded) {
		p, err := cutPadding(payload)
		if err != nil {
			return h, err
		}
		payload = p
	}

	if f.Flags.Has(FlagPriority) {
		if len(payload) < 5 {
			return h, ErrShortPayload
		}
		dep := wire.Uint32(payload[:4])
		h.Exclusive = dep&(1<<31) != 0
		h.StreamDependency = dep & (1<<31 - 1)
		h.Weight = payload[4]
		h.HasPriority = true
		payload = payload[5:]
	}

	h.EndStream = f.Flags.Has(FlagEndStream)
	h.EndHeaders = f.Flags.Has(FlagEndHeaders)
	h.BlockFragment = payload
	return h, nil
}

// EncodeHeaders serializes h into f as a HEADERS frame. padMax > 0 requests
// random padding.
func EncodeHeaders(f *Frame, h HeadersBody, padMax int) {
	f.Type = TypeHeaders
	f.Flags = 0
	if h.EndStream {
		f.Flags = f.Flags.Add(FlagEndStream)
	}
	if h.EndHeaders {
		f.Flags = f.Flags.Add(FlagEndHeaders)
	}

	payload := h.BlockFragment
	if h.HasPriority {
		f.Flags = f.Flags.Add(FlagPriority)
		prefix := make([]byte, 5)
		dep := h.StreamDependency & (1<<31 - 1)
		if h.Exclusive {
			dep |= 1 << 31
		}
		wire.PutUint32(prefix[:4], dep)
		prefix[4] = h.Weight
		payload = append(prefix, payload...)
	}

	if padMax > 0 {
		f.Flags = f.Flags.Add(FlagPadded)
		payload = addPadding(payload, padMax)
	}
	f.SetPayload(payload)
}
