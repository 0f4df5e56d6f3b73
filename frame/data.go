package frame

// DataBody is the decoded payload of a DATA frame (RFC 7540 §6.1).
type DataBody struct {
	EndStream bool
	Data      []byte
}

// DecodeData parses f's payload as a DATA frame body. Per base spec §4.6, on
// every DATA frame the *full* payload length (including the pad-length byte
// and padding octets) is what flow control must charge against both
// windows — callers should use f.Len(), not len(DataBody.Data), to update
// recv windows.
func DecodeData(f *Frame) (DataBody, error) {
	var d DataBody
	payload := f.Payload[:f.Length]

	if f.Flags.Has(FlagPadded) {
		p, err := cutPadding(payload)
		if err != nil {
			return d, err
		}
		payload = p
	}

	d.EndStream = f.Flags.Has(FlagEndStream)
	d.Data = payload
	return d, nil
}

// EncodeData serializes d into f as a DATA frame. padMax, when > 0, requests
// random padding of fewer than padMax octets.
func EncodeData(f *Frame, d DataBody, padMax int) {
	f.Type = TypeData
	f.Flags = 0
	if d.EndStream {
		f.Flags = f.Flags.Add(FlagEndStream)
	}

	payload := d.Data
	if padMax > 0 {
		f.Flags = f.Flags.Add(FlagPadded)
		payload = addPadding(payload, padMax)
	}
	f.SetPayload(payload)
}
