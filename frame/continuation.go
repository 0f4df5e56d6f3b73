package frame

// ContinuationBody is the decoded payload of a CONTINUATION frame
// (RFC 7540 §6.10): a further fragment of a header block started by a
// preceding HEADERS or PUSH_PROMISE frame without END_HEADERS.
type ContinuationBody struct {
	EndHeaders    bool
	BlockFragment []byte
}

// DecodeContinuation parses f's payload as a CONTINUATION frame body.
func DecodeContinuation(f *Frame) (ContinuationBody, error) {
	return ContinuationBody{
		EndHeaders:    f.Flags.Has(FlagEndHeaders),
		BlockFragment: f.Payload[:f.Length],
	}, nil
}

// EncodeContinuation serializes c into f as a CONTINUATION frame.
func EncodeContinuation(f *Frame, c ContinuationBody) {
	f.Type = TypeContinuation
	f.Flags = 0
	if c.EndHeaders {
		f.Flags = f.Flags.Add(FlagEndHeaders)
	}
	f.SetPayload(c.BlockFragment)
}
