package frame

import "io"

// Preface is the fixed client connection preface (RFC 7540 §3.5).
const Preface = "PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n"

// WritePreface writes the 24-byte client connection preface exactly once;
// the caller guarantees single invocation (base spec §4.1).
func WritePreface(w io.Writer) error {
	_, err := io.WriteString(w, Preface)
	return err
}

// ReadPreface reads exactly len(Preface) bytes and validates them. Servers
// (out of scope for this client engine, but kept for symmetry/tests) use
// this to validate an incoming client preface.
func ReadPreface(r io.Reader) error {
	buf := make([]byte, len(Preface))
	if _, err := io.ReadFull(r, buf); err != nil {
		return err
	}
	if string(buf) != Preface {
		return ErrBadPreface
	}
	return nil
}
