package frame

import (
	"bufio"
	"io"
)

// Transport is the minimal duplex-byte contract the Framer needs. TLS
// negotiation, connect and close-semantics live outside this package (base
// spec §1 Out of scope / §6 Transport contract); this interface is exactly
// the surface the frame codec consumes from it.
type Transport interface {
	io.Reader
	io.Writer
}

// Framer reads and writes HTTP/2 frames over a Transport. It is not safe for
// concurrent use by multiple goroutines on the same side (read vs write may
// run concurrently from two different goroutines, matching the "single
// reader task, single writer task" model in base spec §4.7/§5).
type Framer struct {
	br *bufio.Reader
	bw *bufio.Writer
}

// NewFramer wraps t with buffered I/O sized for typical frame traffic.
func NewFramer(t Transport) *Framer {
	return &Framer{
		br: bufio.NewReaderSize(t, 4096),
		bw: bufio.NewWriterSize(t, DefaultMaxFrameSize),
	}
}

// WritePreface emits the connection preface. See §4.1.
func (fr *Framer) WritePreface() error {
	return WritePreface(fr.bw)
}

// WriteFrame writes the 9-byte header followed by exactly f.Length payload
// bytes. It fails with ErrInvalidArgument when f.Length > len(f.Payload).
// flush is caller-controlled so HEADERS+CONTINUATION or HEADERS+DATA pairs
// can be coalesced into a single write (base spec §4.1).
func (fr *Framer) WriteFrame(f *Frame, flush bool) error {
	if f.Length > len(f.Payload) {
		return ErrInvalidArgument
	}

	if _, err := fr.bw.Write(f.encodeHeader(f.Length)); err != nil {
		return err
	}
	if f.Length > 0 {
		if _, err := fr.bw.Write(f.Payload[:f.Length]); err != nil {
			return err
		}
	}

	if flush {
		return fr.bw.Flush()
	}
	return nil
}

// Flush flushes any frames buffered by prior WriteFrame(..., false) calls.
func (fr *Framer) Flush() error { return fr.bw.Flush() }

// ReadFrame reads exactly 9 bytes, decodes the length, and if it exceeds
// maxFrameSize fails with ErrFrameSize before consuming the payload;
// otherwise it reads the payload in full (base spec §4.1). End-of-stream
// while reading the header is surfaced as whatever transport error io.Reader
// produced (typically io.EOF or io.ErrUnexpectedEOF).
func (fr *Framer) ReadFrame(maxFrameSize uint32) (*Frame, error) {
	var hdr [HeaderLen]byte
	if _, err := io.ReadFull(fr.br, hdr[:]); err != nil {
		return nil, err
	}

	f := Acquire()
	length := f.decodeHeader(hdr[:])

	if maxFrameSize != 0 && uint32(length) > maxFrameSize {
		Release(f)
		return nil, ErrFrameSize
	}

	f.Length = length
	if length > 0 {
		if cap(f.Payload) < length {
			f.Payload = make([]byte, length)
		} else {
			f.Payload = f.Payload[:length]
		}
		if _, err := io.ReadFull(fr.br, f.Payload); err != nil {
			Release(f)
			return nil, err
		}
	}

	return f, nil
}
