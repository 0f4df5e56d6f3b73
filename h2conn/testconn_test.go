package h2conn

import (
	"io"
	"net"
)

// duplex wraps a net.Conn as a frame.Transport; net.Pipe already satisfies
// io.Reader/io.Writer, but the explicit type keeps call sites readable.
type duplex struct {
	net.Conn
}

func newPipePair() (client, server *duplex) {
	c, s := net.Pipe()
	return &duplex{c}, &duplex{s}
}

var _ io.ReadWriter = (*duplex)(nil)
