// Package bufpool pools byte buffers by size class. No other package in
// this module imports it.
//
// Grounded on dgrr-http2's use of github.com/valyala/bytebufferpool for
// Request/Response body buffers (request.go, response.go, client.go), with
// one addition the base spec requires (§5 Resource policy): size-class
// bucketing and an explicit Zero-on-return path for buffers that carried
// sensitive header bytes, so a decoded `authorization` value never survives
// in a buffer handed back to an unrelated caller.
package bufpool

import (
	"github.com/valyala/bytebufferpool"
)

// size classes, in ascending order. A Get request for n bytes is served
// from the pool of the smallest class of at least n bytes.
var classes = [...]int{512, 4096, 16384, 65536, 262144}

var pools [len(classes)]bytebufferpool.Pool

func classFor(n int) int {
	for i, c := range classes {
		if n <= c {
			return i
		}
	}
	return len(classes) - 1
}

// Buffer is a pooled, size-classed byte buffer.
type Buffer struct {
	bb    *bytebufferpool.ByteBuffer
	class int
}

// Get returns a buffer from hint's size class (the largest class when hint
// exceeds them all). The buffer is not grown to hint; its capacity is
// whatever the pooled buffer already has.
func Get(hint int) *Buffer {
	c := classFor(hint)
	return &Buffer{bb: pools[c].Get(), class: c}
}

// B exposes the underlying byte slice for read/write use.
func (b *Buffer) B() []byte { return b.bb.B }

// Set replaces the buffer contents with p.
func (b *Buffer) Set(p []byte) { b.bb.Set(p) }

// Write appends p to the buffer, growing it as needed.
func (b *Buffer) Write(p []byte) (int, error) { return b.bb.Write(p) }

// Reset truncates the buffer to zero length without releasing capacity.
func (b *Buffer) Reset() { b.bb.Reset() }

// Len returns the number of bytes currently held.
func (b *Buffer) Len() int { return len(b.bb.B) }

// Release returns b to its size class. When sensitive is true the backing
// array is zeroed first so its contents never leak to the next Get caller
// (the object-pool invariant from §5: no slot retains a caller's bytes past
// release).
func (b *Buffer) Release(sensitive bool) {
	if sensitive {
		zero(b.bb.B)
	}
	pools[b.class].Put(b.bb)
	b.bb = nil
}

func zero(p []byte) {
	for i := range p {
		p[i] = 0
	}
}
