package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUint24RoundTrip(t *testing.T) {
	b := make([]byte, 3)
	PutUint24(b, 0x123456)
	assert.Equal(t, uint32(0x123456), Uint24(b))
}

func TestUint31MasksReservedBit(t *testing.T) {
	b := []byte{0xff, 0xff, 0xff, 0xff}
	assert.Equal(t, uint32(1<<31-1), Uint31(b))
}

func TestUint32RoundTrip(t *testing.T) {
	b := make([]byte, 4)
	PutUint32(b, 0xdeadbeef)
	assert.Equal(t, uint32(0xdeadbeef), Uint32(b))
	assert.Equal(t, b, AppendUint32(nil, 0xdeadbeef))
}
