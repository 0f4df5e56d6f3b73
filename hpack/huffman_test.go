package hpack

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// RFC 7541 Appendix C.4.1 / C.4.2.
func TestHuffmanRFCVectors(t *testing.T) {
	cases := []struct {
		plain   string
		encoded []byte
	}{
		{"www.example.com", []byte{0xf1, 0xe3, 0xc2, 0xe5, 0xf2, 0x3a, 0x6b, 0xa0, 0xab, 0x90, 0xf4, 0xff}},
		{"no-cache", []byte{0xa8, 0xeb, 0x10, 0x64, 0x9c, 0xbf}},
	}

	for _, c := range cases {
		got := huffmanEncode(nil, []byte(c.plain))
		assert.Equal(t, c.encoded, got, "encode(%q)", c.plain)
		assert.Equal(t, len(c.encoded), huffmanEncodedLen([]byte(c.plain)))

		back, err := huffmanDecode(nil, c.encoded)
		assert.NoError(t, err)
		assert.Equal(t, c.plain, string(back))
	}
}

func TestHuffmanRoundTripArbitraryBytes(t *testing.T) {
	inputs := [][]byte{
		nil,
		[]byte(""),
		[]byte("a"),
		[]byte("Mozilla/5.0 (compatible)"),
		[]byte("gzip, deflate, br"),
		{0x00, 0x01, 0x02, 0xff, 0xfe, 0x7f, 0x80},
	}
	for _, in := range inputs {
		enc := huffmanEncode(nil, in)
		assert.Equal(t, huffmanEncodedLen(in), len(enc))
		dec, err := huffmanDecode(nil, enc)
		assert.NoError(t, err)
		assert.Equal(t, in, dec)
	}
}

func TestHuffmanRejectsBadPadding(t *testing.T) {
	// "a" is a 5-bit code (00011); a correctly padded single byte fills the
	// remaining 3 bits with 1s (0x1f). Padding with 0s instead must fail.
	good := huffmanEncode(nil, []byte("a"))
	assert.Equal(t, []byte{0x1f}, good)

	bad := []byte{0x18} // 00011 000
	_, err := huffmanDecode(nil, bad)
	assert.ErrorIs(t, err, ErrCompression)
}
