package hpack

// appendString appends an RFC 7541 §5.2 string literal for s to dst,
// choosing Huffman encoding whenever it is strictly shorter than the raw
// octets (the common real-world heuristic; RFC 7541 permits either).
func appendString(dst []byte, s string) []byte {
	raw := len(s)
	huff := huffmanEncodedLen([]byte(s))

	if huff < raw {
		dst = appendInt(dst, 0x80, 7, uint64(huff))
		return huffmanEncode(dst, []byte(s))
	}

	dst = appendInt(dst, 0x00, 7, uint64(raw))
	return append(dst, s...)
}

// maxStringLen bounds a single string literal's decoded length as a guard
// against decompression-bomb length prefixes before any allocation happens.
const maxStringLen = 1 << 24

// readString decodes an RFC 7541 §5.2 string literal from src at offset off.
// It returns the decoded string and the number of input bytes consumed.
func readString(src []byte, off int) (string, int, error) {
	if off >= len(src) {
		return "", 0, ErrCompression
	}
	huffman := src[off]&0x80 != 0
	length, n, err := readInt(src, off, 7)
	if err != nil {
		return "", 0, err
	}
	if length > maxStringLen {
		return "", 0, ErrCompression
	}

	start := off + n
	end := start + int(length)
	if end > len(src) || end < start {
		return "", 0, ErrCompression
	}
	raw := src[start:end]
	consumed := n + int(length)

	if !huffman {
		return string(raw), consumed, nil
	}

	decoded, err := huffmanDecode(nil, raw)
	if err != nil {
		return "", 0, err
	}
	return string(decoded), consumed, nil
}
