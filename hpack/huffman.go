package hpack

import "sort"

// eosSymbol is the pseudo-symbol RFC 7541 Appendix B assigns index 256 to
// ("end of string"); it only ever appears as padding at the tail of an
// encoded string, never as a real symbol, and decoding one mid-stream is a
// CompressionError (base spec §4.3).
const eosSymbol = 256

// huffmanCodeLen is RFC 7541 Appendix B's canonical code length per symbol
// (256 literal byte values plus the EOS pseudo-symbol at index 256). The
// codes themselves are not stored: HPACK's static Huffman table is a
// canonical code, meaning within each length class codes are assigned in
// ascending symbol-index order — so the (code, length) pairs the RFC
// publishes are fully determined by this length table via the standard
// canonical-Huffman construction in the package init below.
var huffmanCodeLen = [257]uint8{
	13, 23, 28, 28, 28, 28, 28, 28, 28, 24, 30, 28, 28, 30, 28, 28,
	28, 28, 28, 28, 28, 28, 30, 28, 28, 28, 28, 28, 28, 28, 28, 28,
	6, 10, 10, 12, 13, 6, 8, 11, 10, 10, 8, 11, 8, 6, 6, 6,
	5, 5, 5, 6, 6, 6, 6, 6, 6, 6, 7, 8, 15, 6, 11, 7,
	12, 6, 7, 7, 7, 7, 7, 7, 7, 7, 8, 7, 8, 7, 7, 7,
	7, 8, 7, 7, 7, 7, 7, 7, 8, 7, 8, 13, 19, 13, 14, 6,
	15, 5, 6, 5, 6, 5, 6, 6, 6, 5, 7, 7, 6, 6, 6, 5,
	6, 7, 6, 5, 5, 6, 7, 7, 7, 7, 7, 15, 11, 14, 13, 28,
	20, 22, 20, 20, 22, 22, 22, 23, 22, 23, 23, 23, 23, 23, 24, 22,
	23, 24, 24, 22, 23, 24, 23, 23, 23, 23, 23, 24, 21, 22, 23, 22,
	23, 23, 24, 21, 22, 23, 23, 24, 22, 24, 24, 24, 24, 24, 23, 24,
	24, 24, 24, 22, 24, 24, 24, 24, 24, 24, 24, 22, 20, 24, 22, 21,
	20, 22, 24, 21, 24, 24, 24, 22, 24, 22, 21, 22, 22, 21, 23, 23,
	21, 23, 24, 22, 22, 22, 22, 24, 21, 21, 20, 21, 23, 24, 24, 22,
	25, 25, 25, 24, 25, 24, 25, 25, 20, 25, 25, 25, 23, 23, 23, 25,
	25, 26, 20, 25, 25, 25, 25, 22, 20, 20, 19, 18, 20, 21, 21, 20,
	30,
}

type huffmanSym struct {
	code uint32
	len  uint8
}

var huffmanEnc [257]huffmanSym

// huffmanDec[length] maps a right-aligned code of that bit length to its symbol.
var huffmanDec [31]map[uint32]int

func init() {
	idx := make([]int, len(huffmanCodeLen))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		la, lb := huffmanCodeLen[idx[a]], huffmanCodeLen[idx[b]]
		if la != lb {
			return la < lb
		}
		return idx[a] < idx[b]
	})

	var code uint32
	var prevLen uint8
	for _, sym := range idx {
		l := huffmanCodeLen[sym]
		if prevLen != 0 {
			code <<= l - prevLen
		}
		huffmanEnc[sym] = huffmanSym{code: code, len: l}
		code++
		prevLen = l
	}

	for i := 1; i < len(huffmanDec); i++ {
		huffmanDec[i] = make(map[uint32]int)
	}
	for sym, hs := range huffmanEnc {
		huffmanDec[hs.len][hs.code] = sym
	}
}

// huffmanEncodedLen returns the exact octet count HuffmanEncode will produce
// for src (base spec §4.3, encoded_len).
func huffmanEncodedLen(src []byte) int {
	bits := 0
	for _, b := range src {
		bits += int(huffmanEnc[b].len)
	}
	return (bits + 7) / 8
}

// huffmanEncode appends the Huffman encoding of src to dst, packing codes
// MSB-first and padding the final byte with the high bits of EOS (i.e.
// all-1 bits), per base spec §4.3.
func huffmanEncode(dst []byte, src []byte) []byte {
	var acc uint64
	var nbits uint

	flush := func() {
		for nbits >= 8 {
			nbits -= 8
			dst = append(dst, byte(acc>>nbits))
		}
	}

	for _, b := range src {
		hs := huffmanEnc[b]
		acc = acc<<hs.len | uint64(hs.code)
		nbits += uint(hs.len)
		flush()
	}

	if nbits > 0 {
		// pad with 1-bits (the high bits of EOS) to fill the last byte.
		pad := 8 - nbits
		acc = acc<<pad | (1<<pad - 1)
		dst = append(dst, byte(acc))
	}

	return dst
}

// huffmanDecode appends the decoding of src to dst. It fails with
// ErrCompression on an EOS symbol appearing mid-stream, or on a terminal
// padding sequence longer than 7 bits / not all 1-bits (base spec §4.3).
func huffmanDecode(dst []byte, src []byte) ([]byte, error) {
	var acc uint64
	var nbits uint8

	for _, b := range src {
		acc = acc<<8 | uint64(b)
		nbits += 8

		for nbits >= 5 { // shortest valid code is 5 bits
			matched := false
			for l := uint8(5); l <= nbits && l <= 30; l++ {
				code := (acc >> (nbits - l)) & (1<<l - 1)
				if sym, ok := huffmanDec[l][uint32(code)]; ok {
					if sym == eosSymbol {
						return dst, ErrCompression
					}
					dst = append(dst, byte(sym))
					nbits -= l
					matched = true
					break
				}
			}
			if !matched {
				break
			}
		}
	}

	if nbits > 7 {
		return dst, ErrCompression
	}
	if nbits > 0 {
		remainder := acc & (1<<nbits - 1)
		if remainder != (1<<nbits - 1) {
			return dst, ErrCompression
		}
	}

	return dst, nil
}
