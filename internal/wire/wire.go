// Package wire holds the tiny big-endian helpers used by the frame codec's
// header and body files.
package wire

// Uint24 reads a 24-bit big-endian integer from b (len(b) >= 3).
func Uint24(b []byte) uint32 {
	_ = b[2]
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

// PutUint24 writes n as a 24-bit big-endian integer into b (len(b) >= 3).
func PutUint24(b []byte, n uint32) {
	_ = b[2]
	b[0] = byte(n >> 16)
	b[1] = byte(n >> 8)
	b[2] = byte(n)
}

// Uint31 reads a 31-bit big-endian integer from b, masking the reserved bit.
func Uint31(b []byte) uint32 {
	_ = b[3]
	n := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	return n & (1<<31 - 1)
}

// PutUint32 writes n as a 32-bit big-endian integer into b (len(b) >= 4).
func PutUint32(b []byte, n uint32) {
	_ = b[3]
	b[0] = byte(n >> 24)
	b[1] = byte(n >> 16)
	b[2] = byte(n >> 8)
	b[3] = byte(n)
}

// AppendUint32 appends n as a 32-bit big-endian integer to dst.
func AppendUint32(dst []byte, n uint32) []byte {
	return append(dst, byte(n>>24), byte(n>>16), byte(n>>8), byte(n))
}

// Uint32 reads a plain (non-masked) 32-bit big-endian integer from b.
func Uint32(b []byte) uint32 {
	_ = b[3]
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
