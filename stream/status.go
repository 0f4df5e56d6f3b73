package stream

import "github.com/h2vex/engine/hpack"

// ParseStatus extracts and validates the :status pseudo-header from a
// decoded response header list (base spec §4.5: required in the first
// HEADERS block, must decode to an ASCII-digit integer).
func ParseStatus(fields []hpack.HeaderField) (int, error) {
	for _, hf := range fields {
		if hf.Name != ":status" {
			continue
		}
		return parseASCIIDigits(hf.Value)
	}
	return 0, errMissingStatus
}

func parseASCIIDigits(v string) (int, error) {
	if len(v) == 0 {
		return 0, errMalformedStatus
	}
	n := 0
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c < '0' || c > '9' {
			return 0, errMalformedStatus
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
