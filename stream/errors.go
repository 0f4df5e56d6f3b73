package stream

import "errors"

var (
	errMissingStatus   = errors.New("stream: response missing :status pseudo-header")
	errMalformedStatus = errors.New("stream: :status is not an ASCII-digit integer")
)
