package flowcontrol

import "github.com/h2vex/engine/frame"

// ValidateWindowUpdateIncrement checks a received WINDOW_UPDATE's increment
// against RFC 7540 §6.9's rules: zero is a PROTOCOL_ERROR (connection-scoped
// on stream 0, stream-scoped otherwise); increments must not exceed
// MaxWindowSize.
func ValidateWindowUpdateIncrement(increment uint32, streamID uint32) error {
	if increment == 0 {
		if streamID == 0 {
			return frame.NewConnError(frame.ErrCodeProtocol, "WINDOW_UPDATE increment of 0 on stream 0")
		}
		return frame.NewStreamError(streamID, frame.ErrCodeProtocol, "WINDOW_UPDATE increment of 0")
	}
	if increment > uint32(MaxWindowSize) {
		return frame.NewConnError(frame.ErrCodeFlowControl, "WINDOW_UPDATE increment exceeds max window size")
	}
	return nil
}

// DataChunkSize returns the number of bytes of the next outgoing DATA frame,
// the minimum of the remaining payload, both send windows, and the peer's
// negotiated max frame size (base spec §4.6 Sending DATA).
func DataChunkSize(remaining int, streamWindow, connWindow *SendWindow, peerMaxFrameSize int) int {
	n := remaining
	if sw := int(streamWindow.Available()); sw < n {
		n = sw
	}
	if cw := int(connWindow.Available()); cw < n {
		n = cw
	}
	if peerMaxFrameSize < n {
		n = peerMaxFrameSize
	}
	if n < 0 {
		n = 0
	}
	return n
}
