// Package flowcontrol implements HTTP/2's two independent 31-bit signed
// byte-credit windows (RFC 7540 §6.9), one send and one recv window at both
// connection and stream scope.
//
// Grounded on dgrr-http2's atomic-counter style for connection state
// (conn.go's send/recv window fields), generalized into a reusable type
// used at both scopes instead of duplicated inline fields.
package flowcontrol

import (
	"sync/atomic"

	"github.com/h2vex/engine/frame"
)

// DefaultInitialWindowSize is RFC 7540 §6.9.2's default SETTINGS_INITIAL_WINDOW_SIZE.
const DefaultInitialWindowSize int32 = 65535

// MaxWindowSize is the largest legal window value (2^31 - 1).
const MaxWindowSize int32 = 1<<31 - 1

// ReplenishThreshold is the recv-window replenishment trigger for a window
// whose nominal size is DefaultInitialWindowSize: half the nominal value
// (base spec §4.6 Replenishment). A RecvWindow constructed with a different
// nominal size computes its own threshold as nominal/2 rather than using
// this constant directly.
const ReplenishThreshold int32 = DefaultInitialWindowSize / 2

// SendWindow is the byte credit available to send DATA payload. Consume is
// called after a successful write; Increase applies an incoming
// WINDOW_UPDATE or positive SETTINGS_INITIAL_WINDOW_SIZE delta.
type SendWindow struct {
	cur atomic.Int32
}

// NewSendWindow returns a SendWindow initialized to n.
func NewSendWindow(n int32) *SendWindow {
	w := &SendWindow{}
	w.cur.Store(n)
	return w
}

// Available returns the current send credit. May be negative transiently
// after a SETTINGS INITIAL_WINDOW_SIZE decrease (RFC 7540 §6.9.2).
func (w *SendWindow) Available() int32 { return w.cur.Load() }

// Consume decrements the window by n, which must not exceed Available().
func (w *SendWindow) Consume(n int32) { w.cur.Add(-n) }

// Increase applies a positive credit (a WINDOW_UPDATE increment). It fails
// with ErrCodeFlowControl if the result would exceed MaxWindowSize.
func (w *SendWindow) Increase(delta int32) error {
	for {
		old := w.cur.Load()
		next := int64(old) + int64(delta)
		if next > int64(MaxWindowSize) {
			return frame.NewConnError(frame.ErrCodeFlowControl, "window update overflows send window")
		}
		if w.cur.CompareAndSwap(old, int32(next)) {
			return nil
		}
	}
}

// ApplyInitialWindowDelta applies delta (new - old SETTINGS_INITIAL_WINDOW_SIZE)
// to this stream's send window, as required when the peer changes
// SETTINGS_INITIAL_WINDOW_SIZE (base spec §4.6). delta may be negative.
func (w *SendWindow) ApplyInitialWindowDelta(delta int32) error {
	for {
		old := w.cur.Load()
		next := int64(old) + int64(delta)
		if next > int64(MaxWindowSize) || next < -int64(MaxWindowSize) {
			return frame.NewConnError(frame.ErrCodeFlowControl, "initial window delta overflows send window")
		}
		if w.cur.CompareAndSwap(old, int32(next)) {
			return nil
		}
	}
}

// RecvWindow is the byte credit we grant the peer to send DATA to us.
type RecvWindow struct {
	cur     atomic.Int32
	nominal int32
}

// NewRecvWindow returns a RecvWindow initialized to and nominally sized at n.
func NewRecvWindow(n int32) *RecvWindow {
	w := &RecvWindow{nominal: n}
	w.cur.Store(n)
	return w
}

// Charge debits n (the full DATA frame length including padding, per base
// spec §4.6) from the window. It fails with ErrCodeFlowControl if the
// window would go negative.
func (w *RecvWindow) Charge(n int32) error {
	for {
		old := w.cur.Load()
		next := old - n
		if next < 0 {
			return frame.NewConnError(frame.ErrCodeFlowControl, "recv window exceeded")
		}
		if w.cur.CompareAndSwap(old, next) {
			return nil
		}
	}
}

// MaybeReplenish reports whether the window has fallen at/below half its
// nominal size and, if so, restores it to nominal and returns the
// WINDOW_UPDATE increment the caller must send.
func (w *RecvWindow) MaybeReplenish() (increment int32, ok bool) {
	threshold := w.nominal / 2
	for {
		old := w.cur.Load()
		if old > threshold {
			return 0, false
		}
		increment = w.nominal - old
		if increment <= 0 {
			return 0, false
		}
		if w.cur.CompareAndSwap(old, w.nominal) {
			return increment, true
		}
	}
}

// Current returns the current recv credit.
func (w *RecvWindow) Current() int32 { return w.cur.Load() }
