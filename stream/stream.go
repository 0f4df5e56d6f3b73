// Package stream implements the per-stream HTTP/2 state machine (RFC 7540
// §5.1): legal transitions driven by sent/received HEADERS, DATA, and
// RST_STREAM, and the client-view response accumulation (status, headers,
// body, and the HeaderBlock buffer the connection multiplexer fills across
// CONTINUATION frames).
//
// Grounded on dgrr-http2's stream.go StreamState enum, generalized with the
// explicit CLOSED-frame guard and :status validation the base spec's design
// notes call out as resolved open questions (frames on a CLOSED stream
// outside {PRIORITY, WINDOW_UPDATE, RST_STREAM} are a stream error, not
// silently ignored).
package stream

import (
	"sync"

	"github.com/h2vex/engine/flowcontrol"
	"github.com/h2vex/engine/frame"
	"github.com/h2vex/engine/hpack"
)

// State is a client-view HTTP/2 stream state (RFC 7540 §5.1, restricted to
// the states a client-only engine ever occupies: no server-push reserved
// states are produced, but ReservedRemote is modeled for PUSH_PROMISE
// rejection bookkeeping before the connection refuses it outright).
type State uint8

const (
	Idle State = iota
	ReservedLocal
	ReservedRemote
	Open
	HalfClosedLocal
	HalfClosedRemote
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ReservedLocal:
		return "reserved(local)"
	case ReservedRemote:
		return "reserved(remote)"
	case Open:
		return "open"
	case HalfClosedLocal:
		return "half-closed(local)"
	case HalfClosedRemote:
		return "half-closed(remote)"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Stream is one bidirectional HTTP/2 stream from the client's point of
// view: the h2conn's active-stream table holds one per in-flight request.
type Stream struct {
	ID uint32

	SendWindow *flowcontrol.SendWindow
	RecvWindow *flowcontrol.RecvWindow

	mu    sync.Mutex
	state State

	firstFrameSeen bool
	headersSeen    bool

	StatusCode int
	Headers    []hpack.HeaderField
	Body       []byte

	// HeaderBlock accumulates HPACK block fragments across a HEADERS frame
	// and any CONTINUATION frames that follow it, until END_HEADERS arrives.
	// Owned by the connection multiplexer; stream.go never reads it.
	HeaderBlock []byte

	Done chan struct{}
	Err  error
	once sync.Once
}

// New returns an Idle stream with the given initial send/recv window sizes.
func New(id uint32, sendWindow, recvWindow int32) *Stream {
	return &Stream{
		ID:         id,
		SendWindow: flowcontrol.NewSendWindow(sendWindow),
		RecvWindow: flowcontrol.NewRecvWindow(recvWindow),
		state:      Idle,
		Done:       make(chan struct{}),
	}
}

// State returns the stream's current state.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SendHeaders records that the client wrote the request HEADERS frame,
// transitioning Idle -> Open (more frames to come) or Idle -> HalfClosedLocal
// (END_STREAM=1, e.g. GET/HEAD).
func (s *Stream) SendHeaders(endStream bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		return frame.NewStreamError(s.ID, frame.ErrCodeInternal, "SendHeaders from non-idle state "+s.state.String())
	}
	if endStream {
		s.state = HalfClosedLocal
	} else {
		s.state = Open
	}
	return nil
}

// SendEndStream records that the client's final DATA frame carried
// END_STREAM, transitioning Open -> HalfClosedLocal.
func (s *Stream) SendEndStream() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case Open:
		s.state = HalfClosedLocal
		return nil
	case HalfClosedRemote:
		s.state = Closed
		return nil
	default:
		return frame.NewStreamError(s.ID, frame.ErrCodeInternal, "SendEndStream from state "+s.state.String())
	}
}

// RecvHeaders processes a HEADERS (or its CONTINUATION chain's terminal
// frame) from the peer. It records that HEADERS has arrived, which RecvData
// requires before it accepts DATA (base spec §4.5).
func (s *Stream) RecvHeaders(endStream bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Closed {
		return frame.NewStreamError(s.ID, frame.ErrCodeStreamClosed, "HEADERS on closed stream")
	}

	s.firstFrameSeen = true
	s.headersSeen = true

	if endStream {
		return s.recvEndStreamLocked()
	}
	return nil
}

// RecvData processes a DATA frame from the peer. Receiving DATA before any
// HEADERS is a stream error (base spec §4.5).
func (s *Stream) RecvData(endStream bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Closed {
		return frame.NewStreamError(s.ID, frame.ErrCodeStreamClosed, "DATA on closed stream")
	}
	if !s.firstFrameSeen {
		return frame.NewStreamError(s.ID, frame.ErrCodeProtocol, "DATA before HEADERS")
	}

	s.firstFrameSeen = true
	if endStream {
		return s.recvEndStreamLocked()
	}
	return nil
}

func (s *Stream) recvEndStreamLocked() error {
	switch s.state {
	case Open:
		s.state = HalfClosedRemote
	case HalfClosedLocal:
		s.state = Closed
	default:
		return frame.NewStreamError(s.ID, frame.ErrCodeProtocol, "END_STREAM from state "+s.state.String())
	}
	return nil
}

// AllowFrame enforces the resolved CLOSED-stream policy: once Closed, only
// PRIORITY, WINDOW_UPDATE, and RST_STREAM are legal; anything else is a
// stream error RST_STREAM(STREAM_CLOSED).
func (s *Stream) AllowFrame(t frame.Type) error {
	s.mu.Lock()
	closed := s.state == Closed
	s.mu.Unlock()

	if !closed {
		return nil
	}
	switch t {
	case frame.TypePriority, frame.TypeWindowUpdate, frame.TypeRSTStream:
		return nil
	default:
		return frame.NewStreamError(s.ID, frame.ErrCodeStreamClosed, "frame "+t.String()+" on closed stream")
	}
}

// Reset transitions the stream to Closed following a sent or received
// RST_STREAM, regardless of prior state.
func (s *Stream) Reset() {
	s.mu.Lock()
	s.state = Closed
	s.mu.Unlock()
}

// Finish marks the stream done with a terminal error (nil on success),
// closing Done exactly once so multiple observers never double-close it.
func (s *Stream) Finish(err error) {
	s.once.Do(func() {
		s.Err = err
		close(s.Done)
	})
}

// HeadersSeen reports whether a HEADERS frame has been observed on this
// stream yet.
func (s *Stream) HeadersSeen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headersSeen
}
