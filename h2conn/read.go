package h2conn

import (
	"errors"

	"github.com/h2vex/engine/flowcontrol"
	"github.com/h2vex/engine/frame"
	"github.com/h2vex/engine/stream"
)

// readLoop is the single reader task (base spec §4.7/§5): it owns the
// Framer's read side exclusively and dispatches every decoded frame by
// type, failing the whole connection on any ConnError and only the
// offending stream on a StreamError.
//
// Grounded on dgrr-http2's conn.go readLoop/readNext/handleSettings/
// handlePing/readStream, generalized from its fasthttp response assembly to
// this engine's hpack.HeaderField/body accumulation on stream.Stream.
func (c *Conn) readLoop() {
	for {
		f, err := c.framer.ReadFrame(frame.DefaultMaxFrameSize)
		if err != nil {
			c.fail(err)
			return
		}

		err = c.dispatch(f)
		frame.Release(f)
		if err == nil {
			continue
		}

		var connErr *frame.ConnError
		if errors.As(err, &connErr) {
			c.log.Errorf("connection error, disposing connection: %s: %s", connErr.Code, connErr.Msg)
			c.sendGoAwayBestEffort(connErr.Code)
			c.fail(err)
			return
		}

		var streamErr *frame.StreamError
		if errors.As(err, &streamErr) {
			c.failStream(streamErr.StreamID, streamErr)
			c.resetStreamBestEffort(streamErr.StreamID, streamErr.Code)
			continue
		}

		c.fail(err)
		return
	}
}

func (c *Conn) sendGoAwayBestEffort(code frame.ErrorCode) {
	c.goAwayMu.Lock()
	if c.goAwaySent {
		c.goAwayMu.Unlock()
		return
	}
	c.goAwaySent = true
	lastSeen := c.lastPeerStreamIDSeen
	c.goAwayMu.Unlock()

	f := frame.Acquire()
	frame.EncodeGoAway(f, frame.GoAwayBody{LastStreamID: lastSeen, Code: code})
	c.enqueueWrite(f, true)
}

func (c *Conn) resetStreamBestEffort(streamID uint32, code frame.ErrorCode) {
	f := frame.Acquire()
	frame.EncodeRSTStream(f, frame.RSTStreamBody{Code: code})
	f.StreamID = streamID
	c.enqueueWrite(f, true)
}

func (c *Conn) dispatch(f *frame.Frame) error {
	if f.StreamID != 0 {
		c.noteStreamSeen(f.StreamID)
	}

	c.streamMu.Lock()
	pending := c.continuationStreamID
	c.streamMu.Unlock()
	if pending != 0 && f.Type != frame.TypeContinuation {
		return frame.NewConnError(frame.ErrCodeProtocol, "expected CONTINUATION frame")
	}

	switch f.Type {
	case frame.TypeData:
		return c.handleData(f)
	case frame.TypeHeaders:
		return c.handleHeaders(f)
	case frame.TypeContinuation:
		return c.handleContinuation(f)
	case frame.TypePriority:
		_, err := frame.DecodePriority(f)
		return err
	case frame.TypeRSTStream:
		return c.handleRSTStream(f)
	case frame.TypeSettings:
		return c.handleSettings(f)
	case frame.TypePushPromise:
		return frame.NewConnError(frame.ErrCodeProtocol, "PUSH_PROMISE received with ENABLE_PUSH=0")
	case frame.TypePing:
		return c.handlePing(f)
	case frame.TypeGoAway:
		return c.handleGoAway(f)
	case frame.TypeWindowUpdate:
		return c.handleWindowUpdate(f)
	default:
		return nil
	}
}

func (c *Conn) noteStreamSeen(id uint32) {
	c.goAwayMu.Lock()
	if id > c.lastPeerStreamIDSeen {
		c.lastPeerStreamIDSeen = id
	}
	c.goAwayMu.Unlock()
}

func (c *Conn) lookupStream(id uint32) *stream.Stream {
	c.streamMu.Lock()
	st := c.streams[id]
	c.streamMu.Unlock()
	return st
}

func (c *Conn) failStream(id uint32, err error) {
	st := c.lookupStream(id)
	if st == nil {
		return
	}
	st.Reset()
	c.removeStream(id)
	st.Finish(err)
}

// handleData processes DATA: it charges both the connection and stream recv
// windows with the frame's full wire length (including padding, base spec
// §4.6), then appends the unpadded body to the stream's accumulator.
func (c *Conn) handleData(f *frame.Frame) error {
	d, err := frame.DecodeData(f)
	if err != nil {
		return err
	}

	if err := c.connRecvWindow.Charge(int32(f.Len())); err != nil {
		return frame.NewConnError(frame.ErrCodeFlowControl, "connection recv window exceeded")
	}

	st := c.lookupStream(f.StreamID)
	if st == nil {
		// Stream already gone (finished/reset); data is discarded but the
		// connection-level charge above still keeps flow control honest.
		return nil
	}
	if err := st.AllowFrame(frame.TypeData); err != nil {
		return err
	}
	if err := st.RecvData(d.EndStream); err != nil {
		return err
	}
	if err := st.RecvWindow.Charge(int32(f.Len())); err != nil {
		return frame.NewStreamError(f.StreamID, frame.ErrCodeFlowControl, "stream recv window exceeded")
	}

	st.Body = append(st.Body, d.Data...)

	c.maybeReplenish(f.StreamID, st)

	if d.EndStream {
		c.removeStream(f.StreamID)
		st.Finish(nil)
	}
	return nil
}

func (c *Conn) maybeReplenish(streamID uint32, st *stream.Stream) {
	if inc, ok := c.connRecvWindow.MaybeReplenish(); ok {
		wf := frame.Acquire()
		frame.EncodeWindowUpdate(wf, frame.WindowUpdateBody{Increment: uint32(inc)})
		c.enqueueWrite(wf, true)
	}
	if inc, ok := st.RecvWindow.MaybeReplenish(); ok {
		wf := frame.Acquire()
		frame.EncodeWindowUpdate(wf, frame.WindowUpdateBody{Increment: uint32(inc)})
		wf.StreamID = streamID
		c.enqueueWrite(wf, true)
	}
}

// handleHeaders begins or completes a header block. Per base spec §4.3, a
// HEADERS without END_HEADERS opens a continuation sequence that must be
// the *only* frame type accepted on the connection until its terminal
// CONTINUATION arrives.
func (c *Conn) handleHeaders(f *frame.Frame) error {
	h, err := frame.DecodeHeaders(f)
	if err != nil {
		return err
	}

	c.streamMu.Lock()
	if c.continuationStreamID != 0 {
		c.streamMu.Unlock()
		return frame.NewConnError(frame.ErrCodeProtocol, "HEADERS received mid-continuation sequence")
	}
	if !h.EndHeaders {
		c.continuationStreamID = f.StreamID
	}
	c.streamMu.Unlock()

	st := c.lookupStream(f.StreamID)
	if st == nil {
		return nil
	}
	if err := st.AllowFrame(frame.TypeHeaders); err != nil {
		return err
	}

	return c.assembleHeaders(st, f.StreamID, h.BlockFragment, h.EndHeaders, h.EndStream)
}

func (c *Conn) handleContinuation(f *frame.Frame) error {
	cont, err := frame.DecodeContinuation(f)
	if err != nil {
		return err
	}

	c.streamMu.Lock()
	expected := c.continuationStreamID
	c.streamMu.Unlock()
	if expected == 0 || expected != f.StreamID {
		return frame.NewConnError(frame.ErrCodeProtocol, "unexpected CONTINUATION frame")
	}

	st := c.lookupStream(f.StreamID)
	if st == nil {
		if cont.EndHeaders {
			c.streamMu.Lock()
			c.continuationStreamID = 0
			c.streamMu.Unlock()
		}
		return nil
	}

	endStream := st.HeadersSeen() && st.State() == stream.HalfClosedRemote
	return c.assembleHeaders(st, f.StreamID, cont.BlockFragment, cont.EndHeaders, endStream)
}

// assembleHeaders buffers block fragments under the stream's continuation
// accumulator and, once END_HEADERS arrives, HPACK-decodes the full block
// and parses :status.
func (c *Conn) assembleHeaders(st *stream.Stream, streamID uint32, fragment []byte, endHeaders, endStream bool) error {
	st.HeaderBlock = append(st.HeaderBlock, fragment...)
	if !endHeaders {
		return nil
	}

	c.streamMu.Lock()
	c.continuationStreamID = 0
	c.streamMu.Unlock()

	isFirstHeaderBlock := !st.HeadersSeen()

	c.encMu.Lock()
	fields, err := c.dec.DecodeHeaders(nil, st.HeaderBlock)
	c.encMu.Unlock()
	st.HeaderBlock = nil
	if err != nil {
		return frame.NewConnError(frame.ErrCodeCompression, "HPACK decode failed: "+err.Error())
	}

	if err := st.RecvHeaders(endStream); err != nil {
		return err
	}

	if isFirstHeaderBlock {
		code, err := stream.ParseStatus(fields)
		if err != nil {
			return frame.NewStreamError(streamID, frame.ErrCodeProtocol, err.Error())
		}
		st.StatusCode = code
		st.Headers = fields
	} else {
		st.Headers = append(st.Headers, fields...)
	}

	if endStream {
		c.removeStream(streamID)
		st.Finish(nil)
	}
	return nil
}

func (c *Conn) handleRSTStream(f *frame.Frame) error {
	r, err := frame.DecodeRSTStream(f)
	if err != nil {
		return err
	}
	c.failStream(f.StreamID, frame.NewStreamError(f.StreamID, r.Code, "RST_STREAM from peer"))
	return nil
}

// handleSettings applies a non-ACK SETTINGS from the peer (applying the
// initial-window delta to every open stream's send window and failing on
// overflow, base spec §4.7) and ACKs it, or on a received ACK completes the
// local handshake wait. SETTINGS on a non-zero stream is a PROTOCOL_ERROR; a
// malformed payload (including an ACK with a payload) is a FRAME_SIZE_ERROR.
func (c *Conn) handleSettings(f *frame.Frame) error {
	if f.StreamID != 0 {
		return frame.NewConnError(frame.ErrCodeProtocol, "SETTINGS on non-zero stream")
	}
	s, err := frame.DecodeSettings(f)
	if err != nil {
		return frame.NewConnError(frame.ErrCodeFrameSize, "malformed SETTINGS payload: "+err.Error())
	}

	if s.Ack {
		select {
		case c.settingsAckCh <- struct{}{}:
		default:
		}
		return nil
	}

	var initialWindowDelta int32
	haveInitialWindowDelta := false
	for _, entry := range s.Settings {
		switch entry.ID {
		case frame.SettingInitialWindowSize:
			haveInitialWindowDelta = true
			prev := c.peerInitialWindowSize.Load()
			initialWindowDelta = int32(entry.Value) - prev
			c.peerInitialWindowSize.Store(int32(entry.Value))
		case frame.SettingMaxFrameSize:
			c.peerMaxFrameSize.Store(entry.Value)
		case frame.SettingHeaderTableSize:
			c.encMu.Lock()
			c.enc.SetMaxDynamicTableSize(int(entry.Value))
			c.encMu.Unlock()
		}
	}

	if haveInitialWindowDelta {
		c.streamMu.Lock()
		streams := make([]*stream.Stream, 0, len(c.streams))
		for _, st := range c.streams {
			streams = append(streams, st)
		}
		c.streamMu.Unlock()
		for _, st := range streams {
			if err := st.SendWindow.ApplyInitialWindowDelta(initialWindowDelta); err != nil {
				return err
			}
		}
	}

	c.peerSettingsOnce.Do(func() { close(c.peerSettingsDone) })
	c.wakeWriters()

	ackFrame := frame.Acquire()
	frame.EncodeSettings(ackFrame, frame.SettingsBody{Ack: true})
	return c.enqueueWrite(ackFrame, true)
}

func (c *Conn) handlePing(f *frame.Frame) error {
	p, err := frame.DecodePing(f)
	if err != nil {
		return err
	}
	if p.Ack {
		c.unackedPings.Store(0)
		return nil
	}
	pong := frame.Acquire()
	frame.EncodePing(pong, frame.PingBody{Ack: true, Data: p.Data})
	return c.enqueueWrite(pong, true)
}

// handleGoAway records the peer's shutdown announcement: streams above
// LastStreamID are failed locally (never reached the peer), new streams are
// refused, but already-accepted streams keep draining (base spec §4.7).
func (c *Conn) handleGoAway(f *frame.Frame) error {
	g, err := frame.DecodeGoAway(f)
	if err != nil {
		return err
	}

	c.goAwayMu.Lock()
	c.goAwayReceived = &GoAwayInfo{LastStreamID: g.LastStreamID, Code: g.Code}
	c.goAwayMu.Unlock()

	c.streamMu.Lock()
	var toFail []*stream.Stream
	for id, st := range c.streams {
		if id > g.LastStreamID {
			toFail = append(toFail, st)
			delete(c.streams, id)
		}
	}
	c.streamMu.Unlock()

	for _, st := range toFail {
		st.Reset()
		st.Finish(frame.NewConnError(g.Code, "stream not processed before peer GOAWAY"))
	}
	return nil
}

func (c *Conn) handleWindowUpdate(f *frame.Frame) error {
	w, err := frame.DecodeWindowUpdate(f)
	if err != nil {
		return err
	}
	if err := flowcontrol.ValidateWindowUpdateIncrement(w.Increment, f.StreamID); err != nil {
		return err
	}

	if f.StreamID == 0 {
		if err := c.connSendWindow.Increase(int32(w.Increment)); err != nil {
			return err
		}
		c.wakeWriters()
		return nil
	}

	st := c.lookupStream(f.StreamID)
	if st == nil {
		return nil
	}
	if err := st.AllowFrame(frame.TypeWindowUpdate); err != nil {
		return err
	}
	if err := st.SendWindow.Increase(int32(w.Increment)); err != nil {
		return frame.NewStreamError(f.StreamID, frame.ErrCodeFlowControl, "stream send window overflow")
	}
	c.wakeWriters()
	return nil
}
