package h2conn

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/h2vex/engine/frame"
	"github.com/h2vex/engine/hpack"
	"github.com/stretchr/testify/require"
)

// serverPeer is a hand-rolled HTTP/2 peer driven directly through the frame
// package, standing in for a real server so Conn's handshake and a full
// request/response round trip can be exercised without a network.
type serverPeer struct {
	t         *testing.T
	transport frame.Transport
	framer    *frame.Framer
	enc       *hpack.Encoder
	dec       *hpack.Decoder
}

func newServerPeer(t *testing.T, transport frame.Transport) *serverPeer {
	return &serverPeer{t: t, transport: transport, enc: hpack.NewEncoder(4096), dec: hpack.NewDecoder(4096)}
}

// readPrefaceAndSettings consumes the client's connection preface and
// initial SETTINGS frame, acquiring the Framer only afterward so no bytes
// are lost to bufio read-ahead across the two stages.
func (p *serverPeer) readPrefaceAndSettings() frame.SettingsBody {
	t := p.t
	require.NoError(t, frame.ReadPreface(p.transport))
	p.framer = frame.NewFramer(p.transport)

	f, err := p.framer.ReadFrame(frame.DefaultMaxFrameSize)
	require.NoError(t, err)
	defer frame.Release(f)
	require.Equal(t, frame.TypeSettings, f.Type)
	s, err := frame.DecodeSettings(f)
	require.NoError(t, err)
	require.False(t, s.Ack)
	return s
}

func (p *serverPeer) sendSettings(settings []frame.Setting) {
	f := frame.Acquire()
	frame.EncodeSettings(f, frame.SettingsBody{Settings: settings})
	require.NoError(p.t, p.framer.WriteFrame(f, true))
	frame.Release(f)
}

func (p *serverPeer) sendSettingsAck() {
	f := frame.Acquire()
	frame.EncodeSettings(f, frame.SettingsBody{Ack: true})
	require.NoError(p.t, p.framer.WriteFrame(f, true))
	frame.Release(f)
}

func (p *serverPeer) readSettingsAck() {
	f, err := p.framer.ReadFrame(frame.DefaultMaxFrameSize)
	require.NoError(p.t, err)
	defer frame.Release(f)
	require.Equal(p.t, frame.TypeSettings, f.Type)
	s, err := frame.DecodeSettings(f)
	require.NoError(p.t, err)
	require.True(p.t, s.Ack)
}

// readRequestHeaders reads one HEADERS frame (assumed to carry the full
// block with END_HEADERS, as h2conn.sendRequest always emits) and decodes
// it, returning the stream id and decoded fields.
func (p *serverPeer) readRequestHeaders() (uint32, []hpack.HeaderField) {
	f, err := p.framer.ReadFrame(frame.DefaultMaxFrameSize)
	require.NoError(p.t, err)
	defer frame.Release(f)
	require.Equal(p.t, frame.TypeHeaders, f.Type)
	h, err := frame.DecodeHeaders(f)
	require.NoError(p.t, err)
	require.True(p.t, h.EndHeaders)

	fields, err := p.dec.DecodeHeaders(nil, h.BlockFragment)
	require.NoError(p.t, err)
	return f.StreamID, fields
}

// respondOK writes a HEADERS(:status 200)+DATA(END_STREAM) pair on
// streamID.
func (p *serverPeer) respondOK(streamID uint32, body []byte) {
	block := p.enc.EncodeHeaders(nil, []hpack.HeaderField{
		{Name: ":status", Value: "200"},
		{Name: "content-type", Value: "text/plain"},
	})
	hf := frame.Acquire()
	frame.EncodeHeaders(hf, frame.HeadersBody{EndHeaders: true, BlockFragment: block}, 0)
	hf.StreamID = streamID
	require.NoError(p.t, p.framer.WriteFrame(hf, true))
	frame.Release(hf)

	df := frame.Acquire()
	frame.EncodeData(df, frame.DataBody{EndStream: true, Data: body}, 0)
	df.StreamID = streamID
	require.NoError(p.t, p.framer.WriteFrame(df, true))
	frame.Release(df)
}

func defaultServerSettings() []frame.Setting {
	return []frame.Setting{
		{ID: frame.SettingHeaderTableSize, Value: 4096},
		{ID: frame.SettingEnablePush, Value: 0},
		{ID: frame.SettingInitialWindowSize, Value: 65535},
		{ID: frame.SettingMaxHeaderListSize, Value: 65536},
	}
}

func TestConnHandshakeAndGetRoundTrip(t *testing.T) {
	clientTransport, serverTransport := newPipePair()
	defer clientTransport.Close()
	defer serverTransport.Close()

	conn := New(clientTransport, Opts{DisablePing: true})
	peer := newServerPeer(t, serverTransport)

	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		peer.readPrefaceAndSettings()
		peer.sendSettings(defaultServerSettings())
		peer.sendSettingsAck()
		peer.readSettingsAck()

		streamID, fields := peer.readRequestHeaders()
		var method, path string
		for _, hf := range fields {
			switch hf.Name {
			case ":method":
				method = hf.Value
			case ":path":
				path = hf.Value
			}
		}
		require.Equal(t, "GET", method)
		require.Equal(t, "/hello", path)
		peer.respondOK(streamID, []byte("hello world"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Handshake(ctx))

	resp, err := conn.RoundTrip(ctx, &Request{
		Method:    "GET",
		Authority: "example.com",
		Scheme:    "https",
		Path:      "/hello",
	})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "hello world", string(resp.Body))

	<-serverDone
	conn.Close()
}

// TestConnPeerInitialWindowSizeSeedsAndPatchesStreams exercises
// peerInitialWindowSize end to end: a stream opened against a non-default
// handshake INITIAL_WINDOW_SIZE must be seeded from it, a later SETTINGS
// change must patch that stream's send window by the delta from the
// *previous* peer value (not the 65535 default), and a stream opened after
// the change must be seeded directly from the new value.
func TestConnPeerInitialWindowSizeSeedsAndPatchesStreams(t *testing.T) {
	clientTransport, serverTransport := newPipePair()
	defer clientTransport.Close()
	defer serverTransport.Close()

	conn := New(clientTransport, Opts{DisablePing: true})
	peer := newServerPeer(t, serverTransport)

	const firstInitialWindow = 10000
	const secondInitialWindow = 20000

	streamAHeadersSeen := make(chan uint32, 1)
	streamBHeadersSeen := make(chan uint32, 1)
	sendSecondSettings := make(chan struct{})
	secondSettingsAcked := make(chan struct{})
	serverDone := make(chan struct{})

	go func() {
		defer close(serverDone)
		peer.readPrefaceAndSettings()
		peer.sendSettings([]frame.Setting{
			{ID: frame.SettingHeaderTableSize, Value: 4096},
			{ID: frame.SettingEnablePush, Value: 0},
			{ID: frame.SettingInitialWindowSize, Value: firstInitialWindow},
			{ID: frame.SettingMaxHeaderListSize, Value: 65536},
		})
		peer.sendSettingsAck()
		peer.readSettingsAck()

		streamA, _ := peer.readRequestHeaders()
		streamAHeadersSeen <- streamA

		<-sendSecondSettings
		peer.sendSettings([]frame.Setting{{ID: frame.SettingInitialWindowSize, Value: secondInitialWindow}})
		peer.readSettingsAck()
		close(secondSettingsAcked)

		streamB, _ := peer.readRequestHeaders()
		streamBHeadersSeen <- streamB

		peer.respondOK(streamA, []byte("a"))
		peer.respondOK(streamB, []byte("b"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, conn.Handshake(ctx))
	require.EqualValues(t, firstInitialWindow, conn.peerInitialWindowSize.Load())

	respA := make(chan *Response, 1)
	errA := make(chan error, 1)
	go func() {
		resp, err := conn.RoundTrip(ctx, &Request{Method: "GET", Authority: "example.com", Scheme: "https", Path: "/a"})
		respA <- resp
		errA <- err
	}()

	streamAID := <-streamAHeadersSeen
	require.EqualValues(t, 1, streamAID)

	stA := conn.lookupStream(streamAID)
	require.NotNil(t, stA)
	require.Equal(t, int32(firstInitialWindow), stA.SendWindow.Available(),
		"a stream opened against the handshake's non-default peer INITIAL_WINDOW_SIZE must be seeded from it, not the 65535 default")

	close(sendSecondSettings)
	<-secondSettingsAcked

	require.Equal(t, int32(secondInitialWindow), stA.SendWindow.Available(),
		"a later SETTINGS INITIAL_WINDOW_SIZE change must patch an already-open stream by the delta from the previously stored peer value")

	respB := make(chan *Response, 1)
	errB := make(chan error, 1)
	go func() {
		resp, err := conn.RoundTrip(ctx, &Request{Method: "GET", Authority: "example.com", Scheme: "https", Path: "/b"})
		respB <- resp
		errB <- err
	}()

	streamBID := <-streamBHeadersSeen
	require.EqualValues(t, 3, streamBID)
	stB := conn.lookupStream(streamBID)
	require.NotNil(t, stB)
	require.Equal(t, int32(secondInitialWindow), stB.SendWindow.Available(),
		"a stream opened after the SETTINGS change must be seeded directly from the new peer value")

	require.NoError(t, <-errA)
	require.NoError(t, <-errB)
	resA, resB := <-respA, <-respB
	require.Equal(t, "a", string(resA.Body))
	require.Equal(t, "b", string(resB.Body))

	<-serverDone
	conn.Close()
}

// windowUpdateEvent records one WINDOW_UPDATE the client sent back to the
// server peer while draining a flow-controlled response.
type windowUpdateEvent struct {
	conn bool
	inc  int32
}

// TestConnLargeResponseFlowControl sends a 128KiB response over the default
// 65535-byte connection and stream windows, requiring the client to emit
// both connection- and stream-scope WINDOW_UPDATE frames as it drains the
// body, and the server peer to honor both independently before sending more.
func TestConnLargeResponseFlowControl(t *testing.T) {
	const bodySize = 128 * 1024
	const chunkSize = 16384

	clientTransport, serverTransport := newPipePair()
	defer clientTransport.Close()
	defer serverTransport.Close()

	conn := New(clientTransport, Opts{DisablePing: true})
	peer := newServerPeer(t, serverTransport)

	body := make([]byte, bodySize)
	for i := range body {
		body[i] = byte(i)
	}

	var connWindowUpdates, streamWindowUpdates atomic.Int32
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		peer.readPrefaceAndSettings()
		peer.sendSettings(defaultServerSettings())
		peer.sendSettingsAck()
		peer.readSettingsAck()

		streamID, _ := peer.readRequestHeaders()

		block := peer.enc.EncodeHeaders(nil, []hpack.HeaderField{{Name: ":status", Value: "200"}})
		hf := frame.Acquire()
		frame.EncodeHeaders(hf, frame.HeadersBody{EndHeaders: true, BlockFragment: block}, 0)
		hf.StreamID = streamID
		require.NoError(t, peer.framer.WriteFrame(hf, true))
		frame.Release(hf)

		creditCh := make(chan windowUpdateEvent, 256)
		go func() {
			for {
				f, err := peer.framer.ReadFrame(frame.DefaultMaxFrameSize)
				if err != nil {
					return
				}
				if f.Type == frame.TypeWindowUpdate {
					if w, err := frame.DecodeWindowUpdate(f); err == nil {
						if f.StreamID == 0 {
							connWindowUpdates.Add(1)
						} else {
							streamWindowUpdates.Add(1)
						}
						creditCh <- windowUpdateEvent{conn: f.StreamID == 0, inc: int32(w.Increment)}
					}
				}
				frame.Release(f)
			}
		}()

		connCredit := int32(65535)
		streamCredit := int32(65535)
		sent := 0
		for sent < bodySize {
			for {
				select {
				case ev := <-creditCh:
					if ev.conn {
						connCredit += ev.inc
					} else {
						streamCredit += ev.inc
					}
					continue
				default:
				}
				break
			}
			for connCredit <= 0 || streamCredit <= 0 {
				ev := <-creditCh
				if ev.conn {
					connCredit += ev.inc
				} else {
					streamCredit += ev.inc
				}
			}

			n := chunkSize
			if remaining := bodySize - sent; remaining < n {
				n = remaining
			}
			if int(connCredit) < n {
				n = int(connCredit)
			}
			if int(streamCredit) < n {
				n = int(streamCredit)
			}

			endStream := sent+n == bodySize
			df := frame.Acquire()
			frame.EncodeData(df, frame.DataBody{EndStream: endStream, Data: body[sent : sent+n]}, 0)
			df.StreamID = streamID
			require.NoError(t, peer.framer.WriteFrame(df, true))
			frame.Release(df)

			sent += n
			connCredit -= int32(n)
			streamCredit -= int32(n)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Handshake(ctx))

	resp, err := conn.RoundTrip(ctx, &Request{
		Method:    "GET",
		Authority: "example.com",
		Scheme:    "https",
		Path:      "/large",
	})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, bodySize, len(resp.Body))
	require.Equal(t, body, resp.Body)

	require.GreaterOrEqual(t, connWindowUpdates.Load(), int32(1), "a 128KiB body over a 65535-byte connection window must trigger a connection-scope WINDOW_UPDATE")
	require.GreaterOrEqual(t, streamWindowUpdates.Load(), int32(1), "a 128KiB body over a 65535-byte stream window must trigger a stream-scope WINDOW_UPDATE")

	<-serverDone
	conn.Close()
}

// TestConnGoAwayFailsStreamsAfterLastStreamID exercises the partial-shutdown
// case: a stream opened after the peer's GOAWAY last_stream_id must fail
// locally (never having been processed by the peer), while a stream already
// accepted by the peer keeps draining and completes normally.
func TestConnGoAwayFailsStreamsAfterLastStreamID(t *testing.T) {
	clientTransport, serverTransport := newPipePair()
	defer clientTransport.Close()
	defer serverTransport.Close()

	conn := New(clientTransport, Opts{DisablePing: true})
	peer := newServerPeer(t, serverTransport)

	streamAHeadersSeen := make(chan uint32, 1)
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		peer.readPrefaceAndSettings()
		peer.sendSettings(defaultServerSettings())
		peer.sendSettingsAck()
		peer.readSettingsAck()

		streamA, _ := peer.readRequestHeaders()
		streamAHeadersSeen <- streamA

		streamB, _ := peer.readRequestHeaders()
		require.EqualValues(t, 3, streamB)

		peer.respondOK(streamA, []byte("first ok"))

		gf := frame.Acquire()
		frame.EncodeGoAway(gf, frame.GoAwayBody{LastStreamID: streamA, Code: frame.ErrCodeNo})
		require.NoError(t, peer.framer.WriteFrame(gf, true))
		frame.Release(gf)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, conn.Handshake(ctx))

	respA := make(chan *Response, 1)
	errA := make(chan error, 1)
	go func() {
		resp, err := conn.RoundTrip(ctx, &Request{Method: "GET", Authority: "example.com", Scheme: "https", Path: "/one"})
		respA <- resp
		errA <- err
	}()

	streamAID := <-streamAHeadersSeen
	require.EqualValues(t, 1, streamAID, "the first request on a fresh connection must land on stream 1")

	respB := make(chan *Response, 1)
	errB := make(chan error, 1)
	go func() {
		resp, err := conn.RoundTrip(ctx, &Request{Method: "GET", Authority: "example.com", Scheme: "https", Path: "/two"})
		respB <- resp
		errB <- err
	}()

	require.NoError(t, <-errA, "a stream accepted before GOAWAY's last_stream_id must complete normally")
	resA := <-respA
	require.Equal(t, 200, resA.StatusCode)
	require.Equal(t, "first ok", string(resA.Body))

	errBVal := <-errB
	require.Error(t, errBVal, "a stream opened after GOAWAY's last_stream_id must fail rather than hang")
	var connErr *frame.ConnError
	require.ErrorAs(t, errBVal, &connErr,
		"a stream failed by peer GOAWAY surfaces the raw connection error; h2client classifies this as NetworkError")

	<-serverDone
	conn.Close()
}

var _ io.ReadWriter = (*duplex)(nil)
