// Package h2conn is the connection multiplexer: it owns the frame codec,
// the HPACK encoder/decoder pair, connection and stream flow-control
// windows, the active-stream table, and the settings/GOAWAY/PING state
// machine for one HTTP/2 connection.
//
// Grounded on dgrr-http2's conn.go (Handshake, writeLoop/readLoop,
// writeRequest/readNext, writePing, handleSettings, readStream,
// updateWindow), generalized from its fixed fasthttp.Request/Response glue
// to the spec's {method, authority, scheme, path, headers, body} request
// shape and its stream-keyed active-stream table.
package h2conn

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/h2vex/engine/flowcontrol"
	"github.com/h2vex/engine/frame"
	"github.com/h2vex/engine/hpack"
	"github.com/h2vex/engine/internal/h2log"
	"github.com/h2vex/engine/stream"
	"github.com/valyala/fastrand"
)

// DefaultPingInterval mirrors dgrr-http2's DefaultPingInterval: the client
// pings an otherwise-idle connection to detect a dead peer.
const DefaultPingInterval = 4 * time.Second

// maxUnackedPings is the number of consecutive un-ACKed keepalive PINGs
// tolerated before the connection is declared dead.
const maxUnackedPings = 3

// Opts configures a Conn.
type Opts struct {
	// Logger receives structured diagnostics; defaults to a no-op logger.
	Logger h2log.Logger

	// PingInterval overrides DefaultPingInterval. A zero value uses the default.
	PingInterval time.Duration

	// DisablePing disables the keepalive PING loop entirely.
	DisablePing bool

	// MaxDecodedHeaderBytes bounds decoded response header size (HPACK
	// decompression-bomb guard); 0 uses the hpack package's default.
	MaxDecodedHeaderBytes int

	// HeaderTableSize is the local SETTINGS_HEADER_TABLE_SIZE advertised and
	// used to bound both HPACK tables' ceilings.
	HeaderTableSize int
}

func (o Opts) withDefaults() Opts {
	if o.Logger == nil {
		o.Logger = h2log.Noop()
	}
	if o.PingInterval == 0 {
		o.PingInterval = DefaultPingInterval
	}
	if o.HeaderTableSize == 0 {
		o.HeaderTableSize = 4096
	}
	return o
}

// GoAwayInfo records a received GOAWAY's payload.
type GoAwayInfo struct {
	LastStreamID uint32
	Code         frame.ErrorCode
}

// Request is the minimal protocol-level request h2conn consumes. The public
// facade (h2client) builds this from its richer Request type after header
// stripping and validation.
type Request struct {
	Method    string
	Authority string
	Scheme    string
	Path      string
	Headers   []hpack.HeaderField
	Body      []byte
}

// Response is the protocol-level result of a round trip.
type Response struct {
	StatusCode int
	Headers    []hpack.HeaderField
	Body       []byte
}

// Conn is one HTTP/2 connection's multiplexing state.
type Conn struct {
	opts Opts
	log  h2log.Logger

	framer *frame.Framer

	encMu sync.Mutex
	enc   *hpack.Encoder
	dec   *hpack.Decoder

	connSendWindow *flowcontrol.SendWindow
	connRecvWindow *flowcontrol.RecvWindow
	peerMaxFrameSize atomic.Uint32

	// peerInitialWindowSize is the peer's most recently announced
	// SETTINGS_INITIAL_WINDOW_SIZE (base spec's settings_peer, data model
	// §5): it seeds every newly opened stream's send window and is the
	// baseline a later SETTINGS change's delta is computed against.
	peerInitialWindowSize atomic.Int32

	streamMu             sync.Mutex
	streams              map[uint32]*stream.Stream
	nextStreamID         uint32
	lastPeerStreamIDSeen uint32
	continuationStreamID uint32

	goAwayMu       sync.Mutex
	goAwaySent     bool
	goAwayReceived *GoAwayInfo

	writeCh chan writeItem
	closeCh chan struct{}
	closeOnce sync.Once
	closeErr  error

	settingsAckCh    chan struct{}
	peerSettingsDone chan struct{}
	peerSettingsOnce sync.Once

	windowCond *sync.Cond
	windowMu   sync.Mutex

	unackedPings atomic.Int32
}

type writeItem struct {
	f     *frame.Frame
	flush bool
	done  chan error
}

// New constructs a Conn over an already-negotiated transport. It does not
// dial; connect/TLS/ALPN are out of scope collaborators (base spec §1/§6).
func New(transport frame.Transport, opts Opts) *Conn {
	opts = opts.withDefaults()
	c := &Conn{
		opts:             opts,
		log:              opts.Logger,
		framer:           frame.NewFramer(transport),
		enc:              hpack.NewEncoder(opts.HeaderTableSize),
		dec:              hpack.NewDecoder(opts.HeaderTableSize),
		connSendWindow:   flowcontrol.NewSendWindow(flowcontrol.DefaultInitialWindowSize),
		connRecvWindow:   flowcontrol.NewRecvWindow(flowcontrol.DefaultInitialWindowSize),
		streams:          make(map[uint32]*stream.Stream),
		nextStreamID:     1,
		writeCh:          make(chan writeItem, 64),
		closeCh:          make(chan struct{}),
		settingsAckCh:    make(chan struct{}, 1),
		peerSettingsDone: make(chan struct{}),
	}
	if opts.MaxDecodedHeaderBytes > 0 {
		c.dec.MaxDecodedHeaderBytes = opts.MaxDecodedHeaderBytes
	}
	c.peerMaxFrameSize.Store(frame.DefaultMaxFrameSize)
	c.peerInitialWindowSize.Store(flowcontrol.DefaultInitialWindowSize)
	c.windowCond = sync.NewCond(&c.windowMu)
	return c
}

// localSettings is the fixed 4-entry/24-byte SETTINGS this client sends
// (base spec §8 Settings vector): HEADER_TABLE_SIZE, ENABLE_PUSH=0,
// INITIAL_WINDOW_SIZE=65535, MAX_HEADER_LIST_SIZE=65536, in that order.
func (c *Conn) localSettings() frame.SettingsBody {
	return frame.SettingsBody{Settings: []frame.Setting{
		{ID: frame.SettingHeaderTableSize, Value: uint32(c.opts.HeaderTableSize)},
		{ID: frame.SettingEnablePush, Value: 0},
		{ID: frame.SettingInitialWindowSize, Value: uint32(flowcontrol.DefaultInitialWindowSize)},
		{ID: frame.SettingMaxHeaderListSize, Value: 65536},
	}}
}

// Handshake writes the preface and local SETTINGS, then blocks until the
// peer's SETTINGS have been observed and ACKed and our own SETTINGS have
// been ACKed by the peer (base spec §4.7 Initialization).
func (c *Conn) Handshake(ctx context.Context) error {
	if err := c.framer.WritePreface(); err != nil {
		return err
	}

	f := frame.Acquire()
	frame.EncodeSettings(f, c.localSettings())
	if err := c.framer.WriteFrame(f, true); err != nil {
		frame.Release(f)
		return err
	}
	frame.Release(f)

	go c.readLoop()
	go c.writeLoop()
	if !c.opts.DisablePing {
		go c.pingLoop()
	}

	select {
	case <-c.peerSettingsDone:
	case <-c.closeCh:
		return c.closeErrOrDefault()
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-c.settingsAckCh:
		return nil
	case <-c.closeCh:
		return c.closeErrOrDefault()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conn) closeErrOrDefault() error {
	if c.closeErr != nil {
		return c.closeErr
	}
	return io.ErrClosedPipe
}

// allocStreamID returns the next odd stream id, refusing once the 31-bit
// space is exhausted (base spec §4.7).
func (c *Conn) allocStreamID() (uint32, error) {
	c.streamMu.Lock()
	defer c.streamMu.Unlock()
	if c.nextStreamID > 1<<31-1 {
		return 0, errStreamIDSpaceExhausted
	}
	id := c.nextStreamID
	c.nextStreamID += 2
	return id, nil
}

var errStreamIDSpaceExhausted = errors.New("h2conn: stream id space exhausted, open a new connection")

// RoundTrip sends req on a freshly allocated stream and blocks for the
// complete response or ctx's deadline/cancellation.
func (c *Conn) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	if refused, goAwayErr := c.refusingNewStreams(); refused {
		return nil, goAwayErr
	}

	id, err := c.allocStreamID()
	if err != nil {
		return nil, err
	}

	st := stream.New(id, c.peerInitialWindowSize.Load(), flowcontrol.DefaultInitialWindowSize)
	c.streamMu.Lock()
	c.streams[id] = st
	c.streamMu.Unlock()

	if err := c.sendRequest(id, st, req); err != nil {
		c.removeStream(id)
		return nil, err
	}

	select {
	case <-st.Done:
	case <-ctx.Done():
		c.cancelStream(id, st)
		return nil, ctx.Err()
	case <-c.closeCh:
		return nil, c.closeErrOrDefault()
	}

	c.removeStream(id)
	if st.Err != nil {
		return nil, st.Err
	}
	return &Response{StatusCode: st.StatusCode, Headers: st.Headers, Body: st.Body}, nil
}

func (c *Conn) refusingNewStreams() (bool, error) {
	c.goAwayMu.Lock()
	defer c.goAwayMu.Unlock()
	if c.goAwayReceived != nil {
		return true, frame.NewConnError(c.goAwayReceived.Code, "connection is going away")
	}
	return false, nil
}

func (c *Conn) removeStream(id uint32) {
	c.streamMu.Lock()
	delete(c.streams, id)
	c.streamMu.Unlock()
}

func (c *Conn) cancelStream(id uint32, st *stream.Stream) {
	st.Reset()
	c.removeStream(id)
	f := frame.Acquire()
	frame.EncodeRSTStream(f, frame.RSTStreamBody{Code: frame.ErrCodeCancel})
	f.StreamID = id
	c.enqueueWrite(f, true)
	st.Finish(errCancelled)
}

var errCancelled = errors.New("h2conn: request cancelled")

// sendRequest encodes and writes the request's header block and, for
// methods with a body, one or more flow-controlled DATA frames. The whole
// header block goes out in a single HEADERS frame with END_HEADERS set;
// CONTINUATION is never used, so a block larger than the peer's
// MAX_FRAME_SIZE is not split.
func (c *Conn) sendRequest(id uint32, st *stream.Stream, req *Request) error {
	fields := make([]hpack.HeaderField, 0, len(req.Headers)+4)
	fields = append(fields,
		hpack.HeaderField{Name: ":method", Value: req.Method},
		hpack.HeaderField{Name: ":scheme", Value: req.Scheme},
		hpack.HeaderField{Name: ":path", Value: req.Path},
		hpack.HeaderField{Name: ":authority", Value: req.Authority},
	)
	fields = append(fields, req.Headers...)

	hasBody := len(req.Body) > 0
	endStream := !hasBody

	c.encMu.Lock()
	block := c.enc.EncodeHeaders(nil, fields)
	c.encMu.Unlock()

	if err := st.SendHeaders(endStream); err != nil {
		return err
	}

	hf := frame.Acquire()
	frame.EncodeHeaders(hf, frame.HeadersBody{EndStream: endStream, EndHeaders: true, BlockFragment: block}, 0)
	hf.StreamID = id
	if err := c.enqueueWrite(hf, true); err != nil {
		return err
	}

	if !hasBody {
		return nil
	}
	return c.sendBody(id, st, req.Body)
}

func (c *Conn) sendBody(id uint32, st *stream.Stream, body []byte) error {
	remaining := body
	for len(remaining) > 0 {
		n := c.waitForSendCredit(st, len(remaining))
		if n == 0 {
			return errConnClosed
		}

		chunk := remaining[:n]
		remaining = remaining[n:]
		st.SendWindow.Consume(int32(n))
		c.connSendWindow.Consume(int32(n))

		df := frame.Acquire()
		frame.EncodeData(df, frame.DataBody{EndStream: len(remaining) == 0, Data: chunk}, 0)
		df.StreamID = id
		if err := c.enqueueWrite(df, true); err != nil {
			return err
		}
	}
	if err := st.SendEndStream(); err != nil {
		return err
	}
	return nil
}

var errConnClosed = errors.New("h2conn: connection closed while waiting for flow-control credit")

// waitForSendCredit blocks until at least one byte of both send windows is
// available (or the connection closes), then returns the largest chunk size
// currently permitted.
func (c *Conn) waitForSendCredit(st *stream.Stream, remaining int) int {
	for {
		n := flowcontrol.DataChunkSize(remaining, st.SendWindow, c.connSendWindow, int(c.peerMaxFrameSize.Load()))
		if n > 0 {
			return n
		}
		c.windowMu.Lock()
		select {
		case <-c.closeCh:
			c.windowMu.Unlock()
			return 0
		default:
		}
		c.windowCond.Wait()
		c.windowMu.Unlock()
	}
}

func (c *Conn) wakeWriters() {
	c.windowMu.Lock()
	c.windowCond.Broadcast()
	c.windowMu.Unlock()
}

// enqueueWrite hands f to the writer goroutine and waits for it to be
// flushed to the transport (or an error).
func (c *Conn) enqueueWrite(f *frame.Frame, flush bool) error {
	done := make(chan error, 1)
	select {
	case c.writeCh <- writeItem{f: f, flush: flush, done: done}:
	case <-c.closeCh:
		return c.closeErrOrDefault()
	}
	select {
	case err := <-done:
		return err
	case <-c.closeCh:
		return c.closeErrOrDefault()
	}
}

func (c *Conn) writeLoop() {
	for {
		select {
		case item := <-c.writeCh:
			err := c.framer.WriteFrame(item.f, item.flush)
			frame.Release(item.f)
			item.done <- err
			if err != nil {
				c.fail(err)
				return
			}
		case <-c.closeCh:
			return
		}
	}
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(c.opts.PingInterval + time.Duration(fastrand.Uint32n(500))*time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if c.unackedPings.Add(1) > maxUnackedPings {
				c.fail(errPingTimeout)
				return
			}
			f := frame.Acquire()
			frame.EncodePing(f, frame.PingBody{})
			c.enqueueWrite(f, true)
		case <-c.closeCh:
			return
		}
	}
}

var errPingTimeout = errors.New("h2conn: peer did not ACK keepalive PING")

// Close disposes the connection: a best-effort GOAWAY(NO_ERROR), failing
// every remaining stream with a cancellation error, then closing the
// transport side of the writer loop. Idempotent.
func (c *Conn) Close() error {
	c.goAwayMu.Lock()
	alreadySent := c.goAwaySent
	c.goAwaySent = true
	lastSeen := c.lastPeerStreamIDSeen
	c.goAwayMu.Unlock()

	if !alreadySent {
		f := frame.Acquire()
		frame.EncodeGoAway(f, frame.GoAwayBody{LastStreamID: lastSeen, Code: frame.ErrCodeNo})
		c.enqueueWrite(f, true)
	}

	c.fail(errCancelled)
	return nil
}

func (c *Conn) fail(err error) {
	c.closeOnce.Do(func() {
		c.closeErr = err
		close(c.closeCh)
		c.wakeWriters()

		c.streamMu.Lock()
		streams := make([]*stream.Stream, 0, len(c.streams))
		for _, st := range c.streams {
			streams = append(streams, st)
		}
		c.streams = map[uint32]*stream.Stream{}
		c.streamMu.Unlock()

		for _, st := range streams {
			st.Reset()
			st.Finish(err)
		}
	})
}
