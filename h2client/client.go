package h2client

import (
	"context"
	"errors"
	"time"

	"github.com/h2vex/engine/admission"
	"github.com/h2vex/engine/frame"
	"github.com/h2vex/engine/h2conn"
	"github.com/h2vex/engine/quality"
)

// DefaultBaseTimeout, DefaultMinTimeout and DefaultMaxTimeout are the
// adaptive timeout controller's defaults (base spec §4.9) absent an explicit
// per-request deadline or explicit_timeout opt-out.
const (
	DefaultBaseTimeout = 5 * time.Second
	DefaultMinTimeout  = 1 * time.Second
	DefaultMaxTimeout  = 30 * time.Second
)

// ClientOpts configures a Client.
type ClientOpts struct {
	// ConnOpts is forwarded to h2conn.New.
	ConnOpts h2conn.Opts

	// GlobalMaxConcurrent and HostMaxConcurrent configure the admission
	// queue's limiter (base spec §4.10). Zero GlobalMaxConcurrent disables
	// admission control entirely (every request bypasses the queue).
	GlobalMaxConcurrent int
	HostMaxConcurrent   int

	// QualityOpts configures the network-quality detector.
	QualityOpts quality.Opts

	// BaseTimeout, MinTimeout, MaxTimeout feed AdaptTimeout; zero values use
	// the package defaults.
	BaseTimeout time.Duration
	MinTimeout  time.Duration
	MaxTimeout  time.Duration

	// Interceptors and FailurePolicy configure the request interceptor
	// chain (base spec §9 redesign note).
	Interceptors  []Interceptor
	FailurePolicy FailurePolicy
}

func (o ClientOpts) withDefaults() ClientOpts {
	if o.BaseTimeout == 0 {
		o.BaseTimeout = DefaultBaseTimeout
	}
	if o.MinTimeout == 0 {
		o.MinTimeout = DefaultMinTimeout
	}
	if o.MaxTimeout == 0 {
		o.MaxTimeout = DefaultMaxTimeout
	}
	return o
}

// Client is the public single-connection HTTP/2 client: it wires a dialed
// h2conn.Conn through the admission queue and quality detector to produce
// RoundTrip.
//
// Grounded on dgrr-http2's top-level client.go, generalized from its fixed
// fasthttp round-trip shape to this spec's Request/Response/Metadata
// surface plus the admission/quality collaborators it never had.
type Client struct {
	opts    ClientOpts
	conn    *h2conn.Conn
	queue   *admission.Queue
	quality *quality.Detector
	next    Next
}

// New wraps an already-negotiated transport (see DialTLS) in a Client and
// performs the HTTP/2 handshake.
func New(ctx context.Context, transport frame.Transport, opts ClientOpts) (*Client, error) {
	opts = opts.withDefaults()

	conn := h2conn.New(transport, opts.ConnOpts)
	if err := conn.Handshake(ctx); err != nil {
		return nil, classifyConnError(err)
	}

	c := &Client{
		opts:    opts,
		conn:    conn,
		queue:   admission.NewQueue(opts.GlobalMaxConcurrent, opts.HostMaxConcurrent),
		quality: quality.NewDetector(opts.QualityOpts),
	}
	c.next = chain(opts.Interceptors, opts.FailurePolicy, c.roundTripTerminal)
	return c, nil
}

// Close disposes the underlying connection and stops admitting new requests.
func (c *Client) Close() error {
	c.queue.Shutdown(true)
	return c.conn.Close()
}

// priorityOf extracts an admission.Priority from Metadata, defaulting to
// Normal (base spec §4.10: requests without an explicit priority are
// Normal).
func priorityOf(req *Request) admission.Priority {
	if req.Metadata == nil {
		return admission.Normal
	}
	switch v := req.Metadata["priority"]; v {
	case "high", admission.High:
		return admission.High
	case "low", admission.Low:
		return admission.Low
	default:
		return admission.Normal
	}
}

// RoundTrip applies the interceptor chain and the outer admission/timeout
// machinery around a single request.
func (c *Client) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	return c.next(withContext(ctx, req))
}

// withContext returns a shallow copy of req carrying ctx in its Metadata, so
// the unexported terminal step can recover it without widening the public
// Request/Next surface with a context field (Next's signature is fixed by
// the redesigned interceptor chain, which base spec §9 models as plain
// function values). A copy is taken, rather than mutating req.Metadata in
// place, so a caller reusing the same *Request across concurrent RoundTrip
// calls with different contexts never races on its Metadata map.
func withContext(ctx context.Context, req *Request) *Request {
	cp := *req
	cp.Metadata = make(Metadata, len(req.Metadata)+1)
	for k, v := range req.Metadata {
		cp.Metadata[k] = v
	}
	cp.Metadata[ctxMetadataKey] = ctx
	return &cp
}

const ctxMetadataKey = "__h2client_ctx"

func contextOf(req *Request) context.Context {
	if v, ok := req.Metadata[ctxMetadataKey]; ok {
		if ctx, ok := v.(context.Context); ok {
			return ctx
		}
	}
	return context.Background()
}

// roundTripTerminal is the innermost link of the interceptor chain: it
// admits the request, applies the adaptive deadline, performs the protocol
// round trip, classifies the outcome, and feeds a quality.Sample back.
func (c *Client) roundTripTerminal(req *Request) (*Response, error) {
	ctx := contextOf(req)
	host := req.Authority

	var permit *admission.Permit
	if c.opts.GlobalMaxConcurrent > 0 {
		p, err := c.queue.Acquire(ctx, priorityOf(req), host)
		if err != nil {
			return nil, classifyAdmissionError(err)
		}
		permit = p
		defer permit.Release()
	}

	deadline := c.effectiveDeadline(req)
	if !deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithDeadline(ctx, deadline)
		defer cancel()
	}

	fields, err := buildHeaderFields(req.Headers)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	protoResp, rtErr := c.conn.RoundTrip(ctx, &h2conn.Request{
		Method:    req.Method,
		Authority: req.Authority,
		Scheme:    req.Scheme,
		Path:      req.Path,
		Headers:   fields,
		Body:      req.Body,
	})
	elapsed := time.Since(start)

	outcome := quality.Sample{
		LatencyMS: float64(elapsed.Milliseconds()),
		TotalMS:   float64(elapsed.Milliseconds()),
	}

	if rtErr != nil {
		clientErr := classifyRoundTripError(rtErr)
		outcome.WasTimeout = clientErr.Category == Timeout
		outcome.WasTransportFailure = clientErr.Category == NetworkError
		c.quality.AddSample(outcome)
		return nil, clientErr
	}

	outcome.WasSuccess = protoResp.StatusCode < 500
	outcome.BytesTransferred = int64(len(protoResp.Body))
	c.quality.AddSample(outcome)

	resp := &Response{
		StatusCode: protoResp.StatusCode,
		Headers:    headerFromFields(protoResp.Headers),
		Body:       protoResp.Body,
		Elapsed:    elapsed,
	}
	if protoResp.StatusCode >= 500 {
		resp.Err = httpStatusError(protoResp.StatusCode)
	}
	return resp, nil
}

// effectiveDeadline resolves the request's deadline: an explicit Deadline
// or explicit_timeout metadata passes through unscaled (base spec §4.9/
// §6.9); otherwise the quality detector's AdaptTimeout scales the client's
// configured base timeout.
func (c *Client) effectiveDeadline(req *Request) time.Time {
	if !req.Deadline.IsZero() {
		return req.Deadline
	}
	if explicit, ok := req.Metadata.ExplicitTimeout(); ok && explicit {
		return time.Time{}
	}
	d := c.quality.AdaptTimeout(c.opts.BaseTimeout, c.opts.MinTimeout, c.opts.MaxTimeout)
	return time.Now().Add(d)
}

func classifyRoundTripError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Category: Timeout, Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Category: Cancelled, Cause: err}
	}
	var connErr *frame.ConnError
	if errors.As(err, &connErr) {
		return classifyConnError(err)
	}
	var streamErr *frame.StreamError
	if errors.As(err, &streamErr) {
		return classifyStreamError(err)
	}
	return &Error{Category: NetworkError, Cause: err}
}

func classifyAdmissionError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Category: Timeout, Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Category: Cancelled, Cause: err}
	}
	return &Error{Category: Unknown, Cause: err}
}

// QualitySnapshot exposes the live network-quality classification, useful
// for callers wanting to surface connection health.
func (c *Client) QualitySnapshot() quality.Snapshot {
	return c.quality.Snapshot()
}

// AdmissionStats exposes the admission queue's lifetime counters.
func (c *Client) AdmissionStats() admission.Stats {
	return c.queue.Stats()
}
