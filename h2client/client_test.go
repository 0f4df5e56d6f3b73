package h2client

import (
	"context"
	"testing"
	"time"

	"github.com/h2vex/engine/admission"
	"github.com/h2vex/engine/h2conn"
	"github.com/stretchr/testify/require"
)

func TestClientRoundTripHappyPath(t *testing.T) {
	clientTransport, serverTransport := newPipePair()
	defer clientTransport.Close()
	defer serverTransport.Close()

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
		require.Equal(t, "/widgets", path)
		peer.respondStatus(streamID, 200, []byte("ok"))
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := New(ctx, clientTransport, ClientOpts{
		ConnOpts:            h2conn.Opts{DisablePing: true},
		GlobalMaxConcurrent: 4,
		HostMaxConcurrent:   2,
	})
	require.NoError(t, err)

	resp, err := client.RoundTrip(ctx, &Request{
		Method:    "GET",
		Authority: "example.com",
		Scheme:    "https",
		Path:      "/widgets",
	})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, "ok", string(resp.Body))
	require.True(t, resp.Elapsed >= 0)

	snap := client.QualitySnapshot()
	require.Equal(t, 1, snap.SampleCount)

	stats := client.AdmissionStats()
	require.Equal(t, int64(1), stats.Enqueued)
	require.Equal(t, int64(1), stats.Dequeued)

	<-serverDone
}

func TestClientRoundTripServerErrorFeedsQualityAsFailure(t *testing.T) {
	clientTransport, serverTransport := newPipePair()
	defer clientTransport.Close()
	defer serverTransport.Close()

	peer := newServerPeer(t, serverTransport)
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		peer.readPrefaceAndSettings()
		peer.sendSettings(defaultServerSettings())
		peer.sendSettingsAck()
		peer.readSettingsAck()

		streamID, _ := peer.readRequestHeaders()
		peer.respondStatus(streamID, 503, nil)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := New(ctx, clientTransport, ClientOpts{ConnOpts: h2conn.Opts{DisablePing: true}})
	require.NoError(t, err)

	resp, err := client.RoundTrip(ctx, &Request{
		Method:    "GET",
		Authority: "example.com",
		Scheme:    "https",
		Path:      "/broken",
	})
	require.NoError(t, err)
	require.Equal(t, 503, resp.StatusCode)
	require.Error(t, resp.Err)
	var h2err *Error
	require.ErrorAs(t, resp.Err, &h2err)
	require.Equal(t, HttpError, h2err.Category)
	require.True(t, h2err.Retryable())

	snap := client.QualitySnapshot()
	require.Equal(t, 1, snap.SampleCount)
	require.Equal(t, 0.0, snap.SuccessRatio)

	<-serverDone
}

func TestClientAdmissionQueueGatesGlobalConcurrency(t *testing.T) {
	clientTransport, serverTransport := newPipePair()
	defer clientTransport.Close()
	defer serverTransport.Close()

	peer := newServerPeer(t, serverTransport)
	serverDone := make(chan struct{})
	go func() {
		defer close(serverDone)
		peer.readPrefaceAndSettings()
		peer.sendSettings(defaultServerSettings())
		peer.sendSettingsAck()
		peer.readSettingsAck()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	client, err := New(ctx, clientTransport, ClientOpts{
		ConnOpts:            h2conn.Opts{DisablePing: true},
		GlobalMaxConcurrent: 1,
	})
	require.NoError(t, err)

	permit, err := client.queue.Acquire(ctx, admission.Normal, "example.com")
	require.NoError(t, err)

	blockedCtx, blockedCancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer blockedCancel()
	_, err = client.RoundTrip(blockedCtx, &Request{
		Method: "GET", Authority: "example.com", Scheme: "https", Path: "/x",
	})
	require.Error(t, err)
	var h2err *Error
	require.ErrorAs(t, err, &h2err)
	require.Equal(t, Timeout, h2err.Category)

	permit.Release()
	<-serverDone
}

func TestInterceptorChainAppliesFailurePolicies(t *testing.T) {
	boom := &Error{Category: InvalidRequest, Cause: errBoom}
	failing := func(req *Request, next Next) (*Response, error) {
		return nil, boom
	}
	terminal := func(req *Request) (*Response, error) {
		return &Response{StatusCode: 200}, nil
	}

	propagated := chain([]Interceptor{failing}, Propagate, terminal)
	_, err := propagated(&Request{})
	require.Equal(t, boom, err)

	converted := chain([]Interceptor{failing}, ConvertToResponse, terminal)
	resp, err := converted(&Request{})
	require.NoError(t, err)
	require.Equal(t, 500, resp.StatusCode)
	require.Equal(t, boom, resp.Err)

	ignored := chain([]Interceptor{failing}, IgnoreAndContinue, terminal)
	resp, err = ignored(&Request{})
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)
}

func TestInterceptorChainOrderingOutermostFirst(t *testing.T) {
	var order []string
	record := func(name string) Interceptor {
		return func(req *Request, next Next) (*Response, error) {
			order = append(order, name)
			return next(req)
		}
	}
	terminal := func(req *Request) (*Response, error) { return &Response{}, nil }

	next := chain([]Interceptor{record("outer"), record("inner")}, Propagate, terminal)
	_, err := next(&Request{})
	require.NoError(t, err)
	require.Equal(t, []string{"outer", "inner"}, order)
}

var errBoom = &Error{Category: Unknown}
