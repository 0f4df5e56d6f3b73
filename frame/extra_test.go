package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityRoundTrip(t *testing.T) {
	f := Acquire()
	defer Release(f)
	EncodePriority(f, PriorityBody{Exclusive: true, StreamDependency: 5, Weight: 42})
	got, err := DecodePriority(f)
	require.NoError(t, err)
	assert.True(t, got.Exclusive)
	assert.EqualValues(t, 5, got.StreamDependency)
	assert.EqualValues(t, 42, got.Weight)
}

func TestRSTStreamRoundTrip(t *testing.T) {
	f := Acquire()
	defer Release(f)
	EncodeRSTStream(f, RSTStreamBody{Code: ErrCodeCancel})
	got, err := DecodeRSTStream(f)
	require.NoError(t, err)
	assert.Equal(t, ErrCodeCancel, got.Code)
}

func TestContinuationRoundTrip(t *testing.T) {
	f := Acquire()
	defer Release(f)
	EncodeContinuation(f, ContinuationBody{EndHeaders: true, BlockFragment: []byte("more-hpack")})
	got, err := DecodeContinuation(f)
	require.NoError(t, err)
	assert.True(t, got.EndHeaders)
	assert.Equal(t, []byte("more-hpack"), got.BlockFragment)
}

func TestPushPromiseRoundTrip(t *testing.T) {
	f := Acquire()
	defer Release(f)
	EncodePushPromise(f, PushPromiseBody{EndHeaders: true, PromisedID: 9, BlockFragment: []byte("block")})
	got, err := DecodePushPromise(f)
	require.NoError(t, err)
	assert.True(t, got.EndHeaders)
	assert.EqualValues(t, 9, got.PromisedID)
	assert.Equal(t, []byte("block"), got.BlockFragment)
}

func TestErrorCodeString(t *testing.T) {
	assert.Equal(t, "PROTOCOL_ERROR", ErrCodeProtocol.String())
	assert.Contains(t, ErrorCode(0xff).String(), "UNKNOWN_ERROR")
}

func TestFrameAcquireReleaseResetsState(t *testing.T) {
	f := Acquire()
	f.Type = TypeData
	f.StreamID = 7
	f.SetPayload([]byte("x"))
	Release(f)

	f2 := Acquire()
	assert.Equal(t, Type(0), f2.Type)
	assert.EqualValues(t, 0, f2.StreamID)
	assert.Equal(t, 0, f2.Length)
	Release(f2)
}

func TestTypeString(t *testing.T) {
	assert.Equal(t, "DATA", TypeData.String())
	assert.Equal(t, "CONTINUATION", TypeContinuation.String())
	assert.Contains(t, Type(0xee).String(), "UNKNOWN")
}
