package h2client

import (
	"testing"

	"github.com/h2vex/engine/hpack"
	"github.com/stretchr/testify/require"
)

func TestBuildHeaderFieldsStripsForbiddenHeaders(t *testing.T) {
	h := NewHeader()
	h.Add("Connection", "keep-alive")
	h.Add("Keep-Alive", "timeout=5")
	h.Add("Proxy-Connection", "keep-alive")
	h.Add("Transfer-Encoding", "chunked")
	h.Add("Upgrade", "websocket")
	h.Add("Host", "example.com")
	h.Add("X-Custom", "value")

	fields, err := buildHeaderFields(h)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	require.Equal(t, "x-custom", fields[0].Name)
	require.Equal(t, "value", fields[0].Value)
}

func TestBuildHeaderFieldsKeepsTETrailersOnly(t *testing.T) {
	h := NewHeader()
	h.Add("te", "gzip")
	h.Add("te", "trailers")

	fields, err := buildHeaderFields(h)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	require.Equal(t, "te", fields[0].Name)
	require.Equal(t, "trailers", fields[0].Value)
}

func TestBuildHeaderFieldsDropsTEWithoutTrailers(t *testing.T) {
	h := NewHeader()
	h.Add("te", "gzip")
	h.Add("te", "deflate")

	fields, err := buildHeaderFields(h)
	require.NoError(t, err)
	require.Empty(t, fields)
}

func TestBuildHeaderFieldsMarksSensitiveDefaults(t *testing.T) {
	h := NewHeader()
	h.Add("Authorization", "Bearer xyz")
	h.Add("Cookie", "session=abc")
	h.Add("X-Public", "1")

	fields, err := buildHeaderFields(h)
	require.NoError(t, err)

	byName := map[string]bool{}
	for _, f := range fields {
		byName[f.Name] = f.Sensitive
	}
	require.True(t, byName["authorization"])
	require.True(t, byName["cookie"])
	require.False(t, byName["x-public"])
}

func TestBuildHeaderFieldsRejectsInvalidName(t *testing.T) {
	h := NewHeader()
	h.Add("bad header name", "value")

	_, err := buildHeaderFields(h)
	require.Error(t, err)
	var h2err *Error
	require.ErrorAs(t, err, &h2err)
	require.Equal(t, InvalidRequest, h2err.Category)
}

func TestHeaderFromFieldsSkipsPseudoHeaders(t *testing.T) {
	h := headerFromFields([]hpack.HeaderField{
		{Name: ":status", Value: "200"},
		{Name: "content-type", Value: "text/plain"},
	})
	require.Equal(t, []string{"content-type"}, h.Names())
	require.Equal(t, "text/plain", h.Get("content-type"))
}
