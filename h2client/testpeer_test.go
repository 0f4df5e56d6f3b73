package h2client

import (
	"net"
	"testing"

	"github.com/h2vex/engine/frame"
	"github.com/h2vex/engine/hpack"
	"github.com/stretchr/testify/require"
)

// serverPeer is a hand-rolled HTTP/2 peer driven directly through the frame
// package, standing in for a real server so Client's full stack (admission,
// quality, h2conn) can be exercised end to end without a network.
//
// Mirrors h2conn's own serverPeer test helper; duplicated here rather than
// exported from h2conn since it is purely test scaffolding.
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

func (p *serverPeer) respondStatus(streamID uint32, status int, body []byte) {
	block := p.enc.EncodeHeaders(nil, []hpack.HeaderField{
		{Name: ":status", Value: statusString(status)},
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

func statusString(status int) string {
	digits := [10]byte{}
	i := len(digits)
	if status == 0 {
		return "0"
	}
	for status > 0 {
		i--
		digits[i] = byte('0' + status%10)
		status /= 10
	}
	return string(digits[i:])
}

func defaultServerSettings() []frame.Setting {
	return []frame.Setting{
		{ID: frame.SettingHeaderTableSize, Value: 4096},
		{ID: frame.SettingEnablePush, Value: 0},
		{ID: frame.SettingInitialWindowSize, Value: 65535},
		{ID: frame.SettingMaxHeaderListSize, Value: 65536},
	}
}

type duplex struct {
	net.Conn
}

func newPipePair() (client, server *duplex) {
	c, s := net.Pipe()
	return &duplex{c}, &duplex{s}
}
