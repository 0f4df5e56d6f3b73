package frame

import "github.com/h2vex/engine/internal/wire"

// SettingID is a 16-bit HTTP/2 settings identifier (RFC 7540 §6.5.2).
type SettingID uint16

const (
	SettingHeaderTableSize      SettingID = 0x1
	SettingEnablePush           SettingID = 0x2
	SettingMaxConcurrentStreams SettingID = 0x3
	SettingInitialWindowSize    SettingID = 0x4
	SettingMaxFrameSize         SettingID = 0x5
	SettingMaxHeaderListSize    SettingID = 0x6
)

// maxSigned32 is the clamp ceiling the base spec's Data Model section names
// for settings values ("Values exceeding signed 32-bit range are clamped to
// the max").
const maxSigned32 = 1<<31 - 1

// Setting is a single (id, value) entry of a SETTINGS frame payload.
type Setting struct {
	ID    SettingID
	Value uint32
}

// SettingsBody is the decoded payload of a SETTINGS frame (RFC 7540 §6.5).
// Unrecognized ids are preserved in Unknown for forward-compatible logging,
// but the base spec directs that they be ignored by the decoder state
// machine — callers should range over Settings, not Unknown.
type SettingsBody struct {
	Ack      bool
	Settings []Setting
	Unknown  []Setting
}

const settingEntryLen = 6

// DecodeSettings parses f's payload as a SETTINGS frame body. Per base spec
// §4.7, a SETTINGS ACK must carry an empty payload and must be on stream 0.
// A non-empty ACK or a payload that is not a whole number of entries returns
// ErrShortPayload, which the caller reports as FRAME_SIZE_ERROR; the stream
// 0 check is left to the caller, which has access to f.StreamID.
func DecodeSettings(f *Frame) (SettingsBody, error) {
	var s SettingsBody
	s.Ack = f.Flags.Has(FlagAck)
	payload := f.Payload[:f.Length]

	if s.Ack {
		if len(payload) != 0 {
			return s, ErrShortPayload
		}
		return s, nil
	}

	if len(payload)%settingEntryLen != 0 {
		return s, ErrShortPayload
	}

	for i := 0; i+settingEntryLen <= len(payload); i += settingEntryLen {
		id := SettingID(uint16(payload[i])<<8 | uint16(payload[i+1]))
		val := wire.Uint32(payload[i+2 : i+6])
		if val > maxSigned32 {
			val = maxSigned32
		}

		switch id {
		case SettingHeaderTableSize, SettingEnablePush, SettingMaxConcurrentStreams,
			SettingInitialWindowSize, SettingMaxFrameSize, SettingMaxHeaderListSize:
			s.Settings = append(s.Settings, Setting{ID: id, Value: val})
		default:
			s.Unknown = append(s.Unknown, Setting{ID: id, Value: val})
		}
	}

	return s, nil
}

// EncodeSettings serializes s into f as a SETTINGS frame, preserving the
// order of s.Settings on the wire (callers rely on this for the base spec's
// fixed-order SETTINGS wire vector in §8).
func EncodeSettings(f *Frame, s SettingsBody) {
	f.Type = TypeSettings
	f.Flags = 0
	if s.Ack {
		f.Flags = f.Flags.Add(FlagAck)
		f.SetPayload(nil)
		return
	}

	buf := make([]byte, 0, len(s.Settings)*settingEntryLen)
	for _, st := range s.Settings {
		buf = append(buf, byte(st.ID>>8), byte(st.ID))
		buf = wire.AppendUint32(buf, st.Value)
	}
	f.SetPayload(buf)
}
