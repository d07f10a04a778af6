package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMissingType = errors.New("message has neither type nor action")

// fixedAction is implemented by replies whose action is implied by the Go
// type rather than carried in a field.
type fixedAction interface {
	fixedAction() string
}

func (DisplayList) fixedAction() string          { return "display_list" }
func (CameraList) fixedAction() string           { return "camera_list" }
func (StreamSettingsUpdate) fixedAction() string { return "stream_settings" }
func (MediaInfo) fixedAction() string            { return "media_info" }
func (ProcessList) fixedAction() string          { return "list_processes" }
func (ProcessEnded) fixedAction() string         { return "process_ended" }
func (SystemInfo) fixedAction() string           { return "system_info" }
func (ErrorReply) fixedAction() string           { return "error" }

// Marshal encodes msg as a compact JSON object whose first member is "type"
// (followed by "action" for replies with an implied action).
func Marshal(msg Message) ([]byte, error) {
	if u, ok := msg.(Unknown); ok {
		return append([]byte(nil), u.Raw...), nil
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", msg.MessageType(), err)
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + 40)
	buf.WriteString(`{"type":`)
	writeJSONString(&buf, msg.MessageType())
	if fa, ok := msg.(fixedAction); ok {
		buf.WriteString(`,"action":`)
		writeJSONString(&buf, fa.fixedAction())
	}
	if len(body) > 2 { // not "{}"
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

func writeJSONString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}

// envelope is the routing header every message carries.
type envelope struct {
	Type   string `json:"type"`
	Action string `json:"action"`
}

type decodeFunc func(typ string, raw []byte) (Message, error)

// Unmarshal decodes a message sent by the host. Tags this client does not
// know decode to Unknown rather than failing.
func Unmarshal(data []byte) (Message, error) {
	return decode(data, inbound)
}

// UnmarshalCommand decodes a message sent by a client. The reference host
// uses it; commands and replies share (type, action) pairs, so the two
// directions have separate tables.
func UnmarshalCommand(data []byte) (Message, error) {
	return decode(data, outbound)
}

func decode(data []byte, table map[string]decodeFunc) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parse message: %w", err)
	}
	if env.Type == "" && env.Action == "" {
		return nil, ErrMissingType
	}

	fn, ok := table[env.Type+"/"+env.Action]
	if !ok {
		fn, ok = table[env.Type+"/*"]
	}
	if !ok {
		fn, ok = table["*/"+env.Action]
	}
	if !ok {
		return Unknown{Type: env.Type, Action: env.Action, Raw: append(json.RawMessage(nil), data...)}, nil
	}

	msg, err := fn(env.Type, data)
	if err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", env.Type, env.Action, err)
	}
	return msg, nil
}

// as decodes raw into a T.
func as[T Message]() decodeFunc {
	return func(_ string, raw []byte) (Message, error) {
		var m T
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		return m, nil
	}
}

func streamCommand(typ string, raw []byte) (Message, error) {
	m := StreamCommand{Domain: typ}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func streamSettings(typ string, raw []byte) (Message, error) {
	m := StreamSettingsUpdate{Domain: typ}
	if typ == "" {
		m.Domain = TypeScreenShare
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func errorReply(typ string, raw []byte) (Message, error) {
	m := ErrorReply{Domain: typ}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// inbound maps "type/action" to decoders for host → client messages. A "*"
// type matches replies where the host omits the type.
var inbound = map[string]decodeFunc{
	TypeHandshake + "/*":   as[Handshake](),
	TypeAuthRequest + "/*": as[AuthRequest](),
	TypeAuthSuccess + "/*": as[AuthSuccess](),
	TypeAuthFailed + "/*":  as[AuthFailed](),
	TypePing + "/*":        as[Ping](),
	TypePong + "/*":        as[Pong](),

	TypeScreenShare + "/display_list":    as[DisplayList](),
	"*/display_list":                     as[DisplayList](),
	TypeCamera + "/camera_list":          as[CameraList](),
	"*/camera_list":                      as[CameraList](),
	TypeScreenShare + "/stream_settings": streamSettings,
	TypeCamera + "/stream_settings":      streamSettings,

	TypeMediaControl + "/media_info": as[MediaInfo](),
	"*/media_info":                   as[MediaInfo](),

	TypeFileExplorer + "/list":          as[FileListing](),
	TypeFileExplorer + "/search":        as[FileListing](),
	TypeFileExplorer + "/file_opened":   as[FileResult](),
	TypeFileExplorer + "/folder_opened": as[FileResult](),
	TypeFileExplorer + "/properties":    as[FileResult](),
	TypeFileExplorer + "/path_copied":   as[FileResult](),
	"*/list":                            as[FileListing](),
	"*/search":                          as[FileListing](),
	"*/file_opened":                     as[FileResult](),
	"*/folder_opened":                   as[FileResult](),
	"*/properties":                      as[FileResult](),
	"*/path_copied":                     as[FileResult](),

	TypeTaskManager + "/list_processes": as[ProcessList](),
	TypeTaskManager + "/process_ended":  as[ProcessEnded](),
	TypeTaskManager + "/system_info":    as[SystemInfo](),

	"*/error": errorReply,
}

// outbound maps client → host commands.
var outbound = map[string]decodeFunc{
	TypeHandshakeAck + "/*": as[HandshakeAck](),
	TypeAuthResponse + "/*": as[AuthResponse](),
	TypePing + "/*":         as[Ping](),
	TypePong + "/*":         as[Pong](),

	TypeKeyboard + "/*":     as[Keyboard](),
	TypeMouse + "/*":        as[Mouse](),
	TypeGamepad + "/*":      as[Gamepad](),
	TypeSensor + "/*":       as[Sensor](),
	TypeMediaControl + "/*": as[MediaControl](),
	TypeScreenShare + "/*":  streamCommand,
	TypeCamera + "/*":       streamCommand,
	TypeFileExplorer + "/*": as[FileExplorer](),
	TypeTaskManager + "/*":  as[TaskManager](),
	TypeClipboard + "/*":    as[Clipboard](),
}
