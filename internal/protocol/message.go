package protocol

import "encoding/json"

// Message is the closed set of control messages. Each concrete type reports
// its wire `type`; the `action` (where the domain has one) is a field.
type Message interface {
	MessageType() string
	isMessage()
}

// Message type tags.
const (
	TypeHandshake    = "handshake"
	TypeHandshakeAck = "handshake_ack"
	TypeAuthRequest  = "auth_request"
	TypeAuthResponse = "auth_response"
	TypeAuthSuccess  = "auth_success"
	TypeAuthFailed   = "auth_failed"
	TypePing         = "ping"
	TypePong         = "pong"

	TypeKeyboard     = "keyboard"
	TypeMouse        = "mouse"
	TypeGamepad      = "gamepad"
	TypeSensor       = "sensor"
	TypeMediaControl = "media_control"
	TypeScreenShare  = "screen_share"
	TypeCamera       = "camera"
	TypeFileExplorer = "file_explorer"
	TypeTaskManager  = "task_manager"
	TypeClipboard    = "clipboard"
)

// ──────────────────────────────────────────────────────────────────────────────
// Bootstrap
// ──────────────────────────────────────────────────────────────────────────────

// Handshake carries the per-session key material chosen by the host.
type Handshake struct {
	Key           string `json:"key"`
	Cipher        string `json:"cipher,omitempty"`
	ServerVersion string `json:"server_version,omitempty"`
}

type HandshakeAck struct {
	ClientVersion string `json:"client_version,omitempty"`
}

type AuthRequest struct {
	PairingRequired bool `json:"pairing_required"`
}

type AuthResponse struct {
	PairingCode string `json:"pairing_code"`
	DeviceName  string `json:"device_name"`
	DeviceID    string `json:"device_id,omitempty"`
}

type AuthSuccess struct {
	ServerName   string          `json:"server_name,omitempty"`
	Capabilities map[string]bool `json:"capabilities,omitempty"`
}

type AuthFailed struct {
	Reason string `json:"reason,omitempty"`
}

type Ping struct {
	Timestamp float64 `json:"timestamp"`
}

type Pong struct {
	Timestamp float64 `json:"timestamp"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Commands (client → host)
// ──────────────────────────────────────────────────────────────────────────────

// Keyboard actions: type, press, release, hotkey.
type Keyboard struct {
	Action string   `json:"action"`
	Key    string   `json:"key,omitempty"`
	Text   string   `json:"text,omitempty"`
	Keys   []string `json:"keys,omitempty"`
}

// Mouse actions: move, move_relative, click, press, release, scroll.
// X and Y are host-absolute pixels within DisplayIndex.
type Mouse struct {
	Action       string `json:"action"`
	Button       string `json:"button,omitempty"`
	Count        int    `json:"count,omitempty"`
	X            *int   `json:"x,omitempty"` // nil keeps the host pointer where it is
	Y            *int   `json:"y,omitempty"`
	DX           int    `json:"dx,omitempty"`
	DY           int    `json:"dy,omitempty"`
	DisplayIndex int    `json:"display_index"`
}

// Gamepad is keyed by input type (button, trigger, joystick, dpad, gyro)
// rather than action.
type Gamepad struct {
	InputType string  `json:"input_type"`
	Button    string  `json:"button,omitempty"`
	Trigger   string  `json:"trigger,omitempty"`
	Stick     string  `json:"stick,omitempty"`
	Direction string  `json:"direction,omitempty"`
	Pressed   bool    `json:"pressed,omitempty"`
	Value     float64 `json:"value,omitempty"`
	X         float64 `json:"x,omitempty"`
	Y         float64 `json:"y,omitempty"`
	Z         float64 `json:"z,omitempty"`
}

// Sensor forwards a motion sensor sample (action: gyro, accelerometer).
type Sensor struct {
	Action    string  `json:"action"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
	Timestamp int64   `json:"timestamp,omitempty"`
}

// MediaControl actions: play, pause, stop, next, previous, volume,
// mute_toggle, seek, get_info.
type MediaControl struct {
	Action   string  `json:"action"`
	Value    int     `json:"value,omitempty"`
	Position float64 `json:"position,omitempty"`
}

// StreamCommand drives the screen_share or camera domain. Domain selects
// the wire type and is not serialized itself.
type StreamCommand struct {
	Domain     string `json:"-"`
	Action     string `json:"action"`
	Indices    []int  `json:"indices,omitempty"`
	Index      *int   `json:"display_index,omitempty"`
	FPS        int    `json:"fps,omitempty"`
	Quality    int    `json:"quality,omitempty"`
	Resolution string `json:"resolution,omitempty"`
}

// Stream actions shared by screen_share and camera.
const (
	ActionListDisplays  = "list_displays"
	ActionListCameras   = "list_cameras"
	ActionStart         = "start"
	ActionStop          = "stop"
	ActionSetFPS        = "set_fps"
	ActionSetQuality    = "set_quality"
	ActionSetResolution = "set_resolution"
	ActionRequestFrame  = "request_frame"
)

// FileExplorer actions: list, open, properties, search, copy_path.
type FileExplorer struct {
	Action string `json:"action"`
	Path   string `json:"path,omitempty"`
	Query  string `json:"query,omitempty"`
}

// TaskManager actions: list_processes, end_process, system_info.
type TaskManager struct {
	Action string `json:"action"`
	PID    int    `json:"pid,omitempty"`
}

type Clipboard struct {
	Action string `json:"action"`
	Text   string `json:"text"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Replies and pushes (host → client)
// ──────────────────────────────────────────────────────────────────────────────

// DisplayDescriptor describes one host monitor.
type DisplayDescriptor struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	IsPrimary bool   `json:"is_primary"`
}

// CameraDescriptor describes one host camera.
type CameraDescriptor struct {
	Index  int     `json:"index"`
	Name   string  `json:"name"`
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps,omitempty"`
}

type DisplayList struct {
	Displays []DisplayDescriptor `json:"displays"`
}

type CameraList struct {
	Cameras []CameraDescriptor `json:"cameras"`
}

// StreamSettingsUpdate is a host push of the effective settings of one stream.
type StreamSettingsUpdate struct {
	Domain     string `json:"-"`
	Index      int    `json:"display_index"`
	FPS        int    `json:"fps,omitempty"`
	Quality    int    `json:"quality,omitempty"`
	Resolution string `json:"resolution,omitempty"`
}

type MediaInfo struct {
	Title     string  `json:"title"`
	Artist    string  `json:"artist,omitempty"`
	Duration  float64 `json:"duration"`
	Position  float64 `json:"position"`
	IsPlaying bool    `json:"is_playing"`
	Volume    int     `json:"volume"`
}

type FileEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	IsDirectory bool   `json:"is_directory"`
	Size        *int64 `json:"size"`
	Modified    string `json:"modified,omitempty"`
}

// FileListing answers list and search.
type FileListing struct {
	Action string      `json:"action"`
	Path   string      `json:"path,omitempty"`
	Query  string      `json:"query,omitempty"`
	Files  []FileEntry `json:"files"`
}

// FileResult answers open, properties and copy_path.
type FileResult struct {
	Action      string `json:"action"`
	Path        string `json:"path"`
	Name        string `json:"name,omitempty"`
	IsDirectory bool   `json:"is_directory,omitempty"`
	Size        int64  `json:"size,omitempty"`
	Modified    string `json:"modified,omitempty"`
}

type ProcessInfo struct {
	PID    int     `json:"pid"`
	Name   string  `json:"name"`
	CPU    float64 `json:"cpu"`
	Memory int64   `json:"memory"`
}

type ProcessList struct {
	Processes []ProcessInfo `json:"processes"`
}

type ProcessEnded struct {
	PID  int    `json:"pid"`
	Name string `json:"name"`
}

type SystemInfo struct {
	CPUUsage        float64 `json:"cpu_usage"`
	MemoryUsage     float64 `json:"memory_usage"`
	DiskUsage       float64 `json:"disk_usage"`
	MemoryTotal     int64   `json:"memory_total"`
	MemoryAvailable int64   `json:"memory_available"`
}

// ErrorReply is `{action:"error", message}` from any domain.
type ErrorReply struct {
	Domain  string `json:"-"`
	Message string `json:"message"`
}

// Unknown preserves a message whose tag this client does not understand.
type Unknown struct {
	Type   string
	Action string
	Raw    json.RawMessage
}

func (Handshake) MessageType() string              { return TypeHandshake }
func (HandshakeAck) MessageType() string           { return TypeHandshakeAck }
func (AuthRequest) MessageType() string            { return TypeAuthRequest }
func (AuthResponse) MessageType() string           { return TypeAuthResponse }
func (AuthSuccess) MessageType() string            { return TypeAuthSuccess }
func (AuthFailed) MessageType() string             { return TypeAuthFailed }
func (Ping) MessageType() string                   { return TypePing }
func (Pong) MessageType() string                   { return TypePong }
func (Keyboard) MessageType() string               { return TypeKeyboard }
func (Mouse) MessageType() string                  { return TypeMouse }
func (Gamepad) MessageType() string                { return TypeGamepad }
func (Sensor) MessageType() string                 { return TypeSensor }
func (MediaControl) MessageType() string           { return TypeMediaControl }
func (m StreamCommand) MessageType() string        { return m.Domain }
func (FileExplorer) MessageType() string           { return TypeFileExplorer }
func (TaskManager) MessageType() string            { return TypeTaskManager }
func (Clipboard) MessageType() string              { return TypeClipboard }
func (DisplayList) MessageType() string            { return TypeScreenShare }
func (CameraList) MessageType() string             { return TypeCamera }
func (m StreamSettingsUpdate) MessageType() string { return m.Domain }
func (MediaInfo) MessageType() string              { return TypeMediaControl }
func (FileListing) MessageType() string            { return TypeFileExplorer }
func (FileResult) MessageType() string             { return TypeFileExplorer }
func (ProcessList) MessageType() string            { return TypeTaskManager }
func (ProcessEnded) MessageType() string           { return TypeTaskManager }
func (SystemInfo) MessageType() string             { return TypeTaskManager }
func (m ErrorReply) MessageType() string           { return m.Domain }
func (m Unknown) MessageType() string              { return m.Type }

func (Handshake) isMessage()            {}
func (HandshakeAck) isMessage()         {}
func (AuthRequest) isMessage()          {}
func (AuthResponse) isMessage()         {}
func (AuthSuccess) isMessage()          {}
func (AuthFailed) isMessage()           {}
func (Ping) isMessage()                 {}
func (Pong) isMessage()                 {}
func (Keyboard) isMessage()             {}
func (Mouse) isMessage()                {}
func (Gamepad) isMessage()              {}
func (Sensor) isMessage()               {}
func (MediaControl) isMessage()         {}
func (StreamCommand) isMessage()        {}
func (FileExplorer) isMessage()         {}
func (TaskManager) isMessage()          {}
func (Clipboard) isMessage()            {}
func (DisplayList) isMessage()          {}
func (CameraList) isMessage()           {}
func (StreamSettingsUpdate) isMessage() {}
func (MediaInfo) isMessage()            {}
func (FileListing) isMessage()          {}
func (FileResult) isMessage()           {}
func (ProcessList) isMessage()          {}
func (ProcessEnded) isMessage()         {}
func (SystemInfo) isMessage()           {}
func (ErrorReply) isMessage()           {}
func (Unknown) isMessage()              {}
