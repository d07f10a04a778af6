package protocol_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/1ureka/nexremote/internal/protocol"
)

// TestMarshalPutsTypeFirst verifies the compact envelope shape.
func TestMarshalPutsTypeFirst(t *testing.T) {
	testCases := []struct {
		name string
		msg  protocol.Message
		want string
	}{
		{
			name: "empty body",
			msg:  protocol.HandshakeAck{},
			want: `{"type":"handshake_ack"}`,
		},
		{
			name: "action field",
			msg:  protocol.Keyboard{Action: "press", Key: "enter"},
			want: `{"type":"keyboard","action":"press","key":"enter"}`,
		},
		{
			name: "implied action",
			msg:  protocol.DisplayList{Displays: []protocol.DisplayDescriptor{}},
			want: `{"type":"screen_share","action":"display_list","displays":[]}`,
		},
		{
			name: "domain from field",
			msg:  protocol.StreamCommand{Domain: protocol.TypeCamera, Action: protocol.ActionStop},
			want: `{"type":"camera","action":"stop"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := protocol.Marshal(tc.msg)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(data) != tc.want {
				t.Errorf("Marshal = %s, want %s", data, tc.want)
			}
			if !json.Valid(data) {
				t.Errorf("Marshal produced invalid JSON: %s", data)
			}
		})
	}
}

// TestUnmarshalInbound verifies routing of host → client messages,
// including replies where the host omits the type.
func TestUnmarshalInbound(t *testing.T) {
	size := int64(12)
	testCases := []struct {
		name string
		data string
		want protocol.Message
	}{
		{
			name: "handshake",
			data: `{"type":"handshake","key":"abc","server_version":"2.0"}`,
			want: protocol.Handshake{Key: "abc", ServerVersion: "2.0"},
		},
		{
			name: "auth failed with reason",
			data: `{"type":"auth_failed","reason":"Invalid pairing code"}`,
			want: protocol.AuthFailed{Reason: "Invalid pairing code"},
		},
		{
			name: "display list",
			data: `{"type":"screen_share","action":"display_list","displays":[{"index":0,"name":"Primary","width":1920,"height":1080,"is_primary":true}]}`,
			want: protocol.DisplayList{Displays: []protocol.DisplayDescriptor{
				{Index: 0, Name: "Primary", Width: 1920, Height: 1080, IsPrimary: true},
			}},
		},
		{
			name: "display list without type",
			data: `{"action":"display_list","displays":[]}`,
			want: protocol.DisplayList{Displays: []protocol.DisplayDescriptor{}},
		},
		{
			name: "camera stream settings",
			data: `{"type":"camera","action":"stream_settings","display_index":1,"fps":15}`,
			want: protocol.StreamSettingsUpdate{Domain: protocol.TypeCamera, Index: 1, FPS: 15},
		},
		{
			name: "file listing without type",
			data: `{"action":"list","path":"C:\\","files":[{"name":"a.txt","path":"C:\\a.txt","is_directory":false,"size":12}]}`,
			want: protocol.FileListing{Action: "list", Path: `C:\`, Files: []protocol.FileEntry{
				{Name: "a.txt", Path: `C:\a.txt`, Size: &size},
			}},
		},
		{
			name: "error from any domain",
			data: `{"type":"task_manager","action":"error","message":"Process not found"}`,
			want: protocol.ErrorReply{Domain: protocol.TypeTaskManager, Message: "Process not found"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := protocol.Unmarshal([]byte(tc.data))
			if err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Unmarshal = %#v, want %#v", got, tc.want)
			}
		})
	}
}

// TestUnmarshalUnknownTag verifies the forward-compatible branch.
func TestUnmarshalUnknownTag(t *testing.T) {
	data := []byte(`{"type":"hologram","action":"project","x":1}`)

	msg, err := protocol.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	u, ok := msg.(protocol.Unknown)
	if !ok {
		t.Fatalf("Unmarshal = %T, want protocol.Unknown", msg)
	}
	if u.Type != "hologram" || u.Action != "project" {
		t.Errorf("Unknown tag = %s/%s, want hologram/project", u.Type, u.Action)
	}
	if !bytes.Equal(u.Raw, data) {
		t.Errorf("Unknown.Raw = %s, want %s", u.Raw, data)
	}
}

// TestUnmarshalRejects verifies that non-JSON and untagged input fail.
func TestUnmarshalRejects(t *testing.T) {
	if _, err := protocol.Unmarshal([]byte("gAAAAABk-not-json")); err == nil {
		t.Error("expected error for non-JSON input")
	}
	if _, err := protocol.Unmarshal([]byte(`{"x":1}`)); !errors.Is(err, protocol.ErrMissingType) {
		t.Errorf("expected ErrMissingType, got %v", err)
	}
}

// TestCommandDirection verifies that a command and a reply sharing a
// (type, action) pair decode by direction.
func TestCommandDirection(t *testing.T) {
	data := []byte(`{"type":"file_explorer","action":"list","path":"/home"}`)

	cmd, err := protocol.UnmarshalCommand(data)
	if err != nil {
		t.Fatalf("UnmarshalCommand failed: %v", err)
	}
	if _, ok := cmd.(protocol.FileExplorer); !ok {
		t.Errorf("UnmarshalCommand = %T, want protocol.FileExplorer", cmd)
	}

	reply, err := protocol.Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if _, ok := reply.(protocol.FileListing); !ok {
		t.Errorf("Unmarshal = %T, want protocol.FileListing", reply)
	}
}

// TestStreamCommandRoundTrip verifies the domain survives the wire.
func TestStreamCommandRoundTrip(t *testing.T) {
	in := protocol.StreamCommand{
		Domain:     protocol.TypeScreenShare,
		Action:     protocol.ActionStart,
		Indices:    []int{0, 2},
		FPS:        30,
		Quality:    70,
		Resolution: "720p",
	}

	data, err := protocol.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	out, err := protocol.UnmarshalCommand(data)
	if err != nil {
		t.Fatalf("UnmarshalCommand failed: %v", err)
	}
	if !reflect.DeepEqual(out, in) {
		t.Errorf("round trip = %#v, want %#v", out, in)
	}
}
