package protocol_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/1ureka/nexremote/internal/protocol"
)

// TestEncodeFrameLayout verifies the wire layout: 4-byte tag, 1-byte index,
// then the payload with no length prefix.
func TestEncodeFrameLayout(t *testing.T) {
	data := protocol.EncodeFrame(protocol.Frame{
		Tag:     protocol.TagScreen,
		Index:   2,
		Payload: []byte{0xFF, 0xD8, 0xFF},
	})

	want := []byte{'S', 'C', 'R', 'N', 2, 0xFF, 0xD8, 0xFF}
	if !bytes.Equal(data, want) {
		t.Fatalf("EncodeFrame = %v, want %v", data, want)
	}
}

// TestDecodeFrame covers the accepted tags and the rejection paths.
func TestDecodeFrame(t *testing.T) {
	testCases := []struct {
		name    string
		data    []byte
		wantErr error
		tag     [4]byte
		index   uint8
		payload []byte
	}{
		{
			name:    "screen frame",
			data:    []byte{'S', 'C', 'R', 'N', 0, 1, 2, 3},
			tag:     protocol.TagScreen,
			index:   0,
			payload: []byte{1, 2, 3},
		},
		{
			name:    "camera frame with max index",
			data:    []byte{'C', 'A', 'M', 'F', 255, 9},
			tag:     protocol.TagCamera,
			index:   255,
			payload: []byte{9},
		},
		{
			name:    "header only",
			data:    []byte{'S', 'C', 'R', 'N', 7},
			tag:     protocol.TagScreen,
			index:   7,
			payload: []byte{},
		},
		{
			name:    "unknown tag",
			data:    []byte{'A', 'U', 'D', 'O', 0, 1},
			wantErr: protocol.ErrUnknownTag,
		},
		{
			name:    "lowercase tag is not a known tag",
			data:    []byte{'s', 'c', 'r', 'n', 0, 1},
			wantErr: protocol.ErrUnknownTag,
		},
		{
			name:    "too short",
			data:    []byte{'S', 'C', 'R', 'N'},
			wantErr: protocol.ErrFrameTooShort,
		},
		{
			name:    "empty",
			data:    nil,
			wantErr: protocol.ErrFrameTooShort,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := protocol.DecodeFrame(tc.data)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("DecodeFrame error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeFrame failed: %v", err)
			}
			if f.Tag != tc.tag {
				t.Errorf("Tag mismatch: got %q, want %q", f.Tag[:], tc.tag[:])
			}
			if f.Index != tc.index {
				t.Errorf("Index mismatch: got %d, want %d", f.Index, tc.index)
			}
			if !bytes.Equal(f.Payload, tc.payload) {
				t.Errorf("Payload mismatch: got %v, want %v", f.Payload, tc.payload)
			}
		})
	}
}
