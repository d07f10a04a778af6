package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrFrameTooShort = errors.New("frame shorter than header")
	ErrUnknownTag    = errors.New("unknown frame tag")
)

// EncodeFrame serializes a Frame: [4-byte tag][1-byte index][payload].
func EncodeFrame(f Frame) []byte {
	buf := make([]byte, HeaderSize+len(f.Payload))
	copy(buf[0:4], f.Tag[:])
	buf[4] = f.Index
	copy(buf[HeaderSize:], f.Payload)
	return buf
}

// DecodeFrame parses a binary transport message into a Frame. The payload
// aliases data; callers that retain it past the next read must copy.
func DecodeFrame(data []byte) (Frame, error) {
	if len(data) < HeaderSize {
		return Frame{}, fmt.Errorf("%w: %d bytes (need at least %d)", ErrFrameTooShort, len(data), HeaderSize)
	}

	var f Frame
	copy(f.Tag[:], data[0:4])
	if !KnownTag(f.Tag) {
		return Frame{}, fmt.Errorf("%w: %q", ErrUnknownTag, f.Tag[:])
	}
	f.Index = data[4]
	f.Payload = data[HeaderSize:]
	return f, nil
}
