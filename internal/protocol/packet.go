// Package protocol defines the control message union and the binary media
// frame format exchanged with the host.
package protocol

// Frame tags identifying the media class of a binary message.
var (
	TagScreen = [4]byte{'S', 'C', 'R', 'N'} // host screen capture
	TagCamera = [4]byte{'C', 'A', 'M', 'F'} // camera capture
)

// HeaderSize is the fixed frame header size: Tag(4) + StreamIndex(1).
const HeaderSize = 5

// MaxStreamIndex is the largest index a one-byte header can carry.
const MaxStreamIndex = 255

// Frame is one compressed image tagged with its media class and stream index.
// It travels as exactly one binary transport message and never passes
// through the control codec.
type Frame struct {
	Tag     [4]byte
	Index   uint8
	Payload []byte
}

// KnownTag reports whether tag identifies a media class this client handles.
func KnownTag(tag [4]byte) bool {
	return tag == TagScreen || tag == TagCamera
}
