package secure

import (
	"sync/atomic"

	"github.com/1ureka/nexremote/internal/protocol"
	"github.com/1ureka/nexremote/internal/util"
)

// Codec turns control messages into transport payloads and back. It is
// built whole around an installed Cipher (or none, during bootstrap) and
// never mutated afterwards; a session swaps codecs rather than keys.
type Codec struct {
	cipher    Cipher
	fallbacks atomic.Int64
}

// NewCodec returns a codec sealing with c. A nil cipher yields a plaintext
// codec, which is what the bootstrap phase uses.
func NewCodec(c Cipher) *Codec {
	return &Codec{cipher: c}
}

// Encrypted reports whether a cipher is installed.
func (c *Codec) Encrypted() bool {
	return c.cipher != nil
}

// EncodeControl serializes msg and seals it into one transport payload.
func (c *Codec) EncodeControl(msg protocol.Message) ([]byte, error) {
	data, err := protocol.Marshal(msg)
	if err != nil {
		return nil, err
	}
	if c.cipher == nil {
		return data, nil
	}
	return c.cipher.Seal(data)
}

// Open decrypts data. When decryption fails the raw payload is returned as
// plaintext: bootstrap-phase messages arrive unencrypted and must still be
// readable. This accepts unauthenticated input, so callers must treat the
// result as untrusted.
func (c *Codec) Open(data []byte) []byte {
	if c.cipher == nil {
		return data
	}
	pt, err := c.cipher.Open(data)
	if err != nil {
		c.fallbacks.Add(1)
		util.LogDebug("control message not decryptable (%v), reading as plaintext", err)
		return data
	}
	return pt
}

// DecodeControl opens data (see Open) and decodes the message.
func (c *Codec) DecodeControl(data []byte) (protocol.Message, error) {
	return protocol.Unmarshal(c.Open(data))
}

// Fallbacks returns how many payloads were read as plaintext after a
// decrypt failure.
func (c *Codec) Fallbacks() int64 {
	return c.fallbacks.Load()
}
