// Package secure implements the session cipher negotiated in the handshake
// and the control-message codec layered on it.
package secure

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/1ureka/nexremote/internal/protocol"
)

// Cipher names carried in the handshake's "cipher" field.
const (
	CipherFernet  = "fernet"
	CipherXChaCha = "xchacha20poly1305"
)

var (
	ErrBadKey        = errors.New("invalid session key")
	ErrUnknownCipher = errors.New("unknown cipher")
	ErrDecrypt       = errors.New("decrypt failed")
)

// Cipher seals and opens one control message. Implementations are safe for
// concurrent use.
type Cipher interface {
	Name() string
	Seal(plaintext []byte) ([]byte, error)
	Open(ciphertext []byte) ([]byte, error)
}

// NewCipher builds the cipher selected by the host's handshake from its key
// material. An empty cipher name means Fernet, which is what the stock host
// sends.
func NewCipher(h protocol.Handshake) (Cipher, error) {
	if h.Key == "" {
		return nil, fmt.Errorf("%w: empty key", ErrBadKey)
	}
	switch h.Cipher {
	case "", CipherFernet:
		return NewFernet(h.Key)
	case CipherXChaCha:
		return NewXChaCha(h.Key)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCipher, h.Cipher)
	}
}

// GenerateKey returns fresh key material for the named cipher, encoded the
// way the handshake carries it. The reference host calls it once per
// connection.
func GenerateKey(cipher string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	switch cipher {
	case "", CipherFernet:
		return base64.URLEncoding.EncodeToString(raw), nil
	case CipherXChaCha:
		return base64.StdEncoding.EncodeToString(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCipher, cipher)
	}
}
