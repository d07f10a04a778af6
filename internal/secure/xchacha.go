package secure

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

// hkdfInfo binds derived keys to this protocol.
var hkdfInfo = []byte("nexremote session v1")

type xchacha struct {
	aead cipher.AEAD
}

// NewXChaCha derives a 256-bit key from the handshake key material with
// HKDF-SHA256 and seals with XChaCha20-Poly1305 under random 24-byte nonces.
func NewXChaCha(key string) (Cipher, error) {
	secret, err := base64.StdEncoding.DecodeString(key)
	if err != nil || len(secret) < 16 {
		return nil, fmt.Errorf("%w: need at least 16 base64 bytes", ErrBadKey)
	}

	derived := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, hkdfInfo), derived); err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(derived)
	if err != nil {
		return nil, err
	}
	return &xchacha{aead: aead}, nil
}

func (x *xchacha) Name() string { return CipherXChaCha }

func (x *xchacha) Seal(plaintext []byte) ([]byte, error) {
	ns := x.aead.NonceSize()
	buf := make([]byte, ns, ns+len(plaintext)+x.aead.Overhead())
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	sealed := x.aead.Seal(buf, buf[:ns], plaintext, nil)

	out := make([]byte, base64.StdEncoding.EncodedLen(len(sealed)))
	base64.StdEncoding.Encode(out, sealed)
	return out, nil
}

func (x *xchacha) Open(data []byte) ([]byte, error) {
	sealed := make([]byte, base64.StdEncoding.DecodedLen(len(data)))
	n, err := base64.StdEncoding.Decode(sealed, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	sealed = sealed[:n]

	ns := x.aead.NonceSize()
	if len(sealed) < ns+x.aead.Overhead() {
		return nil, fmt.Errorf("%w: short message", ErrDecrypt)
	}
	pt, err := x.aead.Open(nil, sealed[:ns], sealed[ns:], nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecrypt, err)
	}
	return pt, nil
}
