package secure

import (
	"bytes"
	"fmt"

	"github.com/fernet/fernet-go"
)

// noExpiry disables the token timestamp check; session keys are per
// connection.
const noExpiry = -1

type fernetCipher struct {
	keys []*fernet.Key
}

// NewFernet parses a 32-byte url-safe base64 key.
func NewFernet(key string) (Cipher, error) {
	k, err := fernet.DecodeKey(key)
	if err != nil {
		return nil, fmt.Errorf("%w: fernet key must be 32 url-safe base64 bytes", ErrBadKey)
	}
	return &fernetCipher{keys: []*fernet.Key{k}}, nil
}

func (f *fernetCipher) Name() string { return CipherFernet }

func (f *fernetCipher) Seal(plaintext []byte) ([]byte, error) {
	return fernet.EncryptAndSign(plaintext, f.keys[0])
}

func (f *fernetCipher) Open(data []byte) ([]byte, error) {
	pt := fernet.VerifyAndDecrypt(bytes.TrimSpace(data), noExpiry, f.keys)
	if pt == nil {
		return nil, fmt.Errorf("%w: invalid fernet token", ErrDecrypt)
	}
	return pt, nil
}
