package transport

import (
	"crypto/sha256"
	"crypto/subtle"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var ErrPinMismatch = errors.New("host certificate does not match pinned fingerprint")

// ClientTLSConfig builds the TLS configuration for wss connections. Hosts use
// self-signed certificates, so there is no chain to verify: either the leaf
// is pinned by its SHA-256 fingerprint or verification is skipped entirely.
func ClientTLSConfig(skipVerify bool, pinnedSHA256 string) (*tls.Config, error) {
	pin := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(pinnedSHA256), ":", ""))
	if pin == "" {
		return &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: skipVerify, //nolint:gosec // self-signed hosts
		}, nil
	}

	want, err := hex.DecodeString(pin)
	if err != nil || len(want) != sha256.Size {
		return nil, fmt.Errorf("invalid pinned fingerprint %q", pinnedSHA256)
	}

	return &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: true, //nolint:gosec // replaced by VerifyPeerCertificate
		VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			if len(rawCerts) == 0 {
				return ErrPinMismatch
			}
			sum := sha256.Sum256(rawCerts[0])
			if subtle.ConstantTimeCompare(sum[:], want) != 1 {
				return ErrPinMismatch
			}
			return nil
		},
	}, nil
}

// Fingerprint returns the colon-less hex SHA-256 of a DER certificate, in the
// form accepted by ClientTLSConfig.
func Fingerprint(der []byte) string {
	sum := sha256.Sum256(der)
	return hex.EncodeToString(sum[:])
}
