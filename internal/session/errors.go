package session

import (
	"errors"
	"fmt"

	"github.com/1ureka/nexremote/internal/transport"
)

var (
	ErrConnectInFlight  = errors.New("a connect attempt is already in flight")
	ErrAlreadyConnected = errors.New("session is already connected")
	ErrNotConnected     = errors.New("session is not connected")
	ErrAborted          = errors.New("connect aborted by disconnect")
	ErrTimeout          = errors.New("timed out")
	ErrNoEndpoint       = errors.New("no port to connect to")
)

// Attempt stages.
const (
	StageDial      = "dial"
	StageHandshake = "handshake"
	StageAuth      = "auth"
)

// AuthError is returned when the host rejects the client, most commonly for
// a wrong pairing code.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	if e.Reason == "" {
		return "authentication failed"
	}
	return "authentication failed: " + e.Reason
}

// AttemptError describes the failure of one transport attempt.
type AttemptError struct {
	Endpoint transport.Endpoint
	Stage    string
	Err      error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Endpoint, e.Stage, e.Err)
}

func (e *AttemptError) Unwrap() error { return e.Err }
