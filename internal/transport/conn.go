// Package transport carries session traffic between client and host. A Conn
// is one message-oriented link (WebSocket or WebRTC DataChannel); Transport
// adds the single-writer discipline and an ordered inbound channel on top.
package transport

import (
	"context"
	"errors"
	"fmt"
)

// Kind distinguishes text (control) messages from binary (frame) messages.
type Kind uint8

const (
	KindText Kind = iota + 1
	KindBinary
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBinary:
		return "binary"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

var ErrClosed = errors.New("transport closed")

// Conn is a message-oriented, ordered, reliable link. ReadMessage is called
// from one goroutine and WriteMessage from one (other) goroutine; Close may
// be called from anywhere.
type Conn interface {
	ReadMessage() (Kind, []byte, error)
	WriteMessage(kind Kind, data []byte) error
	Close() error
}

// Endpoint addresses one host port.
type Endpoint struct {
	Host   string
	Port   int
	Secure bool
}

func (e Endpoint) String() string {
	scheme := "ws"
	if e.Secure {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, e.Host, e.Port)
}

// Dialer opens a Conn to an endpoint. Dial must honor ctx for both the
// connect and any transport-level negotiation.
type Dialer interface {
	Dial(ctx context.Context, ep Endpoint) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, ep Endpoint) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, ep Endpoint) (Conn, error) { return f(ctx, ep) }
