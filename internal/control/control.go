// Package control sends commands for the non-streaming host domains and
// correlates their replies. Every sender works on a Conn, which
// *session.Session satisfies.
package control

import (
	"context"
	"errors"
	"fmt"

	"github.com/1ureka/nexremote/internal/protocol"
)

// Conn is the part of a session the senders need.
type Conn interface {
	Send(ctx context.Context, msg protocol.Message) error
	SubscribeControl() (<-chan protocol.Message, func())
}

var ErrSubscriptionClosed = errors.New("control subscription closed")

// RemoteError is an {action:"error"} reply from the host.
type RemoteError struct {
	Domain  string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Domain, e.Message)
}

// Request sends msg and waits for the first inbound message accepted by
// match. The subscription is taken before sending so a fast reply cannot be
// missed. An error reply from msg's domain ends the wait with *RemoteError.
func Request(ctx context.Context, c Conn, msg protocol.Message, match func(protocol.Message) bool) (protocol.Message, error) {
	events, cancel := c.SubscribeControl()
	defer cancel()

	if err := c.Send(ctx, msg); err != nil {
		return nil, err
	}

	domain := msg.MessageType()
	for {
		select {
		case in, ok := <-events:
			if !ok {
				return nil, ErrSubscriptionClosed
			}
			if e, isErr := in.(protocol.ErrorReply); isErr && (e.Domain == domain || e.Domain == "") {
				return nil, &RemoteError{Domain: domain, Message: e.Message}
			}
			if match(in) {
				return in, nil
			}
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s reply: %w", domain, ctx.Err())
		}
	}
}

// requestAs is Request for replies of a single Go type.
func requestAs[T protocol.Message](ctx context.Context, c Conn, msg protocol.Message, match func(T) bool) (T, error) {
	var zero T
	in, err := Request(ctx, c, msg, func(m protocol.Message) bool {
		v, ok := m.(T)
		return ok && (match == nil || match(v))
	})
	if err != nil {
		return zero, err
	}
	return in.(T), nil
}
