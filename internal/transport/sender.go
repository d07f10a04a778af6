package transport

import (
	"context"

	"github.com/1ureka/nexremote/internal/util"
)

const sendBufferSize = 64 // outgoing message channel capacity

type outbound struct {
	kind Kind
	data []byte
}

// sender is a goroutine-based writer that serializes all writes to a single
// Conn. Interleaved writes would corrupt the framed protocol, so nothing
// else may call conn.WriteMessage.
type sender struct {
	inbox chan outbound
}

// newSender starts the background loop. The loop exits when ctx is
// cancelled or a write fails; fail is called with the write error.
func newSender(ctx context.Context, conn Conn, fail func(error)) *sender {
	s := &sender{inbox: make(chan outbound, sendBufferSize)}
	go s.loop(ctx, conn, fail)
	return s
}

func (s *sender) loop(ctx context.Context, conn Conn, fail func(error)) {
	for {
		select {
		case msg := <-s.inbox:
			if err := conn.WriteMessage(msg.kind, msg.data); err != nil {
				util.LogError("failed to write %s message (%d bytes): %v", msg.kind, len(msg.data), err)
				fail(err)
				return
			}
			util.Stats.AddSent(len(msg.data))
		case <-ctx.Done():
			return
		}
	}
}

// send enqueues a message. It blocks while the buffer is full and gives up
// when either ctx or the transport context is done.
func (s *sender) send(ctx, tctx context.Context, msg outbound) error {
	select {
	case s.inbox <- msg:
		return nil
	case <-tctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}
