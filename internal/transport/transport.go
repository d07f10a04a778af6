package transport

import (
	"context"
	"errors"
	"sync"

	"github.com/1ureka/nexremote/internal/util"
)

const inboundBufferSize = 256

// Message is one inbound transport message.
type Message struct {
	Kind Kind
	Data []byte
}

// Transport owns a Conn. Writes go through a single sender goroutine;
// reads are pumped by one reader goroutine into Inbound in arrival order.
//
// Its lifecycle is governed by the Conn and by the context passed at
// construction time: a read or write error, Close, or ctx cancellation all
// shut it down, after which Done is closed and Err reports the cause.
type Transport struct {
	conn    Conn
	sender  *sender
	inbound chan Message

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	once sync.Once
	mu   sync.Mutex
	err  error
}

// New wraps conn and starts its reader and writer goroutines.
func New(ctx context.Context, conn Conn) *Transport {
	tCtx, tCancel := context.WithCancel(ctx)

	t := &Transport{
		conn:    conn,
		inbound: make(chan Message, inboundBufferSize),
		ctx:     tCtx,
		cancel:  tCancel,
		done:    make(chan struct{}),
	}
	t.sender = newSender(tCtx, conn, t.fail)

	go t.readLoop()
	go func() {
		<-tCtx.Done()
		if err := ctx.Err(); err != nil {
			t.fail(err)
		}
	}()

	return t
}

// readLoop is the only caller of conn.ReadMessage. It blocks on a full
// inbound channel, which pushes back on the remote through the link.
func (t *Transport) readLoop() {
	for {
		kind, data, err := t.conn.ReadMessage()
		if err != nil {
			t.fail(err)
			return
		}
		util.Stats.AddRecv(len(data))

		select {
		case t.inbound <- Message{Kind: kind, Data: data}:
		case <-t.ctx.Done():
			return
		}
	}
}

// fail records the first cause and tears the transport down.
func (t *Transport) fail(err error) {
	t.once.Do(func() {
		t.mu.Lock()
		t.err = err
		t.mu.Unlock()

		t.cancel()
		if cerr := t.conn.Close(); cerr != nil && !errors.Is(err, ErrClosed) {
			util.LogDebug("close after %v: %v", err, cerr)
		}
		close(t.done)
	})
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Done returns a channel that is closed when the Transport is shut down.
// Err is already set when it fires.
func (t *Transport) Done() <-chan struct{} {
	return t.done
}

// Err returns the reason the transport shut down: ErrClosed after Close,
// the read or write error after a link failure, nil while it is alive.
func (t *Transport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Close shuts the transport down. Safe to call multiple times.
func (t *Transport) Close() error {
	t.fail(ErrClosed)
	return nil
}

// RemoteClosed reports whether err describes the peer going away rather
// than a local Close.
func RemoteClosed(err error) bool {
	return err != nil && !errors.Is(err, ErrClosed) && !errors.Is(err, context.Canceled)
}

// ---------------------------------------------------------------------------
// Data
// ---------------------------------------------------------------------------

// Inbound delivers received messages in arrival order. It is never closed;
// select on Done as well.
func (t *Transport) Inbound() <-chan Message {
	return t.inbound
}

// Send enqueues data for the writer goroutine.
func (t *Transport) Send(ctx context.Context, kind Kind, data []byte) error {
	if t.ctx.Err() != nil {
		return ErrClosed
	}
	return t.sender.send(ctx, t.ctx, outbound{kind: kind, data: data})
}
