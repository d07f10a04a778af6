package transport

import (
	"io"
	"sync"
)

// Pipe returns two linked in-memory Conns: messages written to one are read
// from the other in order. Closing either end closes both; pending messages
// are still readable after the close.
func Pipe() (Conn, Conn) {
	shared := &pipeState{done: make(chan struct{})}
	a := &pipeConn{state: shared, inbox: make(chan Message, 64)}
	b := &pipeConn{state: shared, inbox: make(chan Message, 64)}
	a.peer, b.peer = b, a
	return a, b
}

type pipeState struct {
	done chan struct{}
	once sync.Once
}

type pipeConn struct {
	state *pipeState
	inbox chan Message
	peer  *pipeConn
}

func (p *pipeConn) ReadMessage() (Kind, []byte, error) {
	select {
	case m := <-p.inbox:
		return m.Kind, m.Data, nil
	default:
	}
	select {
	case m := <-p.inbox:
		return m.Kind, m.Data, nil
	case <-p.state.done:
		return 0, nil, io.EOF
	}
}

func (p *pipeConn) WriteMessage(kind Kind, data []byte) error {
	msg := Message{Kind: kind, Data: append([]byte(nil), data...)}
	select {
	case <-p.state.done:
		return ErrClosed
	default:
	}
	select {
	case p.peer.inbox <- msg:
		return nil
	case <-p.state.done:
		return ErrClosed
	}
}

func (p *pipeConn) Close() error {
	p.state.once.Do(func() { close(p.state.done) })
	return nil
}
