package session

import (
	"context"
	"fmt"
	"time"

	"github.com/1ureka/nexremote/internal/protocol"
	"github.com/1ureka/nexremote/internal/transport"
	"github.com/1ureka/nexremote/internal/util"
)

// dispatch is the single inbound event sequence of one epoch. It decodes in
// arrival order and publishes while holding the read lock, so nothing from
// a defunct epoch reaches subscribers after Disconnect returns.
func (s *Session) dispatch(epoch uint64, l *link) {
	for {
		select {
		case m := <-l.tr.Inbound():
			switch m.Kind {
			case transport.KindBinary:
				s.handleFrame(epoch, m.Data)
			case transport.KindText:
				s.handleControl(epoch, l, m.Data)
			}

		case <-l.tr.Done():
			s.lost(epoch, l.tr.Err())
			return
		}
	}
}

func (s *Session) handleFrame(epoch uint64, data []byte) {
	f, err := protocol.DecodeFrame(data)
	if err != nil {
		util.Stats.AddDropped()
		util.LogDebug("dropping binary message: %v", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.epoch == epoch {
		s.frames.publish(f)
	}
}

func (s *Session) handleControl(epoch uint64, l *link, data []byte) {
	msg, err := l.codec.DecodeControl(data)
	if err != nil {
		util.LogWarning("dropping undecodable control message: %v", err)
		return
	}
	util.Stats.AddControlRecv()

	switch m := msg.(type) {
	case protocol.Ping:
		// Answer host liveness probes directly.
		go func() {
			if err := s.Send(context.Background(), protocol.Pong{Timestamp: m.Timestamp}); err != nil {
				util.LogDebug("pong not sent: %v", err)
			}
		}()
		return
	case protocol.Unknown:
		util.LogDebug("unknown control message type=%q action=%q", m.Type, m.Action)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.epoch == epoch {
		s.controls.publish(msg)
	}
}

// lost handles a transport that died while connected.
func (s *Session) lost(epoch uint64, reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		return
	}
	s.epoch++
	s.teardownLocked()
	s.states.publish(StateEvent{State: Disconnected, Reason: reason})
	util.LogWarning("connection lost: %v", reason)
}

// current returns the installed link, or ErrNotConnected.
func (s *Session) current() (*link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != Connected || s.link == nil {
		return nil, ErrNotConnected
	}
	return s.link, nil
}

// Send encrypts msg with the session cipher and enqueues it.
func (s *Session) Send(ctx context.Context, msg protocol.Message) error {
	l, err := s.current()
	if err != nil {
		return err
	}
	return send(ctx, l.tr, l.codec, msg)
}

// SendFrame enqueues a binary frame; frames bypass the cipher. The client
// uses it to push its own camera to a host virtual camera.
func (s *Session) SendFrame(ctx context.Context, f protocol.Frame) error {
	l, err := s.current()
	if err != nil {
		return err
	}
	return l.tr.Send(ctx, transport.KindBinary, protocol.EncodeFrame(f))
}

// Ping measures the control round trip with a ping/pong exchange.
func (s *Session) Ping(ctx context.Context) (time.Duration, error) {
	events, cancel := s.SubscribeControl()
	defer cancel()

	start := time.Now()
	stamp := float64(start.UnixNano()) / 1e9
	if err := s.Send(ctx, protocol.Ping{Timestamp: stamp}); err != nil {
		return 0, err
	}

	for {
		select {
		case msg, ok := <-events:
			if !ok {
				return 0, ErrNotConnected
			}
			if pong, isPong := msg.(protocol.Pong); isPong && pong.Timestamp == stamp {
				return time.Since(start), nil
			}
		case <-ctx.Done():
			return 0, fmt.Errorf("ping: %w", ctx.Err())
		}
	}
}
