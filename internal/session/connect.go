package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/1ureka/nexremote/internal/protocol"
	"github.com/1ureka/nexremote/internal/secure"
	"github.com/1ureka/nexremote/internal/transport"
	"github.com/1ureka/nexremote/internal/util"
)

// ConnectAsync runs Connect in the background. The channel receives its
// result and is then closed.
func (s *Session) ConnectAsync(ctx context.Context, p Params) <-chan error {
	out := make(chan error, 1)
	go func() {
		defer close(out)
		out <- s.Connect(ctx, p)
	}()
	return out
}

// Connect establishes the session. Endpoints are tried one after another
// (secure first when preferred); the next attempt starts only after the
// previous one has failed and released its transport. Cancelling ctx or
// calling Disconnect aborts without falling back.
//
// Connect returns nil once Connected, otherwise an error; the state is never
// Connecting when it returns. A rejected pairing code surfaces as *AuthError.
func (s *Session) Connect(ctx context.Context, p Params) error {
	s.mu.Lock()
	switch s.state {
	case Connecting:
		s.mu.Unlock()
		return ErrConnectInFlight
	case Connected:
		s.mu.Unlock()
		return ErrAlreadyConnected
	}
	s.epoch++
	epoch := s.epoch
	actx, cancel := context.WithCancel(ctx)
	s.cancelAttempt = cancel
	s.state = Connecting
	s.states.publish(StateEvent{State: Connecting})
	s.mu.Unlock()
	defer cancel()

	eps := p.endpoints()
	if len(eps) == 0 {
		return s.abandon(epoch, ErrNoEndpoint)
	}

	var errs []error
	for i, ep := range eps {
		util.LogInfo("connecting to %s", ep)
		l, err := s.attempt(actx, ep, p)
		if err == nil {
			return s.install(epoch, l)
		}
		errs = append(errs, err)

		if actx.Err() != nil {
			break
		}
		if i < len(eps)-1 {
			util.LogWarning("%v, falling back to %s", err, eps[i+1])
		}
	}
	return s.abandon(epoch, errors.Join(errs...))
}

// install publishes a finished link unless the attempt was superseded.
func (s *Session) install(epoch uint64, l *link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		l.tr.Close()
		return ErrAborted
	}
	s.cancelAttempt = nil
	s.link = l
	s.state = Connected
	s.states.publish(StateEvent{
		State:      Connected,
		ServerName: l.serverName,
		Secure:     l.endpoint.Secure,
	})

	go s.dispatch(epoch, l)

	util.LogSuccess("connected to %q via %s", l.serverName, l.endpoint)
	return nil
}

// abandon resets a failed attempt. If a Disconnect already did so, the
// error is reported as ErrAborted and no second event is emitted.
func (s *Session) abandon(epoch uint64, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch {
		return fmt.Errorf("%w: %w", ErrAborted, err)
	}
	s.cancelAttempt = nil
	s.state = Disconnected
	s.states.publish(StateEvent{State: Disconnected, Reason: err})

	util.LogError("connect failed: %v", err)
	return err
}

// attempt runs dial, handshake and authentication against one endpoint.
// On failure everything it opened is closed.
func (s *Session) attempt(ctx context.Context, ep transport.Endpoint, p Params) (*link, error) {
	fail := func(stage string, err error) error {
		return &AttemptError{Endpoint: ep, Stage: stage, Err: err}
	}

	dctx, dcancel := context.WithTimeout(ctx, s.opts.ConnectTimeout)
	conn, err := s.opts.Dialer.Dial(dctx, ep)
	dcancel()
	if err != nil {
		if dctx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			err = fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return nil, fail(StageDial, err)
	}

	// The link outlives ctx, which only bounds the attempt.
	tr := transport.New(context.Background(), conn)
	l, stage, err := s.bootstrap(ctx, tr, p)
	if err != nil {
		tr.Close()
		return nil, fail(stage, err)
	}
	l.endpoint = ep
	return l, nil
}

func (s *Session) bootstrap(ctx context.Context, tr *transport.Transport, p Params) (*link, string, error) {
	plain := secure.NewCodec(nil)

	msg, err := await(ctx, tr, plain, s.opts.HandshakeTimeout, protocol.TypeHandshake)
	if err != nil {
		return nil, StageHandshake, err
	}
	hs := msg.(protocol.Handshake)

	if err := send(ctx, tr, plain, protocol.HandshakeAck{}); err != nil {
		return nil, StageHandshake, err
	}

	c, err := secure.NewCipher(hs)
	if err != nil {
		return nil, StageHandshake, err
	}
	codec := secure.NewCodec(c)
	util.LogDebug("session cipher %s installed (host %s)", c.Name(), hs.ServerVersion)

	if _, err := await(ctx, tr, codec, s.opts.HandshakeTimeout, protocol.TypeAuthRequest); err != nil {
		return nil, StageAuth, err
	}

	if err := send(ctx, tr, codec, protocol.AuthResponse{
		PairingCode: p.PairingCode,
		DeviceName:  s.opts.Identity.DeviceName,
		DeviceID:    s.opts.Identity.DeviceID,
	}); err != nil {
		return nil, StageAuth, err
	}

	msg, err = await(ctx, tr, codec, s.opts.AuthTimeout, protocol.TypeAuthSuccess, protocol.TypeAuthFailed)
	if err != nil {
		return nil, StageAuth, err
	}
	if f, ok := msg.(protocol.AuthFailed); ok {
		return nil, StageAuth, &AuthError{Reason: f.Reason}
	}
	success := msg.(protocol.AuthSuccess)

	return &link{
		tr:           tr,
		codec:        codec,
		serverName:   success.ServerName,
		capabilities: success.Capabilities,
	}, "", nil
}

// await reads control messages until one of the wanted types arrives.
// Anything else received during bootstrap is logged and skipped.
func await(ctx context.Context, tr *transport.Transport, codec *secure.Codec, timeout time.Duration, types ...string) (protocol.Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case m := <-tr.Inbound():
			if m.Kind != transport.KindText {
				continue
			}
			msg, err := codec.DecodeControl(m.Data)
			if err != nil {
				return nil, fmt.Errorf("bad message while waiting for %s: %w", types[0], err)
			}
			util.Stats.AddControlRecv()
			for _, t := range types {
				if msg.MessageType() == t {
					return msg, nil
				}
			}
			util.LogDebug("ignoring %s while waiting for %s", msg.MessageType(), types[0])

		case <-timer.C:
			return nil, fmt.Errorf("%w waiting for %s", ErrTimeout, types[0])

		case <-tr.Done():
			return nil, fmt.Errorf("connection lost waiting for %s: %w", types[0], tr.Err())

		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func send(ctx context.Context, tr *transport.Transport, codec *secure.Codec, msg protocol.Message) error {
	data, err := codec.EncodeControl(msg)
	if err != nil {
		return err
	}
	if err := tr.Send(ctx, transport.KindText, data); err != nil {
		return err
	}
	util.Stats.AddControlSent()
	return nil
}
