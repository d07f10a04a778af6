package host

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/1ureka/nexremote/internal/protocol"
	"github.com/1ureka/nexremote/internal/secure"
	"github.com/1ureka/nexremote/internal/transport"
	"github.com/1ureka/nexremote/internal/util"
)

var errAuth = errors.New("authentication failed")

// client is one connection as seen by the host.
type client struct {
	host  *Host
	tr    *transport.Transport
	codec *secure.Codec

	mu      sync.Mutex
	pushers map[streamKey]*pusher
	media   protocol.MediaInfo
}

// bootstrap runs handshake and pairing. It returns the session codec.
func (c *client) bootstrap(ctx context.Context) (*secure.Codec, error) {
	plain := secure.NewCodec(nil)

	hs, codec, err := c.host.newCodec()
	if err != nil {
		return nil, err
	}
	if err := c.send(ctx, plain, hs); err != nil {
		return nil, err
	}
	if _, err := c.await(ctx, plain, c.host.opts.HandshakeTimeout, protocol.TypeHandshakeAck); err != nil {
		return nil, err
	}

	if err := c.send(ctx, codec, protocol.AuthRequest{PairingRequired: true}); err != nil {
		return nil, err
	}
	msg, err := c.await(ctx, codec, c.host.opts.AuthTimeout, protocol.TypeAuthResponse)
	if err != nil {
		return nil, err
	}
	resp := msg.(protocol.AuthResponse)

	if subtle.ConstantTimeCompare([]byte(resp.PairingCode), []byte(c.host.opts.PairingCode)) != 1 {
		_ = c.send(ctx, codec, protocol.AuthFailed{Reason: reasonBadCode})
		// Let the writer flush the rejection before the deferred close.
		time.Sleep(50 * time.Millisecond)
		return nil, fmt.Errorf("%w: %q (%s)", errAuth, resp.DeviceName, reasonBadCode)
	}

	if err := c.send(ctx, codec, protocol.AuthSuccess{
		ServerName: c.host.opts.Name,
		Capabilities: map[string]bool{
			"screen_share":  true,
			"camera":        len(c.host.opts.Cameras) > 0,
			"file_explorer": true,
			"task_manager":  true,
			"media_control": true,
			"clipboard":     true,
		},
	}); err != nil {
		return nil, err
	}

	util.LogSuccess("client %q (%s) paired", resp.DeviceName, util.ShortID(resp.DeviceID))
	return codec, nil
}

// await reads client messages until one of type typ arrives.
func (c *client) await(ctx context.Context, codec *secure.Codec, timeout time.Duration, typ string) (protocol.Message, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case m := <-c.tr.Inbound():
			if m.Kind != transport.KindText {
				continue
			}
			msg, err := protocol.UnmarshalCommand(codec.Open(m.Data))
			if err != nil {
				return nil, err
			}
			if msg.MessageType() == typ {
				return msg, nil
			}
		case <-timer.C:
			return nil, fmt.Errorf("timed out waiting for %s", typ)
		case <-c.tr.Done():
			return nil, c.tr.Err()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (c *client) send(ctx context.Context, codec *secure.Codec, msg protocol.Message) error {
	data, err := codec.EncodeControl(msg)
	if err != nil {
		return err
	}
	return c.tr.Send(ctx, transport.KindText, data)
}

func (c *client) reply(ctx context.Context, msg protocol.Message) {
	if err := c.send(ctx, c.codec, msg); err != nil {
		util.LogDebug("reply %s not sent: %v", msg.MessageType(), err)
	}
}

// serve handles commands until the connection ends.
func (c *client) serve(ctx context.Context) {
	defer c.stopAll()

	for {
		select {
		case m := <-c.tr.Inbound():
			if m.Kind == transport.KindBinary {
				if _, err := protocol.DecodeFrame(m.Data); err == nil {
					c.host.uplink.Add(1)
				}
				continue
			}
			msg, err := protocol.UnmarshalCommand(c.codec.Open(m.Data))
			if err != nil {
				util.LogWarning("bad command: %v", err)
				continue
			}
			c.handle(ctx, msg)

		case <-c.tr.Done():
			util.LogInfo("client left: %v", c.tr.Err())
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *client) handle(ctx context.Context, msg protocol.Message) {
	switch m := msg.(type) {
	case protocol.Ping:
		c.reply(ctx, protocol.Pong{Timestamp: m.Timestamp})
	case protocol.Pong:
	case protocol.StreamCommand:
		c.handleStream(ctx, m)
	case protocol.MediaControl:
		c.handleMedia(ctx, m)
	case protocol.FileExplorer:
		c.handleFiles(ctx, m)
	case protocol.TaskManager:
		c.handleTasks(ctx, m)
	case protocol.Keyboard, protocol.Mouse, protocol.Gamepad, protocol.Sensor, protocol.Clipboard:
		util.LogDebug("input %s %+v", msg.MessageType(), msg)
	default:
		util.LogDebug("unhandled %s", msg.MessageType())
	}
}
