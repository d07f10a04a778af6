package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/1ureka/nexremote/internal/util"
)

// Responder answers discovery broadcasts on behalf of a host.
type Responder struct {
	conn  net.PacketConn
	reply []byte
}

// NewResponder listens on addr (":37020" for a real host) and answers with
// rec. rec.Address is ignored; clients take it from the datagram source.
func NewResponder(addr string, rec HostRecord) (*Responder, error) {
	reply, err := json.Marshal(response{
		Type:         ResponseType,
		ID:           rec.ID,
		Name:         rec.Name,
		Port:         rec.SecurePort,
		PortInsecure: rec.InsecurePort,
		Version:      rec.Version,
	})
	if err != nil {
		return nil, err
	}

	conn, err := net.ListenPacket("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for discovery: %w", err)
	}
	return &Responder{conn: conn, reply: reply}, nil
}

// Addr returns the bound address.
func (r *Responder) Addr() net.Addr { return r.conn.LocalAddr() }

// Serve answers requests until ctx is done or the responder is closed.
func (r *Responder) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() { r.conn.Close() })
	defer stop()

	buf := make([]byte, 512)
	for {
		n, from, err := r.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		if !bytes.HasPrefix(bytes.TrimSpace(buf[:n]), []byte(Magic)) {
			continue
		}
		if _, err := r.conn.WriteTo(r.reply, from); err != nil {
			util.LogWarning("discovery reply to %s failed: %v", from, err)
			continue
		}
		util.LogDebug("answered discovery request from %s", from)
	}
}

func (r *Responder) Close() error { return r.conn.Close() }
