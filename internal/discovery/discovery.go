// Package discovery finds hosts on the local network. The client broadcasts
// one datagram carrying Magic; every host answers with a JSON
// discovery_response naming its ports.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/1ureka/nexremote/internal/util"
)

const (
	DefaultPort    = 37020
	DefaultTimeout = 3 * time.Second
	Magic          = "NEXREMOTE_DISCOVER"
	ResponseType   = "discovery_response"

	maxDatagram = 64 * 1024
)

// HostRecord is one discovered host.
type HostRecord struct {
	ID           string
	Name         string
	Address      string
	SecurePort   int
	InsecurePort int
	Version      string
}

// Options controls a discovery pass. Zero fields take the defaults.
type Options struct {
	Port          int
	Timeout       time.Duration
	BroadcastAddr string
}

func (o Options) withDefaults() Options {
	if o.Port == 0 {
		o.Port = DefaultPort
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.BroadcastAddr == "" {
		o.BroadcastAddr = "255.255.255.255"
	}
	return o
}

// response is the wire form of a host's answer.
type response struct {
	Type         string `json:"type"`
	ID           string `json:"id"`
	Name         string `json:"name"`
	Port         int    `json:"port"`
	PortInsecure int    `json:"port_insecure"`
	Version      string `json:"version"`
}

// Result is the outcome of Scan.
type Result struct {
	Hosts []HostRecord
	Err   error
}

// Scan runs Discover in the background and delivers its result on the
// returned channel, which is closed afterwards.
func Scan(ctx context.Context, opts Options) <-chan Result {
	out := make(chan Result, 1)
	go func() {
		defer close(out)
		hosts, err := Discover(ctx, opts)
		out <- Result{Hosts: hosts, Err: err}
	}()
	return out
}

// Discover sends one broadcast datagram and collects answers until the
// timeout elapses; it never returns early on the first answer and never
// retries. Malformed answers are skipped, and hosts are deduplicated by id
// with the first answer winning. An empty result is not an error; only a
// socket failure or ctx cancellation is.
func Discover(ctx context.Context, opts Options) ([]HostRecord, error) {
	opts = opts.withDefaults()

	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return nil, fmt.Errorf("open discovery socket: %w", err)
	}
	defer conn.Close()

	dst, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(opts.BroadcastAddr, strconv.Itoa(opts.Port)))
	if err != nil {
		return nil, fmt.Errorf("resolve broadcast address: %w", err)
	}

	deadline := time.Now().Add(opts.Timeout)
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	// Unblock ReadFrom on cancellation.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if _, err := conn.WriteTo([]byte(Magic), dst); err != nil {
		return nil, fmt.Errorf("send discovery broadcast: %w", err)
	}
	util.LogDebug("discovery broadcast sent to %s, listening for %s", dst, opts.Timeout)

	var hosts []HostRecord
	seen := make(map[string]struct{})
	buf := make([]byte, maxDatagram)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return hosts, ctx.Err()
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return hosts, nil
			}
			return hosts, fmt.Errorf("read discovery response: %w", err)
		}

		rec, err := parseResponse(buf[:n], from)
		if err != nil {
			util.LogDebug("ignoring discovery datagram from %s: %v", from, err)
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			continue
		}
		seen[rec.ID] = struct{}{}
		hosts = append(hosts, rec)
		util.LogDebug("discovered %q (%s) at %s", rec.Name, util.ShortID(rec.ID), rec.Address)
	}
}

func parseResponse(data []byte, from net.Addr) (HostRecord, error) {
	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		return HostRecord{}, err
	}
	if r.Type != ResponseType {
		return HostRecord{}, fmt.Errorf("unexpected type %q", r.Type)
	}
	if r.ID == "" {
		return HostRecord{}, errors.New("missing id")
	}
	if !validPort(r.Port) || (r.PortInsecure != 0 && !validPort(r.PortInsecure)) {
		return HostRecord{}, fmt.Errorf("invalid ports %d/%d", r.Port, r.PortInsecure)
	}

	addr := from.String()
	if ua, ok := from.(*net.UDPAddr); ok {
		addr = ua.IP.String()
	}
	return HostRecord{
		ID:           r.ID,
		Name:         r.Name,
		Address:      addr,
		SecurePort:   r.Port,
		InsecurePort: r.PortInsecure,
		Version:      r.Version,
	}, nil
}

func validPort(p int) bool { return p > 0 && p <= 65535 }
