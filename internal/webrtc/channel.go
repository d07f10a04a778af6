package webrtc

import (
	"errors"
	"io"
	"sync"

	"github.com/pion/webrtc/v4"

	"github.com/1ureka/nexremote/internal/transport"
	"github.com/1ureka/nexremote/internal/util"
)

const (
	HighWaterMark = 256 * 1024 // pause sending when bufferedAmount exceeds this
	LowWaterMark  = 64 * 1024  // resume sending when bufferedAmount drops below this

	inboxSize = 256
)

// Conn implements transport.Conn on a PeerConnection + DataChannel pair.
// String messages are text, everything else binary.
type Conn struct {
	pc *webrtc.PeerConnection
	dc *webrtc.DataChannel

	inbox     chan transport.Message
	open      chan struct{}
	done      chan struct{}
	sendReady chan struct{}

	openOnce  sync.Once
	closeOnce sync.Once
}

// NewConn creates a PeerConnection and its session DataChannel. The caller
// performs signaling through the SDP/ICE methods and waits on Ready.
func NewConn(iceServers []string) (*Conn, error) {
	pc, err := NewPeerConnection(iceServers)
	if err != nil {
		return nil, err
	}

	dc, err := CreateDataChannel(pc)
	if err != nil {
		pc.Close()
		return nil, err
	}

	c := &Conn{
		pc:        pc,
		dc:        dc,
		inbox:     make(chan transport.Message, inboxSize),
		open:      make(chan struct{}),
		done:      make(chan struct{}),
		sendReady: make(chan struct{}, 1),
	}

	dc.SetBufferedAmountLowThreshold(uint64(LowWaterMark))
	dc.OnBufferedAmountLow(func() {
		select {
		case c.sendReady <- struct{}{}:
		default:
		}
	})

	dc.OnOpen(func() {
		c.openOnce.Do(func() { close(c.open) })
	})

	dc.OnClose(func() {
		util.LogDebug("DataChannel closed")
		c.Close()
	})

	// Blocking here stalls pion's SCTP reader, which is the backpressure
	// path towards the host.
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		kind := transport.KindBinary
		if msg.IsString {
			kind = transport.KindText
		}
		select {
		case c.inbox <- transport.Message{Kind: kind, Data: msg.Data}:
		case <-c.done:
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		util.LogDebug("PeerConnection state: %s", state.String())
		if state == webrtc.PeerConnectionStateFailed {
			c.Close()
		}
	})

	return c, nil
}

// ---------------------------------------------------------------------------
// Lifecycle
// ---------------------------------------------------------------------------

// Ready is closed when the DataChannel is open.
func (c *Conn) Ready() <-chan struct{} { return c.open }

// Done is closed once the Conn is closed locally or by the peer.
func (c *Conn) Done() <-chan struct{} { return c.done }

// Close shuts down the DataChannel and PeerConnection.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = errors.Join(c.dc.Close(), c.pc.Close())
	})
	return err
}

// ---------------------------------------------------------------------------
// Signaling
// ---------------------------------------------------------------------------

func (c *Conn) CreateOffer() (webrtc.SessionDescription, error) {
	return c.pc.CreateOffer(nil)
}

func (c *Conn) CreateAnswer() (webrtc.SessionDescription, error) {
	return c.pc.CreateAnswer(nil)
}

func (c *Conn) SetLocalDescription(sdp webrtc.SessionDescription) error {
	return c.pc.SetLocalDescription(sdp)
}

func (c *Conn) SetRemoteDescription(sdp webrtc.SessionDescription) error {
	return c.pc.SetRemoteDescription(sdp)
}

// OnICECandidate registers a callback invoked whenever a new local ICE
// candidate is gathered. A nil candidate signals the end of gathering.
func (c *Conn) OnICECandidate(fn func(*webrtc.ICECandidate)) {
	c.pc.OnICECandidate(fn)
}

func (c *Conn) AddICECandidate(candidate webrtc.ICECandidateInit) error {
	return c.pc.AddICECandidate(candidate)
}

// ---------------------------------------------------------------------------
// Data
// ---------------------------------------------------------------------------

// ReadMessage implements transport.Conn.
func (c *Conn) ReadMessage() (transport.Kind, []byte, error) {
	select {
	case m := <-c.inbox:
		return m.Kind, m.Data, nil
	case <-c.done:
		return 0, nil, io.EOF
	}
}

// WriteMessage implements transport.Conn. It blocks while the channel's
// buffered amount is above the high water mark.
func (c *Conn) WriteMessage(kind transport.Kind, data []byte) error {
	select {
	case <-c.open:
	case <-c.done:
		return transport.ErrClosed
	}

	if c.dc.BufferedAmount() > uint64(HighWaterMark) {
		select {
		case <-c.sendReady:
		case <-c.done:
			return transport.ErrClosed
		}
	}

	if kind == transport.KindText {
		return c.dc.SendText(string(data))
	}
	return c.dc.Send(data)
}

var _ transport.Conn = (*Conn)(nil)
