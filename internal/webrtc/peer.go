// Package webrtc provides the DataChannel link used when the host is not on
// the same LAN. Signaling lives in package signaling.
package webrtc

import (
	"github.com/pion/webrtc/v4"
)

// DefaultICEServers are used when no servers are configured. No TURN: hosts
// are expected to be reachable through STUN-assisted hole punching.
var DefaultICEServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// NewPeerConnection creates a PeerConnection using the given STUN/TURN URLs.
func NewPeerConnection(iceServers []string) (*webrtc.PeerConnection, error) {
	if len(iceServers) == 0 {
		iceServers = DefaultICEServers
	}
	config := webrtc.Configuration{
		ICEServers: []webrtc.ICEServer{
			{URLs: iceServers},
		},
	}
	return webrtc.NewPeerConnection(config)
}

// CreateDataChannel creates the pre-negotiated session channel (ID 0), so
// both sides create it independently without relying on OnDataChannel.
// It is ordered: the bootstrap handshake and stream start/stop commands
// depend on arrival order.
func CreateDataChannel(pc *webrtc.PeerConnection) (*webrtc.DataChannel, error) {
	ordered := true
	negotiated := true
	id := uint16(0)

	return pc.CreateDataChannel("nexremote", &webrtc.DataChannelInit{
		Ordered:    &ordered,
		Negotiated: &negotiated,
		ID:         &id,
	})
}
