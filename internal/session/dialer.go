package session

import (
	"github.com/1ureka/nexremote/internal/config"
	"github.com/1ureka/nexremote/internal/signaling"
	"github.com/1ureka/nexremote/internal/transport"
)

// NewDialer builds the dialer selected by cfg.Session.Transport.
func NewDialer(cfg *config.Config) (transport.Dialer, error) {
	tlsCfg, err := transport.ClientTLSConfig(cfg.TLS.InsecureSkipVerify, cfg.TLS.PinnedSHA256)
	if err != nil {
		return nil, err
	}

	if cfg.Session.Transport == config.TransportWebRTC {
		return &signaling.RTCDialer{
			ICEServers:       cfg.Session.ICEServers,
			HandshakeTimeout: cfg.Session.ConnectTimeout,
			TLSConfig:        tlsCfg,
		}, nil
	}
	return &transport.WSDialer{
		HandshakeTimeout:  cfg.Session.ConnectTimeout,
		MaxMessageSize:    cfg.Session.MaxMessageSize,
		KeepaliveInterval: cfg.Session.KeepaliveInterval,
		TLSConfig:         tlsCfg,
	}, nil
}

// OptionsFromConfig maps cfg onto session Options using dialer d.
func OptionsFromConfig(cfg *config.Config, d transport.Dialer) Options {
	return Options{
		Dialer: d,
		Identity: Identity{
			DeviceID:   cfg.DeviceID,
			DeviceName: cfg.DeviceName,
		},
		ConnectTimeout:   cfg.Session.ConnectTimeout,
		HandshakeTimeout: cfg.Session.HandshakeTimeout,
		AuthTimeout:      cfg.Session.AuthTimeout,
	}
}

// ParamsFromConfig fills the port and preference fields of Params from cfg.
func ParamsFromConfig(cfg *config.Config, host, pairingCode string) Params {
	return Params{
		Host:         host,
		SecurePort:   cfg.Session.SecurePort,
		InsecurePort: cfg.Session.InsecurePort,
		PairingCode:  pairingCode,
		PreferSecure: cfg.Session.PreferSecure,
	}
}
