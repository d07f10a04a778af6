// Package config holds the client configuration and its loader.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Transport selects how the session reaches the host.
type Transport string

const (
	TransportWebSocket Transport = "websocket"
	TransportWebRTC    Transport = "webrtc"
)

// Config stores every tunable of the client. Zero values are replaced by
// Default() when loaded through Load.
type Config struct {
	DeviceID   string `mapstructure:"device_id"`
	DeviceName string `mapstructure:"device_name"`

	Discovery DiscoveryConfig `mapstructure:"discovery"`
	Session   SessionConfig   `mapstructure:"session"`
	TLS       TLSConfig       `mapstructure:"tls"`
	Stream    StreamConfig    `mapstructure:"stream"`
	Log       LogConfig       `mapstructure:"log"`

	// StorePath is the sqlite file keeping known hosts. Empty disables it.
	StorePath string `mapstructure:"store_path"`
}

// DiscoveryConfig controls the LAN broadcast scan.
type DiscoveryConfig struct {
	Port          int           `mapstructure:"port"`
	Timeout       time.Duration `mapstructure:"timeout"`
	BroadcastAddr string        `mapstructure:"broadcast_addr"`
}

// SessionConfig controls connection establishment.
type SessionConfig struct {
	SecurePort        int           `mapstructure:"secure_port"`
	InsecurePort      int           `mapstructure:"insecure_port"`
	PreferSecure      bool          `mapstructure:"prefer_secure"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	HandshakeTimeout  time.Duration `mapstructure:"handshake_timeout"`
	AuthTimeout       time.Duration `mapstructure:"auth_timeout"`
	KeepaliveInterval time.Duration `mapstructure:"keepalive_interval"`
	MaxMessageSize    int64         `mapstructure:"max_message_size"`
	Transport         Transport     `mapstructure:"transport"`
	ICEServers        []string      `mapstructure:"ice_servers"`
}

// TLSConfig controls verification of the host's self-signed certificate.
type TLSConfig struct {
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
	// PinnedSHA256 is the hex SHA-256 of the host leaf certificate (DER).
	PinnedSHA256 string `mapstructure:"pinned_sha256"`
}

// StreamConfig holds the initial stream parameters.
type StreamConfig struct {
	FPS        int    `mapstructure:"fps"`
	Quality    int    `mapstructure:"quality"`
	Resolution string `mapstructure:"resolution"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	Debug      bool   `mapstructure:"debug"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Default returns a Config populated with the host's stock ports and timeouts.
func Default() *Config {
	return &Config{
		Discovery: DiscoveryConfig{
			Port:          37020,
			Timeout:       3 * time.Second,
			BroadcastAddr: "255.255.255.255",
		},
		Session: SessionConfig{
			SecurePort:        8765,
			InsecurePort:      8766,
			PreferSecure:      true,
			ConnectTimeout:    10 * time.Second,
			HandshakeTimeout:  10 * time.Second,
			AuthTimeout:       30 * time.Second,
			KeepaliveInterval: 20 * time.Second,
			MaxMessageSize:    10 << 20,
			Transport:         TransportWebSocket,
			ICEServers: []string{
				"stun:stun.l.google.com:19302",
				"stun:stun1.l.google.com:19302",
			},
		},
		TLS: TLSConfig{InsecureSkipVerify: true},
		Stream: StreamConfig{
			FPS:        30,
			Quality:    50,
			Resolution: "native",
		},
		Log: LogConfig{
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
	}
}

// Load reads configuration from the YAML file at path (optional; an empty
// path or a missing file yields defaults) and NEXREMOTE_* environment
// variables, then fills in the device identity.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	v.SetEnvPrefix("NEXREMOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.EnsureIdentity()
	return cfg, nil
}

// setDefaults registers every leaf of d with viper so env overrides and
// partial files merge onto it.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("device_id", d.DeviceID)
	v.SetDefault("device_name", d.DeviceName)
	v.SetDefault("store_path", d.StorePath)

	v.SetDefault("discovery.port", d.Discovery.Port)
	v.SetDefault("discovery.timeout", d.Discovery.Timeout)
	v.SetDefault("discovery.broadcast_addr", d.Discovery.BroadcastAddr)

	v.SetDefault("session.secure_port", d.Session.SecurePort)
	v.SetDefault("session.insecure_port", d.Session.InsecurePort)
	v.SetDefault("session.prefer_secure", d.Session.PreferSecure)
	v.SetDefault("session.connect_timeout", d.Session.ConnectTimeout)
	v.SetDefault("session.handshake_timeout", d.Session.HandshakeTimeout)
	v.SetDefault("session.auth_timeout", d.Session.AuthTimeout)
	v.SetDefault("session.keepalive_interval", d.Session.KeepaliveInterval)
	v.SetDefault("session.max_message_size", d.Session.MaxMessageSize)
	v.SetDefault("session.transport", string(d.Session.Transport))
	v.SetDefault("session.ice_servers", d.Session.ICEServers)

	v.SetDefault("tls.insecure_skip_verify", d.TLS.InsecureSkipVerify)
	v.SetDefault("tls.pinned_sha256", d.TLS.PinnedSHA256)

	v.SetDefault("stream.fps", d.Stream.FPS)
	v.SetDefault("stream.quality", d.Stream.Quality)
	v.SetDefault("stream.resolution", d.Stream.Resolution)

	v.SetDefault("log.debug", d.Log.Debug)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size_mb", d.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age_days", d.Log.MaxAgeDays)
	v.SetDefault("log.compress", d.Log.Compress)
}

// Validate rejects values the session cannot work with.
func (c *Config) Validate() error {
	for name, port := range map[string]int{
		"discovery.port":        c.Discovery.Port,
		"session.secure_port":   c.Session.SecurePort,
		"session.insecure_port": c.Session.InsecurePort,
	} {
		if port < 1 || port > 65535 {
			return fmt.Errorf("invalid %s %d (must be 1~65535)", name, port)
		}
	}
	if c.Discovery.Timeout <= 0 {
		return errors.New("discovery.timeout must be positive")
	}
	switch c.Session.Transport {
	case TransportWebSocket, TransportWebRTC:
	default:
		return fmt.Errorf("invalid session.transport %q", c.Session.Transport)
	}
	return nil
}

// EnsureIdentity fills a missing device id with a random UUID and a missing
// device name with the hostname.
func (c *Config) EnsureIdentity() {
	if c.DeviceID == "" {
		c.DeviceID = uuid.NewString()
	}
	if c.DeviceName == "" {
		name, err := os.Hostname()
		if err != nil || name == "" {
			name = "nexremote-client"
		}
		c.DeviceName = name
	}
}
