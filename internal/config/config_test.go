package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Discovery.Port != 37020 || cfg.Session.SecurePort != 8765 || cfg.Session.InsecurePort != 8766 {
		t.Fatalf("ports = %d/%d/%d", cfg.Discovery.Port, cfg.Session.SecurePort, cfg.Session.InsecurePort)
	}
	if cfg.Session.Transport != TransportWebSocket {
		t.Fatalf("transport = %q", cfg.Session.Transport)
	}
	if cfg.DeviceID == "" || cfg.DeviceName == "" {
		t.Fatalf("identity not filled: %+v", cfg)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nexremote.yaml")
	yaml := `
device_id: phone-1
session:
  insecure_port: 9000
  handshake_timeout: 3s
stream:
  fps: 15
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NEXREMOTE_STREAM_QUALITY", "80")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DeviceID != "phone-1" {
		t.Errorf("device_id = %q", cfg.DeviceID)
	}
	if cfg.Session.InsecurePort != 9000 || cfg.Session.SecurePort != 8765 {
		t.Errorf("ports = %d/%d", cfg.Session.SecurePort, cfg.Session.InsecurePort)
	}
	if cfg.Session.HandshakeTimeout != 3*time.Second {
		t.Errorf("handshake_timeout = %v", cfg.Session.HandshakeTimeout)
	}
	if cfg.Stream.FPS != 15 || cfg.Stream.Quality != 80 {
		t.Errorf("stream = %+v", cfg.Stream)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("missing file should yield defaults, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"port zero", func(c *Config) { c.Session.SecurePort = 0 }, false},
		{"port too large", func(c *Config) { c.Discovery.Port = 70000 }, false},
		{"no discovery window", func(c *Config) { c.Discovery.Timeout = 0 }, false},
		{"unknown transport", func(c *Config) { c.Session.Transport = "carrier-pigeon" }, false},
		{"webrtc", func(c *Config) { c.Session.Transport = TransportWebRTC }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err == nil) != tt.ok {
				t.Fatalf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}
