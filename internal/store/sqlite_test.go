package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/1ureka/nexremote/internal/discovery"
)

func openTemp(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "hosts.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRememberAndRecent(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	desk := discovery.HostRecord{ID: "desk", Name: "Desk", Address: "192.168.1.10", SecurePort: 8765, InsecurePort: 8766, Version: "1.0.0"}
	laptop := discovery.HostRecord{ID: "laptop", Name: "Laptop", Address: "192.168.1.11", SecurePort: 8765, InsecurePort: 8766}

	if err := s.Remember(ctx, desk, true); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(time.Minute)
	if err := s.Remember(ctx, laptop, false); err != nil {
		t.Fatal(err)
	}
	clock = clock.Add(time.Minute)
	desk.Address = "192.168.1.20"
	if err := s.Remember(ctx, desk, false); err != nil {
		t.Fatal(err)
	}

	hosts, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hosts) != 2 {
		t.Fatalf("got %d hosts, want 2", len(hosts))
	}
	got := hosts[0]
	if got.ID != "desk" || got.Address != "192.168.1.20" || got.Connections != 2 || got.Secure {
		t.Fatalf("most recent = %+v", got)
	}
	if !got.FirstSeen.Before(got.LastSeen) {
		t.Fatalf("first seen %v not before last seen %v", got.FirstSeen, got.LastSeen)
	}
	if hosts[1].ID != "laptop" {
		t.Fatalf("second = %s, want laptop", hosts[1].ID)
	}

	limited, err := s.Recent(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 {
		t.Fatalf("limit ignored: %d hosts", len(limited))
	}
}

func TestForget(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_ = s.Remember(ctx, discovery.HostRecord{ID: "a", Address: "10.0.0.1"}, false)
	if err := s.Forget(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Forget(ctx, "missing"); err != nil {
		t.Fatalf("forget unknown id: %v", err)
	}
	hosts, _ := s.Recent(ctx, 0)
	if len(hosts) != 0 {
		t.Fatalf("hosts = %+v", hosts)
	}
}

func TestRememberRejectsEmptyID(t *testing.T) {
	s := openTemp(t)
	if err := s.Remember(context.Background(), discovery.HostRecord{Address: "10.0.0.1"}, false); err == nil {
		t.Fatal("empty id accepted")
	}
}

func TestReopenKeepsHosts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Remember(context.Background(), discovery.HostRecord{ID: "x", Address: "10.0.0.2"}, true)
	s.Close()

	s, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	hosts, _ := s.Recent(context.Background(), 5)
	if len(hosts) != 1 || !hosts[0].Secure {
		t.Fatalf("hosts after reopen = %+v", hosts)
	}
}
