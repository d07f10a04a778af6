// Package store keeps the history of hosts this client has connected to.
package store

import (
	"context"
	"time"

	"github.com/1ureka/nexremote/internal/discovery"
)

// Store persists known hosts. Implementations must be safe for concurrent
// use.
type Store interface {
	// Remember records a successful connection to rec, inserting or
	// refreshing its entry.
	Remember(ctx context.Context, rec discovery.HostRecord, secure bool) error
	// Recent returns up to limit hosts, most recently connected first.
	Recent(ctx context.Context, limit int) ([]KnownHost, error)
	// Forget deletes a host; unknown ids are not an error.
	Forget(ctx context.Context, id string) error
	Close() error
}

// KnownHost is a host this client connected to before.
type KnownHost struct {
	discovery.HostRecord
	// Secure reports whether the last connection used the secure port.
	Secure      bool
	FirstSeen   time.Time
	LastSeen    time.Time
	Connections int
}
