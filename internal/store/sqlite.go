package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/1ureka/nexremote/internal/discovery"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS known_hosts (
		id            TEXT PRIMARY KEY,
		name          TEXT NOT NULL DEFAULT '',
		address       TEXT NOT NULL,
		secure_port   INTEGER NOT NULL DEFAULT 0,
		insecure_port INTEGER NOT NULL DEFAULT 0,
		version       TEXT NOT NULL DEFAULT '',
		secure        INTEGER NOT NULL DEFAULT 0,
		first_seen    TEXT NOT NULL,
		last_seen     TEXT NOT NULL,
		connections   INTEGER NOT NULL DEFAULT 1
	)`,
	`CREATE INDEX IF NOT EXISTS known_hosts_last_seen ON known_hosts (last_seen DESC)`,
}

// SQLiteStore implements Store on a SQLite file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database at path and migrates it.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, now: time.Now}
	for _, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			db.Close() //nolint:errcheck
			return nil, fmt.Errorf("migrate store: %w", err)
		}
	}
	return s, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Remember(ctx context.Context, rec discovery.HostRecord, secure bool) error {
	if rec.ID == "" {
		return fmt.Errorf("remember host %q: empty id", rec.Address)
	}
	now := s.now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO known_hosts (id, name, address, secure_port, insecure_port, version, secure, first_seen, last_seen)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			address = excluded.address,
			secure_port = excluded.secure_port,
			insecure_port = excluded.insecure_port,
			version = excluded.version,
			secure = excluded.secure,
			last_seen = excluded.last_seen,
			connections = known_hosts.connections + 1`,
		rec.ID, rec.Name, rec.Address, rec.SecurePort, rec.InsecurePort, rec.Version, secure, now, now)
	if err != nil {
		return fmt.Errorf("remember host %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]KnownHost, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, address, secure_port, insecure_port, version, secure, first_seen, last_seen, connections
		 FROM known_hosts ORDER BY last_seen DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list known hosts: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var hosts []KnownHost
	for rows.Next() {
		var (
			h           KnownHost
			first, last string
		)
		if err := rows.Scan(&h.ID, &h.Name, &h.Address, &h.SecurePort, &h.InsecurePort, &h.Version,
			&h.Secure, &first, &last, &h.Connections); err != nil {
			return nil, err
		}
		h.FirstSeen, _ = time.Parse(time.RFC3339Nano, first)
		h.LastSeen, _ = time.Parse(time.RFC3339Nano, last)
		hosts = append(hosts, h)
	}
	return hosts, rows.Err()
}

func (s *SQLiteStore) Forget(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM known_hosts WHERE id = ?`, id)
	return err
}
