package prefs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

// keys for scalar ui preferences
const (
	KeySidebarCollapsed = "sidebar_collapsed"
	KeyLastDetailTab    = "last_detail_tab"
)

// RecentConnectionLimit bounds the recent-connections list. Older entries are
// pruned on insert.
const RecentConnectionLimit = 10

type RecentConnection struct {
	Id         string
	Url        string
	Mode       string
	Label      string
	LastUsedAt time.Time
}

// Store persists ui preferences and the recent-connections list across
// sessions. All access goes through a single sqlite connection.
type Store struct {
	db *sql.DB
}

func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create prefs dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	store := &Store{db: db}
	if err := store.applySchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (self *Store) Close() error {
	if self == nil || self.db == nil {
		return nil
	}
	return self.db.Close()
}

func (self *Store) applySchema(ctx context.Context) error {
	_, err := self.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS prefs (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS recent_connections (
	connection_id TEXT PRIMARY KEY,
	url TEXT NOT NULL UNIQUE,
	mode TEXT NOT NULL,
	label TEXT NOT NULL DEFAULT '',
	last_used_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS recent_connections_last_used_at
ON recent_connections(last_used_at DESC);
`)
	if err != nil {
		return fmt.Errorf("apply prefs schema: %w", err)
	}
	return nil
}

func (self *Store) Get(ctx context.Context, key string) (string, error) {
	row := self.db.QueryRowContext(ctx, `SELECT value FROM prefs WHERE key = ?`, key)
	var value string
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get pref: %w", err)
	}
	return value, nil
}

func (self *Store) Set(ctx context.Context, key string, value string) error {
	_, err := self.db.ExecContext(ctx, `
INSERT INTO prefs(key, value)
VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET
	value=excluded.value
`, key, value)
	if err != nil {
		return fmt.Errorf("set pref: %w", err)
	}
	return nil
}

// SidebarCollapsed returns the stored preference, defaulting to false when
// never set.
func (self *Store) SidebarCollapsed(ctx context.Context) (bool, error) {
	value, err := self.Get(ctx, KeySidebarCollapsed)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	collapsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", KeySidebarCollapsed, err)
	}
	return collapsed, nil
}

func (self *Store) SetSidebarCollapsed(ctx context.Context, collapsed bool) error {
	return self.Set(ctx, KeySidebarCollapsed, strconv.FormatBool(collapsed))
}

func (self *Store) LastDetailTab(ctx context.Context) (string, error) {
	value, err := self.Get(ctx, KeyLastDetailTab)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return value, err
}

func (self *Store) SetLastDetailTab(ctx context.Context, tab string) error {
	return self.Set(ctx, KeyLastDetailTab, tab)
}

// TouchRecentConnection records a connect target as most recently used,
// inserting it if new and pruning the list to `RecentConnectionLimit`.
func (self *Store) TouchRecentConnection(ctx context.Context, url string, mode string, label string) error {
	if url == "" {
		return errors.New("url is required")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	tx, err := self.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin recent connection tx: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO recent_connections(connection_id, url, mode, label, last_used_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(url) DO UPDATE SET
	mode=excluded.mode,
	label=CASE WHEN excluded.label != '' THEN excluded.label ELSE recent_connections.label END,
	last_used_at=excluded.last_used_at
`, uuid.NewString(), url, mode, label, now)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("touch recent connection: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
DELETE FROM recent_connections
WHERE connection_id NOT IN (
	SELECT connection_id FROM recent_connections
	ORDER BY last_used_at DESC
	LIMIT ?
)
`, RecentConnectionLimit)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prune recent connections: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit recent connection tx: %w", err)
	}
	return nil
}

// RecentConnections lists targets most-recent-first.
func (self *Store) RecentConnections(ctx context.Context) ([]*RecentConnection, error) {
	rows, err := self.db.QueryContext(ctx, `
SELECT connection_id, url, mode, label, last_used_at
FROM recent_connections
ORDER BY last_used_at DESC, url ASC
`)
	if err != nil {
		return nil, fmt.Errorf("list recent connections: %w", err)
	}
	defer rows.Close()

	out := []*RecentConnection{}
	for rows.Next() {
		connection := &RecentConnection{}
		var lastUsedAt string
		if err := rows.Scan(&connection.Id, &connection.Url, &connection.Mode, &connection.Label, &lastUsedAt); err != nil {
			return nil, fmt.Errorf("scan recent connection: %w", err)
		}
		connection.LastUsedAt, err = time.Parse(time.RFC3339Nano, lastUsedAt)
		if err != nil {
			return nil, fmt.Errorf("parse last_used_at: %w", err)
		}
		out = append(out, connection)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iter recent connections: %w", err)
	}
	return out, nil
}
