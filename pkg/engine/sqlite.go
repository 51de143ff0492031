package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/vango-dev/nanostore/pkg/events"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS kv (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS kv_changes (
	seq     INTEGER PRIMARY KEY AUTOINCREMENT,
	key     TEXT NOT NULL,
	value   TEXT,
	deleted INTEGER NOT NULL DEFAULT 0,
	origin  TEXT NOT NULL
);
`

// SQLite is an Engine backed by a SQLite database.
//
// Besides the kv table every write appends a row to kv_changes tagged with
// the engine's origin. Processes sharing the database poll that log to learn
// about each other's writes; rows carrying their own origin are skipped, so
// a context never notifies itself.
type SQLite struct {
	db     *sql.DB
	origin string
	logger *slog.Logger
}

// SQLiteOption configures OpenSQLite.
type SQLiteOption func(*SQLite)

// WithOrigin sets the origin tag written to the change log.
// Default: a random UUID.
func WithOrigin(origin string) SQLiteOption {
	return func(s *SQLite) {
		s.origin = origin
	}
}

// WithSQLiteLogger sets the logger used by the poller.
func WithSQLiteLogger(l *slog.Logger) SQLiteOption {
	return func(s *SQLite) {
		s.logger = l
	}
}

// OpenSQLite creates or opens the database at path and applies the schema.
// This function is idempotent.
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, storageError("open", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, storageError("open", path, err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, storageError("open", path, fmt.Errorf("failed to execute %q: %w", pragma, err))
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, storageError("open", path, fmt.Errorf("failed to apply schema: %w", err))
	}

	s := &SQLite{
		db:     db,
		origin: uuid.NewString(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Origin returns the tag this engine writes to the change log.
func (s *SQLite) Origin() string {
	return s.origin
}

// Close closes the database.
func (s *SQLite) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get implements Engine.
func (s *SQLite) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, storageError("get", key, err)
	}
	return value, true, nil
}

// Set implements Engine.
func (s *SQLite) Set(key, value string) error {
	return s.write(key, func(tx *sql.Tx) (bool, error) {
		var old string
		err := tx.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&old)
		if err == nil && old == value {
			return false, nil
		}
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return false, err
		}
		_, err = tx.Exec(
			"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			key, value)
		if err != nil {
			return false, err
		}
		_, err = tx.Exec("INSERT INTO kv_changes (key, value, deleted, origin) VALUES (?, ?, 0, ?)",
			key, value, s.origin)
		return true, err
	})
}

// Delete implements Engine.
func (s *SQLite) Delete(key string) error {
	return s.write(key, func(tx *sql.Tx) (bool, error) {
		res, err := tx.Exec("DELETE FROM kv WHERE key = ?", key)
		if err != nil {
			return false, err
		}
		n, err := res.RowsAffected()
		if err != nil || n == 0 {
			return false, err
		}
		_, err = tx.Exec("INSERT INTO kv_changes (key, value, deleted, origin) VALUES (?, NULL, 1, ?)",
			key, s.origin)
		return true, err
	})
}

func (s *SQLite) write(key string, fn func(tx *sql.Tx) (bool, error)) error {
	tx, err := s.db.Begin()
	if err != nil {
		return storageError("write", key, err)
	}
	changed, err := fn(tx)
	if err != nil {
		tx.Rollback()
		return storageError("write", key, err)
	}
	if !changed {
		return tx.Rollback()
	}
	if err := tx.Commit(); err != nil {
		return storageError("commit", key, err)
	}
	return nil
}

// Keys implements Engine.
func (s *SQLite) Keys() ([]string, error) {
	rows, err := s.db.Query("SELECT key FROM kv")
	if err != nil {
		return nil, storageError("keys", "", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, storageError("keys", "", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("keys", "", err)
	}
	return keys, nil
}

// LastSeq returns the sequence number of the newest change-log row.
func (s *SQLite) LastSeq() (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(seq) FROM kv_changes").Scan(&seq); err != nil {
		return 0, storageError("changes", "", err)
	}
	return seq.Int64, nil
}

// Changes returns change-log rows after seq written by other origins, as
// events, together with the sequence number to resume from.
func (s *SQLite) Changes(seq int64) ([]events.Event, int64, error) {
	rows, err := s.db.Query(
		"SELECT seq, key, value, deleted, origin FROM kv_changes WHERE seq > ? ORDER BY seq", seq)
	if err != nil {
		return nil, seq, storageError("changes", "", err)
	}
	defer rows.Close()

	var out []events.Event
	next := seq
	for rows.Next() {
		var (
			rowSeq  int64
			key     string
			value   sql.NullString
			deleted bool
			origin  string
		)
		if err := rows.Scan(&rowSeq, &key, &value, &deleted, &origin); err != nil {
			return nil, seq, storageError("changes", "", err)
		}
		next = rowSeq
		if origin == s.origin {
			continue
		}
		out = append(out, events.Event{
			Key:     key,
			Value:   value.String,
			Deleted: deleted,
			Origin:  origin,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, seq, storageError("changes", "", err)
	}
	return out, next, nil
}

// Poll watches the change log and hands every change made by another
// origin to sink, until ctx is cancelled. Only changes made after Poll
// starts are reported. Sink errors are logged and do not stop polling.
func (s *SQLite) Poll(ctx context.Context, interval time.Duration, sink func(events.Event) error) error {
	seq, err := s.LastSeq()
	if err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			evs, next, err := s.Changes(seq)
			if err != nil {
				s.logger.Error("sqlite change poll failed", "error", err)
				continue
			}
			seq = next
			for _, ev := range evs {
				if err := sink(ev); err != nil {
					s.logger.Warn("change listener failed", "key", ev.Key, "error", err)
				}
			}
		}
	}
}

// String implements fmt.Stringer.
func (s *SQLite) String() string {
	return fmt.Sprintf("sqlite(origin=%s)", s.origin)
}
