// Package store persists conversation threads: an append-only log of turns
// per thread_id plus durable title/pin overrides layered on top.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// schema defines the three logical tables, all keyed by thread_id.
// turns is the append-only conversation log; chat_titles and chat_pins hold
// user-assigned overrides and follow the lifecycle of the thread.
const schema = `
CREATE TABLE IF NOT EXISTS turns (
    thread_id  TEXT NOT NULL,
    seq        INTEGER NOT NULL,
    role       TEXT NOT NULL,
    content    TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (thread_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_turns_activity ON turns(thread_id, created_at);

CREATE TABLE IF NOT EXISTS chat_titles (
    thread_id  TEXT PRIMARY KEY,
    title      TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS chat_pins (
    thread_id TEXT PRIMARY KEY,
    pinned    INTEGER NOT NULL DEFAULT 0
);
`

// SQLiteStore is the durable Storer backed by SQLite.
type SQLiteStore struct {
	db    *sql.DB
	locks *lockTable
	now   func() int64
}

// NewSQLiteStore opens (or creates) the database at path and applies the
// schema. Use ":memory:" for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, storageErr("open database", err)
	}
	// One connection: SQLite serializes writes anyway, and with ":memory:"
	// every pooled connection would otherwise see its own empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, storageErr("create schema", err)
	}
	return &SQLiteStore{
		db:    db,
		locks: newLockTable(),
		now:   func() int64 { return time.Now().UnixMilli() },
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AppendTurn appends a fully-formed turn to the thread's log, materializing
// the thread on first append. Seq and CreatedAt are assigned here.
func (s *SQLiteStore) AppendTurn(threadID, role, content string) (Turn, error) {
	if !validRole(role) {
		return Turn{}, fmt.Errorf("append turn: unknown role %q", role)
	}
	lk := s.locks.get(threadID)
	lk.Lock()
	defer lk.Unlock()

	var next int
	err := s.db.QueryRow(
		`SELECT COALESCE(MAX(seq), -1) + 1 FROM turns WHERE thread_id = ?`, threadID,
	).Scan(&next)
	if err != nil {
		return Turn{}, storageErr("append turn", err)
	}

	t := Turn{Seq: next, Role: role, Content: content, CreatedAt: s.now()}
	_, err = s.db.Exec(
		`INSERT INTO turns (thread_id, seq, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		threadID, t.Seq, t.Role, t.Content, t.CreatedAt,
	)
	if err != nil {
		return Turn{}, storageErr("append turn", err)
	}
	return t, nil
}

// ReadThread returns all turns in insertion order. An unknown thread_id
// yields an empty slice, not an error.
func (s *SQLiteStore) ReadThread(threadID string) ([]Turn, error) {
	rows, err := s.db.Query(
		`SELECT seq, role, content, created_at FROM turns WHERE thread_id = ? ORDER BY seq`,
		threadID,
	)
	if err != nil {
		return nil, storageErr("read thread", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.Seq, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, storageErr("read thread", err)
		}
		if err := checkTurn(threadID, t); err != nil {
			return nil, err
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("read thread", err)
	}
	return turns, nil
}

// ListThreads enumerates every thread with at least one stored turn, with its
// latest activity timestamp and the content of its first user turn.
func (s *SQLiteStore) ListThreads() ([]ThreadInfo, error) {
	rows, err := s.db.Query(
		`SELECT thread_id, MAX(created_at) FROM turns GROUP BY thread_id`,
	)
	if err != nil {
		return nil, storageErr("list threads", err)
	}
	defer rows.Close()

	var infos []ThreadInfo
	for rows.Next() {
		var info ThreadInfo
		if err := rows.Scan(&info.ThreadID, &info.LastActive); err != nil {
			return nil, storageErr("list threads", err)
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list threads", err)
	}

	for i := range infos {
		err := s.db.QueryRow(
			`SELECT content FROM turns WHERE thread_id = ? AND role = ? ORDER BY seq LIMIT 1`,
			infos[i].ThreadID, RoleUser,
		).Scan(&infos[i].FirstUser)
		if err != nil && err != sql.ErrNoRows {
			return nil, storageErr("list threads", err)
		}
	}
	return infos, nil
}

// DeleteThread removes the thread's turns and both overrides in one
// transaction, so the caller never observes partial deletion. Deleting an
// absent thread is a no-op.
func (s *SQLiteStore) DeleteThread(threadID string) error {
	lk := s.locks.get(threadID)
	lk.Lock()
	defer lk.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return storageErr("delete thread", err)
	}
	for _, q := range []string{
		`DELETE FROM turns WHERE thread_id = ?`,
		`DELETE FROM chat_titles WHERE thread_id = ?`,
		`DELETE FROM chat_pins WHERE thread_id = ?`,
	} {
		if _, err := tx.Exec(q, threadID); err != nil {
			_ = tx.Rollback()
			return storageErr("delete thread", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return storageErr("delete thread", err)
	}
	s.locks.drop(threadID)
	return nil
}

// SetTitle upserts the user-assigned title override. Last write wins.
func (s *SQLiteStore) SetTitle(threadID, title string) error {
	_, err := s.db.Exec(`
		INSERT INTO chat_titles (thread_id, title, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			title = excluded.title,
			updated_at = excluded.updated_at
	`, threadID, title, s.now())
	return storageErr("set title", err)
}

// SetPinned upserts the pin override. Last write wins.
func (s *SQLiteStore) SetPinned(threadID string, pinned bool) error {
	_, err := s.db.Exec(`
		INSERT INTO chat_pins (thread_id, pinned) VALUES (?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET pinned = excluded.pinned
	`, threadID, boolToInt(pinned))
	return storageErr("set pinned", err)
}

// Overrides returns the user-assigned title/pin state for a thread; fields
// are nil when never set.
func (s *SQLiteStore) Overrides(threadID string) (Overrides, error) {
	var out Overrides

	var title string
	err := s.db.QueryRow(`SELECT title FROM chat_titles WHERE thread_id = ?`, threadID).Scan(&title)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return Overrides{}, storageErr("get overrides", err)
	default:
		out.Title = &title
	}

	var pinned int
	err = s.db.QueryRow(`SELECT pinned FROM chat_pins WHERE thread_id = ?`, threadID).Scan(&pinned)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return Overrides{}, storageErr("get overrides", err)
	default:
		b := pinned != 0
		out.Pinned = &b
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Compile-time interface check
var _ Storer = (*SQLiteStore)(nil)
