// Package archive keeps a durable trail of ended sessions in SQLite.
//
// The session manager hands a Record to Save at eviction time; nothing
// on the hot path ever reads the archive back. Recent, Get and Stats
// serve the history surface. All failures carry the persistence fault
// kind, except Get on an unknown id which is a reference fault.
package archive

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/aletheia-dev/noema/internal/fault"
	"github.com/aletheia-dev/noema/internal/session"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// ─── Types ───────────────────────────────────────────────────────────────────

// Entry is one archived session run. A session id may appear more than
// once when the id is reused after an explicit end.
type Entry struct {
	SessionID string        `json:"session_id"`
	CreatedAt time.Time     `json:"created_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Reason    string        `json:"reason"`
	Artifacts int           `json:"artifacts"`
	Stats     session.Stats `json:"stats"`
}

// Stats summarizes the whole archive.
type Stats struct {
	Sessions  int            `json:"sessions"`
	Artifacts int            `json:"artifacts"`
	ByReason  map[string]int `json:"by_reason,omitempty"`
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds archive configuration.
type Config struct {
	DataDir string
}

// DefaultConfig returns the default configuration for the archive.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{DataDir: filepath.Join(home, ".noema")}
}

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the session archive backed by SQLite.
type Store struct {
	db    *sql.DB
	hooks storeHooks
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type queryer interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

type sqlRowScanner struct {
	rows *sql.Rows
}

func (r sqlRowScanner) Next() bool             { return r.rows.Next() }
func (r sqlRowScanner) Scan(dest ...any) error { return r.rows.Scan(dest...) }
func (r sqlRowScanner) Err() error             { return r.rows.Err() }
func (r sqlRowScanner) Close() error           { return r.rows.Close() }

type storeHooks struct {
	exec    func(db execer, query string, args ...any) (sql.Result, error)
	queryIt func(db queryer, query string, args ...any) (rowScanner, error)
}

func defaultStoreHooks() storeHooks {
	return storeHooks{
		exec: func(db execer, query string, args ...any) (sql.Result, error) {
			return db.Exec(query, args...)
		},
		queryIt: func(db queryer, query string, args ...any) (rowScanner, error) {
			rows, err := db.Query(query, args...)
			if err != nil {
				return nil, err
			}
			return sqlRowScanner{rows: rows}, nil
		},
	}
}

func (s *Store) execHook(db execer, query string, args ...any) (sql.Result, error) {
	if s.hooks.exec != nil {
		return s.hooks.exec(db, query, args...)
	}
	return db.Exec(query, args...)
}

func (s *Store) queryItHook(db queryer, query string, args ...any) (rowScanner, error) {
	if s.hooks.queryIt != nil {
		return s.hooks.queryIt(db, query, args...)
	}
	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	return sqlRowScanner{rows: rows}, nil
}

// New creates the archive store. It creates the data directory if
// needed, opens SQLite with WAL mode, and runs migrations.
func New(cfg Config) (*Store, error) {
	if cfg.DataDir == "" {
		cfg = DefaultConfig()
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fault.Persistencef("archive: create data dir: %v", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "sessions.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fault.Persistencef("archive: open database: %v", err)
	}

	// SQLite performance pragmas
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fault.Persistencef("archive: pragma %q: %v", p, err)
		}
	}

	s := &Store{db: db, hooks: defaultStoreHooks()}
	if err := s.migrate(); err != nil {
		return nil, fault.Persistencef("archive: migration: %v", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS sessions (
			id          TEXT    NOT NULL,
			created_at  TEXT    NOT NULL,
			ended_at    TEXT    NOT NULL,
			reason      TEXT    NOT NULL,
			artifacts   INTEGER NOT NULL DEFAULT 0,
			stats       TEXT    NOT NULL DEFAULT '{}',
			archived_at TEXT    NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (id, ended_at)
		);

		CREATE INDEX IF NOT EXISTS idx_sessions_ended  ON sessions(ended_at DESC);
		CREATE INDEX IF NOT EXISTS idx_sessions_reason ON sessions(reason);
	`
	_, err := s.execHook(s.db, schema)
	return err
}

// ─── Writes ──────────────────────────────────────────────────────────────────

// Save archives one ended session. Saving the same record twice is a
// no-op.
func (s *Store) Save(rec session.Record) error {
	if rec.ID == "" {
		return fault.Validationf("archive save: empty session id")
	}

	blob, err := json.Marshal(rec.Stats)
	if err != nil {
		return fault.Persistencef("archive save: encode stats: %v", err)
	}

	if _, err := s.execHook(s.db, `
		INSERT OR IGNORE INTO sessions (id, created_at, ended_at, reason, artifacts, stats)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.EndedAt.UTC().Format(time.RFC3339Nano),
		rec.Reason,
		rec.Stats.Total,
		string(blob),
	); err != nil {
		return fault.Persistencef("archive save: %v", err)
	}
	return nil
}

// ─── Reads ───────────────────────────────────────────────────────────────────

// Recent returns the most recently ended sessions, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.queryItHook(s.db, `
		SELECT id, created_at, ended_at, reason, artifacts, stats
		FROM sessions
		ORDER BY datetime(ended_at) DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fault.Persistencef("archive recent: %v", err)
	}
	defer func() { _ = rows.Close() }()

	return collectEntries(rows)
}

// Get returns every archived run of the given session id, newest first.
func (s *Store) Get(sessionID string) ([]Entry, error) {
	rows, err := s.queryItHook(s.db, `
		SELECT id, created_at, ended_at, reason, artifacts, stats
		FROM sessions
		WHERE id = ?
		ORDER BY datetime(ended_at) DESC`, sessionID)
	if err != nil {
		return nil, fault.Persistencef("archive get: %v", err)
	}
	defer func() { _ = rows.Close() }()

	entries, err := collectEntries(rows)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fault.Referencef("no archived runs for session %q", sessionID)
	}
	return entries, nil
}

// Stats summarizes the archive. Counts are best effort; a failing query
// leaves its field at zero.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{ByReason: map[string]int{}}

	_ = s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(artifacts), 0) FROM sessions`).Scan(&stats.Sessions, &stats.Artifacts)

	rows, err := s.queryItHook(s.db, `SELECT reason, COUNT(*) FROM sessions GROUP BY reason`)
	if err != nil {
		return stats, nil
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			reason string
			n      int
		)
		if err := rows.Scan(&reason, &n); err == nil {
			stats.ByReason[reason] = n
		}
	}

	return stats, nil
}

// ─── Scanning ────────────────────────────────────────────────────────────────

func collectEntries(rows rowScanner) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Persistencef("archive scan: %v", err)
	}
	return out, nil
}

func scanEntry(rows rowScanner) (Entry, error) {
	var (
		e              Entry
		created, ended string
		blob           string
	)
	if err := rows.Scan(&e.SessionID, &created, &ended, &e.Reason, &e.Artifacts, &blob); err != nil {
		return Entry{}, fault.Persistencef("archive scan: %v", err)
	}
	e.CreatedAt = parseTime(created)
	e.EndedAt = parseTime(ended)
	// The stats blob is advisory; keep the row even if it does not decode.
	_ = json.Unmarshal([]byte(blob), &e.Stats)
	return e, nil
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
