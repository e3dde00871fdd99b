// Package cache stores tokenization results in SQLite, keyed by file content,
// grammar and tokenizer options.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"ppscan/internal/lexer"
)

// Entry is a cached result for one file.
type Entry struct {
	Normalized []byte
	Tokens     []lexer.Token
	// Stall is the offset at which tokenization stalled, or -1.
	Stall int
}

// Stats summarizes the store contents.
type Stats struct {
	Runs   int
	Files  int
	Tokens int
}

// Store is a SQLite-backed token cache. It is safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Key identifies a tokenization of raw under the grammar with the given
// fingerprint and header name mode.
func Key(raw []byte, fingerprint string, mode lexer.HeaderMode) string {
	h := sha256.New()
	h.Write(raw)
	fmt.Fprintf(h, "\x00%s\x00%s", fingerprint, mode)
	return hex.EncodeToString(h.Sum(nil))
}

// Open opens or creates the store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS files (
		key TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		run_id TEXT NOT NULL REFERENCES runs(id),
		normalized BLOB NOT NULL,
		stall INTEGER NOT NULL DEFAULT -1
	);

	CREATE TABLE IF NOT EXISTS tokens (
		file_key TEXT NOT NULL REFERENCES files(key) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		kind INTEGER NOT NULL,
		start INTEGER NOT NULL,
		length INTEGER NOT NULL,
		PRIMARY KEY (file_key, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_files_run ON files(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// BeginRun records a new run and returns its id.
func (s *Store) BeginRun(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `INSERT INTO runs (id, started_at) VALUES (?, ?)`, id, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}
	return id, nil
}

// Get returns the entry stored under key. ok is false on a miss.
func (s *Store) Get(ctx context.Context, key string) (e *Entry, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e = &Entry{}
	err = s.db.QueryRowContext(ctx, `SELECT normalized, stall FROM files WHERE key = ?`, key).
		Scan(&e.Normalized, &e.Stall)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query file: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, start, length FROM tokens WHERE file_key = ? ORDER BY seq
	`, key)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query tokens: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tok lexer.Token
		if err := rows.Scan(&tok.Kind, &tok.Offset, &tok.Len); err != nil {
			return nil, false, fmt.Errorf("failed to scan token: %w", err)
		}
		e.Tokens = append(e.Tokens, tok)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// Put stores e under key, replacing any previous entry.
func (s *Store) Put(ctx context.Context, key, path, runID string, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete old entry: %w", err)
	}
	normalized := e.Normalized
	if normalized == nil {
		normalized = []byte{}
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO files (key, path, run_id, normalized, stall) VALUES (?, ?, ?, ?, ?)
	`, key, path, runID, normalized, e.Stall); err != nil {
		return fmt.Errorf("failed to insert file: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tokens (file_key, seq, kind, start, length) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i, tok := range e.Tokens {
		if _, err := stmt.ExecContext(ctx, key, i, int(tok.Kind), tok.Offset, tok.Len); err != nil {
			return fmt.Errorf("failed to insert token: %w", err)
		}
	}
	return tx.Commit()
}

// Stats counts runs, files and tokens.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM runs), (SELECT COUNT(*) FROM files), (SELECT COUNT(*) FROM tokens)
	`).Scan(&st.Runs, &st.Files, &st.Tokens)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to query stats: %w", err)
	}
	return st, nil
}

// Clear deletes every entry and run.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, table := range []string{"tokens", "files", "runs"} {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
