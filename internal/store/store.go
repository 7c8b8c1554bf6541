// Package store persists tasks, pull records, and model configuration in SQLite.
// It is the single shared mutable resource of the pipeline; every mutation is a
// single-record read-modify-write except the dedup sweep, which runs in one
// transaction against a consistent snapshot.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gitpress/internal/logging"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record lookup matches nothing.
var ErrNotFound = errors.New("store: not found")

// Store wraps the SQLite database holding tasks and pull records.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open initializes the SQLite database at the given path.
func Open(path string) (*Store, error) {
	logging.Store("Opening store at path: %s", path)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("Failed to set sqlite busy_timeout: %v", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("Failed to set sqlite synchronous=NORMAL: %v", err)
	}

	s := &Store{db: db, dbPath: path}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	logging.StoreDebug("Store schema initialized")

	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		task_id TEXT PRIMARY KEY,
		input_ref TEXT NOT NULL,
		repo_name TEXT DEFAULT '',
		status TEXT NOT NULL DEFAULT 'queued',
		content TEXT DEFAULT '',
		detailed_content TEXT DEFAULT '',
		thinking_content TEXT DEFAULT '',
		feedback TEXT DEFAULT '',
		log_file TEXT DEFAULT '',
		created_at TIMESTAMP NOT NULL,
		started_at TIMESTAMP,
		finished_at TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
	CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks(created_at);

	CREATE TABLE IF NOT EXISTS pull_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		repo_full_name TEXT NOT NULL,
		save_path TEXT DEFAULT '',
		result_status TEXT NOT NULL DEFAULT 'pending',
		stars INTEGER DEFAULT 0,
		forks INTEGER DEFAULT 0,
		token_count INTEGER DEFAULT 0,
		summary TEXT DEFAULT '',
		detail TEXT DEFAULT '',
		pull_time TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_pull_records_url ON pull_records(url);
	CREATE INDEX IF NOT EXISTS idx_pull_records_pull_time ON pull_records(pull_time);

	CREATE TABLE IF NOT EXISTS model_config (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		provider TEXT DEFAULT 'openai',
		base_url TEXT DEFAULT '',
		model TEXT DEFAULT '',
		api_key TEXT DEFAULT '',
		engine_version TEXT DEFAULT 'v1',
		word_limit INTEGER DEFAULT 8000,
		updated_at TIMESTAMP NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}
