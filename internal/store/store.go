package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database holding papers, preferences, digest
// history, and persisted model state.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open initializes the database at path, creating the directory, the
// schema, and the default preferences row as needed. Existing databases
// are migrated by adding any missing columns.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	// modernc's driver serializes writes; a single connection avoids
	// SQLITE_BUSY between the API server and the scheduler.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// initialize creates tables, runs additive migrations, and ensures the
// preferences row exists.
func (s *Store) initialize() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			arxiv_id TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			authors TEXT,
			abstract TEXT,
			pdf_url TEXT,
			abs_url TEXT,
			primary_category TEXT,
			published DATETIME,
			relevance_score REAL DEFAULT 0.5
		);`,
		`CREATE INDEX IF NOT EXISTS idx_papers_arxiv_id ON papers(arxiv_id);`,
		`CREATE INDEX IF NOT EXISTS idx_papers_category ON papers(primary_category);`,
		`CREATE INDEX IF NOT EXISTS idx_papers_score ON papers(relevance_score);`,
		`CREATE TABLE IF NOT EXISTS preferences (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			email TEXT DEFAULT '',
			digest_enabled INTEGER DEFAULT 0,
			digest_frequency TEXT DEFAULT 'weekly',
			digest_hour INTEGER DEFAULT 8,
			tracked_categories TEXT DEFAULT '[]',
			tracked_keywords TEXT DEFAULT '[]',
			min_relevance_score REAL DEFAULT 0.5,
			max_papers_per_digest INTEGER DEFAULT 10,
			auto_train INTEGER DEFAULT 1,
			model_last_trained DATETIME,
			model_accuracy REAL,
			smtp_host TEXT DEFAULT 'smtp.gmail.com',
			smtp_port INTEGER DEFAULT 587,
			smtp_user TEXT DEFAULT '',
			smtp_password TEXT DEFAULT '',
			updated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS digest_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sent_at DATETIME NOT NULL,
			paper_ids TEXT NOT NULL,
			paper_count INTEGER NOT NULL,
			digest_type TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'sent'
		);`,
		`CREATE INDEX IF NOT EXISTS idx_digest_sent_at ON digest_history(sent_at);`,
		`CREATE TABLE IF NOT EXISTS model_state (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			model_type TEXT NOT NULL DEFAULT 'embed_logreg',
			weights BLOB NOT NULL,
			trained_at DATETIME NOT NULL,
			training_samples INTEGER NOT NULL,
			accuracy REAL,
			precision_score REAL,
			recall_score REAL,
			f1_score REAL,
			is_active INTEGER NOT NULL DEFAULT 1
		);`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("store: create schema: %w", err)
		}
	}

	if err := s.migratePapers(); err != nil {
		return err
	}
	return s.ensurePreferences()
}

// migratePapers adds columns introduced after the initial schema. Older
// databases keep their data; new columns arrive NULL or with defaults.
func (s *Store) migratePapers() error {
	existing, err := s.tableColumns("papers")
	if err != nil {
		return err
	}

	additions := []struct {
		name string
		typ  string
	}{
		{"categories", "TEXT DEFAULT '[]'"},
		{"fetched_at", "DATETIME"},
		{"user_label", "INTEGER"},
		{"labeled_at", "DATETIME"},
		{"is_saved", "INTEGER DEFAULT 0"},
		{"saved_at", "DATETIME"},
		{"user_score", "REAL"},
	}

	for _, col := range additions {
		if existing[col.name] {
			continue
		}
		stmt := fmt.Sprintf("ALTER TABLE papers ADD COLUMN %s %s", col.name, col.typ)
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("store: add column %s: %w", col.name, err)
		}
	}
	return nil
}

// tableColumns returns the set of column names on a table.
func (s *Store) tableColumns(table string) (map[string]bool, error) {
	rows, err := s.db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, fmt.Errorf("store: inspect %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("store: inspect %s: %w", table, err)
		}
		cols[name] = true
	}
	return cols, rows.Err()
}
