// Package store implements the persistent meeting knowledge graph. Nodes
// and edges live in plain SQLite tables; one database file per dataset.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Store is a handle on one dataset's graph. A Store is safe for concurrent
// reads; writers are serialized by the session layer above it.
type Store struct {
	db   *sql.DB
	path string
	dims int
	log  zerolog.Logger
}

// Open opens (creating if needed) the dataset database at path and ensures
// the graph schema exists. dims is the embedding dimensionality utterance
// vectors are expected to carry.
func Open(path string, dims int, logger zerolog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL allows readers to proceed while a turn is writing.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, path: path, dims: dims, log: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Dims returns the embedding dimensionality this store was opened with.
func (s *Store) Dims() int {
	return s.dims
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS meetings (
		id          TEXT PRIMARY KEY,
		title       TEXT NOT NULL DEFAULT '',
		date        TEXT NOT NULL DEFAULT '',
		source_file TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS people (
		name TEXT PRIMARY KEY,
		role TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS topics (
		title   TEXT PRIMARY KEY,
		summary TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS tasks (
		description TEXT PRIMARY KEY,
		deadline    TEXT NOT NULL DEFAULT '',
		status      TEXT NOT NULL DEFAULT 'pending'
	)`,
	`CREATE TABLE IF NOT EXISTS decisions (
		description TEXT PRIMARY KEY
	)`,
	`CREATE TABLE IF NOT EXISTS entities (
		name        TEXT PRIMARY KEY,
		entity_type TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS utterances (
		id         TEXT PRIMARY KEY,
		text       TEXT NOT NULL DEFAULT '',
		start_time REAL NOT NULL DEFAULT 0,
		end_time   REAL NOT NULL DEFAULT 0,
		speaker    TEXT NOT NULL DEFAULT '',
		embedding  BLOB
	)`,
	`CREATE TABLE IF NOT EXISTS proposed (
		person_name TEXT NOT NULL,
		topic_title TEXT NOT NULL,
		PRIMARY KEY (person_name, topic_title)
	)`,
	`CREATE TABLE IF NOT EXISTS assigned_to (
		task_description TEXT NOT NULL,
		person_name      TEXT NOT NULL,
		PRIMARY KEY (task_description, person_name)
	)`,
	`CREATE TABLE IF NOT EXISTS resulted_in (
		topic_title          TEXT NOT NULL,
		decision_description TEXT NOT NULL,
		PRIMARY KEY (topic_title, decision_description)
	)`,
	`CREATE TABLE IF NOT EXISTS spoke (
		person_name  TEXT NOT NULL,
		utterance_id TEXT NOT NULL,
		PRIMARY KEY (person_name, utterance_id)
	)`,
	`CREATE TABLE IF NOT EXISTS next_utterances (
		from_id TEXT NOT NULL,
		to_id   TEXT NOT NULL,
		PRIMARY KEY (from_id, to_id)
	)`,
	`CREATE TABLE IF NOT EXISTS discussed (
		meeting_id  TEXT NOT NULL,
		topic_title TEXT NOT NULL,
		PRIMARY KEY (meeting_id, topic_title)
	)`,
	`CREATE TABLE IF NOT EXISTS contains (
		meeting_id   TEXT NOT NULL,
		utterance_id TEXT NOT NULL,
		PRIMARY KEY (meeting_id, utterance_id)
	)`,
	`CREATE TABLE IF NOT EXISTS has_tasks (
		meeting_id       TEXT NOT NULL,
		task_description TEXT NOT NULL,
		PRIMARY KEY (meeting_id, task_description)
	)`,
	`CREATE TABLE IF NOT EXISTS has_decisions (
		meeting_id           TEXT NOT NULL,
		decision_description TEXT NOT NULL,
		PRIMARY KEY (meeting_id, decision_description)
	)`,
	`CREATE TABLE IF NOT EXISTS has_entities (
		meeting_id  TEXT NOT NULL,
		entity_name TEXT NOT NULL,
		PRIMARY KEY (meeting_id, entity_name)
	)`,
	`CREATE TABLE IF NOT EXISTS mentions (
		topic_title TEXT NOT NULL,
		entity_name TEXT NOT NULL,
		PRIMARY KEY (topic_title, entity_name)
	)`,
	`CREATE TABLE IF NOT EXISTS entity_relations (
		source_name   TEXT NOT NULL,
		target_name   TEXT NOT NULL,
		relation_type TEXT NOT NULL,
		PRIMARY KEY (source_name, target_name, relation_type)
	)`,
}

// initSchema creates every node and edge table. All statements are
// IF NOT EXISTS, so reopening an existing dataset is a no-op.
func (s *Store) initSchema() error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("initializing schema: %w", err)
		}
	}
	return nil
}
