package store

import (
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for datasets, modification
// records and their genomic annotations.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SchemaVersion is the layout created by Migrate. It is recorded in the
// metadata table under schemaVersionKey.
const SchemaVersion = "2"

const schemaVersionKey = "schema_version"

// ErrSchemaVersion is returned by Migrate for a database created with a
// different layout.
var ErrSchemaVersion = errors.New("store: unsupported schema version")

// Migrate creates all tables and indexes and records the schema version.
// Idempotent.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaDDL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	v, err := s.GetMetadata(schemaVersionKey)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if v != "" && v != SchemaVersion {
		return fmt.Errorf("migrate: %w: database has %s, want %s", ErrSchemaVersion, v, SchemaVersion)
	}
	if v == "" {
		return s.SetMetadata(schemaVersionKey, SchemaVersion)
	}
	return nil
}

// Version returns the schema version recorded by Migrate.
func (s *Store) Version() (string, error) {
	return s.GetMetadata(schemaVersionKey)
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS projects (
  smid            TEXT PRIMARY KEY CHECK (length(smid) = 8),
  title           TEXT NOT NULL,
  summary         TEXT,
  created         TIMESTAMP
);

CREATE TABLE IF NOT EXISTS datasets (
  eufid           TEXT PRIMARY KEY CHECK (length(eufid) = 12),
  project_id      TEXT REFERENCES projects(smid),
  title           TEXT NOT NULL,
  assembly        TEXT,
  modification    TEXT,
  checksum        TEXT,
  created         TIMESTAMP
);

CREATE TABLE IF NOT EXISTS data (
  id              INTEGER PRIMARY KEY,
  dataset_id      TEXT NOT NULL REFERENCES datasets(eufid),
  chrom           TEXT NOT NULL,
  start           INTEGER NOT NULL CHECK (start >= 0),
  end             INTEGER NOT NULL,
  name            TEXT NOT NULL,
  score           INTEGER NOT NULL CHECK (score BETWEEN 0 AND 1000),
  strand          TEXT NOT NULL CHECK (strand IN ('+', '-', '.')),
  thick_start     INTEGER,
  thick_end       INTEGER,
  item_rgb        TEXT,
  coverage        INTEGER CHECK (coverage >= 0),
  frequency       INTEGER CHECK (frequency BETWEEN 0 AND 100),
  CHECK (end > start)
);

CREATE TABLE IF NOT EXISTS data_annotations (
  id              INTEGER PRIMARY KEY,
  gene_id         TEXT NOT NULL,
  data_id         INTEGER NOT NULL REFERENCES data(id),
  feature         TEXT NOT NULL,
  UNIQUE (gene_id, data_id, feature)
);

CREATE TABLE IF NOT EXISTS metadata (
  key             TEXT PRIMARY KEY,
  value           TEXT
);

CREATE INDEX IF NOT EXISTS idx_datasets_project ON datasets(project_id);
CREATE INDEX IF NOT EXISTS idx_data_dataset ON data(dataset_id);
CREATE INDEX IF NOT EXISTS idx_data_position ON data(chrom, start);
CREATE INDEX IF NOT EXISTS idx_data_annotations_data ON data_annotations(data_id);
CREATE INDEX IF NOT EXISTS idx_data_annotations_gene ON data_annotations(gene_id);
`

// DeleteDataset transactionally removes a dataset together with its
// records and their annotations. Deletes in reverse-dependency order to
// respect FK constraints.
func (s *Store) DeleteDataset(eufid string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		"DELETE FROM data_annotations WHERE data_id IN (SELECT id FROM data WHERE dataset_id = ?)",
		"DELETE FROM data WHERE dataset_id = ?",
		"DELETE FROM datasets WHERE eufid = ?",
	} {
		if _, err := tx.Exec(q, eufid); err != nil {
			return fmt.Errorf("delete dataset %s: %w", eufid, err)
		}
	}
	return tx.Commit()
}

// GetMetadata returns the value stored under key, or "" if absent.
func (s *Store) GetMetadata(key string) (string, error) {
	var value sql.NullString
	err := s.db.QueryRow("SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get metadata %s: %w", key, err)
	}
	return value.String, nil
}

// SetMetadata upserts a key/value pair.
func (s *Store) SetMetadata(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO metadata (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set metadata %s: %w", key, err)
	}
	return nil
}
