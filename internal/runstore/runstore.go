// Package runstore records each TrackChanges/RefilterAndRecord batch
// invocation to a local SQLite table for operational visibility across
// process restarts. Purely observational: the engine never reads this back
// to make a decision. Grounded on the teacher's internal/scheduler.DB (same
// open-database, ensure-schema, insert-on-start, update-on-completion
// shape), retargeted from scan runs to tracking batches.
package runstore

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// Kind distinguishes a tracking batch from a refiltering batch.
type Kind string

const (
	KindTrack    Kind = "track"
	KindRefilter Kind = "refilter"
)

// Store wraps the batch_run table.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Open opens (creating if needed) the SQLite database at dataSourceName and
// ensures the batch_run schema exists.
func Open(dataSourceName string, logger zerolog.Logger) (*Store, error) {
	if dir := filepath.Dir(dataSourceName); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("runstore: creating directory %q: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("runstore: opening %q: %w", dataSourceName, err)
	}

	store := &Store{db: db, logger: logger.With().Str("component", "RunStore").Logger()}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) initSchema() error {
	const query = `
	CREATE TABLE IF NOT EXISTS batch_run (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		services_requested INTEGER NOT NULL,
		documents_processed INTEGER DEFAULT 0,
		documents_failed INTEGER DEFAULT 0,
		documents_inaccessible INTEGER DEFAULT 0,
		published INTEGER DEFAULT 0
	);`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("runstore: initializing schema: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Outcome summarizes how a batch ended.
type Outcome struct {
	DocumentsProcessed    int
	DocumentsFailed       int
	DocumentsInaccessible int
	Published             bool
}

// RecordStart inserts a new batch_run row with runID as its primary key,
// returning an error if runID is already present.
func (s *Store) RecordStart(runID string, kind Kind, servicesRequested int, startedAt time.Time) error {
	const query = `INSERT INTO batch_run (id, kind, started_at, services_requested) VALUES (?, ?, ?, ?)`
	if _, err := s.db.Exec(query, runID, string(kind), startedAt, servicesRequested); err != nil {
		return fmt.Errorf("runstore: recording start of run %q: %w", runID, err)
	}
	return nil
}

// RecordCompletion updates runID's row with its final outcome.
func (s *Store) RecordCompletion(runID string, endedAt time.Time, outcome Outcome) error {
	const query = `UPDATE batch_run SET ended_at = ?, documents_processed = ?, documents_failed = ?, documents_inaccessible = ?, published = ? WHERE id = ?`
	result, err := s.db.Exec(query, endedAt, outcome.DocumentsProcessed, outcome.DocumentsFailed, outcome.DocumentsInaccessible, outcome.Published, runID)
	if err != nil {
		return fmt.Errorf("runstore: recording completion of run %q: %w", runID, err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("runstore: no batch_run row found for run %q", runID)
	}
	return nil
}

// Run is one read-back batch_run row.
type Run struct {
	ID                string
	Kind              Kind
	StartedAt         time.Time
	EndedAt           sql.NullTime
	ServicesRequested int
	Outcome           Outcome
}

// Recent returns up to limit most recent runs, newest first.
func (s *Store) Recent(limit int) ([]Run, error) {
	const query = `SELECT id, kind, started_at, ended_at, services_requested, documents_processed, documents_failed, documents_inaccessible, published FROM batch_run ORDER BY started_at DESC LIMIT ?`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("runstore: querying recent runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var kind string
		var published int
		if err := rows.Scan(&run.ID, &kind, &run.StartedAt, &run.EndedAt, &run.ServicesRequested,
			&run.Outcome.DocumentsProcessed, &run.Outcome.DocumentsFailed, &run.Outcome.DocumentsInaccessible, &published); err != nil {
			return nil, fmt.Errorf("runstore: scanning run row: %w", err)
		}
		run.Kind = Kind(kind)
		run.Outcome.Published = published != 0
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
