/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements execution.ExecutionStore and execution.CatalogService using
  SQLite. In production the same patterns apply to PostgreSQL - only minor
  SQL dialect differences.

KEY TABLES:
  execution_entries: one row per (project, facility, period, quarter),
                     with the activity map, rollups, computed balances and
                     metadata stored as JSON documents
  execution_catalog: budget line definitions per (project type, facility type)

OPTIMISTIC CONCURRENCY:
  Every entry row carries a version counter. Save requires the caller's
  version to match the stored row's and increments it on success; a
  mismatch returns execution.ErrConcurrentModification and writes nothing.
  This guards same-quarter writers; adjacent-quarter ordering is the
  service's per-key lock.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block and crash recovery improves.

USAGE:
  store, err := sqlite.New("./data/execution.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper migration
  tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - execution/store.go: Interface definitions
  - execution/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/execution-engine/execution"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Execution entries (one row per facility-period-quarter)
	CREATE TABLE IF NOT EXISTS execution_entries (
		id TEXT PRIMARY KEY,
		project_id TEXT NOT NULL,
		facility_id TEXT NOT NULL,
		reporting_period_id TEXT NOT NULL,
		quarter TEXT NOT NULL,
		activities_json TEXT NOT NULL,
		rollups_json TEXT NOT NULL,
		computed_json TEXT NOT NULL,
		metadata_json TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		UNIQUE(project_id, facility_id, reporting_period_id, quarter)
	);

	-- Hot path: loading a period's quarters for merge and cascade
	CREATE INDEX IF NOT EXISTS idx_entries_scope
		ON execution_entries(project_id, facility_id, reporting_period_id, quarter);

	-- Activity catalog (labels and display order only)
	CREATE TABLE IF NOT EXISTS execution_catalog (
		project_type TEXT NOT NULL,
		facility_type TEXT NOT NULL,
		code TEXT NOT NULL,
		name TEXT NOT NULL,
		display_order INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (project_type, facility_type, code)
	);

	CREATE INDEX IF NOT EXISTS idx_catalog_pair
		ON execution_catalog(project_type, facility_type, display_order);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EXECUTION STORE (execution.ExecutionStore interface)
// =============================================================================

const entryColumns = `id, project_id, facility_id, reporting_period_id, quarter,
	activities_json, rollups_json, computed_json, metadata_json, version,
	created_at, updated_at`

// FindByKey returns the entry for the exact key, or nil when absent.
func (s *Store) FindByKey(ctx context.Context, key execution.EntryKey, quarter execution.Quarter) (*execution.ExecutionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT `+entryColumns+`
		FROM execution_entries
		WHERE project_id = ? AND facility_id = ? AND reporting_period_id = ? AND quarter = ?`,
		key.ProjectID, key.FacilityID, key.ReportingPeriodID, string(quarter))

	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return entry, err
}

// FindQuarters returns all entries for the key, ordered by quarter.
func (s *Store) FindQuarters(ctx context.Context, key execution.EntryKey) ([]*execution.ExecutionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM execution_entries
		WHERE project_id = ? AND facility_id = ? AND reporting_period_id = ?
		ORDER BY quarter`,
		key.ProjectID, key.FacilityID, key.ReportingPeriodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEntries(rows)
}

// FindSubsequentQuarters returns entries strictly after the given quarter,
// ordered by quarter. The lexicographic order of quarter labels matches
// their fiscal order.
func (s *Store) FindSubsequentQuarters(ctx context.Context, key execution.EntryKey, after execution.Quarter) ([]*execution.ExecutionEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM execution_entries
		WHERE project_id = ? AND facility_id = ? AND reporting_period_id = ? AND quarter > ?
		ORDER BY quarter`,
		key.ProjectID, key.FacilityID, key.ReportingPeriodID, string(after))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEntries(rows)
}

// Save inserts or updates an entry with an optimistic version check.
func (s *Store) Save(ctx context.Context, entry *execution.ExecutionEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	activitiesJSON, err := json.Marshal(entry.Activities)
	if err != nil {
		return fmt.Errorf("failed to encode activities: %w", err)
	}
	rollupsJSON, err := json.Marshal(entry.Rollups)
	if err != nil {
		return fmt.Errorf("failed to encode rollups: %w", err)
	}
	computedJSON, err := json.Marshal(entry.ComputedValues)
	if err != nil {
		return fmt.Errorf("failed to encode computed values: %w", err)
	}
	metadataJSON, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)

	if entry.Version == 0 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO execution_entries
			(id, project_id, facility_id, reporting_period_id, quarter,
			 activities_json, rollups_json, computed_json, metadata_json,
			 version, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)`,
			entry.ID.String(), entry.ProjectID, entry.FacilityID,
			entry.ReportingPeriodID, string(entry.Quarter),
			string(activitiesJSON), string(rollupsJSON), string(computedJSON),
			string(metadataJSON), now, now)
		if err != nil {
			// A duplicate key means another writer created the row first.
			if strings.Contains(err.Error(), "UNIQUE constraint failed") {
				return execution.ErrConcurrentModification
			}
			return err
		}
		entry.Version = 1
		return nil
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE execution_entries
		SET activities_json = ?, rollups_json = ?, computed_json = ?,
		    metadata_json = ?, version = version + 1, updated_at = ?
		WHERE project_id = ? AND facility_id = ? AND reporting_period_id = ?
		  AND quarter = ? AND version = ?`,
		string(activitiesJSON), string(rollupsJSON), string(computedJSON),
		string(metadataJSON), now,
		entry.ProjectID, entry.FacilityID, entry.ReportingPeriodID,
		string(entry.Quarter), entry.Version)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return execution.ErrConcurrentModification
	}
	entry.Version++
	return nil
}

// =============================================================================
// ROW SCANNING
// =============================================================================

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*execution.ExecutionEntry, error) {
	var (
		entry                execution.ExecutionEntry
		id, quarter          string
		activities, rollups  string
		computed, metadata   string
		createdAt, updatedAt string
	)

	err := row.Scan(&id, &entry.ProjectID, &entry.FacilityID,
		&entry.ReportingPeriodID, &quarter, &activities, &rollups,
		&computed, &metadata, &entry.Version, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if err := entry.ID.UnmarshalText([]byte(id)); err != nil {
		return nil, fmt.Errorf("invalid entry id %q: %w", id, err)
	}
	entry.Quarter = execution.Quarter(quarter)

	if err := json.Unmarshal([]byte(activities), &entry.Activities); err != nil {
		return nil, fmt.Errorf("failed to decode activities: %w", err)
	}
	if err := json.Unmarshal([]byte(rollups), &entry.Rollups); err != nil {
		return nil, fmt.Errorf("failed to decode rollups: %w", err)
	}
	if err := json.Unmarshal([]byte(computed), &entry.ComputedValues); err != nil {
		return nil, fmt.Errorf("failed to decode computed values: %w", err)
	}
	if err := json.Unmarshal([]byte(metadata), &entry.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}

	entry.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	entry.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return &entry, nil
}

func collectEntries(rows *sql.Rows) ([]*execution.ExecutionEntry, error) {
	var out []*execution.ExecutionEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

// =============================================================================
// CATALOG (execution.CatalogService interface)
// =============================================================================

// SeedCatalog replaces the stored catalog for one pair.
func (s *Store) SeedCatalog(ctx context.Context, projectType, facilityType string, items []execution.CatalogItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM execution_catalog WHERE project_type = ? AND facility_type = ?`,
		projectType, facilityType); err != nil {
		return err
	}

	for _, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO execution_catalog (project_type, facility_type, code, name, display_order)
			VALUES (?, ?, ?, ?, ?)`,
			projectType, facilityType, item.Code, item.Name, item.DisplayOrder); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Lookup implements execution.CatalogService.
func (s *Store) Lookup(ctx context.Context, projectType, facilityType string) ([]execution.CatalogItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT code, name, display_order
		FROM execution_catalog
		WHERE project_type = ? AND facility_type = ?
		ORDER BY display_order`,
		projectType, facilityType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []execution.CatalogItem
	for rows.Next() {
		var item execution.CatalogItem
		if err := rows.Scan(&item.Code, &item.Name, &item.DisplayOrder); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no catalog for project type %q, facility type %q", projectType, facilityType)
	}
	return out, rows.Err()
}
