/*
store.go - Persistence and catalog interfaces for the execution engine

PURPOSE:
  Defines the boundary between the engine and its collaborators. The
  engine owns no SQL and no wire format; implementations live in
  store/sqlite (production) and execution/store (in-memory, tests).

KEY INTERFACES:
  ExecutionStore: entry persistence keyed by
                  (project, facility, period, quarter), with optimistic
                  version checking on Save
  CatalogService: activity catalog lookup, used only to hydrate
                  human-readable labels; calculations never depend on
                  catalog content beyond the code string's shape

CONCURRENCY CONTRACT:
  Concurrent writers to the SAME quarter are serialized by the store
  (optimistic versioning). Concurrent edits to ADJACENT quarters are
  serialized above the store by the service's per-key lock, because the
  cascade's read-modify-write of Q+1 depends on Q's closing position.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - execution/store/memory.go: In-memory for testing

SEE ALSO:
  - service.go: The only writer
  - cascade.go: Reads subsequent quarters and rewrites Q+1
*/
package execution

import "context"

// ExecutionStore persists execution entries.
type ExecutionStore interface {
	// FindByKey returns the entry for the exact key, or nil when absent.
	FindByKey(ctx context.Context, key EntryKey, quarter Quarter) (*ExecutionEntry, error)

	// FindQuarters returns all entries for the key, ordered by quarter.
	FindQuarters(ctx context.Context, key EntryKey) ([]*ExecutionEntry, error)

	// FindSubsequentQuarters returns entries strictly after the given
	// quarter, ordered by quarter.
	FindSubsequentQuarters(ctx context.Context, key EntryKey, after Quarter) ([]*ExecutionEntry, error)

	// Save inserts or updates an entry. The entry's Version must match
	// the persisted row's; on mismatch Save returns
	// ErrConcurrentModification and writes nothing. On success the
	// entry's Version is incremented.
	Save(ctx context.Context, entry *ExecutionEntry) error
}

// CatalogItem is one budget line definition from the activity catalog.
type CatalogItem struct {
	Code         string
	Name         string
	DisplayOrder int
}

// CatalogService maps a (project type, facility type) pair to its budget
// line definitions.
type CatalogService interface {
	Lookup(ctx context.Context, projectType, facilityType string) ([]CatalogItem, error)
}
