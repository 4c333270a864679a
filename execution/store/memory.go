// Package store provides ExecutionStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/execution-engine/execution"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	entries map[entryKey]*execution.ExecutionEntry
}

type entryKey struct {
	Key     execution.EntryKey
	Quarter execution.Quarter
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[entryKey]*execution.ExecutionEntry)}
}

func (m *Memory) FindByKey(_ context.Context, key execution.EntryKey, quarter execution.Quarter) (*execution.ExecutionEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[entryKey{Key: key, Quarter: quarter}]
	if !ok {
		return nil, nil
	}
	return cloneEntry(e), nil
}

func (m *Memory) FindQuarters(_ context.Context, key execution.EntryKey) ([]*execution.ExecutionEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*execution.ExecutionEntry
	for k, e := range m.entries {
		if k.Key == key {
			out = append(out, cloneEntry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Quarter.Index() < out[j].Quarter.Index()
	})
	return out, nil
}

func (m *Memory) FindSubsequentQuarters(_ context.Context, key execution.EntryKey, after execution.Quarter) ([]*execution.ExecutionEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*execution.ExecutionEntry
	for k, e := range m.entries {
		if k.Key == key && after.Before(k.Quarter) {
			out = append(out, cloneEntry(e))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Quarter.Index() < out[j].Quarter.Index()
	})
	return out, nil
}

// Save upserts with an optimistic version check, mirroring the sqlite
// implementation: the caller's Version must match the stored row's.
func (m *Memory) Save(_ context.Context, entry *execution.ExecutionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := entryKey{Key: entry.Key(), Quarter: entry.Quarter}
	if current, ok := m.entries[k]; ok && current.Version != entry.Version {
		return execution.ErrConcurrentModification
	}

	entry.Version++
	m.entries[k] = cloneEntry(entry)
	return nil
}

// cloneEntry deep-copies an entry so callers never share state with the
// store, matching real persistence semantics.
func cloneEntry(e *execution.ExecutionEntry) *execution.ExecutionEntry {
	c := *e
	c.Activities = e.CloneActivities()

	if e.Rollups != nil {
		r := &execution.Rollups{
			BySection:    make(map[execution.Section]*execution.QuarterlyTotal, len(e.Rollups.BySection)),
			BySubSection: make(map[string]*execution.QuarterlyTotal, len(e.Rollups.BySubSection)),
		}
		for s, t := range e.Rollups.BySection {
			tc := *t
			r.BySection[s] = &tc
		}
		for s, t := range e.Rollups.BySubSection {
			tc := *t
			r.BySubSection[s] = &tc
		}
		c.Rollups = r
	}

	if e.ComputedValues != nil {
		b := *e.ComputedValues
		c.ComputedValues = &b
	}

	if e.Metadata.AffectedQuarters != nil {
		c.Metadata.AffectedQuarters = append([]execution.Quarter(nil), e.Metadata.AffectedQuarters...)
	}

	return &c
}
