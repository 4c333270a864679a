/*
service.go - Create/update flow for quarterly submissions

PURPOSE:
  The single write path of the engine. Merges a quarter's raw activity
  values into the entry for its key, runs the
  classify -> cumulative -> rollup -> assemble pipeline, rejects the write
  when the accounting identity fails, persists, and triggers the cascade.

MERGE SEMANTICS:
  Entries are merged, never replaced. A submitted quarter value overwrites
  that quarter's column for its activity; quarters not carried by the
  request are left untouched. An explicit zero IS a value. A first
  submission for a quarter seeds its activity map from the latest earlier
  quarter on file so stock balances carry forward.

CONCURRENCY:
  A per-(project, facility, period) mutex serializes submissions with the
  cascade's read-modify-write of the adjacent quarter. Writers to the same
  quarter are additionally guarded by the store's optimistic versioning.

REJECTION GUARANTEE:
  A rejected write (balance mismatch, missing rollup structure) returns
  before Save is called: the previously persisted entry is untouched.

SEE ALSO:
  - cascade.go: Runs after every successful save
  - store.go: Collaborator interfaces
*/
package execution

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// =============================================================================
// REQUEST / RESULT
// =============================================================================

// ActivityInput is one budget line's raw values as submitted. Nil quarters
// are "not carried by this request"; a pointer to zero is an explicit zero.
type ActivityInput struct {
	Name string
	Q1   *decimal.Decimal
	Q2   *decimal.Decimal
	Q3   *decimal.Decimal
	Q4   *decimal.Decimal
}

// SubmissionRequest carries one quarter's raw activity values for a
// facility's reporting period.
type SubmissionRequest struct {
	ProjectID         string
	FacilityID        string
	ReportingPeriodID string
	Quarter           Quarter

	// Catalog context, used only to hydrate labels.
	ProjectType  string
	FacilityType string

	Activities map[string]ActivityInput
}

// SubmissionResult is the outbound shape of a successful write.
type SubmissionResult struct {
	Entry    *ExecutionEntry
	Created  bool
	Cascade  CascadeImpact
	Sequence QuarterSequence
}

// =============================================================================
// SERVICE
// =============================================================================

// Service owns the create/update flow.
type Service struct {
	store   ExecutionStore
	catalog CatalogService // may be nil
	cascade *CascadeEngine
	logger  zerolog.Logger

	locks keyedMutex

	// Now is overridable for tests.
	Now func() time.Time
}

// NewService wires the service and its cascade engine over a store.
// catalog may be nil when label hydration is not wanted.
func NewService(store ExecutionStore, catalog CatalogService, logger zerolog.Logger) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
		cascade: NewCascadeEngine(store, logger),
		logger:  logger,
		Now:     time.Now,
	}
}

// SubmitQuarter merges the request into the entry for its key, validates
// the statement, persists, and propagates. See the file header for the
// exact semantics.
func (s *Service) SubmitQuarter(ctx context.Context, req SubmissionRequest) (*SubmissionResult, error) {
	if !req.Quarter.Valid() {
		return nil, ErrInvalidQuarter
	}
	if len(req.Activities) == 0 {
		return nil, ErrEmptySubmission
	}

	key := EntryKey{
		ProjectID:         req.ProjectID,
		FacilityID:        req.FacilityID,
		ReportingPeriodID: req.ReportingPeriodID,
	}

	unlock := s.locks.lock(key)
	defer unlock()

	existing, err := s.store.FindByKey(ctx, key, req.Quarter)
	if err != nil {
		return nil, err
	}

	entry, created, err := s.baseEntry(ctx, key, req.Quarter, existing)
	if err != nil {
		return nil, err
	}

	s.mergeActivities(entry, req)
	s.hydrateNames(ctx, entry, req.ProjectType, req.FacilityType)

	// Pure pipeline: cumulative -> rollups -> balances.
	for _, a := range entry.Activities {
		a.CumulativeBalance = CumulativeBalance(a)
	}
	entry.Rollups = Aggregate(entry.Activities)
	if err := ValidateRollups(entry.Rollups); err != nil {
		return nil, err
	}
	entry.ComputedValues = Assemble(entry.Rollups)

	s.logger.Debug().
		Str("project", req.ProjectID).
		Str("facility", req.FacilityID).
		Str("quarter", string(req.Quarter)).
		Bool("balanced", entry.ComputedValues.IsBalanced).
		Str("difference", entry.ComputedValues.Difference.String()).
		Msg("pipeline: statement assembled")

	if err := entry.ComputedValues.MismatchError(); err != nil {
		// Rejected before Save: the persisted entry is untouched.
		return nil, err
	}

	now := s.Now()
	entry.Metadata.LastQuarterReported = req.Quarter
	entry.Metadata.LastReportedAt = now
	entry.UpdatedAt = now
	if created {
		entry.CreatedAt = now
	}

	if err := s.store.Save(ctx, entry); err != nil {
		return nil, err
	}

	impact := s.cascade.Propagate(ctx, entry)
	if len(impact.AffectedQuarters) > 0 {
		entry.Metadata.AffectedQuarters = impact.AffectedQuarters
		if err := s.store.Save(ctx, entry); err != nil {
			// Metadata summary only; the substantive write already landed.
			s.logger.Warn().Err(err).Msg("failed to persist cascade summary metadata")
		}
	}

	seq, _ := Sequence(req.Quarter, false)

	return &SubmissionResult{
		Entry:    entry,
		Created:  created,
		Cascade:  impact,
		Sequence: seq,
	}, nil
}

// GetEntry returns the entry for a key and quarter, or ErrEntryNotFound.
func (s *Service) GetEntry(ctx context.Context, key EntryKey, quarter Quarter) (*ExecutionEntry, error) {
	if !quarter.Valid() {
		return nil, ErrInvalidQuarter
	}
	entry, err := s.store.FindByKey(ctx, key, quarter)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrEntryNotFound
	}
	return entry, nil
}

// ListQuarters returns all entries for a key, ordered by quarter.
func (s *Service) ListQuarters(ctx context.Context, key EntryKey) ([]*ExecutionEntry, error) {
	return s.store.FindQuarters(ctx, key)
}

// baseEntry returns the entry the submission merges into: the existing
// entry for the quarter, or a fresh one seeded from the latest earlier
// quarter on file so stock positions carry forward.
func (s *Service) baseEntry(ctx context.Context, key EntryKey, quarter Quarter, existing *ExecutionEntry) (*ExecutionEntry, bool, error) {
	if existing != nil {
		return existing, false, nil
	}

	entry := &ExecutionEntry{
		ID:                uuid.New(),
		ProjectID:         key.ProjectID,
		FacilityID:        key.FacilityID,
		ReportingPeriodID: key.ReportingPeriodID,
		Quarter:           quarter,
		Activities:        make(map[string]*Activity),
	}

	quarters, err := s.store.FindQuarters(ctx, key)
	if err != nil {
		return nil, false, err
	}
	var seed *ExecutionEntry
	for _, e := range quarters {
		if e.Quarter.Before(quarter) {
			seed = e // ordered by quarter; keep the latest earlier one
		}
	}
	if seed != nil {
		entry.Activities = seed.CloneActivities()
	}

	return entry, true, nil
}

// mergeActivities overlays the submitted values onto the entry's activity
// map and (re)classifies every touched code.
func (s *Service) mergeActivities(entry *ExecutionEntry, req SubmissionRequest) {
	for code, input := range req.Activities {
		a, ok := entry.Activities[code]
		if !ok {
			a = &Activity{Code: code}
			entry.Activities[code] = a
		}
		if input.Name != "" {
			a.Name = input.Name
		}
		if input.Q1 != nil {
			a.Q1 = cloneDecimal(input.Q1)
		}
		if input.Q2 != nil {
			a.Q2 = cloneDecimal(input.Q2)
		}
		if input.Q3 != nil {
			a.Q3 = cloneDecimal(input.Q3)
		}
		if input.Q4 != nil {
			a.Q4 = cloneDecimal(input.Q4)
		}

		section, subSection, err := Classify(code)
		if err != nil {
			s.logger.Debug().Str("code", code).Err(err).
				Msg("pipeline: activity excluded from rollups")
		}
		a.Section = section
		a.SubSection = subSection
	}
}

// hydrateNames fills missing display names from the activity catalog.
// Calculations never depend on catalog content.
func (s *Service) hydrateNames(ctx context.Context, entry *ExecutionEntry, projectType, facilityType string) {
	if s.catalog == nil || projectType == "" || facilityType == "" {
		return
	}
	items, err := s.catalog.Lookup(ctx, projectType, facilityType)
	if err != nil {
		s.logger.Debug().Err(err).Msg("catalog lookup failed; labels left as submitted")
		return
	}
	byCode := make(map[string]CatalogItem, len(items))
	for _, item := range items {
		byCode[item.Code] = item
	}
	for code, a := range entry.Activities {
		if a.Name == "" {
			if item, ok := byCode[code]; ok {
				a.Name = item.Name
			}
		}
	}
}

// =============================================================================
// KEYED MUTEX - Serializes writes per (project, facility, period)
// =============================================================================

type keyedMutex struct {
	mu    sync.Mutex
	locks map[EntryKey]*sync.Mutex
}

// lock acquires the mutex for key, creating it on first use, and returns
// the unlock function. Lock entries are retained for the process lifetime;
// the key space is bounded by the facility population.
func (k *keyedMutex) lock(key EntryKey) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[EntryKey]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
